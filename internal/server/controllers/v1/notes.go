package v1

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"

	"github.com/USA-RedDragon/wander-server/internal/notes"
	apimodels "github.com/USA-RedDragon/wander-server/internal/server/apimodels/v1"
	"github.com/gin-gonic/gin"
)

func noteStore(c *gin.Context) (*notes.Store, bool) {
	store, ok := c.MustGet("notes").(*notes.Store)
	if !ok {
		slog.Error("Failed to get note store from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return nil, false
	}
	return store, true
}

func notesError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, notes.ErrNoteNotFound), errors.Is(err, notes.ErrExportNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, notes.ErrInvalidDateKey),
		errors.Is(err, notes.ErrFutureDate),
		errors.Is(err, notes.ErrEmptyNote):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		slog.Error("Note request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
	}
}

func noteResponse(key string, note notes.Note) apimodels.NoteResponse {
	return apimodels.NoteResponse{
		DateKey:      key,
		Name:         note.Name,
		LocationName: note.LocationName,
		Date:         note.Date,
		Note:         note.Text,
		Location:     note.Location,
	}
}

func GETNote(c *gin.Context) {
	store, ok := noteStore(c)
	if !ok {
		return
	}
	key, err := store.Normalize(c.Param("date"))
	if err != nil {
		notesError(c, err)
		return
	}
	note, err := store.Get(c.Request.Context(), key)
	if err != nil {
		notesError(c, err)
		return
	}
	c.JSON(http.StatusOK, noteResponse(key, note))
}

func PUTNote(c *gin.Context) {
	store, ok := noteStore(c)
	if !ok {
		return
	}
	key, err := store.Normalize(c.Param("date"))
	if err != nil {
		notesError(c, err)
		return
	}
	future, err := store.IsFuture(key)
	if err != nil {
		notesError(c, err)
		return
	}
	if future {
		notesError(c, notes.ErrFutureDate)
		return
	}

	var req apimodels.NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid note"})
		return
	}
	if req.Location != nil && !validCoordinates(req.Location.Latitude, req.Location.Longitude) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of bounds"})
		return
	}
	note := notes.Note{
		Name:         req.Name,
		LocationName: req.LocationName,
		Date:         req.Date,
		Text:         req.Note,
		Location:     req.Location,
	}

	if err := store.Put(c.Request.Context(), key, note); err != nil {
		notesError(c, err)
		return
	}
	saved, err := store.Get(c.Request.Context(), key)
	if err != nil {
		notesError(c, err)
		return
	}
	c.JSON(http.StatusOK, noteResponse(key, saved))
}

func POSTNoteExport(c *gin.Context) {
	store, ok := noteStore(c)
	if !ok {
		return
	}
	key, err := store.Normalize(c.Param("date"))
	if err != nil {
		notesError(c, err)
		return
	}
	name, err := store.Export(c.Request.Context(), key)
	if err != nil {
		notesError(c, err)
		return
	}
	c.JSON(http.StatusOK, apimodels.ExportResponse{DateKey: key, Object: name})
}

func GETNoteExport(c *gin.Context) {
	store, ok := noteStore(c)
	if !ok {
		return
	}
	exported, err := store.ReadExport(c.Request.Context(), c.Param("date"))
	if err != nil {
		notesError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(exported.Name)))
	c.Data(http.StatusOK, exported.ContentType, exported.Data)
}
