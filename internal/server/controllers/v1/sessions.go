package v1

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/USA-RedDragon/wander-server/internal/config"
	"github.com/USA-RedDragon/wander-server/internal/geo"
	"github.com/USA-RedDragon/wander-server/internal/navigation"
	apimodels "github.com/USA-RedDragon/wander-server/internal/server/apimodels/v1"
	"github.com/USA-RedDragon/wander-server/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb/geojson"
)

func navigationService(c *gin.Context) (*navigation.Service, bool) {
	nav, ok := c.MustGet("navigation").(*navigation.Service)
	if !ok {
		slog.Error("Failed to get navigation service from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return nil, false
	}
	return nav, true
}

func navigationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, navigation.ErrSessionNotFound), errors.Is(err, navigation.ErrNoDestination):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, navigation.ErrOutOfRange):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, navigation.ErrLocationUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, navigation.ErrServiceStopped):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, geo.ErrInvalidRadius):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		slog.Error("Navigation request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
	}
}

func validCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

func POSTSession(c *gin.Context) {
	config, ok := c.MustGet("config").(*config.Config)
	if !ok {
		slog.Error("Failed to get config from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	nav, ok := navigationService(c)
	if !ok {
		return
	}

	snapshot := nav.CreateSession()
	token, err := utils.GenerateSessionJWT(config.JWT.Secret, snapshot.ID, config.JWT.SessionTTL)
	if err != nil {
		slog.Error("Failed to sign session token", "error", err)
		_ = nav.DeleteSession(snapshot.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}

	c.JSON(http.StatusCreated, apimodels.CreateSessionResponse{
		ID:       snapshot.ID,
		Token:    token,
		Snapshot: snapshot,
	})
}

func GETSession(c *gin.Context) {
	nav, ok := navigationService(c)
	if !ok {
		return
	}
	snapshot, err := nav.Snapshot(c.GetString("session_id"))
	if err != nil {
		navigationError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func DELETESession(c *gin.Context) {
	nav, ok := navigationService(c)
	if !ok {
		return
	}
	if err := nav.DeleteSession(c.GetString("session_id")); err != nil {
		navigationError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func PUTRadius(c *gin.Context) {
	nav, ok := navigationService(c)
	if !ok {
		return
	}
	var req apimodels.RadiusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "radius is required"})
		return
	}
	radius, err := geo.ParseRadius(req.Radius)
	if err != nil {
		navigationError(c, err)
		return
	}
	snapshot, err := nav.SetRadius(c.GetString("session_id"), radius)
	if err != nil {
		navigationError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func POSTLocation(c *gin.Context) {
	nav, ok := navigationService(c)
	if !ok {
		return
	}
	var req apimodels.LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude and longitude are required"})
		return
	}
	if !validCoordinates(*req.Latitude, *req.Longitude) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of bounds"})
		return
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}

	update, err := nav.UpdateLocation(c.GetString("session_id"), navigation.Sample{
		Point:     geo.Point{Latitude: *req.Latitude, Longitude: *req.Longitude},
		Timestamp: req.Timestamp,
	})
	if err != nil {
		navigationError(c, err)
		return
	}
	c.JSON(http.StatusOK, update)
}

func POSTLocationDenied(c *gin.Context) {
	nav, ok := navigationService(c)
	if !ok {
		return
	}
	if err := nav.ReportLocationDenied(c.GetString("session_id")); err != nil {
		navigationError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func POSTDestination(c *gin.Context) {
	nav, ok := navigationService(c)
	if !ok {
		return
	}
	var req apimodels.DestinationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude and longitude are required"})
		return
	}
	if !validCoordinates(*req.Latitude, *req.Longitude) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of bounds"})
		return
	}

	snapshot, err := nav.SelectDestination(c.GetString("session_id"), geo.Point{Latitude: *req.Latitude, Longitude: *req.Longitude})
	if err != nil {
		navigationError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// GETRoute renders the current destination and its route as GeoJSON.
func GETRoute(c *gin.Context) {
	nav, ok := navigationService(c)
	if !ok {
		return
	}
	snapshot, err := nav.Snapshot(c.GetString("session_id"))
	if err != nil {
		navigationError(c, err)
		return
	}
	if snapshot.Destination == nil {
		navigationError(c, navigation.ErrNoDestination)
		return
	}
	dest := snapshot.Destination

	fc := geojson.NewFeatureCollection()
	if len(dest.Route) > 1 {
		route := geojson.NewFeature(geo.LineString(dest.Route))
		route.Properties["kind"] = "route"
		route.Properties["destination_id"] = dest.ID
		fc.Append(route)
	}
	point := geojson.NewFeature(dest.Point.Orb())
	point.Properties["kind"] = "destination"
	point.Properties["destination_id"] = dest.ID
	point.Properties["place_status"] = dest.PlaceStatus
	if dest.PlaceKnown() {
		point.Properties["place_name"] = dest.PlaceName
	}
	fc.Append(point)

	c.JSON(http.StatusOK, fc)
}
