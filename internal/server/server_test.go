package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/USA-RedDragon/wander-server/internal/config"
	"github.com/USA-RedDragon/wander-server/internal/db"
	"github.com/USA-RedDragon/wander-server/internal/events"
	"github.com/USA-RedDragon/wander-server/internal/geo"
	"github.com/USA-RedDragon/wander-server/internal/metrics"
	"github.com/USA-RedDragon/wander-server/internal/navigation"
	"github.com/USA-RedDragon/wander-server/internal/notes"
	apimodels "github.com/USA-RedDragon/wander-server/internal/server/apimodels/v1"
	"github.com/USA-RedDragon/wander-server/internal/storage"
	"github.com/USA-RedDragon/wander-server/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

type stubRouter struct{}

func (stubRouter) Route(_ context.Context, from, to geo.Point) ([]geo.Point, error) {
	return []geo.Point{from, to}, nil
}

type stubGeocoder struct{}

func (stubGeocoder) ReverseGeocode(_ context.Context, _ geo.Point) (string, error) {
	return "Town Square", nil
}

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testEnv struct {
	router *gin.Engine
	config *config.Config
	nav    *navigation.Service
	bus    *events.EventBus
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		JWT: config.JWT{Secret: "test-secret", SessionTTL: time.Hour},
		Persistence: config.Persistence{
			Database: config.Database{
				Driver:   config.DatabaseDriverSQLite,
				Database: filepath.Join(dir, "wander.db"),
			},
			Exports: config.Exports{
				Driver:            config.ExportsDriverFilesystem,
				Compression:       config.CompressionNone,
				FilesystemOptions: config.FilesystemOptions{Directory: filepath.Join(dir, "exports")},
			},
		},
	}

	database, err := db.MakeDB(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	exports, err := storage.NewStorage(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = exports.Close() })

	m := metrics.NewMetrics(prometheus.NewRegistry())
	bus := events.NewEventBus(nil, "wander")
	nav := navigation.NewService(stubRouter{}, stubGeocoder{}, bus, m, navigation.Options{
		DefaultRadius: geo.Radius1km,
		LookupTimeout: time.Second,
	})
	t.Cleanup(nav.Stop)
	now := func() time.Time { return time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC) }
	store := notes.NewStore(database, exports, config.CompressionNone, time.UTC, m, notes.WithClock(now))

	r := newRouter(cfg, Dependencies{
		Navigation: nav,
		Notes:      store,
		EventBus:   bus,
		Metrics:    m,
	})
	return testEnv{router: r, config: cfg, nav: nav, bus: bus}
}

func doRequest(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "JWT "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, r http.Handler) apimodels.CreateSessionResponse {
	t.Helper()
	w := doRequest(r, http.MethodPost, "/v1/sessions", "", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d %s", w.Code, w.Body.String())
	}
	var resp apimodels.CreateSessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	t.Parallel()
	r := newTestEnv(t).router
	w := doRequest(r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Errorf("unexpected response: %d %s", w.Code, w.Body.String())
	}
	w = doRequest(r, http.MethodGet, "/nope", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unexpected status: %d", w.Code)
	}
}

func TestSessionAuth(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	r, cfg := env.router, env.config
	a := createSession(t, r)
	b := createSession(t, r)

	if a.Snapshot.Radius != geo.Radius1km {
		t.Errorf("unexpected default radius: %s", a.Snapshot.Radius)
	}

	w := doRequest(r, http.MethodGet, "/v1/sessions/"+a.ID, "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	w = doRequest(r, http.MethodGet, "/v1/sessions/"+a.ID, b.Token, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
	w = doRequest(r, http.MethodGet, "/v1/sessions/"+a.ID, a.Token, nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+a.ID+"?access_token="+a.Token, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected query token to be accepted, got %d", rec.Code)
	}

	forged, err := utils.GenerateSessionJWT("other-secret", a.ID, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w = doRequest(r, http.MethodGet, "/v1/sessions/"+a.ID, forged, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for a foreign signature, got %d", w.Code)
	}

	ghost, err := utils.GenerateSessionJWT(cfg.JWT.Secret, "ghost", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w = doRequest(r, http.MethodGet, "/v1/sessions/ghost", ghost, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestDestinationFlow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	r, nav := env.router, env.nav
	s := createSession(t, r)
	base := "/v1/sessions/" + s.ID

	w := doRequest(r, http.MethodPost, base+"/destination", s.Token, gin.H{"latitude": 0.001, "longitude": 0})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 without a location, got %d", w.Code)
	}

	w = doRequest(r, http.MethodPost, base+"/location", s.Token, gin.H{"latitude": 0, "longitude": 0})
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d %s", w.Code, w.Body.String())
	}

	w = doRequest(r, http.MethodPost, base+"/destination", s.Token, gin.H{"latitude": 1, "longitude": 1})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 out of range, got %d", w.Code)
	}

	w = doRequest(r, http.MethodPost, base+"/destination", s.Token, gin.H{"latitude": 0.001, "longitude": 0})
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d %s", w.Code, w.Body.String())
	}
	nav.Wait()

	w = doRequest(r, http.MethodGet, base, s.Token, nil)
	var snapshot navigation.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot.Destination == nil || snapshot.Destination.PlaceName != "Town Square" {
		t.Fatalf("unexpected destination: %+v", snapshot.Destination)
	}
	if len(snapshot.Destination.Route) != 2 {
		t.Errorf("unexpected route: %v", snapshot.Destination.Route)
	}

	w = doRequest(r, http.MethodGet, base+"/route", s.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
		} `json:"features"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &fc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 2 {
		t.Fatalf("unexpected GeoJSON: %s", w.Body.String())
	}
	if fc.Features[0].Geometry.Type != "LineString" || fc.Features[1].Geometry.Type != "Point" {
		t.Errorf("unexpected geometries: %s", w.Body.String())
	}

	w = doRequest(r, http.MethodPost, base+"/location", s.Token, gin.H{"latitude": 0.001, "longitude": 0})
	var update navigation.Update
	if err := json.Unmarshal(w.Body.Bytes(), &update); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if update.Transition != navigation.TransitionArrived {
		t.Errorf("expected arrival, got %+v", update)
	}
}

func TestRadiusAndValidation(t *testing.T) {
	t.Parallel()
	r := newTestEnv(t).router
	s := createSession(t, r)
	base := "/v1/sessions/" + s.ID

	w := doRequest(r, http.MethodPut, base+"/radius", s.Token, gin.H{"radius": "5km"})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"radius":"5km"`) {
		t.Errorf("unexpected response: %d %s", w.Code, w.Body.String())
	}
	w = doRequest(r, http.MethodPut, base+"/radius", s.Token, gin.H{"radius": "2km"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	w = doRequest(r, http.MethodPost, base+"/location", s.Token, gin.H{"latitude": 91, "longitude": 0})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	w = doRequest(r, http.MethodPost, base+"/location", s.Token, gin.H{"longitude": 0})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	w = doRequest(r, http.MethodGet, base+"/route", s.Token, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 without a destination, got %d", w.Code)
	}
	w = doRequest(r, http.MethodPost, base+"/location/denied", s.Token, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
	w = doRequest(r, http.MethodDelete, base, s.Token, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
	w = doRequest(r, http.MethodGet, base, s.Token, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}
}

func TestNotes(t *testing.T) {
	t.Parallel()
	r := newTestEnv(t).router
	s := createSession(t, r)

	w := doRequest(r, http.MethodGet, "/v1/notes/2024-6-1", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	w = doRequest(r, http.MethodGet, "/v1/notes/2024-6-1", s.Token, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	w = doRequest(r, http.MethodPut, "/v1/notes/2024-6-16", s.Token, gin.H{"note": "tomorrow"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a future date, got %d", w.Code)
	}
	w = doRequest(r, http.MethodPut, "/v1/notes/not-a-date", s.Token, gin.H{"note": "x"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad date, got %d", w.Code)
	}

	w = doRequest(r, http.MethodPut, "/v1/notes/2024-06-01", s.Token, gin.H{
		"name":          "Picnic",
		"location_name": "Town Square",
		"note":          "sunny",
		"location":      gin.H{"latitude": 1.5, "longitude": 2.5},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d %s", w.Code, w.Body.String())
	}

	w = doRequest(r, http.MethodGet, "/v1/notes/2024-6-1", s.Token, nil)
	var note apimodels.NoteResponse
	if err := json.Unmarshal(w.Body.Bytes(), &note); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if note.DateKey != "2024-6-1" || note.Note != "sunny" || note.Location == nil || note.Location.Latitude != 1.5 {
		t.Errorf("unexpected note: %+v", note)
	}

	w = doRequest(r, http.MethodGet, "/v1/notes/2024-6-1/export", s.Token, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 before exporting, got %d", w.Code)
	}
	w = doRequest(r, http.MethodPost, "/v1/notes/2024-6-1/export", s.Token, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "notes/2024-6-1.txt") {
		t.Errorf("unexpected export response: %d %s", w.Code, w.Body.String())
	}
	w = doRequest(r, http.MethodGet, "/v1/notes/2024-06-01/export", s.Token, nil)
	if w.Code != http.StatusOK || w.Body.String() != "sunny" {
		t.Errorf("unexpected export download: %d %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "2024-6-1.txt") {
		t.Errorf("unexpected content disposition: %s", w.Header().Get("Content-Disposition"))
	}
	w = doRequest(r, http.MethodPost, "/v1/notes/2024-6-2/export", s.Token, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestNoticeWebsocket(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	r, nav := env.router, env.nav
	srv := httptest.NewServer(r)
	defer srv.Close()
	s := createSession(t, r)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/v1/sessions/" + s.ID + "?access_token=" + s.Token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for env.bus.SubscriberCount(s.ID) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if err := nav.ReportLocationDenied(s.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var event events.Event
	if err := json.Unmarshal(msg, &event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Type != events.EventTypePermissionDenied || event.SessionID != s.ID {
		t.Errorf("unexpected event: %+v", event)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, msg, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(msg) != "PONG" {
		t.Errorf("unexpected reply: %s", msg)
	}

	if err := nav.DeleteSession(s.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("expected a normal close, got %v", err)
	}
}
