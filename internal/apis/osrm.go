package apis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/USA-RedDragon/wander-server/internal/geo"
	"github.com/USA-RedDragon/wander-server/internal/utils"
	"github.com/go-errors/errors"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected status code")
	ErrNoRoute          = errors.New("no route found")
	ErrMalformed        = errors.New("malformed response")
)

type OSRMResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry *geojson.Geometry `json:"geometry"`
	} `json:"routes"`
}

// OSRM fetches driving routes from an OSRM-compatible HTTP API.
type OSRM struct {
	baseURL string
	profile string
}

func NewOSRM(baseURL, profile string) *OSRM {
	if profile == "" {
		profile = "driving"
	}
	return &OSRM{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		profile: profile,
	}
}

func (o *OSRM) Route(ctx context.Context, from, to geo.Point) ([]geo.Point, error) {
	url := fmt.Sprintf("%s/route/v1/%s/%f,%f;%f,%f?overview=full&geometries=geojson",
		o.baseURL, o.profile, from.Longitude, from.Latitude, to.Longitude, to.Latitude)

	resp, err := utils.HTTPRequest(ctx, http.MethodGet, url, nil, map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	response := OSRMResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if len(response.Routes) == 0 {
		return nil, ErrNoRoute
	}

	geometry := response.Routes[0].Geometry
	if geometry == nil {
		return nil, fmt.Errorf("%w: route has no geometry", ErrMalformed)
	}
	line, ok := geometry.Geometry().(orb.LineString)
	if !ok {
		return nil, fmt.Errorf("%w: expected a LineString, got %s", ErrMalformed, geometry.Type)
	}
	route := make([]geo.Point, 0, len(line))
	for _, p := range line {
		route = append(route, geo.FromOrb(p))
	}
	return route, nil
}
