package apis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/USA-RedDragon/wander-server/internal/geo"
	"github.com/USA-RedDragon/wander-server/internal/utils"
	"github.com/go-errors/errors"
)

var ErrNoPlaceName = errors.New("no place name in response")

type NominatimReverseResponse struct {
	PlaceID     int64  `json:"place_id"`
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// Nominatim resolves coordinates to a human-readable label.
type Nominatim struct {
	baseURL        string
	userAgent      string
	acceptLanguage string
}

func NewNominatim(baseURL, userAgent, acceptLanguage string) *Nominatim {
	return &Nominatim{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		userAgent:      userAgent,
		acceptLanguage: acceptLanguage,
	}
}

func (n *Nominatim) ReverseGeocode(ctx context.Context, point geo.Point) (string, error) {
	query := url.Values{}
	query.Set("format", "jsonv2")
	query.Set("lat", strconv.FormatFloat(point.Latitude, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(point.Longitude, 'f', -1, 64))

	headers := map[string]string{
		"Accept":     "application/json",
		"User-Agent": n.userAgent,
	}
	if n.acceptLanguage != "" {
		headers["Accept-Language"] = n.acceptLanguage
	}

	resp, err := utils.HTTPRequest(ctx, http.MethodGet, n.baseURL+"/reverse?"+query.Encode(), nil, headers)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	response := NominatimReverseResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if response.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrNoPlaceName, response.Error)
	}
	if response.DisplayName == "" {
		return "", ErrNoPlaceName
	}
	return response.DisplayName, nil
}
