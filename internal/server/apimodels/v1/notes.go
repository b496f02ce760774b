package v1

import (
	"time"

	"github.com/USA-RedDragon/wander-server/internal/geo"
)

type NoteRequest struct {
	Name         string     `json:"name"`
	LocationName string     `json:"location_name"`
	Date         time.Time  `json:"date"`
	Note         string     `json:"note"`
	Location     *geo.Point `json:"location"`
}

type NoteResponse struct {
	DateKey      string     `json:"date_key"`
	Name         string     `json:"name"`
	LocationName string     `json:"location_name"`
	Date         time.Time  `json:"date"`
	Note         string     `json:"note"`
	Location     *geo.Point `json:"location,omitempty"`
}

type ExportResponse struct {
	DateKey string `json:"date_key"`
	Object  string `json:"object"`
}
