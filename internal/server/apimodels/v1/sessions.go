package v1

import (
	"time"

	"github.com/USA-RedDragon/wander-server/internal/navigation"
)

type CreateSessionResponse struct {
	ID       string              `json:"id"`
	Token    string              `json:"token"`
	Snapshot navigation.Snapshot `json:"snapshot"`
}

type RadiusRequest struct {
	Radius string `json:"radius" binding:"required"`
}

type LocationRequest struct {
	Latitude  *float64  `json:"latitude" binding:"required"`
	Longitude *float64  `json:"longitude" binding:"required"`
	Timestamp time.Time `json:"timestamp"`
}

type DestinationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}
