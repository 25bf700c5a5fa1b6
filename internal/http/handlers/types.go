// Package handlers provides typed Huma request/response structs and handler
// implementations for the sp108ed HTTP API.
package handlers

import (
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/sp108ed/internal/errors"
	"github.com/jmylchreest/sp108ed/internal/strip"
	"github.com/jmylchreest/sp108ed/pkg/sp108e"
)

// --- Strip types ---

// StripResponse is the API representation of the controller and its last
// known status.
type StripResponse struct {
	Addr       string               `json:"addr" doc:"Controller address (host:port)"`
	Connection string               `json:"connection" doc:"Socket state: disconnected, connecting or connected"`
	LastSeen   *time.Time           `json:"last_seen,omitempty" doc:"Last successful exchange with the controller"`
	FetchedAt  *time.Time           `json:"fetched_at,omitempty" doc:"When the status below was read"`
	Status     *sp108e.DeviceStatus `json:"status,omitempty" doc:"Decoded status payload"`
}

// StripFromSnapshot converts a strip.Snapshot to a StripResponse.
func StripFromSnapshot(s strip.Snapshot) StripResponse {
	resp := StripResponse{
		Addr:       s.Addr,
		Connection: s.Connection,
		Status:     s.Status,
	}
	if !s.LastSeen.IsZero() {
		t := s.LastSeen
		resp.LastSeen = &t
	}
	if !s.FetchedAt.IsZero() {
		t := s.FetchedAt
		resp.FetchedAt = &t
	}
	return resp
}

// OptionsResponse lists the names accepted by the state and config endpoints.
type OptionsResponse struct {
	ChipTypes      []string `json:"chip_types" doc:"Chip type names in controller index order"`
	ColorOrders    []string `json:"color_orders" doc:"Colour order names in controller index order"`
	AnimationModes []string `json:"animation_modes" doc:"Built-in animation names"`
	MaxPresetMode  int      `json:"max_preset_mode" doc:"Highest preset pattern number"`
}

// --- Common response types ---

// StatusResponse is a simple status response.
type StatusResponse struct {
	Status string `json:"status" doc:"Operation status"`
}

// toHumaError maps error kinds onto HTTP status codes.
func toHumaError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.IsInvalidInput(err):
		return huma.Error400BadRequest(err.Error())
	case errors.IsDeviceUnavailable(err), errors.IsTransient(err), errors.Is(err, errors.ErrClosed):
		return huma.Error503ServiceUnavailable(err.Error())
	case errors.IsDecode(err):
		return huma.Error502BadGateway(err.Error())
	default:
		return huma.Error500InternalServerError(err.Error())
	}
}
