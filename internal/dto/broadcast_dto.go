package dto

import (
	"time"

	"github.com/noah-isme/sma-portal-api/internal/models"
)

// BroadcastStartRequest announces a live class session for the caller's
// teacher identity, replacing any prior descriptor they own.
type BroadcastStartRequest struct {
	Class         string `json:"class" validate:"required,max=32"`
	Section       string `json:"section" validate:"omitempty,max=32"`
	Title         string `json:"title" validate:"omitempty,max=255"`
	CameraOn      bool   `json:"camera_on"`
	MicOn         bool   `json:"mic_on"`
	ScreenShareOn bool   `json:"screen_share_on"`
}

// BroadcastHeartbeatRequest refreshes the mutable media flags of the
// caller's active descriptor.
type BroadcastHeartbeatRequest struct {
	CameraOn      bool `json:"camera_on"`
	MicOn         bool `json:"mic_on"`
	ScreenShareOn bool `json:"screen_share_on"`
}

// BroadcastResponse is the serialized descriptor plus derived view fields.
type BroadcastResponse struct {
	TeacherEmail  string    `json:"teacher_email"`
	TeacherName   string    `json:"teacher_name,omitempty"`
	Class         string    `json:"class"`
	Section       string    `json:"section,omitempty"`
	Title         string    `json:"title,omitempty"`
	CameraOn      bool      `json:"camera_on"`
	MicOn         bool      `json:"mic_on"`
	ScreenShareOn bool      `json:"screen_share_on"`
	ViewerCount   int       `json:"viewer_count"`
	StartedAt     time.Time `json:"started_at"`
	LastUpdate    time.Time `json:"last_update"`
}

// NewBroadcastResponse converts a descriptor into a DTO.
func NewBroadcastResponse(descriptor models.BroadcastDescriptor) BroadcastResponse {
	return BroadcastResponse{
		TeacherEmail:  descriptor.TeacherEmail,
		TeacherName:   descriptor.TeacherName,
		Class:         descriptor.Class,
		Section:       descriptor.Section,
		Title:         descriptor.Title,
		CameraOn:      descriptor.CameraOn,
		MicOn:         descriptor.MicOn,
		ScreenShareOn: descriptor.ScreenShareOn,
		ViewerCount:   len(descriptor.Viewers),
		StartedAt:     descriptor.StartedAt,
		LastUpdate:    descriptor.LastUpdate,
	}
}

// NewBroadcastResponseSlice converts descriptors into DTOs.
func NewBroadcastResponseSlice(descriptors []models.BroadcastDescriptor) []BroadcastResponse {
	out := make([]BroadcastResponse, 0, len(descriptors))
	for _, descriptor := range descriptors {
		out = append(out, NewBroadcastResponse(descriptor))
	}
	return out
}
