package dto

import (
	"time"

	"github.com/noah-isme/sma-portal-api/internal/models"
)

// MessageCreateRequest is the payload producers submit to publish into a
// collection. Which qualifier fields are required depends on recipient_type;
// the service enforces that after struct validation.
type MessageCreateRequest struct {
	Subject          string `json:"subject" validate:"required,min=1,max=255"`
	Body             string `json:"body" validate:"required,min=1,max=8000"`
	RecipientType    string `json:"recipient_type" validate:"required,oneof=whole_school all_teachers all_students class section individual_teacher individual_student"`
	RecipientClass   string `json:"recipient_class" validate:"omitempty,max=32"`
	RecipientSection string `json:"recipient_section" validate:"omitempty,max=32"`
	RecipientID      string `json:"recipient_id" validate:"omitempty,max=255"`
	RecipientName    string `json:"recipient_name" validate:"omitempty,max=255"`
	// Draft applies only to collections with a publish workflow; it is
	// ignored elsewhere.
	Draft bool `json:"draft"`
	// AudioURL is set by the audio upload path, never bound from clients.
	AudioURL string `json:"-"`
}

// MessageResponse is the serialized representation of a message record as
// seen by one viewer.
type MessageResponse struct {
	ID               string    `json:"id"`
	SenderID         string    `json:"sender_id"`
	SenderName       string    `json:"sender_name,omitempty"`
	SenderType       string    `json:"sender_type"`
	Subject          string    `json:"subject"`
	Body             string    `json:"body"`
	AudioURL         string    `json:"audio_url,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	RecipientType    string    `json:"recipient_type"`
	RecipientClass   string    `json:"recipient_class,omitempty"`
	RecipientSection string    `json:"recipient_section,omitempty"`
	RecipientID      string    `json:"recipient_id,omitempty"`
	RecipientName    string    `json:"recipient_name,omitempty"`
	Status           string    `json:"status"`
	Published        *bool     `json:"published,omitempty"`
}

// NewMessageResponse converts a model into a DTO.
func NewMessageResponse(message models.Message) MessageResponse {
	return MessageResponse{
		ID:               message.ID,
		SenderID:         message.SenderID,
		SenderName:       message.SenderName,
		SenderType:       message.SenderType,
		Subject:          message.Subject,
		Body:             message.Body,
		AudioURL:         message.AudioURL,
		CreatedAt:        message.CreatedAt,
		RecipientType:    string(message.RecipientType),
		RecipientClass:   message.RecipientClass,
		RecipientSection: message.RecipientSection,
		RecipientID:      message.RecipientID,
		RecipientName:    message.RecipientName,
		Status:           message.Status,
		Published:        message.Published,
	}
}

// NewMessageResponseSlice converts a slice of models into DTOs.
func NewMessageResponseSlice(messages []models.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, NewMessageResponse(message))
	}
	return out
}
