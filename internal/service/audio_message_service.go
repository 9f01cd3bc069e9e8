package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/noah-isme/sma-portal-api/internal/dto"
	"github.com/noah-isme/sma-portal-api/internal/models"
)

// maxAudioSize caps uploaded voice messages at 15 MiB.
const maxAudioSize = 15 << 20

// ErrUnsupportedAudio indicates the uploaded file is not an audio resource.
var ErrUnsupportedAudio = errors.New("uploaded file is not audio")

// FileUploader stores an uploaded asset and returns its public URL.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// AudioMessageService publishes voice messages: the audio asset is uploaded
// first, then a regular message record carrying its URL is appended to the
// audio collection.
type AudioMessageService interface {
	Create(ctx context.Context, sender models.ViewerContext, payload dto.MessageCreateRequest, filename string, audio io.Reader) (dto.MessageResponse, error)
}

type audioMessageService struct {
	messages MessageService
	uploader FileUploader
	logger   zerolog.Logger
}

// NewAudioMessageService constructs the audio message service.
func NewAudioMessageService(messages MessageService, uploader FileUploader, logger zerolog.Logger) AudioMessageService {
	return &audioMessageService{
		messages: messages,
		uploader: uploader,
		logger:   logger.With().Str("component", "audio_message_service").Logger(),
	}
}

func (s *audioMessageService) Create(ctx context.Context, sender models.ViewerContext, payload dto.MessageCreateRequest, filename string, audio io.Reader) (dto.MessageResponse, error) {
	data, err := io.ReadAll(io.LimitReader(audio, maxAudioSize+1))
	if err != nil {
		return dto.MessageResponse{}, fmt.Errorf("failed to read audio upload: %w", err)
	}

	if len(data) == 0 {
		return dto.MessageResponse{}, errors.New("audio upload is empty")
	}

	if len(data) > maxAudioSize {
		return dto.MessageResponse{}, fmt.Errorf("audio upload exceeds %d bytes", maxAudioSize)
	}

	detected := mimetype.Detect(data)
	if !isAudioMIME(detected.String()) {
		return dto.MessageResponse{}, fmt.Errorf("%w: detected %s", ErrUnsupportedAudio, detected.String())
	}

	url, err := s.uploader.Upload(ctx, filename, bytes.NewReader(data))
	if err != nil {
		return dto.MessageResponse{}, fmt.Errorf("failed to upload audio: %w", err)
	}

	s.logger.Info().Str("filename", filename).Str("mime", detected.String()).Msg("audio asset uploaded")

	payload.AudioURL = url
	return s.messages.Create(ctx, sender, payload)
}

func isAudioMIME(mime string) bool {
	if strings.HasPrefix(mime, "audio/") {
		return true
	}
	// Ogg and WebM voice notes detect as application/video containers.
	switch mime {
	case "application/ogg", "video/webm":
		return true
	}
	return false
}
