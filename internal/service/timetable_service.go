package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/sma-portal-api/internal/dto"
	"github.com/noah-isme/sma-portal-api/internal/models"
	"github.com/noah-isme/sma-portal-api/internal/store"
)

// ErrTimetableNotFound indicates no timetable has been stored for the class.
var ErrTimetableNotFound = errors.New("timetable not found")

// TimetableService stores one timetable object per class in the shared
// store. Unlike message collections the value is a single object, not an
// array, and there is no per-viewer filtering.
type TimetableService interface {
	Get(ctx context.Context, class string) (dto.TimetableResponse, error)
	Put(ctx context.Context, actor models.ViewerContext, class string, payload dto.TimetablePutRequest) (dto.TimetableResponse, error)
}

type timetableService struct {
	store     store.Store
	keyPrefix string
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewTimetableService constructs the timetable service. keyPrefix is the
// namespaced prefix, e.g. "portal:timetable".
func NewTimetableService(sharedStore store.Store, keyPrefix string, validate *validator.Validate, logger zerolog.Logger) TimetableService {
	return &timetableService{
		store:     sharedStore,
		keyPrefix: keyPrefix,
		validator: validate,
		logger:    logger.With().Str("component", "timetable_service").Logger(),
		now:       time.Now,
	}
}

func (s *timetableService) Get(ctx context.Context, class string) (dto.TimetableResponse, error) {
	raw, err := s.store.Get(ctx, s.key(class))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return dto.TimetableResponse{}, ErrTimetableNotFound
		}
		s.logger.Warn().Err(err).Str("class", class).Msg("failed to load timetable")
		return dto.TimetableResponse{}, ErrTimetableNotFound
	}

	var timetable dto.TimetableResponse
	if err := json.Unmarshal(raw, &timetable); err != nil {
		s.logger.Warn().Err(err).Str("class", class).Msg("timetable blob is not valid JSON")
		return dto.TimetableResponse{}, ErrTimetableNotFound
	}

	return timetable, nil
}

func (s *timetableService) Put(ctx context.Context, actor models.ViewerContext, class string, payload dto.TimetablePutRequest) (dto.TimetableResponse, error) {
	if class == "" {
		return dto.TimetableResponse{}, errors.New("class is required")
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.TimetableResponse{}, err
	}

	timetable := dto.TimetableResponse{
		Class:     class,
		Entries:   payload.Entries,
		UpdatedBy: actor.Email,
		UpdatedAt: s.now().UTC(),
	}

	raw, err := json.Marshal(timetable)
	if err != nil {
		return dto.TimetableResponse{}, fmt.Errorf("failed to marshal timetable: %w", err)
	}

	if err := s.store.Set(ctx, s.key(class), raw); err != nil {
		s.logger.Warn().Err(err).Str("class", class).Msg("failed to write timetable")
		return dto.TimetableResponse{}, fmt.Errorf("failed to store timetable: %w", err)
	}

	return timetable, nil
}

func (s *timetableService) key(class string) string {
	return fmt.Sprintf("%s:%s", s.keyPrefix, class)
}
