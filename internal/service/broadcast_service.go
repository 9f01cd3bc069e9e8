package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/sma-portal-api/internal/dto"
	"github.com/noah-isme/sma-portal-api/internal/models"
	"github.com/noah-isme/sma-portal-api/internal/observability"
	"github.com/noah-isme/sma-portal-api/internal/store"
)

// ErrBroadcastNotFound indicates no live descriptor exists for the teacher.
var ErrBroadcastNotFound = errors.New("broadcast not found")

// BroadcastService maintains the shared live-class descriptor list. This is
// a polling heartbeat protocol: producers rewrite their own descriptor on a
// fixed interval and consumers poll the list endpoint; nothing here pushes.
// Displayed liveness and viewer counts may lag by up to one poll interval.
type BroadcastService interface {
	// Start writes the teacher's descriptor, replacing any prior entry they
	// own. At most one broadcast per teacher exists at a time.
	Start(ctx context.Context, teacher models.ViewerContext, payload dto.BroadcastStartRequest) (dto.BroadcastResponse, error)
	// Heartbeat refreshes the mutable media flags and last-update stamp.
	// A heartbeat for an ended broadcast is a no-op; it never resurrects
	// the descriptor.
	Heartbeat(ctx context.Context, teacherEmail string, payload dto.BroadcastHeartbeatRequest)
	// End removes the descriptor entirely. Removal is the terminal state.
	End(ctx context.Context, teacherEmail string) error
	Join(ctx context.Context, teacherEmail string, viewer models.ViewerContext) error
	Leave(ctx context.Context, teacherEmail string, viewer models.ViewerContext) error
	// ListForViewer returns the live descriptors a student may watch.
	ListForViewer(ctx context.Context, viewer models.ViewerContext) []dto.BroadcastResponse
	// ListActive returns every non-stale descriptor, for staff dashboards.
	ListActive(ctx context.Context) []dto.BroadcastResponse
}

// BroadcastServiceOptions configures the broadcast service.
type BroadcastServiceOptions struct {
	Store store.Store
	// Key is the shared-store key the descriptor list lives under.
	Key string
	// StaleCutoff is how old a heartbeat may be before the descriptor is
	// treated as offline when listed.
	StaleCutoff time.Duration
	Validator   *validator.Validate
	Activity    ActivityRecorder
	Logger      zerolog.Logger
	Now         func() time.Time
}

type broadcastService struct {
	store       store.Store
	key         string
	staleCutoff time.Duration
	validator   *validator.Validate
	activity    ActivityRecorder
	logger      zerolog.Logger
	now         func() time.Time
}

// NewBroadcastService constructs the live-class broadcast service.
func NewBroadcastService(opts BroadcastServiceOptions) BroadcastService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &broadcastService{
		store:       opts.Store,
		key:         opts.Key,
		staleCutoff: opts.StaleCutoff,
		validator:   opts.Validator,
		activity:    opts.Activity,
		logger:      opts.Logger.With().Str("component", "broadcast_service").Logger(),
		now:         now,
	}
}

func (s *broadcastService) Start(ctx context.Context, teacher models.ViewerContext, payload dto.BroadcastStartRequest) (dto.BroadcastResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.BroadcastResponse{}, err
	}

	if teacher.Email == "" {
		return dto.BroadcastResponse{}, errors.New("teacher email is required")
	}

	now := s.now().UTC()
	descriptor := models.BroadcastDescriptor{
		TeacherEmail:  teacher.Email,
		TeacherName:   teacher.DisplayName,
		Class:         payload.Class,
		Section:       payload.Section,
		Title:         payload.Title,
		CameraOn:      payload.CameraOn,
		MicOn:         payload.MicOn,
		ScreenShareOn: payload.ScreenShareOn,
		Viewers:       []string{},
		StartedAt:     now,
		LastUpdate:    now,
	}

	descriptors := s.load(ctx)
	replaced := withoutTeacher(descriptors, teacher.Email)
	replaced = append(replaced, descriptor)
	s.write(ctx, replaced)

	if s.activity != nil {
		s.activity.Record(ctx, models.ActivityLog{
			ActorEmail: teacher.Email,
			ActorRole:  teacher.Role,
			Action:     "broadcast_started",
			EntityType: "broadcast",
			EntityID:   teacher.Email,
		})
	}

	return dto.NewBroadcastResponse(descriptor), nil
}

func (s *broadcastService) Heartbeat(ctx context.Context, teacherEmail string, payload dto.BroadcastHeartbeatRequest) {
	descriptors := s.load(ctx)

	for i := range descriptors {
		if descriptors[i].TeacherEmail != teacherEmail {
			continue
		}

		descriptors[i].CameraOn = payload.CameraOn
		descriptors[i].MicOn = payload.MicOn
		descriptors[i].ScreenShareOn = payload.ScreenShareOn
		descriptors[i].LastUpdate = s.now().UTC()

		s.write(ctx, descriptors)
		observability.BroadcastHeartbeats().Inc()
		return
	}

	s.logger.Debug().Str("teacher_email", teacherEmail).Msg("heartbeat for ended broadcast ignored")
}

func (s *broadcastService) End(ctx context.Context, teacherEmail string) error {
	descriptors := s.load(ctx)
	kept := withoutTeacher(descriptors, teacherEmail)

	if len(kept) == len(descriptors) {
		return ErrBroadcastNotFound
	}

	s.write(ctx, kept)

	if s.activity != nil {
		s.activity.Record(ctx, models.ActivityLog{
			ActorEmail: teacherEmail,
			ActorRole:  models.RoleTeacher,
			Action:     "broadcast_ended",
			EntityType: "broadcast",
			EntityID:   teacherEmail,
		})
	}

	return nil
}

func (s *broadcastService) Join(ctx context.Context, teacherEmail string, viewer models.ViewerContext) error {
	return s.updateViewers(ctx, teacherEmail, func(viewers []string) []string {
		for _, existing := range viewers {
			if existing == viewer.Email {
				return viewers
			}
		}
		return append(viewers, viewer.Email)
	})
}

func (s *broadcastService) Leave(ctx context.Context, teacherEmail string, viewer models.ViewerContext) error {
	return s.updateViewers(ctx, teacherEmail, func(viewers []string) []string {
		kept := viewers[:0]
		for _, existing := range viewers {
			if existing != viewer.Email {
				kept = append(kept, existing)
			}
		}
		return kept
	})
}

func (s *broadcastService) ListForViewer(ctx context.Context, viewer models.ViewerContext) []dto.BroadcastResponse {
	now := s.now()

	visible := make([]models.BroadcastDescriptor, 0)
	for _, descriptor := range s.load(ctx) {
		if descriptor.Stale(now, s.staleCutoff) {
			continue
		}
		if descriptor.VisibleTo(viewer) {
			visible = append(visible, descriptor)
		}
	}

	return dto.NewBroadcastResponseSlice(visible)
}

func (s *broadcastService) ListActive(ctx context.Context) []dto.BroadcastResponse {
	now := s.now()

	active := make([]models.BroadcastDescriptor, 0)
	for _, descriptor := range s.load(ctx) {
		if !descriptor.Stale(now, s.staleCutoff) {
			active = append(active, descriptor)
		}
	}

	return dto.NewBroadcastResponseSlice(active)
}

func (s *broadcastService) updateViewers(ctx context.Context, teacherEmail string, mutate func([]string) []string) error {
	descriptors := s.load(ctx)

	for i := range descriptors {
		if descriptors[i].TeacherEmail != teacherEmail {
			continue
		}

		descriptors[i].Viewers = mutate(descriptors[i].Viewers)
		s.write(ctx, descriptors)
		return nil
	}

	return ErrBroadcastNotFound
}

func (s *broadcastService) load(ctx context.Context) []models.BroadcastDescriptor {
	raw, err := s.store.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn().Err(err).Str("key", s.key).Msg("failed to load broadcast list")
		}
		return nil
	}

	var descriptors []models.BroadcastDescriptor
	if err := json.Unmarshal(raw, &descriptors); err != nil {
		s.logger.Warn().Err(err).Str("key", s.key).Msg("broadcast blob is not valid JSON")
		return nil
	}

	return descriptors
}

func (s *broadcastService) write(ctx context.Context, descriptors []models.BroadcastDescriptor) {
	payload, err := json.Marshal(descriptors)
	if err != nil {
		s.logger.Error().Err(err).Str("key", s.key).Msg("failed to marshal broadcast list")
		return
	}

	if err := s.store.Set(ctx, s.key, payload); err != nil {
		s.logger.Warn().Err(err).Str("key", s.key).Msg("failed to write broadcast list")
	}

	observability.BroadcastsActive().Set(float64(len(descriptors)))
}

func withoutTeacher(descriptors []models.BroadcastDescriptor, teacherEmail string) []models.BroadcastDescriptor {
	kept := make([]models.BroadcastDescriptor, 0, len(descriptors))
	for _, descriptor := range descriptors {
		if descriptor.TeacherEmail != teacherEmail {
			kept = append(kept, descriptor)
		}
	}
	return kept
}
