package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/noah-isme/sma-portal-api/internal/dto"
	"github.com/noah-isme/sma-portal-api/internal/models"
	"github.com/noah-isme/sma-portal-api/internal/observability"
	"github.com/noah-isme/sma-portal-api/internal/store"
)

const syncBufferSize = 16

// Service-level sentinel errors surfaced to handlers.
var (
	ErrMessageNotFound     = errors.New("message not found")
	ErrRecipientNotAllowed = errors.New("sender may not use this recipient type")
	ErrPublishUnsupported  = errors.New("collection has no publish workflow")
)

// MessageService maintains one shared message collection and mediates every
// read and write against it. Reads produce a per-viewer filtered, sorted
// view; writes are whole-collection read-modify-write, last writer wins.
type MessageService interface {
	// List returns the viewer's current view of the collection, newest
	// first. Store or decode failures degrade to an empty view.
	List(ctx context.Context, viewer models.ViewerContext) []dto.MessageResponse
	// Subscribe delivers a fresh filtered snapshot after every observed
	// change to the collection. The cleanup function must be called when the
	// consumer goes away; it closes the channel.
	Subscribe(ctx context.Context, viewer models.ViewerContext) (<-chan []dto.MessageResponse, func(), error)
	Create(ctx context.Context, sender models.ViewerContext, payload dto.MessageCreateRequest) (dto.MessageResponse, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, viewer models.ViewerContext) error
	PublishToggle(ctx context.Context, actor models.ViewerContext, id string) (dto.MessageResponse, error)
	Delete(ctx context.Context, actor models.ViewerContext, id string) error
}

// MessageServiceOptions configures a collection-bound service instance.
type MessageServiceOptions struct {
	Store store.Store
	// Key is the shared-store key the collection lives under.
	Key string
	// Collection is the short name used in logs, metrics and audit entries.
	Collection string
	// UsesPublished enables the draft/publish workflow (announcements).
	UsesPublished bool
	Validator     *validator.Validate
	Activity      ActivityRecorder
	Logger        zerolog.Logger
	Now           func() time.Time
}

type messageService struct {
	store         store.Store
	key           string
	collection    string
	usesPublished bool
	validator     *validator.Validate
	activity      ActivityRecorder
	logger        zerolog.Logger
	tracer        trace.Tracer
	sanitizer     *bluemonday.Policy
	now           func() time.Time
}

// messageSubscription guards the update channel so a late store callback can
// never send on a closed channel.
type messageSubscription struct {
	mu      sync.Mutex
	closed  bool
	updates chan []dto.MessageResponse
}

func (s *messageSubscription) push(view []dto.MessageResponse, logger zerolog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	select {
	case s.updates <- view:
	default:
		logger.Debug().Msg("dropping sync snapshot for slow consumer")
	}
}

func (s *messageSubscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.updates)
	}
}

// NewMessageService constructs a sync service for one collection key.
func NewMessageService(opts MessageServiceOptions) MessageService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &messageService{
		store:         opts.Store,
		key:           opts.Key,
		collection:    opts.Collection,
		usesPublished: opts.UsesPublished,
		validator:     opts.Validator,
		activity:      opts.Activity,
		logger:        opts.Logger.With().Str("component", "message_service").Str("collection", opts.Collection).Logger(),
		tracer:        otel.Tracer("github.com/noah-isme/sma-portal-api/internal/service/message"),
		sanitizer:     bluemonday.StrictPolicy(),
		now:           now,
	}
}

func (s *messageService) List(ctx context.Context, viewer models.ViewerContext) []dto.MessageResponse {
	start := s.now()
	defer func() {
		observability.SyncLoadLatency().WithLabelValues(s.collection).Observe(time.Since(start).Seconds())
	}()

	records := s.load(ctx)

	visible := make([]models.Message, 0, len(records))
	for _, record := range records {
		if record.Listed(viewer) {
			visible = append(visible, record)
		}
	}

	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].CreatedAt.After(visible[j].CreatedAt)
	})

	return dto.NewMessageResponseSlice(visible)
}

func (s *messageService) Subscribe(ctx context.Context, viewer models.ViewerContext) (<-chan []dto.MessageResponse, func(), error) {
	subscription := &messageSubscription{
		updates: make(chan []dto.MessageResponse, syncBufferSize),
	}

	unsubscribe, err := s.store.Subscribe(ctx, s.key, func() {
		subscription.push(s.List(ctx, viewer), s.logger)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to subscribe to %s: %w", s.key, err)
	}

	observability.StreamClientsActive().Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			unsubscribe()
			subscription.close()
			observability.StreamClientsActive().Dec()
		})
	}

	// Seed the stream so consumers render the current view immediately.
	subscription.push(s.List(ctx, viewer), s.logger)

	return subscription.updates, cleanup, nil
}

func (s *messageService) Create(ctx context.Context, sender models.ViewerContext, payload dto.MessageCreateRequest) (dto.MessageResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.MessageResponse{}, err
	}

	recipientType := models.RecipientType(payload.RecipientType)
	if !recipientType.AllowedFor(sender.Role) {
		return dto.MessageResponse{}, ErrRecipientNotAllowed
	}

	subject := strings.TrimSpace(s.sanitizer.Sanitize(payload.Subject))
	body := strings.TrimSpace(s.sanitizer.Sanitize(payload.Body))
	if subject == "" || body == "" {
		return dto.MessageResponse{}, errors.New("message empty after sanitization")
	}

	spanCtx, span := s.tracer.Start(ctx, "messages.create", trace.WithAttributes(
		attribute.String("message.collection", s.collection),
		attribute.String("message.recipient_type", payload.RecipientType),
	))
	defer span.End()

	now := s.now().UTC()
	message := models.Message{
		SenderID:         senderIdentifier(sender),
		SenderName:       sender.DisplayName,
		SenderType:       sender.Role,
		Subject:          subject,
		Body:             body,
		AudioURL:         payload.AudioURL,
		CreatedAt:        now,
		RecipientType:    recipientType,
		RecipientClass:   payload.RecipientClass,
		RecipientSection: payload.RecipientSection,
		RecipientID:      payload.RecipientID,
		RecipientName:    payload.RecipientName,
		Status:           models.StatusUnread,
	}

	if field := message.MissingQualifier(); field != "" {
		return dto.MessageResponse{}, fmt.Errorf("recipient type %s requires %s", payload.RecipientType, field)
	}

	if s.usesPublished {
		published := !payload.Draft
		message.Published = &published
	}

	records := s.load(spanCtx)
	message.ID = s.uniqueID(records, now)

	records = append(records, message)
	s.write(spanCtx, records)

	observability.MessagesPublishedTotal().WithLabelValues(s.collection).Inc()
	s.record(spanCtx, sender, "message_created", message.ID, map[string]interface{}{
		"recipient_type": payload.RecipientType,
	})

	return dto.NewMessageResponse(message), nil
}

func (s *messageService) MarkRead(ctx context.Context, id string) error {
	records := s.load(ctx)

	changed := false
	for i := range records {
		if records[i].ID == id && records[i].Status != models.StatusRead {
			records[i].Status = models.StatusRead
			changed = true
		}
	}

	if !changed {
		return nil
	}

	s.write(ctx, records)
	return nil
}

func (s *messageService) MarkAllRead(ctx context.Context, viewer models.ViewerContext) error {
	spanCtx, span := s.tracer.Start(ctx, "messages.mark_all_read", trace.WithAttributes(
		attribute.String("message.collection", s.collection),
		attribute.String("viewer.role", viewer.Role),
	))
	defer span.End()

	records := s.load(spanCtx)

	changed := false
	for i := range records {
		if records[i].Status != models.StatusRead && records[i].VisibleTo(viewer) {
			records[i].Status = models.StatusRead
			changed = true
		}
	}

	if !changed {
		return nil
	}

	s.write(spanCtx, records)
	return nil
}

func (s *messageService) PublishToggle(ctx context.Context, actor models.ViewerContext, id string) (dto.MessageResponse, error) {
	if !s.usesPublished {
		return dto.MessageResponse{}, ErrPublishUnsupported
	}

	records := s.load(ctx)

	for i := range records {
		if records[i].ID != id {
			continue
		}

		published := records[i].Published == nil || !*records[i].Published
		records[i].Published = &published
		if published {
			// Publishing re-stamps the creation time so newly published
			// drafts sort to the top of every feed.
			records[i].CreatedAt = s.now().UTC()
		}

		s.write(ctx, records)
		s.record(ctx, actor, "message_publish_toggled", id, map[string]interface{}{
			"published": published,
		})
		return dto.NewMessageResponse(records[i]), nil
	}

	return dto.MessageResponse{}, ErrMessageNotFound
}

func (s *messageService) Delete(ctx context.Context, actor models.ViewerContext, id string) error {
	records := s.load(ctx)

	kept := records[:0]
	found := false
	for _, record := range records {
		if record.ID == id {
			found = true
			continue
		}
		kept = append(kept, record)
	}

	if !found {
		return ErrMessageNotFound
	}

	s.write(ctx, kept)
	s.record(ctx, actor, "message_deleted", id, nil)
	return nil
}

// load reads the full collection; a missing key or unparsable blob degrades
// to an empty slice so dashboards render an empty state instead of an error.
func (s *messageService) load(ctx context.Context) []models.Message {
	raw, err := s.store.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn().Err(err).Str("key", s.key).Msg("failed to load collection")
		}
		return nil
	}

	var records []models.Message
	if err := json.Unmarshal(raw, &records); err != nil {
		s.logger.Warn().Err(err).Str("key", s.key).Msg("collection blob is not valid JSON")
		return nil
	}

	return records
}

// write rewrites the whole collection. Failures are logged and swallowed:
// the dashboards tolerate the unchanged state and retry on the next action.
func (s *messageService) write(ctx context.Context, records []models.Message) {
	payload, err := json.Marshal(records)
	if err != nil {
		s.logger.Error().Err(err).Str("key", s.key).Msg("failed to marshal collection")
		return
	}

	if err := s.store.Set(ctx, s.key, payload); err != nil {
		s.logger.Warn().Err(err).Str("key", s.key).Msg("failed to write collection")
	}
}

// uniqueID derives a timestamp id and regenerates on collision so the
// collection never holds two records with the same id.
func (s *messageService) uniqueID(records []models.Message, now time.Time) string {
	id := models.NewMessageID(now)
	for offset := int64(1); containsID(records, id); offset++ {
		id = fmt.Sprintf("%d", now.UnixNano()+offset)
	}
	return id
}

func (s *messageService) record(ctx context.Context, actor models.ViewerContext, action, entityID string, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}
	s.activity.Record(ctx, models.ActivityLog{
		ActorEmail: actor.Email,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: s.collection,
		EntityID:   entityID,
		Metadata:   datatypes.JSONMap(metadata),
	})
}

func containsID(records []models.Message, id string) bool {
	for _, record := range records {
		if record.ID == id {
			return true
		}
	}
	return false
}

func senderIdentifier(sender models.ViewerContext) string {
	if sender.PersonID != "" {
		return sender.PersonID
	}
	return sender.Email
}
