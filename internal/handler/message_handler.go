package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/sma-portal-api/internal/dto"
	"github.com/noah-isme/sma-portal-api/internal/middleware"
	"github.com/noah-isme/sma-portal-api/internal/models"
	"github.com/noah-isme/sma-portal-api/internal/service"
	"github.com/noah-isme/sma-portal-api/internal/utils"
)

// MessageHandler serves one message collection: the REST surface plus the
// SSE and websocket snapshot streams. The same handler type backs
// announcements, notifications and audio messages; only the bound service
// differs.
type MessageHandler struct {
	service     service.MessageService
	audio       service.AudioMessageService
	collection  string
	publishable bool
	keepAlive   time.Duration
	logger      zerolog.Logger
}

// MessageHandlerOptions configures a collection handler.
type MessageHandlerOptions struct {
	Service service.MessageService
	// Audio, when set, enables the multipart voice-message upload route.
	Audio       service.AudioMessageService
	Collection  string
	Publishable bool
	KeepAlive   time.Duration
	Logger      zerolog.Logger
}

// NewMessageHandler constructs a handler bound to one collection.
func NewMessageHandler(opts MessageHandlerOptions) *MessageHandler {
	keepAlive := opts.KeepAlive
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}

	return &MessageHandler{
		service:     opts.Service,
		audio:       opts.Audio,
		collection:  opts.Collection,
		publishable: opts.Publishable,
		keepAlive:   keepAlive,
		logger:      opts.Logger.With().Str("component", opts.Collection+"_handler").Logger(),
	}
}

// Register binds the collection routes. The staff guard protects every
// producer route; consumers only need a valid token.
func (h *MessageHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/stream", h.stream)
	h.registerWebsocket(router)
	router.Patch("/:id/read", h.markRead)
	router.Post("/read-all", h.markAllRead)

	staff := middleware.RequireStaff()
	router.Post("/", staff, h.create)
	router.Delete("/:id", staff, h.remove)
	if h.publishable {
		router.Patch("/:id/publish", staff, h.publishToggle)
	}
	if h.audio != nil {
		router.Post("/audio", staff, h.createAudio)
	}
}

func (h *MessageHandler) list(c *fiber.Ctx) error {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return unauthenticated(c)
	}

	view := h.service.List(c.UserContext(), viewer)
	return utils.SendSuccess(c, h.collection+" retrieved", view)
}

func (h *MessageHandler) create(c *fiber.Ctx) error {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return unauthenticated(c)
	}

	var payload dto.MessageCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	created, err := h.service.Create(c.UserContext(), viewer, payload)
	if err != nil {
		return h.createError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "message published", created)
}

func (h *MessageHandler) createAudio(c *fiber.Ctx) error {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return unauthenticated(c)
	}

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "audio file is required")
	}

	payload := dto.MessageCreateRequest{
		Subject:          c.FormValue("subject"),
		Body:             c.FormValue("body"),
		RecipientType:    c.FormValue("recipient_type"),
		RecipientClass:   c.FormValue("recipient_class"),
		RecipientSection: c.FormValue("recipient_section"),
		RecipientID:      c.FormValue("recipient_id"),
		RecipientName:    c.FormValue("recipient_name"),
	}

	file, err := fileHeader.Open()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "failed to read audio file")
	}
	defer file.Close()

	created, err := h.audio.Create(c.UserContext(), viewer, payload, fileHeader.Filename, file)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedAudio) {
			return utils.SendError(c, fiber.StatusUnsupportedMediaType, "uploaded file is not audio")
		}
		return h.createError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "audio message published", created)
}

func (h *MessageHandler) createError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendValidationError(c, err)
	case errors.Is(err, service.ErrRecipientNotAllowed):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	default:
		h.logger.Error().Err(err).Msg("failed to publish message")
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
}

func (h *MessageHandler) markRead(c *fiber.Ctx) error {
	if _, ok := viewerFromContext(c); !ok {
		return unauthenticated(c)
	}

	id := c.Params("id")
	if id == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "message id required")
	}

	// Unknown ids are acknowledged: the record may have been deleted by
	// another producer since the client rendered it.
	if err := h.service.MarkRead(c.UserContext(), id); err != nil {
		h.logger.Error().Err(err).Str("message_id", id).Msg("failed to mark message read")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to mark message read")
	}

	return utils.SendSuccess(c, "message marked read", nil)
}

func (h *MessageHandler) markAllRead(c *fiber.Ctx) error {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return unauthenticated(c)
	}

	if err := h.service.MarkAllRead(c.UserContext(), viewer); err != nil {
		h.logger.Error().Err(err).Msg("failed to mark all messages read")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to mark messages read")
	}

	return utils.SendSuccess(c, "messages marked read", nil)
}

func (h *MessageHandler) publishToggle(c *fiber.Ctx) error {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return unauthenticated(c)
	}

	id := c.Params("id")
	updated, err := h.service.PublishToggle(c.UserContext(), viewer, id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMessageNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "message not found")
		case errors.Is(err, service.ErrPublishUnsupported):
			return utils.SendError(c, fiber.StatusConflict, err.Error())
		default:
			h.logger.Error().Err(err).Str("message_id", id).Msg("failed to toggle publish state")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to toggle publish state")
		}
	}

	return utils.SendSuccess(c, "publish state updated", updated)
}

func (h *MessageHandler) remove(c *fiber.Ctx) error {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return unauthenticated(c)
	}

	id := c.Params("id")
	if err := h.service.Delete(c.UserContext(), viewer, id); err != nil {
		if errors.Is(err, service.ErrMessageNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "message not found")
		}
		h.logger.Error().Err(err).Str("message_id", id).Msg("failed to delete message")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to delete message")
	}

	return utils.SendSuccess(c, "message deleted", nil)
}

func (h *MessageHandler) stream(c *fiber.Ctx) error {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return unauthenticated(c)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)

	updates, cleanup, err := h.service.Subscribe(ctx, viewer)
	if err != nil {
		cancel()
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to open stream")
	}

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			cleanup()
			cancel()
		}()

		ticker := time.NewTicker(h.keepAlive / 2)
		defer ticker.Stop()

		for {
			select {
			case view, open := <-updates:
				if !open {
					return
				}
				if err := writeSnapshotEvent(w, view); err != nil {
					h.logger.Debug().Err(err).Msg("failed to write snapshot event")
					return
				}
			case <-ticker.C:
				if err := writeKeepAlive(w); err != nil {
					h.logger.Debug().Err(err).Msg("failed to write stream keepalive")
					return
				}
			case <-ctx.Done():
				return
			}
		}
	})

	return nil
}

func (h *MessageHandler) registerWebsocket(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			if viewer, ok := viewerFromContext(c); ok {
				c.Locals("ws_viewer", viewer)
				return c.Next()
			}
			return unauthenticated(c)
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/ws", websocket.New(h.serveWebsocket))
}

func (h *MessageHandler) serveWebsocket(conn *websocket.Conn) {
	defer conn.Close()

	viewer, ok := conn.Locals("ws_viewer").(models.ViewerContext)
	if !ok {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, cleanup, err := h.service.Subscribe(ctx, viewer)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to open websocket subscription")
		return
	}
	defer cleanup()

	// Reader goroutine: clients never send payloads, but reading is the
	// only way to observe the peer closing the socket.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	h.logger.Info().Str("viewer", viewer.Email).Msg("snapshot websocket connected")
	defer h.logger.Info().Str("viewer", viewer.Email).Msg("snapshot websocket disconnected")

	ticker := time.NewTicker(h.keepAlive / 2)
	defer ticker.Stop()

	for {
		select {
		case view, open := <-updates:
			if !open {
				return
			}
			if err := conn.WriteJSON(view); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func writeSnapshotEvent(w *bufio.Writer, view []dto.MessageResponse) error {
	payload, err := json.Marshal(view)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: snapshot\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

func writeKeepAlive(w *bufio.Writer) error {
	if _, err := fmt.Fprintf(w, ": keep-alive %s\n\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return w.Flush()
}
