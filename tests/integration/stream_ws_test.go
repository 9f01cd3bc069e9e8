package integration_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-portal-api/internal/dto"
	"github.com/noah-isme/sma-portal-api/internal/handler"
	"github.com/noah-isme/sma-portal-api/internal/models"
	"github.com/noah-isme/sma-portal-api/internal/service"
	"github.com/noah-isme/sma-portal-api/internal/store"
)

// TestWebsocketSnapshotStream connects a real websocket client to the
// collection stream and verifies that a publish is reflected in the next
// snapshot it receives.
func TestWebsocketSnapshotStream(t *testing.T) {
	svc := service.NewMessageService(service.MessageServiceOptions{
		Store:      store.NewMemory(),
		Key:        "portal:notifications",
		Collection: "notifications",
		Validator:  validator.New(),
		Logger:     zerolog.Nop(),
	})

	h := handler.NewMessageHandler(handler.MessageHandlerOptions{
		Service:    svc,
		Collection: "notifications",
		Logger:     zerolog.Nop(),
	})

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	h.Register(app.Group("/api/v1/notifications", func(c *fiber.Ctx) error {
		c.Locals("viewer", models.ViewerContext{
			Role:    models.RoleStudent,
			Email:   "ani@sma-adp.sch.id",
			Class:   "10",
			Section: "A",
		})
		return c.Next()
	}))

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		_ = app.Listener(listener)
	}()
	defer func() {
		_ = app.Shutdown()
	}()

	url := "ws://" + listener.Addr().String() + "/api/v1/notifications/ws"

	var conn *websocket.Conn
	require.Eventually(t, func() bool {
		dialed, _, dialErr := websocket.DefaultDialer.Dial(url, nil)
		if dialErr != nil {
			return false
		}
		conn = dialed
		return true
	}, 5*time.Second, 50*time.Millisecond)
	defer conn.Close()

	// The first frame is the initial snapshot of an empty collection.
	var snapshot []dto.MessageResponse
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&snapshot))
	require.Empty(t, snapshot)

	principal := models.ViewerContext{
		Role:  models.SenderPrincipal,
		Email: "kepala@sma-adp.sch.id",
	}
	_, err = svc.Create(context.Background(), principal, dto.MessageCreateRequest{
		Subject:       "Gladi bersih",
		Body:          "Kumpul di lapangan jam 7",
		RecipientType: string(models.RecipientWholeSchool),
	})
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&snapshot))
	require.Len(t, snapshot, 1)
	require.Equal(t, "Gladi bersih", snapshot[0].Subject)
}
