package contract_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-portal-api/internal/dto"
	"github.com/noah-isme/sma-portal-api/internal/handler"
	"github.com/noah-isme/sma-portal-api/internal/models"
	"github.com/noah-isme/sma-portal-api/internal/service"
	"github.com/noah-isme/sma-portal-api/internal/store"
)

func TestMessageListContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", "message_list.schema.json"))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)

	svc := service.NewMessageService(service.MessageServiceOptions{
		Store:         store.NewMemory(),
		Key:           "portal:announcements",
		Collection:    "announcements",
		UsesPublished: true,
		Validator:     validator.New(),
		Logger:        zerolog.Nop(),
	})

	principal := models.ViewerContext{
		Role:  models.SenderPrincipal,
		Email: "kepala@sma-adp.sch.id",
	}

	_, err = svc.Create(context.Background(), principal, dto.MessageCreateRequest{
		Subject:        "Upacara bendera",
		Body:           "Seluruh siswa kelas 10 wajib hadir",
		RecipientType:  string(models.RecipientClass),
		RecipientClass: "10",
	})
	require.NoError(t, err)

	messageHandler := handler.NewMessageHandler(handler.MessageHandlerOptions{
		Service:     svc,
		Collection:  "announcements",
		Publishable: true,
		Logger:      zerolog.Nop(),
	})

	app := fiber.New()
	group := app.Group("/api/v1/announcements", func(c *fiber.Ctx) error {
		c.Locals("viewer", models.ViewerContext{
			Role:    models.RoleStudent,
			Email:   "ani@sma-adp.sch.id",
			Class:   "10",
			Section: "A",
		})
		return c.Next()
	})
	messageHandler.Register(group)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/announcements/", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}
