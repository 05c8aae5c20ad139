package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/acme/agent-ivr/internal/api/handlers"
	"github.com/acme/agent-ivr/internal/app"
	"github.com/acme/agent-ivr/internal/config"
	"github.com/acme/agent-ivr/pkg/logger"
)

func TestServerServesHealth(t *testing.T) {
	container, err := app.New(context.Background(), config.Default(), logger.NewNop())
	if err != nil {
		t.Fatalf("container: %v", err)
	}
	defer container.Close(context.Background())

	server := NewServer(container, handlers.NewHandlerSet(container))

	resp, err := server.App().Test(httptest.NewRequest(http.MethodGet, "/healthz", nil), -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
