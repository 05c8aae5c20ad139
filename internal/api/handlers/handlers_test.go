package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/acme/agent-ivr/internal/app"
	"github.com/acme/agent-ivr/internal/config"
	"github.com/acme/agent-ivr/internal/domain"
	"github.com/acme/agent-ivr/internal/telephony"
	"github.com/acme/agent-ivr/internal/telephony/mock"
	"github.com/acme/agent-ivr/pkg/logger"
)

// newTestApp wires handlers over a zero-latency mock. failOps lists the
// provider operations that should return an unsuccessful result.
func newTestApp(t *testing.T, failOps ...string) *fiber.App {
	t.Helper()

	cfg := config.Default()
	cfg.Call.StartDelay = 0
	cfg.Call.EndDelay = 0
	cfg.Call.StatusDelay = 0

	fault := func(op string) error {
		for _, f := range failOps {
			if f == op {
				return errors.New("injected")
			}
		}
		return nil
	}

	container, err := app.New(context.Background(), cfg, logger.NewNop(),
		app.WithProvider(mock.NewProvider(cfg.Call, mock.WithFault(fault))),
	)
	if err != nil {
		t.Fatalf("container: %v", err)
	}
	t.Cleanup(func() { _ = container.Close(context.Background()) })

	hs := NewHandlerSet(container)
	fiberApp := fiber.New(fiber.Config{ErrorHandler: hs.ErrorHandler})
	hs.Register(fiberApp)
	return fiberApp
}

func do(t *testing.T, fiberApp *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := fiberApp.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	out := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode %q: %v", raw, err)
		}
	}
	return resp.StatusCode, out
}

func stateOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	state, ok := body["state"].(map[string]any)
	if !ok {
		t.Fatalf("missing state in %v", body)
	}
	return state
}

func TestCallEndpoints(t *testing.T) {
	fiberApp := newTestApp(t)

	code, body := do(t, fiberApp, http.MethodPost, "/api/v1/calls", `{"phone_number":"9876543210","country_code":"+91"}`)
	if code != http.StatusOK || body["success"] != true {
		t.Fatalf("start: %d %v", code, body)
	}
	callID, _ := body["call_id"].(string)
	if !strings.HasPrefix(callID, "call_") {
		t.Fatalf("unexpected call id %q", callID)
	}

	code, body = do(t, fiberApp, http.MethodGet, "/api/v1/calls/"+callID, "")
	if code != http.StatusOK || body["message"] != "Call status retrieved" {
		t.Fatalf("status: %d %v", code, body)
	}

	code, body = do(t, fiberApp, http.MethodPost, "/api/v1/calls/"+callID+"/end", "")
	if code != http.StatusOK || body["message"] != "Call ended successfully" {
		t.Fatalf("end: %d %v", code, body)
	}
}

func TestCallEndpointValidation(t *testing.T) {
	fiberApp := newTestApp(t)

	if code, _ := do(t, fiberApp, http.MethodPost, "/api/v1/calls", `{"phone_number":""}`); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank number, got %d", code)
	}
	if code, _ := do(t, fiberApp, http.MethodPost, "/api/v1/calls", `{"phone_number":"123","country_code":"+999"}`); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown country, got %d", code)
	}
}

func TestFailedResultRendersBadGateway(t *testing.T) {
	fiberApp := newTestApp(t, telephony.OpStartCall)

	code, body := do(t, fiberApp, http.MethodPost, "/api/v1/calls", `{"phone_number":"123"}`)
	if code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", code)
	}
	if body["success"] != false || body["message"] != telephony.MessageStartFailed {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestSessionLifecycle(t *testing.T) {
	fiberApp := newTestApp(t)

	code, body := do(t, fiberApp, http.MethodPost, "/api/v1/sessions", "")
	if code != http.StatusCreated {
		t.Fatalf("create: %d %v", code, body)
	}
	id, _ := body["session_id"].(string)
	if id == "" || stateOf(t, body)["status"] != "idle" {
		t.Fatalf("unexpected create body %v", body)
	}
	base := "/api/v1/sessions/" + id

	code, body = do(t, fiberApp, http.MethodPost, base+"/start", `{"phone_number":"98765 43210","country_code":"+91"}`)
	if code != http.StatusOK {
		t.Fatalf("start: %d %v", code, body)
	}
	state := stateOf(t, body)
	if state["status"] != "connected" || state["phone_number"] != "9876543210" || state["call_id"] == nil {
		t.Fatalf("unexpected state after start %v", state)
	}

	if code, _ = do(t, fiberApp, http.MethodPost, base+"/start", `{"phone_number":"1"}`); code != http.StatusConflict {
		t.Fatalf("expected 409 starting over a connected call, got %d", code)
	}

	if code, body = do(t, fiberApp, http.MethodGet, base+"/status", ""); code != http.StatusOK {
		t.Fatalf("status: %d %v", code, body)
	}

	code, body = do(t, fiberApp, http.MethodPost, base+"/end", "")
	if code != http.StatusOK || stateOf(t, body)["status"] != "ended" {
		t.Fatalf("end: %d %v", code, body)
	}

	code, body = do(t, fiberApp, http.MethodGet, base, "")
	if code != http.StatusOK {
		t.Fatalf("get: %d %v", code, body)
	}
	notes, _ := body["notifications"].([]any)
	if len(notes) != 2 {
		t.Fatalf("expected two notifications, got %v", body["notifications"])
	}

	code, body = do(t, fiberApp, http.MethodPost, base+"/reset", "")
	if code != http.StatusOK || stateOf(t, body)["status"] != "idle" {
		t.Fatalf("reset: %d %v", code, body)
	}

	if code, _ = do(t, fiberApp, http.MethodDelete, base, ""); code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", code)
	}
	if code, _ = do(t, fiberApp, http.MethodGet, base, ""); code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", code)
	}
}

func TestSessionStartBlankNumberIsBadRequest(t *testing.T) {
	fiberApp := newTestApp(t)

	_, body := do(t, fiberApp, http.MethodPost, "/api/v1/sessions", "")
	base := "/api/v1/sessions/" + body["session_id"].(string)

	code, body := do(t, fiberApp, http.MethodPost, base+"/start", `{"phone_number":"  "}`)
	if code != http.StatusBadRequest || body["error"] == nil {
		t.Fatalf("expected 400 with error, got %d %v", code, body)
	}

	_, body = do(t, fiberApp, http.MethodGet, base, "")
	notes, _ := body["notifications"].([]any)
	if len(notes) != 1 {
		t.Fatalf("expected validation notification, got %v", body["notifications"])
	}
	if stateOf(t, body)["status"] != string(domain.CallStatusIdle) {
		t.Fatalf("state must stay idle")
	}
}

func TestSessionStartFailureRevertsToIdle(t *testing.T) {
	fiberApp := newTestApp(t, telephony.OpStartCall)

	_, body := do(t, fiberApp, http.MethodPost, "/api/v1/sessions", "")
	base := "/api/v1/sessions/" + body["session_id"].(string)

	code, body := do(t, fiberApp, http.MethodPost, base+"/start", `{"phone_number":"123"}`)
	if code != http.StatusOK || stateOf(t, body)["status"] != "idle" {
		t.Fatalf("expected idle after failed start, got %d %v", code, body)
	}
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	fiberApp := newTestApp(t)
	if code, _ := do(t, fiberApp, http.MethodPost, "/api/v1/sessions/nope/end", ""); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestListCountries(t *testing.T) {
	fiberApp := newTestApp(t)
	code, body := do(t, fiberApp, http.MethodGet, "/api/v1/countries", "")
	if code != http.StatusOK || body["default"] != "+91" {
		t.Fatalf("countries: %d %v", code, body)
	}
	if list, _ := body["countries"].([]any); len(list) != 10 {
		t.Fatalf("expected 10 countries, got %v", body["countries"])
	}
}
