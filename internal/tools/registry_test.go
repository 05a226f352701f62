package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type echoInput struct {
	Text string `json:"text"`
}

func echoTool() *ExecutableTool {
	return NewTool("echo", "Echoes its input back.", func(_ context.Context, in echoInput) Result {
		return Success(map[string]string{"text": in.Text})
	})
}

func TestRegistry_InvokeSuccess(t *testing.T) {
	r, err := NewRegistry(nil, 0, echoTool())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	res := r.Invoke(context.Background(), "echo", json.RawMessage(`{"text":"hello"}`))
	if res.Status != StatusSuccess {
		t.Fatalf("Invoke() status = %s, want success (error: %+v)", res.Status, res.Error)
	}
	data, ok := res.Data.(map[string]string)
	if !ok || data["text"] != "hello" {
		t.Errorf("Invoke() data = %#v, want map with text=hello", res.Data)
	}
}

func TestRegistry_UnknownTool(t *testing.T) {
	r, err := NewRegistry(nil, 0, echoTool())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	res := r.Invoke(context.Background(), "no_such_tool", nil)
	if res.Status != StatusError {
		t.Fatal("Invoke() on unknown tool should fail")
	}
	if res.Error.Code != ErrCodeUnknownTool {
		t.Errorf("error code = %s, want %s", res.Error.Code, ErrCodeUnknownTool)
	}
}

func TestRegistry_InvalidArguments(t *testing.T) {
	r, err := NewRegistry(nil, 0, echoTool())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	res := r.Invoke(context.Background(), "echo", json.RawMessage(`{not json`))
	if res.Status != StatusError {
		t.Fatal("Invoke() with malformed args should fail")
	}
	if res.Error.Code != ErrCodeInvalidArguments {
		t.Errorf("error code = %s, want %s", res.Error.Code, ErrCodeInvalidArguments)
	}
}

func TestRegistry_PanicBecomesInternalError(t *testing.T) {
	panicky := NewTool("boom", "Always panics.", func(_ context.Context, _ echoInput) Result {
		panic("kaboom")
	})
	r, err := NewRegistry(nil, 0, panicky)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	res := r.Invoke(context.Background(), "boom", json.RawMessage(`{}`))
	if res.Status != StatusError {
		t.Fatal("Invoke() on panicking tool should fail, not propagate")
	}
	if res.Error.Code != ErrCodeInternal {
		t.Errorf("error code = %s, want %s", res.Error.Code, ErrCodeInternal)
	}
}

func TestRegistry_TimeoutReclassified(t *testing.T) {
	slow := NewTool("slow", "Waits for its context.", func(ctx context.Context, _ echoInput) Result {
		<-ctx.Done()
		// A real tool's HTTP client would surface this as a network error.
		return Failure(ErrCodeNetwork, "request canceled: %v", ctx.Err())
	})
	r, err := NewRegistry(nil, 20*time.Millisecond, slow)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	res := r.Invoke(context.Background(), "slow", json.RawMessage(`{}`))
	if res.Status != StatusError {
		t.Fatal("Invoke() should fail after deadline")
	}
	if res.Error.Code != ErrCodeTimeout {
		t.Errorf("error code = %s, want %s", res.Error.Code, ErrCodeTimeout)
	}
	if !strings.Contains(res.Error.Message, "slow") {
		t.Errorf("error message %q should name the tool", res.Error.Message)
	}
}

func TestRegistry_DuplicateNamesRejected(t *testing.T) {
	_, err := NewRegistry(nil, 0, echoTool(), echoTool())
	if err == nil {
		t.Fatal("NewRegistry() should reject duplicate tool names")
	}
}

func TestRegistry_NamesInRegistrationOrder(t *testing.T) {
	a := NewTool("alpha", "a", func(_ context.Context, _ echoInput) Result { return Success(nil) })
	b := NewTool("beta", "b", func(_ context.Context, _ echoInput) Result { return Success(nil) })
	r, err := NewRegistry(nil, 0, b, a)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	names := r.Names()
	if len(names) != 2 || names[0] != "beta" || names[1] != "alpha" {
		t.Errorf("Names() = %v, want [beta alpha]", names)
	}
}

func TestDefaultToolNames(t *testing.T) {
	names := ToolNames()
	if len(names) != 7 {
		t.Fatalf("ToolNames() returned %d names, want 7", len(names))
	}
	seen := make(map[string]bool)
	for _, n := range names {
		if seen[n] {
			t.Errorf("duplicate tool name %s", n)
		}
		seen[n] = true
	}
}
