package thread

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parleyhq/parley/db"
)

// newPostgresTestStore connects to the database named by TEST_DATABASE_URL
// and runs migrations. Tests are skipped when the variable is unset so the
// suite stays runnable without a database.
func newPostgresTestStore(t *testing.T) *PostgresStore {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping PostgreSQL integration test")
	}

	if err := db.Migrate(dbURL); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("creating pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("pinging database: %v", err)
	}

	store, err := NewPostgresStore(pool, nil)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}
	return store
}

func TestPostgresStore_AppendAndHistory(t *testing.T) {
	store := newPostgresTestStore(t)
	ctx := context.Background()
	id := NewID()

	first := []Message{
		UserMessage("what's the weather in Bergen?"),
		{Role: RoleAssistant, Text: "Rainy, as usual."},
	}
	if err := store.Append(ctx, id, first); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	second := []Message{
		UserMessage("and tomorrow?"),
		{Role: RoleAssistant, Text: "Also rainy."},
	}
	if err := store.Append(ctx, id, second); err != nil {
		t.Fatalf("second Append() error = %v", err)
	}

	history, err := store.History(ctx, id)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("history length = %d, want 4", len(history))
	}
	if history[0].Text != first[0].Text || history[3].Text != second[1].Text {
		t.Errorf("history out of order: first %q, last %q", history[0].Text, history[3].Text)
	}
}

func TestPostgresStore_UnknownThreadIsEmpty(t *testing.T) {
	store := newPostgresTestStore(t)

	history, err := store.History(context.Background(), NewID())
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 0 {
		t.Errorf("unknown thread history length = %d, want 0", len(history))
	}
}

func TestPostgresStore_EmptyAppend(t *testing.T) {
	store := newPostgresTestStore(t)

	if err := store.Append(context.Background(), NewID(), nil); err != ErrEmptyAppend {
		t.Errorf("Append(nil) error = %v, want ErrEmptyAppend", err)
	}
}

func TestPostgresStore_RoundTripsToolMessages(t *testing.T) {
	store := newPostgresTestStore(t)
	ctx := context.Background()
	id := NewID()

	call := ToolCall{ID: "c1", Name: "get_weather", Args: []byte(`{"location":"Bergen"}`)}
	msgs := []Message{
		UserMessage("weather?"),
		{Role: RoleAssistant, ToolCalls: []ToolCall{call}},
		ToolMessage(call, []byte(`{"status":"success","data":{"temperature_c":9}}`)),
		{Role: RoleAssistant, Text: "9 degrees."},
	}
	if err := store.Append(ctx, id, msgs); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	history, err := store.History(ctx, id)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("history length = %d, want 4", len(history))
	}
	got := history[2]
	if got.Role != RoleTool || got.ToolCallID != "c1" || got.ToolName != "get_weather" {
		t.Errorf("tool message = %+v, want back-references to call c1", got)
	}
	if len(history[1].ToolCalls) != 1 || string(history[1].ToolCalls[0].Args) != `{"location":"Bergen"}` {
		t.Errorf("assistant tool calls = %+v", history[1].ToolCalls)
	}
}

func TestPostgresStore_ConcurrentAppendsKeepSequence(t *testing.T) {
	store := newPostgresTestStore(t)
	ctx := context.Background()
	id := NewID()

	const writers = 8
	var wg sync.WaitGroup
	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg := UserMessage(fmt.Sprintf("writer %d", w))
			if err := store.Append(ctx, id, []Message{msg}); err != nil {
				t.Errorf("concurrent Append() error = %v", err)
			}
		}()
	}
	wg.Wait()

	history, err := store.History(ctx, id)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != writers {
		t.Errorf("history length = %d, want %d", len(history), writers)
	}
}
