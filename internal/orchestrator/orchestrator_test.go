package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"github.com/parleyhq/parley/internal/thread"
	"github.com/parleyhq/parley/internal/tools"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeModel replays a scripted sequence of responses, one per Generate
// call, streaming each response's deltas through onDelta first.
type fakeModel struct {
	script []scriptedResponse
	calls  int
}

type scriptedResponse struct {
	deltas []string
	msg    thread.Message
	err    error
}

func (m *fakeModel) Generate(ctx context.Context, _ []thread.Message, onDelta func(ctx context.Context, text string) error) (thread.Message, error) {
	if m.calls >= len(m.script) {
		return thread.Message{}, errors.New("fake model script exhausted")
	}
	step := m.script[m.calls]
	m.calls++

	if step.err != nil {
		return thread.Message{}, step.err
	}
	for _, d := range step.deltas {
		if onDelta != nil {
			if err := onDelta(ctx, d); err != nil {
				return thread.Message{}, fmt.Errorf("streaming: %w", err)
			}
		}
	}
	return step.msg, nil
}

// fakeInvoker records invocations and returns canned results per tool name.
type fakeInvoker struct {
	mu      sync.Mutex
	results map[string]tools.Result
	invoked []string
}

func (f *fakeInvoker) Invoke(_ context.Context, name string, _ json.RawMessage) tools.Result {
	f.mu.Lock()
	f.invoked = append(f.invoked, name)
	f.mu.Unlock()

	if res, ok := f.results[name]; ok {
		return res
	}
	return tools.Success(map[string]string{"tool": name})
}

func newTestOrchestrator(t *testing.T, store thread.Store, model Generator, invoker ToolInvoker, maxRounds int) *Orchestrator {
	t.Helper()
	o, err := New(Config{
		Store:     store,
		Model:     model,
		Tools:     invoker,
		MaxRounds: maxRounds,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return o
}

func collect(o *Orchestrator, threadID, text string) []Event {
	var events []Event
	for ev := range o.RunTurn(context.Background(), threadID, text) {
		events = append(events, ev)
	}
	return events
}

func assistantText(text string) thread.Message {
	return thread.Message{Role: thread.RoleAssistant, Text: text}
}

func assistantCalls(calls ...thread.ToolCall) thread.Message {
	return thread.Message{Role: thread.RoleAssistant, ToolCalls: calls}
}

func eventTypes(events []Event) []EventType {
	types := make([]EventType, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

func TestRunTurn_SimpleTextTurn(t *testing.T) {
	store := thread.NewMemoryStore(nil)
	id := thread.NewID()
	model := &fakeModel{script: []scriptedResponse{
		{deltas: []string{"Hello", ", world"}, msg: assistantText("Hello, world")},
	}}
	o := newTestOrchestrator(t, store, model, &fakeInvoker{}, 0)

	events := collect(o, id, "hi")

	want := []EventType{EventContent, EventContent, EventEnd}
	got := eventTypes(events)
	if len(got) != len(want) {
		t.Fatalf("event types = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event types = %v, want %v", got, want)
		}
	}
	if events[0].Text != "Hello" || events[1].Text != ", world" {
		t.Errorf("content deltas = %q, %q", events[0].Text, events[1].Text)
	}
	if events[2].Text != "Hello, world" {
		t.Errorf("end event text = %q, want the final assistant text", events[2].Text)
	}

	msgs, _ := store.History(context.Background(), id)
	if len(msgs) != 2 {
		t.Fatalf("stored %d messages, want 2 (user + assistant)", len(msgs))
	}
	if msgs[0].Role != thread.RoleUser || msgs[1].Role != thread.RoleAssistant {
		t.Errorf("stored roles = %s, %s", msgs[0].Role, msgs[1].Role)
	}
}

func TestRunTurn_NewThreadEmitsCheckpointFirst(t *testing.T) {
	store := thread.NewMemoryStore(nil)
	model := &fakeModel{script: []scriptedResponse{
		{msg: assistantText("welcome")},
	}}
	o := newTestOrchestrator(t, store, model, &fakeInvoker{}, 0)

	events := collect(o, "", "hi")

	if len(events) == 0 || events[0].Type != EventCheckpoint {
		t.Fatalf("first event = %v, want checkpoint", eventTypes(events))
	}
	newID := events[0].ThreadID
	if newID == "" {
		t.Fatal("checkpoint event carries no thread ID")
	}

	msgs, _ := store.History(context.Background(), newID)
	if len(msgs) != 2 {
		t.Errorf("stored %d messages under new ID, want 2", len(msgs))
	}
}

func TestRunTurn_ExistingThreadHasNoCheckpoint(t *testing.T) {
	store := thread.NewMemoryStore(nil)
	id := thread.NewID()
	model := &fakeModel{script: []scriptedResponse{{msg: assistantText("again")}}}
	o := newTestOrchestrator(t, store, model, &fakeInvoker{}, 0)

	for _, ev := range collect(o, id, "hi") {
		if ev.Type == EventCheckpoint {
			t.Fatal("existing thread must not produce a checkpoint event")
		}
	}
}

func TestRunTurn_ToolRoundTrip(t *testing.T) {
	store := thread.NewMemoryStore(nil)
	id := thread.NewID()
	calls := []thread.ToolCall{
		{ID: "c1", Name: "get_weather", Args: json.RawMessage(`{"location":"Kyoto"}`)},
		{ID: "c2", Name: "get_joke"},
	}
	model := &fakeModel{script: []scriptedResponse{
		{msg: assistantCalls(calls...)},
		{deltas: []string{"done"}, msg: assistantText("done")},
	}}
	invoker := &fakeInvoker{results: map[string]tools.Result{
		"get_joke": tools.Failure(tools.ErrCodeNetwork, "joke service down"),
	}}
	o := newTestOrchestrator(t, store, model, invoker, 0)

	events := collect(o, id, "weather and a joke please")

	want := []EventType{
		EventToolStart, EventToolStart,
		EventToolEnd, EventToolEnd,
		EventContent, EventEnd,
	}
	got := eventTypes(events)
	if len(got) != len(want) {
		t.Fatalf("event types = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event types = %v, want %v", got, want)
		}
	}

	// Start and end events keep the model's declaration order even
	// though execution is concurrent.
	if events[0].Call.ID != "c1" || events[1].Call.ID != "c2" {
		t.Errorf("start order = %s, %s; want c1, c2", events[0].Call.ID, events[1].Call.ID)
	}
	if events[2].Call.ID != "c1" || events[3].Call.ID != "c2" {
		t.Errorf("end order = %s, %s; want c1, c2", events[2].Call.ID, events[3].Call.ID)
	}

	// The failed tool folds into its result; the turn still succeeds.
	if events[3].Result == nil || events[3].Result.Status != tools.StatusError {
		t.Error("get_joke's end event should carry its error result")
	}

	// The end event carries only the final assistant text, not any text
	// streamed before the tool round.
	if events[5].Text != "done" {
		t.Errorf("end event text = %q, want done", events[5].Text)
	}

	msgs, _ := store.History(context.Background(), id)
	// user + assistant(calls) + 2 tool results + assistant(text)
	if len(msgs) != 5 {
		t.Fatalf("stored %d messages, want 5", len(msgs))
	}
	if msgs[2].ToolCallID != "c1" || msgs[3].ToolCallID != "c2" {
		t.Errorf("tool result order = %s, %s; want c1, c2", msgs[2].ToolCallID, msgs[3].ToolCallID)
	}
}

func TestRunTurn_MaxRoundsIsFatal(t *testing.T) {
	store := thread.NewMemoryStore(nil)
	id := thread.NewID()
	loop := scriptedResponse{msg: assistantCalls(thread.ToolCall{ID: "c", Name: "get_joke"})}
	model := &fakeModel{script: []scriptedResponse{loop, loop, loop}}
	o := newTestOrchestrator(t, store, model, &fakeInvoker{}, 2)

	events := collect(o, id, "loop forever")

	last := events[len(events)-1]
	errEv := events[len(events)-2]
	if last.Type != EventEnd || errEv.Type != EventError {
		t.Fatalf("tail events = %v, want error then end", eventTypes(events))
	}
	if !errors.Is(errEv.Err, ErrMaxRounds) {
		t.Errorf("error = %v, want ErrMaxRounds", errEv.Err)
	}

	msgs, _ := store.History(context.Background(), id)
	if len(msgs) != 0 {
		t.Errorf("failed turn stored %d messages, want 0", len(msgs))
	}
}

func TestRunTurn_ModelFailureIsFatal(t *testing.T) {
	store := thread.NewMemoryStore(nil)
	id := thread.NewID()
	model := &fakeModel{script: []scriptedResponse{{err: errors.New("quota exceeded")}}}
	o := newTestOrchestrator(t, store, model, &fakeInvoker{}, 0)

	events := collect(o, id, "hi")

	if len(events) != 2 || events[0].Type != EventError || events[1].Type != EventEnd {
		t.Fatalf("event types = %v, want [error end]", eventTypes(events))
	}
	if !errors.Is(events[0].Err, ErrModel) {
		t.Errorf("error = %v, want ErrModel", events[0].Err)
	}

	msgs, _ := store.History(context.Background(), id)
	if len(msgs) != 0 {
		t.Errorf("failed turn stored %d messages, want 0", len(msgs))
	}
}

func TestRunTurn_EmptyMessageRejected(t *testing.T) {
	o := newTestOrchestrator(t, thread.NewMemoryStore(nil), &fakeModel{}, &fakeInvoker{}, 0)

	events := collect(o, "", "")

	if len(events) != 2 || events[0].Type != EventError || events[1].Type != EventEnd {
		t.Fatalf("event types = %v, want [error end]", eventTypes(events))
	}
	if !errors.Is(events[0].Err, ErrEmptyMessage) {
		t.Errorf("error = %v, want ErrEmptyMessage", events[0].Err)
	}
}

// failingStore fails History to exercise the storage error path.
type failingStore struct{}

func (failingStore) History(context.Context, string) ([]thread.Message, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) Append(context.Context, string, []thread.Message) error {
	return errors.New("connection refused")
}

func TestRunTurn_StorageFailureIsFatal(t *testing.T) {
	o := newTestOrchestrator(t, failingStore{}, &fakeModel{}, &fakeInvoker{}, 0)

	events := collect(o, thread.NewID(), "hi")

	if len(events) != 2 || events[0].Type != EventError {
		t.Fatalf("event types = %v, want [error end]", eventTypes(events))
	}
	if !errors.Is(events[0].Err, ErrStorage) {
		t.Errorf("error = %v, want ErrStorage", events[0].Err)
	}
}

func TestRunTurn_AbandonedConsumerWritesNothing(t *testing.T) {
	store := thread.NewMemoryStore(nil)
	id := thread.NewID()
	model := &fakeModel{script: []scriptedResponse{
		{deltas: []string{"part 1", "part 2"}, msg: assistantText("part 1part 2")},
	}}
	o := newTestOrchestrator(t, store, model, &fakeInvoker{}, 0)

	var seen int
	for ev := range o.RunTurn(context.Background(), id, "hi") {
		if ev.Type == EventContent {
			seen++
			break // client disconnects mid-stream
		}
	}
	if seen != 1 {
		t.Fatalf("saw %d content events before break, want 1", seen)
	}

	msgs, _ := store.History(context.Background(), id)
	if len(msgs) != 0 {
		t.Errorf("abandoned turn stored %d messages, want 0", len(msgs))
	}
}

func TestRunTurn_CanceledContextAbandonsTurn(t *testing.T) {
	store := thread.NewMemoryStore(nil)
	id := thread.NewID()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The consumer cancels the context after the first delta, simulating
	// a client that disconnects while generation is in flight.
	model := &fakeModel{script: []scriptedResponse{
		{deltas: []string{"partial"}, msg: assistantText("finished anyway")},
	}}
	o := newTestOrchestrator(t, store, model, &fakeInvoker{}, 0)

	var events []Event
	for ev := range o.RunTurn(ctx, id, "hi") {
		events = append(events, ev)
		cancel()
	}

	for _, ev := range events {
		if ev.Type == EventEnd {
			t.Error("abandoned turn must not emit an end event")
		}
	}
	msgs, _ := store.History(context.Background(), id)
	if len(msgs) != 0 {
		t.Errorf("abandoned turn stored %d messages, want 0", len(msgs))
	}
}

func TestRunTurn_HistoryIsReplayedToModel(t *testing.T) {
	store := thread.NewMemoryStore(nil)
	id := thread.NewID()
	seed := []thread.Message{
		thread.UserMessage("first question"),
		assistantText("first answer"),
	}
	if err := store.Append(context.Background(), id, seed); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	var sawHistory int
	model := &recordingModel{onGenerate: func(history []thread.Message) {
		sawHistory = len(history)
	}}
	o := newTestOrchestrator(t, store, model, &fakeInvoker{}, 0)

	collect(o, id, "second question")

	// prior 2 messages + this turn's user message
	if sawHistory != 3 {
		t.Errorf("model saw %d messages, want 3", sawHistory)
	}
}

// recordingModel observes the history passed to Generate.
type recordingModel struct {
	onGenerate func(history []thread.Message)
}

func (m *recordingModel) Generate(_ context.Context, history []thread.Message, _ func(ctx context.Context, text string) error) (thread.Message, error) {
	if m.onGenerate != nil {
		m.onGenerate(history)
	}
	return assistantText("ok"), nil
}
