package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/firebase/genkit/go/ai"

	"github.com/parleyhq/parley/internal/thread"
)

func TestToGenkitMessages_Roles(t *testing.T) {
	history := []thread.Message{
		thread.UserMessage("convert 100 USD to EUR"),
		{
			Role: thread.RoleAssistant,
			ToolCalls: []thread.ToolCall{
				{ID: "call-1", Name: "get_exchange_rate", Args: json.RawMessage(`{"base":"USD","target":"EUR"}`)},
			},
		},
		{
			Role:       thread.RoleTool,
			ToolCallID: "call-1",
			ToolName:   "get_exchange_rate",
			Result:     json.RawMessage(`{"status":"success","data":{"rate":0.85}}`),
		},
		{Role: thread.RoleAssistant, Text: "100 USD is 85 EUR."},
	}

	msgs, err := toGenkitMessages(history)
	if err != nil {
		t.Fatalf("toGenkitMessages() error = %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("got %d messages, want 4", len(msgs))
	}

	if msgs[0].Role != ai.RoleUser {
		t.Errorf("msgs[0].Role = %s, want user", msgs[0].Role)
	}
	if msgs[1].Role != ai.RoleModel {
		t.Errorf("msgs[1].Role = %s, want model", msgs[1].Role)
	}
	if msgs[2].Role != ai.RoleTool {
		t.Errorf("msgs[2].Role = %s, want tool", msgs[2].Role)
	}

	// The assistant's tool call must round-trip its ref and name.
	var req *ai.ToolRequest
	for _, part := range msgs[1].Content {
		if part.ToolRequest != nil {
			req = part.ToolRequest
		}
	}
	if req == nil {
		t.Fatal("assistant message lost its tool request part")
	}
	if req.Ref != "call-1" || req.Name != "get_exchange_rate" {
		t.Errorf("tool request = %s/%s, want call-1/get_exchange_rate", req.Ref, req.Name)
	}

	var resp *ai.ToolResponse
	for _, part := range msgs[2].Content {
		if part.ToolResponse != nil {
			resp = part.ToolResponse
		}
	}
	if resp == nil {
		t.Fatal("tool message lost its tool response part")
	}
	if resp.Ref != "call-1" {
		t.Errorf("tool response ref = %s, want call-1", resp.Ref)
	}
}

func TestToGenkitMessages_UnknownRole(t *testing.T) {
	_, err := toGenkitMessages([]thread.Message{{Role: "narrator", Text: "meanwhile"}})
	if err == nil {
		t.Fatal("toGenkitMessages() should reject unknown roles")
	}
}

func TestFromModelResponse_TextOnly(t *testing.T) {
	resp := &ai.ModelResponse{
		Message: &ai.Message{
			Role:    ai.RoleModel,
			Content: []*ai.Part{ai.NewTextPart("hello there")},
		},
	}

	msg, err := fromModelResponse(resp)
	if err != nil {
		t.Fatalf("fromModelResponse() error = %v", err)
	}
	if msg.Role != thread.RoleAssistant || msg.Text != "hello there" {
		t.Errorf("message = %+v, want assistant/hello there", msg)
	}
	if len(msg.ToolCalls) != 0 {
		t.Errorf("got %d tool calls, want 0", len(msg.ToolCalls))
	}
}

func TestFromModelResponse_ToolCalls(t *testing.T) {
	resp := &ai.ModelResponse{
		Message: &ai.Message{
			Role: ai.RoleModel,
			Content: []*ai.Part{
				{Kind: ai.PartToolRequest, ToolRequest: &ai.ToolRequest{
					Ref:   "call-7",
					Name:  "get_weather",
					Input: map[string]any{"location": "Kyoto"},
				}},
			},
		},
	}

	msg, err := fromModelResponse(resp)
	if err != nil {
		t.Fatalf("fromModelResponse() error = %v", err)
	}
	if len(msg.ToolCalls) != 1 {
		t.Fatalf("got %d tool calls, want 1", len(msg.ToolCalls))
	}
	call := msg.ToolCalls[0]
	if call.ID != "call-7" || call.Name != "get_weather" {
		t.Errorf("call = %s/%s, want call-7/get_weather", call.ID, call.Name)
	}

	var args map[string]any
	if err := json.Unmarshal(call.Args, &args); err != nil {
		t.Fatalf("call args are not valid JSON: %v", err)
	}
	if args["location"] != "Kyoto" {
		t.Errorf("args = %v, want location Kyoto", args)
	}
}

func TestFromModelResponse_GeneratesMissingRefs(t *testing.T) {
	resp := &ai.ModelResponse{
		Message: &ai.Message{
			Role: ai.RoleModel,
			Content: []*ai.Part{
				{Kind: ai.PartToolRequest, ToolRequest: &ai.ToolRequest{Name: "get_joke"}},
				{Kind: ai.PartToolRequest, ToolRequest: &ai.ToolRequest{Name: "get_weather"}},
			},
		},
	}

	msg, err := fromModelResponse(resp)
	if err != nil {
		t.Fatalf("fromModelResponse() error = %v", err)
	}
	if len(msg.ToolCalls) != 2 {
		t.Fatalf("got %d tool calls, want 2", len(msg.ToolCalls))
	}
	if msg.ToolCalls[0].ID == "" || msg.ToolCalls[1].ID == "" {
		t.Error("missing refs should be replaced with generated IDs")
	}
	if msg.ToolCalls[0].ID == msg.ToolCalls[1].ID {
		t.Error("generated call IDs must be unique within a message")
	}
}

func TestFromModelResponse_Empty(t *testing.T) {
	resp := &ai.ModelResponse{
		Message: &ai.Message{Role: ai.RoleModel},
	}

	_, err := fromModelResponse(resp)
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("error = %v, want ErrEmptyResponse", err)
	}
}
