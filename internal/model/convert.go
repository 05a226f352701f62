package model

import (
	"encoding/json"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/parleyhq/parley/internal/thread"
)

// toGenkitMessages converts a thread history to Genkit's message model.
// Fresh messages are built on every call so Genkit never shares state
// with the stored history (Genkit may mutate message content in place).
func toGenkitMessages(history []thread.Message) ([]*ai.Message, error) {
	msgs := make([]*ai.Message, 0, len(history))
	for i, msg := range history {
		switch msg.Role {
		case thread.RoleUser:
			msgs = append(msgs, ai.NewUserMessage(ai.NewTextPart(msg.Text)))

		case thread.RoleAssistant:
			parts := make([]*ai.Part, 0, 1+len(msg.ToolCalls))
			if msg.Text != "" {
				parts = append(parts, ai.NewTextPart(msg.Text))
			}
			for _, call := range msg.ToolCalls {
				var input any
				if len(call.Args) > 0 {
					if err := json.Unmarshal(call.Args, &input); err != nil {
						return nil, fmt.Errorf("decoding stored args for call %s: %w", call.ID, err)
					}
				}
				parts = append(parts, ai.NewToolRequestPart(&ai.ToolRequest{
					Ref:   call.ID,
					Name:  call.Name,
					Input: input,
				}))
			}
			msgs = append(msgs, ai.NewModelMessage(parts...))

		case thread.RoleTool:
			var output any
			if len(msg.Result) > 0 {
				if err := json.Unmarshal(msg.Result, &output); err != nil {
					return nil, fmt.Errorf("decoding stored result for call %s: %w", msg.ToolCallID, err)
				}
			}
			msgs = append(msgs, ai.NewMessage(ai.RoleTool, nil, ai.NewToolResponsePart(&ai.ToolResponse{
				Ref:    msg.ToolCallID,
				Name:   msg.ToolName,
				Output: output,
			})))

		default:
			return nil, fmt.Errorf("message %d has unknown role %q", i, msg.Role)
		}
	}
	return msgs, nil
}

// fromModelResponse converts a Genkit response to an assistant message.
// Providers do not always supply call refs, so missing ones get
// generated IDs; every call ID within the message is unique either way.
func fromModelResponse(resp *ai.ModelResponse) (thread.Message, error) {
	msg := thread.Message{
		Role: thread.RoleAssistant,
		Text: resp.Text(),
	}

	for _, req := range resp.ToolRequests() {
		args, err := json.Marshal(req.Input)
		if err != nil {
			return thread.Message{}, fmt.Errorf("encoding args for tool %s: %w", req.Name, err)
		}
		id := req.Ref
		if id == "" {
			id = uuid.NewString()
		}
		msg.ToolCalls = append(msg.ToolCalls, thread.ToolCall{
			ID:   id,
			Name: req.Name,
			Args: args,
		})
	}

	if msg.Text == "" && len(msg.ToolCalls) == 0 {
		return thread.Message{}, ErrEmptyResponse
	}
	return msg, nil
}
