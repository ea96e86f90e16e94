package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"atelier/internal/domain/models/chat"
	domainllm "atelier/internal/domain/services/llm"
)

func strPtr(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func TestGenerateResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("expected test-key authorization")
		}

		var body chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if body.Model != "openai/gpt-4o-mini" {
			t.Errorf("expected model openai/gpt-4o-mini, got %q", body.Model)
		}
		if len(body.Messages) != 2 || body.Messages[0].Role != "system" {
			t.Errorf("expected [system, user] messages, got %+v", body.Messages)
		}
		if body.Stream {
			t.Error("non-streaming request must not set stream")
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "gen-123",
			"model": "openai/gpt-4o-mini",
			"choices": [{
				"message": {
					"role": "assistant",
					"content": "Fetching the tree now.",
					"tool_calls": [{
						"id": "call_1",
						"type": "function",
						"function": {"name": "view_tree", "arguments": "{\"path\": \"/\"}"}
					}]
				},
				"finish_reason": "tool_calls"
			}],
			"usage": {"prompt_tokens": 42, "completion_tokens": 17, "total_tokens": 59}
		}`))
	}))
	defer server.Close()

	provider, err := NewProviderWithBaseURL("test-key", server.URL)
	if err != nil {
		t.Fatalf("NewProviderWithBaseURL failed: %v", err)
	}

	resp, err := provider.GenerateResponse(context.Background(), &domainllm.GenerateRequest{
		Model: "openai/gpt-4o-mini",
		Messages: []domainllm.Message{
			{Role: "user", Content: []*chat.TurnBlock{
				{BlockType: chat.BlockTypeText, TextContent: strPtr("Show me the library")},
			}},
		},
		Params: &chat.RequestParams{System: strPtr("You are a librarian.")},
	})
	if err != nil {
		t.Fatalf("GenerateResponse failed: %v", err)
	}

	if len(resp.Content) != 2 {
		t.Fatalf("expected 2 blocks (text + tool_use), got %d", len(resp.Content))
	}
	if resp.Content[0].BlockType != chat.BlockTypeText || deref(resp.Content[0].TextContent) != "Fetching the tree now." {
		t.Errorf("unexpected text block: %+v", resp.Content[0])
	}
	toolBlock := resp.Content[1]
	if toolBlock.BlockType != chat.BlockTypeToolUse {
		t.Fatalf("expected tool_use block, got %q", toolBlock.BlockType)
	}
	if toolBlock.Content["tool_name"] != "view_tree" || toolBlock.Content["tool_use_id"] != "call_1" {
		t.Errorf("unexpected tool_use content: %+v", toolBlock.Content)
	}
	input, _ := toolBlock.Content["input"].(map[string]interface{})
	if input["path"] != "/" {
		t.Errorf("expected parsed tool input, got %+v", toolBlock.Content["input"])
	}

	if resp.StopReason != "tool_use" {
		t.Errorf("expected stop reason tool_use, got %q", resp.StopReason)
	}
	if resp.InputTokens != 42 || resp.OutputTokens != 17 {
		t.Errorf("unexpected usage: in=%d out=%d", resp.InputTokens, resp.OutputTokens)
	}
}

func TestGenerateResponseAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limited"}}`))
	}))
	defer server.Close()

	provider, err := NewProviderWithBaseURL("test-key", server.URL)
	if err != nil {
		t.Fatalf("NewProviderWithBaseURL failed: %v", err)
	}

	_, err = provider.GenerateResponse(context.Background(), &domainllm.GenerateRequest{
		Model: "openai/gpt-4o-mini",
		Messages: []domainllm.Message{
			{Role: "user", Content: []*chat.TurnBlock{
				{BlockType: chat.BlockTypeText, TextContent: strPtr("hi")},
			}},
		},
	})
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
	if got := err.Error(); !strings.Contains(got, "status 429") {
		t.Errorf("expected status in error, got %q", got)
	}
}

func TestStreamResponse(t *testing.T) {
	chunks := []string{
		`{"choices":[{"delta":{"reasoning":"Consider "},"finish_reason":null}]}`,
		`{"choices":[{"delta":{"reasoning":"the request."},"finish_reason":null}]}`,
		`{"choices":[{"delta":{"content":"Let me "},"finish_reason":null}]}`,
		`{"choices":[{"delta":{"content":"look."},"finish_reason":null}]}`,
		`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_9","function":{"name":"view_tree","arguments":""}}]},"finish_reason":null}]}`,
		`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"path\":"}}]},"finish_reason":null}]}`,
		`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"/\"}"}}]},"finish_reason":null}]}`,
		`{"choices":[{"delta":{},"finish_reason":"tool_calls"}]}`,
		`{"choices":[],"usage":{"prompt_tokens":10,"completion_tokens":25,"total_tokens":35,"completion_tokens_details":{"reasoning_tokens":8}}}`,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if !body.Stream {
			t.Error("streaming request must set stream")
		}
		if body.StreamOptions == nil || !body.StreamOptions.IncludeUsage {
			t.Error("streaming request must ask for usage")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, ": OPENROUTER PROCESSING\n\n")
		for _, chunk := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", chunk)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
	defer server.Close()

	provider, err := NewProviderWithBaseURL("test-key", server.URL)
	if err != nil {
		t.Fatalf("NewProviderWithBaseURL failed: %v", err)
	}

	events, err := provider.StreamResponse(context.Background(), &domainllm.GenerateRequest{
		Model: "openai/gpt-4o-mini",
		Messages: []domainllm.Message{
			{Role: "user", Content: []*chat.TurnBlock{
				{BlockType: chat.BlockTypeText, TextContent: strPtr("Show me the library")},
			}},
		},
	})
	if err != nil {
		t.Fatalf("StreamResponse failed: %v", err)
	}

	var deltas []*chat.TurnBlockDelta
	var metadata *domainllm.StreamMetadata
	for event := range events {
		if event.Error != nil {
			t.Fatalf("unexpected stream error: %v", event.Error)
		}
		if event.Delta != nil {
			deltas = append(deltas, event.Delta)
		}
		if event.Metadata != nil {
			metadata = event.Metadata
		}
	}

	// thinking x2, text x2, tool_call_start, input_json x2
	if len(deltas) != 7 {
		t.Fatalf("expected 7 deltas, got %d: %+v", len(deltas), deltas)
	}

	if deref(deltas[0].BlockType) != chat.BlockTypeThinking || deltas[0].BlockIndex != 0 {
		t.Errorf("expected thinking block start at index 0, got %+v", deltas[0])
	}
	if deltas[1].BlockType != nil || deltas[1].DeltaType != chat.DeltaTypeThinking {
		t.Errorf("expected plain thinking delta, got %+v", deltas[1])
	}
	if deref(deltas[2].BlockType) != chat.BlockTypeText || deltas[2].BlockIndex != 1 {
		t.Errorf("expected text block start at index 1, got %+v", deltas[2])
	}
	start := deltas[4]
	if start.DeltaType != chat.DeltaTypeToolCallStart || start.BlockIndex != 2 {
		t.Fatalf("expected tool_call_start at index 2, got %+v", start)
	}
	if deref(start.ToolCallID) != "call_9" || deref(start.ToolCallName) != "view_tree" {
		t.Errorf("unexpected tool call identity: %+v", start)
	}
	args := deref(deltas[5].InputJSONDelta) + deref(deltas[6].InputJSONDelta)
	if args != `{"path":"/"}` {
		t.Errorf("expected accumulated arguments, got %q", args)
	}

	if metadata == nil {
		t.Fatal("expected final metadata event")
	}
	if metadata.StopReason != "tool_use" {
		t.Errorf("expected stop reason tool_use, got %q", metadata.StopReason)
	}
	if metadata.InputTokens != 10 || metadata.OutputTokens != 25 {
		t.Errorf("unexpected usage: in=%d out=%d", metadata.InputTokens, metadata.OutputTokens)
	}
	if metadata.ResponseMetadata["reasoning_tokens"] != 8 {
		t.Errorf("expected reasoning_tokens 8, got %v", metadata.ResponseMetadata["reasoning_tokens"])
	}
}

func TestConvertToChatMessages(t *testing.T) {
	messages := []domainllm.Message{
		{Role: "user", Content: []*chat.TurnBlock{
			{BlockType: chat.BlockTypeText, TextContent: strPtr("List the folder")},
		}},
		{Role: "assistant", Content: []*chat.TurnBlock{
			{BlockType: chat.BlockTypeThinking, TextContent: strPtr("internal reasoning")},
			{BlockType: chat.BlockTypeText, TextContent: strPtr("Calling the tool.")},
			{BlockType: chat.BlockTypeToolUse, Content: map[string]interface{}{
				"tool_use_id": "call_1",
				"tool_name":   "view_tree",
				"input":       map[string]interface{}{"path": "/"},
			}},
		}},
		{Role: "user", Content: []*chat.TurnBlock{
			{BlockType: chat.BlockTypeToolResult, TextContent: strPtr("- notes/"), Content: map[string]interface{}{
				"tool_use_id": "call_1",
			}},
		}},
	}

	result, err := convertToChatMessages(messages, strPtr("system prompt"))
	if err != nil {
		t.Fatalf("convertToChatMessages failed: %v", err)
	}

	// system, user, assistant(+tool_calls), tool
	if len(result) != 4 {
		t.Fatalf("expected 4 messages, got %d: %+v", len(result), result)
	}
	if result[0].Role != "system" || result[0].Content != "system prompt" {
		t.Errorf("unexpected system message: %+v", result[0])
	}
	assistant := result[2]
	if assistant.Role != "assistant" || assistant.Content != "Calling the tool." {
		t.Errorf("thinking must be dropped and text kept: %+v", assistant)
	}
	if len(assistant.ToolCalls) != 1 || assistant.ToolCalls[0].ID != "call_1" {
		t.Fatalf("expected one tool call, got %+v", assistant.ToolCalls)
	}
	if assistant.ToolCalls[0].Function.Arguments != `{"path":"/"}` {
		t.Errorf("unexpected encoded arguments: %q", assistant.ToolCalls[0].Function.Arguments)
	}
	toolMsg := result[3]
	if toolMsg.Role != "tool" || toolMsg.ToolCallID != "call_1" || toolMsg.Content != "- notes/" {
		t.Errorf("unexpected tool message: %+v", toolMsg)
	}
}

func TestMapFinishReason(t *testing.T) {
	cases := map[string]string{
		"stop":           "end_turn",
		"":               "end_turn",
		"length":         "max_tokens",
		"tool_calls":     "tool_use",
		"content_filter": "content_filter",
	}
	for in, want := range cases {
		if got := mapFinishReason(in); got != want {
			t.Errorf("mapFinishReason(%q) = %q, want %q", in, got, want)
		}
	}
}
