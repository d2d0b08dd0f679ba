// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClient_Complete_ToolCalls(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{
			"choices": [{
				"message": {"content": null, "tool_calls": [
					{"id": "call_1", "type": "function", "function": {"name": "get_weather", "arguments": "{\"location\":\"Paris\"}"}}
				]},
				"finish_reason": "tool_calls"
			}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 7}
		}`))
	}))
	defer srv.Close()

	c, err := NewOpenAIClientWithBaseURL("groq", "llama-3.1-8b-instant", "k", srv.URL)
	require.NoError(t, err)
	out, err := c.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleSystem, Content: "sys"}, {Role: RoleUser, Content: "weather in Paris?"}},
		Tools: []ToolDefinition{{
			Name:        "get_weather",
			Description: "weather",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{"location": map[string]any{"type": "string"}}},
		}},
		MaxTokens: 1024,
	})
	require.NoError(t, err)
	require.True(t, out.HasToolCalls())
	assert.Equal(t, "", out.Content)
	assert.Equal(t, ToolCall{ID: "call_1", Name: "get_weather", Arguments: `{"location":"Paris"}`}, out.ToolCalls[0])
	assert.Equal(t, "tool_calls", out.FinishReason)
	assert.Equal(t, 12, out.Usage.PromptTokens)

	assert.Equal(t, "llama-3.1-8b-instant", got["model"])
	assert.Equal(t, "auto", got["tool_choice"])
	tools, _ := got["tools"].([]any)
	require.Len(t, tools, 1)
	fn := tools[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, "get_weather", fn["name"])
}

func TestOpenAIClient_Complete_NoToolsOmitsSchema(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"4"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c, _ := NewOpenAIClientWithBaseURL("openai", "m", "k", srv.URL)
	out, err := c.Complete(context.Background(), CompletionRequest{
		Messages: []Message{
			{Role: RoleAssistant, Content: "ack", ToolCalls: []ToolCall{{ID: "c1", Name: "t", Arguments: "{}"}}},
			{Role: RoleTool, Content: "ok", ToolCallID: "c1", Name: "t"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "4", out.Content)
	assert.False(t, out.HasToolCalls())
	_, hasTools := got["tools"]
	assert.False(t, hasTools)
	msgs := got["messages"].([]any)
	assert.Equal(t, "c1", msgs[1].(map[string]any)["tool_call_id"])
	assert.Equal(t, "function", msgs[0].(map[string]any)["tool_calls"].([]any)[0].(map[string]any)["type"])
}

func TestOpenAIClient_Complete_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad"}`))
	}))
	defer srv.Close()

	c, _ := NewOpenAIClientWithBaseURL("openai", "m", "k", srv.URL)
	_, err := c.Complete(context.Background(), CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestNewClient(t *testing.T) {
	_, err := NewClient("", "groq", "m", "", "")
	assert.Error(t, err, "missing api key")

	c, err := NewClient("", "groq", "m", "k", "http://localhost")
	require.NoError(t, err)
	assert.Equal(t, "groq", c.Provider())
	assert.Equal(t, "m", c.Model())

	_, err = NewClient("claude", "x", "m", "k", "")
	assert.Error(t, err)
}
