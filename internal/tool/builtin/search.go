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

package builtin

import (
	"context"
	"errors"
	"time"

	"github.com/go-resty/resty/v2"

	"lisa-assistant/internal/runtime/session"
	"lisa-assistant/internal/tool"
	"lisa-assistant/pkg/config"
)

const defaultSearchURL = "https://serpapi.com"

// SearchTool web_search：SerpAPI Google 搜索，返回前 3 条
type SearchTool struct {
	client *resty.Client
	apiKey string
}

func NewSearchTool(cfg config.HTTPToolConfig) *SearchTool {
	base := cfg.BaseURL
	if base == "" {
		base = defaultSearchURL
	}
	return &SearchTool{client: newRESTClient(base, 15*time.Second), apiKey: cfg.APIKey}
}

func (t *SearchTool) Name() string { return "web_search" }

func (t *SearchTool) Description() string {
	return "Search the web for current information and return the top results."
}

func (t *SearchTool) Schema() tool.Schema {
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"query": {Type: "string", Description: "Search query"},
		},
		Required: []string{"query"},
	}
}

type searchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet,omitempty"`
}

func (t *SearchTool) Execute(ctx context.Context, sc *session.Context, args map[string]any) (string, error) {
	if t.apiKey == "" {
		return "", errors.New("search API key is not configured")
	}
	query := argString(args, "query")
	var data struct {
		OrganicResults []searchResult `json:"organic_results"`
		Error          string         `json:"error"`
	}
	if err := getJSON(ctx, t.client, "/search", map[string]string{"q": query, "engine": "google", "api_key": t.apiKey}, &data); err != nil {
		return "", err
	}
	if data.Error != "" {
		return "", errors.New(data.Error)
	}
	if len(data.OrganicResults) == 0 {
		return failure("No results found.", map[string]any{"query": query})
	}
	top := data.OrganicResults
	if len(top) > 3 {
		top = top[:3]
	}
	return success(map[string]any{"query": query, "results": top})
}
