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
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"lisa-assistant/internal/runtime/session"
	"lisa-assistant/internal/tool"
	"lisa-assistant/pkg/config"
	"lisa-assistant/pkg/utils"
)

const defaultNewsURL = "https://newsapi.org/v2"

// NewsTool get_latest_news：NewsAPI /everything，按发布时间排序
type NewsTool struct {
	client *resty.Client
	apiKey string
}

func NewNewsTool(cfg config.HTTPToolConfig) *NewsTool {
	base := cfg.BaseURL
	if base == "" {
		base = defaultNewsURL
	}
	return &NewsTool{client: newRESTClient(base, 15*time.Second), apiKey: cfg.APIKey}
}

func (t *NewsTool) Name() string { return "get_latest_news" }

func (t *NewsTool) Description() string {
	return "Get the latest news articles about a topic."
}

func (t *NewsTool) Schema() tool.Schema {
	min, max := tool.Range(1, 20)
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"topic": {Type: "string", Description: "News topic or keywords"},
			"count": {Type: "integer", Minimum: min, Maximum: max, Description: "Number of articles, defaults to 5"},
		},
		Required: []string{"topic"},
	}
}

type newsArticle struct {
	Title       string `json:"title"`
	Source      string `json:"source"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Description string `json:"description"`
}

func (t *NewsTool) Execute(ctx context.Context, sc *session.Context, args map[string]any) (string, error) {
	if t.apiKey == "" {
		return "", errors.New("news API key is not configured")
	}
	topic := argString(args, "topic")
	count := utils.ClampInt(argInt(args, "count", 5), 1, 20)

	var data struct {
		Status   string `json:"status"`
		Message  string `json:"message"`
		Articles []struct {
			Title  string `json:"title"`
			Source struct {
				Name string `json:"name"`
			} `json:"source"`
			URL         string `json:"url"`
			PublishedAt string `json:"publishedAt"`
			Description string `json:"description"`
		} `json:"articles"`
	}
	params := map[string]string{
		"q":        topic,
		"sortBy":   "publishedAt",
		"pageSize": strconv.Itoa(count),
		"apiKey":   t.apiKey,
	}
	if err := getJSON(ctx, t.client, "/everything", params, &data); err != nil {
		return "", err
	}
	if data.Status == "error" {
		return "", errors.New(utils.CoalesceString(data.Message, "news API error"))
	}
	out := make([]newsArticle, 0, len(data.Articles))
	for _, a := range data.Articles {
		if len(out) == count {
			break
		}
		out = append(out, newsArticle{
			Title:       a.Title,
			Source:      a.Source.Name,
			URL:         a.URL,
			PublishedAt: a.PublishedAt,
			Description: a.Description,
		})
	}
	if len(out) == 0 {
		return failure("No news articles found.", map[string]any{"topic": topic})
	}
	return success(map[string]any{"topic": topic, "articles": out})
}
