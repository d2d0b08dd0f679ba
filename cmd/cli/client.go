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

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

// Message 历史消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Frame 一轮对话中推送的帧
type Frame struct {
	Role          string `json:"role"`
	Content       string `json:"content"`
	SessionActive bool   `json:"sessionActive"`
}

// TurnResult POST /api/sessions/:id/turns 的响应
type TurnResult struct {
	Reply  string  `json:"reply"`
	Silent bool    `json:"silent"`
	Events []Frame `json:"events"`
	Error  string  `json:"error"`
}

func apiBaseURL() string {
	if u := os.Getenv("LISA_API_URL"); u != "" {
		return u
	}
	return "http://localhost:8080"
}

// Client 访问 LISA HTTP API
type Client struct {
	rc *resty.Client
}

func newClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = apiBaseURL()
	}
	return &Client{rc: resty.New().
		SetBaseURL(baseURL).
		SetTimeout(90*time.Second).
		SetHeader("Content-Type", "application/json")}
}

func (c *Client) health() (map[string]interface{}, error) {
	var out map[string]interface{}
	resp, err := c.rc.R().SetResult(&out).Get("/api/health")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("GET /api/health: %s", resp.String())
	}
	return out, nil
}

func (c *Client) createSession() (string, error) {
	var out struct {
		SessionID string `json:"session_id"`
	}
	resp, err := c.rc.R().SetResult(&out).Post("/api/sessions")
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != http.StatusCreated {
		return "", fmt.Errorf("POST /api/sessions: %s", resp.String())
	}
	return out.SessionID, nil
}

// sendTurn 失败的轮次（500）仍返回 TurnResult，Error 为兜底文案
func (c *Client) sendTurn(sessionID, content string) (*TurnResult, error) {
	var out TurnResult
	resp, err := c.rc.R().
		SetBody(map[string]string{"content": content}).
		SetResult(&out).
		SetError(&out).
		Post("/api/sessions/" + sessionID + "/turns")
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode() {
	case http.StatusOK, http.StatusInternalServerError:
		return &out, nil
	default:
		return nil, fmt.Errorf("POST turns: %s", resp.String())
	}
}

func (c *Client) history(sessionID, mode string) ([]Message, error) {
	var out struct {
		Messages []Message `json:"messages"`
	}
	resp, err := c.rc.R().
		SetQueryParam("mode", mode).
		SetResult(&out).
		Get("/api/sessions/" + sessionID + "/messages")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("GET messages: %s", resp.String())
	}
	return out.Messages, nil
}

func (c *Client) endSession(sessionID string) error {
	resp, err := c.rc.R().Delete("/api/sessions/" + sessionID)
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusNoContent {
		return fmt.Errorf("DELETE session: %s", resp.String())
	}
	return nil
}

func prettyJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
