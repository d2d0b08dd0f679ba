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
	"fmt"
	"strings"
	"time"

	"lisa-assistant/internal/agent/turn"
	"lisa-assistant/internal/model/llm"
	"lisa-assistant/internal/runtime/session"
	"lisa-assistant/internal/storage/conversation"
	"lisa-assistant/internal/storage/object"
	"lisa-assistant/internal/tool"
	lerrors "lisa-assistant/pkg/errors"
)

const (
	ResumePath        = "interview/resume"
	JobDescPath       = "interview/jobdesc"
	ResultsPrefix     = "interview/results/"
	NoResumeNotice    = "No resume found. Please upload a resume using the app."
	InterviewStarted  = "Interview mode started. I'll be your interviewer today, say hello when you're ready to begin."
	InterviewFinished = "Interview completed! Your responses have been saved successfully. Thank you for participating in the interview process."
)

// DefaultInterviewPrompt {{resume}} 与 {{job_description}} 会被替换
const DefaultInterviewPrompt = `You are an experienced technical interviewer running a spoken mock interview.
Ask one question at a time and wait for the candidate's answer before moving on.
Base your questions on the candidate's resume and, when present, the job description.
Keep every turn short and conversational; your words will be read aloud.
After about eight questions, or when the candidate asks to stop, call end_interview with a concise written assessment covering strengths, weaknesses and a hiring recommendation.

Resume:
{{resume}}

Job description:
{{job_description}}`

// BuildInterviewPrompt 填充面试提示词模板
func BuildInterviewPrompt(template, resume, jobDesc string) string {
	if template == "" {
		template = DefaultInterviewPrompt
	}
	if strings.TrimSpace(jobDesc) == "" {
		jobDesc = "No job description was provided; focus on the resume."
	}
	return strings.NewReplacer("{{resume}}", resume, "{{job_description}}", jobDesc).Replace(template)
}

// StartInterviewTool start_interview_mode（静默）
type StartInterviewTool struct {
	docs     object.Store
	history  conversation.Store
	template string
}

func NewStartInterviewTool(docs object.Store, history conversation.Store, template string) *StartInterviewTool {
	return &StartInterviewTool{docs: docs, history: history, template: template}
}

func (t *StartInterviewTool) Name() string { return "start_interview_mode" }

func (t *StartInterviewTool) Description() string {
	return "Start a mock interview based on the user's uploaded resume and job description."
}

func (t *StartInterviewTool) Schema() tool.Schema { return tool.Schema{Type: "object"} }

func (t *StartInterviewTool) Execute(ctx context.Context, sc *session.Context, args map[string]any) (string, error) {
	resume, err := loadDocument(ctx, t.docs, ResumePath)
	if err != nil && !lerrors.Is(err, lerrors.ErrNotFound) {
		return "", err
	}
	if strings.TrimSpace(resume) == "" {
		if emitErr := sc.Emit(ctx, NoResumeNotice, true); emitErr != nil {
			return "", emitErr
		}
		return "", lerrors.Wrap(lerrors.ErrNotFound, "no resume found")
	}
	jobDesc, err := loadDocument(ctx, t.docs, JobDescPath)
	if err != nil && !lerrors.Is(err, lerrors.ErrNotFound) {
		return "", err
	}

	// 每次开始都是一场新面试
	key := sc.Key(turn.InterviewKeySuffix)
	if err := t.history.Delete(ctx, key); err != nil {
		return "", err
	}
	prompt := BuildInterviewPrompt(t.template, resume, jobDesc)
	if err := t.history.Append(ctx, key, llm.Message{Role: llm.RoleSystem, Content: prompt}); err != nil {
		return "", err
	}
	sc.SetMode(session.ModeInterview)
	if err := sc.Emit(ctx, InterviewStarted, true); err != nil {
		return "", err
	}
	return success(map[string]any{"mode": string(session.ModeInterview), "jobDescription": jobDesc != ""})
}

// InterviewResult 保存到对象存储的面试结果
type InterviewResult struct {
	SessionID string    `json:"sessionId"`
	Result    string    `json:"result"`
	Timestamp time.Time `json:"timestamp"`
}

// EndInterviewTool end_interview（面试模式下的静默工具）
type EndInterviewTool struct {
	docs object.Store
	now  func() time.Time
}

func NewEndInterviewTool(docs object.Store) *EndInterviewTool {
	return &EndInterviewTool{docs: docs, now: time.Now}
}

func (t *EndInterviewTool) Name() string { return "end_interview" }

func (t *EndInterviewTool) Description() string {
	return "End the interview and save the results, including the candidate's performance."
}

func (t *EndInterviewTool) Schema() tool.Schema {
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"result": {Type: "string", Description: "Assessment of the candidate's performance"},
		},
		Required: []string{"result"},
	}
}

func (t *EndInterviewTool) Execute(ctx context.Context, sc *session.Context, args map[string]any) (string, error) {
	now := t.now()
	res := InterviewResult{SessionID: sc.ID, Result: argString(args, "result"), Timestamp: now.UTC()}
	if res.Result == "" {
		res.Result = "Result is empty"
	}
	path := fmt.Sprintf("%s%s-%d.json", ResultsPrefix, sc.ID, now.Unix())
	if err := object.PutJSON(ctx, t.docs, path, res); err != nil {
		return "", err
	}
	sc.SetMode(session.ModeAssistant)
	if err := sc.Emit(ctx, InterviewFinished, false); err != nil {
		return "", err
	}
	return success(map[string]any{"path": path})
}
