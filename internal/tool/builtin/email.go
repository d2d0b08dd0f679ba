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
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"lisa-assistant/internal/runtime/session"
	"lisa-assistant/internal/tool"
	"lisa-assistant/pkg/config"
)

// Mail 一封待发送的邮件，Body 为 HTML
type Mail struct {
	To      []string
	Subject string
	Body    string
}

// Mailer 发信抽象，SMTP 之外便于测试替换
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// SMTPMailer 基于 go-mail 的 SMTP 发信
type SMTPMailer struct {
	cfg config.EmailConfig
}

// NewMailer host 为空时返回未配置的 Mailer，调用时报错
func NewMailer(cfg config.EmailConfig) Mailer {
	if cfg.Host == "" {
		return unconfiguredMailer{}
	}
	return &SMTPMailer{cfg: cfg}
}

func (s *SMTPMailer) Send(ctx context.Context, m Mail) error {
	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return fmt.Errorf("invalid sender %q: %w", s.cfg.From, err)
	}
	if err := msg.To(m.To...); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextHTML, m.Body)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(20 * time.Second),
	}
	if s.cfg.Port == 0 {
		opts[0] = mail.WithPort(587)
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

type unconfiguredMailer struct{}

func (unconfiguredMailer) Send(context.Context, Mail) error {
	return errors.New("email is not configured")
}

// EmailTool send_email
type EmailTool struct {
	mailer Mailer
}

func NewEmailTool(m Mailer) *EmailTool { return &EmailTool{mailer: m} }

func (t *EmailTool) Name() string { return "send_email" }

func (t *EmailTool) Description() string {
	return "Send an email on the user's behalf."
}

func (t *EmailTool) Schema() tool.Schema {
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"to":      {Type: "string", Description: "Recipient address, or several separated by commas"},
			"subject": {Type: "string", Description: "Email subject"},
			"body":    {Type: "string", Description: "Plain text body"},
		},
		Required: []string{"to", "subject", "body"},
	}
}

func (t *EmailTool) Execute(ctx context.Context, sc *session.Context, args map[string]any) (string, error) {
	to := splitAddresses(argString(args, "to"))
	if len(to) == 0 {
		return "", errors.New("no recipient given")
	}
	subject := argString(args, "subject")
	body := argString(args, "body")
	if err := t.mailer.Send(ctx, Mail{To: to, Subject: subject, Body: textToHTML(body)}); err != nil {
		return "", err
	}
	return success(map[string]any{"to": to, "subject": subject, "message": "Email sent successfully."})
}

func splitAddresses(s string) []string {
	var out []string
	for _, p := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// textToHTML 转义并按段落换行
func textToHTML(s string) string {
	paras := strings.Split(html.EscapeString(s), "\n\n")
	for i, p := range paras {
		paras[i] = "<p>" + strings.ReplaceAll(p, "\n", "<br>") + "</p>"
	}
	return strings.Join(paras, "\n")
}
