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
	"encoding/csv"
	"errors"
	"io"
	"net/mail"
	"path"
	"strings"

	"lisa-assistant/internal/runtime/session"
	"lisa-assistant/internal/storage/object"
	"lisa-assistant/internal/tool"
	lerrors "lisa-assistant/pkg/errors"
)

// UploadsPrefix 用户上传文件所在目录
const UploadsPrefix = "uploads/"

// BulkMailTool send_mail_to_users：读取上传的 csv/txt 地址列表并逐个发信
type BulkMailTool struct {
	objects object.Store
	mailer  Mailer
}

func NewBulkMailTool(objects object.Store, m Mailer) *BulkMailTool {
	return &BulkMailTool{objects: objects, mailer: m}
}

func (t *BulkMailTool) Name() string { return "send_mail_to_users" }

func (t *BulkMailTool) Description() string {
	return "Read all email addresses from an uploaded txt or csv file and send the email to each of them."
}

func (t *BulkMailTool) Schema() tool.Schema {
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"subject":  {Type: "string", Description: "Subject line"},
			"body":     {Type: "string", Description: "Email content"},
			"fileName": {Type: "string", Description: "Name of the uploaded file, e.g. customers.csv"},
		},
		Required: []string{"subject", "body", "fileName"},
	}
}

func (t *BulkMailTool) Execute(ctx context.Context, sc *session.Context, args map[string]any) (string, error) {
	name := path.Base(argString(args, "fileName"))
	rc, err := t.objects.Get(ctx, UploadsPrefix+name)
	if lerrors.Is(err, lerrors.ErrNotFound) {
		return "", lerrors.Wrapf(lerrors.ErrNotFound, "file %s has not been uploaded", name)
	}
	if err != nil {
		return "", err
	}
	defer rc.Close()

	addrs, err := readAddresses(rc, strings.HasSuffix(strings.ToLower(name), ".csv"))
	if err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return failure("No email addresses found in "+name, nil)
	}

	msg := Mail{Subject: argString(args, "subject"), Body: textToHTML(argString(args, "body"))}
	var sent, failed []string
	for _, a := range addrs {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		msg.To = []string{a}
		if err := t.mailer.Send(ctx, msg); err != nil {
			failed = append(failed, a)
			continue
		}
		sent = append(sent, a)
	}
	if len(sent) == 0 {
		return "", errors.New("failed to send email to any recipient")
	}
	return success(map[string]any{"sent": len(sent), "failed": failed, "file": name})
}

// readAddresses csv 取 email 列（无表头时取首列），txt 每行一个；去重并校验格式
func readAddresses(r io.Reader, isCSV bool) ([]string, error) {
	var raw []string
	if isCSV {
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		rows, err := cr.ReadAll()
		if err != nil {
			return nil, lerrors.Wrapf(lerrors.ErrInvalidArg, "parse csv: %v", err)
		}
		col := 0
		if len(rows) > 0 {
			for i, h := range rows[0] {
				if strings.EqualFold(strings.TrimSpace(h), "email") {
					col = i
					rows = rows[1:]
					break
				}
			}
		}
		for _, row := range rows {
			if col < len(row) {
				raw = append(raw, row[col])
			}
		}
	} else {
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		raw = strings.Split(string(b), "\n")
	}

	seen := make(map[string]struct{})
	var out []string
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := mail.ParseAddress(s); err != nil {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}
