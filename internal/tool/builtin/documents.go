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
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	"lisa-assistant/internal/storage/object"
	lerrors "lisa-assistant/pkg/errors"
)

// documentExts 按顺序尝试的扩展名
var documentExts = []string{".pdf", ".txt"}

// loadDocument 读取 base.pdf 或 base.txt 的正文；都不存在时返回 ErrNotFound
func loadDocument(ctx context.Context, store object.Store, base string) (string, error) {
	for _, ext := range documentExts {
		data, err := object.ReadAll(ctx, store, base+ext)
		if lerrors.Is(err, lerrors.ErrNotFound) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("read %s%s: %w", base, ext, err)
		}
		if ext == ".pdf" {
			return extractPDFText(data)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return "", lerrors.Wrapf(lerrors.ErrNotFound, "document %s", base)
}

// extractPDFText 按页提取 PDF 正文
func extractPDFText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	reader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("打开 PDF failed: %w", err)
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("获取页数失败: %w", err)
	}

	var pages []string
	for i := 1; i <= numPages; i++ {
		page, err := reader.GetPage(i)
		if err != nil {
			return "", fmt.Errorf("获取第 %d 页失败: %w", i, err)
		}
		ex, err := extractor.New(page)
		if err != nil {
			return "", fmt.Errorf("创建第 %d 页提取器失败: %w", i, err)
		}
		text, err := ex.ExtractText()
		if err != nil {
			return "", fmt.Errorf("提取第 %d 页文本失败: %w", i, err)
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}
