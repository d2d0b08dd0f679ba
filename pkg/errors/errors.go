// Package errors 提供统一错误辅助，不依赖 internal
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// 常用哨兵错误
var (
	ErrNotFound   = errors.New("not found")
	ErrInvalidArg = errors.New("invalid argument")
	// ErrUnavailable 外部依赖（LLM、存储）不可用或超时
	ErrUnavailable = errors.New("unavailable")
	// ErrBusy 会话正在处理另一轮对话
	ErrBusy = errors.New("busy")
)

// Wrap 包装错误并附加消息
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 带格式的 Wrap
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is errors.Is 的转发，调用方无需同时引入标准库 errors
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// HTTPStatus 按 sentinel 映射 HTTP 状态码，未知错误为 500
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case Is(err, ErrInvalidArg):
		return http.StatusBadRequest
	case Is(err, ErrNotFound):
		return http.StatusNotFound
	case Is(err, ErrBusy), Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
