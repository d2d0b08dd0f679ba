// Package utils 通用小工具，不依赖 internal
package utils

import "unicode/utf8"

// CoalesceString 返回第一个非空字符串
func CoalesceString(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}

// DefaultInt 若 v 为 0 则返回 defaultVal
func DefaultInt(v, defaultVal int) int {
	if v == 0 {
		return defaultVal
	}
	return v
}

// ClampInt 将 v 限制在 [lo, hi]
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Truncate 截断到最多 n 个字符（按 rune 计），超出部分以 "..." 结尾
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
