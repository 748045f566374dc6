package utils

import "strings"

// 规范化用户确认输入
func NormalizeConfirm(input string) string {
	in := NormalizeText(input)
	switch in {
	case "yes", "y", "yeah", "yep", "sure", "ok", "okay", "right", "correct", "that's right", "confirm":
		return "confirm"
	case "no", "n", "nope", "wrong", "not really":
		return "deny"
	}
	return in
}

// 规范化字符串：小写、去首尾空白、压缩连续空白
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}
