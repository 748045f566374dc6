package service

import "strings"

// RenderTemplate 用 values 填充模板中的 {key} 占位符。
// 缺失的键原样保留，不报错。
func RenderTemplate(template string, values map[string]string) string {
	if template == "" || len(values) == 0 {
		return template
	}
	out := template
	for k, v := range values {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}
