package engine

import "strings"

// 内置同义词表，表值均为不动点，保证 Canonical 幂等
var defaultSynonyms = map[string]string{
	// 医疗
	"physician": "doctor",
	"doc":       "doctor",
	"md":        "doctor",

	// 出行
	"cab":  "taxi",
	"ride": "taxi",
	"uber": "taxi",

	// 通用
	"hi":       "hello",
	"hey":      "hello",
	"thanks":   "thank_you",
	"thankyou": "thank_you",
	"time":     "hours",
}

// SynonymTable 静态同义词映射，分类期间只读
type SynonymTable struct {
	m map[string]string
}

// NewSynonymTable 基于内置表构造，custom 可覆盖或追加条目
func NewSynonymTable(custom map[string]string) *SynonymTable {
	m := make(map[string]string, len(defaultSynonyms)+len(custom))
	for k, v := range defaultSynonyms {
		m[k] = v
	}
	for k, v := range custom {
		if k == "" || v == "" {
			continue
		}
		m[strings.ToLower(k)] = strings.ToLower(v)
	}
	return &SynonymTable{m: m}
}

// Canonical 返回 token 的规范形式，查不到则原样返回
func (t *SynonymTable) Canonical(token string) string {
	if token == "" {
		return token
	}
	tok := strings.ToLower(token)
	if c, ok := t.m[tok]; ok {
		return c
	}
	return tok
}
