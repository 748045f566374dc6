// Package embedding 提供本地句向量能力：哈希词袋 + 余弦相似度。
// 纯 CPU 计算，无外部模型依赖，适合作为引擎的可选语义能力。
package embedding

import (
	"hash/fnv"
	"math"
	"strings"
)

type Encoder struct {
	dims int
}

func NewEncoder(dims int) *Encoder {
	if dims <= 0 {
		dims = 256
	}
	return &Encoder{dims: dims}
}

// encode 特征哈希（hashing trick）：词经 FNV 哈希落到固定维度。
// 短消息用 0/1 特征比词频更稳。
func (e *Encoder) encode(text string) []float64 {
	vec := make([]float64, e.dims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(w))
		idx := int(h.Sum32()) % e.dims
		vec[idx] = 1.0
	}
	return vec
}

// Similarity 两段文本向量的余弦相似度，负相关按 0（无关）处理
func (e *Encoder) Similarity(a, b string) float64 {
	va, vb := e.encode(a), e.encode(b)

	var dot, na, nb float64
	for i := range va {
		dot += va[i] * vb[i]
		na += va[i] * va[i]
		nb += vb[i] * vb[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if sim < 0 || math.IsNaN(sim) {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
