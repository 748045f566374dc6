package engine

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

// 短语 token 权重：停用词低权、短词中权、内容词全权
const (
	weightStopWord = 0.2
	weightShort    = 0.6
	weightFull     = 1.0
)

// Scorer 单条训练短语与用户消息的相似度打分。
// weighted 模式是正式算法：同义词规范化 + 加权 token 重叠 + 模糊兜底；
// simple 模式是备选算法：token-set/token-sort 比值取大，两者不混用。
type Scorer struct {
	syn *SynonymTable
	// 0-100，token 级模糊相似度低于此值按 0 计，避免弱匹配漏分
	fuzzyThreshold float64
	mode           string
}

func NewScorer(syn *SynonymTable, fuzzyThreshold float64, mode string) *Scorer {
	if syn == nil {
		syn = NewSynonymTable(nil)
	}
	return &Scorer{
		syn:            syn,
		fuzzyThreshold: fuzzyThreshold,
		mode:           mode,
	}
}

// Score 返回 [0,1] 相似度；短语 token 为空恒为 0
func (s *Scorer) Score(msgTokens, phraseTokens []string) float64 {
	if len(phraseTokens) == 0 {
		return 0
	}
	if s.mode == "simple" {
		return s.scoreSimple(msgTokens, phraseTokens)
	}
	return s.scoreWeighted(msgTokens, phraseTokens)
}

func (s *Scorer) scoreWeighted(msgTokens, phraseTokens []string) float64 {
	totalWeight := 0.0
	matchedWeight := 0.0

	for _, pTok := range phraseTokens {
		w := tokenWeight(pTok)
		totalWeight += w

		best := 0.0
		pCan := s.syn.Canonical(pTok)
		for _, uTok := range msgTokens {
			// 规范化相等（含同义词）直接满分
			if pCan == s.syn.Canonical(uTok) {
				best = 1.0
				break
			}
			if r := levRatio(pTok, uTok); r > best {
				best = r
			}
		}
		// 模糊下限：弱匹配不给部分分
		if best*100 < s.fuzzyThreshold {
			best = 0
		}
		matchedWeight += w * best
	}

	if totalWeight == 0 {
		return 0
	}
	score := matchedWeight / totalWeight
	if score > 1 {
		score = 1
	}
	return score
}

// scoreSimple 备选算法：对两份 token 直接做 token-set 与 token-sort
// 模糊比值，取大者。精度低于 weighted，胜在实现简单。
func (s *Scorer) scoreSimple(msgTokens, phraseTokens []string) float64 {
	if len(msgTokens) == 0 {
		return 0
	}
	setRatio := tokenSetRatio(msgTokens, phraseTokens)
	sortRatio := tokenSortRatio(msgTokens, phraseTokens)
	if setRatio > sortRatio {
		return setRatio
	}
	return sortRatio
}

func tokenWeight(tok string) float64 {
	switch {
	case isStopWord(tok):
		return weightStopWord
	case len(tok) <= 3:
		return weightShort
	default:
		return weightFull
	}
}

// levRatio 归一化编辑距离相似度，1 - dist/maxlen
func levRatio(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	if maxLen == 0 {
		return 0
	}
	d := matchr.Levenshtein(a, b)
	r := 1 - float64(d)/float64(maxLen)
	if r < 0 {
		return 0
	}
	return r
}

func tokenSortRatio(a, b []string) float64 {
	return levRatio(sortedJoin(a), sortedJoin(b))
}

// tokenSetRatio 交集作公共前缀，三段两两比值取大
func tokenSetRatio(a, b []string) float64 {
	setA, setB := TokenSet(a), TokenSet(b)

	var inter, onlyA, onlyB []string
	for t := range setA {
		if _, ok := setB[t]; ok {
			inter = append(inter, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range setB {
		if _, ok := setA[t]; !ok {
			onlyB = append(onlyB, t)
		}
	}
	sort.Strings(inter)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	s0 := strings.Join(inter, " ")
	s1 := strings.TrimSpace(s0 + " " + strings.Join(onlyA, " "))
	s2 := strings.TrimSpace(s0 + " " + strings.Join(onlyB, " "))

	best := levRatio(s0, s1)
	if r := levRatio(s0, s2); r > best {
		best = r
	}
	if r := levRatio(s1, s2); r > best {
		best = r
	}
	return best
}

func sortedJoin(tokens []string) string {
	cp := make([]string, len(tokens))
	copy(cp, tokens)
	sort.Strings(cp)
	return strings.Join(cp, " ")
}
