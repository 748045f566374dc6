package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"intent-bot/model"
)

func newTestScorer(mode string) *Scorer {
	return NewScorer(NewSynonymTable(nil), 80, mode)
}

func TestScoreIdenticalText(t *testing.T) {
	s := newTestScorer(model.ScoringModeWeighted)

	msg := Tokenize("what are your hours")
	assert.InDelta(t, 1.0, s.Score(msg, Tokenize("what are your hours")), 1e-9)
}

func TestScoreRange(t *testing.T) {
	s := newTestScorer(model.ScoringModeWeighted)

	pairs := [][2]string{
		{"hello there", "hello there"},
		{"what time do you open", "what are your hours"},
		{"random gibberish", "completely different phrase"},
		{"", "hello"},
		{"hello", ""},
	}
	for _, p := range pairs {
		got := s.Score(Tokenize(p[0]), Tokenize(p[1]))
		assert.GreaterOrEqual(t, got, 0.0, "score(%q,%q)", p[0], p[1])
		assert.LessOrEqual(t, got, 1.0, "score(%q,%q)", p[0], p[1])
	}
}

func TestScoreEmptyPhrase(t *testing.T) {
	s := newTestScorer(model.ScoringModeWeighted)

	assert.Zero(t, s.Score(Tokenize("hello"), nil))
	assert.Zero(t, s.Score(Tokenize("hello"), Tokenize("?!")))
}

func TestScoreSynonymEqualsLexical(t *testing.T) {
	s := newTestScorer(model.ScoringModeWeighted)

	phrase := Tokenize("hello there")
	synScore := s.Score(Tokenize("hi there"), phrase)
	unrelated := s.Score(Tokenize("random unrelated"), phrase)

	// hi -> hello 走规范化相等，得满分
	assert.InDelta(t, 1.0, synScore, 1e-9)
	assert.Greater(t, synScore, unrelated)
}

func TestScoreFuzzyFloor(t *testing.T) {
	s := newTestScorer(model.ScoringModeWeighted)

	// cat/car 相似度 0.667，低于 0.80 阈值，必须记 0 而不是漏部分分
	assert.Zero(t, s.Score([]string{"car"}, []string{"cat"}))

	// hours/hourse 相似度 0.833，过线后按实际值计
	got := s.Score([]string{"hourse"}, []string{"hours"})
	assert.InDelta(t, 1.0-1.0/6.0, got, 1e-9)
}

func TestScoreUnmatchedTokenFullyPenalized(t *testing.T) {
	s := newTestScorer(model.ScoringModeWeighted)

	// 短语两个全权 token，只命中一个 -> 0.5
	got := s.Score(Tokenize("hours"), Tokenize("opening hours"))
	assert.InDelta(t, 0.5, got, 1e-9)
}

func TestScoreMonotonicOnOverlap(t *testing.T) {
	s := newTestScorer(model.ScoringModeWeighted)

	phrase := Tokenize("what are your opening hours today")
	base := s.Score(Tokenize("opening"), phrase)
	more := s.Score(Tokenize("opening hours"), phrase)
	most := s.Score(Tokenize("opening hours today"), phrase)

	assert.GreaterOrEqual(t, more, base)
	assert.GreaterOrEqual(t, most, more)
}

func TestScoreShortTokenWeight(t *testing.T) {
	s := newTestScorer(model.ScoringModeWeighted)

	// "faq"（≤3 字符，权重 0.6）+"page"（权重 1.0），只命中 page
	got := s.Score(Tokenize("page"), []string{"faq", "page"})
	assert.InDelta(t, 1.0/1.6, got, 1e-9)
}

func TestScoreSimpleMode(t *testing.T) {
	s := newTestScorer(model.ScoringModeSimple)

	// 相同 token 乱序，token-sort 比值为 1
	assert.InDelta(t, 1.0, s.Score(Tokenize("hours opening"), Tokenize("opening hours")), 1e-9)
	assert.Zero(t, s.Score(nil, Tokenize("opening hours")))

	got := s.Score(Tokenize("zzz qqq"), Tokenize("opening hours"))
	assert.GreaterOrEqual(t, got, 0.0)
	assert.LessOrEqual(t, got, 1.0)
}

func TestLevRatio(t *testing.T) {
	assert.InDelta(t, 1.0, levRatio("same", "same"), 1e-9)
	assert.InDelta(t, 0.0, levRatio("", "abcd"), 1e-9)
	assert.InDelta(t, 2.0/3.0, levRatio("cat", "car"), 1e-9)
}
