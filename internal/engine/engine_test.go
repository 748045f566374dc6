package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intent-bot/model"
)

// fakeCorpus 模拟存储层的快照语义：站点专属在前、全局在后
type fakeCorpus struct {
	intents []model.Intent
	err     error
}

func (f *fakeCorpus) IntentsForSite(_ context.Context, siteID int) ([]model.Intent, error) {
	if f.err != nil {
		return nil, f.err
	}
	var site, global []model.Intent
	for _, it := range f.intents {
		if !it.Scope.Matches(siteID) {
			continue
		}
		if it.Scope.Global {
			global = append(global, it)
		} else {
			site = append(site, it)
		}
	}
	return append(site, global...), nil
}

type fakeSink struct {
	records []string
	err     error
}

func (f *fakeSink) RecordUnanswered(_ context.Context, _ int, message string) error {
	f.records = append(f.records, message)
	return f.err
}

type fakeNotifier struct {
	calls int
	err   error
}

func (f *fakeNotifier) NotifyHandoff(_ context.Context, _, _ string, _ int) error {
	f.calls++
	return f.err
}

func testConfig(t *testing.T) model.EngineConfig {
	t.Helper()
	var cfg model.EngineConfig
	require.NoError(t, cfg.Normalize())
	return cfg
}

func newTestEngine(t *testing.T, corpus CorpusProvider, sink UnansweredSink, notifier HandoffNotifier) *Engine {
	t.Helper()
	return NewEngine(testConfig(t), NewSynonymTable(nil), corpus, sink, notifier, nil)
}

func globalIntent(name string, typ model.IntentType, phrases ...string) model.Intent {
	return model.Intent{Name: name, Scope: model.GlobalScope(), Type: typ, Phrases: phrases}
}

func TestClassifyEmptyMessage(t *testing.T) {
	sink := &fakeSink{}
	eng := newTestEngine(t, &fakeCorpus{intents: []model.Intent{
		globalIntent("greeting", model.IntentInfo, "hello"),
	}}, sink, nil)

	for _, msg := range []string{"", "   ", "?!..."} {
		outcome, intent := eng.Classify(context.Background(), msg, 1)
		assert.Nil(t, intent)
		assert.Equal(t, model.TierFallback, outcome.Tier)
		assert.Equal(t, string(model.IntentUnknown), outcome.IntentName)
		assert.Zero(t, outcome.Confidence)
	}
	// 无 token 的消息不计入未命中
	assert.Empty(t, sink.records)
}

func TestClassifyEmptyCorpus(t *testing.T) {
	sink := &fakeSink{}
	eng := newTestEngine(t, &fakeCorpus{}, sink, nil)

	outcome, intent := eng.Classify(context.Background(), "what are your hours", 1)
	assert.Nil(t, intent)
	assert.Equal(t, model.TierFallback, outcome.Tier)
	assert.Zero(t, outcome.Confidence)
	assert.Len(t, sink.records, 1)
}

func TestClassifyCorpusErrorDegrades(t *testing.T) {
	eng := newTestEngine(t, &fakeCorpus{err: errors.New("redis down")}, nil, nil)

	outcome, intent := eng.Classify(context.Background(), "hello", 1)
	assert.Nil(t, intent)
	assert.Equal(t, model.TierFallback, outcome.Tier)
}

func TestClassifyGibberish(t *testing.T) {
	sink := &fakeSink{}
	eng := newTestEngine(t, &fakeCorpus{intents: []model.Intent{
		globalIntent("greeting", model.IntentInfo, "hello"),
		globalIntent("business_hours", model.IntentInfo, "what are your hours"),
	}}, sink, nil)

	outcome, intent := eng.Classify(context.Background(), "asdkj qweiou", 1)
	assert.Nil(t, intent)
	assert.Equal(t, model.TierFallback, outcome.Tier)
	assert.Zero(t, outcome.Confidence)
	assert.Equal(t, []string{"asdkj qweiou"}, sink.records)
}

func TestClassifyBusinessHoursScenario(t *testing.T) {
	eng := newTestEngine(t, &fakeCorpus{intents: []model.Intent{
		globalIntent("business_hours", model.IntentInfo, "what are your hours"),
	}}, nil, nil)

	// time -> hours 同义词补上内容词重叠，必须过 MEDIUM 线
	outcome, intent := eng.Classify(context.Background(), "what time do you open", 7)
	require.NotNil(t, intent)
	assert.Equal(t, "business_hours", outcome.IntentName)
	assert.Contains(t, []model.Tier{model.TierMedium, model.TierHigh}, outcome.Tier)
	assert.GreaterOrEqual(t, outcome.Confidence, 0.5)
}

func TestClassifyHighTier(t *testing.T) {
	it := globalIntent("business_hours", model.IntentInfo, "what are your hours")
	it.Confidence = 1.0
	eng := newTestEngine(t, &fakeCorpus{intents: []model.Intent{it}}, nil, nil)

	outcome, _ := eng.Classify(context.Background(), "what are your hours", 7)
	assert.Equal(t, model.TierHigh, outcome.Tier)
	assert.InDelta(t, 1.0, outcome.Confidence, 1e-9)
	assert.False(t, outcome.Handoff)
}

func TestClassifyDefaultMultiplierYieldsMedium(t *testing.T) {
	eng := newTestEngine(t, &fakeCorpus{intents: []model.Intent{
		globalIntent("business_hours", model.IntentInfo, "what are your hours"),
	}}, nil, nil)

	// 原始分 1.0 × 默认系数 0.8 = 0.8，落在 [0.7, 0.85)
	outcome, _ := eng.Classify(context.Background(), "what are your hours", 7)
	assert.Equal(t, model.TierMedium, outcome.Tier)
	assert.InDelta(t, 0.8, outcome.Confidence, 1e-9)
}

func TestClassifyPerIntentThreshold(t *testing.T) {
	it := globalIntent("appointments", model.IntentLead, "book an appointment today please")
	it.Threshold = 0.4
	eng := newTestEngine(t, &fakeCorpus{intents: []model.Intent{it}}, nil, nil)

	// 部分命中：全局线 0.7 下是 FALLBACK，该意图自己的 0.4 线下是 MEDIUM
	outcome, intent := eng.Classify(context.Background(), "book appointment", 7)
	require.NotNil(t, intent)
	assert.Equal(t, model.TierMedium, outcome.Tier)
	assert.True(t, outcome.Handoff)
}

func TestClassifyHumanHandoffNotifies(t *testing.T) {
	notifier := &fakeNotifier{}
	it := globalIntent("talk_to_human", model.IntentHuman, "talk to a human")
	it.Confidence = 1.0
	eng := newTestEngine(t, &fakeCorpus{intents: []model.Intent{it}}, nil, notifier)

	outcome, _ := eng.Classify(context.Background(), "talk to a human", 7)
	assert.Equal(t, model.TierHigh, outcome.Tier)
	assert.True(t, outcome.Handoff)
	assert.Equal(t, 1, notifier.calls)
}

func TestClassifyNotifierFailureDoesNotChangeOutcome(t *testing.T) {
	it := globalIntent("talk_to_human", model.IntentHuman, "talk to a human")
	it.Confidence = 1.0

	ok := newTestEngine(t, &fakeCorpus{intents: []model.Intent{it}}, nil, &fakeNotifier{})
	bad := newTestEngine(t, &fakeCorpus{intents: []model.Intent{it}}, nil, &fakeNotifier{err: errors.New("webhook unreachable")})

	wantOutcome, _ := ok.Classify(context.Background(), "talk to a human", 7)
	gotOutcome, _ := bad.Classify(context.Background(), "talk to a human", 7)
	assert.Equal(t, wantOutcome, gotOutcome)
}

func TestClassifyTieBreakFirstSeen(t *testing.T) {
	eng := newTestEngine(t, &fakeCorpus{intents: []model.Intent{
		globalIntent("first", model.IntentInfo, "reset my password"),
		globalIntent("second", model.IntentInfo, "reset my password"),
	}}, nil, nil)

	// 同分时先遍历到的意图胜出，结果可复现
	for i := 0; i < 5; i++ {
		outcome, _ := eng.Classify(context.Background(), "reset my password", 7)
		assert.Equal(t, "first", outcome.IntentName)
	}
}

func TestClassifySiteOverridesGlobalOnNameCollision(t *testing.T) {
	site := model.Intent{
		Name: "business_hours", Scope: model.SiteScope(42), Type: model.IntentInfo,
		Phrases: []string{"what are your hours"},
	}
	global := globalIntent("business_hours", model.IntentInfo, "what are your hours")
	eng := newTestEngine(t, &fakeCorpus{intents: []model.Intent{global, site}}, nil, nil)

	// 同名跨作用域不报错，站点专属可被命中
	outcome, intent := eng.Classify(context.Background(), "what are your hours", 42)
	require.NotNil(t, intent)
	assert.Equal(t, "business_hours", outcome.IntentName)
	assert.False(t, intent.Scope.Global)

	// 其他站点只能命中全局那条
	_, other := eng.Classify(context.Background(), "what are your hours", 7)
	require.NotNil(t, other)
	assert.True(t, other.Scope.Global)
}

func TestClassifyDeterministicScore(t *testing.T) {
	eng := newTestEngine(t, &fakeCorpus{intents: []model.Intent{
		globalIntent("business_hours", model.IntentInfo, "what are your hours", "when are you open"),
		globalIntent("greeting", model.IntentInfo, "hello there"),
	}}, nil, nil)

	first, _ := eng.Classify(context.Background(), "when do you open your doors", 7)
	for i := 0; i < 3; i++ {
		again, _ := eng.Classify(context.Background(), "when do you open your doors", 7)
		assert.Equal(t, first, again)
	}
}

func TestTierForMonotonic(t *testing.T) {
	eng := newTestEngine(t, &fakeCorpus{}, nil, nil)
	intent := &model.Intent{Name: "x", Type: model.IntentInfo}

	rank := map[model.Tier]int{model.TierFallback: 0, model.TierMedium: 1, model.TierHigh: 2}
	prev := -1
	for adjusted := 0.0; adjusted <= 1.0; adjusted += 0.01 {
		cur := rank[eng.tierFor(adjusted, intent)]
		assert.GreaterOrEqual(t, cur, prev, "tier must not move backward at %.2f", adjusted)
		prev = cur
	}
}

type fixedCapability struct{ sim float64 }

func (f fixedCapability) Similarity(_, _ string) float64 { return f.sim }

func TestCapabilityBlendOnlyRaises(t *testing.T) {
	corpus := &fakeCorpus{intents: []model.Intent{
		globalIntent("business_hours", model.IntentInfo, "what are your hours"),
	}}
	cfg := testConfig(t)
	syn := NewSynonymTable(nil)

	lexical := NewEngine(cfg, syn, corpus, nil, nil, nil)
	blended := NewEngine(cfg, syn, corpus, nil, nil, fixedCapability{sim: 0.1})

	// 词法满分时，低语义相似度不得压低结果
	want, _ := lexical.Classify(context.Background(), "what are your hours", 7)
	got, _ := blended.Classify(context.Background(), "what are your hours", 7)
	assert.Equal(t, want.Confidence, got.Confidence)
	assert.Equal(t, want.Tier, got.Tier)
}

func TestCapabilityBlendRecoversParaphrase(t *testing.T) {
	it := globalIntent("refund_policy", model.IntentInfo, "how do refunds work")
	it.Confidence = 1.0
	corpus := &fakeCorpus{intents: []model.Intent{it}}
	cfg := testConfig(t)
	syn := NewSynonymTable(nil)

	lexical := NewEngine(cfg, syn, corpus, nil, nil, nil)
	blended := NewEngine(cfg, syn, corpus, nil, nil, fixedCapability{sim: 1.0})

	// 词法重叠弱的改写句，语义能力把分抬上来
	wantOutcome, _ := lexical.Classify(context.Background(), "getting money back", 7)
	gotOutcome, _ := blended.Classify(context.Background(), "getting money back", 7)
	assert.GreaterOrEqual(t, gotOutcome.Confidence, wantOutcome.Confidence)
	assert.NotEqual(t, model.TierFallback, gotOutcome.Tier)
}
