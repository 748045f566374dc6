package engine

import (
	"context"
	"log"
	"math"

	"intent-bot/model"
)

// CorpusProvider 只读意图语料源：返回 siteID 可见的全部意图
// （站点专属 + 全局共享）。每次分类取一份新快照，不要求事务隔离。
type CorpusProvider interface {
	IntentsForSite(ctx context.Context, siteID int) ([]model.Intent, error)
}

// UnansweredSink FALLBACK 结果的旁路信号，去重计数由实现方负责
type UnansweredSink interface {
	RecordUnanswered(ctx context.Context, siteID int, message string) error
}

// HandoffNotifier human 意图高置信命中时的通知契约，尽力而为
type HandoffNotifier interface {
	NotifyHandoff(ctx context.Context, intentName, message string, siteID int) error
}

// Capability 可选的语义相似度能力；为 nil 时引擎退化为纯词法评分
type Capability interface {
	Similarity(message, phrase string) float64
}

// MatchCandidate 单次分类过程中的最优 (意图, 短语, 得分)，请求内临时量
type MatchCandidate struct {
	Intent *model.Intent
	Phrase string
	Score  float64
}

// Engine 意图分类引擎。无共享可变状态，分类调用可安全并发。
type Engine struct {
	cfg        model.EngineConfig
	scorer     *Scorer
	corpus     CorpusProvider
	unanswered UnansweredSink
	notifier   HandoffNotifier
	capability Capability
}

// NewEngine 构造引擎；unanswered / notifier / capability 均可为 nil。
// 语义能力缺失只在这里记一次日志，不在每个请求里重复。
func NewEngine(cfg model.EngineConfig, syn *SynonymTable, corpus CorpusProvider,
	unanswered UnansweredSink, notifier HandoffNotifier, capability Capability) *Engine {

	if capability == nil {
		log.Printf("[Engine] 未配置语义嵌入能力，使用纯词法评分")
	} else {
		log.Printf("[Engine] 语义嵌入能力已启用")
	}
	log.Printf("[Engine] scoring_mode=%s high=%.2f medium=%.2f", cfg.ScoringMode, cfg.HighCutoff, cfg.MediumCutoff)

	return &Engine{
		cfg:        cfg,
		scorer:     NewScorer(syn, cfg.FuzzyThreshold, cfg.ScoringMode),
		corpus:     corpus,
		unanswered: unanswered,
		notifier:   notifier,
		capability: capability,
	}
}

// Classify 唯一对外入口：消息 + 站点 -> 分类结果。
// 内核失败一律降级为 FALLBACK 结果，不向调用方抛错。
// 第二个返回值是命中的意图记录（FALLBACK 时为 nil），供调用方取响应配置。
func (e *Engine) Classify(ctx context.Context, message string, siteID int) (model.ClassificationOutcome, *model.Intent) {
	tokens := Tokenize(message)
	// 清洗后无 token 的消息永不匹配，也不计入未命中
	if len(tokens) == 0 {
		return model.UnknownOutcome(0), nil
	}

	intents, err := e.corpus.IntentsForSite(ctx, siteID)
	if err != nil {
		log.Printf("[Engine] 加载站点 %d 语料失败: %v", siteID, err)
		intents = nil
	}
	if len(intents) == 0 {
		e.recordUnanswered(ctx, siteID, message)
		return model.UnknownOutcome(0), nil
	}

	best := e.match(message, tokens, intents)
	if best.Intent == nil {
		e.recordUnanswered(ctx, siteID, message)
		return model.UnknownOutcome(0), nil
	}

	adjusted := e.adjust(best)
	tier := e.tierFor(adjusted, best.Intent)

	switch tier {
	case model.TierHigh:
		if best.Intent.Type == model.IntentHuman {
			e.notifyHandoff(ctx, best.Intent.Name, message, siteID)
		}
	case model.TierFallback:
		e.recordUnanswered(ctx, siteID, message)
		// 有候选但不过线：保留分数，身份归 UNKNOWN
		return model.UnknownOutcome(adjusted), nil
	}

	return model.ClassificationOutcome{
		IntentName: best.Intent.Name,
		IntentType: best.Intent.Type,
		Confidence: adjusted,
		Tier:       tier,
		Handoff:    best.Intent.Type == model.IntentHuman || best.Intent.Type == model.IntentLead,
	}, best.Intent
}

// match 遍历全部 (意图, 短语) 求全局最优。
// 只有严格更高的得分才替换候选，因此同分时先遍历到的意图胜出；
// 语料源保证迭代顺序稳定（站点意图在前，再按名称排序）。
func (e *Engine) match(message string, msgTokens []string, intents []model.Intent) MatchCandidate {
	var best MatchCandidate

	for i := range intents {
		intent := &intents[i]
		for _, phrase := range intent.Phrases {
			pTokens := Tokenize(phrase)
			if len(pTokens) == 0 {
				continue
			}

			score := e.scorer.Score(msgTokens, pTokens)
			// 语义相似度只抬分不压分，词法精确命中不受影响
			if e.capability != nil {
				if emb := e.capability.Similarity(message, phrase); emb > 0 {
					blended := round3(0.75*emb + 0.25*score)
					if blended > score {
						score = blended
					}
				}
			}

			if score > best.Score {
				best = MatchCandidate{Intent: intent, Phrase: phrase, Score: score}
			}
		}
	}
	return best
}

// adjust 原始得分乘以意图置信系数，截断到 1 并保留三位小数
func (e *Engine) adjust(c MatchCandidate) float64 {
	mult := c.Intent.Confidence
	if mult <= 0 {
		mult = e.cfg.DefaultMultiplier
	}
	return round3(math.Min(1.0, c.Score*mult))
}

// tierFor 置信度分档。MEDIUM 档下限优先用意图自己的 threshold。
func (e *Engine) tierFor(adjusted float64, intent *model.Intent) model.Tier {
	if adjusted >= e.cfg.HighCutoff {
		return model.TierHigh
	}
	cutoff := e.cfg.MediumCutoff
	if intent != nil && intent.Threshold > 0 {
		cutoff = intent.Threshold
	}
	if adjusted >= cutoff {
		return model.TierMedium
	}
	return model.TierFallback
}

func (e *Engine) recordUnanswered(ctx context.Context, siteID int, message string) {
	if e.unanswered == nil {
		return
	}
	if err := e.unanswered.RecordUnanswered(ctx, siteID, message); err != nil {
		// 记录失败不影响分类结果
		log.Printf("[Engine] 记录未命中消息失败: %v", err)
	}
}

func (e *Engine) notifyHandoff(ctx context.Context, intentName, message string, siteID int) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.NotifyHandoff(ctx, intentName, message, siteID); err != nil {
		log.Printf("[Engine] 转人工通知失败: %v", err)
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
