package model

import (
	"errors"
	"fmt"
)

const (
	ScoringModeWeighted = "weighted"
	ScoringModeSimple   = "simple"
)

// 配置错误属于启动期硬错误，运行期内核只做软降级
var ErrInvalidConfig = errors.New("invalid config")

type AppConfig struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Engine EngineConfig `yaml:"engine"`
	// CRM webhook，human 意图高置信命中时尽力通知
	Webhook struct {
		URL string `yaml:"url"`
		Key string `yaml:"key"`
	} `yaml:"webhook"`
	Corpus struct {
		IntentsFile  string `yaml:"intents_file"`
		SynonymsFile string `yaml:"synonyms_file"`
		Watch        bool   `yaml:"watch"`
	} `yaml:"corpus"`
}

// EngineConfig 分类引擎配置，进程启动时构造一次并注入，无全局状态
type EngineConfig struct {
	// HighCutoff 直接应答档下限
	HighCutoff float64 `yaml:"high_cutoff"`
	// MediumCutoff 确认档下限（可被意图的 threshold 覆盖）
	MediumCutoff float64 `yaml:"medium_cutoff"`
	// DefaultMultiplier 意图未配置 confidence 时的系数
	DefaultMultiplier float64 `yaml:"default_multiplier"`
	// FuzzyThreshold 0-100，模糊匹配低于此值按 0 计
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`
	// ScoringMode weighted（默认）或 simple，两种算法不混用
	ScoringMode string `yaml:"scoring_mode"`
	Embedding   struct {
		Enabled bool `yaml:"enabled"`
		Dims    int  `yaml:"dims"`
	} `yaml:"embedding"`
	FallbackReplies []string `yaml:"fallback_replies"`
}

var defaultFallbackReplies = []string{
	"I'm not sure how to answer that. Could you rephrase your question?",
	"I don't have enough information to answer that. Please contact our support team.",
	"That's a great question! Let me connect you with a team member who can help.",
}

// Normalize 填默认值并校验阈值顺序，顺序不自洽视为启动失败
func (c *EngineConfig) Normalize() error {
	if c.HighCutoff == 0 {
		c.HighCutoff = 0.85
	}
	if c.MediumCutoff == 0 {
		c.MediumCutoff = 0.7
	}
	if c.DefaultMultiplier == 0 {
		c.DefaultMultiplier = 0.8
	}
	if c.FuzzyThreshold == 0 {
		c.FuzzyThreshold = 80
	}
	if c.ScoringMode == "" {
		c.ScoringMode = ScoringModeWeighted
	}
	if c.Embedding.Dims == 0 {
		c.Embedding.Dims = 256
	}
	if len(c.FallbackReplies) == 0 {
		c.FallbackReplies = defaultFallbackReplies
	}

	if c.MediumCutoff <= 0 || c.MediumCutoff >= c.HighCutoff || c.HighCutoff > 1 {
		return fmt.Errorf("%w: cutoffs must satisfy 0 < medium(%v) < high(%v) <= 1",
			ErrInvalidConfig, c.MediumCutoff, c.HighCutoff)
	}
	if c.DefaultMultiplier <= 0 || c.DefaultMultiplier > 1 {
		return fmt.Errorf("%w: default_multiplier %v out of (0,1]", ErrInvalidConfig, c.DefaultMultiplier)
	}
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 100 {
		return fmt.Errorf("%w: fuzzy_threshold %v out of [0,100]", ErrInvalidConfig, c.FuzzyThreshold)
	}
	if c.ScoringMode != ScoringModeWeighted && c.ScoringMode != ScoringModeSimple {
		return fmt.Errorf("%w: unknown scoring_mode %q", ErrInvalidConfig, c.ScoringMode)
	}
	if c.Embedding.Dims < 0 {
		return fmt.Errorf("%w: embedding dims %d", ErrInvalidConfig, c.Embedding.Dims)
	}
	return nil
}
