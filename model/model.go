package model

import "strconv"

type IntentType string

const (
	IntentInfo    IntentType = "info"
	IntentAction  IntentType = "action"
	IntentLead    IntentType = "lead"
	IntentHuman   IntentType = "human"
	IntentUnknown IntentType = "UNKNOWN"
)

// Tier 置信度分层，决定回复策略
type Tier string

const (
	TierHigh     Tier = "HIGH"
	TierMedium   Tier = "MEDIUM"
	TierFallback Tier = "FALLBACK"
)

type SessionState string

const (
	SessionNew        SessionState = "new"
	SessionActive     SessionState = "active"
	SessionConfirming SessionState = "confirming"
)

// WorkflowKind action 意图绑定的工作流种类，启动时静态注册，
// 不在请求期做字符串到函数的动态查找
type WorkflowKind string

const (
	WorkflowNone       WorkflowKind = ""
	WorkflowGetPrice   WorkflowKind = "get_price"
	WorkflowTrackOrder WorkflowKind = "track_order"
)

// Scope 意图归属：全局共享或某个站点（租户）专属。
// 不用 site_id=0 这种哨兵值，避免和真实租户 ID 冲突。
type Scope struct {
	Global bool `json:"global,omitempty" yaml:"global,omitempty"`
	SiteID int  `json:"site_id,omitempty" yaml:"site_id,omitempty"`
}

func GlobalScope() Scope {
	return Scope{Global: true}
}

func SiteScope(siteID int) Scope {
	return Scope{SiteID: siteID}
}

// Matches 该作用域下的意图是否对 siteID 可见
func (s Scope) Matches(siteID int) bool {
	return s.Global || s.SiteID == siteID
}

func (s Scope) Key() string {
	if s.Global {
		return "global"
	}
	return "site:" + strconv.Itoa(s.SiteID)
}

// Intent 分类单元：一组训练短语 + 响应配置
type Intent struct {
	ID string `json:"id" yaml:"id,omitempty"`
	// Name 在同一作用域内唯一；站点作用域允许与全局同名（站点优先）
	Name  string     `json:"name" yaml:"name"`
	Scope Scope      `json:"scope" yaml:"scope"`
	Type  IntentType `json:"type" yaml:"type"`
	// Confidence 该意图的置信度系数，默认 0.8
	Confidence float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	// Threshold 该意图独立的 MEDIUM 档下限，0 表示用全局配置
	Threshold float64      `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Response  string       `json:"response,omitempty" yaml:"response,omitempty"`
	Workflow  WorkflowKind `json:"workflow,omitempty" yaml:"workflow,omitempty"`
	Phrases   []string     `json:"phrases" yaml:"phrases"`
}

// ClassificationOutcome 分类结果，核心引擎唯一对外产物
type ClassificationOutcome struct {
	IntentName string     `json:"intent_name"`
	IntentType IntentType `json:"intent_type"`
	Confidence float64    `json:"confidence"`
	Tier       Tier       `json:"tier"`
	Handoff    bool       `json:"handoff"`
}

// UnknownOutcome 未命中任何意图时的结果
func UnknownOutcome(confidence float64) ClassificationOutcome {
	return ClassificationOutcome{
		IntentName: string(IntentUnknown),
		IntentType: IntentUnknown,
		Confidence: confidence,
		Tier:       TierFallback,
	}
}

type ChatRequest struct {
	SessionID string `json:"session_id"`
	SiteID    int    `json:"site_id"`
	Message   string `json:"message"`
	// 留资场景下前端回传的联系方式
	UserName  string `json:"user_name,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
}

type ChatResponse struct {
	Reply       string     `json:"reply"`
	Intent      string     `json:"intent"`
	IntentType  IntentType `json:"intent_type"`
	Confidence  float64    `json:"confidence"`
	Tier        Tier       `json:"tier"`
	Handoff     bool       `json:"handoff"`
	LeadCapture bool       `json:"lead_capture"`
	SessionID   string     `json:"session_id"`
}

type ClassifyRequest struct {
	SiteID  int    `json:"site_id"`
	Message string `json:"message"`
}

type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session 会话：MEDIUM 档的待确认意图挂在会话上，由下一条消息提交或放弃
type Session struct {
	ID            string       `json:"id"`
	SiteID        int          `json:"site_id"`
	State         SessionState `json:"state"`
	PendingIntent string       `json:"pending_intent,omitempty"`
	Messages      []Message    `json:"messages,omitempty"`
	CreatedAt     string       `json:"created_at"`
	UpdatedAt     string       `json:"updated_at"`
}

type ChatLog struct {
	SiteID      int     `json:"site_id"`
	SessionID   string  `json:"session_id"`
	UserMessage string  `json:"user_message"`
	Intent      string  `json:"intent"`
	Confidence  float64 `json:"confidence"`
	Reply       string  `json:"reply"`
	CreatedAt   string  `json:"created_at"`
}

// Lead 低置信 / lead 意图下捕获的用户联系方式
type Lead struct {
	ID         string `json:"id"`
	SiteID     int    `json:"site_id"`
	SessionID  string `json:"session_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Context    string `json:"context,omitempty"`
	CapturedAt string `json:"captured_at"`
}

// UnansweredQuestion 未命中消息的聚合计数，存储层按消息去重
type UnansweredQuestion struct {
	Question   string `json:"question"`
	TimesAsked int64  `json:"times_asked"`
}
