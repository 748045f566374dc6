package service

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"intent-bot/internal/engine"
	"intent-bot/internal/metrics"
	"intent-bot/model"
	"intent-bot/utils"
)

const defaultHandoffReply = "Let me connect you with a team member who can help."
const defaultLeadReply = "To help you better, may I get your contact information?"

// ChatStore 聊天流程依赖的存储能力，dao.RedisStore 是线上实现
type ChatStore interface {
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)
	SaveSessionWithLock(ctx context.Context, session *model.Session, maxRetries int) error
	IntentsForSite(ctx context.Context, siteID int) ([]model.Intent, error)
	ClientConfig(ctx context.Context, siteID int) (map[string]string, error)
	SaveLead(ctx context.Context, lead *model.Lead) error
	AppendChatLog(ctx context.Context, entry *model.ChatLog) error
	SessionHistory(ctx context.Context, siteID int, sessionID string, limit int64) ([]model.ChatLog, error)
}

type ChatService struct {
	store     ChatStore
	engine    *engine.Engine
	workflows *WorkflowRegistry
	notifier  engine.HandoffNotifier
	fallbacks []string
}

func NewChatService(store ChatStore, eng *engine.Engine, workflows *WorkflowRegistry,
	notifier engine.HandoffNotifier, fallbacks []string) *ChatService {
	return &ChatService{
		store:     store,
		engine:    eng,
		workflows: workflows,
		notifier:  notifier,
		fallbacks: fallbacks,
	}
}

// HandleMessage 聊天主流程：会话加载 -> 待确认意图处理 -> 分类 ->
// 按层级出回复 -> 落日志 / 存会话
func (s *ChatService) HandleMessage(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
	session := s.loadSession(ctx, &req)

	// MEDIUM 档挂起的意图由本条消息提交或放弃
	if session.State == model.SessionConfirming && session.PendingIntent != "" {
		if resp, done := s.handleConfirmation(ctx, req, session); done {
			return resp, nil
		}
		// 既非确认也非否认：当普通消息重新分类
		session.PendingIntent = ""
		session.State = model.SessionActive
	}

	start := time.Now()
	outcome, intent := s.engine.Classify(ctx, req.Message, req.SiteID)
	metrics.ObserveClassification(req.SiteID, string(outcome.Tier), time.Since(start).Seconds())
	if outcome.Tier == model.TierHigh && outcome.IntentType == model.IntentHuman {
		metrics.ObserveHandoff()
	}

	var reply string
	switch outcome.Tier {
	case model.TierHigh:
		reply = s.intentReply(ctx, intent, req.SiteID, req.Message)
	case model.TierMedium:
		// 确认提示只报意图名，完整回答等用户确认后给
		reply = fmt.Sprintf("I think you're asking about %s. Is that right?", intent.Name)
		session.PendingIntent = intent.Name
		session.State = model.SessionConfirming
	default:
		reply = s.fallbackReply()
	}

	leadCapture := outcome.Handoff && outcome.IntentType == model.IntentLead
	if leadCapture {
		s.captureLead(ctx, req, session.ID)
	}

	s.finishTurn(ctx, session, req.Message, reply)
	s.logTurn(ctx, req, session.ID, outcome.IntentName, outcome.Confidence, reply)

	return &model.ChatResponse{
		Reply:       reply,
		Intent:      outcome.IntentName,
		IntentType:  outcome.IntentType,
		Confidence:  outcome.Confidence,
		Tier:        outcome.Tier,
		Handoff:     outcome.Handoff,
		LeadCapture: leadCapture,
		SessionID:   session.ID,
	}, nil
}

// Classify 纯分类入口，不经过会话，也不写聊天记录
func (s *ChatService) Classify(ctx context.Context, req model.ClassifyRequest) model.ClassificationOutcome {
	start := time.Now()
	outcome, _ := s.engine.Classify(ctx, req.Message, req.SiteID)
	metrics.ObserveClassification(req.SiteID, string(outcome.Tier), time.Since(start).Seconds())
	return outcome
}

func (s *ChatService) History(ctx context.Context, siteID int, sessionID string, limit int64) ([]model.ChatLog, error) {
	return s.store.SessionHistory(ctx, siteID, sessionID, limit)
}

// handleConfirmation 处理待确认意图。done 为 true 表示本条消息已消费。
func (s *ChatService) handleConfirmation(ctx context.Context, req model.ChatRequest, session *model.Session) (*model.ChatResponse, bool) {
	pending := session.PendingIntent

	switch utils.NormalizeConfirm(req.Message) {
	case "confirm":
		session.PendingIntent = ""
		session.State = model.SessionActive

		intent := s.findIntent(ctx, req.SiteID, pending)
		if intent == nil {
			// 确认窗口内语料被改掉了，按未命中处理
			log.Printf("[Chat] 待确认意图 %q 已不存在", pending)
			reply := s.fallbackReply()
			s.finishTurn(ctx, session, req.Message, reply)
			s.logTurn(ctx, req, session.ID, string(model.IntentUnknown), 0, reply)
			return &model.ChatResponse{
				Reply:      reply,
				Intent:     string(model.IntentUnknown),
				IntentType: model.IntentUnknown,
				Tier:       model.TierFallback,
				SessionID:  session.ID,
			}, true
		}

		reply := s.intentReply(ctx, intent, req.SiteID, req.Message)
		// 用户确认转人工：不走引擎分类，通知和指标在这里补上
		if intent.Type == model.IntentHuman {
			metrics.ObserveHandoff()
			s.notifyHandoff(ctx, intent.Name, req.Message, req.SiteID)
		}
		if intent.Type == model.IntentLead {
			s.captureLead(ctx, req, session.ID)
		}
		s.finishTurn(ctx, session, req.Message, reply)
		s.logTurn(ctx, req, session.ID, intent.Name, 1.0, reply)
		// 用户亲自确认，置信度按 1 记
		return &model.ChatResponse{
			Reply:       reply,
			Intent:      intent.Name,
			IntentType:  intent.Type,
			Confidence:  1.0,
			Tier:        model.TierHigh,
			Handoff:     intent.Type == model.IntentHuman || intent.Type == model.IntentLead,
			LeadCapture: intent.Type == model.IntentLead,
			SessionID:   session.ID,
		}, true

	case "deny":
		session.PendingIntent = ""
		session.State = model.SessionActive
		reply := "No problem. Could you describe what you need in a different way?"
		s.finishTurn(ctx, session, req.Message, reply)
		s.logTurn(ctx, req, session.ID, string(model.IntentUnknown), 0, reply)
		return &model.ChatResponse{
			Reply:      reply,
			Intent:     string(model.IntentUnknown),
			IntentType: model.IntentUnknown,
			Tier:       model.TierFallback,
			SessionID:  session.ID,
		}, true
	}

	return nil, false
}

// intentReply 产出意图的完整回复：
// action 意图先跑工作流，把返回键值和客户配置一起注入响应模板
func (s *ChatService) intentReply(ctx context.Context, intent *model.Intent, siteID int, message string) string {
	if intent == nil {
		return s.fallbackReply()
	}

	values, err := s.store.ClientConfig(ctx, siteID)
	if err != nil {
		log.Printf("[Chat] 读取站点 %d 配置失败: %v", siteID, err)
		values = nil
	}

	var data map[string]string
	if intent.Type == model.IntentAction && intent.Workflow != model.WorkflowNone {
		fn, ok := s.workflows.Resolve(intent.Workflow)
		if !ok {
			// 加载期已校验，这里理论上到不了
			log.Printf("[Chat] 意图 %q 工作流 %q 未注册", intent.Name, intent.Workflow)
			return s.fallbackReply()
		}
		data, err = fn(ctx, siteID, message)
		if err != nil {
			log.Printf("[Chat] 工作流 %q 执行失败: %v", intent.Workflow, err)
			return "Sorry, something went wrong while processing your request."
		}
	}

	merged := make(map[string]string, len(values)+len(data))
	for k, v := range values {
		merged[k] = v
	}
	for k, v := range data {
		merged[k] = v
	}

	if intent.Response != "" {
		return RenderTemplate(intent.Response, merged)
	}
	if len(data) > 0 {
		return formatData(data)
	}
	switch intent.Type {
	case model.IntentHuman:
		return defaultHandoffReply
	case model.IntentLead:
		return defaultLeadReply
	}
	return s.fallbackReply()
}

// findIntent 按名称找意图，站点专属优先于同名全局
func (s *ChatService) findIntent(ctx context.Context, siteID int, name string) *model.Intent {
	intents, err := s.store.IntentsForSite(ctx, siteID)
	if err != nil {
		log.Printf("[Chat] 加载站点 %d 语料失败: %v", siteID, err)
		return nil
	}
	for i := range intents {
		if intents[i].Name == name {
			return &intents[i]
		}
	}
	return nil
}

// notifyHandoff 转人工通知，失败只记日志
func (s *ChatService) notifyHandoff(ctx context.Context, intentName, message string, siteID int) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyHandoff(ctx, intentName, message, siteID); err != nil {
		log.Printf("[Chat] 转人工通知失败: %v", err)
	}
}

func (s *ChatService) captureLead(ctx context.Context, req model.ChatRequest, sessionID string) {
	if req.UserEmail == "" {
		return
	}
	err := s.store.SaveLead(ctx, &model.Lead{
		SiteID:     req.SiteID,
		SessionID:  sessionID,
		Name:       req.UserName,
		Email:      req.UserEmail,
		Context:    req.Message,
		CapturedAt: time.Now().Format(time.RFC3339),
	})
	if err != nil {
		log.Printf("[Chat] 保存留资失败: %v", err)
	}
}

func (s *ChatService) loadSession(ctx context.Context, req *model.ChatRequest) *model.Session {
	if req.SessionID != "" {
		session, err := s.store.GetSession(ctx, req.SessionID)
		if err != nil {
			log.Printf("[Chat] 读取会话 %s 失败: %v", req.SessionID, err)
		}
		if session != nil {
			return session
		}
	}

	id := req.SessionID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().Format(time.RFC3339Nano)
	return &model.Session{
		ID:        id,
		SiteID:    req.SiteID,
		State:     model.SessionNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// finishTurn 追加本轮消息并保存会话，失败不影响已生成的回复
func (s *ChatService) finishTurn(ctx context.Context, session *model.Session, userMsg, reply string) {
	now := time.Now().Format(time.RFC3339Nano)
	session.Messages = append(session.Messages,
		model.Message{Role: model.RoleUser, Content: userMsg, Timestamp: now},
		model.Message{Role: model.RoleAssistant, Content: reply, Timestamp: now},
	)
	if session.State == model.SessionNew {
		session.State = model.SessionActive
	}
	if err := s.store.SaveSessionWithLock(ctx, session, 3); err != nil {
		log.Printf("[Chat] 保存会话 %s 失败: %v", session.ID, err)
	}
}

// logTurn 写一轮聊天记录，失败只记日志
func (s *ChatService) logTurn(ctx context.Context, req model.ChatRequest, sessionID, intentName string, confidence float64, reply string) {
	if err := s.store.AppendChatLog(ctx, &model.ChatLog{
		SiteID:      req.SiteID,
		SessionID:   sessionID,
		UserMessage: req.Message,
		Intent:      intentName,
		Confidence:  confidence,
		Reply:       reply,
		CreatedAt:   time.Now().Format(time.RFC3339),
	}); err != nil {
		log.Printf("[Chat] 写聊天记录失败: %v", err)
	}
}

func (s *ChatService) fallbackReply() string {
	if len(s.fallbacks) == 0 {
		return "I'm not sure how to answer that. Could you rephrase your question?"
	}
	return s.fallbacks[rand.Intn(len(s.fallbacks))]
}

func formatData(data map[string]string) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+data[k])
	}
	return strings.Join(parts, ", ")
}
