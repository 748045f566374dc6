package dao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"intent-bot/model"
)

// 定义错误类型
var (
	ErrSessionConflict = errors.New("session conflict: stored session is newer")
	ErrMaxRetries      = errors.New("max retries exceeded")
	ErrInvalidSession  = errors.New("invalid session")
	ErrInvalidParam    = errors.New("invalid parameter")
	ErrIntentNotFound  = errors.New("intent not found")
)

const keyPrefix = "intent-bot:"

type RedisStore struct {
	client     *redis.Client
	sessionTTL time.Duration
	logKeep    int64
}

func NewRedisStore(addr, password string, db int) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisStore{
		client:     client,
		sessionTTL: 24 * time.Hour,
		logKeep:    200,
	}
}

func intentsKey(scope model.Scope) string {
	return keyPrefix + "intents:" + scope.Key()
}

// ---- 意图语料 ----

// SaveIntent 写入或覆盖一条意图，ID 为空时自动生成
func (s *RedisStore) SaveIntent(ctx context.Context, intent *model.Intent) error {
	if intent == nil || intent.Name == "" {
		return fmt.Errorf("%w: intent name is empty", ErrInvalidParam)
	}
	if len(intent.Phrases) == 0 {
		return fmt.Errorf("%w: intent %q has no phrases", ErrInvalidParam, intent.Name)
	}
	if intent.ID == "" {
		intent.ID = uuid.New().String()
	}

	data, err := json.Marshal(intent)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, intentsKey(intent.Scope), intent.Name, data).Err()
}

func (s *RedisStore) DeleteIntent(ctx context.Context, scope model.Scope, name string) error {
	if name == "" {
		return fmt.Errorf("%w: intent name is empty", ErrInvalidParam)
	}
	n, err := s.client.HDel(ctx, intentsKey(scope), name).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s/%s", ErrIntentNotFound, scope.Key(), name)
	}
	return nil
}

// ListIntents 单个作用域下的意图，按名称排序
func (s *RedisStore) ListIntents(ctx context.Context, scope model.Scope) ([]model.Intent, error) {
	raw, err := s.client.HGetAll(ctx, intentsKey(scope)).Result()
	if err != nil {
		return nil, err
	}

	intents := make([]model.Intent, 0, len(raw))
	for name, data := range raw {
		var it model.Intent
		if err := json.Unmarshal([]byte(data), &it); err != nil {
			return nil, fmt.Errorf("decode intent %q: %w", name, err)
		}
		intents = append(intents, it)
	}
	sort.Slice(intents, func(i, j int) bool {
		return intents[i].Name < intents[j].Name
	})
	return intents, nil
}

// IntentsForSite 返回站点可见的全部意图快照。
// 顺序固定：站点专属在前、全局共享在后，各自按名称排序——
// 引擎同分时先到先得，迭代顺序必须稳定，站点意图优先于同名全局意图。
func (s *RedisStore) IntentsForSite(ctx context.Context, siteID int) ([]model.Intent, error) {
	site, err := s.ListIntents(ctx, model.SiteScope(siteID))
	if err != nil {
		return nil, err
	}
	global, err := s.ListIntents(ctx, model.GlobalScope())
	if err != nil {
		return nil, err
	}
	return append(site, global...), nil
}

// ReplaceScopeIntents 用种子数据整体替换一个作用域的语料
func (s *RedisStore) ReplaceScopeIntents(ctx context.Context, scope model.Scope, intents []model.Intent) error {
	key := intentsKey(scope)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	for i := range intents {
		if intents[i].ID == "" {
			intents[i].ID = uuid.New().String()
		}
		data, err := json.Marshal(&intents[i])
		if err != nil {
			return err
		}
		pipe.HSet(ctx, key, intents[i].Name, data)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// ---- 未命中消息 ----

// RecordUnanswered 按归一化后的消息去重累加计数
func (s *RedisStore) RecordUnanswered(ctx context.Context, siteID int, message string) error {
	q := normalizeQuestion(message)
	if q == "" {
		return nil
	}
	key := keyPrefix + "unanswered:site:" + strconv.Itoa(siteID)
	pipe := s.client.Pipeline()
	pipe.HIncrBy(ctx, key, q, 1)
	pipe.HSet(ctx, key+":last", q, time.Now().Format(time.RFC3339))
	_, err := pipe.Exec(ctx)
	return err
}

// ListUnanswered 按被问次数倒序
func (s *RedisStore) ListUnanswered(ctx context.Context, siteID int) ([]model.UnansweredQuestion, error) {
	key := keyPrefix + "unanswered:site:" + strconv.Itoa(siteID)
	raw, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	qs := make([]model.UnansweredQuestion, 0, len(raw))
	for q, cnt := range raw {
		n, _ := strconv.ParseInt(cnt, 10, 64)
		qs = append(qs, model.UnansweredQuestion{Question: q, TimesAsked: n})
	}
	sort.Slice(qs, func(i, j int) bool {
		if qs[i].TimesAsked != qs[j].TimesAsked {
			return qs[i].TimesAsked > qs[j].TimesAsked
		}
		return qs[i].Question < qs[j].Question
	})
	return qs, nil
}

func normalizeQuestion(message string) string {
	return strings.Join(strings.Fields(strings.ToLower(message)), " ")
}

// ---- 聊天记录 ----

func chatLogKey(siteID int, sessionID string) string {
	return keyPrefix + "chatlog:site:" + strconv.Itoa(siteID) + ":" + sessionID
}

func (s *RedisStore) AppendChatLog(ctx context.Context, entry *model.ChatLog) error {
	if entry == nil || entry.SessionID == "" {
		return fmt.Errorf("%w: chat log session id is empty", ErrInvalidParam)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	key := chatLogKey(entry.SiteID, entry.SessionID)
	pipe := s.client.Pipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, s.logKeep-1)
	pipe.Expire(ctx, key, s.sessionTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// SessionHistory 按时间正序返回一个会话最近的记录
func (s *RedisStore) SessionHistory(ctx context.Context, siteID int, sessionID string, limit int64) ([]model.ChatLog, error) {
	if limit <= 0 {
		limit = 10
	}
	raw, err := s.client.LRange(ctx, chatLogKey(siteID, sessionID), 0, limit-1).Result()
	if err != nil {
		return nil, err
	}

	logs := make([]model.ChatLog, 0, len(raw))
	// LPUSH 存储为倒序，读出后翻转
	for i := len(raw) - 1; i >= 0; i-- {
		var entry model.ChatLog
		if err := json.Unmarshal([]byte(raw[i]), &entry); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, nil
}

// ---- 客户配置 KV ----

func clientCfgKey(siteID int) string {
	return keyPrefix + "clientcfg:site:" + strconv.Itoa(siteID)
}

// ClientConfig 站点的模板变量表（如 consultation_price）
func (s *RedisStore) ClientConfig(ctx context.Context, siteID int) (map[string]string, error) {
	return s.client.HGetAll(ctx, clientCfgKey(siteID)).Result()
}

func (s *RedisStore) SetClientConfig(ctx context.Context, siteID int, key, value string) error {
	if key == "" {
		return fmt.Errorf("%w: config key is empty", ErrInvalidParam)
	}
	return s.client.HSet(ctx, clientCfgKey(siteID), key, value).Err()
}

// ---- 留资 ----

func (s *RedisStore) SaveLead(ctx context.Context, lead *model.Lead) error {
	if lead == nil || lead.Email == "" {
		return fmt.Errorf("%w: lead email is empty", ErrInvalidParam)
	}
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	data, err := json.Marshal(lead)
	if err != nil {
		return err
	}
	return s.client.LPush(ctx, keyPrefix+"leads:site:"+strconv.Itoa(lead.SiteID), data).Err()
}

// ---- 会话 ----

func sessionKey(sessionID string) string {
	return keyPrefix + "session:" + sessionID
}

func (s *RedisStore) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: sessionID is empty", ErrInvalidParam)
	}

	data, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// SaveSessionWithLock 乐观锁保存会话，防止并发请求互相覆盖。
// 冲突时合并消息、保留更接近确认态的状态后重试。
func (s *RedisStore) SaveSessionWithLock(ctx context.Context, session *model.Session, maxRetries int) error {
	if err := s.validateSession(session); err != nil {
		return err
	}
	if maxRetries < 0 {
		return fmt.Errorf("%w: maxRetries cannot be negative", ErrInvalidParam)
	}

	key := sessionKey(session.ID)
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			currentData, err := tx.Get(ctx, key).Bytes()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}

			toSave := *session
			if err == nil {
				var current model.Session
				if err := json.Unmarshal(currentData, &current); err != nil {
					return err
				}
				if timestampAfter(current.UpdatedAt, session.UpdatedAt) {
					return ErrSessionConflict
				}
				toSave = mergeSessions(current, *session)
			}
			toSave.UpdatedAt = time.Now().Format(time.RFC3339Nano)

			data, err := json.Marshal(&toSave)
			if err != nil {
				return err
			}
			return tx.Set(ctx, key, data, s.sessionTTL).Err()
		}, key)

		if err == nil {
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) && !errors.Is(err, ErrSessionConflict) {
			return err
		}
		lastErr = err
		time.Sleep(time.Duration(10*(i+1)) * time.Millisecond)
	}

	return fmt.Errorf("%w for session %s: %v", ErrMaxRetries, session.ID, lastErr)
}

func (s *RedisStore) DeleteSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: sessionID is empty", ErrInvalidParam)
	}
	return s.client.Del(ctx, sessionKey(sessionID)).Err()
}

func (s *RedisStore) validateSession(session *model.Session) error {
	if session == nil {
		return fmt.Errorf("%w: session is nil", ErrInvalidSession)
	}
	if session.ID == "" {
		return fmt.Errorf("%w: session.ID is empty", ErrInvalidSession)
	}
	return nil
}

// mergeSessions 消息按时间合并去重；确认态信息以新会话为准
func mergeSessions(current, next model.Session) model.Session {
	merged := current
	merged.Messages = mergeMessages(current.Messages, next.Messages)
	merged.State = next.State
	merged.PendingIntent = next.PendingIntent
	return merged
}

func mergeMessages(a, b []model.Message) []model.Message {
	seen := make(map[string]struct{}, len(a)+len(b))
	merged := make([]model.Message, 0, len(a)+len(b))
	for _, msg := range append(append([]model.Message{}, a...), b...) {
		id := msg.Role + ":" + msg.Content + ":" + msg.Timestamp
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, msg)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return timestampAfter(merged[j].Timestamp, merged[i].Timestamp)
	})
	return merged
}

// timestampAfter 安全比较 RFC3339 时间戳，解析失败退回字符串比较
func timestampAfter(a, b string) bool {
	ta, errA := time.Parse(time.RFC3339Nano, a)
	tb, errB := time.Parse(time.RFC3339Nano, b)
	if errA == nil && errB == nil {
		return ta.After(tb)
	}
	return a > b
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
