package service

import (
	"context"
	"log"
	"strings"
	"unicode"

	"intent-bot/dao"
	"intent-bot/model"
)

// WorkflowFunc action 意图的处理函数，返回可注入响应模板的键值
type WorkflowFunc func(ctx context.Context, siteID int, message string) (map[string]string, error)

// WorkflowRegistry WorkflowKind -> 处理函数的封闭映射。
// 启动时构造完毕，请求期不做任何按名字的动态查找。
type WorkflowRegistry struct {
	store    *dao.RedisStore
	handlers map[model.WorkflowKind]WorkflowFunc
}

func NewWorkflowRegistry(store *dao.RedisStore) *WorkflowRegistry {
	r := &WorkflowRegistry{store: store}
	r.handlers = map[model.WorkflowKind]WorkflowFunc{
		model.WorkflowGetPrice:   r.getPrice,
		model.WorkflowTrackOrder: r.trackOrder,
	}
	return r
}

func (r *WorkflowRegistry) Resolve(kind model.WorkflowKind) (WorkflowFunc, bool) {
	fn, ok := r.handlers[kind]
	return fn, ok
}

// Known 种子校验用：空值合法（无工作流），未注册的种类视为配置错误
func (r *WorkflowRegistry) Known(kind model.WorkflowKind) bool {
	if kind == model.WorkflowNone {
		return true
	}
	_, ok := r.handlers[kind]
	return ok
}

// getPrice 从客户配置 KV 取咨询价格
func (r *WorkflowRegistry) getPrice(ctx context.Context, siteID int, message string) (map[string]string, error) {
	cfg, err := r.store.ClientConfig(ctx, siteID)
	if err != nil {
		return nil, err
	}
	price, ok := cfg["consultation_price"]
	if !ok {
		log.Printf("[Workflow] 站点 %d 未配置 consultation_price", siteID)
		price = "unavailable"
	}
	return map[string]string{"consultation_price": price}, nil
}

// trackOrder 演示实现：从消息里提取订单号，真实系统应调外部订单 API
func (r *WorkflowRegistry) trackOrder(ctx context.Context, siteID int, message string) (map[string]string, error) {
	orderID := extractDigits(message)
	if orderID == "" {
		orderID = "unknown"
	}
	return map[string]string{
		"order_id":     orderID,
		"order_status": "processing",
		"order_eta":    "2 days",
	}, nil
}

func extractDigits(s string) string {
	var b strings.Builder
	run := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
			run++
			continue
		}
		// 取第一段不短于 4 位的连续数字
		if run >= 4 {
			break
		}
		b.Reset()
		run = 0
	}
	if run < 4 {
		return ""
	}
	return b.String()
}
