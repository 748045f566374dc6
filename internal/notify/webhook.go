// Package notify 实现转人工的 CRM webhook 通知，失败只记日志不影响分类。
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type WebhookNotifier struct {
	url     string
	key     string
	httpCli *http.Client
}

// NewWebhookNotifier 短超时客户端，通知不能拖慢分类热路径
func NewWebhookNotifier(url, key string) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		key: key,
		httpCli: &http.Client{
			Timeout: 2 * time.Second,
		},
	}
}

type handoffPayload struct {
	Intent  string `json:"intent"`
	Message string `json:"message"`
	SiteID  int    `json:"site_id"`
}

func (n *WebhookNotifier) NotifyHandoff(ctx context.Context, intentName, message string, siteID int) error {
	bs, _ := json.Marshal(handoffPayload{
		Intent:  intentName,
		Message: message,
		SiteID:  siteID,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(bs))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.key != "" {
		req.Header.Set("X-Webhook-Key", n.key)
	}

	resp, err := n.httpCli.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
