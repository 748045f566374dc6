package route

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"intent-bot/api"
	"intent-bot/dao"
	"intent-bot/service"
)

func Register(r *gin.Engine, chatSvc *service.ChatService, store *dao.RedisStore,
	workflows *service.WorkflowRegistry, loader *service.CorpusLoader) {

	// 健康检查与指标
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 聊天接口分组
	chatGroup := r.Group("/chat")
	{
		chatGroup.POST("", api.ChatHandler(chatSvc))              // POST /chat
		chatGroup.POST("/classify", api.ClassifyHandler(chatSvc)) // POST /chat/classify
		chatGroup.GET("/history", api.HistoryHandler(chatSvc))    // GET /chat/history
	}

	// 管理接口分组
	adminGroup := r.Group("/admin")
	{
		adminGroup.GET("/intents", api.ListIntentsHandler(store))
		adminGroup.POST("/intents", api.SaveIntentHandler(store, workflows))
		adminGroup.DELETE("/intents/:name", api.DeleteIntentHandler(store))
		adminGroup.GET("/unanswered", api.ListUnansweredHandler(store))
		adminGroup.POST("/client-config", api.SetClientConfigHandler(store))
		adminGroup.POST("/corpus/reload", api.ReloadCorpusHandler(loader))
	}
}
