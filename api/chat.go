package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"intent-bot/model"
	"intent-bot/service"
)

func ChatHandler(chatSvc *service.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}

		resp, err := chatSvc.HandleMessage(c.Request.Context(), req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}

// ClassifyHandler 纯分类接口，给外部系统和调试用
func ClassifyHandler(chatSvc *service.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.ClassifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}

		outcome := chatSvc.Classify(c.Request.Context(), req)
		c.JSON(http.StatusOK, outcome)
	}
}

func HistoryHandler(chatSvc *service.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		siteID, err := strconv.Atoi(c.Query("site_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid site_id"})
			return
		}
		sessionID := c.Query("session_id")
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session_id required"})
			return
		}
		limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "10"), 10, 64)

		logs, err := chatSvc.History(c.Request.Context(), siteID, sessionID, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": logs, "total": len(logs)})
	}
}
