package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"intent-bot/dao"
	"intent-bot/model"
	"intent-bot/service"
)

// scopeFromQuery site_id 缺省表示全局作用域
func scopeFromQuery(c *gin.Context) (model.Scope, error) {
	raw := c.Query("site_id")
	if raw == "" {
		return model.GlobalScope(), nil
	}
	siteID, err := strconv.Atoi(raw)
	if err != nil {
		return model.Scope{}, err
	}
	return model.SiteScope(siteID), nil
}

func ListIntentsHandler(store *dao.RedisStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		scope, err := scopeFromQuery(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid site_id"})
			return
		}

		intents, err := store.ListIntents(c.Request.Context(), scope)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": intents, "total": len(intents)})
	}
}

func SaveIntentHandler(store *dao.RedisStore, workflows *service.WorkflowRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		var intent model.Intent
		if err := c.ShouldBindJSON(&intent); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}
		if !workflows.Known(intent.Workflow) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown workflow kind"})
			return
		}

		if err := store.SaveIntent(c.Request.Context(), &intent); err != nil {
			if errors.Is(err, dao.ErrInvalidParam) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, intent)
	}
}

func DeleteIntentHandler(store *dao.RedisStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		scope, err := scopeFromQuery(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid site_id"})
			return
		}

		name := c.Param("name")
		if err := store.DeleteIntent(c.Request.Context(), scope, name); err != nil {
			if errors.Is(err, dao.ErrIntentNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": name})
	}
}

// ListUnansweredHandler 未命中消息榜单，给运营补语料用
func ListUnansweredHandler(store *dao.RedisStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		siteID, err := strconv.Atoi(c.DefaultQuery("site_id", "0"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid site_id"})
			return
		}

		qs, err := store.ListUnanswered(c.Request.Context(), siteID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": qs, "total": len(qs)})
	}
}

func SetClientConfigHandler(store *dao.RedisStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			SiteID int    `json:"site_id"`
			Key    string `json:"key"`
			Value  string `json:"value"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}

		if err := store.SetClientConfig(c.Request.Context(), req.SiteID, req.Key, req.Value); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func ReloadCorpusHandler(loader *service.CorpusLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := loader.Load(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"reloaded": true})
	}
}
