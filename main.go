package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"

	"intent-bot/dao"
	"intent-bot/internal/embedding"
	"intent-bot/internal/engine"
	"intent-bot/internal/notify"
	"intent-bot/model"
	"intent-bot/route"
	"intent-bot/service"
)

func main() {
	cfg, err := loadAppConfig(configPath())
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	// 阈值顺序不自洽是唯一的启动期硬错误
	if err := cfg.Engine.Normalize(); err != nil {
		log.Fatalf("引擎配置非法: %v", err)
	}

	store := dao.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer store.Close()
	if err := store.Ping(context.Background()); err != nil {
		log.Fatalf("连接 redis 失败: %v", err)
	}

	custom, err := service.LoadSynonyms(cfg.Corpus.SynonymsFile)
	if err != nil {
		log.Fatalf("加载同义词失败: %v", err)
	}
	syn := engine.NewSynonymTable(custom)

	var notifier engine.HandoffNotifier
	if cfg.Webhook.URL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Webhook.URL, cfg.Webhook.Key)
	}
	var capability engine.Capability
	if cfg.Engine.Embedding.Enabled {
		capability = embedding.NewEncoder(cfg.Engine.Embedding.Dims)
	}

	eng := engine.NewEngine(cfg.Engine, syn, store, store, notifier, capability)

	workflows := service.NewWorkflowRegistry(store)
	loader := service.NewCorpusLoader(store, workflows, cfg.Corpus.IntentsFile)
	if cfg.Corpus.IntentsFile != "" {
		if err := loader.Load(context.Background()); err != nil {
			log.Fatalf("加载种子语料失败: %v", err)
		}
		if cfg.Corpus.Watch {
			if err := loader.Watch(context.Background()); err != nil {
				log.Printf("启动语料监听失败: %v", err)
			}
		}
	}

	chatSvc := service.NewChatService(store, eng, workflows, notifier, cfg.Engine.FallbackReplies)

	r := gin.Default()
	route.Register(r, chatSvc, store, workflows, loader)

	addr := cfg.Server.Addr
	if addr == "" {
		addr = ":8080"
	}
	if err := r.Run(addr); err != nil {
		log.Fatalf("服务退出: %v", err)
	}
}

func configPath() string {
	if p := os.Getenv("INTENT_BOT_CONFIG"); p != "" {
		return p
	}
	return "config/config.yaml"
}

func loadAppConfig(path string) (*model.AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg model.AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
