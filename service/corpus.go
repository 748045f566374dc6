package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"intent-bot/dao"
	"intent-bot/model"
)

// CorpusLoader 把 yaml 种子语料灌进存储，并可监听文件变更热加载
type CorpusLoader struct {
	store     *dao.RedisStore
	workflows *WorkflowRegistry
	path      string
}

func NewCorpusLoader(store *dao.RedisStore, workflows *WorkflowRegistry, path string) *CorpusLoader {
	return &CorpusLoader{store: store, workflows: workflows, path: path}
}

type seedFile struct {
	Intents []model.Intent `yaml:"intents"`
}

// Load 解析种子文件并整体替换涉及的作用域
func (l *CorpusLoader) Load(ctx context.Context) error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("读取语料文件失败: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("解析语料文件失败: %w", err)
	}

	byScope := make(map[string][]model.Intent)
	scopes := make(map[string]model.Scope)
	for _, it := range seed.Intents {
		if err := l.validate(&it); err != nil {
			return err
		}
		k := it.Scope.Key()
		byScope[k] = append(byScope[k], it)
		scopes[k] = it.Scope
	}

	for k, intents := range byScope {
		if err := l.store.ReplaceScopeIntents(ctx, scopes[k], intents); err != nil {
			return fmt.Errorf("写入作用域 %s 语料失败: %w", k, err)
		}
		log.Printf("[Corpus] 作用域 %s 加载 %d 个意图", k, len(intents))
	}
	return nil
}

func (l *CorpusLoader) validate(it *model.Intent) error {
	if it.Name == "" {
		return fmt.Errorf("语料校验失败: 存在未命名意图")
	}
	if len(it.Phrases) == 0 {
		return fmt.Errorf("语料校验失败: 意图 %q 没有训练短语", it.Name)
	}
	switch it.Type {
	case model.IntentInfo, model.IntentAction, model.IntentLead, model.IntentHuman:
	default:
		return fmt.Errorf("语料校验失败: 意图 %q 类型非法 %q", it.Name, it.Type)
	}
	// 工作流种类在加载期就解析，请求期不会再遇到未知名字
	if !l.workflows.Known(it.Workflow) {
		return fmt.Errorf("语料校验失败: 意图 %q 引用未注册工作流 %q", it.Name, it.Workflow)
	}
	return nil
}

// Watch 监听种子文件所在目录，文件变更后重新加载。
// 失败只记日志，线上语料保持上一次成功加载的版本。
func (l *CorpusLoader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听失败: %w", err)
	}

	dir := filepath.Dir(l.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("监听目录 %s 失败: %w", dir, err)
	}
	log.Printf("[Corpus] 开始监听 %s", l.path)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if filepath.Base(event.Name) != filepath.Base(l.path) {
					continue
				}
				// 稍等写入完成
				time.Sleep(100 * time.Millisecond)
				if err := l.Load(ctx); err != nil {
					log.Printf("[Corpus] 热加载失败: %v", err)
					continue
				}
				log.Printf("[Corpus] 热加载完成: %s", event.Name)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[Corpus] 文件监听错误: %v", err)
			}
		}
	}()
	return nil
}

// LoadSynonyms 读取同义词覆盖表；路径为空返回 nil 表
func LoadSynonyms(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取同义词文件失败: %w", err)
	}
	var table map[string]string
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("解析同义词文件失败: %w", err)
	}
	return table, nil
}
