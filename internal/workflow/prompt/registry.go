// Package prompt 管理嵌入的提示词模板
package prompt

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt
var templatesFS embed.FS

type PromptID string

const (
	PromptClassifyV1      PromptID = "classify_v1"
	PromptDescribeV1      PromptID = "describe_v1"
	PromptSummaryV1       PromptID = "summary_v1"
	PromptReplyV1         PromptID = "reply_v1"
	PromptDiagramV1       PromptID = "diagram_v1"
	PromptDiagramAdjustV1 PromptID = "diagram_adjust_v1"
)

// All 全部已知模板，启动时用于预加载校验
var All = []PromptID{
	PromptClassifyV1,
	PromptDescribeV1,
	PromptSummaryV1,
	PromptReplyV1,
	PromptDiagramV1,
	PromptDiagramAdjustV1,
}

type Registry struct {
	mu    sync.RWMutex
	cache map[PromptID]einoprompt.ChatTemplate
}

func NewRegistry() *Registry {
	return &Registry{
		cache: make(map[PromptID]einoprompt.ChatTemplate),
	}
}

func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}

	r.mu.RLock()
	if tpl, ok := r.cache[id]; ok {
		r.mu.RUnlock()
		return tpl, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.cache[id]; ok {
		return tpl, nil
	}

	systemPath, userPath, err := resolvePromptFiles(id)
	if err != nil {
		return nil, err
	}
	system, err := readEmbeddedText(systemPath)
	if err != nil {
		return nil, err
	}
	user, err := readEmbeddedText(userPath)
	if err != nil {
		return nil, err
	}

	tpl := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(system),
		schema.UserMessage(user),
	)
	r.cache[id] = tpl
	return tpl, nil
}

// Preload 一次性解析全部模板，模板缺失时尽早失败
func (r *Registry) Preload() error {
	for _, id := range All {
		if _, err := r.ChatTemplate(id); err != nil {
			return fmt.Errorf("load prompt %s: %w", id, err)
		}
	}
	return nil
}

func resolvePromptFiles(id PromptID) (systemFile string, userFile string, err error) {
	for _, known := range All {
		if known == id {
			return fmt.Sprintf("templates/%s.system.txt", id), fmt.Sprintf("templates/%s.user.txt", id), nil
		}
	}
	return "", "", fmt.Errorf("unknown prompt id: %s", id)
}

func readEmbeddedText(path string) (string, error) {
	b, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
