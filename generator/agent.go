package generator

import (
	"context"
	"errors"
	"strings"
)

// Agent 负责根据 Request 生成标记内容或自由文本。
type Agent struct {
	llm     LLMClient
	prompts PromptConfig
	delims  Delimiters
}

// AgentConfig 配置提示词与标记约定，零值字段使用默认值。
type AgentConfig struct {
	Prompts    PromptConfig
	Delimiters Delimiters
}

func NewAgent(llm LLMClient, cfg AgentConfig) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	prompts := cfg.Prompts
	if prompts.System == "" {
		prompts.System = DefaultPromptConfig.System
	}
	if prompts.Instructions == "" {
		prompts.Instructions = DefaultPromptConfig.Instructions
	}
	if prompts.EssayInstructions == "" {
		prompts.EssayInstructions = DefaultPromptConfig.EssayInstructions
	}
	delims := cfg.Delimiters
	if delims.Open == "" || delims.Close == "" {
		delims = DefaultDelimiters
	}
	return &Agent{llm: llm, prompts: prompts, delims: delims}, nil
}

// Delimiters 返回标记的定界符约定。
func (a *Agent) Delimiters() Delimiters { return a.delims }

// Markers 为每个标记请求一段文本，返回解析并清理后的键值对（键为完整标记）。
func (a *Agent) Markers(ctx context.Context, req Request) ([]Pair, error) {
	if strings.TrimSpace(req.Subject) == "" {
		return nil, errors.New("subject is required")
	}
	if len(req.Keys) == 0 {
		return nil, errors.New("no marker keys requested")
	}

	raw, err := a.llm.Complete(ctx, BuildMarkerPrompt(a.prompts, req))
	if err != nil {
		return nil, classify(err)
	}
	return ParseMarkers(raw, a.delims, req.Keys)
}

// Essay 请求自由文本，并把 Markdown 转换为富文本。
func (a *Agent) Essay(ctx context.Context, req Request) (RichText, error) {
	if strings.TrimSpace(req.Subject) == "" {
		return nil, errors.New("subject is required")
	}

	raw, err := a.llm.Complete(ctx, BuildEssayPrompt(a.prompts, req))
	if err != nil {
		return nil, classify(err)
	}
	return ParseRichText(raw)
}
