package generator

import (
	"fmt"
	"strings"
)

// Prompt 表示发送给 LLM 的消息。
type Prompt struct {
	System string
	User   string
	// JSON 要求模型返回 JSON（提供方支持时）。
	JSON bool
	// Keys 是 JSON 回复必须包含的标记名。
	Keys []string
}

// PromptConfig 可配置的提示词文本。
type PromptConfig struct {
	System            string
	Instructions      string
	EssayInstructions string
}

// DefaultPromptConfig 默认提示词，对应学术案例分析场景。
var DefaultPromptConfig = PromptConfig{
	System: "You write original, well-structured academic texts. Follow the output format exactly and add nothing else.",
	Instructions: "Write the answers for the professional challenge case study, adapted to the subject below. " +
		"Each answer must be specific to the subject and written as finished prose.",
	EssayInstructions: "Write a complete answer to the professional challenge case study, adapted to the subject below. " +
		"Use Markdown headings for sections and **double asterisks** to emphasise key terms.",
}

// BuildMarkerPrompt 生成标记填充提示词，要求返回以标记名为键的扁平 JSON 对象。
func BuildMarkerPrompt(cfg PromptConfig, req Request) Prompt {
	var sb strings.Builder
	sb.WriteString(cfg.Instructions)
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Subject: %s\n", req.Subject))
	if req.CaseDescription != "" {
		sb.WriteString(fmt.Sprintf("Case description:\n%s\n", req.CaseDescription))
	}
	sb.WriteString("\nReturn ONLY a JSON object with exactly these keys, each mapped to its text:\n")
	for _, k := range req.Keys {
		sb.WriteString(fmt.Sprintf("- %q\n", k))
	}
	sb.WriteString("Values must be plain strings. Do not use curly braces inside the values.")

	return Prompt{
		System: cfg.System,
		User:   sb.String(),
		JSON:   true,
		Keys:   append([]string(nil), req.Keys...),
	}
}

// BuildEssayPrompt 生成自由文本（Markdown）提示词。
func BuildEssayPrompt(cfg PromptConfig, req Request) Prompt {
	var sb strings.Builder
	sb.WriteString(cfg.EssayInstructions)
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Subject: %s\n", req.Subject))
	if req.CaseDescription != "" {
		sb.WriteString(fmt.Sprintf("Case description:\n%s\n", req.CaseDescription))
	}

	return Prompt{
		System: cfg.System,
		User:   sb.String(),
	}
}
