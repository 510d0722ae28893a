package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// MockLLM 一个简单的离线实现，便于本地调试，不调用外部模型。
// 标记模式返回覆盖 prompt.Keys 的 JSON 代码块，自由文本模式返回一段 Markdown。
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	if prompt.JSON {
		out := make(map[string]string, len(prompt.Keys))
		for _, k := range prompt.Keys {
			out[k] = fmt.Sprintf("Sample text for %s.", strings.ToLower(k))
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return "", err
		}
		return "```json\n" + string(data) + "\n```", nil
	}

	var sb strings.Builder
	sb.WriteString("# Sample document\n\n")
	sb.WriteString("This text was produced **offline** for the request below.\n\n")
	sb.WriteString("- first point\n- second point\n\n")
	sb.WriteString(prompt.User)
	sb.WriteString("\n")
	return sb.String(), nil
}
