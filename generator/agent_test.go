package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type stubLLM struct {
	reply  string
	err    error
	prompt Prompt
}

func (s *stubLLM) Complete(_ context.Context, p Prompt) (string, error) {
	s.prompt = p
	return s.reply, s.err
}

func TestNewAgent(t *testing.T) {
	_, err := NewAgent(nil, AgentConfig{})
	assert.Error(t, err)

	a, err := NewAgent(MockLLM{}, AgentConfig{})
	require.NoError(t, err)
	assert.Equal(t, DefaultDelimiters, a.Delimiters())
}

func TestAgent_Markers(t *testing.T) {
	llm := &stubLLM{reply: "```json\n{\"NAME\": \"Ana\", \"{{COURSE}}\": \"Logistics\"}\n```"}
	a, err := NewAgent(llm, AgentConfig{})
	require.NoError(t, err)

	got, err := a.Markers(context.Background(), Request{
		Subject:         "Logistics",
		CaseDescription: "Caroline runs a warehouse",
		Keys:            []string{"NAME", "COURSE"},
	})
	require.NoError(t, err)
	assert.Equal(t, []Pair{{Key: "{{NAME}}", Value: "Ana"}, {Key: "{{COURSE}}", Value: "Logistics"}}, got)

	assert.True(t, llm.prompt.JSON)
	assert.Equal(t, []string{"NAME", "COURSE"}, llm.prompt.Keys)
	assert.Contains(t, llm.prompt.User, "Subject: Logistics")
	assert.Contains(t, llm.prompt.User, "Caroline runs a warehouse")
	assert.Contains(t, llm.prompt.User, `"COURSE"`)
}

func TestAgent_MarkersValidation(t *testing.T) {
	a, err := NewAgent(&stubLLM{}, AgentConfig{})
	require.NoError(t, err)

	_, err = a.Markers(context.Background(), Request{Subject: " ", Keys: []string{"A"}})
	assert.Error(t, err)
	_, err = a.Markers(context.Background(), Request{Subject: "HR"})
	assert.Error(t, err)
}

func TestAgent_MarkersParseFailure(t *testing.T) {
	a, err := NewAgent(&stubLLM{reply: "```json\nI could not do it\n```"}, AgentConfig{})
	require.NoError(t, err)

	got, err := a.Markers(context.Background(), Request{Subject: "HR", Keys: []string{"A"}})
	assert.ErrorIs(t, err, ErrParseFailure)
	assert.Nil(t, got)
}

func TestAgent_ErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "gemini quota",
			err:  genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED", Message: "quota"},
			want: ErrQuotaExceeded,
		},
		{
			name: "gemini auth",
			err:  genai.APIError{Code: http.StatusUnauthorized, Status: "UNAUTHENTICATED", Message: "bad key"},
			want: ErrRemoteUnavailable,
		},
		{
			name: "rate limit text",
			err:  errors.New("429 Too Many Requests: rate limit reached"),
			want: ErrQuotaExceeded,
		},
		{
			name: "connection refused",
			err:  fmt.Errorf("dial tcp: %w", errors.New("connection refused")),
			want: ErrRemoteUnavailable,
		},
		{
			name: "deadline",
			err:  context.DeadlineExceeded,
			want: ErrRemoteUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAgent(&stubLLM{err: tt.err}, AgentConfig{})
			require.NoError(t, err)

			_, err = a.Markers(context.Background(), Request{Subject: "HR", Keys: []string{"A"}})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), tt.err.Error())

			_, err = a.Essay(context.Background(), Request{Subject: "HR"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAgent_Essay(t *testing.T) {
	llm := &stubLLM{reply: "# Title\n\nSome **bold** words."}
	a, err := NewAgent(llm, AgentConfig{Prompts: PromptConfig{EssayInstructions: "Write it."}})
	require.NoError(t, err)

	got, err := a.Essay(context.Background(), Request{Subject: "Marketing"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Level)
	assert.Equal(t, "Title\nSome bold words.", got.plainText())

	assert.False(t, llm.prompt.JSON)
	assert.Contains(t, llm.prompt.User, "Write it.")
	assert.Equal(t, DefaultPromptConfig.System, llm.prompt.System)
}

func TestMockLLM_RoundTrip(t *testing.T) {
	a, err := NewAgent(MockLLM{}, AgentConfig{})
	require.NoError(t, err)

	got, err := a.Markers(context.Background(), Request{Subject: "HR", Keys: []string{"ASPECTO_1", "RESUMO"}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "{{ASPECTO_1}}", got[0].Key)
	assert.Equal(t, "Sample text for aspecto_1.", got[0].Value)

	essay, err := a.Essay(context.Background(), Request{Subject: "HR"})
	require.NoError(t, err)
	assert.NotEmpty(t, essay)
}
