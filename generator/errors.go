package generator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go"
	"google.golang.org/genai"
)

// Error categories. Match with errors.Is.
var (
	ErrRemoteUnavailable = errors.New("text service unavailable")
	ErrQuotaExceeded     = errors.New("text service quota exceeded")
	ErrParseFailure      = errors.New("text service reply could not be parsed")
)

func parseErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrParseFailure, fmt.Sprintf(format, args...))
}

// classify maps a client error onto ErrQuotaExceeded or
// ErrRemoteUnavailable, keeping the original error in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrRemoteUnavailable) || errors.Is(err, ErrParseFailure) {
		return err
	}
	if isQuota(err) {
		return fmt.Errorf("%w: %w", ErrQuotaExceeded, err)
	}
	return fmt.Errorf("%w: %w", ErrRemoteUnavailable, err)
}

func isQuota(err error) bool {
	var oaErr *openai.Error
	if errors.As(err, &oaErr) {
		return oaErr.StatusCode == http.StatusTooManyRequests
	}

	var gErr genai.APIError
	if errors.As(err, &gErr) {
		return gErr.Code == http.StatusTooManyRequests || gErr.Status == "RESOURCE_EXHAUSTED"
	}
	var gErrPtr *genai.APIError
	if errors.As(err, &gErrPtr) {
		return gErrPtr.Code == http.StatusTooManyRequests || gErrPtr.Status == "RESOURCE_EXHAUSTED"
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota")
}
