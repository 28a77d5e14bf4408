package agent

import (
	"context"
	"fmt"
	"time"
)

// Ping sends a two-token completion to verify the provider is reachable and
// the credentials are accepted.
func Ping(ctx context.Context, provider LLMProvider, model string) (time.Duration, error) {
	start := time.Now()
	_, err := provider.Call(ctx, LLMRequest{
		Model:     model,
		Messages:  []Message{{Role: RoleUser, Content: "Health check"}},
		MaxTokens: 2,
	})
	elapsed := time.Since(start)
	if err != nil {
		return elapsed, fmt.Errorf("%s health check failed: %w", provider.Provider(), err)
	}
	return elapsed, nil
}
