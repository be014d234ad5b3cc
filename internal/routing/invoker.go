package routing

import (
	"context"
	"fmt"
	"time"

	"github.com/vireoai/convo-gateway/internal/provider"
	"github.com/vireoai/convo-gateway/internal/tenant"
)

// UpstreamError wraps a provider failure with the latency observed before it
// surfaced, so the usage log keeps operational visibility into slow failures.
type UpstreamError struct {
	Pool      Pool
	Model     string
	LatencyMs int64
	Err       error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream call failed (pool %s, model %s, %dms): %v", e.Pool, e.Model, e.LatencyMs, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// tierParams are the generation parameters per plan tier. The caller never
// chooses them.
type tierParams struct {
	historyWindow int // trailing prior messages kept
	temperature   float64
	maxTokens     int
}

func paramsFor(mode tenant.Mode, plan tenant.Plan) tierParams {
	if mode == tenant.ModeProduct && plan == tenant.PlanPro {
		return tierParams{historyWindow: 20, temperature: 0.7, maxTokens: 1500}
	}
	return tierParams{historyWindow: 6, temperature: 0.7, maxTokens: 500}
}

// Result is the outcome of one upstream call.
type Result struct {
	Text         string
	InputTokens  int
	OutputTokens int
	UsageMissing bool
	LatencyMs    int64
}

// Invoke sends one turn to the routed pool: the composed system prompt, a
// trailing window of prior turns sized by plan, then the new user message.
// History roles other than user/assistant are dropped before the call — the
// only system message the provider ever sees is the one composed server-side.
// No internal retry; failures come back as *UpstreamError with the quota unit
// already spent.
func (r *Router) Invoke(ctx context.Context, route Route, mode tenant.Mode, plan tenant.Plan, systemPrompt string, history []provider.Message, userMessage string) (*Result, error) {
	client, ok := r.clients[route.Pool]
	if !ok {
		return nil, fmt.Errorf("no client for credential pool %q", route.Pool)
	}

	params := paramsFor(mode, plan)
	messages := buildMessages(systemPrompt, history, userMessage, params.historyWindow)

	req := &provider.Request{
		Model:       route.Model,
		Messages:    messages,
		Temperature: params.temperature,
		MaxTokens:   params.maxTokens,
	}

	breaker := r.breakers[route.Pool]
	start := time.Now()
	result, err := breaker.Execute(func() (interface{}, error) {
		return client.CreateCompletion(ctx, req)
	})
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return nil, &UpstreamError{Pool: route.Pool, Model: route.Model, LatencyMs: latency, Err: err}
	}

	completion := result.(*provider.Completion)
	return &Result{
		Text:         completion.Content,
		InputTokens:  completion.InputTokens,
		OutputTokens: completion.OutputTokens,
		UsageMissing: completion.UsageMissing,
		LatencyMs:    latency,
	}, nil
}

func buildMessages(systemPrompt string, history []provider.Message, userMessage string, window int) []provider.Message {
	sanitized := make([]provider.Message, 0, len(history))
	for _, m := range history {
		if m.Role == "user" || m.Role == "assistant" {
			sanitized = append(sanitized, m)
		}
	}
	if len(sanitized) > window {
		sanitized = sanitized[len(sanitized)-window:]
	}

	messages := make([]provider.Message, 0, len(sanitized)+2)
	messages = append(messages, provider.Message{Role: "system", Content: systemPrompt})
	messages = append(messages, sanitized...)
	messages = append(messages, provider.Message{Role: "user", Content: userMessage})
	return messages
}
