// Package gateway is the request-time orchestration for a chat turn: admit
// through the quota gate, compose the system prompt from server-side
// configuration, route to a model and credential pool, invoke the upstream
// provider, price the call, and hand the records to the background writer.
package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/vireoai/convo-gateway/internal/history"
	"github.com/vireoai/convo-gateway/internal/metrics"
	"github.com/vireoai/convo-gateway/internal/pricing"
	"github.com/vireoai/convo-gateway/internal/profile"
	"github.com/vireoai/convo-gateway/internal/prompt"
	"github.com/vireoai/convo-gateway/internal/provider"
	"github.com/vireoai/convo-gateway/internal/quota"
	"github.com/vireoai/convo-gateway/internal/recorder"
	"github.com/vireoai/convo-gateway/internal/routing"
	"github.com/vireoai/convo-gateway/internal/tenant"
	"github.com/vireoai/convo-gateway/internal/usage"
	"github.com/vireoai/convo-gateway/pkg/ratelimit"
)

// DefaultFallbackMessage is returned in place of a completion when the
// upstream provider fails. It must never expose provider internals.
const DefaultFallbackMessage = "I'm having trouble answering right now. Please try again in a moment — and if this keeps happening, reach us through the support chat and we'll help directly."

type ChatRequest struct {
	Message    string             `json:"message"`
	History    []HistoryMessage   `json:"history"`
	Mode       string             `json:"mode"`
	TenantID   string             `json:"tenantId"`
	SessionID  string             `json:"sessionId"`
	ToneConfig *prompt.ToneConfig `json:"toneConfig"`
}

type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatResponse struct {
	Success           bool   `json:"success"`
	Response          string `json:"response"`
	TokensUsed        int    `json:"tokensUsed"`
	MessagesRemaining int    `json:"messagesRemaining"`
	Plan              string `json:"plan"`
}

type Handler struct {
	gate     *quota.Gate
	profiles profile.Store
	router   *routing.Router
	prices   *pricing.Table
	rec      *recorder.Recorder
	usage    usage.Store
	limiter  *ratelimit.Limiter
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	log      *zap.Logger
	fallback string
}

func NewHandler(
	gate *quota.Gate,
	profiles profile.Store,
	router *routing.Router,
	prices *pricing.Table,
	rec *recorder.Recorder,
	usageStore usage.Store,
	limiter *ratelimit.Limiter,
	m *metrics.Metrics,
	tracer trace.Tracer,
	log *zap.Logger,
	fallback string,
) *Handler {
	if fallback == "" {
		fallback = DefaultFallbackMessage
	}
	return &Handler{
		gate:     gate,
		profiles: profiles,
		router:   router,
		prices:   prices,
		rec:      rec,
		usage:    usageStore,
		limiter:  limiter,
		metrics:  m,
		tracer:   tracer,
		log:      log,
		fallback: fallback,
	}
}

func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Message == "" {
		respond(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	mode := tenant.ParseMode(req.Mode)
	if mode == tenant.ModeProduct && req.TenantID == "" {
		respond(w, http.StatusBadRequest, map[string]string{"error": "tenantId is required"})
		return
	}

	ctx, span := h.tracer.Start(ctx, "gateway.chat")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant_id", req.TenantID),
		attribute.String("mode", mode.String()),
	)

	// Workshop turns are anonymous: no quota, no profile, no persistence.
	plan := tenant.PlanFree
	remaining := quota.UnlimitedRemaining
	if mode == tenant.ModeProduct {
		if h.limiter != nil {
			allowed, err := h.limiter.Allow(ctx, req.TenantID)
			if err != nil {
				h.log.Warn("burst limiter unavailable, allowing request", zap.Error(err))
			} else if !allowed {
				h.metrics.ChatRequests.WithLabelValues("burst_limited").Inc()
				w.Header().Set("Retry-After", "60")
				respond(w, http.StatusTooManyRequests, map[string]string{"error": "too many requests, slow down"})
				return
			}
		}

		reservation, err := h.gate.Reserve(ctx, req.TenantID)
		if err != nil {
			h.log.Error("quota reservation failed", zap.String("tenant_id", req.TenantID), zap.Error(err))
			h.metrics.ChatRequests.WithLabelValues("error").Inc()
			respond(w, http.StatusInternalServerError, map[string]string{
				"error":   "internal error",
				"details": "could not check your message allowance",
			})
			return
		}
		if !reservation.Allowed {
			h.metrics.QuotaRejections.Inc()
			h.metrics.ChatRequests.WithLabelValues("quota_exceeded").Inc()
			respond(w, http.StatusTooManyRequests, map[string]any{
				"error":             "daily message limit reached",
				"limitReached":      true,
				"messagesRemaining": 0,
			})
			return
		}
		plan = reservation.Plan
		remaining = reservation.Remaining
	}

	var biz *profile.BusinessProfile
	if mode == tenant.ModeProduct {
		p, err := h.profiles.GetByTenant(ctx, req.TenantID)
		switch {
		case err == nil:
			biz = p
		case errors.Is(err, profile.ErrNotFound):
			// optional; compose without business context
		default:
			h.log.Warn("failed to load business profile", zap.String("tenant_id", req.TenantID), zap.Error(err))
		}
	}

	systemPrompt := prompt.Compose(mode, biz, req.ToneConfig)
	route := h.router.RouteFor(mode, plan)
	span.SetAttributes(
		attribute.String("plan", plan.String()),
		attribute.String("model", route.Model),
		attribute.String("pool", string(route.Pool)),
	)

	hist := make([]provider.Message, len(req.History))
	for i, m := range req.History {
		hist[i] = provider.Message{Role: m.Role, Content: m.Content}
	}

	result, err := h.router.Invoke(ctx, route, mode, plan, systemPrompt, hist, req.Message)
	if err != nil {
		h.handleUpstreamFailure(w, &req, mode, plan, route, remaining, err)
		return
	}

	h.metrics.UpstreamLatency.WithLabelValues(string(route.Pool), route.Model).
		Observe(float64(result.LatencyMs) / 1000)

	cost, err := h.prices.Price(route.Model, result.InputTokens, result.OutputTokens)
	if err != nil {
		// Unknown model in the pricing table is a configuration error; fail
		// loudly rather than silently pricing at zero. The quota unit stays
		// consumed.
		h.log.Error("pricing failed", zap.String("model", route.Model), zap.Error(err))
		h.metrics.ChatRequests.WithLabelValues("config_error").Inc()
		respond(w, http.StatusInternalServerError, map[string]string{
			"error":   "configuration error",
			"details": "the service is misconfigured, please contact support",
		})
		return
	}

	totalTokens := result.InputTokens + result.OutputTokens
	if mode == tenant.ModeProduct {
		h.rec.Enqueue(recorder.Record{
			Usage: &usage.Entry{
				TenantID:     req.TenantID,
				SessionID:    req.SessionID,
				Model:        route.Model,
				Pool:         string(route.Pool),
				Plan:         plan.String(),
				InputTokens:  result.InputTokens,
				OutputTokens: result.OutputTokens,
				TotalTokens:  totalTokens,
				InputCost:    cost.Input,
				OutputCost:   cost.Output,
				TotalCost:    cost.Total,
				LatencyMs:    result.LatencyMs,
				Success:      true,
				UsageMissing: result.UsageMissing,
			},
			UserMessage:      userMessage(&req),
			AssistantMessage: assistantMessage(&req, result.Text, totalTokens),
			SessionID:        req.SessionID,
		})
	}

	h.metrics.ChatRequests.WithLabelValues("success").Inc()
	respond(w, http.StatusOK, ChatResponse{
		Success:           true,
		Response:          result.Text,
		TokensUsed:        totalTokens,
		MessagesRemaining: remaining,
		Plan:              plan.String(),
	})
}

// handleUpstreamFailure degrades a provider error into a trustworthy
// user-facing message. The quota unit reserved before the call stays
// consumed, and a usage-log entry with success=false keeps the failure
// visible operationally.
func (h *Handler) handleUpstreamFailure(w http.ResponseWriter, req *ChatRequest, mode tenant.Mode, plan tenant.Plan, route routing.Route, remaining int, err error) {
	var upstream *routing.UpstreamError
	latency := int64(0)
	if errors.As(err, &upstream) {
		latency = upstream.LatencyMs
	}

	h.log.Error("upstream call failed",
		zap.String("tenant_id", req.TenantID),
		zap.String("model", route.Model),
		zap.String("pool", string(route.Pool)),
		zap.Int64("latency_ms", latency),
		zap.Error(err),
	)
	h.metrics.UpstreamFailures.WithLabelValues(string(route.Pool)).Inc()
	h.metrics.ChatRequests.WithLabelValues("upstream_error").Inc()

	if mode == tenant.ModeProduct {
		h.rec.Enqueue(recorder.Record{
			Usage: &usage.Entry{
				TenantID:  req.TenantID,
				SessionID: req.SessionID,
				Model:     route.Model,
				Pool:      string(route.Pool),
				Plan:      plan.String(),
				LatencyMs: latency,
				Success:   false,
			},
			UserMessage: userMessage(req),
			SessionID:   req.SessionID,
		})
	}

	respond(w, http.StatusOK, ChatResponse{
		Success:           true,
		Response:          h.fallback,
		TokensUsed:        0,
		MessagesRemaining: remaining,
		Plan:              plan.String(),
	})
}

func userMessage(req *ChatRequest) *history.Message {
	if req.SessionID == "" {
		return nil
	}
	return &history.Message{
		SessionID: req.SessionID,
		Role:      "user",
		Content:   req.Message,
	}
}

func assistantMessage(req *ChatRequest, text string, tokens int) *history.Message {
	if req.SessionID == "" {
		return nil
	}
	return &history.Message{
		SessionID:  req.SessionID,
		Role:       "assistant",
		Content:    text,
		TokensUsed: tokens,
	}
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// HandleUsage returns the tenant's usage-log entries and total cost over a
// date range, defaulting to the last 30 days.
func (h *Handler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID := r.URL.Query().Get("tenantId")
	if tenantID == "" {
		respond(w, http.StatusBadRequest, map[string]string{"error": "tenantId is required"})
		return
	}

	now := time.Now()
	from := now.AddDate(0, 0, -30)
	to := now

	if s := r.URL.Query().Get("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			respond(w, http.StatusBadRequest, map[string]string{"error": "invalid 'from' date format (use RFC3339)"})
			return
		}
		from = t
	}
	if s := r.URL.Query().Get("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			respond(w, http.StatusBadRequest, map[string]string{"error": "invalid 'to' date format (use RFC3339)"})
			return
		}
		to = t
	}

	entries, err := h.usage.GetUsageByTenant(ctx, tenantID, from, to)
	if err != nil {
		h.log.Error("failed to load usage", zap.String("tenant_id", tenantID), zap.Error(err))
		respond(w, http.StatusInternalServerError, map[string]string{"error": "failed to load usage"})
		return
	}

	totalCost, err := h.usage.GetTotalCostByTenant(ctx, tenantID, from, to)
	if err != nil {
		h.log.Error("failed to total cost", zap.String("tenant_id", tenantID), zap.Error(err))
		respond(w, http.StatusInternalServerError, map[string]string{"error": "failed to load usage"})
		return
	}

	respond(w, http.StatusOK, map[string]any{
		"tenantId":      tenantID,
		"totalRequests": len(entries),
		"totalCost":     totalCost,
		"entries":       entries,
		"from":          from,
		"to":            to,
	})
}
