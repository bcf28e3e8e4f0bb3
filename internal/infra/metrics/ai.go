package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		aiTokensIn,
		aiTokensOut,
		aiTokensTotal,
		aiPromptTokens,
		aiCallsLatencyMs,
		guardrailRejections,
	)
}

var (
	aiTokensIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_in",
			Help: "Sum of prompt (input) tokens per model.",
		},
		[]string{"model"},
	)

	aiTokensOut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_out",
			Help: "Sum of completion (output) tokens per model.",
		},
		[]string{"model"},
	)

	aiTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_total",
			Help: "Sum of total tokens per model.",
		},
		[]string{"model"},
	)

	aiPromptTokens = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_prompt_tokens",
			Help:    "Locally counted prompt size per call, before dispatch.",
			Buckets: []float64{128, 256, 512, 1024, 2048, 4096, 8192, 16384, 32768},
		},
		[]string{"model"},
	)

	aiCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_calls_latency_ms",
			Help:    "AI call latency distribution in milliseconds.",
			Buckets: []float64{100, 250, 500, 1000, 2000, 4000, 8000, 16000, 30000, 60000},
		},
		[]string{"model", "success"},
	)

	guardrailRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "guardrail_rejections_total",
			Help: "Count of submissions rejected by the content guardrail.",
		},
	)
)

func ObserveAICall(model string, tokensIn, tokensOut, tokensTotal int, latencyMs int64, success bool) {
	aiTokensIn.WithLabelValues(norm(model)).Add(float64(tokensIn))
	aiTokensOut.WithLabelValues(norm(model)).Add(float64(tokensOut))
	aiTokensTotal.WithLabelValues(norm(model)).Add(float64(tokensTotal))
	aiCallsLatencyMs.WithLabelValues(norm(model), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

// ObservePromptTokens records the tokenizer's local count of an outgoing
// prompt. The provider-reported usage lands in ObserveAICall.
func ObservePromptTokens(model string, n int) {
	aiPromptTokens.WithLabelValues(norm(model)).Observe(float64(n))
}

func IncGuardrailRejection() { guardrailRejections.Inc() }
