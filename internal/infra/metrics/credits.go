package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(creditsDebited, creditsGranted, debitRejections) }

var (
	creditsDebited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "credits_debited_total",
			Help: "Total credits debited at job acceptance.",
		},
	)

	creditsGranted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credits_granted_total",
			Help: "Total credits granted, labeled by reason (signup/purchase/refund).",
		},
		[]string{"reason"},
	)

	debitRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "credit_debit_rejections_total",
			Help: "Count of submissions rejected for insufficient balance.",
		},
	)
)

func AddCreditsDebited(n int)              { creditsDebited.Add(float64(n)) }
func AddCreditsGranted(reason string, n int) { creditsGranted.WithLabelValues(norm(reason)).Add(float64(n)) }
func IncDebitRejection()                   { debitRejections.Inc() }
