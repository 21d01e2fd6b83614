package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeWin      = "win"
	OutcomeNoWin    = "no_win"
	OutcomeRejected = "rejected"
)

var (
	DrawsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prizedraw_draws_total",
		Help: "Total draw requests by outcome",
	}, []string{"outcome"})

	DrawRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prizedraw_draw_rejections_total",
		Help: "Draw requests rejected before any side effect, by reason",
	}, []string{"reason"})

	StockRaceRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prizedraw_stock_race_retries_total",
		Help: "Selections re-run because the chosen prize ran out of stock",
	})

	StockDecrementErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prizedraw_stock_decrement_errors_total",
		Help: "Prizes skipped because the stock store failed, not because stock ran out",
	})

	ReconciliationPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prizedraw_reconciliation_pending",
		Help: "Draws debited, or possibly debited, but not yet recorded",
	})

	DrawDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prizedraw_draw_duration_seconds",
		Help:    "Time to complete a draw request",
		Buckets: prometheus.DefBuckets,
	})
)

func RecordOutcome(win bool) {
	if win {
		DrawsTotal.WithLabelValues(OutcomeWin).Inc()
		return
	}
	DrawsTotal.WithLabelValues(OutcomeNoWin).Inc()
}

func RecordRejection(reason string) {
	label := strings.TrimSpace(reason)
	if label == "" {
		label = "unknown"
	}
	DrawsTotal.WithLabelValues(OutcomeRejected).Inc()
	DrawRejections.WithLabelValues(label).Inc()
}

func IncStockRaceRetry() {
	StockRaceRetries.Inc()
}

func IncStockDecrementError() {
	StockDecrementErrors.Inc()
}

func SetReconciliationPending(count int64) {
	if count < 0 {
		count = 0
	}
	ReconciliationPending.Set(float64(count))
}

func IncReconciliationPending() {
	ReconciliationPending.Inc()
}

func ObserveDrawDuration(d time.Duration) {
	DrawDuration.Observe(d.Seconds())
}
