package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "realestate_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	LedgerCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realestate_ledger_calls_total",
			Help: "Ledger contract calls by function and outcome",
		},
		[]string{"function", "status"},
	)

	LedgerRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realestate_ledger_retries_total",
			Help: "Ledger submissions retried after a transient failure",
		},
		[]string{"function"},
	)

	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realestate_settlements_total",
			Help: "Completed ownership transfers by settlement path",
		},
		[]string{"kind"},
	)

	JobMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realestate_job_messages_total",
			Help: "Background job items by job and result",
		},
		[]string{"job", "result"},
	)
)

const (
	SettlementFixedPrice   = "fixed_price"
	SettlementOffer        = "offer"
	SettlementAuctionEager = "auction_eager"
	SettlementAuctionEnd   = "auction_end"
	SettlementAuctionSweep = "auction_sweep"
	SettlementTransfer     = "transfer"
)
