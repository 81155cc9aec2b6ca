package service

import (
	"time"

	"toolrent-backend/internal/metrics"
	"toolrent-backend/internal/repository"
)

// Engine bundles the components sharing one store, rule set and clock.
type Engine struct {
	Registry  ToolUnitRegistry
	Customers CustomerAccount
	Loans     LoanLedger
	Kardex    KardexRecorder
	Reports   ReportAggregator
}

// NewEngine wires the engine. A nil clock uses time.Now in UTC; nil metrics
// disable instrumentation.
func NewEngine(store repository.Store, rules Rules, m *metrics.Metrics, now Clock) *Engine {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	kardex := NewKardexRecorder(store, now)
	registry := NewToolUnitRegistry(store, kardex, rules, m)
	customers := NewCustomerAccount(store, rules, m, now)
	return &Engine{
		Registry:  registry,
		Customers: customers,
		Loans:     NewLoanLedger(store, registry, customers, kardex, m, now),
		Kardex:    kardex,
		Reports:   NewReportAggregator(store, now),
	}
}
