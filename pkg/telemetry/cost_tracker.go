// Package telemetry provides API cost tracking with daily limits.
//
// The telemetry package accumulates per-provider LLM spend from the
// cost-per-token rates in the provider configuration, with daily
// resets and an alert threshold. Spend is recorded, never blocked:
// budget enforcement belongs to the application layer.
package telemetry

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// CostTracker tracks API costs across providers.
type CostTracker struct {
	mu sync.RWMutex

	dailyMaxUSD       float64
	alertThresholdUSD float64

	// Daily tracking (resets at midnight)
	dailySpend        float64
	dailyTokens       int64
	dailyRequestCount int
	lastResetDate     string

	// Overall tracking
	totalSpend        float64
	totalTokens       int64
	totalRequestCount int
	spendByProvider   map[string]float64

	logger zerolog.Logger
}

// NewCostTracker creates a cost tracker with the given limits.
func NewCostTracker(dailyMaxUSD, alertThresholdUSD float64, logger zerolog.Logger) *CostTracker {
	return &CostTracker{
		dailyMaxUSD:       dailyMaxUSD,
		alertThresholdUSD: alertThresholdUSD,
		lastResetDate:     time.Now().Format("2006-01-02"),
		spendByProvider:   make(map[string]float64),
		logger:            logger,
	}
}

// Record accumulates the cost of one request against a provider.
func (ct *CostTracker) Record(providerName string, tokens int, costUSD float64) {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	ct.checkDailyReset()

	ct.dailySpend += costUSD
	ct.dailyTokens += int64(tokens)
	ct.dailyRequestCount++

	ct.totalSpend += costUSD
	ct.totalTokens += int64(tokens)
	ct.totalRequestCount++
	ct.spendByProvider[providerName] += costUSD

	ct.logger.Debug().
		Str("provider", providerName).
		Int("tokens", tokens).
		Float64("cost_usd", costUSD).
		Float64("daily_spend_usd", ct.dailySpend).
		Msg("Request cost recorded")

	// Warn once when crossing the alert threshold, and again when the
	// daily cap itself is exceeded.
	if ct.dailySpend >= ct.alertThresholdUSD && ct.dailySpend-costUSD < ct.alertThresholdUSD {
		ct.logger.Warn().
			Float64("daily_spend_usd", ct.dailySpend).
			Float64("alert_threshold_usd", ct.alertThresholdUSD).
			Float64("daily_max_usd", ct.dailyMaxUSD).
			Msg("Daily cost alert threshold reached")
	}
	if ct.dailySpend >= ct.dailyMaxUSD && ct.dailySpend-costUSD < ct.dailyMaxUSD {
		ct.logger.Warn().
			Float64("daily_spend_usd", ct.dailySpend).
			Float64("daily_max_usd", ct.dailyMaxUSD).
			Msg("Daily cost limit exceeded")
	}
}

// checkDailyReset resets daily counters if the date has changed.
func (ct *CostTracker) checkDailyReset() {
	today := time.Now().Format("2006-01-02")
	if today != ct.lastResetDate {
		ct.logger.Info().
			Float64("previous_daily_spend_usd", ct.dailySpend).
			Int("previous_daily_requests", ct.dailyRequestCount).
			Msg("Daily cost tracking reset")

		ct.dailySpend = 0
		ct.dailyTokens = 0
		ct.dailyRequestCount = 0
		ct.lastResetDate = today
	}
}

// GetDailyStats returns current daily statistics.
func (ct *CostTracker) GetDailyStats() DailyStats {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	ct.checkDailyReset()

	return DailyStats{
		SpendUSD:     ct.dailySpend,
		Tokens:       ct.dailyTokens,
		RequestCount: ct.dailyRequestCount,
		LimitUSD:     ct.dailyMaxUSD,
		RemainingUSD: ct.dailyMaxUSD - ct.dailySpend,
	}
}

// GetTotalStats returns overall statistics including the per-provider
// spend breakdown.
func (ct *CostTracker) GetTotalStats() TotalStats {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	byProvider := make(map[string]float64, len(ct.spendByProvider))
	for name, spend := range ct.spendByProvider {
		byProvider[name] = spend
	}

	return TotalStats{
		TotalSpendUSD:   ct.totalSpend,
		TotalTokens:     ct.totalTokens,
		TotalRequests:   ct.totalRequestCount,
		SpendByProvider: byProvider,
	}
}

// DailyStats holds daily cost statistics.
type DailyStats struct {
	SpendUSD     float64
	Tokens       int64
	RequestCount int
	LimitUSD     float64
	RemainingUSD float64
}

// TotalStats holds overall cost statistics.
type TotalStats struct {
	TotalSpendUSD   float64
	TotalTokens     int64
	TotalRequests   int
	SpendByProvider map[string]float64
}
