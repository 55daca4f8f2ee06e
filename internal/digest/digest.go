// Package digest logs a periodic at-a-glance summary of the subscription
// registry. It is read-only over the engine; the schedule is driven by cron
// from config.
package digest

import (
	"github.com/rs/zerolog"

	"github.com/dvloznov/subscription-assistant/internal/engine"
)

// Digest writes renewal summaries to the service log.
type Digest struct {
	engine      *engine.Engine
	horizonDays int
	log         zerolog.Logger
}

// New creates a digest over an engine with the given look-ahead window.
func New(eng *engine.Engine, horizonDays int, log zerolog.Logger) *Digest {
	return &Digest{engine: eng, horizonDays: horizonDays, log: log}
}

// Run logs the current dashboard summary and each upcoming renewal.
func (d *Digest) Run() {
	summary := d.engine.Dashboard(d.horizonDays)

	d.log.Info().
		Int("active", summary.ActiveSubscriptions).
		Int("cancelled", summary.CancelledSubscriptions).
		Str("monthly_commitment", summary.MonthlyCommitment.String()).
		Str("total_savings", summary.TotalSavings.String()).
		Int("upcoming", len(summary.UpcomingRenewals)).
		Msg("Subscription digest")

	for _, sub := range summary.UpcomingRenewals {
		d.log.Info().
			Int64("subscription_id", sub.ID).
			Str("provider", sub.Provider).
			Str("renews_on", sub.NextRenewalDate.String()).
			Str("monthly_cost", sub.MonthlyCost.String()).
			Msg("Upcoming renewal")
	}
}
