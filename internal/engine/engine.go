package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrSubscriptionNotFound is returned by ApplyDecision for an unknown id.
var ErrSubscriptionNotFound = errors.New("subscription not found")

const (
	// Cadence window: two same-key transactions this many days apart are
	// treated as a monthly recurring charge.
	minCadenceDays = 27
	maxCadenceDays = 33

	// renewalProjectionDays is how far past the latest charge the next
	// renewal is projected.
	renewalProjectionDays = 30

	// emailRenewalLeadDays is the renewal re-estimate applied when a
	// renewal-notice email is correlated to a subscription.
	emailRenewalLeadDays = 7

	// DefaultHorizonDays is the dashboard look-ahead window when the caller
	// does not supply one.
	DefaultHorizonDays = 14
)

// Engine owns the transaction ledger, the subscription registry, the stored
// emails and the savings accumulator for one process. All mutation happens
// under a single lock: the matching engine's scan-then-write sequence is not
// safe under interleaved writers.
type Engine struct {
	mu            sync.Mutex
	transactions  []*TransactionRecord
	emails        []EmailRecord
	subscriptions map[int64]Subscription
	savedTotal    decimal.Decimal
	sequence      int64

	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine's time source. Used by tests that need a
// deterministic "today" for dashboard horizons.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an empty engine. Each instance is independent; construct a
// fresh one per test.
func New(opts ...Option) *Engine {
	e := &Engine{
		subscriptions: make(map[int64]Subscription),
		savedTotal:    decimal.Zero,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterTransaction appends a statement line to the ledger and runs cadence
// detection over its normalized-key cluster. It returns the affected
// subscription snapshot, or nil when the transaction produced no subscription
// effect.
func (e *Engine) RegisterTransaction(in TransactionInput) *Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()

	record := &TransactionRecord{
		DescriptionKey: NormalizeDescription(in.Description),
		Description:    in.Description,
		Amount:         in.Amount,
		Timestamp:      in.Timestamp,
	}
	e.transactions = append(e.transactions, record)
	return e.linkTransaction(record)
}

// linkTransaction evaluates the cadence of record's key cluster and creates or
// updates the cluster's subscription. Caller holds the lock.
func (e *Engine) linkTransaction(record *TransactionRecord) *Subscription {
	similar := e.sameKeyTransactions(record.DescriptionKey)
	if len(similar) < 2 {
		return nil
	}

	latest, previous := similar[len(similar)-1], similar[len(similar)-2]
	interval := int(latest.Timestamp.Sub(previous.Timestamp) / (24 * time.Hour))
	if interval < minCadenceDays || interval > maxCadenceDays {
		return nil
	}

	// Once a cluster has produced a subscription it is only ever updated,
	// never forked, so any linked member identifies the subscription.
	subscriptionID := clusterSubscriptionID(similar)
	if subscriptionID == 0 {
		subscriptionID = e.createSubscription(similar)
	}
	if record.SubscriptionID == 0 {
		record.SubscriptionID = subscriptionID
	}
	e.refreshSubscription(subscriptionID)

	snapshot := e.subscriptions[subscriptionID]
	return &snapshot
}

// sameKeyTransactions returns every ledger record sharing key, ordered by
// timestamp ascending. Arrival order is irrelevant; cadence detection depends
// on timestamp order.
func (e *Engine) sameKeyTransactions(key string) []*TransactionRecord {
	var similar []*TransactionRecord
	for _, tx := range e.transactions {
		if tx.DescriptionKey == key {
			similar = append(similar, tx)
		}
	}
	sort.SliceStable(similar, func(i, j int) bool {
		return similar[i].Timestamp.Before(similar[j].Timestamp)
	})
	return similar
}

func clusterSubscriptionID(cluster []*TransactionRecord) int64 {
	for _, tx := range cluster {
		if tx.SubscriptionID != 0 {
			return tx.SubscriptionID
		}
	}
	return 0
}

// createSubscription builds a subscription from a cluster that just exhibited
// a monthly cadence and links every cluster member to it. Caller holds the
// lock; cluster is ordered by timestamp and has at least two members.
func (e *Engine) createSubscription(cluster []*TransactionRecord) int64 {
	latest := cluster[len(cluster)-1]

	e.sequence++
	sub := Subscription{
		ID:                e.sequence,
		Provider:          DeriveProviderName(latest.Description),
		Reference:         latest.Description,
		MonthlyCost:       meanMagnitude(cluster),
		NextRenewalDate:   civil.DateOf(latest.Timestamp.AddDate(0, 0, renewalProjectionDays)),
		Status:            StatusActive,
		LastTransactionAt: latest.Timestamp,
	}
	e.subscriptions[sub.ID] = sub

	for _, tx := range cluster {
		tx.SubscriptionID = sub.ID
	}
	return sub.ID
}

// refreshSubscription recomputes the snapshot of a subscription from all
// ledger records linked to it. Caller holds the lock.
func (e *Engine) refreshSubscription(id int64) {
	var linked []*TransactionRecord
	for _, tx := range e.transactions {
		if tx.SubscriptionID == id {
			linked = append(linked, tx)
		}
	}
	if len(linked) == 0 {
		return
	}

	latest := linked[0]
	for _, tx := range linked[1:] {
		if tx.Timestamp.After(latest.Timestamp) {
			latest = tx
		}
	}

	sub := e.subscriptions[id]
	sub.MonthlyCost = meanMagnitude(linked)
	sub.NextRenewalDate = civil.DateOf(latest.Timestamp.AddDate(0, 0, renewalProjectionDays))
	sub.LastTransactionAt = latest.Timestamp
	e.subscriptions[id] = sub
}

// meanMagnitude is the absolute mean amount across records, rounded to 2
// decimals.
func meanMagnitude(records []*TransactionRecord) decimal.Decimal {
	sum := decimal.Zero
	for _, tx := range records {
		sum = sum.Add(tx.Amount)
	}
	return sum.Div(decimal.NewFromInt(int64(len(records)))).Abs().Round(2)
}

// IngestEmail classifies and stores an email, then applies its tag effects to
// the registry. The stored record, including computed tags, is returned.
func (e *Engine) IngestEmail(in EmailInput) EmailRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	tags := ClassifyEmail(in.Subject, in.Body)
	if tags == nil {
		// A signal-free email still carries an empty tag set on the wire.
		tags = []string{}
	}
	record := EmailRecord{
		EmailID:   uuid.New().String(),
		Subject:   in.Subject,
		Body:      in.Body,
		Timestamp: in.Timestamp,
		Tags:      tags,
	}
	e.emails = append(e.emails, record)
	e.correlateEmail(record)
	return record
}

// correlateEmail mutates subscriptions according to the email's tags. The
// price-increase note deliberately touches every subscription, matching the
// upstream behavior. Caller holds the lock.
func (e *Engine) correlateEmail(email EmailRecord) {
	if hasTag(email, TagPriceIncrease) {
		note := fmt.Sprintf("Price increase detected on %s", civil.DateOf(email.Timestamp))
		for id, sub := range e.subscriptions {
			sub.Notes = note
			e.subscriptions[id] = sub
		}
	}

	if hasTag(email, TagRenewalNotice) {
		provider := DeriveProviderName(email.Subject)
		nextRenewal := civil.DateOf(email.Timestamp.AddDate(0, 0, emailRenewalLeadDays))
		for id, sub := range e.subscriptions {
			if !strings.EqualFold(sub.Provider, provider) {
				continue
			}
			sub.NextRenewalDate = nextRenewal
			sub.Notes = "Renewal reminder synced from email"
			e.subscriptions[id] = sub
		}
	}
}

func hasTag(email EmailRecord, tag string) bool {
	for _, t := range email.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ApplyDecision applies a user's cancel/renew choice to a subscription and
// returns the updated snapshot. Cancelling accrues the monthly cost as
// savings exactly once; re-cancelling is a no-op for the accumulator.
func (e *Engine) ApplyDecision(id int64, decision Decision) (Subscription, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sub, ok := e.subscriptions[id]
	if !ok {
		return Subscription{}, fmt.Errorf("%w: id %d", ErrSubscriptionNotFound, id)
	}

	switch decision {
	case DecisionCancel:
		if sub.Status != StatusCancelled {
			e.savedTotal = e.savedTotal.Add(sub.MonthlyCost)
		}
		sub.Status = StatusCancelled
		sub.Notes = "Cancelled via assistant"
	default:
		// Renew, regardless of prior status.
		sub.Status = StatusActive
		sub.NextRenewalDate = sub.NextRenewalDate.AddDays(renewalProjectionDays)
		sub.Notes = "Renewed via assistant"
	}

	e.subscriptions[id] = sub
	return sub, nil
}

// Dashboard projects the registry into summary counts, the monthly
// commitment across active subscriptions, the savings total, and the active
// subscriptions renewing within horizonDays of today. It never mutates state.
func (e *Engine) Dashboard(horizonDays int) DashboardSummary {
	e.mu.Lock()
	defer e.mu.Unlock()

	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	cutoff := civil.DateOf(e.now().UTC()).AddDays(horizonDays)

	summary := DashboardSummary{
		MonthlyCommitment: decimal.Zero,
		TotalSavings:      e.savedTotal.Round(2),
		UpcomingRenewals:  []Subscription{},
	}
	// Walk the registry in id order so date ties sort deterministically.
	ids := make([]int64, 0, len(e.subscriptions))
	for id := range e.subscriptions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		sub := e.subscriptions[id]
		if sub.Status != StatusActive {
			summary.CancelledSubscriptions++
			continue
		}
		summary.ActiveSubscriptions++
		summary.MonthlyCommitment = summary.MonthlyCommitment.Add(sub.MonthlyCost)
		if !sub.NextRenewalDate.After(cutoff) {
			summary.UpcomingRenewals = append(summary.UpcomingRenewals, sub)
		}
	}
	summary.MonthlyCommitment = summary.MonthlyCommitment.Round(2)

	sort.SliceStable(summary.UpcomingRenewals, func(i, j int) bool {
		return summary.UpcomingRenewals[i].NextRenewalDate.Before(summary.UpcomingRenewals[j].NextRenewalDate)
	})
	return summary
}

// Subscriptions returns every subscription snapshot, ordered by id.
func (e *Engine) Subscriptions() []Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := make([]Subscription, 0, len(e.subscriptions))
	for _, sub := range e.subscriptions {
		result = append(result, sub)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Transactions returns a copy of the ledger in arrival order.
func (e *Engine) Transactions() []TransactionRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := make([]TransactionRecord, 0, len(e.transactions))
	for _, tx := range e.transactions {
		result = append(result, *tx)
	}
	return result
}

// Emails returns the stored emails in arrival order.
func (e *Engine) Emails() []EmailRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := make([]EmailRecord, len(e.emails))
	copy(result, e.emails)
	return result
}

// TotalSavings returns the accumulator rounded to 2 decimals.
func (e *Engine) TotalSavings() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.savedTotal.Round(2)
}
