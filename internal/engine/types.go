package engine

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// SubscriptionStatus represents the lifecycle state of a subscription.
type SubscriptionStatus string

const (
	// StatusActive indicates the subscription is believed to be running.
	StatusActive SubscriptionStatus = "active"
	// StatusCancelled indicates the user cancelled the subscription.
	StatusCancelled SubscriptionStatus = "cancelled"
)

// Decision is a user's choice for a detected subscription.
type Decision string

const (
	// DecisionCancel cancels the subscription and accrues its cost as savings.
	DecisionCancel Decision = "cancel"
	// DecisionRenew keeps the subscription and pushes the renewal out 30 days.
	DecisionRenew Decision = "renew"
)

// Email classification tags.
const (
	TagRenewalNotice = "renewal_notice"
	TagPriceIncrease = "price_increase"
)

// TransactionInput is a single parsed bank-statement line.
type TransactionInput struct {
	// Description as it appears on the bank statement.
	Description string `json:"description"`
	// Amount is signed; negative for debits.
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// TransactionRecord is a ledger entry. Records are append-only; once a record
// is linked to a subscription its SubscriptionID is never reassigned.
type TransactionRecord struct {
	DescriptionKey string          `json:"description_key"`
	Description    string          `json:"description"`
	Amount         decimal.Decimal `json:"amount"`
	Timestamp      time.Time       `json:"timestamp"`
	// SubscriptionID is 0 until the record is linked.
	SubscriptionID int64 `json:"subscription_id,omitempty"`
}

// EmailInput is a parsed inbox email.
type EmailInput struct {
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// EmailRecord is a stored email with its classification tags.
// Immutable once created.
type EmailRecord struct {
	EmailID   string    `json:"email_id"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
	Tags      []string  `json:"tags"`
}

// Subscription is an immutable snapshot of a detected recurring payment.
// Updates replace the whole snapshot in the registry.
type Subscription struct {
	ID int64 `json:"id"`
	// Provider is the derived, human-capitalized provider name.
	Provider string `json:"provider"`
	// Reference is the verbatim statement description the detection came from.
	Reference string `json:"reference"`
	// MonthlyCost is a positive magnitude rounded to 2 decimals.
	MonthlyCost       decimal.Decimal    `json:"monthly_cost"`
	NextRenewalDate   civil.Date         `json:"next_renewal_date"`
	Status            SubscriptionStatus `json:"status"`
	LastTransactionAt time.Time          `json:"last_transaction_at"`
	Notes             string             `json:"notes,omitempty"`
}

// DashboardSummary is a read-only projection over the registry.
type DashboardSummary struct {
	ActiveSubscriptions    int             `json:"active_subscriptions"`
	CancelledSubscriptions int             `json:"cancelled_subscriptions"`
	MonthlyCommitment      decimal.Decimal `json:"monthly_commitment"`
	TotalSavings           decimal.Decimal `json:"total_savings"`
	UpcomingRenewals       []Subscription  `json:"upcoming_renewals"`
}
