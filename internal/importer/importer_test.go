package importer

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/subscription-assistant/internal/engine"
	"github.com/dvloznov/subscription-assistant/internal/jobs"
	"github.com/dvloznov/subscription-assistant/internal/logger"
)

func statementLine(description string, amount float64, day int) engine.TransactionInput {
	return engine.TransactionInput{
		Description: description,
		Amount:      decimal.NewFromFloat(amount),
		Timestamp:   time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, day),
	}
}

func TestImportStatement(t *testing.T) {
	eng := engine.New()
	imp := New(eng, logger.NewWithWriter("importer-test", &bytes.Buffer{}))

	job := &jobs.ImportStatementJob{
		JobID:  "job-1",
		Source: "main-account.csv",
		Transactions: []engine.TransactionInput{
			statementLine("Spotify ABO", -99.0, 0),
			statementLine("Spotify ABO", -99.0, 30),
			statementLine("Grocery store", -54.30, 3),
		},
	}

	if err := imp.ImportStatement(context.Background(), job); err != nil {
		t.Fatalf("ImportStatement: %v", err)
	}
	if job.TransactionsImported != 3 {
		t.Errorf("imported = %d, want 3", job.TransactionsImported)
	}
	if job.SubscriptionsDetected != 1 {
		t.Errorf("subscriptions = %d, want 1", job.SubscriptionsDetected)
	}
	if got := len(eng.Subscriptions()); got != 1 {
		t.Errorf("registry holds %d subscriptions, want 1", got)
	}
}

func TestImportStatement_OutOfOrderLines(t *testing.T) {
	eng := engine.New()
	imp := New(eng, logger.NewWithWriter("importer-test", &bytes.Buffer{}))

	// Statement lines arrive newest-first; cadence detection must still see
	// them in timestamp order.
	job := &jobs.ImportStatementJob{
		JobID: "job-2",
		Transactions: []engine.TransactionInput{
			statementLine("Netflix subscription", -12.99, 30),
			statementLine("Netflix subscription", -12.99, 0),
		},
	}

	if err := imp.ImportStatement(context.Background(), job); err != nil {
		t.Fatalf("ImportStatement: %v", err)
	}
	if job.SubscriptionsDetected != 1 {
		t.Errorf("subscriptions = %d, want 1", job.SubscriptionsDetected)
	}
}

func TestImportStatement_Empty(t *testing.T) {
	eng := engine.New()
	imp := New(eng, logger.NewWithWriter("importer-test", &bytes.Buffer{}))

	err := imp.ImportStatement(context.Background(), &jobs.ImportStatementJob{JobID: "job-3"})
	if err == nil {
		t.Error("expected error for empty statement")
	}
}
