package importer

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/dvloznov/subscription-assistant/internal/engine"
	"github.com/dvloznov/subscription-assistant/internal/jobs"
)

// Importer registers whole bank statements with the engine, one transaction
// at a time in timestamp order.
type Importer struct {
	engine *engine.Engine
	log    zerolog.Logger
}

// New creates an importer bound to an engine.
func New(eng *engine.Engine, log zerolog.Logger) *Importer {
	return &Importer{engine: eng, log: log}
}

// ImportStatement processes an import job. The job's Transactions are
// registered in timestamp order and the job is annotated with what the
// statement produced.
func (i *Importer) ImportStatement(ctx context.Context, job *jobs.ImportStatementJob) error {
	if len(job.Transactions) == 0 {
		return fmt.Errorf("statement %s contains no transactions", job.JobID)
	}

	lines := make([]engine.TransactionInput, len(job.Transactions))
	copy(lines, job.Transactions)
	sort.SliceStable(lines, func(a, b int) bool {
		return lines[a].Timestamp.Before(lines[b].Timestamp)
	})

	touched := make(map[int64]bool)
	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return err
		}
		if sub := i.engine.RegisterTransaction(line); sub != nil {
			touched[sub.ID] = true
		}
		job.TransactionsImported++
	}
	job.SubscriptionsDetected = len(touched)

	i.log.Info().
		Str("job_id", job.JobID).
		Str("source", job.Source).
		Int("transactions", job.TransactionsImported).
		Int("subscriptions", job.SubscriptionsDetected).
		Msg("Statement imported")

	return nil
}

// Handler adapts the importer to the job queue's handler signature.
func (i *Importer) Handler() jobs.JobHandler {
	return func(ctx context.Context, job *jobs.ImportStatementJob) error {
		return i.ImportStatement(ctx, job)
	}
}
