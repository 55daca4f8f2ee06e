package jobs

import (
	"context"
	"time"

	"github.com/dvloznov/subscription-assistant/internal/engine"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeImportStatement represents a bank-statement import job.
	JobTypeImportStatement JobType = "import_statement"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
)

// ImportStatementJob represents a job importing a whole bank statement into
// the engine.
type ImportStatementJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// Source labels where the statement came from (bank name, file name).
	Source string `json:"source,omitempty"`

	// Transactions are the parsed statement lines to register, in statement
	// order.
	Transactions []engine.TransactionInput `json:"transactions"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the job started processing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// TransactionsImported counts registered statement lines once the job
	// has run.
	TransactionsImported int `json:"transactions_imported"`

	// SubscriptionsDetected counts the distinct subscriptions created or
	// updated by this statement.
	SubscriptionsDetected int `json:"subscriptions_detected"`
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishImportStatement publishes a statement import job.
	PublishImportStatement(ctx context.Context, job *ImportStatementJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job. The handler mutates the job
// in place to record its import counts.
type JobHandler func(ctx context.Context, job *ImportStatementJob) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *ImportStatementJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*ImportStatementJob, error)

	// ListJobs retrieves jobs with optional filtering.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ImportStatementJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// Source filters jobs by statement source.
	Source string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
