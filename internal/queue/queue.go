package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"verifhir/internal/retry"
)

// TaskType enumerates supported task categories.
type TaskType string

const TaskTypeAudit TaskType = "audit"

// DefaultMaxAttempts applies when a task does not set MaxAttempts. Audits
// are not retried unless the publisher asks for it.
const DefaultMaxAttempts = 1

// Task is a unit of work published on the queue.
type Task struct {
	ID          uuid.UUID `json:"id"`
	Type        TaskType  `json:"type"`
	Payload     []byte    `json:"payload"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
	NotBefore   time.Time `json:"not_before"`
}

type Handler func(context.Context, Task) error

// Queue exposes a minimal contract to enqueue and consume tasks.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Worker(ctx context.Context, taskType TaskType, handler Handler) error
}

// AuditPayload asks a worker to audit the ZIP export at ArchivePath and
// write the report into OutputDir.
type AuditPayload struct {
	ArchivePath string `json:"archive_path" validate:"required"`
	OutputDir   string `json:"output_dir" validate:"required"`
	Model       string `json:"model,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewAuditTask validates p and wraps it in a task.
func NewAuditTask(p AuditPayload, maxAttempts int) (Task, error) {
	if err := validate.Struct(p); err != nil {
		return Task{}, fmt.Errorf("invalid audit payload: %w", err)
	}
	body, err := json.Marshal(p)
	if err != nil {
		return Task{}, err
	}
	return Task{ID: uuid.New(), Type: TaskTypeAudit, Payload: body, MaxAttempts: maxAttempts}, nil
}

// DecodeAudit reads and validates the payload of an audit task.
func DecodeAudit(task Task) (AuditPayload, error) {
	var p AuditPayload
	if err := json.Unmarshal(task.Payload, &p); err != nil {
		return p, fmt.Errorf("decode audit payload: %w", err)
	}
	if err := validate.Struct(p); err != nil {
		return p, fmt.Errorf("invalid audit payload: %w", err)
	}
	return p, nil
}

// EnqueueWithRetry attempts to enqueue with retries and exponential backoff.
func EnqueueWithRetry(ctx context.Context, q Queue, task Task, attempts int, base time.Duration) error {
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if err := q.Enqueue(ctx, task); err == nil {
			return nil
		} else if attempt == attempts-1 {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry.ExponentialBackoff(attempt, base, 0)):
		}
	}
	return nil
}
