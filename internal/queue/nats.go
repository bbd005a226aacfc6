package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"verifhir/internal/retry"
)

// maxBackoff caps the delay between attempts of a failed task.
const maxBackoff = time.Minute

// ErrNoTaskType is returned when publishing a task without a type.
var ErrNoTaskType = errors.New("task type required")

// Subject is the NATS subject tasks of type t are published on.
func Subject(t TaskType) string { return "tasks." + string(t) }

func group(t TaskType) string { return "workers-" + string(t) }

// NewNATS returns a queue over core NATS. Workers of one task type share a
// queue group, so each task is delivered to a single worker.
func NewNATS(log *slog.Logger, nc *nats.Conn) Queue {
	return &natsQueue{log: log, nc: nc}
}

type natsQueue struct {
	log *slog.Logger
	nc  *nats.Conn
}

func (q *natsQueue) Enqueue(_ context.Context, task Task) error {
	body, err := encode(task)
	if err != nil {
		return err
	}
	return q.nc.Publish(Subject(task.Type), body)
}

// encode fills defaults and serializes a task for publishing.
func encode(task Task) ([]byte, error) {
	if task.Type == "" {
		return nil, ErrNoTaskType
	}
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.MaxAttempts <= 0 {
		task.MaxAttempts = DefaultMaxAttempts
	}
	return json.Marshal(task)
}

func (q *natsQueue) Worker(ctx context.Context, taskType TaskType, handler Handler) error {
	sub, err := q.nc.QueueSubscribe(Subject(taskType), group(taskType), func(msg *nats.Msg) {
		var task Task
		if err := json.Unmarshal(msg.Data, &task); err != nil {
			q.log.Error("failed to decode task", "subject", msg.Subject, "err", err)
			return
		}
		q.run(ctx, task, handler)
	})
	if err != nil {
		return err
	}
	q.log.Info("worker subscribed", "subject", Subject(taskType), "group", group(taskType))
	<-ctx.Done()
	return sub.Unsubscribe()
}

// run delivers one task to handler once its NotBefore time has passed and
// republishes it on failure while attempts remain.
func (q *natsQueue) run(ctx context.Context, task Task, handler Handler) {
	if wait := time.Until(task.NotBefore); wait > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}

	log := q.log.With("id", task.ID, "type", task.Type, "attempt", task.Attempts+1)
	log.Info("task received")
	err := handler(ctx, task)
	if err == nil {
		log.Info("task done")
		return
	}

	next, ok := nextAttempt(task, time.Now())
	if !ok {
		log.Error("task permanently failed", "err", err)
		return
	}
	log.Warn("task failed; retrying", "not_before", next.NotBefore, "err", err)
	if pubErr := q.Enqueue(ctx, next); pubErr != nil {
		log.Error("failed to re-enqueue task after failure", "original_err", err, "enqueue_err", pubErr)
	}
}

// nextAttempt returns the task to republish after a failed attempt, or
// false once MaxAttempts is exhausted.
func nextAttempt(task Task, now time.Time) (Task, bool) {
	task.Attempts++
	if task.MaxAttempts <= 0 {
		task.MaxAttempts = DefaultMaxAttempts
	}
	if task.Attempts >= task.MaxAttempts {
		return task, false
	}
	task.NotBefore = now.Add(retry.ExponentialBackoff(task.Attempts, time.Second, maxBackoff))
	return task, true
}
