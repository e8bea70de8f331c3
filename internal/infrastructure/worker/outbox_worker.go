package worker

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/plantops/workdesk/internal/application/port"
	"github.com/plantops/workdesk/internal/domain/entity"
)

// OutboxWorker drains the outbox: it polls for due pending events,
// hands each to the mailer and records the outcome. Transitions only
// append rows; this worker is the sole consumer.
type OutboxWorker struct {
	outbox      port.OutboxRepository
	mailer      port.Mailer
	logger      *zap.Logger
	poll        time.Duration
	batchSize   int
	maxAttempts int
	now         func() time.Time

	stopOnce sync.Once
	done     chan struct{}
	stopped  chan struct{}
}

// NewOutboxWorker creates a new outbox worker
func NewOutboxWorker(
	outbox port.OutboxRepository,
	mailer port.Mailer,
	poll time.Duration,
	batchSize int,
	maxAttempts int,
	logger *zap.Logger,
) *OutboxWorker {
	if poll <= 0 {
		poll = 10 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 20
	}
	if maxAttempts <= 0 {
		maxAttempts = 8
	}
	return &OutboxWorker{
		outbox:      outbox,
		mailer:      mailer,
		logger:      logger,
		poll:        poll,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
		now:         time.Now,
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}
}

// Name implements Worker
func (w *OutboxWorker) Name() string {
	return "outbox-worker"
}

// Start implements Worker
func (w *OutboxWorker) Start(ctx context.Context) error {
	go w.run(ctx)
	return nil
}

// Stop implements Worker; blocks until the loop exits
func (w *OutboxWorker) Stop() error {
	w.stopOnce.Do(func() {
		close(w.done)
	})
	<-w.stopped
	return nil
}

func (w *OutboxWorker) run(ctx context.Context) {
	defer close(w.stopped)

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// drain processes one batch of due events
func (w *OutboxWorker) drain(ctx context.Context) {
	events, err := w.outbox.Due(ctx, w.now(), w.batchSize)
	if err != nil {
		w.logger.Error("Failed to load due outbox events", zap.Error(err))
		return
	}

	for _, evt := range events {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		default:
		}
		w.deliver(ctx, evt)
	}
}

// deliver sends one event, retrying transient failures in-process
// before rescheduling or parking it.
func (w *OutboxWorker) deliver(ctx context.Context, evt *entity.OutboxEvent) {
	mail := port.Mail{
		To:      evt.MailTo,
		Subject: evt.MailSubject,
		HTML:    evt.MailHTML,
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	err := backoff.Retry(func() error {
		return w.mailer.Send(ctx, mail)
	}, policy)

	if err == nil {
		if markErr := w.outbox.MarkSent(ctx, evt.ID); markErr != nil {
			w.logger.Error("Failed to mark outbox event sent",
				zap.Int64("event_id", evt.ID),
				zap.Error(markErr))
		}
		w.logger.Info("Outbox event delivered",
			zap.Int64("event_id", evt.ID),
			zap.String("event_type", evt.EventType),
			zap.String("to", evt.MailTo))
		return
	}

	attempts := evt.Attempts + 1
	final := attempts >= w.maxAttempts
	next := w.now().Add(rescheduleDelay(attempts))

	if markErr := w.outbox.MarkFailed(ctx, evt.ID, attempts, next, err.Error(), final); markErr != nil {
		w.logger.Error("Failed to mark outbox event failed",
			zap.Int64("event_id", evt.ID),
			zap.Error(markErr))
		return
	}

	if final {
		w.logger.Error("Outbox event parked after exhausting retries",
			zap.Int64("event_id", evt.ID),
			zap.Int("attempts", attempts),
			zap.Error(err))
	} else {
		w.logger.Warn("Outbox delivery failed, rescheduled",
			zap.Int64("event_id", evt.ID),
			zap.Int("attempts", attempts),
			zap.Time("next_attempt", next),
			zap.Error(err))
	}
}

// rescheduleDelay doubles per attempt, capped at an hour
func rescheduleDelay(attempts int) time.Duration {
	delay := 30 * time.Second
	for i := 1; i < attempts && delay < time.Hour; i++ {
		delay *= 2
	}
	if delay > time.Hour {
		return time.Hour
	}
	return delay
}

var _ Worker = (*OutboxWorker)(nil)
