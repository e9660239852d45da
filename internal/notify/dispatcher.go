package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/baharkarakas/crowdfund-backend/internal/metrics"
)

type Policy int

const (
	// BestEffort hands the message to the background runner; failures are only logged.
	BestEffort Policy = iota
	// Required sends synchronously and reports the delivery error to the caller.
	Required
)

func (p Policy) String() string {
	if p == Required {
		return "required"
	}
	return "best_effort"
}

type Outcome int

const (
	Delivered Outcome = iota
	Queued
	Dropped
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Queued:
		return "queued"
	default:
		return "dropped"
	}
}

// Runner accepts background work without blocking. *worker.Pool satisfies it.
type Runner interface {
	TrySubmit(func()) bool
}

type Dispatcher struct {
	sender  Sender
	runner  Runner
	timeout time.Duration
	log     *slog.Logger
}

func NewDispatcher(sender Sender, runner Runner, timeout time.Duration, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Dispatcher{sender: sender, runner: runner, timeout: timeout, log: log}
}

// Dispatch sends m under policy. BestEffort never returns an error; its Outcome
// tells whether the message was queued or dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, m Message, policy Policy) (Outcome, error) {
	if policy == Required {
		if err := d.send(ctx, m, policy); err != nil {
			return Dropped, err
		}
		return Delivered, nil
	}

	ok := d.runner.TrySubmit(func() {
		// The request may already be gone; the send gets its own deadline.
		_ = d.send(context.Background(), m, policy)
	})
	if !ok {
		metrics.NotificationsTotal.WithLabelValues(policy.String(), "dropped").Inc()
		d.log.Warn("notification dropped", "subject", m.Subject, "to", m.To)
		return Dropped, nil
	}
	return Queued, nil
}

func (d *Dispatcher) send(ctx context.Context, m Message, policy Policy) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.sender.Send(ctx, m); err != nil {
		metrics.NotificationsTotal.WithLabelValues(policy.String(), "failed").Inc()
		d.log.Error("notification failed", "subject", m.Subject, "to", m.To, "policy", policy.String(), "err", err)
		return err
	}
	metrics.NotificationsTotal.WithLabelValues(policy.String(), "sent").Inc()
	return nil
}
