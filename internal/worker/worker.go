// Package worker provides background processing for analysis events.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Yasin-shaik/QValley/internal/domain"
)

// AlertWorker watches completed analyses and raises alerts when fraud
// verdicts pile up within a time window.
type AlertWorker struct {
	bus    domain.EventBus
	cache  domain.Cache
	logger *slog.Logger

	// Alert when this many fraud verdicts are seen for a feature
	// within the counting window.
	threshold int64
	window    time.Duration

	mu  sync.Mutex
	sub domain.Subscription
}

// Options configures an AlertWorker.
type Options struct {
	Threshold int64
	Window    time.Duration
}

// NewAlertWorker creates a worker that consumes analysis events.
func NewAlertWorker(bus domain.EventBus, cache domain.Cache, logger *slog.Logger, opts Options) *AlertWorker {
	if opts.Threshold <= 0 {
		opts.Threshold = 5
	}
	if opts.Window <= 0 {
		opts.Window = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertWorker{
		bus:       bus,
		cache:     cache,
		logger:    logger,
		threshold: opts.Threshold,
		window:    opts.Window,
	}
}

// Start subscribes to the analysis-completed topic. It returns once the
// subscription is established; processing happens on bus goroutines.
func (w *AlertWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.sub != nil {
		return fmt.Errorf("worker already started")
	}

	sub, err := w.bus.Subscribe(ctx, domain.TopicAnalysisCompleted, w.handleAnalysis)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", domain.TopicAnalysisCompleted, err)
	}
	w.sub = sub

	w.logger.Info("alert worker started",
		"topic", domain.TopicAnalysisCompleted,
		"threshold", w.threshold,
		"window", w.window.String())
	return nil
}

// Stop unsubscribes the worker.
func (w *AlertWorker) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.sub == nil {
		return nil
	}
	err := w.sub.Unsubscribe()
	w.sub = nil
	return err
}

func (w *AlertWorker) handleAnalysis(ctx context.Context, msg *domain.Message) error {
	var event domain.AnalysisEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		w.logger.Warn("dropping malformed analysis event", "error", err)
		return nil
	}

	if event.Verdict != domain.VerdictFraud {
		return nil
	}

	count, err := w.cache.IncrementCounter(ctx, "fraud:"+event.Feature, w.window)
	if err != nil {
		w.logger.Error("failed to increment fraud counter",
			"feature", event.Feature, "error", err)
		count = 0
	}

	alert := domain.AlertEvent{
		Feature:    event.Feature,
		InputValue: event.InputValue,
		Trust:      event.Trust,
		Reasons:    event.Reasons,
		WindowHits: count,
		Escalated:  count >= w.threshold,
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	if err := w.bus.Publish(ctx, domain.TopicAlert, payload); err != nil {
		w.logger.Error("failed to publish alert", "feature", event.Feature, "error", err)
		return err
	}

	if alert.Escalated {
		w.logger.Warn("fraud alert threshold exceeded",
			"feature", event.Feature,
			"hits", count,
			"window", w.window.String())
	} else {
		w.logger.Info("fraud verdict observed",
			"feature", event.Feature,
			"trust", event.Trust,
			"hits", count)
	}

	return nil
}
