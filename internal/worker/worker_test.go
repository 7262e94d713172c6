package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/Yasin-shaik/QValley/internal/bus"
	"github.com/Yasin-shaik/QValley/internal/cache"
	"github.com/Yasin-shaik/QValley/internal/domain"
)

func publishAnalysis(t *testing.T, b domain.EventBus, event domain.AnalysisEvent) {
	t.Helper()
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if err := b.Publish(context.Background(), domain.TopicAnalysisCompleted, payload); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
}

func waitForAlerts(t *testing.T, ch <-chan domain.AlertEvent, n int) []domain.AlertEvent {
	t.Helper()
	alerts := make([]domain.AlertEvent, 0, n)
	for len(alerts) < n {
		select {
		case a := <-ch:
			alerts = append(alerts, a)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for alerts: got %d, want %d", len(alerts), n)
		}
	}
	return alerts
}

func TestAlertWorker(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))

	setup := func(t *testing.T, threshold int64) (domain.EventBus, *AlertWorker, <-chan domain.AlertEvent) {
		b := bus.NewChannelBus(100)
		t.Cleanup(func() { b.Close() })

		c := cache.NewLRUCache(100)
		t.Cleanup(func() { c.Close() })

		w := NewAlertWorker(b, c, logger, Options{Threshold: threshold, Window: time.Minute})
		if err := w.Start(ctx); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		t.Cleanup(func() { w.Stop() })

		alerts := make(chan domain.AlertEvent, 10)
		_, err := b.Subscribe(ctx, domain.TopicAlert, func(ctx context.Context, msg *domain.Message) error {
			var a domain.AlertEvent
			if err := json.Unmarshal(msg.Payload, &a); err != nil {
				return err
			}
			alerts <- a
			return nil
		})
		if err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}

		return b, w, alerts
	}

	t.Run("FraudVerdictRaisesAlert", func(t *testing.T) {
		b, _, alerts := setup(t, 5)

		publishAnalysis(t, b, domain.AnalysisEvent{
			Feature: domain.FeatureChat,
			Trust:   12,
			Verdict: domain.VerdictFraud,
			Reasons: []string{"Threatening consequence detected"},
		})

		got := waitForAlerts(t, alerts, 1)
		if got[0].Feature != domain.FeatureChat {
			t.Errorf("expected feature %s, got %s", domain.FeatureChat, got[0].Feature)
		}
		if got[0].WindowHits != 1 {
			t.Errorf("expected 1 window hit, got %d", got[0].WindowHits)
		}
		if got[0].Escalated {
			t.Error("single fraud verdict should not escalate")
		}
	})

	t.Run("SafeVerdictIgnored", func(t *testing.T) {
		b, _, alerts := setup(t, 5)

		publishAnalysis(t, b, domain.AnalysisEvent{
			Feature: domain.FeatureChat,
			Trust:   90,
			Verdict: domain.VerdictSafe,
		})
		publishAnalysis(t, b, domain.AnalysisEvent{
			Feature: domain.FeatureChat,
			Trust:   60,
			Verdict: domain.VerdictSuspicious,
		})

		select {
		case a := <-alerts:
			t.Errorf("unexpected alert for non-fraud verdict: %+v", a)
		case <-time.After(100 * time.Millisecond):
		}
	})

	t.Run("ThresholdEscalates", func(t *testing.T) {
		b, _, alerts := setup(t, 3)

		for i := 0; i < 3; i++ {
			publishAnalysis(t, b, domain.AnalysisEvent{
				Feature: domain.FeatureScreenshot,
				Trust:   20,
				Verdict: domain.VerdictFraud,
			})
		}

		got := waitForAlerts(t, alerts, 3)

		escalated := 0
		for _, a := range got {
			if a.Escalated {
				escalated++
			}
		}
		if escalated == 0 {
			t.Error("expected at least one escalated alert after threshold")
		}
	})

	t.Run("DoubleStartRejected", func(t *testing.T) {
		b := bus.NewChannelBus(10)
		defer b.Close()
		c := cache.NewLRUCache(10)
		defer c.Close()

		w := NewAlertWorker(b, c, logger, Options{})
		if err := w.Start(ctx); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		defer w.Stop()

		if err := w.Start(ctx); err == nil {
			t.Error("expected error on second Start")
		}
	})

	t.Run("StopIsIdempotent", func(t *testing.T) {
		b := bus.NewChannelBus(10)
		defer b.Close()
		c := cache.NewLRUCache(10)
		defer c.Close()

		w := NewAlertWorker(b, c, logger, Options{})
		if err := w.Start(ctx); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		if err := w.Stop(); err != nil {
			t.Fatalf("Stop failed: %v", err)
		}
		if err := w.Stop(); err != nil {
			t.Errorf("second Stop failed: %v", err)
		}
	})
}

type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
