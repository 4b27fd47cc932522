package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/chatrelay/chatrelay/server/internal/metrics"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(mfs))
	for _, mf := range mfs {
		out[mf.GetName()] = mf
	}
	return out
}

func value(mf *dto.MetricFamily, labelValue string) float64 {
	if mf == nil {
		return -1
	}
	for _, m := range mf.GetMetric() {
		if labelValue != "" {
			match := false
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == labelValue {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		switch {
		case m.Counter != nil:
			return m.Counter.GetValue()
		case m.Gauge != nil:
			return m.Gauge.GetValue()
		case m.Histogram != nil:
			return float64(m.Histogram.GetSampleCount())
		}
	}
	return -1
}

func TestMetrics_SessionLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.SessionStarted()
	m.SessionStarted()
	m.SessionEnded(3 * time.Second)

	mfs := gather(t, reg)
	if v := value(mfs["chatrelay_sessions_active"], ""); v != 1 {
		t.Errorf("sessions_active: got %v, want 1", v)
	}
	if v := value(mfs["chatrelay_sessions_total"], ""); v != 2 {
		t.Errorf("sessions_total: got %v, want 2", v)
	}
	if v := value(mfs["chatrelay_session_duration_seconds"], ""); v != 1 {
		t.Errorf("session_duration_seconds count: got %v, want 1", v)
	}
}

func TestMetrics_BroadcastAndErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.Broadcast("send-message", 3)
	m.Broadcast("send-message", 2)
	m.Broadcast("update-users", 4)
	m.SendFailed()
	m.FrameDropped("binary")

	mfs := gather(t, reg)
	if v := value(mfs["chatrelay_broadcasts_total"], "send-message"); v != 2 {
		t.Errorf("broadcasts_total{send-message}: got %v, want 2", v)
	}
	if v := value(mfs["chatrelay_broadcasts_total"], "update-users"); v != 1 {
		t.Errorf("broadcasts_total{update-users}: got %v, want 1", v)
	}
	if v := value(mfs["chatrelay_deliveries_enqueued_total"], ""); v != 9 {
		t.Errorf("deliveries_enqueued_total: got %v, want 9", v)
	}
	if v := value(mfs["chatrelay_send_errors_total"], ""); v != 1 {
		t.Errorf("send_errors_total: got %v, want 1", v)
	}
	if v := value(mfs["chatrelay_frames_dropped_total"], "binary"); v != 1 {
		t.Errorf("frames_dropped_total{binary}: got %v, want 1", v)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *metrics.Metrics
	m.SessionStarted()
	m.SessionEnded(time.Second)
	m.Broadcast("send-message", 1)
	m.SendFailed()
	m.FrameDropped("binary")
}
