package telemetry

import (
	"strings"
	"testing"
	"time"
)

func TestCounters(t *testing.T) {
	m := NewMetricsCollector()

	m.IncrementCounter(MetricCacheHits, 1)
	m.IncrementCounter(MetricCacheHits, 2)
	if got := m.GetCounter(MetricCacheHits); got != 3 {
		t.Errorf("GetCounter() = %d, want 3", got)
	}
	if got := m.GetCounter("never.touched"); got != 0 {
		t.Errorf("GetCounter(unknown) = %d, want 0", got)
	}
}

func TestGauges(t *testing.T) {
	m := NewMetricsCollector()

	m.SetGauge(MetricCacheSize, 12)
	m.SetGauge(MetricCacheSize, 7)
	if got := m.GetGauge(MetricCacheSize); got != 7 {
		t.Errorf("GetGauge() = %v, want 7 (last write wins)", got)
	}
}

func TestTimers(t *testing.T) {
	m := NewMetricsCollector()

	m.RecordTimer(MetricSynthDuration, 100*time.Millisecond)
	m.RecordTimer(MetricSynthDuration, 300*time.Millisecond)

	avg := m.GetTimerAverage(MetricSynthDuration)
	if avg != 200*time.Millisecond {
		t.Errorf("GetTimerAverage() = %v, want 200ms", avg)
	}
	if got := m.GetTimerAverage("never.touched"); got != 0 {
		t.Errorf("GetTimerAverage(unknown) = %v, want 0", got)
	}

	p95 := m.GetTimerP95(MetricSynthDuration)
	if p95 < avg {
		t.Errorf("GetTimerP95() = %v, want >= average %v", p95, avg)
	}
}

func TestTimerSampleCap(t *testing.T) {
	m := NewMetricsCollector()
	for i := 0; i < 500; i++ {
		m.RecordTimer(MetricNavigateDuration, time.Millisecond)
	}
	if avg := m.GetTimerAverage(MetricNavigateDuration); avg != time.Millisecond {
		t.Errorf("GetTimerAverage() after cap = %v, want 1ms", avg)
	}
}

func TestReportAndReset(t *testing.T) {
	m := NewMetricsCollector()
	m.IncrementCounter(MetricSynthCalls, 5)
	m.SetGauge(MetricCacheSize, 2)
	m.RecordTimer(MetricSynthDuration, time.Second)

	report := m.Report()
	if !strings.Contains(report, MetricSynthCalls) {
		t.Errorf("Report() missing counter: %s", report)
	}

	m.Reset()
	if m.GetCounter(MetricSynthCalls) != 0 || m.GetGauge(MetricCacheSize) != 0 {
		t.Error("Reset() did not clear metrics")
	}
}
