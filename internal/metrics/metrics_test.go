package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetricFamily はレジストリから指定名のメトリクスファミリーを探す。
func findMetricFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

// labelValue はメトリクスから指定ラベルの値を返す。
func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordAPICall_IncrementsCounterByOutcome はエンドポイント・結果別にカウンタが増加することを検証する。
func TestRecordAPICall_IncrementsCounterByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAPICall("list", OutcomeSuccess, 100*time.Millisecond)
	c.RecordAPICall("list", OutcomeSuccess, 200*time.Millisecond)
	c.RecordAPICall("search", OutcomeNotFound, 50*time.Millisecond)

	mf := findMetricFamily(t, reg, "disneydex_api_requests_total")
	if mf == nil {
		t.Fatal("disneydex_api_requests_total metric not found")
	}

	got := make(map[string]float64)
	for _, m := range mf.GetMetric() {
		key := labelValue(m, "endpoint") + "/" + labelValue(m, "outcome")
		got[key] = m.GetCounter().GetValue()
	}

	if got["list/success"] != 2 {
		t.Errorf("list/success = %v, want 2", got["list/success"])
	}
	if got["search/not_found"] != 1 {
		t.Errorf("search/not_found = %v, want 1", got["search/not_found"])
	}
}

// TestRecordAPICall_ObservesLatency はレイテンシがヒストグラムに記録されることを検証する。
func TestRecordAPICall_ObservesLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAPICall("detail", OutcomeSuccess, 500*time.Millisecond)

	mf := findMetricFamily(t, reg, "disneydex_api_latency_seconds")
	if mf == nil {
		t.Fatal("disneydex_api_latency_seconds metric not found")
	}
	h := mf.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 1 {
		t.Errorf("sample count = %d, want 1", h.GetSampleCount())
	}
	if h.GetSampleSum() < 0.49 || h.GetSampleSum() > 0.51 {
		t.Errorf("sample sum = %v, want ~0.5", h.GetSampleSum())
	}
}

// TestRecordHTTPStatus_LabelsByCode はステータスコードごとにラベルが分かれることを検証する。
func TestRecordHTTPStatus_LabelsByCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(503)

	mf := findMetricFamily(t, reg, "disneydex_api_http_status_total")
	if mf == nil {
		t.Fatal("disneydex_api_http_status_total metric not found")
	}
	if len(mf.GetMetric()) != 2 {
		t.Fatalf("expected 2 label sets, got %d", len(mf.GetMetric()))
	}
	for _, m := range mf.GetMetric() {
		switch labelValue(m, "status_code") {
		case "200":
			if m.GetCounter().GetValue() != 2 {
				t.Errorf("status 200 = %v, want 2", m.GetCounter().GetValue())
			}
		case "503":
			if m.GetCounter().GetValue() != 1 {
				t.Errorf("status 503 = %v, want 1", m.GetCounter().GetValue())
			}
		default:
			t.Errorf("unexpected status_code label: %s", labelValue(m, "status_code"))
		}
	}
}

// TestRecordSupersededResult_IncrementsCounter は破棄結果カウンタが増加することを検証する。
func TestRecordSupersededResult_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSupersededResult("list")

	mf := findMetricFamily(t, reg, "disneydex_superseded_results_total")
	if mf == nil {
		t.Fatal("disneydex_superseded_results_total metric not found")
	}
	if v := mf.GetMetric()[0].GetCounter().GetValue(); v != 1 {
		t.Errorf("superseded = %v, want 1", v)
	}
}

// TestSetViewSessions_SetsGauge はゲージが最新値で上書きされることを検証する。
func TestSetViewSessions_SetsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.SetViewSessions(5)
	c.SetViewSessions(3)

	mf := findMetricFamily(t, reg, "disneydex_view_sessions")
	if mf == nil {
		t.Fatal("disneydex_view_sessions metric not found")
	}
	if v := mf.GetMetric()[0].GetGauge().GetValue(); v != 3 {
		t.Errorf("view_sessions = %v, want 3", v)
	}
}

// TestNewCollector_DuplicateRegistrationPanics は同一レジストリへの二重登録がpanicすることを検証する。
func TestNewCollector_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = NewCollector(reg)

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	_ = NewCollector(reg)
}
