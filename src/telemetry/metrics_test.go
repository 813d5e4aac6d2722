package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"market-screener/src/helpers"
	"market-screener/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedScreener struct {
	result *models.MScreenResult
	err    error
}

func (s scriptedScreener) RunScreen(context.Context, models.MScreenRequest) (*models.MScreenResult, error) {
	return s.result, s.err
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestInstrumentedScreenerRecordsRuns(t *testing.T) {
	m, err := NewMetrics("screener-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	ok := Instrument(scriptedScreener{result: &models.MScreenResult{
		Plan:    models.MWindowPlan{Mode: models.ModeIntraday},
		Records: []models.MMetricRecord{{Ticker: "A"}, {Ticker: "B"}},
		Skipped: []string{"C"},
		Gaps:    []models.MBatchGap{{Batch: 1, Symbols: []string{"D"}, Reason: "timeout"}},
	}}, m)
	_, err = ok.RunScreen(context.Background(), models.MScreenRequest{})
	require.NoError(t, err)

	bad := Instrument(scriptedScreener{err: helpers.NewInvalidWindowError(time.Now(), time.Now().Add(-time.Hour))}, m)
	_, err = bad.RunScreen(context.Background(), models.MScreenRequest{})
	require.Error(t, err)

	broken := Instrument(scriptedScreener{err: errors.New("boom")}, m)
	_, err = broken.RunScreen(context.Background(), models.MScreenRequest{})
	require.Error(t, err)

	body := scrape(t, m)
	assert.Contains(t, body, "screener_runs_total")
	assert.Contains(t, body, `outcome="ok"`)
	assert.Contains(t, body, `outcome="invalid"`)
	assert.Contains(t, body, `outcome="error"`)
	assert.Contains(t, body, "screener_records_total")
	assert.Contains(t, body, "screener_batch_gaps_total")
	assert.Contains(t, body, "screener_run_duration_seconds")
}

func TestMetricsInstancesAreIndependent(t *testing.T) {
	first, err := NewMetrics("a")
	require.NoError(t, err)
	second, err := NewMetrics("b")
	require.NoError(t, err)

	first.RecordRun(context.Background(), &models.MScreenResult{Plan: models.MWindowPlan{Mode: models.ModeDaily}}, time.Second, nil)

	assert.Contains(t, scrape(t, first), `mode="daily"`)
	assert.NotContains(t, scrape(t, second), `mode="daily"`)
}
