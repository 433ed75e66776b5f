package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// assertMetricLine matches a sample by name, a label pattern and a value. The
// exporter injects scope labels, so the labels are matched loosely.
func assertMetricLine(t *testing.T, output, name, labels, value string) {
	t.Helper()
	pattern := name + `\{[^}]*` + labels + `[^}]*\} ` + value
	assert.Regexp(t, pattern, output)
}

func scrape(t *testing.T, provider *Provider) string {
	t.Helper()
	w := httptest.NewRecorder()
	provider.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

type recordingMetrics struct {
	mock.Mock
}

func (r *recordingMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	r.Called(ctx, domain, operation, status)
}

func (r *recordingMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	r.Called(ctx, domain, operation, duration, status)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, StatusSuccess, StatusOf(nil))
	assert.Equal(t, StatusError, StatusOf(errors.New("rejected")))
}

func TestObserve(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		m := &recordingMetrics{}
		m.On("RecordOperation", ctx, "crypto", "rotate", StatusSuccess).Once()
		m.On("RecordDuration", ctx, "crypto", "rotate", mock.AnythingOfType("time.Duration"), StatusSuccess).Once()

		Observe(ctx, m, "crypto", "rotate", time.Now(), nil)
		m.AssertExpectations(t)
	})

	t.Run("Error", func(t *testing.T) {
		m := &recordingMetrics{}
		m.On("RecordOperation", ctx, "config", "apply", StatusError).Once()
		m.On("RecordDuration", ctx, "config", "apply", mock.AnythingOfType("time.Duration"), StatusError).Once()

		Observe(ctx, m, "config", "apply", time.Now(), errors.New("service rejected"))
		m.AssertExpectations(t)
	})
}

func TestNewNoOpBusinessMetrics(t *testing.T) {
	noOp := NewNoOpBusinessMetrics()
	assert.IsType(t, &NoOpBusinessMetrics{}, noOp)

	noOp.RecordOperation(context.Background(), "backup", "snapshot", StatusSuccess)
	noOp.RecordDuration(context.Background(), "backup", "snapshot", time.Second, StatusSuccess)
}

func TestBusinessMetrics_Export(t *testing.T) {
	provider, err := NewProvider("btsguard_test")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "btsguard_test")
	require.NoError(t, err)

	ctx := context.Background()
	bm.RecordOperation(ctx, "config", "commit", StatusSuccess)
	bm.RecordOperation(ctx, "config", "commit", StatusSuccess)
	bm.RecordOperation(ctx, "config", "commit", StatusError)
	bm.RecordOperation(ctx, "crypto", "rotate", StatusSuccess)
	bm.RecordDuration(ctx, "config", "commit", 40*time.Millisecond, StatusSuccess)
	bm.RecordDuration(ctx, "config", "commit", 60*time.Millisecond, StatusSuccess)
	bm.RecordDuration(ctx, "crypto", "rotate", 250*time.Millisecond, StatusSuccess)

	output := scrape(t, provider)

	assertMetricLine(t, output, `btsguard_test_operations_total`,
		`domain="config".*operation="commit".*status="success"`, `2`)
	assertMetricLine(t, output, `btsguard_test_operations_total`,
		`domain="config".*operation="commit".*status="error"`, `1`)
	assertMetricLine(t, output, `btsguard_test_operations_total`,
		`domain="crypto".*operation="rotate".*status="success"`, `1`)
	assertMetricLine(t, output, `btsguard_test_operation_duration_seconds_count`,
		`domain="config".*operation="commit".*status="success"`, `2`)
	assertMetricLine(t, output, `btsguard_test_operation_duration_seconds_sum`,
		`domain="crypto".*operation="rotate".*status="success"`, `0.25`)
}
