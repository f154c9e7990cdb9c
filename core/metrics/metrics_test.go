package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetup_ExportsCounters(t *testing.T) {
	ctx := context.Background()
	shutdown, handler, err := Setup(ctx, "homereader-test")
	require.NoError(t, err)
	require.NotNil(t, handler)
	defer func() { _ = shutdown(ctx) }()

	counter, err := otel.Meter("metrics_test").Int64Counter("test.requests")
	require.NoError(t, err)
	counter.Add(ctx, 3)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "test_requests_total")
}
