package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordAlert("accepted")
	r.RecordAlert("accepted")
	r.RecordAlert("deduped")
	r.SetStoreRows(42)
	r.RecordPersistError()
	r.RecordBroadcast("alertsUpdate", nil)
	r.RecordBroadcast("alertsUpdate", errors.New("x"))
	r.RecordProviderError("live_quote")
	r.RecordLatency("pivot_tick", 0.2)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.alerts.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.alerts.WithLabelValues("deduped")))
	assert.Equal(t, 42.0, testutil.ToFloat64(r.storeRows))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.persistErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.broadcasts.WithLabelValues("alertsUpdate", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.providerErrors.WithLabelValues("live_quote")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.latency))
}
