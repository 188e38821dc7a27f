package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.Wrote("put")
	m.Wrote("put")
	m.Wrote("delete")
	m.Sent(3)
	m.Received(2)
	m.SessionDone(OutcomeConverged)
	m.SetFeeds(4)
	m.ObserveBatchCommit(time.Millisecond, 2, 10)

	require.Equal(t, 2.0, testutil.ToFloat64(m.writes.WithLabelValues("put")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.writes.WithLabelValues("delete")))
	require.Equal(t, 3.0, testutil.ToFloat64(m.recordsSent))
	require.Equal(t, 2.0, testutil.ToFloat64(m.recordsRecv))
	require.Equal(t, 1.0, testutil.ToFloat64(m.sessions.WithLabelValues(OutcomeConverged)))
	require.Equal(t, 4.0, testutil.ToFloat64(m.feedsKnown))
	require.Equal(t, 1, testutil.CollectAndCount(m.batchCommit))
}

func TestPerStoreRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	require.Error(t, err, "a second store must use its own registerer")

	_, err = New(nil)
	require.NoError(t, err)
}
