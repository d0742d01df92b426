package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("test", reg)

	m.ObserveDecode(1200, 3, 150*time.Microsecond)
	m.ObserveDecode(22, 0, 10*time.Microsecond)
	m.DecodeFailed("unexpected_eof")
	m.DecodeFailed("unexpected_eof")
	m.DecodeFailed("invariant_violation")
	m.PacketReceived("ChunkData")
	m.CacheHit("badger")
	m.SetWorldSize(5, 7)
	m.Tick()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.chunksDecoded))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.entitiesLoaded))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.decodeErrors.WithLabelValues("unexpected_eof")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decodeErrors.WithLabelValues("invariant_violation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.packets.WithLabelValues("ChunkData")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheHits.WithLabelValues("badger")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.chunks))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.entities))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticks))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetricsSeparateRegistries(t *testing.T) {
	// Повторная регистрация в разных реестрах не паникует
	assert.NotPanics(t, func() {
		New("a", prometheus.NewRegistry())
		New("a", prometheus.NewRegistry())
	})
}
