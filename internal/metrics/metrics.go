// Package metrics собирает Prometheus-метрики загрузки чанков и состояния индекса мира.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics - метрики клиента мира
type Metrics struct {
	chunksDecoded  prometheus.Counter
	decodeErrors   *prometheus.CounterVec
	entitiesLoaded prometheus.Counter
	packets        *prometheus.CounterVec
	decodeDuration prometheus.Histogram
	payloadBytes   prometheus.Histogram
	cacheHits      *prometheus.CounterVec
	chunks         prometheus.Gauge
	entities       prometheus.Gauge
	ticks          prometheus.Counter
}

// New создаёт метрики и регистрирует их в reg.
// Если reg == nil, используется prometheus.DefaultRegisterer.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		chunksDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_decoded_total",
			Help:      "Число успешно декодированных чанков.",
		}),
		decodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_decode_errors_total",
			Help:      "Ошибки декодирования чанков по виду ошибки.",
		}, []string{"kind"}),
		entitiesLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_entities_total",
			Help:      "Сущности, пришедшие в составе чанков.",
		}),
		packets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_total",
			Help:      "Полученные пакеты по коду.",
		}, []string{"code"}),
		decodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_decode_duration_seconds",
			Help:      "Длительность декодирования чанка.",
			Buckets:   []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025},
		}),
		payloadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_payload_bytes",
			Help:      "Размер полезной нагрузки чанка.",
			Buckets:   prometheus.ExponentialBuckets(32, 2, 10),
		}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payload_cache_hits_total",
			Help:      "Чанки, восстановленные из кэша, по источнику.",
		}, []string{"source"}),
		chunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "world_chunks",
			Help:      "Загруженные чанки.",
		}),
		entities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "world_entities",
			Help:      "Сущности в индексе.",
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "world_ticks_total",
			Help:      "Выполненные тики обновления мира.",
		}),
	}

	reg.MustRegister(
		m.chunksDecoded, m.decodeErrors, m.entitiesLoaded, m.packets,
		m.decodeDuration, m.payloadBytes, m.cacheHits,
		m.chunks, m.entities, m.ticks,
	)
	return m
}

// ObserveDecode учитывает успешное декодирование
func (m *Metrics) ObserveDecode(payloadLen, entityCount int, took time.Duration) {
	m.chunksDecoded.Inc()
	m.entitiesLoaded.Add(float64(entityCount))
	m.payloadBytes.Observe(float64(payloadLen))
	m.decodeDuration.Observe(took.Seconds())
}

// DecodeFailed учитывает ошибку декодирования вида kind
func (m *Metrics) DecodeFailed(kind string) {
	m.decodeErrors.WithLabelValues(kind).Inc()
}

// PacketReceived учитывает полученный пакет
func (m *Metrics) PacketReceived(code string) {
	m.packets.WithLabelValues(code).Inc()
}

// CacheHit учитывает чанк, восстановленный из кэша source
func (m *Metrics) CacheHit(source string) {
	m.cacheHits.WithLabelValues(source).Inc()
}

// Tick учитывает тик обновления мира
func (m *Metrics) Tick() { m.ticks.Inc() }

// SetWorldSize обновляет число чанков и сущностей
func (m *Metrics) SetWorldSize(chunks, entities int) {
	m.chunks.Set(float64(chunks))
	m.entities.Set(float64(entities))
}
