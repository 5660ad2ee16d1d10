// Package metrics экспортирует Prometheus-метрики редактора текстур.
package metrics

import (
	"time"

	"github.com/annel0/terrain-editor/internal/texture"
	"github.com/prometheus/client_golang/prometheus"
)

// EditorMetrics счётчики мазков и изменений состава слоёв.
// Реализует textureset.Observer.
//
// Метрики:
// * terrain_strokes_total: мазки кистью
// * terrain_chunks_changed_total: чанки, изменённые мазками
// * terrain_layers_added_total / terrain_layers_erased_total
// * terrain_slot_exhausted_total: отказы из-за отсутствия свободного слота
// * terrain_paint_duration_seconds: histogram
type EditorMetrics struct {
	strokes       prometheus.Counter
	chunksChanged prometheus.Counter
	layersAdded   prometheus.Counter
	layersErased  prometheus.Counter
	slotExhausted prometheus.Counter
	paintDuration prometheus.Histogram
	chunksLoaded  prometheus.Gauge
}

// NewEditorMetrics создаёт метрики и регистрирует их в reg.
// Если reg == nil, используется дефолтный регистр.
func NewEditorMetrics(reg prometheus.Registerer) *EditorMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &EditorMetrics{
		strokes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "terrain",
			Name:      "strokes_total",
			Help:      "Общее число мазков кистью.",
		}),
		chunksChanged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "terrain",
			Name:      "chunks_changed_total",
			Help:      "Чанки, покрытие которых изменилось в результате мазка.",
		}),
		layersAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "terrain",
			Name:      "layers_added_total",
			Help:      "Добавленные слои текстур.",
		}),
		layersErased: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "terrain",
			Name:      "layers_erased_total",
			Help:      "Удалённые слои текстур.",
		}),
		slotExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "terrain",
			Name:      "slot_exhausted_total",
			Help:      "Мазки, не нашедшие свободного слота текстуры.",
		}),
		paintDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "terrain",
			Name:      "paint_duration_seconds",
			Help:      "Длительность одного мазка по всем затронутым чанкам.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		chunksLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "terrain",
			Name:      "chunks_loaded",
			Help:      "Чанки, находящиеся в памяти редактора.",
		}),
	}

	reg.MustRegister(m.strokes, m.chunksChanged, m.layersAdded, m.layersErased,
		m.slotExhausted, m.paintDuration, m.chunksLoaded)
	return m
}

// LayerAdded вызывается при добавлении слоя
func (m *EditorMetrics) LayerAdded(texture.Handle) { m.layersAdded.Inc() }

// LayerErased вызывается при удалении слоя
func (m *EditorMetrics) LayerErased(texture.Handle) { m.layersErased.Inc() }

// SlotExhausted вызывается, когда для текстуры нет свободного слота
func (m *EditorMetrics) SlotExhausted(texture.Handle) { m.slotExhausted.Inc() }

// ObserveStroke учитывает один мазок
func (m *EditorMetrics) ObserveStroke(changedChunks int, elapsed time.Duration) {
	m.strokes.Inc()
	m.chunksChanged.Add(float64(changedChunks))
	m.paintDuration.Observe(elapsed.Seconds())
}

// SetChunksLoaded обновляет число чанков в памяти
func (m *EditorMetrics) SetChunksLoaded(n int) {
	m.chunksLoaded.Set(float64(n))
}
