package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics exposes the Prometheus series that matter for a running
// pool: funding drift, trading activity, and liquidation outcomes.
type EngineMetrics struct {
	fundingAccumulator *prometheus.GaugeVec
	emaPrice           *prometheus.GaugeVec
	poolK              *prometheus.GaugeVec
	swapsTotal         *prometheus.CounterVec
	positionsOpened    *prometheus.CounterVec
	positionsClosed    *prometheus.CounterVec
	liquidationsTotal  *prometheus.CounterVec
}

var (
	engineOnce     sync.Once
	engineRegistry *EngineMetrics
)

// Engine returns the process-wide EngineMetrics singleton, registering its
// series with the default Prometheus registry on first use.
func Engine() *EngineMetrics {
	engineOnce.Do(func() {
		engineRegistry = &EngineMetrics{
			fundingAccumulator: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "facemelt_funding_accumulator",
				Help: "Current cumulative funding accumulator for a pool.",
			}, []string{"mint"}),
			emaPrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "facemelt_ema_price",
				Help: "Current EMA oracle price for a pool.",
			}, []string{"mint"}),
			poolK: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "facemelt_pool_k",
				Help: "Current constant-product invariant (effective_sol_reserve * effective_token_reserve) for a pool.",
			}, []string{"mint"}),
			swapsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "facemelt_swaps_total",
				Help: "Count of spot swaps executed against a pool, by direction.",
			}, []string{"mint", "direction"}),
			positionsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "facemelt_positions_opened_total",
				Help: "Count of leveraged positions opened, by side.",
			}, []string{"mint", "side"}),
			positionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "facemelt_positions_closed_total",
				Help: "Count of leveraged positions voluntarily closed, by side.",
			}, []string{"mint", "side"}),
			liquidationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "facemelt_liquidations_total",
				Help: "Count of permissionless liquidations, by reason.",
			}, []string{"mint", "reason"}),
		}
		prometheus.MustRegister(
			engineRegistry.fundingAccumulator,
			engineRegistry.emaPrice,
			engineRegistry.poolK,
			engineRegistry.swapsTotal,
			engineRegistry.positionsOpened,
			engineRegistry.positionsClosed,
			engineRegistry.liquidationsTotal,
		)
	})
	return engineRegistry
}

func (m *EngineMetrics) SetFundingAccumulator(mint string, value float64) {
	if m == nil {
		return
	}
	m.fundingAccumulator.WithLabelValues(mint).Set(value)
}

func (m *EngineMetrics) SetEMAPrice(mint string, value float64) {
	if m == nil {
		return
	}
	m.emaPrice.WithLabelValues(mint).Set(value)
}

func (m *EngineMetrics) SetPoolK(mint string, value float64) {
	if m == nil {
		return
	}
	m.poolK.WithLabelValues(mint).Set(value)
}

func (m *EngineMetrics) ObserveSwap(mint, direction string) {
	if m == nil {
		return
	}
	if direction == "" {
		direction = "unknown"
	}
	m.swapsTotal.WithLabelValues(mint, direction).Inc()
}

func (m *EngineMetrics) ObservePositionOpened(mint string, isLong bool) {
	if m == nil {
		return
	}
	m.positionsOpened.WithLabelValues(mint, side(isLong)).Inc()
}

func (m *EngineMetrics) ObservePositionClosed(mint string, isLong bool) {
	if m == nil {
		return
	}
	m.positionsClosed.WithLabelValues(mint, side(isLong)).Inc()
}

func (m *EngineMetrics) ObserveLiquidation(mint, reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.liquidationsTotal.WithLabelValues(mint, reason).Inc()
}

func side(isLong bool) string {
	if isLong {
		return "long"
	}
	return "short"
}
