package cart

import "github.com/prometheus/client_golang/prometheus"

var (
	cartMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Total number of local cart mutations by operation",
		},
		[]string{"op"},
	)

	cartSyncReplacementsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_cart_sync_replacements_total",
			Help: "Total number of full cart replacements triggered by another session",
		},
	)

	cartItemsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_cart_items",
			Help: "Number of distinct items currently in the local cart",
		},
	)
)

func init() {
	prometheus.MustRegister(cartMutationsTotal)
	prometheus.MustRegister(cartSyncReplacementsTotal)
	prometheus.MustRegister(cartItemsGauge)
}
