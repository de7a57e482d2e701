package xcm

import (
	"math"

	"github.com/iov-one/settle/coin"
	"github.com/iov-one/settle/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	outcomes *prometheus.CounterVec
	fees     *prometheus.CounterVec
	trapped  *prometheus.CounterVec
}

func newMetrics(r prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xcm",
			Name:      "outcomes_total",
			Help:      "number of executed messages by outcome",
		}, []string{"kind"}),
		fees: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xcm",
			Name:      "fees_collected_total",
			Help:      "execution fees credited to the sink account",
		}, []string{"asset"}),
		trapped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xcm",
			Name:      "traps_total",
			Help:      "number of assets left in the holding register after execution",
		}, []string{"asset"}),
	}
	if r == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.outcomes, m.fees, m.trapped} {
		if err := r.Register(c); err != nil {
			return nil, errors.Wrap(errors.ErrInvalidState, err.Error())
		}
	}
	return m, nil
}

func amountValue(a coin.Amount) float64 {
	if v, ok := a.Uint64(); ok {
		return float64(v)
	}
	return math.MaxUint64
}
