package collator

import (
	"github.com/iov-one/settle/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	fees    *prometheus.CounterVec
	rewards *prometheus.CounterVec
}

func newMetrics(r prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		fees: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "collator",
			Name:      "fee_credits_total",
			Help:      "number of fee credits resolved by destination",
		}, []string{"destination"}),
		rewards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "collator",
			Name:      "author_notes_total",
			Help:      "number of noted authors by payout result",
		}, []string{"result"}),
	}
	if r == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.fees, m.rewards} {
		if err := r.Register(c); err != nil {
			return nil, errors.Wrap(errors.ErrInvalidState, err.Error())
		}
	}
	return m, nil
}
