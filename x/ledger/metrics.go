package ledger

import (
	"github.com/iov-one/settle/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	dustSwept *prometheus.CounterVec
	reaped    *prometheus.CounterVec
	transfers *prometheus.CounterVec
}

func newMetrics(r prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		dustSwept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "dust_swept_total",
			Help:      "number of balances swept to the sink account",
		}, []string{"asset"}),
		reaped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "accounts_reaped_total",
			Help:      "number of account records removed",
		}, []string{"asset"}),
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "transfers_total",
			Help:      "number of transfers by result",
		}, []string{"asset", "result"}),
	}
	if r == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.dustSwept, m.reaped, m.transfers} {
		if err := r.Register(c); err != nil {
			return nil, errors.Wrap(errors.ErrInvalidState, err.Error())
		}
	}
	return m, nil
}
