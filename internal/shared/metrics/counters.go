package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Contadores de negócio do venue, expostos no /metrics de cada serviço.
var (
	BetsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "venue_bets_created_total",
		Help: "Total de apostas criadas",
	})

	BetsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "venue_bets_accepted_total",
		Help: "Total de apostas aceitas pela contraparte",
	})

	BetsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "venue_bets_resolved_total",
		Help: "Total de apostas julgadas, por vencedor",
	}, []string{"winner"})

	ClaimsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "venue_claims_settled_total",
		Help: "Total de claims liquidados, por status final da aposta",
	}, []string{"status"})

	FeesRouted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "venue_fees_routed_total",
		Help: "Total de roteamentos de taxa executados (staking + treasury)",
	})

	StakeOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "venue_stake_ops_total",
		Help: "Operações do pool de staking, por tipo",
	}, []string{"op"})
)
