package main

import (
	"context"
	"fmt"
	"math/big"
	"net/http"

	"go.uber.org/zap"

	"github.com/radieske/p2p-wager-venue/internal/shared/cache"
	"github.com/radieske/p2p-wager-venue/internal/shared/config"
	"github.com/radieske/p2p-wager-venue/internal/shared/db"
	"github.com/radieske/p2p-wager-venue/internal/shared/kafka"
	"github.com/radieske/p2p-wager-venue/internal/shared/logger"
	"github.com/radieske/p2p-wager-venue/internal/shared/metrics"
	vhttp "github.com/radieske/p2p-wager-venue/internal/venue-service/http"
	"github.com/radieske/p2p-wager-venue/internal/venue-service/ledger"
	"github.com/radieske/p2p-wager-venue/internal/venue-service/producer"
	"github.com/radieske/p2p-wager-venue/internal/venue-service/repo"
	"github.com/radieske/p2p-wager-venue/internal/venue-service/rewards"
	"github.com/radieske/p2p-wager-venue/internal/venue-service/throttle"
	"github.com/radieske/p2p-wager-venue/internal/venue-service/token"
)

func main() {
	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()

	// Redis (throttle de stake/unstake)
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}

	// Kafka: um writer por tópico de evento
	publ := &producer.KafkaPublisher{
		BetCreated:   kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetCreated),
		BetAccepted:  kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetAccepted),
		BetResolved:  kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetResolved),
		ClaimSettled: kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicClaimSettled),
		FeeCollected: kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicFeeCollected),
		StakeChanged: kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicStakeChanged),
	}
	for _, w := range []*kafka.Writer{publ.BetCreated, publ.BetAccepted, publ.BetResolved,
		publ.ClaimSettled, publ.FeeCollected, publ.StakeChanged} {
		defer w.Close()
	}

	// Token in-process (PoC). Em produção o venue falaria com o asset real;
	// aqui o ledger em memória do token faz as vezes do ERC-20.
	tok := token.NewInMemory(cfg.AdminAddr)
	if err := tok.SetTrading(cfg.AdminAddr, true); err != nil {
		log.Fatal("token trading", zap.Error(err))
	}

	repository := repo.NewPostgres(pg)

	pool := rewards.NewPool(log, tok,
		throttle.NewRedis(rdb, cfg.ThrottleSpacing, "throttle:stake:"),
		rewards.Config{
			Account:          cfg.PoolAddr,
			Admin:            cfg.AdminAddr,
			MinStake:         mustWei(log, cfg.MinStakeWei),
			EligibilityDelay: cfg.EligibilityDelay,
		})

	led := ledger.NewLedger(log, tok, pool, ledger.Config{
		Venue:           cfg.VenueAddr,
		PoolAccount:     cfg.PoolAddr,
		Treasury:        cfg.TreasuryAddr,
		Admin:           cfg.AdminAddr,
		MinBet:          mustWei(log, cfg.MinBetWei),
		FeeBps:          cfg.FeeBps,
		StakingSharePct: cfg.StakingSharePct,
	})

	if err := restore(context.Background(), log, repository, led, pool); err != nil {
		log.Fatal("restore", zap.Error(err))
	}

	// metrics/health
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return fmt.Errorf("pg: %w", err)
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	})

	api := vhttp.NewServer(log, led, pool, tok, repository, rdb, publ)
	addr := ":" + cfg.HTTPPort
	log.Info("venue-service listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, api.Router()); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}

// restore recarrega os engines a partir do Postgres no boot.
func restore(ctx context.Context, log *zap.Logger, r *repo.Postgres, led *ledger.Ledger, pool *rewards.Pool) error {
	rows, err := r.LoadBets(ctx)
	if err != nil {
		return fmt.Errorf("load bets: %w", err)
	}
	bets := make([]*ledger.Bet, 0, len(rows))
	for _, b := range rows {
		bets = append(bets, &ledger.Bet{
			ID:                  b.ID,
			Amount:              mustWei(log, b.AmountWei),
			Proposer:            b.Proposer,
			CounterParty:        b.CounterParty,
			Judge:               b.Judge,
			AcceptDeadline:      b.AcceptDeadline,
			DecideDeadline:      b.DecideDeadline,
			JudgeReward:         mustWei(log, b.JudgeRewardWei),
			Details:             b.Details,
			Status:              ledger.ParseStatus(b.Status),
			Winner:              ledger.ParseWinner(b.Winner),
			ProposerClaimed:     b.ProposerClaimed,
			CounterPartyClaimed: b.CounterPartyClaimed,
			JudgeClaimed:        b.JudgeClaimed,
			CreatedAt:           b.CreatedAt,
			UpdatedAt:           b.UpdatedAt,
		})
	}
	lst, err := r.LoadLedgerState(ctx)
	if err != nil {
		return fmt.Errorf("load ledger state: %w", err)
	}
	led.Restore(bets, mustWei(log, lst.TotalEscrowedWei), mustWei(log, lst.JudgeFloatWei))

	stakers, err := r.LoadStakers(ctx)
	if err != nil {
		return fmt.Errorf("load stakers: %w", err)
	}
	accounts := make(map[string]rewards.Account, len(stakers))
	for _, s := range stakers {
		accounts[s.Addr] = rewards.Account{
			Staked:     mustWei(log, s.StakedWei),
			RewardDebt: mustWei(log, s.RewardDebtWei),
			StakedAt:   s.StakedAt,
		}
	}
	pst, err := r.LoadPoolState(ctx)
	if err != nil {
		return fmt.Errorf("load pool state: %w", err)
	}
	pool.Restore(mustWei(log, pst.Accumulator), mustWei(log, pst.TotalStakedWei), pst.LastUpdate, accounts)

	log.Info("state restored", zap.Int("bets", len(bets)), zap.Int("stakers", len(accounts)))
	return nil
}

func mustWei(log *zap.Logger, s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		log.Fatal("invalid wei value", zap.String("value", s))
	}
	return v
}
