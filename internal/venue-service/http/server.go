package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/p2p-wager-venue/internal/shared/metrics"
	"github.com/radieske/p2p-wager-venue/internal/venue-service/dto"
	"github.com/radieske/p2p-wager-venue/internal/venue-service/ledger"
	"github.com/radieske/p2p-wager-venue/internal/venue-service/repo"
	"github.com/radieske/p2p-wager-venue/internal/venue-service/rewards"
	"github.com/radieske/p2p-wager-venue/internal/venue-service/throttle"
	"github.com/radieske/p2p-wager-venue/internal/venue-service/token"
	"github.com/radieske/p2p-wager-venue/pkg/contracts/events"
)

type publisher interface {
	PublishBetCreated(context.Context, events.BetCreated) error
	PublishBetAccepted(context.Context, events.BetAccepted) error
	PublishBetResolved(context.Context, events.BetResolved) error
	PublishClaimSettled(context.Context, events.ClaimSettled) error
	PublishFeeCollected(context.Context, events.FeeCollected) error
	PublishStakeChanged(context.Context, events.StakeChanged) error
}

type Server struct {
	log    *zap.Logger
	ledger *ledger.Ledger
	pool   *rewards.Pool
	tok    *token.InMemory
	repo   *repo.Postgres
	rdb    *redis.Client
	publ   publisher
}

func NewServer(log *zap.Logger, l *ledger.Ledger, p *rewards.Pool, tok *token.InMemory, r *repo.Postgres, rdb *redis.Client, pub publisher) *Server {
	return &Server{log: log, ledger: l, pool: p, tok: tok, repo: r, rdb: rdb, publ: pub}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/bets", s.bets)         // POST cria, GET ?user= lista
	mux.HandleFunc("/bets/", s.betByID)     // GET /bets/{id}[/quote], POST /bets/{id}/{action}
	mux.HandleFunc("/judges/", s.judgeView) // GET /judges/{addr}/pending|claimable
	mux.HandleFunc("/staking/", s.staking)
	mux.HandleFunc("/token/", s.tokenOps) // faucet local do asset in-process
	mux.HandleFunc("/admin/", s.admin)
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr mapeia os erros sentinela dos engines pra status HTTP.
func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrWrongParty),
		errors.Is(err, ledger.ErrNotJudge),
		errors.Is(err, ledger.ErrNotAdmin),
		errors.Is(err, rewards.ErrNotAdmin),
		errors.Is(err, token.ErrNotAdmin):
		status = http.StatusForbidden
	case errors.Is(err, ledger.ErrWrongStatus),
		errors.Is(err, ledger.ErrDeadlinePassed),
		errors.Is(err, ledger.ErrWindowClosed),
		errors.Is(err, ledger.ErrAlreadyClaimed),
		errors.Is(err, ledger.ErrNotClaimable),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, token.ErrInsufficientFunds),
		errors.Is(err, token.ErrInsufficientAllowance),
		errors.Is(err, token.ErrTradingDisabled):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrInvalidParty),
		errors.Is(err, ledger.ErrInvalidDeadline),
		errors.Is(err, ledger.ErrDetailsTooLong),
		errors.Is(err, ledger.ErrBelowMinimum),
		errors.Is(err, ledger.ErrInvalidWinner),
		errors.Is(err, ledger.ErrFeeTooHigh),
		errors.Is(err, rewards.ErrBelowMinStake),
		errors.Is(err, rewards.ErrInvalidAmount),
		errors.Is(err, rewards.ErrInsufficientStake),
		errors.Is(err, token.ErrPermitExpired),
		errors.Is(err, token.ErrBadSignature),
		errors.Is(err, dto.ErrBadAmount):
		status = http.StatusBadRequest
	case errors.Is(err, throttle.ErrTooFrequent):
		status = http.StatusTooManyRequests
	}
	http.Error(w, err.Error(), status)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return false
	}
	return true
}

// ---- cache de leitura ----

// TTL curto: a aposta muda pouco e o engine responde barato; o cache só
// absorve rajadas de polling no mesmo id.
const betCacheTTL = 10 * time.Second

func betKey(id int64) string { return "venue:bet:" + strconv.FormatInt(id, 10) }

func (s *Server) cachedBet(ctx context.Context, id int64) ([]byte, bool) {
	if s.rdb == nil {
		return nil, false
	}
	b, err := s.rdb.Get(ctx, betKey(id)).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (s *Server) cacheBet(ctx context.Context, id int64, v any) {
	if s.rdb == nil {
		return
	}
	b, _ := json.Marshal(v)
	if err := s.rdb.Set(ctx, betKey(id), b, betCacheTTL).Err(); err != nil {
		s.log.Warn("bet cache set", zap.Int64("betId", id), zap.Error(err))
	}
}

// ---- write-behind ----

// persistBet espelha o registro no Postgres; falha não desfaz o engine, só
// loga (o estado volta consistente no próximo espelhamento da aposta).
func (s *Server) persistBet(ctx context.Context, b *ledger.Bet) {
	row := &repo.BetRow{
		ID:                  b.ID,
		AmountWei:           b.Amount.String(),
		Proposer:            b.Proposer,
		CounterParty:        b.CounterParty,
		Judge:               b.Judge,
		AcceptDeadline:      b.AcceptDeadline,
		DecideDeadline:      b.DecideDeadline,
		JudgeRewardWei:      b.JudgeReward.String(),
		Details:             b.Details,
		Status:              b.Status.String(),
		Winner:              b.Winner.String(),
		ProposerClaimed:     b.ProposerClaimed,
		CounterPartyClaimed: b.CounterPartyClaimed,
		JudgeClaimed:        b.JudgeClaimed,
		CreatedAt:           b.CreatedAt,
		UpdatedAt:           b.UpdatedAt,
	}
	if s.rdb != nil {
		s.rdb.Del(ctx, betKey(b.ID))
	}
	if err := s.repo.SaveBet(ctx, row); err != nil {
		s.log.Error("persist bet failed", zap.Int64("betId", b.ID), zap.Error(err))
		return
	}
	escrowed, float := s.ledger.Totals()
	if err := s.repo.SaveLedgerState(ctx, repo.LedgerState{
		TotalEscrowedWei: escrowed.String(),
		JudgeFloatWei:    float.String(),
	}); err != nil {
		s.log.Error("persist ledger state failed", zap.Error(err))
	}
}

func (s *Server) persistStaker(ctx context.Context, addr string) {
	acct, ok := s.pool.AccountOf(addr)
	if !ok {
		return
	}
	if err := s.repo.UpsertStaker(ctx, &repo.StakerRow{
		Addr:          addr,
		StakedWei:     acct.Staked.String(),
		RewardDebtWei: acct.RewardDebt.String(),
		StakedAt:      acct.StakedAt,
	}); err != nil {
		s.log.Error("persist staker failed", zap.String("staker", addr), zap.Error(err))
		return
	}
	acc, total, last := s.pool.State()
	if err := s.repo.SavePoolState(ctx, repo.PoolState{
		Accumulator:    acc.String(),
		TotalStakedWei: total.String(),
		LastUpdate:     last,
	}); err != nil {
		s.log.Error("persist pool state failed", zap.Error(err))
	}
}

func (s *Server) publishFee(ctx context.Context, betID int64, payer string, fee *ledger.FeeBreakdown) {
	metrics.FeesRouted.Inc()
	_ = s.publ.PublishFeeCollected(ctx, events.FeeCollected{
		BetID:       betID,
		Payer:       payer,
		GrossWei:    fee.Gross.String(),
		FeeWei:      fee.Fee.String(),
		StakingWei:  fee.Staking.String(),
		TreasuryWei: fee.Treasury.String(),
	})
}
