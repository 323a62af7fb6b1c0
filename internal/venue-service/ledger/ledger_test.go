package ledger

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/p2p-wager-venue/internal/venue-service/rewards"
	"github.com/radieske/p2p-wager-venue/internal/venue-service/throttle"
	"github.com/radieske/p2p-wager-venue/internal/venue-service/token"
)

const (
	admin    = "0xad010ad010ad010ad010ad010ad010ad010ad010"
	venue    = "0x0e5c0e5c0e5c0e5c0e5c0e5c0e5c0e5c0e5c0e5c"
	poolAcct = "0x9001900190019001900190019001900190019001"
	treasury = "0x7e507e507e507e507e507e507e507e507e507e50"
	proposer = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	counter  = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	judge    = "0xcccccccccccccccccccccccccccccccccccccccc"
	outsider = "0xdddddddddddddddddddddddddddddddddddddddd"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	ledger *Ledger
	pool   *rewards.Pool
	tok    *token.InMemory
	clock  *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	tok := token.NewInMemory(admin).WithClock(clock.now)
	require.NoError(t, tok.SetTrading(admin, true))

	pool := rewards.NewPool(zap.NewNop(), tok, throttle.Noop{}, rewards.Config{
		Account:          poolAcct,
		Admin:            admin,
		MinStake:         big.NewInt(1),
		EligibilityDelay: 72 * time.Hour,
	}).WithClock(clock.now)

	led := NewLedger(zap.NewNop(), tok, pool, Config{
		Venue:           venue,
		PoolAccount:     poolAcct,
		Treasury:        treasury,
		Admin:           admin,
		MinBet:          big.NewInt(10),
		FeeBps:          25,
		StakingSharePct: 50,
	}).WithClock(clock.now)

	for _, a := range []string{proposer, counter, judge, outsider} {
		require.NoError(t, tok.Mint(admin, a, big.NewInt(1_000_000)))
		require.NoError(t, tok.Approve(a, venue, big.NewInt(1_000_000)))
	}

	return &fixture{ledger: led, pool: pool, tok: tok, clock: clock}
}

func (f *fixture) params(amount, judgeReward int64) CreateParams {
	return CreateParams{
		Amount:         big.NewInt(amount),
		CounterParty:   counter,
		Judge:          judge,
		AcceptDeadline: f.clock.now().Add(24 * time.Hour),
		DecideDeadline: f.clock.now().Add(48 * time.Hour),
		JudgeReward:    big.NewInt(judgeReward),
		Details:        "quem vence o clássico de domingo",
	}
}

// create + accept com funding exato, deixando a aposta pronta pra julgamento
func (f *fixture) accepted(t *testing.T, amount, judgeReward int64) *Bet {
	t.Helper()

	bet, _, err := f.ledger.Create(proposer, f.params(amount, judgeReward), f.requiredCreate(amount, judgeReward))
	require.NoError(t, err)

	quote, err := f.ledger.AcceptQuote(bet.ID)
	require.NoError(t, err)
	bet, _, err = f.ledger.Accept(counter, bet.ID, quote)
	require.NoError(t, err)
	require.Equal(t, StatusAccepted, bet.Status)
	return bet
}

func (f *fixture) requiredCreate(amount, judgeReward int64) *big.Int {
	fee := (amount*25 + 999) / 1000
	return big.NewInt(amount + fee + judgeReward/2)
}

func TestCreateRefundsExcess(t *testing.T) {
	f := newFixture(t)

	// amount=1000, fee=ceil(1000*25/1000)=25, judgeReward=0 => required 1025
	before := f.tok.BalanceOf(proposer)
	bet, fee, err := f.ledger.Create(proposer, f.params(1000, 0), big.NewInt(1030))
	require.NoError(t, err)
	require.Equal(t, int64(1), bet.ID)
	require.Equal(t, StatusCreated, bet.Status)

	// excesso de 5 devolvido: só 1025 saem do proposer
	after := f.tok.BalanceOf(proposer)
	require.Equal(t, int64(1025), new(big.Int).Sub(before, after).Int64())

	// taxa roteada na hora: 12 pro pool (floor), 13 pro treasury
	require.Equal(t, int64(25), fee.Fee.Int64())
	require.Equal(t, int64(12), f.tok.BalanceOf(poolAcct).Int64())
	require.Equal(t, int64(13), f.tok.BalanceOf(treasury).Int64())

	escrowed, float := f.ledger.Totals()
	require.Equal(t, int64(1000), escrowed.Int64())
	require.Zero(t, float.Sign())
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	funds := big.NewInt(10_000)

	prm := f.params(1000, 0)
	prm.Judge = proposer
	_, _, err := f.ledger.Create(proposer, prm, funds)
	require.ErrorIs(t, err, ErrInvalidParty)

	prm = f.params(1000, 0)
	prm.CounterParty = token.ZeroAddress
	_, _, err = f.ledger.Create(proposer, prm, funds)
	require.ErrorIs(t, err, ErrInvalidParty)

	prm = f.params(1000, 0)
	prm.AcceptDeadline = f.clock.now().Add(-time.Minute)
	_, _, err = f.ledger.Create(proposer, prm, funds)
	require.ErrorIs(t, err, ErrInvalidDeadline)

	prm = f.params(1000, 0)
	prm.DecideDeadline = prm.AcceptDeadline
	_, _, err = f.ledger.Create(proposer, prm, funds)
	require.ErrorIs(t, err, ErrInvalidDeadline)

	prm = f.params(1000, 0)
	prm.Details = string(make([]byte, 257))
	_, _, err = f.ledger.Create(proposer, prm, funds)
	require.ErrorIs(t, err, ErrDetailsTooLong)

	_, _, err = f.ledger.Create(proposer, f.params(9, 0), funds)
	require.ErrorIs(t, err, ErrBelowMinimum)

	_, _, err = f.ledger.Create(proposer, f.params(1000, 0), big.NewInt(1024))
	require.ErrorIs(t, err, ErrInsufficientFunds)

	// nenhuma falha acima mutou estado
	_, err = f.ledger.Get(1)
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, int64(1_000_000), f.tok.BalanceOf(proposer).Int64())
}

func TestAcceptFundingAbsorbsJudgeRewardRemainder(t *testing.T) {
	f := newFixture(t)

	// judgeReward=5: proposer funda floor(5/2)=2, contraparte 3
	bet, _, err := f.ledger.Create(proposer, f.params(1000, 5), f.requiredCreate(1000, 5))
	require.NoError(t, err)

	quote, err := f.ledger.AcceptQuote(bet.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1000+25+3), quote.Int64())

	before := f.tok.BalanceOf(counter)
	_, _, err = f.ledger.Accept(counter, bet.ID, quote)
	require.NoError(t, err)
	require.Equal(t, int64(1028), new(big.Int).Sub(before, f.tok.BalanceOf(counter)).Int64())

	_, float := f.ledger.Totals()
	require.Equal(t, int64(5), float.Int64())
}

func TestAcceptGating(t *testing.T) {
	f := newFixture(t)
	bet, _, err := f.ledger.Create(proposer, f.params(1000, 0), f.requiredCreate(1000, 0))
	require.NoError(t, err)

	_, _, err = f.ledger.Accept(outsider, bet.ID, big.NewInt(2000))
	require.ErrorIs(t, err, ErrWrongParty)

	_, _, err = f.ledger.Accept(counter, bet.ID, big.NewInt(1024))
	require.ErrorIs(t, err, ErrInsufficientFunds)

	_, _, err = f.ledger.Accept(counter, 99, big.NewInt(2000))
	require.ErrorIs(t, err, ErrNotFound)

	f.clock.advance(25 * time.Hour)
	_, _, err = f.ledger.Accept(counter, bet.ID, big.NewInt(2000))
	require.ErrorIs(t, err, ErrDeadlinePassed)
}

func TestCancelAndDecline(t *testing.T) {
	f := newFixture(t)

	bet, _, err := f.ledger.Create(proposer, f.params(1000, 0), f.requiredCreate(1000, 0))
	require.NoError(t, err)

	_, err = f.ledger.Cancel(counter, bet.ID)
	require.ErrorIs(t, err, ErrWrongParty)
	_, err = f.ledger.Decline(proposer, bet.ID)
	require.ErrorIs(t, err, ErrWrongParty)

	got, err := f.ledger.Cancel(proposer, bet.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCanceled, got.Status)

	// terminal: não dá mais pra recusar nem aceitar
	_, err = f.ledger.Decline(counter, bet.ID)
	require.ErrorIs(t, err, ErrWrongStatus)
	_, _, err = f.ledger.Accept(counter, bet.ID, big.NewInt(2000))
	require.ErrorIs(t, err, ErrWrongStatus)

	bet2, _, err := f.ledger.Create(proposer, f.params(1000, 0), f.requiredCreate(1000, 0))
	require.NoError(t, err)
	got, err = f.ledger.Decline(counter, bet2.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDeclined, got.Status)
}

func TestJudgeGating(t *testing.T) {
	f := newFixture(t)
	bet := f.accepted(t, 1000, 4)
	farFuture := f.clock.now().Add(100 * time.Hour)

	_, err := f.ledger.Judge(outsider, bet.ID, WinnerCreator, farFuture)
	require.ErrorIs(t, err, ErrNotJudge)

	_, err = f.ledger.Judge(judge, bet.ID, WinnerNone, farFuture)
	require.ErrorIs(t, err, ErrInvalidWinner)

	// guarda de staleness: o juiz só aceita execução até o bound que passou
	_, err = f.ledger.Judge(judge, bet.ID, WinnerCreator, f.clock.now().Add(time.Hour))
	require.ErrorIs(t, err, ErrWindowClosed)

	got, err := f.ledger.Judge(judge, bet.ID, WinnerCreator, farFuture)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, got.Status)
	require.Equal(t, WinnerCreator, got.Winner)

	// veredito é imutável
	_, err = f.ledger.Judge(judge, bet.ID, WinnerDraw, farFuture)
	require.ErrorIs(t, err, ErrWrongStatus)
}

func TestJudgeWindowClosesAfterDeadline(t *testing.T) {
	f := newFixture(t)
	bet := f.accepted(t, 1000, 0)

	f.clock.advance(49 * time.Hour)
	_, err := f.ledger.Judge(judge, bet.ID, WinnerCreator, f.clock.now().Add(100*time.Hour))
	require.ErrorIs(t, err, ErrWindowClosed)
}

func TestClaimCanceledReturnsStakeAndJudgeHalf(t *testing.T) {
	f := newFixture(t)
	bet, _, err := f.ledger.Create(proposer, f.params(1000, 5), f.requiredCreate(1000, 5))
	require.NoError(t, err)
	_, err = f.ledger.Cancel(proposer, bet.ID)
	require.NoError(t, err)

	_, err = f.ledger.Claim(counter, bet.ID)
	require.ErrorIs(t, err, ErrWrongParty)

	before := f.tok.BalanceOf(proposer)
	st, err := f.ledger.Claim(proposer, bet.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1002), st.Amount.Int64()) // stake + floor(5/2)
	require.Equal(t, int64(1002), new(big.Int).Sub(f.tok.BalanceOf(proposer), before).Int64())

	_, err = f.ledger.Claim(proposer, bet.ID)
	require.ErrorIs(t, err, ErrAlreadyClaimed)
}

func TestClaimPromotesExpiredLazily(t *testing.T) {
	f := newFixture(t)
	bet, _, err := f.ledger.Create(proposer, f.params(1000, 4), f.requiredCreate(1000, 4))
	require.NoError(t, err)

	// dentro do prazo nada é reclamável
	_, err = f.ledger.Claim(proposer, bet.ID)
	require.ErrorIs(t, err, ErrNotClaimable)

	// ninguém promove por timer; o primeiro claim depois do prazo promove
	f.clock.advance(25 * time.Hour)
	st, err := f.ledger.Claim(proposer, bet.ID)
	require.NoError(t, err)
	require.Equal(t, StatusExpired, st.Bet.Status)
	require.Equal(t, int64(1002), st.Amount.Int64())
}

func TestClaimJudgeExpiredSplitsByContribution(t *testing.T) {
	f := newFixture(t)
	bet := f.accepted(t, 1000, 5)

	f.clock.advance(49 * time.Hour)

	// cada lado recupera o próprio stake + exatamente o que fundou do juiz
	st, err := f.ledger.Claim(proposer, bet.ID)
	require.NoError(t, err)
	require.Equal(t, StatusJudgeExpired, st.Bet.Status)
	require.Equal(t, int64(1002), st.Amount.Int64())

	st, err = f.ledger.Claim(counter, bet.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1003), st.Amount.Int64())

	_, err = f.ledger.Claim(judge, bet.ID)
	require.ErrorIs(t, err, ErrWrongParty)

	escrowed, float := f.ledger.Totals()
	require.Zero(t, escrowed.Sign())
	require.Zero(t, float.Sign())
}

func TestClaimCompletedWinnerTakesAll(t *testing.T) {
	f := newFixture(t)
	bet := f.accepted(t, 1000, 4)
	_, err := f.ledger.Judge(judge, bet.ID, WinnerCreator, f.clock.now().Add(100*time.Hour))
	require.NoError(t, err)

	st, err := f.ledger.Claim(proposer, bet.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2000), st.Amount.Int64())

	// perdedor: payout zero mas o claim marca o flag
	st, err = f.ledger.Claim(counter, bet.ID)
	require.NoError(t, err)
	require.Zero(t, st.Amount.Sign())
	_, err = f.ledger.Claim(counter, bet.ID)
	require.ErrorIs(t, err, ErrAlreadyClaimed)

	st, err = f.ledger.Claim(judge, bet.ID)
	require.NoError(t, err)
	require.Equal(t, int64(4), st.Amount.Int64())
	_, err = f.ledger.Claim(judge, bet.ID)
	require.ErrorIs(t, err, ErrAlreadyClaimed)
}

func TestClaimCompletedDraw(t *testing.T) {
	f := newFixture(t)
	bet := f.accepted(t, 1000, 0)
	_, err := f.ledger.Judge(judge, bet.ID, WinnerDraw, f.clock.now().Add(100*time.Hour))
	require.NoError(t, err)

	st, err := f.ledger.Claim(proposer, bet.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1000), st.Amount.Int64())

	st, err = f.ledger.Claim(counter, bet.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1000), st.Amount.Int64())

	// juiz sem recompensa não tem claim
	_, err = f.ledger.Claim(judge, bet.ID)
	require.ErrorIs(t, err, ErrNotClaimable)
}

func TestClaimTransferFailureIsRetryable(t *testing.T) {
	f := newFixture(t)
	bet := f.accepted(t, 1000, 5)
	f.clock.advance(49 * time.Hour)

	// transferência de saída falha: o claim aborta inteiro
	require.NoError(t, f.tok.SetTrading(admin, false))
	_, err := f.ledger.Claim(proposer, bet.ID)
	require.ErrorIs(t, err, ErrTransferFailed)

	// nada ficou meio-liquidado: o mesmo claim paga inteiro no retry
	require.NoError(t, f.tok.SetTrading(admin, true))
	st, err := f.ledger.Claim(proposer, bet.ID)
	require.NoError(t, err)
	require.Equal(t, StatusJudgeExpired, st.Bet.Status)
	require.Equal(t, int64(1002), st.Amount.Int64())

	st, err = f.ledger.Claim(counter, bet.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1003), st.Amount.Int64())

	escrowed, float := f.ledger.Totals()
	require.Zero(t, escrowed.Sign())
	require.Zero(t, float.Sign())
}

func TestClaimByOutsider(t *testing.T) {
	f := newFixture(t)
	bet := f.accepted(t, 1000, 0)
	_, err := f.ledger.Claim(outsider, bet.ID)
	require.ErrorIs(t, err, ErrWrongParty)
}

func TestEscrowConservation(t *testing.T) {
	f := newFixture(t)
	bet := f.accepted(t, 1000, 5)
	_, err := f.ledger.Judge(judge, bet.ID, WinnerCounterParty, f.clock.now().Add(100*time.Hour))
	require.NoError(t, err)

	total := new(big.Int)
	for _, caller := range []string{proposer, counter, judge} {
		st, err := f.ledger.Claim(caller, bet.ID)
		require.NoError(t, err)
		total.Add(total, st.Amount)
	}

	// 2*amount pros participantes + recompensa inteira do juiz, nada além
	require.Equal(t, int64(2005), total.Int64())
	require.Zero(t, f.tok.BalanceOf(venue).Sign(), "conta escrow zera após liquidação completa")

	escrowed, float := f.ledger.Totals()
	require.Zero(t, escrowed.Sign())
	require.Zero(t, float.Sign())
}

func TestFeeFlowsToStakers(t *testing.T) {
	f := newFixture(t)

	// outsider entra no pool antes das apostas
	require.NoError(t, f.tok.Approve(outsider, poolAcct, big.NewInt(1000)))
	require.NoError(t, f.pool.Stake(context.Background(), outsider, big.NewInt(100)))

	f.accepted(t, 1000, 0) // duas pernas de taxa de 25, 12 de staking cada

	f.clock.advance(72 * time.Hour)
	require.Equal(t, int64(24), f.pool.Pending(outsider).Int64())
}

func TestAdminControls(t *testing.T) {
	f := newFixture(t)

	require.ErrorIs(t, f.ledger.SetFeeBps(proposer, 30), ErrNotAdmin)
	require.ErrorIs(t, f.ledger.SetFeeBps(admin, 151), ErrFeeTooHigh)

	require.NoError(t, f.ledger.SetFeeBps(admin, 100))
	require.Equal(t, int64(100), f.ledger.FeeBps())

	// fee novo aplicado no funding: 1000 a 100‰ => fee 100
	_, fee, err := f.ledger.Create(proposer, f.params(1000, 0), big.NewInt(1100))
	require.NoError(t, err)
	require.Equal(t, int64(100), fee.Fee.Int64())

	require.ErrorIs(t, f.ledger.SetMinBet(proposer, big.NewInt(1)), ErrNotAdmin)
	require.NoError(t, f.ledger.SetMinBet(admin, big.NewInt(5000)))
	_, _, err = f.ledger.Create(proposer, f.params(1000, 0), big.NewInt(2000))
	require.ErrorIs(t, err, ErrBelowMinimum)
}

func TestReadViews(t *testing.T) {
	f := newFixture(t)
	bet := f.accepted(t, 1000, 4)

	require.Equal(t, []int64{bet.ID}, f.ledger.ActiveByUser(proposer))
	require.Equal(t, []int64{bet.ID}, f.ledger.JudgePending(judge))
	require.Empty(t, f.ledger.JudgeClaimable(judge))

	_, err := f.ledger.Judge(judge, bet.ID, WinnerDraw, f.clock.now().Add(100*time.Hour))
	require.NoError(t, err)

	require.Empty(t, f.ledger.JudgePending(judge))
	require.Equal(t, []int64{bet.ID}, f.ledger.JudgeClaimable(judge))
	require.Empty(t, f.ledger.ActiveByUser(proposer))

	st, err := f.ledger.Claim(judge, bet.ID)
	require.NoError(t, err)
	require.Equal(t, int64(4), st.Amount.Int64())
	require.Empty(t, f.ledger.JudgeClaimable(judge))
}
