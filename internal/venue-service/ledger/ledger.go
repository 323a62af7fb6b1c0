package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/p2p-wager-venue/internal/shared/bigmath"
	"github.com/radieske/p2p-wager-venue/internal/venue-service/fees"
	"github.com/radieske/p2p-wager-venue/internal/venue-service/token"
)

// Ledger é a máquina de estados das apostas: valida transições, calcula
// funding e payout, roteia a taxa da plataforma e garante liquidação
// exatamente-uma-vez por parte. Toda operação roda inteira sob o mutex
// (execução serial) e segue checks -> efeitos -> transferência externa.
//
// Transições: Created -> {Canceled, Declined, Expired, Accepted};
// Accepted -> {Completed, JudgeExpired}. O resto é terminal.

var (
	ErrInvalidParty      = errors.New("invalid party")
	ErrInvalidDeadline   = errors.New("invalid deadline")
	ErrDetailsTooLong    = errors.New("details too long")
	ErrBelowMinimum      = errors.New("amount below minimum bet")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrWrongParty        = errors.New("wrong party")
	ErrWrongStatus       = errors.New("wrong status")
	ErrDeadlinePassed    = errors.New("acceptance deadline passed")
	ErrNotJudge          = errors.New("caller is not the judge")
	ErrWindowClosed      = errors.New("decision window closed")
	ErrInvalidWinner     = errors.New("invalid winner")
	ErrNotClaimable      = errors.New("bet not claimable")
	ErrAlreadyClaimed    = errors.New("already claimed")
	ErrTransferFailed    = errors.New("transfer failed")
	ErrFeeRoutingFailed  = errors.New("fee routing failed")
	ErrNotFound          = errors.New("bet not found")
	ErrNotAdmin          = errors.New("caller is not admin")
	ErrFeeTooHigh        = errors.New("fee above cap")
)

// MaxDetailsBytes limita o texto livre dos termos da aposta.
const MaxDetailsBytes = 256

// FeeSink recebe a fatia de staking da taxa (o pool de recompensas).
type FeeSink interface {
	Deposit(amount *big.Int) error
}

// Config do ledger.
type Config struct {
	Venue           string // conta escrow do venue no token
	PoolAccount     string // conta do pool de recompensas
	Treasury        string
	Admin           string
	MinBet          *big.Int
	FeeBps          int64
	StakingSharePct int64
}

type Ledger struct {
	mu    sync.Mutex
	log   *zap.Logger
	tok   token.Token
	sink  FeeSink
	split fees.Splitter

	venue    string
	treasury string
	poolAcct string
	admin    string
	minBet   *big.Int

	bets   map[int64]*Bet
	byUser map[string][]int64
	nextID int64

	// contadores agregados de auditoria (não são fonte de verdade de payout)
	totalEscrowed *big.Int
	judgeFloat    *big.Int

	now func() time.Time
}

func NewLedger(log *zap.Logger, tok token.Token, sink FeeSink, cfg Config) *Ledger {
	return &Ledger{
		log:           log,
		tok:           tok,
		sink:          sink,
		split:         fees.Splitter{FeeBps: cfg.FeeBps, StakingSharePct: cfg.StakingSharePct},
		venue:         cfg.Venue,
		treasury:      cfg.Treasury,
		poolAcct:      cfg.PoolAccount,
		admin:         cfg.Admin,
		minBet:        new(big.Int).Set(cfg.MinBet),
		bets:          make(map[int64]*Bet),
		byUser:        make(map[string][]int64),
		nextID:        1,
		totalEscrowed: new(big.Int),
		judgeFloat:    new(big.Int),
		now:           time.Now,
	}
}

// WithClock troca o relógio (testes de deadline).
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// CreateParams são os parâmetros de criação de uma aposta.
type CreateParams struct {
	Amount         *big.Int
	CounterParty   string
	Judge          string
	AcceptDeadline time.Time
	DecideDeadline time.Time
	JudgeReward    *big.Int
	Details        string
}

// Create valida e registra uma aposta nova. Funding exigido =
// amount + ceil(amount*feeBps/1000) + floor(judgeReward/2); excesso é
// devolvido ao proposer antes de qualquer mutação de estado.
func (l *Ledger) Create(proposer string, prm CreateParams, funds *big.Int) (*Bet, *FeeBreakdown, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if err := validParties(proposer, prm.CounterParty, prm.Judge); err != nil {
		return nil, nil, err
	}
	if !prm.AcceptDeadline.After(now) || !prm.DecideDeadline.After(prm.AcceptDeadline) {
		return nil, nil, ErrInvalidDeadline
	}
	if len(prm.Details) > MaxDetailsBytes {
		return nil, nil, ErrDetailsTooLong
	}
	if err := bigmath.Valid(prm.Amount); err != nil {
		return nil, nil, fmt.Errorf("%w: amount", ErrBelowMinimum)
	}
	if prm.Amount.Cmp(l.minBet) < 0 {
		return nil, nil, ErrBelowMinimum
	}
	if err := bigmath.Valid(prm.JudgeReward); err != nil {
		return nil, nil, fmt.Errorf("%w: judge reward", ErrInsufficientFunds)
	}

	fee := l.split.PlatformFee(prm.Amount)
	required := bigmath.Add(bigmath.Add(prm.Amount, fee), bigmath.Half(prm.JudgeReward))

	breakdown, err := l.collect(proposer, funds, required, fee, prm.Amount)
	if err != nil {
		return nil, nil, err
	}

	bet := &Bet{
		ID:             l.nextID,
		Amount:         new(big.Int).Set(prm.Amount),
		Proposer:       proposer,
		CounterParty:   prm.CounterParty,
		Judge:          prm.Judge,
		AcceptDeadline: prm.AcceptDeadline,
		DecideDeadline: prm.DecideDeadline,
		JudgeReward:    new(big.Int).Set(prm.JudgeReward),
		Details:        prm.Details,
		Status:         StatusCreated,
		Winner:         WinnerNone,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	l.nextID++
	l.bets[bet.ID] = bet
	l.index(bet)

	l.totalEscrowed.Add(l.totalEscrowed, bet.Amount)
	l.judgeFloat.Add(l.judgeFloat, bigmath.Half(bet.JudgeReward))

	l.log.Info("bet created",
		zap.Int64("betId", bet.ID),
		zap.String("proposer", proposer),
		zap.String("amount", bet.Amount.String()))

	return bet.clone(), breakdown, nil
}

// Accept registra o aceite da contraparte. Funding exigido =
// amount + ceil(amount*feeBps/1000) + (judgeReward - floor(judgeReward/2)):
// a contraparte absorve o resto do arredondamento da recompensa do juiz.
func (l *Ledger) Accept(caller string, betID int64, funds *big.Int) (*Bet, *FeeBreakdown, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bet, ok := l.bets[betID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	if caller != bet.CounterParty {
		return nil, nil, ErrWrongParty
	}
	if bet.Status != StatusCreated {
		return nil, nil, ErrWrongStatus
	}
	now := l.now()
	if now.After(bet.AcceptDeadline) {
		return nil, nil, ErrDeadlinePassed
	}

	fee := l.split.PlatformFee(bet.Amount)
	judgeShare, _ := bigmath.Sub(bet.JudgeReward, bigmath.Half(bet.JudgeReward))
	required := bigmath.Add(bigmath.Add(bet.Amount, fee), judgeShare)

	breakdown, err := l.collect(caller, funds, required, fee, bet.Amount)
	if err != nil {
		return nil, nil, err
	}

	bet.Status = StatusAccepted
	bet.UpdatedAt = now
	l.totalEscrowed.Add(l.totalEscrowed, bet.Amount)
	l.judgeFloat.Add(l.judgeFloat, judgeShare)

	l.log.Info("bet accepted", zap.Int64("betId", bet.ID), zap.String("counterParty", caller))

	return bet.clone(), breakdown, nil
}

// Judge registra o veredito. callerDeadline é um guarda de staleness: o juiz
// declara até quando aceita que a decisão seja executada
// (now <= decideDeadline <= callerDeadline).
func (l *Ledger) Judge(caller string, betID int64, winner Winner, callerDeadline time.Time) (*Bet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bet, ok := l.bets[betID]
	if !ok {
		return nil, ErrNotFound
	}
	if caller != bet.Judge {
		return nil, ErrNotJudge
	}
	if bet.Status != StatusAccepted {
		return nil, ErrWrongStatus
	}
	now := l.now()
	if now.After(bet.DecideDeadline) || bet.DecideDeadline.After(callerDeadline) {
		return nil, ErrWindowClosed
	}
	if winner != WinnerCreator && winner != WinnerCounterParty && winner != WinnerDraw {
		return nil, ErrInvalidWinner
	}

	bet.Winner = winner
	bet.Status = StatusCompleted
	bet.UpdatedAt = now

	l.log.Info("bet judged", zap.Int64("betId", bet.ID), zap.String("winner", winner.String()))

	return bet.clone(), nil
}

// Cancel desiste de uma aposta ainda não aceita. Só o proposer.
func (l *Ledger) Cancel(caller string, betID int64) (*Bet, error) {
	return l.closeCreated(caller, betID, StatusCanceled, func(b *Bet) string { return b.Proposer })
}

// Decline recusa uma aposta ainda não aceita. Só a contraparte.
func (l *Ledger) Decline(caller string, betID int64) (*Bet, error) {
	return l.closeCreated(caller, betID, StatusDeclined, func(b *Bet) string { return b.CounterParty })
}

func (l *Ledger) closeCreated(caller string, betID int64, to Status, allowed func(*Bet) string) (*Bet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bet, ok := l.bets[betID]
	if !ok {
		return nil, ErrNotFound
	}
	if caller != allowed(bet) {
		return nil, ErrWrongParty
	}
	if bet.Status != StatusCreated {
		return nil, ErrWrongStatus
	}

	bet.Status = to
	bet.UpdatedAt = l.now()
	return bet.clone(), nil
}

// Claim liquida a parte do chamador. Primeiro promove status vencido de forma
// lazy, depois calcula o entitlement, marca o flag da parte (exatamente uma
// vez) e só então transfere — falha de transferência desfaz tudo.
func (l *Ledger) Claim(caller string, betID int64) (*Settlement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bet, ok := l.bets[betID]
	if !ok {
		return nil, ErrNotFound
	}

	role, err := roleOf(bet, caller)
	if err != nil {
		return nil, err
	}

	now := l.now()
	l.promote(bet, now)

	payout, flag, escrowDelta, floatDelta, err := l.entitlement(bet, caller, role)
	if err != nil {
		return nil, err
	}
	if *flag {
		return nil, ErrAlreadyClaimed
	}

	// efeitos antes da transferência externa
	*flag = true
	prevEscrow := new(big.Int).Set(l.totalEscrowed)
	prevFloat := new(big.Int).Set(l.judgeFloat)
	l.totalEscrowed.Sub(l.totalEscrowed, escrowDelta)
	l.judgeFloat.Sub(l.judgeFloat, floatDelta)
	bet.UpdatedAt = now

	if payout.Sign() > 0 {
		if terr := l.tok.Transfer(l.venue, caller, payout); terr != nil {
			// a promoção lazy de status não entra no rollback: é função
			// determinística do relógio e qualquer retry re-deriva o mesmo
			// estado; flags e contadores voltam ao valor anterior
			*flag = false
			l.totalEscrowed.Set(prevEscrow)
			l.judgeFloat.Set(prevFloat)
			return nil, fmt.Errorf("%w: claim payout: %v", ErrTransferFailed, terr)
		}
	}

	l.log.Info("claim settled",
		zap.Int64("betId", bet.ID),
		zap.String("claimer", caller),
		zap.String("role", role),
		zap.String("amount", payout.String()),
		zap.String("status", bet.Status.String()))

	return &Settlement{Bet: bet.clone(), Claimer: caller, Role: role, Amount: payout}, nil
}

// promote aplica as expirações lazy: Created vencido vira Expired, Accepted
// com janela de decisão vencida vira JudgeExpired.
func (l *Ledger) promote(bet *Bet, now time.Time) {
	switch {
	case bet.Status == StatusCreated && now.After(bet.AcceptDeadline):
		bet.Status = StatusExpired
		bet.UpdatedAt = now
	case bet.Status == StatusAccepted && now.After(bet.DecideDeadline):
		bet.Status = StatusJudgeExpired
		bet.UpdatedAt = now
	}
}

// entitlement devolve payout, o flag de claim da parte e quanto abater dos
// contadores agregados (principal e float de recompensa do juiz).
func (l *Ledger) entitlement(bet *Bet, caller, role string) (payout *big.Int, flag *bool, escrowDelta, floatDelta *big.Int, err error) {
	zero := new(big.Int)
	half := bigmath.Half(bet.JudgeReward)
	rest, _ := bigmath.Sub(bet.JudgeReward, half)

	switch bet.Status {
	case StatusCanceled, StatusDeclined, StatusExpired:
		// só o proposer tem o que receber: devolve stake + metade que fundou
		if caller != bet.Proposer {
			return nil, nil, nil, nil, ErrWrongParty
		}
		return bigmath.Add(bet.Amount, half), &bet.ProposerClaimed, new(big.Int).Set(bet.Amount), half, nil

	case StatusJudgeExpired:
		// cada lado recupera o próprio stake + exatamente o que fundou do juiz
		switch caller {
		case bet.Proposer:
			return bigmath.Add(bet.Amount, half), &bet.ProposerClaimed, new(big.Int).Set(bet.Amount), half, nil
		case bet.CounterParty:
			return bigmath.Add(bet.Amount, rest), &bet.CounterPartyClaimed, new(big.Int).Set(bet.Amount), rest, nil
		}
		return nil, nil, nil, nil, ErrWrongParty

	case StatusCompleted:
		if role == "JUDGE" {
			if bet.JudgeReward.Sign() == 0 {
				return nil, nil, nil, nil, ErrNotClaimable
			}
			return new(big.Int).Set(bet.JudgeReward), &bet.JudgeClaimed, zero, new(big.Int).Set(bet.JudgeReward), nil
		}

		flag = &bet.ProposerClaimed
		side := WinnerCreator
		if caller == bet.CounterParty {
			flag = &bet.CounterPartyClaimed
			side = WinnerCounterParty
		}

		switch {
		case bet.Winner == WinnerDraw:
			return new(big.Int).Set(bet.Amount), flag, new(big.Int).Set(bet.Amount), zero, nil
		case bet.Winner == side:
			double := new(big.Int).Lsh(bet.Amount, 1)
			return double, flag, new(big.Int).Set(double), zero, nil
		default:
			// perdedor: payout zero, mas o claim marca o flag mesmo assim
			return zero, flag, zero, zero, nil
		}
	}

	return nil, nil, nil, nil, ErrNotClaimable
}

// collect puxa funds do caller, devolve o excesso e roteia a taxa.
func (l *Ledger) collect(caller string, funds, required, fee, gross *big.Int) (*FeeBreakdown, error) {
	if err := bigmath.Valid(funds); err != nil {
		return nil, ErrInsufficientFunds
	}
	if funds.Cmp(required) < 0 {
		return nil, ErrInsufficientFunds
	}

	if err := l.tok.TransferFrom(l.venue, caller, l.venue, funds); err != nil {
		return nil, fmt.Errorf("%w: funding pull: %v", ErrTransferFailed, err)
	}

	if excess := new(big.Int).Sub(funds, required); excess.Sign() > 0 {
		if err := l.tok.Transfer(l.venue, caller, excess); err != nil {
			return nil, fmt.Errorf("%w: excess refund: %v", ErrTransferFailed, err)
		}
	}

	breakdown, err := l.routeFee(fee, gross)
	if err != nil {
		return nil, err
	}
	return breakdown, nil
}

// routeFee divide a taxa e encaminha as duas pernas; qualquer falha aborta a
// operação inteira — nunca há distribuição parcial observável.
func (l *Ledger) routeFee(fee, gross *big.Int) (*FeeBreakdown, error) {
	staking, treasury := l.split.Split(fee)

	if staking.Sign() > 0 {
		if err := l.tok.Transfer(l.venue, l.poolAcct, staking); err != nil {
			return nil, fmt.Errorf("%w: staking leg: %v", ErrFeeRoutingFailed, err)
		}
		if err := l.sink.Deposit(staking); err != nil {
			return nil, fmt.Errorf("%w: pool deposit: %v", ErrFeeRoutingFailed, err)
		}
	}
	if treasury.Sign() > 0 {
		if err := l.tok.Transfer(l.venue, l.treasury, treasury); err != nil {
			return nil, fmt.Errorf("%w: treasury leg: %v", ErrFeeRoutingFailed, err)
		}
	}

	return &FeeBreakdown{
		Gross:    new(big.Int).Set(gross),
		Fee:      fee,
		Staking:  staking,
		Treasury: treasury,
	}, nil
}

func roleOf(bet *Bet, caller string) (string, error) {
	switch caller {
	case bet.Proposer:
		return "PROPOSER", nil
	case bet.CounterParty:
		return "COUNTER_PARTY", nil
	case bet.Judge:
		return "JUDGE", nil
	}
	return "", ErrWrongParty
}

func validParties(proposer, counterParty, judge string) error {
	for _, a := range []string{proposer, counterParty, judge} {
		if a == "" || a == token.ZeroAddress {
			return ErrInvalidParty
		}
	}
	if proposer == counterParty || proposer == judge || counterParty == judge {
		return ErrInvalidParty
	}
	return nil
}

func (l *Ledger) index(bet *Bet) {
	for _, a := range []string{bet.Proposer, bet.CounterParty, bet.Judge} {
		l.byUser[a] = append(l.byUser[a], bet.ID)
	}
}

// ---- leitura ----

// Get retorna uma cópia do registro da aposta.
func (l *Ledger) Get(betID int64) (*Bet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bet, ok := l.bets[betID]
	if !ok {
		return nil, ErrNotFound
	}
	return bet.clone(), nil
}

// AcceptQuote calcula o funding exigido pra contraparte aceitar.
func (l *Ledger) AcceptQuote(betID int64) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bet, ok := l.bets[betID]
	if !ok {
		return nil, ErrNotFound
	}
	judgeShare, _ := bigmath.Sub(bet.JudgeReward, bigmath.Half(bet.JudgeReward))
	return bigmath.Add(bigmath.Add(bet.Amount, l.split.PlatformFee(bet.Amount)), judgeShare), nil
}

// ActiveByUser lista ids de apostas não-terminais em que o endereço participa.
func (l *Ledger) ActiveByUser(addr string) []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []int64
	for _, id := range l.byUser[addr] {
		if !l.bets[id].Status.Terminal() {
			out = append(out, id)
		}
	}
	return out
}

// JudgePending lista apostas aceitas aguardando decisão do juiz, ainda dentro
// da janela.
func (l *Ledger) JudgePending(judge string) []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	var out []int64
	for _, id := range l.byUser[judge] {
		b := l.bets[id]
		if b.Judge == judge && b.Status == StatusAccepted && !now.After(b.DecideDeadline) {
			out = append(out, id)
		}
	}
	return out
}

// JudgeClaimable lista apostas julgadas com recompensa ainda não sacada.
func (l *Ledger) JudgeClaimable(judge string) []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []int64
	for _, id := range l.byUser[judge] {
		b := l.bets[id]
		if b.Judge == judge && b.Status == StatusCompleted && b.JudgeReward.Sign() > 0 && !b.JudgeClaimed {
			out = append(out, id)
		}
	}
	return out
}

// Totals expõe os contadores agregados de auditoria.
func (l *Ledger) Totals() (escrowed, judgeFloat *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.totalEscrowed), new(big.Int).Set(l.judgeFloat)
}

// FeeBps retorna a taxa vigente.
func (l *Ledger) FeeBps() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.split.FeeBps
}

// MinBet retorna a aposta mínima vigente.
func (l *Ledger) MinBet() *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.minBet)
}

// ---- administração ----

// SetFeeBps atualiza a taxa da plataforma (teto de 15%).
func (l *Ledger) SetFeeBps(caller string, bps int64) error {
	if caller != l.admin {
		return ErrNotAdmin
	}
	if bps < 0 || bps > fees.MaxFeeBps {
		return ErrFeeTooHigh
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.split.FeeBps = bps
	l.log.Info("fee updated", zap.Int64("feeBps", bps))
	return nil
}

// SetMinBet atualiza a aposta mínima.
func (l *Ledger) SetMinBet(caller string, amount *big.Int) error {
	if caller != l.admin {
		return ErrNotAdmin
	}
	if err := bigmath.Valid(amount); err != nil {
		return ErrBelowMinimum
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.minBet.Set(amount)
	l.log.Info("min bet updated", zap.String("minBet", amount.String()))
	return nil
}

// Restore recarrega o estado do ledger a partir da persistência (boot).
func (l *Ledger) Restore(bets []*Bet, totalEscrowed, judgeFloat *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.bets = make(map[int64]*Bet, len(bets))
	l.byUser = make(map[string][]int64)
	l.nextID = 1
	for _, b := range bets {
		c := b.clone()
		l.bets[c.ID] = c
		l.index(c)
		if c.ID >= l.nextID {
			l.nextID = c.ID + 1
		}
	}
	l.totalEscrowed.Set(totalEscrowed)
	l.judgeFloat.Set(judgeFloat)
}
