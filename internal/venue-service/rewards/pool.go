package rewards

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/p2p-wager-venue/internal/shared/bigmath"
	"github.com/radieske/p2p-wager-venue/internal/venue-service/throttle"
	"github.com/radieske/p2p-wager-venue/internal/venue-service/token"
)

// Pool implementa o padrão acumulador de distribuição proporcional: um único
// valor global acompanha a recompensa acumulada por unidade de stake e cada
// staker guarda um checkpoint (reward debt). Entitlement = staked*acc/PRECISION
// - debt, em O(1) independente do número de stakers.
//
// A carência pós-stake (3 dias por default) é o anti-front-running: quem entra
// pouco antes de um depósito e sai em seguida não leva nada — a recompensa da
// fatia retirada volta pro acumulador e é redistribuída pra quem ficou.

// Precision é o fator de ponto fixo do acumulador (1e30).
var Precision = new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil)

var (
	ErrBelowMinStake     = errors.New("stake below dust floor")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientStake = errors.New("unstake exceeds staked balance")
	ErrNotAdmin          = errors.New("caller is not admin")
	ErrTransferFailed    = errors.New("transfer failed")
)

// Account é a posição de um staker.
type Account struct {
	Staked     *big.Int
	RewardDebt *big.Int // staked*acc/PRECISION no último checkpoint
	StakedAt   time.Time
}

// Config do pool de recompensas.
type Config struct {
	Account          string // conta do pool no token
	Admin            string
	MinStake         *big.Int
	EligibilityDelay time.Duration
}

type Pool struct {
	mu  sync.Mutex
	log *zap.Logger
	tok token.Token
	cfg Config
	thr throttle.Throttle

	accumulator *big.Int // escalado por Precision; só cresce
	totalStaked *big.Int
	lastUpdate  time.Time
	stakers     map[string]*Account

	now func() time.Time
}

func NewPool(log *zap.Logger, tok token.Token, thr throttle.Throttle, cfg Config) *Pool {
	return &Pool{
		log:         log,
		tok:         tok,
		cfg:         cfg,
		thr:         thr,
		accumulator: new(big.Int),
		totalStaked: new(big.Int),
		stakers:     make(map[string]*Account),
		now:         time.Now,
	}
}

// WithClock troca o relógio (testes de carência e deadline).
func (p *Pool) WithClock(now func() time.Time) *Pool {
	p.now = now
	return p
}

// Stake puxa amount da conta do staker (via allowance) e credita a posição.
// Se já existe posição elegível, as recompensas pendentes são colhidas antes
// do reset de debt; posição ainda na carência não recebe agora, mas o
// acumulado fica preservado no checkpoint e sai junto quando a carência vence.
func (p *Pool) Stake(ctx context.Context, staker string, amount *big.Int) error {
	if err := p.checkStake(amount); err != nil {
		return err
	}
	if err := p.thr.Allow(ctx, staker); err != nil {
		return err
	}
	return p.stake(staker, amount)
}

// PermitAndStake executa a aprovação offline e o stake num passo só. As
// validações e o throttle rodam antes do permit: um stake rejeitado não pode
// queimar o nonce da assinatura nem deixar allowance pendurada.
func (p *Pool) PermitAndStake(ctx context.Context, staker string, amount *big.Int, deadline time.Time, sig []byte) error {
	if err := p.checkStake(amount); err != nil {
		return err
	}
	if err := p.thr.Allow(ctx, staker); err != nil {
		return err
	}
	if err := p.tok.Permit(staker, p.cfg.Account, amount, deadline, sig); err != nil {
		return err
	}
	return p.stake(staker, amount)
}

func (p *Pool) checkStake(amount *big.Int) error {
	if err := bigmath.Valid(amount); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if amount.Cmp(p.cfg.MinStake) < 0 {
		return ErrBelowMinStake
	}
	return nil
}

func (p *Pool) stake(staker string, amount *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.tok.TransferFrom(p.cfg.Account, staker, p.cfg.Account, amount); err != nil {
		return fmt.Errorf("%w: stake pull: %v", ErrTransferFailed, err)
	}

	now := p.now()
	acct, ok := p.stakers[staker]
	if !ok {
		acct = &Account{Staked: new(big.Int), RewardDebt: new(big.Int)}
		p.stakers[staker] = acct
	}

	// colheita antes de mexer no saldo; reforço durante a carência não paga
	// agora (mesma regra do ClaimRewards) e o acumulado segue devido
	payout := new(big.Int)
	inDelay := false
	if acct.Staked.Sign() > 0 {
		if p.eligible(acct, now) {
			payout = p.pendingLocked(acct)
		} else {
			inDelay = true
		}
	} else {
		// primeira entrada (0 -> >0) marca o início da carência
		acct.StakedAt = now
	}

	prev := snapshot(acct)
	prevTotal := new(big.Int).Set(p.totalStaked)

	acct.Staked.Add(acct.Staked, amount)
	p.totalStaked.Add(p.totalStaked, amount)
	if inDelay {
		// só a tranche nova entra no checkpoint: debt += amount*acc/PRECISION.
		// Um reset completo aqui descartaria o acumulado não-colhido.
		tranche, _ := bigmath.MulDiv(amount, p.accumulator, Precision)
		acct.RewardDebt.Add(acct.RewardDebt, tranche)
	} else {
		p.resetDebt(acct)
	}
	p.lastUpdate = now

	if payout.Sign() > 0 {
		if err := p.tok.Transfer(p.cfg.Account, staker, payout); err != nil {
			restore(acct, prev)
			p.totalStaked.Set(prevTotal)
			// devolve o que foi puxado, mantendo a operação tudo-ou-nada
			if rerr := p.tok.Transfer(p.cfg.Account, staker, amount); rerr != nil {
				p.log.Error("stake rollback transfer", zap.String("staker", staker), zap.Error(rerr))
			}
			return fmt.Errorf("%w: harvest payout: %v", ErrTransferFailed, err)
		}
	}

	return nil
}

// Unstake devolve amount ao staker. Se a posição ainda está na carência, a
// recompensa nominalmente acumulada pela fatia retirada não é paga: volta pro
// acumulador e é redistribuída pro stake remanescente.
func (p *Pool) Unstake(ctx context.Context, staker string, amount *big.Int) error {
	if err := bigmath.Valid(amount); err != nil || amount.Sign() == 0 {
		return ErrInvalidAmount
	}
	if err := p.thr.Allow(ctx, staker); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.stakers[staker]
	if !ok || acct.Staked.Cmp(amount) < 0 {
		return ErrInsufficientStake
	}

	now := p.now()
	eligible := p.eligible(acct, now)

	payout := new(big.Int).Set(amount)
	orphaned := new(big.Int)
	if eligible {
		payout.Add(payout, p.pendingLocked(acct))
	} else {
		// acumulado da fatia retirada: amount*acc/P - debt*amount/staked
		accrued, _ := bigmath.MulDiv(amount, p.accumulator, Precision)
		debtShare, _ := bigmath.MulDiv(acct.RewardDebt, amount, acct.Staked)
		orphaned.Sub(accrued, debtShare)
		if orphaned.Sign() < 0 {
			orphaned.SetInt64(0)
		}
	}

	prev := snapshot(acct)
	prevTotal := new(big.Int).Set(p.totalStaked)
	prevAcc := new(big.Int).Set(p.accumulator)

	acct.Staked.Sub(acct.Staked, amount)
	p.totalStaked.Sub(p.totalStaked, amount)

	if orphaned.Sign() > 0 && p.totalStaked.Sign() > 0 {
		// redistribuição pro stake remanescente; se ninguém ficou, o valor
		// permanece no saldo do pool sem dono até recuperação administrativa
		delta, _ := bigmath.MulDiv(orphaned, Precision, p.totalStaked)
		p.accumulator.Add(p.accumulator, delta)
	}

	p.resetDebt(acct)
	if acct.Staked.Sign() == 0 {
		acct.StakedAt = time.Time{}
	}
	p.lastUpdate = now

	if err := p.tok.Transfer(p.cfg.Account, staker, payout); err != nil {
		restore(acct, prev)
		p.totalStaked.Set(prevTotal)
		p.accumulator.Set(prevAcc)
		return fmt.Errorf("%w: unstake payout: %v", ErrTransferFailed, err)
	}

	return nil
}

// ClaimRewards paga o pendente do staker. Retorna 0 sem erro quando não há
// posição ou a conta ainda está na carência.
func (p *Pool) ClaimRewards(ctx context.Context, staker string) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.stakers[staker]
	if !ok || acct.Staked.Sign() == 0 {
		return new(big.Int), nil
	}
	if !p.eligible(acct, p.now()) {
		return new(big.Int), nil
	}

	pending := p.pendingLocked(acct)
	if pending.Sign() == 0 {
		return new(big.Int), nil
	}

	prevDebt := new(big.Int).Set(acct.RewardDebt)
	p.resetDebt(acct)

	if err := p.tok.Transfer(p.cfg.Account, staker, pending); err != nil {
		acct.RewardDebt.Set(prevDebt)
		return nil, fmt.Errorf("%w: claim payout: %v", ErrTransferFailed, err)
	}

	return pending, nil
}

// Deposit é o ponto de ingestão de taxas: avança o acumulador proporcionalmente
// ao stake total. Com stake zero o valor fica retido no saldo do pool e NÃO
// gera entitlement retroativo — comportamento preservado de propósito, a
// recuperação é via EmergencyWithdraw.
func (p *Pool) Deposit(amount *big.Int) error {
	if err := bigmath.Valid(amount); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.lastUpdate = p.now()
	if p.totalStaked.Sign() == 0 {
		p.log.Warn("deposit with no stakers, value stranded in pool balance",
			zap.String("amount", amount.String()))
		return nil
	}

	delta, _ := bigmath.MulDiv(amount, Precision, p.totalStaked)
	p.accumulator.Add(p.accumulator, delta)
	return nil
}

// EmergencyWithdraw varre o saldo inteiro da conta do pool pro destino.
// Só o admin; existe pra cenários de migração.
func (p *Pool) EmergencyWithdraw(ctx context.Context, caller, to string) (*big.Int, error) {
	if caller != p.cfg.Admin {
		return nil, ErrNotAdmin
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	bal := p.tok.BalanceOf(p.cfg.Account)
	if bal.Sign() == 0 {
		return bal, nil
	}
	if err := p.tok.Transfer(p.cfg.Account, to, bal); err != nil {
		return nil, fmt.Errorf("%w: emergency sweep: %v", ErrTransferFailed, err)
	}

	p.log.Warn("emergency withdraw executed",
		zap.String("to", to), zap.String("amount", bal.String()))
	return bal, nil
}

// Pending lê o entitlement atual do staker (0 durante a carência).
func (p *Pool) Pending(staker string) *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.stakers[staker]
	if !ok || acct.Staked.Sign() == 0 || !p.eligible(acct, p.now()) {
		return new(big.Int)
	}
	return p.pendingLocked(acct)
}

// Eligible informa se a posição do staker já venceu a carência.
func (p *Pool) Eligible(staker string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.stakers[staker]
	return ok && p.eligible(acct, p.now())
}

// AccountOf retorna uma cópia da posição do staker.
func (p *Pool) AccountOf(staker string) (Account, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.stakers[staker]
	if !ok {
		return Account{}, false
	}
	return Account{
		Staked:     new(big.Int).Set(acct.Staked),
		RewardDebt: new(big.Int).Set(acct.RewardDebt),
		StakedAt:   acct.StakedAt,
	}, true
}

// State retorna acumulador, stake total e último update.
func (p *Pool) State() (accumulator, totalStaked *big.Int, lastUpdate time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.accumulator), new(big.Int).Set(p.totalStaked), p.lastUpdate
}

// Restore recarrega o estado do pool a partir da persistência (boot).
func (p *Pool) Restore(accumulator, totalStaked *big.Int, lastUpdate time.Time, accounts map[string]Account) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.accumulator.Set(accumulator)
	p.totalStaked.Set(totalStaked)
	p.lastUpdate = lastUpdate
	p.stakers = make(map[string]*Account, len(accounts))
	for addr, a := range accounts {
		p.stakers[addr] = &Account{
			Staked:     new(big.Int).Set(a.Staked),
			RewardDebt: new(big.Int).Set(a.RewardDebt),
			StakedAt:   a.StakedAt,
		}
	}
}

func (p *Pool) eligible(acct *Account, now time.Time) bool {
	return !acct.StakedAt.IsZero() && !now.Before(acct.StakedAt.Add(p.cfg.EligibilityDelay))
}

func (p *Pool) pendingLocked(acct *Account) *big.Int {
	accrued, _ := bigmath.MulDiv(acct.Staked, p.accumulator, Precision)
	pending := new(big.Int).Sub(accrued, acct.RewardDebt)
	if pending.Sign() < 0 {
		pending.SetInt64(0)
	}
	return pending
}

// resetDebt recoloca o checkpoint no valor corrente: debt = staked*acc/P.
func (p *Pool) resetDebt(acct *Account) {
	debt, _ := bigmath.MulDiv(acct.Staked, p.accumulator, Precision)
	acct.RewardDebt.Set(debt)
}

func snapshot(a *Account) Account {
	return Account{
		Staked:     new(big.Int).Set(a.Staked),
		RewardDebt: new(big.Int).Set(a.RewardDebt),
		StakedAt:   a.StakedAt,
	}
}

func restore(a *Account, s Account) {
	a.Staked.Set(s.Staked)
	a.RewardDebt.Set(s.RewardDebt)
	a.StakedAt = s.StakedAt
}
