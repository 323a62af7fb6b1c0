package token

import (
	"math/big"
	"strings"
	"sync"
	"time"
)

// InMemory é o ledger de token em memória. Mesma disciplina do venue: valida
// tudo, só então mexe nos saldos, e cada chamada é atômica sob o mutex.
type InMemory struct {
	mu         sync.Mutex
	admin      string
	trading    bool
	balances   map[string]*big.Int
	allowances map[string]map[string]*big.Int
	nonces     map[string]uint64
	now        func() time.Time
}

func NewInMemory(admin string) *InMemory {
	return &InMemory{
		admin:      norm(admin),
		balances:   make(map[string]*big.Int),
		allowances: make(map[string]map[string]*big.Int),
		nonces:     make(map[string]uint64),
		now:        time.Now,
	}
}

// WithClock troca o relógio (testes de deadline de permit).
func (t *InMemory) WithClock(now func() time.Time) *InMemory {
	t.now = now
	return t
}

func norm(addr string) string { return strings.ToLower(addr) }

func (t *InMemory) balance(addr string) *big.Int {
	b, ok := t.balances[addr]
	if !ok {
		b = new(big.Int)
		t.balances[addr] = b
	}
	return b
}

// Mint credita saldo novo; só o admin do token pode emitir.
func (t *InMemory) Mint(caller, to string, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if norm(caller) != t.admin {
		return ErrNotAdmin
	}
	b := t.balance(norm(to))
	b.Add(b, amount)
	return nil
}

// SetTrading liga/desliga as transferências (chave administrativa do token).
func (t *InMemory) SetTrading(caller string, enabled bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if norm(caller) != t.admin {
		return ErrNotAdmin
	}
	t.trading = enabled
	return nil
}

func (t *InMemory) BalanceOf(addr string) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(big.Int).Set(t.balance(norm(addr)))
}

func (t *InMemory) NonceOf(owner string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nonces[norm(owner)]
}

// Transfer move saldo de from pra to. Tudo-ou-nada: ou o débito e o crédito
// acontecem juntos, ou nada muda.
func (t *InMemory) Transfer(from, to string, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transfer(norm(from), norm(to), amount)
}

func (t *InMemory) transfer(from, to string, amount *big.Int) error {
	if !t.trading {
		return ErrTradingDisabled
	}
	if amount.Sign() == 0 {
		return nil
	}
	fb := t.balance(from)
	if fb.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	fb.Sub(fb, amount)
	tb := t.balance(to)
	tb.Add(tb, amount)
	return nil
}

// TransferFrom consome allowance de owner→spender e move o saldo do owner.
func (t *InMemory) TransferFrom(spender, owner, to string, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	spender, owner, to = norm(spender), norm(owner), norm(to)
	al := t.allowance(owner, spender)
	if al.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := t.transfer(owner, to, amount); err != nil {
		return err
	}
	al.Sub(al, amount)
	return nil
}

func (t *InMemory) allowance(owner, spender string) *big.Int {
	m, ok := t.allowances[owner]
	if !ok {
		m = make(map[string]*big.Int)
		t.allowances[owner] = m
	}
	a, ok := m[spender]
	if !ok {
		a = new(big.Int)
		m[spender] = a
	}
	return a
}

func (t *InMemory) Approve(owner, spender string, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.allowance(norm(owner), norm(spender)).Set(amount)
	return nil
}

// Permit aprova por assinatura offline: o owner assina (owner, spender, value,
// nonce, deadline) e qualquer um pode submeter. O nonce interno impede replay.
func (t *InMemory) Permit(owner, spender string, value *big.Int, deadline time.Time, sig []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	owner, spender = norm(owner), norm(spender)
	if t.now().After(deadline) {
		return ErrPermitExpired
	}

	nonce := t.nonces[owner]
	if err := verifyPermit(owner, spender, value, nonce, deadline, sig); err != nil {
		return err
	}

	t.nonces[owner] = nonce + 1
	t.allowance(owner, spender).Set(value)
	return nil
}
