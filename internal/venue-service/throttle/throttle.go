package throttle

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Throttle impõe espaçamento mínimo entre chamadas stake/unstake da mesma
// conta. Não afeta a matemática do acumulador, só a cadência de chamadas
// (mitiga jogos de manipulação no mesmo tick).
type Throttle interface {
	Allow(ctx context.Context, addr string) error
}

var ErrTooFrequent = errors.New("call too frequent")

// InMemory é a implementação local, usada nos testes dos engines.
type InMemory struct {
	mu      sync.Mutex
	spacing time.Duration
	last    map[string]time.Time
	now     func() time.Time
}

func NewInMemory(spacing time.Duration) *InMemory {
	return &InMemory{
		spacing: spacing,
		last:    make(map[string]time.Time),
		now:     time.Now,
	}
}

// WithClock troca o relógio (testes).
func (t *InMemory) WithClock(now func() time.Time) *InMemory {
	t.now = now
	return t
}

func (t *InMemory) Allow(_ context.Context, addr string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if prev, ok := t.last[addr]; ok && now.Sub(prev) < t.spacing {
		return ErrTooFrequent
	}
	t.last[addr] = now
	return nil
}

// Noop libera tudo; usado quando o throttle está desativado por config.
type Noop struct{}

func (Noop) Allow(context.Context, string) error { return nil }
