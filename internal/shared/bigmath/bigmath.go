package bigmath

import (
	"errors"
	"fmt"
	"math/big"
)

// Aritmética inteira checada para as contas do venue. Tudo opera sobre
// *big.Int (sem overflow silencioso) e rejeita resultados negativos onde
// quantidade negativa não faz sentido.

var (
	ErrNegative  = errors.New("negative amount")
	ErrDivByZero = errors.New("division by zero")
	ErrNilAmount = errors.New("nil amount")
)

// Valid valida que o valor é não-nulo e não-negativo.
func Valid(a *big.Int) error {
	if a == nil {
		return ErrNilAmount
	}
	if a.Sign() < 0 {
		return ErrNegative
	}
	return nil
}

// Add retorna a+b em um novo big.Int.
func Add(a, b *big.Int) *big.Int {
	return new(big.Int).Add(a, b)
}

// Sub retorna a-b, com erro se o resultado ficaria negativo.
func Sub(a, b *big.Int) (*big.Int, error) {
	r := new(big.Int).Sub(a, b)
	if r.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s - %s", ErrNegative, a, b)
	}
	return r, nil
}

// MulDiv retorna floor(a*b/den). O intermediário usa big.Int, então não há
// risco de overflow no produto.
func MulDiv(a, b, den *big.Int) (*big.Int, error) {
	if den.Sign() == 0 {
		return nil, ErrDivByZero
	}
	p := new(big.Int).Mul(a, b)
	return p.Quo(p, den), nil
}

// CeilDiv retorna ceil(a/b) para a,b >= 0.
func CeilDiv(a, b *big.Int) (*big.Int, error) {
	if b.Sign() == 0 {
		return nil, ErrDivByZero
	}
	q, r := new(big.Int).QuoRem(a, b, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q, nil
}

// FeeBps retorna ceil(amount*bps/1000) — arredonda pra cima pra plataforma
// nunca subcoletar por truncamento.
func FeeBps(amount *big.Int, bps int64) *big.Int {
	p := new(big.Int).Mul(amount, big.NewInt(bps))
	q, _ := CeilDiv(p, big.NewInt(1000))
	return q
}

// PctFloor retorna floor(amount*pct/100).
func PctFloor(amount *big.Int, pct int64) *big.Int {
	q, _ := MulDiv(amount, big.NewInt(pct), big.NewInt(100))
	return q
}

// Half retorna floor(a/2).
func Half(a *big.Int) *big.Int {
	return new(big.Int).Rsh(a, 1)
}
