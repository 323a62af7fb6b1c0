package token

import (
	"errors"
	"math/big"
	"time"
)

// O token de valor é um colaborador externo do venue: o core só precisa de
// transferências atômicas e síncronas mais a aprovação por assinatura offline
// (permit). Esta interface é o contrato mínimo; InMemory é a implementação de
// referência usada nos testes e no token-simulator.
type Token interface {
	BalanceOf(addr string) *big.Int
	Transfer(from, to string, amount *big.Int) error
	TransferFrom(spender, owner, to string, amount *big.Int) error
	Approve(owner, spender string, amount *big.Int) error
	Permit(owner, spender string, value *big.Int, deadline time.Time, sig []byte) error
	NonceOf(owner string) uint64
}

// ZeroAddress é o endereço nulo; nenhuma parte de uma aposta pode usá-lo.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

var (
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrTradingDisabled       = errors.New("trading disabled")
	ErrPermitExpired         = errors.New("permit expired")
	ErrBadSignature          = errors.New("bad permit signature")
	ErrNotAdmin              = errors.New("caller is not token admin")
)
