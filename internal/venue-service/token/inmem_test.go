package token

import (
	"math/big"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

const admin = "0xad010ad010ad010ad010ad010ad010ad010ad010"

func newToken(t *testing.T) *InMemory {
	t.Helper()
	tok := NewInMemory(admin)
	require.NoError(t, tok.SetTrading(admin, true))
	return tok
}

func TestTransferMovesBalance(t *testing.T) {
	tok := newToken(t)
	require.NoError(t, tok.Mint(admin, "0xaa", big.NewInt(100)))

	require.NoError(t, tok.Transfer("0xaa", "0xbb", big.NewInt(40)))
	require.Equal(t, int64(60), tok.BalanceOf("0xaa").Int64())
	require.Equal(t, int64(40), tok.BalanceOf("0xbb").Int64())

	require.ErrorIs(t, tok.Transfer("0xaa", "0xbb", big.NewInt(61)), ErrInsufficientFunds)
	// saldo intocado após falha
	require.Equal(t, int64(60), tok.BalanceOf("0xaa").Int64())
}

func TestTradingSwitch(t *testing.T) {
	tok := NewInMemory(admin)
	require.NoError(t, tok.Mint(admin, "0xaa", big.NewInt(10)))

	require.ErrorIs(t, tok.Transfer("0xaa", "0xbb", big.NewInt(1)), ErrTradingDisabled)
	require.ErrorIs(t, tok.SetTrading("0xaa", true), ErrNotAdmin)

	require.NoError(t, tok.SetTrading(admin, true))
	require.NoError(t, tok.Transfer("0xaa", "0xbb", big.NewInt(1)))
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	tok := newToken(t)
	require.NoError(t, tok.Mint(admin, "0xaa", big.NewInt(100)))

	require.ErrorIs(t, tok.TransferFrom("0xcc", "0xaa", "0xcc", big.NewInt(10)), ErrInsufficientAllowance)

	require.NoError(t, tok.Approve("0xaa", "0xcc", big.NewInt(30)))
	require.NoError(t, tok.TransferFrom("0xcc", "0xaa", "0xcc", big.NewInt(10)))
	require.NoError(t, tok.TransferFrom("0xcc", "0xaa", "0xcc", big.NewInt(20)))
	require.ErrorIs(t, tok.TransferFrom("0xcc", "0xaa", "0xcc", big.NewInt(1)), ErrInsufficientAllowance)
	require.Equal(t, int64(70), tok.BalanceOf("0xaa").Int64())
}

func TestPermit(t *testing.T) {
	tok := newToken(t)
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	owner := AddressFromPubKey(priv.PubKey())
	require.NoError(t, tok.Mint(admin, owner, big.NewInt(100)))

	spender := "0xcc"
	deadline := time.Now().Add(time.Hour)
	sig := SignPermit(priv, spender, big.NewInt(50), tok.NonceOf(owner), deadline)

	require.NoError(t, tok.Permit(owner, spender, big.NewInt(50), deadline, sig))
	require.NoError(t, tok.TransferFrom(spender, owner, spender, big.NewInt(50)))

	// replay da mesma assinatura cai no nonce já consumido
	require.ErrorIs(t, tok.Permit(owner, spender, big.NewInt(50), deadline, sig), ErrBadSignature)
}

func TestPermitExpired(t *testing.T) {
	tok := newToken(t)
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	owner := AddressFromPubKey(priv.PubKey())

	deadline := time.Now().Add(-time.Minute)
	sig := SignPermit(priv, "0xcc", big.NewInt(1), tok.NonceOf(owner), deadline)
	require.ErrorIs(t, tok.Permit(owner, "0xcc", big.NewInt(1), deadline, sig), ErrPermitExpired)
}

func TestPermitWrongSigner(t *testing.T) {
	tok := newToken(t)
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	owner := "0x1111111111111111111111111111111111111111" // não é a conta do signatário
	deadline := time.Now().Add(time.Hour)
	digestSig := SignPermit(priv, "0xcc", big.NewInt(1), 0, deadline)
	require.ErrorIs(t, tok.Permit(owner, "0xcc", big.NewInt(1), deadline, digestSig), ErrBadSignature)
}
