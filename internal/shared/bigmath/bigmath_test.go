package bigmath

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubRejectsNegative(t *testing.T) {
	_, err := Sub(big.NewInt(1), big.NewInt(2))
	require.ErrorIs(t, err, ErrNegative)

	r, err := Sub(big.NewInt(5), big.NewInt(5))
	require.NoError(t, err)
	require.Zero(t, r.Sign())
}

func TestCeilDiv(t *testing.T) {
	cases := []struct{ a, b, want int64 }{
		{0, 3, 0},
		{1, 3, 1},
		{3, 3, 1},
		{4, 3, 2},
		{1000, 1000, 1},
		{1001, 1000, 2},
	}
	for _, c := range cases {
		got, err := CeilDiv(big.NewInt(c.a), big.NewInt(c.b))
		require.NoError(t, err)
		require.Equal(t, c.want, got.Int64(), "ceil(%d/%d)", c.a, c.b)
	}

	_, err := CeilDiv(big.NewInt(1), big.NewInt(0))
	require.ErrorIs(t, err, ErrDivByZero)
}

func TestFeeBpsIsCeiling(t *testing.T) {
	// 1.0 (18 casas) a 25‰ => exatamente 0.025
	one := new(big.Int)
	one.SetString("1000000000000000000", 10)
	fee := FeeBps(one, 25)
	require.Equal(t, "25000000000000000", fee.String())

	// valor que não divide exato arredonda pra cima
	fee = FeeBps(big.NewInt(1), 25)
	require.Equal(t, int64(1), fee.Int64())

	require.Zero(t, FeeBps(big.NewInt(0), 25).Sign())
}

func TestMulDivFloors(t *testing.T) {
	got, err := MulDiv(big.NewInt(7), big.NewInt(3), big.NewInt(2))
	require.NoError(t, err)
	require.Equal(t, int64(10), got.Int64())
}

func TestHalfFloors(t *testing.T) {
	require.Equal(t, int64(2), Half(big.NewInt(5)).Int64())
	require.Equal(t, int64(2), Half(big.NewInt(4)).Int64())
}
