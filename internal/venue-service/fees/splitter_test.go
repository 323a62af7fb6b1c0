package fees

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlatformFeeCeiling(t *testing.T) {
	s := Splitter{FeeBps: 25, StakingSharePct: 50}

	one := new(big.Int)
	one.SetString("1000000000000000000", 10) // 1.0
	require.Equal(t, "25000000000000000", s.PlatformFee(one).String())

	// menor inteiro >= amount*25/1000
	require.Equal(t, int64(1), s.PlatformFee(big.NewInt(39)).Int64())
	require.Equal(t, int64(1), s.PlatformFee(big.NewInt(40)).Int64())
	require.Equal(t, int64(2), s.PlatformFee(big.NewInt(41)).Int64())
}

func TestSplitConserves(t *testing.T) {
	s := Splitter{FeeBps: 25, StakingSharePct: 50}

	for _, fee := range []int64{0, 1, 2, 99, 100, 101, 12345} {
		f := big.NewInt(fee)
		staking, treasury := s.Split(f)
		require.Equal(t, fee, staking.Int64()+treasury.Int64(), "fee=%d", fee)
		require.LessOrEqual(t, staking.Int64(), treasury.Int64(), "staking é floor, nunca maior que o resto com 50%%")
	}
}

func TestSplitOddFeeFavorsTreasury(t *testing.T) {
	s := Splitter{FeeBps: 25, StakingSharePct: 50}
	staking, treasury := s.Split(big.NewInt(101))
	require.Equal(t, int64(50), staking.Int64())
	require.Equal(t, int64(51), treasury.Int64())
}
