package fees

import (
	"math/big"

	"github.com/radieske/p2p-wager-venue/internal/shared/bigmath"
)

// Splitter calcula a taxa da plataforma sobre o valor bruto de uma aposta e
// divide o resultado entre o pool de staking e o treasury. Função pura: quem
// move os fundos é o ledger.
type Splitter struct {
	FeeBps          int64 // taxa em ‰ do valor apostado (25 = 2.5%)
	StakingSharePct int64 // fatia da taxa destinada ao pool (0..100)
}

// MaxFeeBps é o teto administrativo da taxa (15%).
const MaxFeeBps = 150

// PlatformFee retorna ceil(amount*FeeBps/1000).
func (s Splitter) PlatformFee(amount *big.Int) *big.Int {
	return bigmath.FeeBps(amount, s.FeeBps)
}

// Split divide a taxa: stakingShare = floor(fee*StakingSharePct/100) e o
// restante vai inteiro pro treasury, então stakingShare+treasury == fee sempre.
func (s Splitter) Split(fee *big.Int) (staking, treasury *big.Int) {
	staking = bigmath.PctFloor(fee, s.StakingSharePct)
	treasury = new(big.Int).Sub(fee, staking)
	return staking, treasury
}
