package repo

import "time"

// BetRow é o registro persistido de uma aposta. Os valores em wei são
// armazenados como NUMERIC(78,0) e trafegam como string.
type BetRow struct {
	ID             int64
	AmountWei      string
	Proposer       string
	CounterParty   string
	Judge          string
	AcceptDeadline time.Time
	DecideDeadline time.Time
	JudgeRewardWei string
	Details        string
	Status         string
	Winner         string

	ProposerClaimed     bool
	CounterPartyClaimed bool
	JudgeClaimed        bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// StakerRow é a posição persistida de um staker no pool.
type StakerRow struct {
	Addr          string
	StakedWei     string
	RewardDebtWei string
	StakedAt      time.Time
}

// LedgerState é a linha única de agregados do ledger (auditoria de escrow).
type LedgerState struct {
	TotalEscrowedWei string
	JudgeFloatWei    string
}

// PoolState é a linha única do acumulador do pool.
type PoolState struct {
	Accumulator    string
	TotalStakedWei string
	LastUpdate     time.Time
}
