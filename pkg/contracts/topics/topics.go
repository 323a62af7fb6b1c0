package topics

const (
	// Apostas
	BetCreated  = "bet_created"
	BetAccepted = "bet_accepted"
	BetResolved = "bet_resolved"

	// Liquidações
	ClaimSettled = "claim_settled"
	FeeCollected = "fee_collected"

	// Staking
	StakeChanged = "stake_changed"

	// DLQs
	ClaimSettledDLQ = "claim_settled_dlq"
)
