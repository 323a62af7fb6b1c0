package events

type FeeCollected struct {
	BetID       int64  `json:"bet_id"`
	Payer       string `json:"payer"`
	GrossWei    string `json:"gross_wei"`
	FeeWei      string `json:"fee_wei"`
	StakingWei  string `json:"staking_wei"`
	TreasuryWei string `json:"treasury_wei"`
	TsUnixMs    int64  `json:"ts_unix_ms"`
}
