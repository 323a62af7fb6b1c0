package events

type StakeChanged struct {
	Staker    string `json:"staker"`
	Op        string `json:"op"` // "STAKE" | "UNSTAKE" | "CLAIM"
	AmountWei string `json:"amount_wei"`
	TsUnixMs  int64  `json:"ts_unix_ms"`
}
