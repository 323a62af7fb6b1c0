package events

type ClaimSettled struct {
	BetID     int64  `json:"bet_id"`
	Claimer   string `json:"claimer"`
	Role      string `json:"role"` // "PROPOSER" | "COUNTER_PARTY" | "JUDGE"
	PayoutWei string `json:"payout_wei"`
	Status    string `json:"status"`
	TsUnixMs  int64  `json:"ts_unix_ms"`
}
