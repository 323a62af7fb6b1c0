package events

type BetAccepted struct {
	BetID        int64  `json:"bet_id"`
	CounterParty string `json:"counter_party"`
	AmountWei    string `json:"amount_wei"`
	TsUnixMs     int64  `json:"ts_unix_ms"`
}
