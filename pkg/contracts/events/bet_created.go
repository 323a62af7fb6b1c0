package events

type BetCreated struct {
	BetID          int64  `json:"bet_id"`
	Proposer       string `json:"proposer"`
	CounterParty   string `json:"counter_party"`
	Judge          string `json:"judge"`
	AmountWei      string `json:"amount_wei"`
	JudgeRewardWei string `json:"judge_reward_wei"`
	AcceptDeadline int64  `json:"accept_deadline_unix"`
	DecideDeadline int64  `json:"decide_deadline_unix"`
	TsUnixMs       int64  `json:"ts_unix_ms"`
}
