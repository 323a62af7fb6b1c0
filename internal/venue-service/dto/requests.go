package dto

import (
	"errors"
	"math/big"
)

var ErrBadAmount = errors.New("invalid amount")

// ParseAmount converte um valor decimal em wei vindo do JSON. Negativo e
// não-numérico são rejeitados aqui, antes de chegar no engine.
func ParseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, ErrBadAmount
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, ErrBadAmount
	}
	return v, nil
}

type CreateBetRequest struct {
	Proposer       string `json:"proposer"`
	CounterParty   string `json:"counterParty"`
	Judge          string `json:"judge"`
	AmountWei      string `json:"amount_wei"`
	JudgeRewardWei string `json:"judge_reward_wei"`
	AcceptDeadline int64  `json:"accept_deadline_unix"`
	DecideDeadline int64  `json:"decide_deadline_unix"`
	Details        string `json:"details"`
	FundsWei       string `json:"funds_wei"` // quanto o proposer autoriza puxar
}

type AcceptBetRequest struct {
	CounterParty string `json:"counterParty"`
	FundsWei     string `json:"funds_wei"`
}

type JudgeBetRequest struct {
	Judge          string `json:"judge"`
	Winner         string `json:"winner"` // "CREATOR" | "COUNTER_PARTY" | "DRAW"
	ValidUntilUnix int64  `json:"valid_until_unix"`
}

type PartyActionRequest struct {
	Caller string `json:"caller"`
}

type StakeRequest struct {
	Staker    string `json:"staker"`
	AmountWei string `json:"amount_wei"`
}

type PermitStakeRequest struct {
	Staker       string `json:"staker"`
	AmountWei    string `json:"amount_wei"`
	DeadlineUnix int64  `json:"deadline_unix"`
	SignatureHex string `json:"signature_hex"`
}

type SetFeeRequest struct {
	Caller string `json:"caller"`
	FeeBps int64  `json:"fee_bps"`
}

type SetMinBetRequest struct {
	Caller    string `json:"caller"`
	AmountWei string `json:"amount_wei"`
}

type EmergencyWithdrawRequest struct {
	Caller string `json:"caller"`
	To     string `json:"to"`
}
