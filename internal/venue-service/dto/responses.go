package dto

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/radieske/p2p-wager-venue/internal/venue-service/ledger"
)

// tokenDecimals do asset do venue (padrão ERC-20).
const tokenDecimals = 18

// Display converte wei pra unidade do token, só pra leitura humana; o valor
// autoritativo continua sendo o campo _wei.
func Display(wei *big.Int) string {
	return decimal.NewFromBigInt(wei, -tokenDecimals).String()
}

type BetResponse struct {
	BetID          int64  `json:"betId"`
	Status         string `json:"status"`
	Winner         string `json:"winner,omitempty"`
	Proposer       string `json:"proposer"`
	CounterParty   string `json:"counterParty"`
	Judge          string `json:"judge"`
	AmountWei      string `json:"amount_wei"`
	Amount         string `json:"amount"`
	JudgeRewardWei string `json:"judge_reward_wei"`
	AcceptDeadline int64  `json:"accept_deadline_unix"`
	DecideDeadline int64  `json:"decide_deadline_unix"`
	Details        string `json:"details"`

	ProposerClaimed     bool `json:"proposer_claimed"`
	CounterPartyClaimed bool `json:"counter_party_claimed"`
	JudgeClaimed        bool `json:"judge_claimed"`
}

func FromBet(b *ledger.Bet) BetResponse {
	r := BetResponse{
		BetID:               b.ID,
		Status:              b.Status.String(),
		Proposer:            b.Proposer,
		CounterParty:        b.CounterParty,
		Judge:               b.Judge,
		AmountWei:           b.Amount.String(),
		Amount:              Display(b.Amount),
		JudgeRewardWei:      b.JudgeReward.String(),
		AcceptDeadline:      b.AcceptDeadline.Unix(),
		DecideDeadline:      b.DecideDeadline.Unix(),
		Details:             b.Details,
		ProposerClaimed:     b.ProposerClaimed,
		CounterPartyClaimed: b.CounterPartyClaimed,
		JudgeClaimed:        b.JudgeClaimed,
	}
	if b.Winner != ledger.WinnerNone {
		r.Winner = b.Winner.String()
	}
	return r
}

type FeeResponse struct {
	FeeWei      string `json:"fee_wei"`
	StakingWei  string `json:"staking_wei"`
	TreasuryWei string `json:"treasury_wei"`
}

func FromFee(f *ledger.FeeBreakdown) FeeResponse {
	return FeeResponse{
		FeeWei:      f.Fee.String(),
		StakingWei:  f.Staking.String(),
		TreasuryWei: f.Treasury.String(),
	}
}

type CreateBetResponse struct {
	Bet BetResponse `json:"bet"`
	Fee FeeResponse `json:"fee"`
}

type QuoteResponse struct {
	BetID       int64  `json:"betId"`
	RequiredWei string `json:"required_wei"`
	Required    string `json:"required"`
}

type ClaimResponse struct {
	Bet       BetResponse `json:"bet"`
	Role      string      `json:"role"`
	PayoutWei string      `json:"payout_wei"`
	Payout    string      `json:"payout"`
}

func FromSettlement(s *ledger.Settlement) ClaimResponse {
	return ClaimResponse{
		Bet:       FromBet(s.Bet),
		Role:      s.Role,
		PayoutWei: s.Amount.String(),
		Payout:    Display(s.Amount),
	}
}

type BetListResponse struct {
	BetIDs []int64 `json:"bet_ids"`
}

type StakerResponse struct {
	Staker       string `json:"staker"`
	StakedWei    string `json:"staked_wei"`
	Staked       string `json:"staked"`
	PendingWei   string `json:"pending_wei"`
	Pending      string `json:"pending"`
	StakedAtUnix int64  `json:"staked_at_unix,omitempty"`
	Eligible     bool   `json:"eligible"`
}

type PoolResponse struct {
	TotalStakedWei string `json:"total_staked_wei"`
	TotalStaked    string `json:"total_staked"`
	Accumulator    string `json:"accumulator"`
	LastUpdateUnix int64  `json:"last_update_unix,omitempty"`
}

type StakeOpResponse struct {
	Staker    string `json:"staker"`
	Op        string `json:"op"`
	AmountWei string `json:"amount_wei"`
}

type TotalsResponse struct {
	EscrowedWei   string `json:"escrowed_wei"`
	Escrowed      string `json:"escrowed"`
	JudgeFloatWei string `json:"judge_float_wei"`
	FeeBps        int64  `json:"fee_bps"`
	MinBetWei     string `json:"min_bet_wei"`
}

func NewStakerResponse(addr string, staked, pending *big.Int, stakedAtUnix int64, eligible bool) StakerResponse {
	return StakerResponse{
		Staker:       addr,
		StakedWei:    staked.String(),
		Staked:       Display(staked),
		PendingWei:   pending.String(),
		Pending:      Display(pending),
		StakedAtUnix: stakedAtUnix,
		Eligible:     eligible,
	}
}
