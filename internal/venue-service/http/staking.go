package http

import (
	"encoding/hex"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/radieske/p2p-wager-venue/internal/shared/metrics"
	"github.com/radieske/p2p-wager-venue/internal/venue-service/dto"
	"github.com/radieske/p2p-wager-venue/pkg/contracts/events"
)

// staking atende /staking/{stake|permit-stake|unstake|claim|pool} e
// GET /staking/{addr} pra consulta de posição.
func (s *Server) staking(w http.ResponseWriter, r *http.Request) {
	tail := strings.Trim(r.URL.Path[len("/staking/"):], "/")

	if r.Method == http.MethodGet {
		switch tail {
		case "pool":
			acc, total, last := s.pool.State()
			resp := dto.PoolResponse{
				TotalStakedWei: total.String(),
				TotalStaked:    dto.Display(total),
				Accumulator:    acc.String(),
			}
			if !last.IsZero() {
				resp.LastUpdateUnix = last.Unix()
			}
			writeJSON(w, resp)
		default:
			s.stakerPosition(w, strings.ToLower(tail))
		}
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch tail {
	case "stake":
		s.stakeOp(w, r, "STAKE")
	case "permit-stake":
		s.permitStake(w, r)
	case "unstake":
		s.stakeOp(w, r, "UNSTAKE")
	case "claim":
		s.claimRewards(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) stakerPosition(w http.ResponseWriter, addr string) {
	if addr == "" {
		http.Error(w, "staker required", http.StatusBadRequest)
		return
	}
	acct, ok := s.pool.AccountOf(addr)
	if !ok {
		http.Error(w, "staker not found", http.StatusNotFound)
		return
	}

	var stakedAt int64
	if !acct.StakedAt.IsZero() {
		stakedAt = acct.StakedAt.Unix()
	}
	writeJSON(w, dto.NewStakerResponse(addr, acct.Staked, s.pool.Pending(addr), stakedAt, s.pool.Eligible(addr)))
}

func (s *Server) stakeOp(w http.ResponseWriter, r *http.Request, op string) {
	var req dto.StakeRequest
	if !decode(w, r, &req) {
		return
	}
	amount, err := dto.ParseAmount(req.AmountWei)
	if err != nil {
		writeErr(w, err)
		return
	}
	staker := strings.ToLower(req.Staker)

	if op == "STAKE" {
		err = s.pool.Stake(r.Context(), staker, amount)
	} else {
		err = s.pool.Unstake(r.Context(), staker, amount)
	}
	if err != nil {
		writeErr(w, err)
		return
	}

	s.finishStakeOp(w, r, staker, op, amount)
}

func (s *Server) permitStake(w http.ResponseWriter, r *http.Request) {
	var req dto.PermitStakeRequest
	if !decode(w, r, &req) {
		return
	}
	amount, err := dto.ParseAmount(req.AmountWei)
	if err != nil {
		writeErr(w, err)
		return
	}
	sig, err := hex.DecodeString(strings.TrimPrefix(req.SignatureHex, "0x"))
	if err != nil {
		http.Error(w, "bad signature", http.StatusBadRequest)
		return
	}
	staker := strings.ToLower(req.Staker)

	if err := s.pool.PermitAndStake(r.Context(), staker, amount, time.Unix(req.DeadlineUnix, 0), sig); err != nil {
		writeErr(w, err)
		return
	}

	s.finishStakeOp(w, r, staker, "STAKE", amount)
}

func (s *Server) claimRewards(w http.ResponseWriter, r *http.Request) {
	var req dto.PartyActionRequest
	if !decode(w, r, &req) {
		return
	}
	staker := strings.ToLower(req.Caller)

	paid, err := s.pool.ClaimRewards(r.Context(), staker)
	if err != nil {
		writeErr(w, err)
		return
	}

	s.finishStakeOp(w, r, staker, "CLAIM", paid)
}

func (s *Server) finishStakeOp(w http.ResponseWriter, r *http.Request, staker, op string, amount *big.Int) {
	metrics.StakeOps.WithLabelValues(op).Inc()
	s.persistStaker(r.Context(), staker)
	_ = s.publ.PublishStakeChanged(r.Context(), events.StakeChanged{
		Staker:    staker,
		Op:        op,
		AmountWei: amount.String(),
	})
	writeJSON(w, dto.StakeOpResponse{Staker: staker, Op: op, AmountWei: amount.String()})
}

// admin atende POST /admin/fee, /admin/min-bet, /admin/emergency-withdraw e
// GET /admin/totals.
func (s *Server) admin(w http.ResponseWriter, r *http.Request) {
	tail := strings.Trim(r.URL.Path[len("/admin/"):], "/")

	if r.Method == http.MethodGet && tail == "totals" {
		escrowed, float := s.ledger.Totals()
		writeJSON(w, dto.TotalsResponse{
			EscrowedWei:   escrowed.String(),
			Escrowed:      dto.Display(escrowed),
			JudgeFloatWei: float.String(),
			FeeBps:        s.ledger.FeeBps(),
			MinBetWei:     s.ledger.MinBet().String(),
		})
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch tail {
	case "fee":
		var req dto.SetFeeRequest
		if !decode(w, r, &req) {
			return
		}
		if err := s.ledger.SetFeeBps(strings.ToLower(req.Caller), req.FeeBps); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, map[string]int64{"fee_bps": req.FeeBps})

	case "min-bet":
		var req dto.SetMinBetRequest
		if !decode(w, r, &req) {
			return
		}
		amount, err := dto.ParseAmount(req.AmountWei)
		if err != nil {
			writeErr(w, err)
			return
		}
		if err := s.ledger.SetMinBet(strings.ToLower(req.Caller), amount); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, map[string]string{"min_bet_wei": amount.String()})

	case "emergency-withdraw":
		var req dto.EmergencyWithdrawRequest
		if !decode(w, r, &req) {
			return
		}
		swept, err := s.pool.EmergencyWithdraw(r.Context(), strings.ToLower(req.Caller), strings.ToLower(req.To))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, map[string]string{"swept_wei": swept.String()})

	default:
		http.NotFound(w, r)
	}
}
