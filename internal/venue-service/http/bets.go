package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/p2p-wager-venue/internal/shared/metrics"
	"github.com/radieske/p2p-wager-venue/internal/venue-service/dto"
	"github.com/radieske/p2p-wager-venue/internal/venue-service/ledger"
	"github.com/radieske/p2p-wager-venue/pkg/contracts/events"
)

func (s *Server) bets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createBet(w, r)
	case http.MethodGet:
		user := r.URL.Query().Get("user")
		if user == "" {
			http.Error(w, "user required", http.StatusBadRequest)
			return
		}
		writeJSON(w, dto.BetListResponse{BetIDs: s.ledger.ActiveByUser(strings.ToLower(user))})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) createBet(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateBetRequest
	if !decode(w, r, &req) {
		return
	}

	amount, err := dto.ParseAmount(req.AmountWei)
	if err != nil {
		writeErr(w, err)
		return
	}
	reward, err := dto.ParseAmount(req.JudgeRewardWei)
	if err != nil {
		writeErr(w, err)
		return
	}
	funds, err := dto.ParseAmount(req.FundsWei)
	if err != nil {
		writeErr(w, err)
		return
	}

	bet, fee, err := s.ledger.Create(strings.ToLower(req.Proposer), ledger.CreateParams{
		Amount:         amount,
		CounterParty:   strings.ToLower(req.CounterParty),
		Judge:          strings.ToLower(req.Judge),
		AcceptDeadline: time.Unix(req.AcceptDeadline, 0),
		DecideDeadline: time.Unix(req.DecideDeadline, 0),
		JudgeReward:    reward,
		Details:        req.Details,
	}, funds)
	if err != nil {
		writeErr(w, err)
		return
	}

	metrics.BetsCreated.Inc()
	s.persistBet(r.Context(), bet)
	s.publishFee(r.Context(), bet.ID, bet.Proposer, fee)
	_ = s.publ.PublishBetCreated(r.Context(), events.BetCreated{
		BetID:          bet.ID,
		Proposer:       bet.Proposer,
		CounterParty:   bet.CounterParty,
		Judge:          bet.Judge,
		AmountWei:      bet.Amount.String(),
		JudgeRewardWei: bet.JudgeReward.String(),
		AcceptDeadline: bet.AcceptDeadline.Unix(),
		DecideDeadline: bet.DecideDeadline.Unix(),
	})

	writeJSON(w, dto.CreateBetResponse{Bet: dto.FromBet(bet), Fee: dto.FromFee(fee)})
}

// betByID atende /bets/{id}, /bets/{id}/quote e /bets/{id}/{action}.
func (s *Server) betByID(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path[len("/bets/"):], "/"), "/")
	betID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		http.Error(w, "betId required", http.StatusBadRequest)
		return
	}

	if r.Method == http.MethodGet {
		switch {
		case len(parts) == 1:
			if body, ok := s.cachedBet(r.Context(), betID); ok {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write(body)
				return
			}
			bet, err := s.ledger.Get(betID)
			if err != nil {
				writeErr(w, err)
				return
			}
			resp := dto.FromBet(bet)
			s.cacheBet(r.Context(), betID, resp)
			writeJSON(w, resp)
		case len(parts) == 2 && parts[1] == "quote":
			s.quote(w, betID)
		default:
			http.NotFound(w, r)
		}
		return
	}

	if r.Method != http.MethodPost || len(parts) != 2 {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch parts[1] {
	case "accept":
		s.acceptBet(w, r, betID)
	case "judge":
		s.judgeBet(w, r, betID)
	case "cancel":
		s.closeBet(w, r, betID, s.ledger.Cancel)
	case "decline":
		s.closeBet(w, r, betID, s.ledger.Decline)
	case "claim":
		s.claimBet(w, r, betID)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) quote(w http.ResponseWriter, betID int64) {
	required, err := s.ledger.AcceptQuote(betID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, dto.QuoteResponse{
		BetID:       betID,
		RequiredWei: required.String(),
		Required:    dto.Display(required),
	})
}

func (s *Server) acceptBet(w http.ResponseWriter, r *http.Request, betID int64) {
	var req dto.AcceptBetRequest
	if !decode(w, r, &req) {
		return
	}
	funds, err := dto.ParseAmount(req.FundsWei)
	if err != nil {
		writeErr(w, err)
		return
	}

	bet, fee, err := s.ledger.Accept(strings.ToLower(req.CounterParty), betID, funds)
	if err != nil {
		writeErr(w, err)
		return
	}

	metrics.BetsAccepted.Inc()
	s.persistBet(r.Context(), bet)
	s.publishFee(r.Context(), bet.ID, bet.CounterParty, fee)
	_ = s.publ.PublishBetAccepted(r.Context(), events.BetAccepted{
		BetID:        bet.ID,
		CounterParty: bet.CounterParty,
		AmountWei:    bet.Amount.String(),
	})

	writeJSON(w, dto.CreateBetResponse{Bet: dto.FromBet(bet), Fee: dto.FromFee(fee)})
}

func (s *Server) judgeBet(w http.ResponseWriter, r *http.Request, betID int64) {
	var req dto.JudgeBetRequest
	if !decode(w, r, &req) {
		return
	}

	bet, err := s.ledger.Judge(strings.ToLower(req.Judge), betID,
		ledger.ParseWinner(req.Winner), time.Unix(req.ValidUntilUnix, 0))
	if err != nil {
		writeErr(w, err)
		return
	}

	metrics.BetsResolved.WithLabelValues(bet.Winner.String()).Inc()
	s.persistBet(r.Context(), bet)
	_ = s.publ.PublishBetResolved(r.Context(), events.BetResolved{
		BetID:  bet.ID,
		Status: bet.Status.String(),
		Winner: bet.Winner.String(),
		Judge:  bet.Judge,
	})

	writeJSON(w, dto.FromBet(bet))
}

func (s *Server) closeBet(w http.ResponseWriter, r *http.Request, betID int64, op func(string, int64) (*ledger.Bet, error)) {
	var req dto.PartyActionRequest
	if !decode(w, r, &req) {
		return
	}

	bet, err := op(strings.ToLower(req.Caller), betID)
	if err != nil {
		writeErr(w, err)
		return
	}

	s.persistBet(r.Context(), bet)
	_ = s.publ.PublishBetResolved(r.Context(), events.BetResolved{
		BetID:  bet.ID,
		Status: bet.Status.String(),
	})

	writeJSON(w, dto.FromBet(bet))
}

func (s *Server) claimBet(w http.ResponseWriter, r *http.Request, betID int64) {
	var req dto.PartyActionRequest
	if !decode(w, r, &req) {
		return
	}

	st, err := s.ledger.Claim(strings.ToLower(req.Caller), betID)
	if err != nil {
		writeErr(w, err)
		return
	}

	metrics.ClaimsSettled.WithLabelValues(st.Bet.Status.String()).Inc()
	s.persistBet(r.Context(), st.Bet)
	if err := s.repo.InsertSettlement(r.Context(), st.Bet.ID, st.Claimer, st.Role,
		st.Amount.String(), st.Bet.Status.String()); err != nil {
		s.log.Error("persist settlement failed", zap.Int64("betId", st.Bet.ID), zap.Error(err))
	}
	_ = s.publ.PublishClaimSettled(r.Context(), events.ClaimSettled{
		BetID:     st.Bet.ID,
		Claimer:   st.Claimer,
		Role:      st.Role,
		PayoutWei: st.Amount.String(),
		Status:    st.Bet.Status.String(),
	})

	writeJSON(w, dto.FromSettlement(st))
}

// judgeView atende GET /judges/{addr}/pending e /judges/{addr}/claimable.
func (s *Server) judgeView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	parts := strings.Split(strings.Trim(r.URL.Path[len("/judges/"):], "/"), "/")
	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}
	addr := strings.ToLower(parts[0])

	switch parts[1] {
	case "pending":
		writeJSON(w, dto.BetListResponse{BetIDs: s.ledger.JudgePending(addr)})
	case "claimable":
		writeJSON(w, dto.BetListResponse{BetIDs: s.ledger.JudgeClaimable(addr)})
	default:
		http.NotFound(w, r)
	}
}
