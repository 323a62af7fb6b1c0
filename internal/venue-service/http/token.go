package http

import (
	"net/http"
	"strings"

	"github.com/radieske/p2p-wager-venue/internal/venue-service/dto"
)

// tokenOps expõe o asset in-process pra uso local: faucet de mint, approve e
// consultas de saldo/nonce. Em produção nada disso existiria no venue.
func (s *Server) tokenOps(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path[len("/token/"):], "/"), "/")

	if r.Method == http.MethodGet && len(parts) == 2 {
		addr := strings.ToLower(parts[1])
		switch parts[0] {
		case "balance":
			writeJSON(w, map[string]string{
				"addr":        addr,
				"balance_wei": s.tok.BalanceOf(addr).String(),
				"balance":     dto.Display(s.tok.BalanceOf(addr)),
			})
		case "nonce":
			writeJSON(w, map[string]any{"addr": addr, "nonce": s.tok.NonceOf(addr)})
		default:
			http.NotFound(w, r)
		}
		return
	}

	if r.Method != http.MethodPost || len(parts) != 1 {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch parts[0] {
	case "mint":
		var req struct {
			Caller    string `json:"caller"`
			To        string `json:"to"`
			AmountWei string `json:"amount_wei"`
		}
		if !decode(w, r, &req) {
			return
		}
		amount, err := dto.ParseAmount(req.AmountWei)
		if err != nil {
			writeErr(w, err)
			return
		}
		if err := s.tok.Mint(strings.ToLower(req.Caller), strings.ToLower(req.To), amount); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, map[string]string{"to": strings.ToLower(req.To), "minted_wei": amount.String()})

	case "approve":
		var req struct {
			Owner     string `json:"owner"`
			Spender   string `json:"spender"`
			AmountWei string `json:"amount_wei"`
		}
		if !decode(w, r, &req) {
			return
		}
		amount, err := dto.ParseAmount(req.AmountWei)
		if err != nil {
			writeErr(w, err)
			return
		}
		if err := s.tok.Approve(strings.ToLower(req.Owner), strings.ToLower(req.Spender), amount); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, map[string]string{"approved_wei": amount.String()})

	case "trading":
		var req struct {
			Caller  string `json:"caller"`
			Enabled bool   `json:"enabled"`
		}
		if !decode(w, r, &req) {
			return
		}
		if err := s.tok.SetTrading(strings.ToLower(req.Caller), req.Enabled); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, map[string]bool{"trading": req.Enabled})

	default:
		http.NotFound(w, r)
	}
}
