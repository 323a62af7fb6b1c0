package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/p2p-wager-venue/internal/shared/config"
	"github.com/radieske/p2p-wager-venue/internal/shared/logger"
	"github.com/radieske/p2p-wager-venue/internal/shared/metrics"
	"github.com/radieske/p2p-wager-venue/internal/venue-service/token"
)

// Simulador standalone do asset: um ERC-20 de brinquedo com permit, pra
// exercitar assinatura e fluxo de allowance sem subir o venue inteiro.
func main() {
	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	tok := token.NewInMemory(cfg.AdminAddr)
	if err := tok.SetTrading(cfg.AdminAddr, true); err != nil {
		log.Fatal("trading", zap.Error(err))
	}

	metrics.StartMetricsServer(cfg.MetricsPort, func(context.Context) error { return nil })

	mux := http.NewServeMux()
	mux.HandleFunc("/mint", post(log, func(r *http.Request) (any, error) {
		var req struct {
			Caller    string `json:"caller"`
			To        string `json:"to"`
			AmountWei string `json:"amount_wei"`
		}
		amount, err := decodeAmount(r, &req, &req.AmountWei)
		if err != nil {
			return nil, err
		}
		if err := tok.Mint(low(req.Caller), low(req.To), amount); err != nil {
			return nil, err
		}
		return map[string]string{"minted_wei": amount.String()}, nil
	}))

	mux.HandleFunc("/approve", post(log, func(r *http.Request) (any, error) {
		var req struct {
			Owner     string `json:"owner"`
			Spender   string `json:"spender"`
			AmountWei string `json:"amount_wei"`
		}
		amount, err := decodeAmount(r, &req, &req.AmountWei)
		if err != nil {
			return nil, err
		}
		if err := tok.Approve(low(req.Owner), low(req.Spender), amount); err != nil {
			return nil, err
		}
		return map[string]string{"approved_wei": amount.String()}, nil
	}))

	mux.HandleFunc("/transfer", post(log, func(r *http.Request) (any, error) {
		var req struct {
			From      string `json:"from"`
			To        string `json:"to"`
			AmountWei string `json:"amount_wei"`
		}
		amount, err := decodeAmount(r, &req, &req.AmountWei)
		if err != nil {
			return nil, err
		}
		if err := tok.Transfer(low(req.From), low(req.To), amount); err != nil {
			return nil, err
		}
		return map[string]string{"transferred_wei": amount.String()}, nil
	}))

	mux.HandleFunc("/permit", post(log, func(r *http.Request) (any, error) {
		var req struct {
			Owner        string `json:"owner"`
			Spender      string `json:"spender"`
			AmountWei    string `json:"amount_wei"`
			DeadlineUnix int64  `json:"deadline_unix"`
			SignatureHex string `json:"signature_hex"`
		}
		amount, err := decodeAmount(r, &req, &req.AmountWei)
		if err != nil {
			return nil, err
		}
		sig, err := hex.DecodeString(strings.TrimPrefix(req.SignatureHex, "0x"))
		if err != nil {
			return nil, token.ErrBadSignature
		}
		if err := tok.Permit(low(req.Owner), low(req.Spender), amount, time.Unix(req.DeadlineUnix, 0), sig); err != nil {
			return nil, err
		}
		return map[string]string{"permitted_wei": amount.String()}, nil
	}))

	mux.HandleFunc("/balance/", func(w http.ResponseWriter, r *http.Request) {
		addr := low(strings.Trim(r.URL.Path[len("/balance/"):], "/"))
		writeJSON(w, map[string]string{"addr": addr, "balance_wei": tok.BalanceOf(addr).String()})
	})
	mux.HandleFunc("/nonce/", func(w http.ResponseWriter, r *http.Request) {
		addr := low(strings.Trim(r.URL.Path[len("/nonce/"):], "/"))
		writeJSON(w, map[string]any{"addr": addr, "nonce": tok.NonceOf(addr)})
	})

	addr := ":" + cfg.HTTPPort
	log.Info("token-simulator listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}

var errBadAmount = errors.New("invalid amount")

func low(s string) string { return strings.ToLower(s) }

func post(log *zap.Logger, fn func(*http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		resp, err := fn(r)
		if err != nil {
			log.Warn("token op rejected", zap.Error(err))
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeJSON(w, resp)
	}
}

// decodeAmount decodifica o corpo em v e converte o campo de valor apontado.
func decodeAmount(r *http.Request, v any, amountField *string) (*big.Int, error) {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return nil, err
	}
	amount, ok := new(big.Int).SetString(*amountField, 10)
	if !ok || amount.Sign() < 0 {
		return nil, errBadAmount
	}
	return amount, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
