package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/p2p-wager-venue/internal/shared/config"
	"github.com/radieske/p2p-wager-venue/internal/shared/db"
	"github.com/radieske/p2p-wager-venue/internal/shared/kafka"
	"github.com/radieske/p2p-wager-venue/internal/shared/logger"
	"github.com/radieske/p2p-wager-venue/internal/shared/metrics"
	ev "github.com/radieske/p2p-wager-venue/pkg/contracts/events"
)

const maxAttempts = 3

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Postgres: trilha de auditoria de liquidações
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	// Kafka consumer: eventos claim_settled emitidos pelo venue-service
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicClaimSettled, "settlement-audit")
	defer reader.Close()

	var dlqWriter *kafkago.Writer
	if cfg.TopicClaimSettledDLQ != "" {
		dlqWriter = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicClaimSettledDLQ)
		defer dlqWriter.Close()
	}

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})

	log.Info("settlement-audit-worker started", zap.String("consume", cfg.TopicClaimSettled))

	ctx := context.Background()
	for {
		_, value, err := kafka.ReadNext(ctx, reader)
		if err != nil {
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		var settled ev.ClaimSettled
		if jerr := json.Unmarshal(value, &settled); jerr != nil {
			log.Error("unmarshal claim_settled", zap.Error(jerr))
			sendDLQ(ctx, log, dlqWriter, value, "bad json")
			continue
		}

		if err := auditOne(ctx, pg, &settled); err != nil {
			log.Error("audit claim", zap.Int64("betId", settled.BetID), zap.Error(err))
			sendDLQ(ctx, log, dlqWriter, value, err.Error())
		}
	}
}

// auditOne grava a liquidação na trilha de auditoria, com retry simples; o
// índice único (bet_id, role) torna o insert idempotente sob redelivery.
func auditOne(ctx context.Context, pg *sql.DB, e *ev.ClaimSettled) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		_, lastErr = pg.ExecContext(ctx, `
			INSERT INTO claim_audit (bet_id,claimer,role,payout_wei,status,event_ts)
			VALUES ($1,$2,$3,$4,$5,to_timestamp($6::double precision/1000))
			ON CONFLICT (bet_id,role) DO NOTHING`,
			e.BetID, e.Claimer, e.Role, e.PayoutWei, e.Status, e.TsUnixMs,
		)
		if lastErr == nil {
			return nil
		}
		time.Sleep(time.Duration(attempt) * 200 * time.Millisecond)
	}
	return fmt.Errorf("insert claim_audit after %d attempts: %w", maxAttempts, lastErr)
}

func sendDLQ(ctx context.Context, log *zap.Logger, w *kafkago.Writer, payload []byte, reason string) {
	if w == nil {
		return
	}
	if err := kafka.WriteJSON(ctx, w, reason, payload); err != nil {
		log.Error("dlq publish", zap.Error(err))
	}
}
