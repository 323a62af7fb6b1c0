package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/p2p-wager-venue/pkg/contracts/events"
)

// KafkaPublisher publica os eventos do venue, um writer por tópico.
type KafkaPublisher struct {
	BetCreated   *kafka.Writer
	BetAccepted  *kafka.Writer
	BetResolved  *kafka.Writer
	ClaimSettled *kafka.Writer
	FeeCollected *kafka.Writer
	StakeChanged *kafka.Writer
}

func publish(ctx context.Context, w *kafka.Writer, key string, v any) error {
	b, _ := json.Marshal(v)
	return w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: b})
}

func (p *KafkaPublisher) PublishBetCreated(ctx context.Context, e events.BetCreated) error {
	e.TsUnixMs = time.Now().UnixMilli()
	return publish(ctx, p.BetCreated, e.Proposer, e)
}

func (p *KafkaPublisher) PublishBetAccepted(ctx context.Context, e events.BetAccepted) error {
	e.TsUnixMs = time.Now().UnixMilli()
	return publish(ctx, p.BetAccepted, e.CounterParty, e)
}

func (p *KafkaPublisher) PublishBetResolved(ctx context.Context, e events.BetResolved) error {
	e.TsUnixMs = time.Now().UnixMilli()
	return publish(ctx, p.BetResolved, e.Status, e)
}

func (p *KafkaPublisher) PublishClaimSettled(ctx context.Context, e events.ClaimSettled) error {
	e.TsUnixMs = time.Now().UnixMilli()
	return publish(ctx, p.ClaimSettled, e.Claimer, e)
}

func (p *KafkaPublisher) PublishFeeCollected(ctx context.Context, e events.FeeCollected) error {
	e.TsUnixMs = time.Now().UnixMilli()
	return publish(ctx, p.FeeCollected, e.Payer, e)
}

func (p *KafkaPublisher) PublishStakeChanged(ctx context.Context, e events.StakeChanged) error {
	e.TsUnixMs = time.Now().UnixMilli()
	return publish(ctx, p.StakeChanged, e.Staker, e)
}
