package repo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// Postgres é o write-behind do venue: o engine em memória é a fonte de
// verdade durante a execução e cada mutação é espelhada aqui; no boot o
// estado volta inteiro via Load*.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// SaveBet insere ou atualiza o registro completo da aposta.
func (p *Postgres) SaveBet(ctx context.Context, b *BetRow) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO bets (id,amount_wei,proposer,counter_party,judge,
			accept_deadline,decide_deadline,judge_reward_wei,details,
			status,winner,proposer_claimed,counter_party_claimed,judge_claimed,
			created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (id) DO UPDATE SET
			status=EXCLUDED.status,
			winner=EXCLUDED.winner,
			proposer_claimed=EXCLUDED.proposer_claimed,
			counter_party_claimed=EXCLUDED.counter_party_claimed,
			judge_claimed=EXCLUDED.judge_claimed,
			updated_at=EXCLUDED.updated_at`,
		b.ID, b.AmountWei, b.Proposer, b.CounterParty, b.Judge,
		b.AcceptDeadline, b.DecideDeadline, b.JudgeRewardWei, b.Details,
		b.Status, b.Winner, b.ProposerClaimed, b.CounterPartyClaimed, b.JudgeClaimed,
		b.CreatedAt, b.UpdatedAt,
	)
	return err
}

// SaveLedgerState grava os agregados de auditoria na linha única.
func (p *Postgres) SaveLedgerState(ctx context.Context, st LedgerState) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO ledger_state (id,total_escrowed_wei,judge_float_wei)
		VALUES (1,$1,$2)
		ON CONFLICT (id) DO UPDATE SET
			total_escrowed_wei=EXCLUDED.total_escrowed_wei,
			judge_float_wei=EXCLUDED.judge_float_wei`,
		st.TotalEscrowedWei, st.JudgeFloatWei,
	)
	return err
}

// InsertSettlement registra um claim liquidado (trilha de auditoria, nunca
// atualizado depois).
func (p *Postgres) InsertSettlement(ctx context.Context, betID int64, claimer, role, payoutWei, status string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO settlements (id,bet_id,claimer,role,payout_wei,status)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		uuid.NewString(), betID, claimer, role, payoutWei, status,
	)
	return err
}

// UpsertStaker espelha a posição de um staker.
func (p *Postgres) UpsertStaker(ctx context.Context, s *StakerRow) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO stakers (addr,staked_wei,reward_debt_wei,staked_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (addr) DO UPDATE SET
			staked_wei=EXCLUDED.staked_wei,
			reward_debt_wei=EXCLUDED.reward_debt_wei,
			staked_at=EXCLUDED.staked_at`,
		s.Addr, s.StakedWei, s.RewardDebtWei, s.StakedAt,
	)
	return err
}

// SavePoolState grava o acumulador e o total em stake na linha única.
func (p *Postgres) SavePoolState(ctx context.Context, st PoolState) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO pool_state (id,accumulator,total_staked_wei,last_update)
		VALUES (1,$1,$2,$3)
		ON CONFLICT (id) DO UPDATE SET
			accumulator=EXCLUDED.accumulator,
			total_staked_wei=EXCLUDED.total_staked_wei,
			last_update=EXCLUDED.last_update`,
		st.Accumulator, st.TotalStakedWei, st.LastUpdate,
	)
	return err
}

// LoadBets carrega todas as apostas pro boot do engine.
func (p *Postgres) LoadBets(ctx context.Context) ([]*BetRow, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id,amount_wei,proposer,counter_party,judge,
			accept_deadline,decide_deadline,judge_reward_wei,details,
			status,winner,proposer_claimed,counter_party_claimed,judge_claimed,
			created_at,updated_at
		FROM bets ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*BetRow
	for rows.Next() {
		b := &BetRow{}
		if err := rows.Scan(&b.ID, &b.AmountWei, &b.Proposer, &b.CounterParty, &b.Judge,
			&b.AcceptDeadline, &b.DecideDeadline, &b.JudgeRewardWei, &b.Details,
			&b.Status, &b.Winner, &b.ProposerClaimed, &b.CounterPartyClaimed, &b.JudgeClaimed,
			&b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// LoadLedgerState lê os agregados; zeros quando a linha ainda não existe.
func (p *Postgres) LoadLedgerState(ctx context.Context) (LedgerState, error) {
	st := LedgerState{TotalEscrowedWei: "0", JudgeFloatWei: "0"}
	err := p.db.QueryRowContext(ctx,
		`SELECT total_escrowed_wei,judge_float_wei FROM ledger_state WHERE id=1`).
		Scan(&st.TotalEscrowedWei, &st.JudgeFloatWei)
	if err == sql.ErrNoRows {
		return st, nil
	}
	return st, err
}

// LoadStakers carrega as posições pro boot do pool.
func (p *Postgres) LoadStakers(ctx context.Context) ([]*StakerRow, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT addr,staked_wei,reward_debt_wei,staked_at FROM stakers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*StakerRow
	for rows.Next() {
		s := &StakerRow{}
		if err := rows.Scan(&s.Addr, &s.StakedWei, &s.RewardDebtWei, &s.StakedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// LoadPoolState lê o acumulador; zeros quando a linha ainda não existe.
func (p *Postgres) LoadPoolState(ctx context.Context) (PoolState, error) {
	st := PoolState{Accumulator: "0", TotalStakedWei: "0"}
	err := p.db.QueryRowContext(ctx,
		`SELECT accumulator,total_staked_wei,last_update FROM pool_state WHERE id=1`).
		Scan(&st.Accumulator, &st.TotalStakedWei, &st.LastUpdate)
	if err == sql.ErrNoRows {
		return st, nil
	}
	return st, err
}
