package ledger

import (
	"math/big"
	"time"
)

// Status do ciclo de vida de uma aposta. Expired e JudgeExpired nunca são
// aplicados por timer: são promovidos de forma lazy no primeiro claim que
// encontra o deadline vencido.
type Status uint8

const (
	StatusCreated Status = iota
	StatusAccepted
	StatusCanceled
	StatusDeclined
	StatusExpired
	StatusCompleted
	StatusJudgeExpired
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "CREATED"
	case StatusAccepted:
		return "ACCEPTED"
	case StatusCanceled:
		return "CANCELED"
	case StatusDeclined:
		return "DECLINED"
	case StatusExpired:
		return "EXPIRED"
	case StatusCompleted:
		return "COMPLETED"
	case StatusJudgeExpired:
		return "JUDGE_EXPIRED"
	}
	return "UNKNOWN"
}

// Terminal indica estados sem transição de saída.
func (s Status) Terminal() bool {
	return s != StatusCreated && s != StatusAccepted
}

// ParseStatus converte o status persistido de volta pro enum (boot).
func ParseStatus(s string) Status {
	switch s {
	case "ACCEPTED":
		return StatusAccepted
	case "CANCELED":
		return StatusCanceled
	case "DECLINED":
		return StatusDeclined
	case "EXPIRED":
		return StatusExpired
	case "COMPLETED":
		return StatusCompleted
	case "JUDGE_EXPIRED":
		return StatusJudgeExpired
	}
	return StatusCreated
}

// Winner é o veredito do juiz. None até o julgamento; imutável depois.
type Winner uint8

const (
	WinnerNone Winner = iota
	WinnerCreator
	WinnerCounterParty
	WinnerDraw
)

func (w Winner) String() string {
	switch w {
	case WinnerCreator:
		return "CREATOR"
	case WinnerCounterParty:
		return "COUNTER_PARTY"
	case WinnerDraw:
		return "DRAW"
	}
	return "NONE"
}

// ParseWinner converte o valor vindo da API; retorna WinnerNone pra entrada
// desconhecida (o engine rejeita com ErrInvalidWinner).
func ParseWinner(s string) Winner {
	switch s {
	case "CREATOR":
		return WinnerCreator
	case "COUNTER_PARTY":
		return WinnerCounterParty
	case "DRAW":
		return WinnerDraw
	}
	return WinnerNone
}

// Bet é o registro autoritativo de uma aposta. Nunca é deletado; os flags de
// claim (um por parte, false->true uma única vez) tornam o registro inerte.
type Bet struct {
	ID             int64
	Amount         *big.Int
	Proposer       string
	CounterParty   string
	Judge          string
	AcceptDeadline time.Time
	DecideDeadline time.Time
	JudgeReward    *big.Int
	Details        string

	Status Status
	Winner Winner

	ProposerClaimed     bool
	CounterPartyClaimed bool
	JudgeClaimed        bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (b *Bet) clone() *Bet {
	c := *b
	c.Amount = new(big.Int).Set(b.Amount)
	c.JudgeReward = new(big.Int).Set(b.JudgeReward)
	return &c
}

// FeeBreakdown descreve a taxa coletada numa operação de funding.
type FeeBreakdown struct {
	Gross    *big.Int // valor apostado
	Fee      *big.Int // ceil(gross*feeBps/1000)
	Staking  *big.Int // fatia roteada pro pool
	Treasury *big.Int // restante, pro treasury
}

// Settlement é o resultado de um claim liquidado.
type Settlement struct {
	Bet     *Bet
	Claimer string
	Role    string // "PROPOSER" | "COUNTER_PARTY" | "JUDGE"
	Amount  *big.Int
}
