package events

// Emitido quando a aposta sai do estado ativo: veredito do juiz, cancelamento,
// recusa ou expiração promovida num claim.
type BetResolved struct {
	BetID    int64  `json:"bet_id"`
	Status   string `json:"status"` // "CANCELED" | "DECLINED" | "EXPIRED" | "COMPLETED" | "JUDGE_EXPIRED"
	Winner   string `json:"winner,omitempty"`
	Judge    string `json:"judge,omitempty"`
	TsUnixMs int64  `json:"ts_unix_ms"`
}
