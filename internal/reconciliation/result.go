package reconciliation

import (
	"github.com/rent-reconciliation-ledger/internal/domain/shared"
	"github.com/rent-reconciliation-ledger/internal/domain/transaction"
)

// Match is an accepted transaction to rent call assignment
type Match struct {
	Transaction transaction.Transaction `json:"transaction"`
	RentCallID  string                  `json:"rent_call_id"`
	Score       float64                 `json:"score"`
	Confidence  shared.Confidence       `json:"confidence"`
	Signals     Signals                 `json:"signals"`
}

// Candidate is one contending rent call of an ambiguous transaction
type Candidate struct {
	RentCallID string            `json:"rent_call_id"`
	Score      float64           `json:"score"`
	Confidence shared.Confidence `json:"confidence"`
	Signals    Signals           `json:"signals"`
}

// AmbiguousMatch is a transaction left for a human to resolve, candidates best first
type AmbiguousMatch struct {
	Transaction transaction.Transaction `json:"transaction"`
	Candidates  []Candidate             `json:"candidates"`
}

type Summary struct {
	Matched       int `json:"matched"`
	Unmatched     int `json:"unmatched"`
	Ambiguous     int `json:"ambiguous"`
	RentCallCount int `json:"rent_call_count"`
}

// Result partitions every input transaction into exactly one bucket.
// Each slice is ordered by transaction id.
type Result struct {
	Matches   []Match                   `json:"matches"`
	Ambiguous []AmbiguousMatch          `json:"ambiguous"`
	Unmatched []transaction.Transaction `json:"unmatched"`
	Summary   Summary                   `json:"summary"`
}
