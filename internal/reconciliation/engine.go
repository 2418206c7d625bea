package reconciliation

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rent-reconciliation-ledger/internal/domain/obligation"
	"github.com/rent-reconciliation-ledger/internal/domain/shared"
	"github.com/rent-reconciliation-ledger/internal/domain/transaction"
)

// Config holds the tunable weights and thresholds of the matcher
type Config struct {
	AmountWeight       float64
	NameWeight         float64
	ReferenceWeight    float64
	TemporalWeight     float64
	InclusionThreshold float64
	AmbiguityEpsilon   float64
	HighThreshold      float64
	MediumThreshold    float64
	GraceDays          int
	DecayMonths        int
}

// DefaultConfig returns the weights the worked reconciliation examples are calibrated against
func DefaultConfig() Config {
	return Config{
		AmountWeight:       0.5,
		NameWeight:         0.3,
		ReferenceWeight:    0.1,
		TemporalWeight:     0.1,
		InclusionThreshold: 0.3,
		AmbiguityEpsilon:   0.05,
		HighThreshold:      0.85,
		MediumThreshold:    0.6,
		GraceDays:          10,
		DecayMonths:        2,
	}
}

// Validate reports every inconsistent setting at once
func (c Config) Validate() error {
	var errs []error
	weights := []struct {
		name  string
		value float64
	}{
		{"amount weight", c.AmountWeight},
		{"name weight", c.NameWeight},
		{"reference weight", c.ReferenceWeight},
		{"temporal weight", c.TemporalWeight},
	}
	for _, w := range weights {
		if w.value < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", w.name))
		}
	}
	if c.AmountWeight+c.NameWeight+c.ReferenceWeight+c.TemporalWeight <= 0 {
		errs = append(errs, errors.New("at least one signal weight must be positive"))
	}
	if c.InclusionThreshold < 0 || c.InclusionThreshold > 1 {
		errs = append(errs, errors.New("inclusion threshold must be within [0,1]"))
	}
	if c.AmbiguityEpsilon < 0 {
		errs = append(errs, errors.New("ambiguity epsilon must not be negative"))
	}
	if c.MediumThreshold > c.HighThreshold {
		errs = append(errs, errors.New("medium threshold must not exceed high threshold"))
	}
	if c.GraceDays < 0 || c.DecayMonths < 0 {
		errs = append(errs, errors.New("grace days and decay months must not be negative"))
	}
	return errors.Join(errs...)
}

// Engine scores transactions against rent calls. It holds no state between calls and is safe
// for concurrent use.
type Engine struct {
	cfg    Config
	scorer scorer
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg, scorer: scorer{cfg: cfg}}
}

type pair struct {
	tx         transaction.Transaction
	rentCallID string
	score      float64
	points     int64
	signals    Signals
}

// Match proposes assignments for txs among obligations not listed in excluded. A pair is a
// candidate only when it clears the inclusion threshold and the payer name or reference
// points at the tenant; amount and date alone never assign a transaction. It never fails
// for lack of a match; only a structurally invalid rent call is an error.
func (e *Engine) Match(txs []transaction.Transaction, obligations []obligation.Obligation, excluded map[string]struct{}) (*Result, error) {
	months := make(map[string]time.Time, len(obligations))
	for i := range obligations {
		if err := obligations[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid rent call in matching input: %w", err)
		}
		months[obligations[i].ID], _ = obligations[i].Month()
	}

	pool := AvailableObligations(obligations, excluded)
	slices.SortStableFunc(pool, func(a, b obligation.Obligation) int { return cmp.Compare(a.ID, b.ID) })

	sorted := slices.Clone(txs)
	slices.SortStableFunc(sorted, func(a, b transaction.Transaction) int { return cmp.Compare(a.ID, b.ID) })

	threshold := basisPoints(e.cfg.InclusionThreshold)
	epsilon := basisPoints(e.cfg.AmbiguityEpsilon)

	result := &Result{
		Matches:   []Match{},
		Ambiguous: []AmbiguousMatch{},
		Unmatched: []transaction.Transaction{},
	}
	ambiguousTx := make(map[string]struct{})
	var greedyPool []pair

	for _, tx := range sorted {
		var scored []pair
		for _, o := range pool {
			score, sig := e.scorer.score(tx, o, months[o.ID])
			p := pair{tx: tx, rentCallID: o.ID, score: score, points: basisPoints(score), signals: sig}
			if p.points >= threshold && sig.identifiesPayer() {
				scored = append(scored, p)
			}
		}
		slices.SortStableFunc(scored, comparePairs)

		if len(scored) >= 2 && scored[0].points-scored[1].points < epsilon {
			ambiguousTx[tx.ID] = struct{}{}
			result.Ambiguous = append(result.Ambiguous, e.ambiguous(tx, scored, epsilon))
			continue
		}
		greedyPool = append(greedyPool, scored...)
	}

	slices.SortStableFunc(greedyPool, comparePairs)
	assignedTx := make(map[string]struct{})
	assignedRentCall := make(map[string]struct{})
	for _, p := range greedyPool {
		if _, taken := assignedTx[p.tx.ID]; taken {
			continue
		}
		if _, taken := assignedRentCall[p.rentCallID]; taken {
			continue
		}
		assignedTx[p.tx.ID] = struct{}{}
		assignedRentCall[p.rentCallID] = struct{}{}
		result.Matches = append(result.Matches, Match{
			Transaction: p.tx,
			RentCallID:  p.rentCallID,
			Score:       p.score,
			Confidence:  e.Tier(p.score),
			Signals:     p.signals,
		})
	}
	slices.SortStableFunc(result.Matches, func(a, b Match) int { return cmp.Compare(a.Transaction.ID, b.Transaction.ID) })

	for _, tx := range sorted {
		_, matched := assignedTx[tx.ID]
		_, ambiguous := ambiguousTx[tx.ID]
		if !matched && !ambiguous {
			result.Unmatched = append(result.Unmatched, tx)
		}
	}

	result.Summary = Summary{
		Matched:       len(result.Matches),
		Unmatched:     len(result.Unmatched),
		Ambiguous:     len(result.Ambiguous),
		RentCallCount: len(pool),
	}
	return result, nil
}

// Tier maps a score to its confidence label
func (e *Engine) Tier(score float64) shared.Confidence {
	points := basisPoints(score)
	switch {
	case points >= basisPoints(e.cfg.HighThreshold):
		return shared.ConfidenceHigh
	case points >= basisPoints(e.cfg.MediumThreshold):
		return shared.ConfidenceMedium
	default:
		return shared.ConfidenceLow
	}
}

// ambiguous keeps every candidate within epsilon of the best one; scored is sorted best first
func (e *Engine) ambiguous(tx transaction.Transaction, scored []pair, epsilon int64) AmbiguousMatch {
	best := scored[0].points
	group := AmbiguousMatch{Transaction: tx}
	for _, p := range scored {
		if best-p.points >= epsilon {
			break
		}
		group.Candidates = append(group.Candidates, Candidate{
			RentCallID: p.rentCallID,
			Score:      p.score,
			Confidence: e.Tier(p.score),
			Signals:    p.signals,
		})
	}
	return group
}

// comparePairs orders by descending score, then transaction id, then rent call id
func comparePairs(a, b pair) int {
	if c := cmp.Compare(b.points, a.points); c != 0 {
		return c
	}
	if c := cmp.Compare(a.tx.ID, b.tx.ID); c != 0 {
		return c
	}
	return cmp.Compare(a.rentCallID, b.rentCallID)
}
