package reconciliation

import (
	"math"
	"strings"
	"time"

	"github.com/rent-reconciliation-ledger/internal/domain/obligation"
	"github.com/rent-reconciliation-ledger/internal/domain/transaction"
)

const (
	amountFullCredit    = 1.0
	amountPartialCredit = 0.5
	minReferenceRunes   = 2
	daysPerMonth        = 30
	scorePrecision      = 1e4
)

// Signals holds the raw [0,1] value of each independent signal before weighting
type Signals struct {
	Amount    float64 `json:"amount"`
	Name      float64 `json:"name"`
	Reference float64 `json:"reference"`
	Temporal  float64 `json:"temporal"`
}

// identifiesPayer reports whether anything besides amount and date ties the pair together
func (s Signals) identifiesPayer() bool {
	return s.Name > 0 || s.Reference > 0
}

type scorer struct {
	cfg Config
}

// score returns the weighted score rounded to four decimals, and its signal breakdown.
// month is the parsed billing month of o.
func (s scorer) score(tx transaction.Transaction, o obligation.Obligation, month time.Time) (float64, Signals) {
	sig := Signals{
		Amount:    amountSignal(tx, o),
		Name:      nameSimilarity(tx.PayerName, o.TenantDisplayName),
		Reference: referenceSignal(tx.Reference, o),
		Temporal:  s.temporalSignal(tx.Date, month),
	}

	total := s.cfg.AmountWeight + s.cfg.NameWeight + s.cfg.ReferenceWeight + s.cfg.TemporalWeight
	if total <= 0 {
		return 0, sig
	}
	weighted := sig.Amount*s.cfg.AmountWeight +
		sig.Name*s.cfg.NameWeight +
		sig.Reference*s.cfg.ReferenceWeight +
		sig.Temporal*s.cfg.TemporalWeight

	return roundScore(weighted / total), sig
}

func amountSignal(tx transaction.Transaction, o obligation.Obligation) float64 {
	amount := tx.AbsAmountCents()
	switch amount {
	case o.RemainingBalanceCents():
		return amountFullCredit
	case o.TotalAmountCents:
		return amountPartialCredit
	}
	return 0
}

// referenceSignal looks for the lease id, the unit or a tenant name word inside the bank memo
func referenceSignal(reference string, o obligation.Obligation) float64 {
	ref := foldText(reference)
	if strings.TrimSpace(ref) == "" {
		return 0
	}

	hints := []string{o.LeaseID, o.UnitIdentifier}
	hints = append(hints, nameTokens(o.TenantDisplayName)...)
	for _, h := range hints {
		h = foldText(strings.TrimSpace(h))
		if len([]rune(h)) >= minReferenceRunes && strings.Contains(ref, h) {
			return 1
		}
	}
	return 0
}

// temporalSignal is full inside the billing month and its grace window, then decays linearly
func (s scorer) temporalSignal(date, month time.Time) float64 {
	day := transaction.CalendarDay(date)
	start := month
	end := month.AddDate(0, 1, s.cfg.GraceDays)

	var daysOff float64
	switch {
	case day.Before(start):
		daysOff = start.Sub(day).Hours() / 24
	case day.Before(end):
		return 1
	default:
		daysOff = day.Sub(end).Hours()/24 + 1
	}

	decayDays := float64(s.cfg.DecayMonths * daysPerMonth)
	if decayDays <= 0 {
		return 0
	}
	return math.Max(0, 1-daysOff/decayDays)
}

func roundScore(v float64) float64 {
	return math.Round(v*scorePrecision) / scorePrecision
}

// basisPoints turns a rounded score into an exact integer for comparisons
func basisPoints(v float64) int64 {
	return int64(math.Round(v * scorePrecision))
}
