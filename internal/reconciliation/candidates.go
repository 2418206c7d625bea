package reconciliation

import (
	"github.com/rent-reconciliation-ledger/internal/domain/obligation"
	"github.com/rent-reconciliation-ledger/internal/domain/shared"
)

// AvailableObligations returns the rent calls that may be offered to the matcher, in input order
func AvailableObligations(all []obligation.Obligation, excluded map[string]struct{}) []obligation.Obligation {
	pool := make([]obligation.Obligation, 0, len(all))
	for _, o := range all {
		if _, skip := excluded[o.ID]; skip {
			continue
		}
		pool = append(pool, o)
	}
	return pool
}

// ExcludeSettled returns excluded extended with every rent call already paid.
// The input set is left untouched.
func ExcludeSettled(all []obligation.Obligation, excluded map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(excluded))
	for id := range excluded {
		out[id] = struct{}{}
	}
	for _, o := range all {
		if o.SettlementStatus == shared.SettlementStatusPaid {
			out[o.ID] = struct{}{}
		}
	}
	return out
}
