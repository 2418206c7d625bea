package reconciliation

import (
	"github.com/rent-reconciliation-ledger/internal/domain/transaction"
)

// KeySet is the running set of transaction keys already recorded. It is threaded by reference
// through a multi-account import pass; callers add accepted keys before the next batch.
type KeySet map[string]struct{}

// NewKeySet builds a set from previously recorded keys
func NewKeySet(keys ...string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

func (s KeySet) Add(key string) {
	s[key] = struct{}{}
}

func (s KeySet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// AddTransactions records the keys of accepted transactions
func (s KeySet) AddTransactions(txs []transaction.Transaction) {
	for _, tx := range txs {
		s.Add(TransactionKey(tx))
	}
}

// FilterNew splits a batch into transactions never seen before and duplicates of recorded ones.
// It does not modify existing, so running it twice against the same set yields the same split.
func FilterNew(txs []transaction.Transaction, existing KeySet) (fresh, duplicates []transaction.Transaction) {
	fresh = make([]transaction.Transaction, 0, len(txs))
	for _, tx := range txs {
		if existing.Has(TransactionKey(tx)) {
			duplicates = append(duplicates, tx)
			continue
		}
		fresh = append(fresh, tx)
	}
	return fresh, duplicates
}
