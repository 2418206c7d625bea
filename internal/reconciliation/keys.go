package reconciliation

import (
	"strconv"
	"strings"
	"time"

	"github.com/rent-reconciliation-ledger/internal/domain/transaction"
)

const (
	keySeparator = "|"
	keyDayLayout = "2006-01-02"
)

// BuildKey derives the identity of a bank line from its calendar day, signed amount and raw reference
func BuildKey(date time.Time, amountCents int64, reference string) string {
	return strings.Join([]string{
		date.Format(keyDayLayout),
		strconv.FormatInt(amountCents, 10),
		reference,
	}, keySeparator)
}

// TransactionKey is BuildKey applied to an imported transaction
func TransactionKey(tx transaction.Transaction) string {
	return BuildKey(tx.Date, tx.AmountCents, tx.Reference)
}
