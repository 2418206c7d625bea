package shared

// PaymentSource defines where a recorded payment originated
type PaymentSource string

const (
	PaymentSourceBankStatement PaymentSource = "bank_statement"
	PaymentSourceOpenBanking   PaymentSource = "open_banking"
	PaymentSourceManual        PaymentSource = "manual"
)

// IsValid reports whether the source is one of the known payment sources
func (s PaymentSource) IsValid() bool {
	switch s {
	case PaymentSourceBankStatement, PaymentSourceOpenBanking, PaymentSourceManual:
		return true
	}
	return false
}

// SettlementStatus summarizes the payment progress of a rent call
type SettlementStatus string

const (
	SettlementStatusUnpaid  SettlementStatus = "unpaid"
	SettlementStatusPartial SettlementStatus = "partial"
	SettlementStatusPaid    SettlementStatus = "paid"
)

// rank orders statuses along the unpaid -> partial -> paid progression
func (s SettlementStatus) rank() int {
	switch s {
	case SettlementStatusPartial:
		return 1
	case SettlementStatusPaid:
		return 2
	}
	return 0
}

// Precedes reports whether s comes strictly before other in the settlement progression
func (s SettlementStatus) Precedes(other SettlementStatus) bool {
	return s.rank() < other.rank()
}

// Confidence is the human-facing tier of a match score
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
