package handler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rent-reconciliation-ledger/internal/domain/ledger"
	"github.com/rent-reconciliation-ledger/internal/domain/obligation"
	"github.com/rent-reconciliation-ledger/internal/domain/transaction"
)

const dateLayout = "2006-01-02"

// IssueRentCallRequest opens the rent call of one lease for one billing month
type IssueRentCallRequest struct {
	RentCallID       string                `json:"rent_call_id,omitempty"`
	EntityID         string                `json:"entity_id" binding:"required"`
	LeaseID          string                `json:"lease_id" binding:"required"`
	Tenant           obligation.TenantName `json:"tenant"`
	UnitIdentifier   string                `json:"unit_identifier"`
	BillingMonth     string                `json:"billing_month" binding:"required"`
	TotalAmountCents int64                 `json:"total_amount_cents" binding:"min=0"`
}

// RecordPaymentRequest records a payment against the rent call named in the path
type RecordPaymentRequest struct {
	AmountCents         int64  `json:"amount_cents" binding:"required"`
	SourceTransactionID string `json:"source_transaction_id,omitempty"`
	PayerName           string `json:"payer_name" binding:"required"`
	PaymentDate         string `json:"payment_date,omitempty"` // YYYY-MM-DD, today when omitted
	Source              string `json:"source" binding:"required,oneof=bank_statement open_banking manual"`
}

// TransactionRequest is one bank statement line
type TransactionRequest struct {
	ID          string          `json:"id,omitempty"`
	AccountID   string          `json:"account_id,omitempty"`
	Date        string          `json:"date" binding:"required"`
	AmountCents int64           `json:"amount_cents" binding:"required"`
	PayerName   string          `json:"payer_name"`
	Reference   string          `json:"reference"`
	RawPayload  json.RawMessage `json:"raw_payload,omitempty"`
}

type AccountBatchRequest struct {
	AccountID    string               `json:"account_id" binding:"required"`
	Transactions []TransactionRequest `json:"transactions" binding:"dive"`
}

type ImportRequest struct {
	Batches []AccountBatchRequest `json:"batches" binding:"required,min=1,dive"`
}

type ReconcileRequest struct {
	EntityID            string               `json:"entity_id" binding:"required"`
	BillingMonth        string               `json:"billing_month" binding:"required"`
	TransactionIDs      []string             `json:"transaction_ids"`
	Transactions        []TransactionRequest `json:"transactions" binding:"dive"`
	ExcludedRentCallIDs []string             `json:"excluded_rent_call_ids"`
	AutoRecord          bool                 `json:"auto_record"`
}

// ListRentCallsParams selects one entity's rent calls for one month
type ListRentCallsParams struct {
	EntityID     string `form:"entity_id" binding:"required"`
	BillingMonth string `form:"billing_month" binding:"required"`
}

// RentCallResponse represents a rent call in API responses
type RentCallResponse struct {
	ID                    string            `json:"id"`
	EntityID              string            `json:"entity_id"`
	LeaseID               string            `json:"lease_id"`
	TenantDisplayName     string            `json:"tenant_display_name"`
	UnitIdentifier        string            `json:"unit_identifier"`
	BillingMonth          string            `json:"billing_month"`
	TotalAmountCents      int64             `json:"total_amount_cents"`
	PaidAmountCents       int64             `json:"paid_amount_cents"`
	RemainingBalanceCents int64             `json:"remaining_balance_cents"`
	SettlementStatus      string            `json:"settlement_status"`
	Revision              int64             `json:"revision"`
	Payments              []PaymentResponse `json:"payments,omitempty"`
}

type PaymentResponse struct {
	SourceTransactionID string `json:"source_transaction_id,omitempty"`
	AmountCents         int64  `json:"amount_cents"`
	PayerName           string `json:"payer_name"`
	PaymentDate         string `json:"payment_date"`
	Source              string `json:"source"`
}

// toTransaction converts a statement line, generating an id when the caller has none
func (r TransactionRequest) toTransaction(accountID string) (transaction.Transaction, error) {
	date, err := time.Parse(dateLayout, r.Date)
	if err != nil {
		return transaction.Transaction{}, fmt.Errorf("invalid transaction date %q, expected YYYY-MM-DD", r.Date)
	}
	if r.AccountID != "" {
		accountID = r.AccountID
	}

	tx, err := transaction.New(accountID, date, r.AmountCents, r.PayerName, r.Reference, r.RawPayload)
	if err != nil {
		return transaction.Transaction{}, err
	}
	if r.ID != "" {
		tx.ID = r.ID
	}
	return *tx, nil
}

func mapStateToResponse(s ledger.State) RentCallResponse {
	resp := RentCallResponse{
		ID:                    s.RentCallID,
		EntityID:              s.EntityID,
		LeaseID:               s.LeaseID,
		TenantDisplayName:     s.TenantDisplayName,
		UnitIdentifier:        s.UnitIdentifier,
		BillingMonth:          s.BillingMonth,
		TotalAmountCents:      s.TotalAmountCents,
		PaidAmountCents:       s.PaidAmountCents,
		RemainingBalanceCents: s.RemainingBalanceCents(),
		SettlementStatus:      string(s.Status),
		Revision:              s.Revision,
	}
	for _, p := range s.Payments {
		resp.Payments = append(resp.Payments, PaymentResponse{
			SourceTransactionID: p.SourceTransactionID,
			AmountCents:         p.AmountCents,
			PayerName:           p.PayerName,
			PaymentDate:         p.PaymentDate.Format(dateLayout),
			Source:              string(p.Source),
		})
	}
	return resp
}

func mapObligationToResponse(o obligation.Obligation) RentCallResponse {
	return RentCallResponse{
		ID:                    o.ID,
		EntityID:              o.EntityID,
		LeaseID:               o.LeaseID,
		TenantDisplayName:     o.TenantDisplayName,
		UnitIdentifier:        o.UnitIdentifier,
		BillingMonth:          o.BillingMonth,
		TotalAmountCents:      o.TotalAmountCents,
		PaidAmountCents:       o.PaidAmountCents,
		RemainingBalanceCents: o.RemainingBalanceCents(),
		SettlementStatus:      string(o.SettlementStatus),
		Revision:              o.Revision,
	}
}
