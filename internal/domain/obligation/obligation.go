package obligation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rent-reconciliation-ledger/internal/domain/shared"
)

// BillingMonthLayout is the layout of Obligation.BillingMonth
const BillingMonthLayout = "2006-01"

var (
	ErrNegativeTotal       = errors.New("rent call total amount cannot be negative")
	ErrInvalidBillingMonth = errors.New("billing month must be formatted as YYYY-MM")
	ErrMissingID           = errors.New("rent call id cannot be empty")
)

// Obligation is one tenant's rent call for one lease and one month
type Obligation struct {
	ID                string                  `json:"id" bson:"_id"`
	EntityID          string                  `json:"entity_id" bson:"entity_id"`
	LeaseID           string                  `json:"lease_id" bson:"lease_id"`
	TenantDisplayName string                  `json:"tenant_display_name" bson:"tenant_display_name"`
	UnitIdentifier    string                  `json:"unit_identifier" bson:"unit_identifier"`
	BillingMonth      string                  `json:"billing_month" bson:"billing_month"`
	TotalAmountCents  int64                   `json:"total_amount_cents" bson:"total_amount_cents"`
	PaidAmountCents   int64                   `json:"paid_amount_cents" bson:"paid_amount_cents"`
	SettlementStatus  shared.SettlementStatus `json:"settlement_status" bson:"settlement_status"`
	Revision          int64                   `json:"revision" bson:"revision"`
	UpdatedAt         time.Time               `json:"updated_at" bson:"updated_at"`
}

// RemainingBalanceCents goes below zero on overpayment
func (o *Obligation) RemainingBalanceCents() int64 {
	return o.TotalAmountCents - o.PaidAmountCents
}

// Validate faults on data that can only come from an upstream integrity bug
func (o *Obligation) Validate() error {
	if o.ID == "" {
		return ErrMissingID
	}
	if o.TotalAmountCents < 0 {
		return fmt.Errorf("rent call %s: %w", o.ID, ErrNegativeTotal)
	}
	if _, err := o.Month(); err != nil {
		return fmt.Errorf("rent call %s: %w", o.ID, err)
	}
	return nil
}

// Month parses the billing month into the first instant of that month (UTC)
func (o *Obligation) Month() (time.Time, error) {
	return ParseBillingMonth(o.BillingMonth)
}

// ParseBillingMonth parses a YYYY-MM billing month
func ParseBillingMonth(month string) (time.Time, error) {
	m, err := time.Parse(BillingMonthLayout, month)
	if err != nil {
		return time.Time{}, ErrInvalidBillingMonth
	}
	return m, nil
}

// StatusFor derives the settlement status from paid vs total amounts.
// A fully settled (or overpaid) rent call is paid even when its total is zero.
func StatusFor(paidCents, totalCents int64) shared.SettlementStatus {
	switch {
	case totalCents-paidCents <= 0:
		return shared.SettlementStatusPaid
	case paidCents == 0:
		return shared.SettlementStatusUnpaid
	default:
		return shared.SettlementStatusPartial
	}
}

// TenantName carries the naming fields of a tenant, individual or company
type TenantName struct {
	IsCompany   bool   `json:"is_company"`
	CompanyName string `json:"company_name,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
}

// DisplayName renders the name shown on rent calls: the company name for companies,
// "First Last" for individuals.
func (n TenantName) DisplayName() string {
	if n.IsCompany && strings.TrimSpace(n.CompanyName) != "" {
		return strings.TrimSpace(n.CompanyName)
	}
	return strings.TrimSpace(strings.TrimSpace(n.FirstName) + " " + strings.TrimSpace(n.LastName))
}
