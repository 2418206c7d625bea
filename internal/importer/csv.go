package importer

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rent-reconciliation-ledger/internal/domain/transaction"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyStatement = errors.New("statement has no header line")
	ErrMissingColumn  = errors.New("statement is missing a required column")
)

var dateLayouts = []string{"2006-01-02", "02/01/2006", "02/01/06", "2006/01/02"}

// Column aliases as exported by the banks we ingest from; first match wins
var columnAliases = map[string][]string{
	"date":      {"date", "booking_date", "date_operation", "date operation", "value_date"},
	"amount":    {"amount", "montant", "amount_eur"},
	"payer":     {"payer_name", "payer", "counterparty", "libelle", "label"},
	"reference": {"reference", "ref", "memo", "description"},
}

// RowError describes a statement line rejected at ingestion
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Statement is the result of parsing one bank statement file
type Statement struct {
	Transactions []transaction.Transaction
	Rejected     []RowError
}

// ParseStatement reads a CSV bank statement for one account. The delimiter (comma or semicolon)
// is detected from the header. Invalid lines are reported in Rejected and never returned as
// transactions.
func ParseStatement(r io.Reader, accountID string) (*Statement, error) {
	br := bufio.NewReader(r)
	header, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read statement header: %w", err)
	}
	if strings.TrimSpace(header) == "" {
		return nil, ErrEmptyStatement
	}

	reader := csv.NewReader(io.MultiReader(strings.NewReader(header), br))
	reader.Comma = detectDelimiter(header)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	names, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to parse statement header: %w", err)
	}
	columns, err := resolveColumns(names)
	if err != nil {
		return nil, err
	}

	stmt := &Statement{Transactions: []transaction.Transaction{}}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			stmt.Rejected = append(stmt.Rejected, RowError{Line: line, Reason: err.Error()})
			continue
		}
		if isBlank(record) {
			continue
		}

		tx, rowErr := parseRow(record, names, columns, accountID)
		if rowErr != nil {
			stmt.Rejected = append(stmt.Rejected, RowError{Line: line, Reason: rowErr.Error()})
			continue
		}
		stmt.Transactions = append(stmt.Transactions, *tx)
	}
	return stmt, nil
}

func parseRow(record, names []string, columns map[string]int, accountID string) (*transaction.Transaction, error) {
	field := func(column string) string {
		idx, ok := columns[column]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	date, err := parseDate(field("date"))
	if err != nil {
		return nil, err
	}
	amount, err := ParseAmountCents(field("amount"))
	if err != nil {
		return nil, err
	}

	raw := make(map[string]string, len(names))
	for i, name := range names {
		if i < len(record) {
			raw[name] = record[i]
		}
	}
	payload, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode raw line: %w", err)
	}

	return transaction.New(accountID, date, amount, field("payer"), field("reference"), payload)
}

// ParseAmountCents converts "850,00", "-1 200.50" or "850" to signed cents.
// Sub-cent precision is rejected rather than rounded.
func ParseAmountCents(s string) (int64, error) {
	cleaned := strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", "€", "", "EUR", "").Replace(s)
	if strings.Contains(cleaned, ",") {
		// A comma is the decimal separator once a dot is used for thousands (1.200,50) or alone (850,00)
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}
	if cleaned == "" {
		return 0, errors.New("amount is empty")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	cents := d.Shift(2)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("amount %q has more than two decimals", s)
	}
	return cents.IntPart(), nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func resolveColumns(names []string) (map[string]int, error) {
	index := make(map[string]int, len(names))
	for i, n := range names {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(n, "\ufeff")))
		if _, seen := index[key]; !seen {
			index[key] = i
		}
	}

	columns := make(map[string]int, len(columnAliases))
	for column, aliases := range columnAliases {
		for _, alias := range aliases {
			if idx, ok := index[alias]; ok {
				columns[column] = idx
				break
			}
		}
	}
	for _, required := range []string{"date", "amount"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}
	return columns, nil
}

func detectDelimiter(header string) rune {
	if strings.Count(header, ";") > strings.Count(header, ",") {
		return ';'
	}
	return ','
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
