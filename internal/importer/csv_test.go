package importer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatement(t *testing.T) {
	t.Run("SemicolonFrenchFormat", func(t *testing.T) {
		input := "Date;Libelle;Reference;Montant\n" +
			"15/02/2026;DUPONT JEAN;LOYER-FEV;850,00\n" +
			"16/02/2026;EDF;PRLV;-1 200,50\n"

		stmt, err := ParseStatement(strings.NewReader(input), "acc-1")

		require.NoError(t, err)
		assert.Empty(t, stmt.Rejected)
		require.Len(t, stmt.Transactions, 2)

		tx := stmt.Transactions[0]
		assert.NotEmpty(t, tx.ID)
		assert.Equal(t, "acc-1", tx.AccountID)
		assert.Equal(t, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC), tx.Date)
		assert.Equal(t, int64(85000), tx.AmountCents)
		assert.Equal(t, "DUPONT JEAN", tx.PayerName)
		assert.Equal(t, "LOYER-FEV", tx.Reference)
		assert.JSONEq(t, `{"Date":"15/02/2026","Libelle":"DUPONT JEAN","Reference":"LOYER-FEV","Montant":"850,00"}`, string(tx.RawPayload))

		assert.Equal(t, int64(-120050), stmt.Transactions[1].AmountCents)
	})

	t.Run("CommaISOFormat", func(t *testing.T) {
		input := "date,amount,payer_name,reference\n2026-02-15,850.00,DUPONT JEAN,LOYER-FEV\n"

		stmt, err := ParseStatement(strings.NewReader(input), "acc-1")

		require.NoError(t, err)
		require.Len(t, stmt.Transactions, 1)
		assert.Equal(t, int64(85000), stmt.Transactions[0].AmountCents)
	})

	t.Run("InvalidLinesRejected", func(t *testing.T) {
		input := "date,amount,payer_name,reference\n" +
			"not-a-date,10.00,A,B\n" +
			"2026-02-15,abc,A,B\n" +
			"2026-02-15,0,A,B\n" +
			",,,\n" +
			"2026-02-15,10.005,A,B\n" +
			"2026-02-16,10.00,A,B\n"

		stmt, err := ParseStatement(strings.NewReader(input), "acc-1")

		require.NoError(t, err)
		require.Len(t, stmt.Transactions, 1)
		require.Len(t, stmt.Rejected, 4)
		assert.Equal(t, 2, stmt.Rejected[0].Line)
		assert.Equal(t, 3, stmt.Rejected[1].Line)
		assert.Equal(t, 4, stmt.Rejected[2].Line)
		assert.Equal(t, 6, stmt.Rejected[3].Line)
	})

	t.Run("MissingAmountColumn", func(t *testing.T) {
		_, err := ParseStatement(strings.NewReader("date,payer\n2026-02-15,A\n"), "acc-1")
		assert.ErrorIs(t, err, ErrMissingColumn)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := ParseStatement(strings.NewReader(""), "acc-1")
		assert.ErrorIs(t, err, ErrEmptyStatement)
	})
}

func TestParseAmountCents(t *testing.T) {
	testCases := []struct {
		input    string
		expected int64
	}{
		{"850", 85000},
		{"850,00", 85000},
		{"850.5", 85050},
		{"-12.34", -1234},
		{"1.200,50", 120050},
		{"1 200,50 €", 120050},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			cents, err := ParseAmountCents(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, cents)
		})
	}

	_, err := ParseAmountCents("1.001")
	assert.Error(t, err)
	_, err = ParseAmountCents("")
	assert.Error(t, err)
}
