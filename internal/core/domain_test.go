package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTransaction() Transaction {
	return Transaction{
		ID:          "tx-1",
		WalletID:    "wallet-main",
		CategoryID:  "food",
		Kind:        Expense,
		Amount:      decimal.NewFromFloat(12.50),
		Description: "Lunch",
		Date:        "2024-03-15",
	}
}

func TestTransactionValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		require.NoError(t, validTransaction().Validate())
	})

	tests := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr error
	}{
		{"unknown kind", func(tx *Transaction) { tx.Kind = "transfer" }, ErrInvalidKind},
		{"negative amount", func(tx *Transaction) { tx.Amount = decimal.NewFromInt(-1) }, ErrInvalidAmount},
		{"bad date", func(tx *Transaction) { tx.Date = "15/03/2024" }, ErrInvalidDate},
		{"empty date", func(tx *Transaction) { tx.Date = "" }, ErrInvalidDate},
		{"blank description", func(tx *Transaction) { tx.Description = "   " }, ErrEmptyDescription},
		{"missing category", func(tx *Transaction) { tx.CategoryID = "" }, ErrEmptyCategory},
		{"missing wallet", func(tx *Transaction) { tx.WalletID = " " }, ErrEmptyWallet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := validTransaction()
			tt.mutate(&tx)
			assert.ErrorIs(t, tx.Validate(), tt.wantErr)
		})
	}

	t.Run("zero amount is allowed", func(t *testing.T) {
		tx := validTransaction()
		tx.Amount = decimal.Zero
		assert.NoError(t, tx.Validate())
	})

	t.Run("overlong description", func(t *testing.T) {
		tx := validTransaction()
		for len(tx.Description) <= 200 {
			tx.Description += " and more"
		}
		assert.Error(t, tx.Validate())
	})
}

func TestCategoryValidate(t *testing.T) {
	assert.NoError(t, Category{ID: "food", Name: "Food", Kind: Expense}.Validate())
	assert.ErrorIs(t, Category{ID: "food", Kind: Expense}.Validate(), ErrEmptyName)
	assert.ErrorIs(t, Category{ID: "x", Name: "X", Kind: "other"}.Validate(), ErrInvalidKind)
}

func TestWalletValidate(t *testing.T) {
	assert.NoError(t, Wallet{Name: "Main", AccountKind: WalletBank}.Validate())
	assert.NoError(t, Wallet{Name: "Pocket", AccountKind: WalletCash}.Validate())
	assert.ErrorIs(t, Wallet{AccountKind: WalletCash}.Validate(), ErrEmptyName)
	assert.ErrorIs(t, Wallet{Name: "Bad", AccountKind: "crypto"}.Validate(), ErrInvalidWalletKind)
}

func TestValidDate(t *testing.T) {
	assert.True(t, ValidDate("2024-01-31"))
	assert.False(t, ValidDate("2024-02-30"))
	assert.False(t, ValidDate("2024-1-5"))
	assert.False(t, ValidDate("yesterday"))
}
