package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

const (
	WalletCash    WalletKind = "cash"
	WalletBank    WalletKind = "bank"
	WalletEWallet WalletKind = "e-wallet"
)

type (
	// Kind says whether a transaction adds to or subtracts from the balance.
	Kind string

	WalletKind string

	// Transaction is a single income or expense entry. Amount is always
	// non-negative; Kind determines the sign of its contribution.
	Transaction struct {
		ID          string          `json:"id"`
		WalletID    string          `json:"walletId"`
		CategoryID  string          `json:"categoryId"`
		Kind        Kind            `json:"type"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
		Date        string          `json:"date"` // ISO YYYY-MM-DD
		CreatedAt   time.Time       `json:"createdAt"`
	}

	Category struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Kind Kind   `json:"type"`
	}

	Wallet struct {
		ID          string     `json:"id"`
		Name        string     `json:"name"`
		AccountKind WalletKind `json:"type"`
		Currency    string     `json:"currency"`
	}

	// Summary aggregates a transaction set. ByCategory holds the signed net
	// per category: income contributes positively, expense negatively.
	Summary struct {
		TotalIncome  decimal.Decimal            `json:"totalIncome"`
		TotalExpense decimal.Decimal            `json:"totalExpense"`
		Balance      decimal.Decimal            `json:"balance"`
		ByCategory   map[string]decimal.Decimal `json:"byCategory"`
	}

	// MonthlySummary is one calendar-month bucket of a time series.
	MonthlySummary struct {
		Month   string          `json:"month"`
		Income  decimal.Decimal `json:"income"`
		Expense decimal.Decimal `json:"expense"`
		Balance decimal.Decimal `json:"balance"`
	}
)

var (
	ErrInvalidKind       = errors.New("invalid transaction kind")
	ErrInvalidAmount     = errors.New("amount must not be negative")
	ErrInvalidDate       = errors.New("date must be YYYY-MM-DD")
	ErrEmptyDescription  = errors.New("empty description")
	ErrEmptyCategory     = errors.New("empty category reference")
	ErrEmptyWallet       = errors.New("empty wallet reference")
	ErrEmptyName         = errors.New("empty name")
	ErrInvalidWalletKind = errors.New("invalid wallet kind")
)

func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

func (t Transaction) Validate() error {
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if t.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if !ValidDate(t.Date) {
		return ErrInvalidDate
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if strings.TrimSpace(t.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(t.WalletID) == "" {
		return ErrEmptyWallet
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Kind.Valid() {
		return ErrInvalidKind
	}
	return nil
}

func (w Wallet) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return ErrEmptyName
	}
	switch w.AccountKind {
	case WalletCash, WalletBank, WalletEWallet:
	default:
		return ErrInvalidWalletKind
	}
	return nil
}

// ValidDate reports whether s is a well-formed ISO calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
