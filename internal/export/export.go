// Package export serializes transaction sets for download. CSV follows the
// Date/Description/Category/Wallet/Type/Amount column order; JSON is a raw
// indented dump of the transactions themselves.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"tally/internal/core"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Row is one exported CSV record. Category and wallet references are
// resolved to display names; unknown references fall back to "Unknown".
type Row struct {
	Date        string          `csv:"Date"`
	Description string          `csv:"Description"`
	Category    string          `csv:"Category"`
	Wallet      string          `csv:"Wallet"`
	Type        string          `csv:"Type"`
	Amount      decimal.Decimal `csv:"Amount"`
}

// WriteCSV renders the transactions as CSV in date order as given.
func WriteCSV(w io.Writer, txs []core.Transaction, cats []core.Category, wallets []core.Wallet) error {
	catNames := make(map[string]string, len(cats))
	for _, c := range cats {
		catNames[c.ID] = c.Name
	}
	walletNames := make(map[string]string, len(wallets))
	for _, wl := range wallets {
		walletNames[wl.ID] = wl.Name
	}

	rows := make([]Row, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, Row{
			Date:        t.Date,
			Description: t.Description,
			Category:    lookup(catNames, t.CategoryID),
			Wallet:      lookup(walletNames, t.WalletID),
			Type:        titleKind(t.Kind),
			Amount:      t.Amount,
		})
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("marshal csv: %w", err)
	}
	return nil
}

// WriteJSON renders the transactions as indented JSON.
func WriteJSON(w io.Writer, txs []core.Transaction) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(txs); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// Filename builds the download name for an export, e.g.
// "transactions_2024-03-10.csv".
func Filename(format string, now time.Time) string {
	return fmt.Sprintf("transactions_%s.%s", now.Format("2006-01-02"), format)
}

// ContentType returns the MIME type for a supported format.
func ContentType(format string) string {
	if format == FormatJSON {
		return "application/json"
	}
	return "text/csv"
}

func lookup(names map[string]string, id string) string {
	if name, ok := names[id]; ok {
		return name
	}
	return "Unknown"
}

func titleKind(k core.Kind) string {
	s := string(k)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
