package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/insight"
	"tally/internal/storage"
)

type fakeStore struct {
	txs     []core.Transaction
	cats    []core.Category
	budgets map[string]decimal.Decimal

	saved   map[string][]byte
	savedAt map[string]time.Time
	failOn  string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		saved:   make(map[string][]byte),
		savedAt: make(map[string]time.Time),
	}
}

func (f *fakeStore) ListTransactions(ctx context.Context, filter storage.TransactionFilter) ([]core.Transaction, error) {
	return f.txs, nil
}

func (f *fakeStore) ListCategories(ctx context.Context) ([]core.Category, error) {
	return f.cats, nil
}

func (f *fakeStore) ListBudgetLimits(ctx context.Context) (map[string]decimal.Decimal, error) {
	return f.budgets, nil
}

func (f *fakeStore) SaveSnapshot(ctx context.Context, kind string, payload []byte, generatedAt time.Time) error {
	if kind == f.failOn {
		return errors.New("disk full")
	}
	f.saved[kind] = payload
	f.savedAt[kind] = generatedAt
	return nil
}

func expenseTx(id, category, date string, amount float64) core.Transaction {
	return core.Transaction{
		ID: id, WalletID: "wallet-main", CategoryID: category,
		Kind: core.Expense, Amount: decimal.NewFromFloat(amount),
		Description: "test", Date: date,
	}
}

func TestRefreshSavesBothSnapshots(t *testing.T) {
	store := newFakeStore()
	store.txs = []core.Transaction{
		expenseTx("tx-1", "food", "2024-02-10", 100),
		expenseTx("tx-2", "food", "2024-03-10", 150),
	}
	store.cats = []core.Category{{ID: "food", Name: "Food", Kind: core.Expense}}

	refDate := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	w := NewSnapshotWorker(store)
	w.now = func() time.Time { return refDate }

	require.NoError(t, w.Refresh(context.Background()))

	require.Contains(t, store.saved, SnapshotSummary)
	require.Contains(t, store.saved, SnapshotInsights)
	assert.Equal(t, refDate, store.savedAt[SnapshotSummary])

	var summary SummaryPayload
	require.NoError(t, json.Unmarshal(store.saved[SnapshotSummary], &summary))
	assert.True(t, summary.Current.TotalExpense.Equal(decimal.NewFromInt(250)))
	require.Len(t, summary.Monthly, 2)
	assert.Equal(t, "Feb 2024", summary.Monthly[0].Month)
	assert.Equal(t, "Mar 2024", summary.Monthly[1].Month)

	var insights InsightsPayload
	require.NoError(t, json.Unmarshal(store.saved[SnapshotInsights], &insights))
	require.NotEmpty(t, insights.Insights)
	// 100 -> 150 is a 50% spike; the high severity alert must sort first.
	assert.Equal(t, insight.SeverityHigh, insights.Insights[0].Severity)
	assert.Equal(t, "You spent 50% more on Food this month", insights.Insights[0].Message)
}

func TestRefreshEmptyDatabase(t *testing.T) {
	store := newFakeStore()
	w := NewSnapshotWorker(store)

	require.NoError(t, w.Refresh(context.Background()))

	var insights InsightsPayload
	require.NoError(t, json.Unmarshal(store.saved[SnapshotInsights], &insights))
	require.Len(t, insights.Insights, 1)
	assert.Equal(t, "Add more transactions to get personalized insights", insights.Insights[0].Message)
}

func TestRefreshPropagatesSaveError(t *testing.T) {
	store := newFakeStore()
	store.failOn = SnapshotSummary
	w := NewSnapshotWorker(store)

	err := w.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store summary snapshot")
}

func TestHandleChangeMessageRefreshes(t *testing.T) {
	store := newFakeStore()
	w := NewSnapshotWorker(store)

	msg := amqp.NewTransactionChangedMessage("tx-1", amqp.OpCreate)
	require.NoError(t, w.HandleChangeMessage(context.Background(), msg))

	assert.Contains(t, store.saved, SnapshotSummary)
	assert.Contains(t, store.saved, SnapshotInsights)
}
