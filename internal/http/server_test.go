package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/internal/core"
	"tally/internal/insight"
	"tally/internal/storage"
	"tally/internal/worker"
)

type fakeStore struct {
	txs     map[string]core.Transaction
	cats    []core.Category
	wallets []core.Wallet
	budgets map[string]decimal.Decimal

	snapshotBody []byte
	snapshotAt   time.Time

	listCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		txs:     make(map[string]core.Transaction),
		budgets: make(map[string]decimal.Decimal),
		cats: []core.Category{
			{ID: "food", Name: "Food & Dining", Kind: core.Expense},
			{ID: "income-salary", Name: "Salary", Kind: core.Income},
		},
		wallets: []core.Wallet{
			{ID: "wallet-main", Name: "Main Account", AccountKind: core.WalletBank, Currency: "EUR"},
		},
	}
}

func (f *fakeStore) ListTransactions(ctx context.Context, filter storage.TransactionFilter) ([]core.Transaction, error) {
	f.listCalls++
	out := make([]core.Transaction, 0, len(f.txs))
	for _, tx := range f.txs {
		if filter.StartDate != "" && tx.Date < filter.StartDate {
			continue
		}
		if filter.EndDate != "" && tx.Date > filter.EndDate {
			continue
		}
		if filter.CategoryID != "" && tx.CategoryID != filter.CategoryID {
			continue
		}
		out = append(out, tx)
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeStore) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	tx, ok := f.txs[id]
	if !ok {
		return core.Transaction{}, storage.ErrNotFound
	}
	return tx, nil
}

func (f *fakeStore) CreateTransaction(ctx context.Context, t *core.Transaction) error {
	if t.ID == "" {
		t.ID = "generated-id"
	}
	t.CreatedAt = time.Now().UTC()
	f.txs[t.ID] = *t
	return nil
}

func (f *fakeStore) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	existing, ok := f.txs[t.ID]
	if !ok {
		return storage.ErrNotFound
	}
	// Updates never touch the creation timestamp, as in the SQL layer.
	t.CreatedAt = existing.CreatedAt
	f.txs[t.ID] = t
	return nil
}

func (f *fakeStore) DeleteTransaction(ctx context.Context, id string) error {
	if _, ok := f.txs[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.txs, id)
	return nil
}

func (f *fakeStore) ListCategories(ctx context.Context) ([]core.Category, error) {
	return f.cats, nil
}

func (f *fakeStore) CreateCategory(ctx context.Context, c *core.Category) error {
	if c.ID == "" {
		c.ID = "generated-cat"
	}
	f.cats = append(f.cats, *c)
	return nil
}

func (f *fakeStore) DeleteCategory(ctx context.Context, id string) error {
	for i, c := range f.cats {
		if c.ID == id {
			f.cats = append(f.cats[:i], f.cats[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (f *fakeStore) ListWallets(ctx context.Context) ([]core.Wallet, error) {
	return f.wallets, nil
}

func (f *fakeStore) CreateWallet(ctx context.Context, w *core.Wallet) error {
	if w.ID == "" {
		w.ID = "generated-wallet"
	}
	f.wallets = append(f.wallets, *w)
	return nil
}

func (f *fakeStore) DeleteWallet(ctx context.Context, id string) error {
	for i, w := range f.wallets {
		if w.ID == id {
			f.wallets = append(f.wallets[:i], f.wallets[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (f *fakeStore) ListBudgetLimits(ctx context.Context) (map[string]decimal.Decimal, error) {
	return f.budgets, nil
}

func (f *fakeStore) SetBudgetLimit(ctx context.Context, categoryID string, limit decimal.Decimal) error {
	f.budgets[categoryID] = limit
	return nil
}

func (f *fakeStore) DeleteBudgetLimit(ctx context.Context, categoryID string) error {
	if _, ok := f.budgets[categoryID]; !ok {
		return storage.ErrNotFound
	}
	delete(f.budgets, categoryID)
	return nil
}

func (f *fakeStore) LatestSnapshot(ctx context.Context, kind string) ([]byte, time.Time, error) {
	if f.snapshotBody == nil {
		return nil, time.Time{}, storage.ErrNotFound
	}
	return f.snapshotBody, f.snapshotAt, nil
}

type fakePublisher struct {
	events []string
}

func (f *fakePublisher) PublishTransactionChanged(ctx context.Context, id, op string) error {
	f.events = append(f.events, op+":"+id)
	return nil
}

func newTestServer(t *testing.T, store Store, events EventPublisher) *Server {
	t.Helper()
	srv := NewServer(":0", store, events)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func seedTransaction(t *testing.T, store *fakeStore, id, category, date string, kind core.Kind, amount float64) {
	t.Helper()
	store.txs[id] = core.Transaction{
		ID: id, WalletID: "wallet-main", CategoryID: category,
		Kind: kind, Amount: decimal.NewFromFloat(amount),
		Description: "seeded", Date: date,
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, newFakeStore(), nil)

	rec := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = doJSON(t, srv, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", rec.Body.String())
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, newFakeStore(), nil)

	rec := doJSON(t, srv, http.MethodGet, "/healthz", nil)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestCreateTransaction(t *testing.T) {
	store := newFakeStore()
	events := &fakePublisher{}
	srv := newTestServer(t, store, events)

	rec := doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"walletId":    "wallet-main",
		"categoryId":  "food",
		"type":        "expense",
		"amount":      "12.50",
		"description": "Lunch",
		"date":        "2024-03-05",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created core.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Amount.Equal(decimal.NewFromFloat(12.50)))

	require.Len(t, events.events, 1)
	assert.Equal(t, "create:"+created.ID, events.events[0])
}

func TestCreateTransactionValidation(t *testing.T) {
	srv := newTestServer(t, newFakeStore(), nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"walletId":    "wallet-main",
		"categoryId":  "food",
		"type":        "teleport",
		"amount":      "10",
		"description": "Bad kind",
		"date":        "2024-03-05",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/transactions", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListTransactionsWithSummary(t *testing.T) {
	store := newFakeStore()
	seedTransaction(t, store, "tx-1", "income-salary", "2024-03-01", core.Income, 3000)
	seedTransaction(t, store, "tx-2", "food", "2024-03-05", core.Expense, 500)
	srv := newTestServer(t, store, nil)

	rec := doJSON(t, srv, http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp transactionListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Transactions, 2)
	assert.True(t, resp.Summary.Balance.Equal(decimal.NewFromInt(2500)))
}

func TestListTransactionsFilterValidation(t *testing.T) {
	srv := newTestServer(t, newFakeStore(), nil)

	rec := doJSON(t, srv, http.MethodGet, "/api/transactions?start_date=not-a-date", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/transactions?limit=-3", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTransactionNotFound(t *testing.T) {
	srv := newTestServer(t, newFakeStore(), nil)

	rec := doJSON(t, srv, http.MethodGet, "/api/transactions/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateAndDeleteTransaction(t *testing.T) {
	store := newFakeStore()
	seedTransaction(t, store, "tx-1", "food", "2024-03-05", core.Expense, 10)
	events := &fakePublisher{}
	srv := newTestServer(t, store, events)

	rec := doJSON(t, srv, http.MethodPut, "/api/transactions/tx-1", map[string]any{
		"walletId":    "wallet-main",
		"categoryId":  "food",
		"type":        "expense",
		"amount":      "20",
		"description": "Bigger lunch",
		"date":        "2024-03-05",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, store.txs["tx-1"].Amount.Equal(decimal.NewFromInt(20)))

	rec = doJSON(t, srv, http.MethodDelete, "/api/transactions/tx-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, store.txs)

	assert.Equal(t, []string{"update:tx-1", "delete:tx-1"}, events.events)
}

func TestUpdateTransactionEchoesStoredCreatedAt(t *testing.T) {
	store := newFakeStore()
	seedTransaction(t, store, "tx-1", "food", "2024-03-05", core.Expense, 10)
	createdAt := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	seeded := store.txs["tx-1"]
	seeded.CreatedAt = createdAt
	store.txs["tx-1"] = seeded
	srv := newTestServer(t, store, nil)

	rec := doJSON(t, srv, http.MethodPut, "/api/transactions/tx-1", map[string]any{
		"walletId":    "wallet-main",
		"categoryId":  "food",
		"type":        "expense",
		"amount":      "20",
		"description": "Bigger lunch",
		"date":        "2024-03-05",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated core.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.True(t, updated.CreatedAt.Equal(createdAt))
}

func TestCategoriesEndpoints(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(t, store, nil)

	rec := doJSON(t, srv, http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cats []core.Category
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cats))
	assert.Len(t, cats, 2)

	rec = doJSON(t, srv, http.MethodPost, "/api/categories", map[string]any{
		"name": "Travel",
		"type": "expense",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/categories", map[string]any{
		"name": "",
		"type": "expense",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/api/categories/food", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/api/categories/food", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBudgetEndpoints(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(t, store, nil)

	rec := doJSON(t, srv, http.MethodPut, "/api/budgets/food", map[string]any{"limit": "300"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, srv, http.MethodPut, "/api/budgets/food", map[string]any{"limit": "-5"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/budgets", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []budgetEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "food", entries[0].CategoryID)
	assert.True(t, entries[0].Limit.Equal(decimal.NewFromInt(300)))

	rec = doJSON(t, srv, http.MethodDelete, "/api/budgets/food", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSummaryEndpointCaches(t *testing.T) {
	store := newFakeStore()
	seedTransaction(t, store, "tx-1", "income-salary", "2024-01-01", core.Income, 100)
	seedTransaction(t, store, "tx-2", "food", "2024-03-01", core.Expense, 40)
	srv := newTestServer(t, store, nil)

	rec := doJSON(t, srv, http.MethodGet, "/api/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SummaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Current.Balance.Equal(decimal.NewFromInt(60)))
	// January through March, gap month included.
	assert.Len(t, resp.Monthly, 3)

	// Second identical request is served from cache.
	calls := store.listCalls
	rec = doJSON(t, srv, http.MethodGet, "/api/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, calls, store.listCalls)
}

func TestSummaryIgnoresLimitParameter(t *testing.T) {
	store := newFakeStore()
	seedTransaction(t, store, "tx-1", "food", "2024-03-01", core.Expense, 20)
	seedTransaction(t, store, "tx-2", "food", "2024-03-02", core.Expense, 10)
	srv := newTestServer(t, store, nil)

	rec := doJSON(t, srv, http.MethodGet, "/api/summary?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SummaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Current.TotalExpense.Equal(decimal.NewFromInt(30)))

	// The limited request must not leave a truncated entry behind for
	// the unlimited one.
	rec = doJSON(t, srv, http.MethodGet, "/api/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Current.TotalExpense.Equal(decimal.NewFromInt(30)))
}

func TestSummaryCacheInvalidatedByMutation(t *testing.T) {
	store := newFakeStore()
	seedTransaction(t, store, "tx-1", "income-salary", "2024-03-01", core.Income, 100)
	srv := newTestServer(t, store, nil)

	doJSON(t, srv, http.MethodGet, "/api/summary", nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"walletId":    "wallet-main",
		"categoryId":  "food",
		"type":        "expense",
		"amount":      "30",
		"description": "Lunch",
		"date":        "2024-03-02",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SummaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Current.Balance.Equal(decimal.NewFromInt(70)), "balance %s", resp.Current.Balance)
}

func TestInsightsServedFromFreshSnapshot(t *testing.T) {
	store := newFakeStore()
	payload, err := json.Marshal(worker.InsightsPayload{Insights: []insight.Insight{
		{Type: insight.TypeSuggestion, Message: "snapshot insight"},
	}})
	require.NoError(t, err)
	store.snapshotBody = payload
	store.snapshotAt = time.Now().Add(-time.Minute)
	srv := newTestServer(t, store, nil)

	rec := doJSON(t, srv, http.MethodGet, "/api/insights", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp insightsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Insights, 1)
	assert.Equal(t, "snapshot insight", resp.Insights[0].Message)
}

func TestInsightsComputedLiveWhenSnapshotStale(t *testing.T) {
	store := newFakeStore()
	payload, err := json.Marshal(worker.InsightsPayload{Insights: []insight.Insight{
		{Type: insight.TypeSuggestion, Message: "stale snapshot insight"},
	}})
	require.NoError(t, err)
	store.snapshotBody = payload
	store.snapshotAt = time.Now().Add(-time.Hour)
	srv := newTestServer(t, store, nil)

	rec := doJSON(t, srv, http.MethodGet, "/api/insights", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp insightsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Insights, 1)
	// Empty database computes the add-more-data suggestion live.
	assert.Equal(t, "Add more transactions to get personalized insights", resp.Insights[0].Message)
}

func TestExportCSV(t *testing.T) {
	store := newFakeStore()
	seedTransaction(t, store, "tx-1", "food", "2024-03-05", core.Expense, 12.5)
	srv := newTestServer(t, store, nil)

	rec := doJSON(t, srv, http.MethodGet, "/api/export?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment; filename=")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Date,Description,Category,Wallet,Type,Amount"))
	assert.Contains(t, rec.Body.String(), "Food & Dining")
}

func TestExportEmptyReturns404(t *testing.T) {
	srv := newTestServer(t, newFakeStore(), nil)

	rec := doJSON(t, srv, http.MethodGet, "/api/export", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "no transactions found", resp.Error)
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	srv := newTestServer(t, newFakeStore(), nil)

	rec := doJSON(t, srv, http.MethodGet, "/api/export?format=xml", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
