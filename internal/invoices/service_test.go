package invoices

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ternaklink/ternaklink/internal/platform/httpx"
)

type memInvoicesRepo struct {
	store     *memStore
	customers map[int64]bool
}

func newMemInvoicesRepo() *memInvoicesRepo {
	return &memInvoicesRepo{store: newMemStore(), customers: map[int64]bool{1: true}}
}

func (r *memInvoicesRepo) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return fn(ctx, r.store)
}

func (r *memInvoicesRepo) Get(ctx context.Context, id int64) (*SalesInvoice, error) {
	inv, err := r.store.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	inv.Lines, _ = r.store.ListLines(ctx, id)
	return inv, nil
}

func (r *memInvoicesRepo) List(_ context.Context, _ ListInvoicesRequest) ([]SalesInvoice, error) {
	var out []SalesInvoice
	for _, inv := range r.store.invoices {
		out = append(out, *inv)
	}
	return out, nil
}

func (r *memInvoicesRepo) CustomerExists(_ context.Context, id int64) (bool, error) {
	return r.customers[id], nil
}

func manualReq(gross, expense, paid float64) CreateManualInvoiceRequest {
	return CreateManualInvoiceRequest{
		CustomerID:    1,
		Date:          at(15, 10),
		GrossAmount:   gross,
		Expense:       expense,
		AmountPaid:    paid,
		PaymentMethod: "tunai",
	}
}

func TestCreateManualIsImmediatelyNumbered(t *testing.T) {
	repo := newMemInvoicesRepo()
	svc := NewService(repo, nil, wib)

	inv, err := svc.CreateManual(context.Background(), manualReq(250000, 0, 250000), 7)
	require.NoError(t, err)
	require.NotNil(t, inv.Number)
	require.Equal(t, "NOTA-20250615-0001", *inv.Number)
	require.Equal(t, TypeManual, inv.Type)
	require.Equal(t, StatusLunas, inv.Status)
	require.InDelta(t, 0, inv.OutstandingBalance, 0.001)
}

func TestCreateManualWithLines(t *testing.T) {
	repo := newMemInvoicesRepo()
	svc := NewService(repo, nil, wib)

	count := 10
	req := manualReq(0, 5000, 0)
	req.Lines = []ManualLineInput{
		{Label: "Karkas utuh", Weight: 12.5, UnitPrice: 38000},
		{Label: "Ayam hidup", Count: &count, UnitPrice: 30000},
	}

	inv, err := svc.CreateManual(context.Background(), req, 7)
	require.NoError(t, err)
	wantGross := 12.5*38000 + 10*30000
	require.InDelta(t, wantGross, inv.GrossAmount, 0.001)
	require.InDelta(t, wantGross-5000, inv.GrandTotal, 0.001)
	require.Equal(t, StatusHutang, inv.Status)
	require.Len(t, repo.store.lines[inv.ID], 2)
}

func TestCreateManualRejectsOverpaid(t *testing.T) {
	repo := newMemInvoicesRepo()
	svc := NewService(repo, nil, wib)

	_, err := svc.CreateManual(context.Background(), manualReq(100000, 0, 150000), 7)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateManualUnknownCustomer(t *testing.T) {
	repo := newMemInvoicesRepo()
	svc := NewService(repo, nil, wib)

	req := manualReq(100000, 0, 0)
	req.CustomerID = 9
	_, err := svc.CreateManual(context.Background(), req, 7)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestFinalizeAssignsSequentialNumbers(t *testing.T) {
	repo := newMemInvoicesRepo()
	svc := NewService(repo, nil, wib)
	ctx := context.Background()

	first, err := MergeShipment(ctx, repo.store, wib, MergeInput{
		CustomerID: 1, Date: at(15, 9), Type: TypeLive, Lines: liveLines(1, 100000),
	})
	require.NoError(t, err)
	second, err := MergeShipment(ctx, repo.store, wib, MergeInput{
		CustomerID: 2, Date: at(15, 11), Type: TypeLive, Lines: liveLines(2, 200000),
	})
	require.NoError(t, err)

	f1, err := svc.Finalize(ctx, first.ID, 7)
	require.NoError(t, err)
	require.Equal(t, "NOTA-20250615-0001", *f1.Number)

	f2, err := svc.Finalize(ctx, second.ID, 7)
	require.NoError(t, err)
	require.Equal(t, "NOTA-20250615-0002", *f2.Number)
}

func TestFinalizeTwiceFails(t *testing.T) {
	repo := newMemInvoicesRepo()
	svc := NewService(repo, nil, wib)
	ctx := context.Background()

	inv, err := MergeShipment(ctx, repo.store, wib, MergeInput{
		CustomerID: 1, Date: at(15, 9), Type: TypeLive, Lines: liveLines(1, 100000),
	})
	require.NoError(t, err)

	_, err = svc.Finalize(ctx, inv.ID, 7)
	require.NoError(t, err)

	_, err = svc.Finalize(ctx, inv.ID, 7)
	var rule *httpx.BusinessRuleError
	require.ErrorAs(t, err, &rule)
	require.Contains(t, rule.Message, "already finalized")
}
