package shipments

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ternaklink/ternaklink/internal/invoices"
	"github.com/ternaklink/ternaklink/internal/platform/httpx"
	"github.com/ternaklink/ternaklink/internal/stock"
)

type memInvoiceStore struct {
	invoices map[int64]*invoices.SalesInvoice
	lines    map[int64][]invoices.InvoiceLineItem
	nextID   int64
	nextLine int64
}

func newMemInvoiceStore() *memInvoiceStore {
	return &memInvoiceStore{
		invoices: make(map[int64]*invoices.SalesInvoice),
		lines:    make(map[int64][]invoices.InvoiceLineItem),
	}
}

func (s *memInvoiceStore) FindDraftForUpdate(_ context.Context, customerID int64, dayStart, dayEnd time.Time) (*invoices.SalesInvoice, error) {
	for _, inv := range s.invoices {
		if inv.CustomerID == customerID && inv.Number == nil &&
			!inv.Date.Before(dayStart) && !inv.Date.After(dayEnd) {
			return inv, nil
		}
	}
	return nil, nil
}

func (s *memInvoiceStore) GetForUpdate(_ context.Context, id int64) (*invoices.SalesInvoice, error) {
	inv, ok := s.invoices[id]
	if !ok {
		return nil, invoices.ErrNotFound
	}
	return inv, nil
}

func (s *memInvoiceStore) Insert(_ context.Context, inv *invoices.SalesInvoice) error {
	s.nextID++
	inv.ID = s.nextID
	inv.CreatedAt = time.Now()
	s.invoices[inv.ID] = inv
	return nil
}

func (s *memInvoiceStore) InsertLines(_ context.Context, invoiceID int64, lines []invoices.InvoiceLineItem) error {
	for _, l := range lines {
		s.nextLine++
		l.ID = s.nextLine
		l.InvoiceID = invoiceID
		s.lines[invoiceID] = append(s.lines[invoiceID], l)
	}
	return nil
}

func (s *memInvoiceStore) DeleteLinesBySource(_ context.Context, invoiceID int64, kind invoices.SourceKind, sourceID int64) error {
	kept := s.lines[invoiceID][:0]
	for _, l := range s.lines[invoiceID] {
		if l.SourceKind != kind || l.SourceID != sourceID {
			kept = append(kept, l)
		}
	}
	s.lines[invoiceID] = kept
	return nil
}

func (s *memInvoiceStore) ListLines(_ context.Context, invoiceID int64) ([]invoices.InvoiceLineItem, error) {
	return append([]invoices.InvoiceLineItem(nil), s.lines[invoiceID]...), nil
}

func (s *memInvoiceStore) UpdateComputed(_ context.Context, inv *invoices.SalesInvoice) error {
	if _, ok := s.invoices[inv.ID]; !ok {
		return invoices.ErrNotFound
	}
	s.invoices[inv.ID] = inv
	return nil
}

func (s *memInvoiceStore) Delete(_ context.Context, id int64) error {
	delete(s.invoices, id)
	delete(s.lines, id)
	return nil
}

func (s *memInvoiceStore) MaxNumberWithPrefix(_ context.Context, prefix string) (string, error) {
	var max string
	for _, inv := range s.invoices {
		if inv.Number != nil && strings.HasPrefix(*inv.Number, prefix) && *inv.Number > max {
			max = *inv.Number
		}
	}
	return max, nil
}

func (s *memInvoiceStore) SetNumber(_ context.Context, id int64, number string) error {
	inv, ok := s.invoices[id]
	if !ok {
		return invoices.ErrNotFound
	}
	inv.Number = &number
	return nil
}

type memStock struct {
	available map[int64]int
	shipped   map[int64]int
}

func (m *memStock) Availability(_ context.Context, locationID int64) (stock.Availability, error) {
	a := stock.Availability{LocationID: locationID, Received: m.available[locationID]}
	a.Shipped = m.shipped[locationID]
	a.Available = a.Received - a.Shipped
	return a, nil
}

func (m *memStock) CreateReceipt(context.Context, stock.RecordInput) (*stock.BirdReceipt, error) {
	return nil, nil
}

func (m *memStock) CreateDeath(context.Context, stock.RecordInput) (*stock.BirdDeath, error) {
	return nil, nil
}

func (m *memStock) ListReceipts(context.Context, int64, int) ([]stock.BirdReceipt, error) {
	return nil, nil
}

func (m *memStock) ListDeaths(context.Context, int64, int) ([]stock.BirdDeath, error) {
	return nil, nil
}

// memShipRepo implements both RepositoryPort and TxRepository; WithTx just
// runs fn against itself, which is enough for logic tests.
type memShipRepo struct {
	live      map[int64]*LiveShipment
	meat      map[int64]*MeatShipment
	customers map[int64]string
	meatTypes map[int64]string
	locations map[int64]bool
	invoices  *memInvoiceStore
	stock     *memStock
	nextID    int64
}

func newMemShipRepo() *memShipRepo {
	return &memShipRepo{
		live:      make(map[int64]*LiveShipment),
		meat:      make(map[int64]*MeatShipment),
		customers: map[int64]string{1: "Toko Ali", 2: "Warung Budi"},
		meatTypes: map[int64]string{1: "Paha", 2: "Dada"},
		locations: map[int64]bool{1: true, 2: true},
		invoices:  newMemInvoiceStore(),
		stock:     &memStock{available: map[int64]int{1: 1000, 2: 100}, shipped: map[int64]int{}},
	}
}

func (r *memShipRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memShipRepo) InsertLive(_ context.Context, s *LiveShipment) error {
	r.nextID++
	s.ID = r.nextID
	r.live[s.ID] = s
	r.stock.shipped[s.LocationID] += s.BirdCount
	return nil
}

func (r *memShipRepo) GetLiveForUpdate(ctx context.Context, id int64) (*LiveShipment, error) {
	return r.GetLive(ctx, id)
}

func (r *memShipRepo) GetLive(_ context.Context, id int64) (*LiveShipment, error) {
	s, ok := r.live[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memShipRepo) UpdateLive(_ context.Context, s *LiveShipment) error {
	old, ok := r.live[s.ID]
	if !ok {
		return ErrNotFound
	}
	r.stock.shipped[old.LocationID] -= old.BirdCount
	r.stock.shipped[s.LocationID] += s.BirdCount
	r.live[s.ID] = s
	return nil
}

func (r *memShipRepo) DeleteLive(_ context.Context, id int64) error {
	s, ok := r.live[id]
	if !ok {
		return ErrNotFound
	}
	r.stock.shipped[s.LocationID] -= s.BirdCount
	delete(r.live, id)
	return nil
}

func (r *memShipRepo) ListLive(_ context.Context, _ ListRequest) ([]LiveShipment, error) {
	var out []LiveShipment
	for _, s := range r.live {
		out = append(out, *s)
	}
	return out, nil
}

func (r *memShipRepo) InsertMeat(_ context.Context, s *MeatShipment) error {
	r.nextID++
	s.ID = r.nextID
	r.meat[s.ID] = s
	return nil
}

func (r *memShipRepo) GetMeatForUpdate(ctx context.Context, id int64) (*MeatShipment, error) {
	return r.GetMeat(ctx, id)
}

func (r *memShipRepo) GetMeat(_ context.Context, id int64) (*MeatShipment, error) {
	s, ok := r.meat[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memShipRepo) UpdateMeat(_ context.Context, s *MeatShipment) error {
	if _, ok := r.meat[s.ID]; !ok {
		return ErrNotFound
	}
	r.meat[s.ID] = s
	return nil
}

func (r *memShipRepo) DeleteMeat(_ context.Context, id int64) error {
	if _, ok := r.meat[id]; !ok {
		return ErrNotFound
	}
	delete(r.meat, id)
	return nil
}

func (r *memShipRepo) ListMeat(_ context.Context, _ ListRequest) ([]MeatShipment, error) {
	var out []MeatShipment
	for _, s := range r.meat {
		out = append(out, *s)
	}
	return out, nil
}

func (r *memShipRepo) CustomerName(_ context.Context, id int64) (string, error) {
	name, ok := r.customers[id]
	if !ok {
		return "", ErrNotFound
	}
	return name, nil
}

func (r *memShipRepo) MeatTypeName(_ context.Context, id int64) (string, error) {
	name, ok := r.meatTypes[id]
	if !ok {
		return "", ErrNotFound
	}
	return name, nil
}

func (r *memShipRepo) LocationExists(_ context.Context, id int64) (bool, error) {
	return r.locations[id], nil
}

func (r *memShipRepo) Invoices() invoices.TxStore  { return r.invoices }
func (r *memShipRepo) Stock() stock.RepositoryPort { return r.stock }

var jakarta = time.FixedZone("WIB", 7*3600)

func shipDate(day int) time.Time {
	return time.Date(2025, 6, day, 10, 0, 0, 0, jakarta)
}

func liveReq(customerID int64, day int, count int) LiveShipmentRequest {
	return LiveShipmentRequest{
		LocationID:  1,
		Date:        shipDate(day),
		CustomerID:  customerID,
		BirdCount:   count,
		TotalWeight: float64(count) * 1.8,
		SizeClass:   SizeBesar,
		PricePerKg:  20000,
		Expense:     50000,
	}
}

func meatReq(customerID int64, day int) MeatShipmentRequest {
	return MeatShipmentRequest{
		Date:       shipDate(day),
		CustomerID: customerID,
		Expense:    10000,
		Items: []MeatItemRequest{
			{MeatTypeID: 1, Qty: 5, UnitPrice: 40000},
			{MeatTypeID: 2, Qty: 2.5, UnitPrice: 52000},
		},
	}
}

func newTestService(repo *memShipRepo) *Service {
	return NewService(repo, nil, jakarta)
}

func TestCreateLiveConsolidatesIntoDraft(t *testing.T) {
	repo := newMemShipRepo()
	svc := newTestService(repo)

	result, err := svc.CreateLive(context.Background(), liveReq(1, 15, 100), 7)
	require.NoError(t, err)
	require.NotNil(t, result.Shipment.InvoiceID)
	require.Equal(t, result.InvoiceID, *result.Shipment.InvoiceID)

	inv := repo.invoices.invoices[result.InvoiceID]
	require.NotNil(t, inv)
	require.True(t, inv.Draft())
	require.Equal(t, invoices.TypeLive, inv.Type)
	require.InDelta(t, 100*1.8*20000, inv.GrossAmount, 0.01)
	require.InDelta(t, inv.GrossAmount-50000, inv.GrandTotal, 0.01)
	require.Equal(t, invoices.StatusHutang, inv.Status)
	require.Contains(t, inv.Note, "BK Ayam #1")
}

func TestSecondShipmentSameDayMergesIntoSameInvoice(t *testing.T) {
	repo := newMemShipRepo()
	svc := newTestService(repo)

	first, err := svc.CreateLive(context.Background(), liveReq(1, 15, 100), 7)
	require.NoError(t, err)
	second, err := svc.CreateLive(context.Background(), liveReq(1, 15, 50), 7)
	require.NoError(t, err)

	require.Equal(t, first.InvoiceID, second.InvoiceID)
	inv := repo.invoices.invoices[first.InvoiceID]
	require.InDelta(t, 150*1.8*20000, inv.GrossAmount, 0.01)
	require.InDelta(t, 100000, inv.ExpenseAmount, 0.01)
	require.Equal(t, invoices.TypeLive, inv.Type)
}

func TestMeatAfterLiveUpgradesToMixed(t *testing.T) {
	repo := newMemShipRepo()
	svc := newTestService(repo)

	live, err := svc.CreateLive(context.Background(), liveReq(1, 15, 100), 7)
	require.NoError(t, err)
	meat, err := svc.CreateMeat(context.Background(), meatReq(1, 15), 7)
	require.NoError(t, err)

	require.Equal(t, live.InvoiceID, meat.InvoiceID)
	inv := repo.invoices.invoices[live.InvoiceID]
	require.Equal(t, invoices.TypeMixed, inv.Type)
	require.Contains(t, inv.Note, "BK Ayam #1")
	require.Contains(t, inv.Note, "BK Daging #2")

	wantGross := 100*1.8*20000 + 5*40000 + 2.5*52000
	require.InDelta(t, wantGross, inv.GrossAmount, 0.01)
}

func TestDifferentCustomersGetSeparateInvoices(t *testing.T) {
	repo := newMemShipRepo()
	svc := newTestService(repo)

	a, err := svc.CreateLive(context.Background(), liveReq(1, 15, 100), 7)
	require.NoError(t, err)
	b, err := svc.CreateLive(context.Background(), liveReq(2, 15, 50), 7)
	require.NoError(t, err)
	require.NotEqual(t, a.InvoiceID, b.InvoiceID)
}

func TestStockGuardRejectsOverdraw(t *testing.T) {
	repo := newMemShipRepo()
	svc := newTestService(repo)

	_, err := svc.CreateLive(context.Background(), liveReq(1, 15, 1001), 7)
	require.Error(t, err)
	var rule *httpx.BusinessRuleError
	require.ErrorAs(t, err, &rule)
	require.Contains(t, rule.Message, "insufficient stock")
	require.Empty(t, repo.live)
}

func TestUpdateLiveSameCountPassesGuard(t *testing.T) {
	repo := newMemShipRepo()
	repo.stock.available[1] = 100
	svc := newTestService(repo)

	created, err := svc.CreateLive(context.Background(), liveReq(1, 15, 100), 7)
	require.NoError(t, err)

	// All 100 birds are shipped; re-saving the same count must still pass
	// because the old count is restored before the guard.
	req := liveReq(1, 15, 100)
	req.PricePerKg = 21000
	updated, err := svc.UpdateLive(context.Background(), created.Shipment.ID, req, 7)
	require.NoError(t, err)
	require.Equal(t, created.InvoiceID, updated.InvoiceID)

	inv := repo.invoices.invoices[updated.InvoiceID]
	require.InDelta(t, 100*1.8*21000, inv.GrossAmount, 0.01)
}

func TestUpdateLiveMovesBetweenInvoices(t *testing.T) {
	repo := newMemShipRepo()
	svc := newTestService(repo)

	created, err := svc.CreateLive(context.Background(), liveReq(1, 15, 100), 7)
	require.NoError(t, err)
	oldInvoice := created.InvoiceID

	req := liveReq(2, 15, 100)
	updated, err := svc.UpdateLive(context.Background(), created.Shipment.ID, req, 7)
	require.NoError(t, err)

	require.NotEqual(t, oldInvoice, updated.InvoiceID)
	// the old draft had no other contributors, so it is gone
	require.NotContains(t, repo.invoices.invoices, oldInvoice)
	inv := repo.invoices.invoices[updated.InvoiceID]
	require.Equal(t, int64(2), inv.CustomerID)
}

func TestUpdateLiveMoveKeepsSharedInvoice(t *testing.T) {
	repo := newMemShipRepo()
	svc := newTestService(repo)

	first, err := svc.CreateLive(context.Background(), liveReq(1, 15, 100), 7)
	require.NoError(t, err)
	second, err := svc.CreateLive(context.Background(), liveReq(1, 15, 50), 7)
	require.NoError(t, err)
	require.Equal(t, first.InvoiceID, second.InvoiceID)

	// moving the second shipment to another day leaves the first's invoice
	// alive with only the first's lines and expense
	moved, err := svc.UpdateLive(context.Background(), second.Shipment.ID, liveReq(1, 16, 50), 7)
	require.NoError(t, err)
	require.NotEqual(t, first.InvoiceID, moved.InvoiceID)

	inv := repo.invoices.invoices[first.InvoiceID]
	require.InDelta(t, 100*1.8*20000, inv.GrossAmount, 0.01)
	require.InDelta(t, 50000, inv.ExpenseAmount, 0.01)
}

func TestDeleteLiveRemovesSoleDraftInvoice(t *testing.T) {
	repo := newMemShipRepo()
	svc := newTestService(repo)

	created, err := svc.CreateLive(context.Background(), liveReq(1, 15, 100), 7)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteLive(context.Background(), created.Shipment.ID, 7))
	require.NotContains(t, repo.invoices.invoices, created.InvoiceID)
	require.Empty(t, repo.live)
}

func TestDeleteLiveRecalcsFinalizedInvoice(t *testing.T) {
	repo := newMemShipRepo()
	svc := newTestService(repo)

	first, err := svc.CreateLive(context.Background(), liveReq(1, 15, 100), 7)
	require.NoError(t, err)
	_, err = svc.CreateMeat(context.Background(), meatReq(1, 15), 7)
	require.NoError(t, err)

	number := "NOTA-20250615-0001"
	repo.invoices.invoices[first.InvoiceID].Number = &number

	require.NoError(t, svc.DeleteLive(context.Background(), first.Shipment.ID, 7))
	inv := repo.invoices.invoices[first.InvoiceID]
	require.NotNil(t, inv)
	require.InDelta(t, 5*40000+2.5*52000, inv.GrossAmount, 0.01)
	require.InDelta(t, 10000, inv.ExpenseAmount, 0.01)
}

func TestCreateLiveUnknownCustomer(t *testing.T) {
	repo := newMemShipRepo()
	svc := newTestService(repo)

	_, err := svc.CreateLive(context.Background(), liveReq(99, 15, 10), 7)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestCreateMeatComputesSubtotals(t *testing.T) {
	repo := newMemShipRepo()
	svc := newTestService(repo)

	result, err := svc.CreateMeat(context.Background(), meatReq(1, 15), 7)
	require.NoError(t, err)
	sh := result.Shipment
	require.Len(t, sh.Items, 2)
	require.InDelta(t, 200000, sh.Items[0].Subtotal, 0.01)
	require.InDelta(t, 130000, sh.Items[1].Subtotal, 0.01)
	require.InDelta(t, 200000+130000-10000, sh.Balance, 0.01)
	require.Equal(t, "Paha", sh.Items[0].MeatTypeName)
}
