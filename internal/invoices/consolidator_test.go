package invoices

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// memStore is an in-memory TxStore for consolidation and numbering tests.
type memStore struct {
	invoices map[int64]*SalesInvoice
	lines    map[int64][]InvoiceLineItem
	nextID   int64
	nextLine int64
}

func newMemStore() *memStore {
	return &memStore{
		invoices: make(map[int64]*SalesInvoice),
		lines:    make(map[int64][]InvoiceLineItem),
	}
}

func (s *memStore) FindDraftForUpdate(_ context.Context, customerID int64, dayStart, dayEnd time.Time) (*SalesInvoice, error) {
	for _, inv := range s.invoices {
		if inv.CustomerID == customerID && inv.Number == nil &&
			!inv.Date.Before(dayStart) && !inv.Date.After(dayEnd) {
			return inv, nil
		}
	}
	return nil, nil
}

func (s *memStore) GetForUpdate(_ context.Context, id int64) (*SalesInvoice, error) {
	inv, ok := s.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	return inv, nil
}

func (s *memStore) Insert(_ context.Context, inv *SalesInvoice) error {
	s.nextID++
	inv.ID = s.nextID
	s.invoices[inv.ID] = inv
	return nil
}

func (s *memStore) InsertLines(_ context.Context, invoiceID int64, lines []InvoiceLineItem) error {
	for _, l := range lines {
		s.nextLine++
		l.ID = s.nextLine
		l.InvoiceID = invoiceID
		s.lines[invoiceID] = append(s.lines[invoiceID], l)
	}
	return nil
}

func (s *memStore) DeleteLinesBySource(_ context.Context, invoiceID int64, kind SourceKind, sourceID int64) error {
	kept := s.lines[invoiceID][:0]
	for _, l := range s.lines[invoiceID] {
		if l.SourceKind != kind || l.SourceID != sourceID {
			kept = append(kept, l)
		}
	}
	s.lines[invoiceID] = kept
	return nil
}

func (s *memStore) ListLines(_ context.Context, invoiceID int64) ([]InvoiceLineItem, error) {
	return append([]InvoiceLineItem(nil), s.lines[invoiceID]...), nil
}

func (s *memStore) UpdateComputed(_ context.Context, inv *SalesInvoice) error {
	if _, ok := s.invoices[inv.ID]; !ok {
		return ErrNotFound
	}
	s.invoices[inv.ID] = inv
	return nil
}

func (s *memStore) Delete(_ context.Context, id int64) error {
	delete(s.invoices, id)
	delete(s.lines, id)
	return nil
}

func (s *memStore) MaxNumberWithPrefix(_ context.Context, prefix string) (string, error) {
	var max string
	for _, inv := range s.invoices {
		if inv.Number != nil && strings.HasPrefix(*inv.Number, prefix) && *inv.Number > max {
			max = *inv.Number
		}
	}
	return max, nil
}

func (s *memStore) SetNumber(_ context.Context, id int64, number string) error {
	inv, ok := s.invoices[id]
	if !ok {
		return ErrNotFound
	}
	inv.Number = &number
	return nil
}

var wib = time.FixedZone("WIB", 7*3600)

func at(day, hour int) time.Time {
	return time.Date(2025, 6, day, hour, 0, 0, 0, wib)
}

func liveLines(sourceID int64, subtotal float64) []InvoiceLineItem {
	return []InvoiceLineItem{{
		ItemType: "AYAM_HIDUP", Label: "Ayam hidup BESAR",
		Subtotal: subtotal, SourceKind: SourceLive, SourceID: sourceID,
	}}
}

func meatLines(sourceID int64, subtotal float64) []InvoiceLineItem {
	return []InvoiceLineItem{{
		ItemType: "DAGING", Label: "Paha",
		Subtotal: subtotal, SourceKind: SourceMeat, SourceID: sourceID,
	}}
}

func TestMergeShipmentCreatesDraft(t *testing.T) {
	store := newMemStore()
	inv, err := MergeShipment(context.Background(), store, wib, MergeInput{
		CustomerID: 1, Date: at(15, 9), Type: TypeLive, Expense: 50000,
		Lines: liveLines(11, 500000),
	})
	require.NoError(t, err)
	require.True(t, inv.Draft())
	require.InDelta(t, 500000, inv.GrossAmount, 0.001)
	require.InDelta(t, 450000, inv.GrandTotal, 0.001)
	require.InDelta(t, 450000, inv.OutstandingBalance, 0.001)
	require.Equal(t, StatusHutang, inv.Status)
}

func TestMergeShipmentReusesSameDayDraft(t *testing.T) {
	store := newMemStore()
	first, err := MergeShipment(context.Background(), store, wib, MergeInput{
		CustomerID: 1, Date: at(15, 9), Type: TypeLive, Expense: 50000,
		Lines: liveLines(11, 500000),
	})
	require.NoError(t, err)

	second, err := MergeShipment(context.Background(), store, wib, MergeInput{
		CustomerID: 1, Date: at(15, 17), Type: TypeMeat, Expense: 10000,
		Lines: meatLines(4, 200000),
	})
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, TypeMixed, second.Type)
	require.InDelta(t, 700000, second.GrossAmount, 0.001)
	require.InDelta(t, 60000, second.ExpenseAmount, 0.001)
	require.Contains(t, second.Note, "BK Ayam #11")
	require.Contains(t, second.Note, "BK Daging #4")
	require.Len(t, store.invoices, 1)
}

func TestMergeShipmentSeparatesDays(t *testing.T) {
	store := newMemStore()
	first, err := MergeShipment(context.Background(), store, wib, MergeInput{
		CustomerID: 1, Date: at(15, 23), Type: TypeLive, Lines: liveLines(1, 100),
	})
	require.NoError(t, err)
	// one hour later but past midnight in the business timezone
	second, err := MergeShipment(context.Background(), store, wib, MergeInput{
		CustomerID: 1, Date: at(16, 0), Type: TypeLive, Lines: liveLines(2, 100),
	})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)
}

func TestMergeShipmentIgnoresFinalizedInvoice(t *testing.T) {
	store := newMemStore()
	first, err := MergeShipment(context.Background(), store, wib, MergeInput{
		CustomerID: 1, Date: at(15, 9), Type: TypeLive, Lines: liveLines(1, 100),
	})
	require.NoError(t, err)
	require.NoError(t, store.SetNumber(context.Background(), first.ID, "NOTA-20250615-0001"))

	// a later shipment for the same day opens a fresh draft
	second, err := MergeShipment(context.Background(), store, wib, MergeInput{
		CustomerID: 1, Date: at(15, 14), Type: TypeLive, Lines: liveLines(2, 100),
	})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)
	require.True(t, second.Draft())
}

func TestReplaceShipmentLinesRecomputes(t *testing.T) {
	store := newMemStore()
	inv, err := MergeShipment(context.Background(), store, wib, MergeInput{
		CustomerID: 1, Date: at(15, 9), Type: TypeLive, Expense: 50000,
		Lines: liveLines(11, 500000),
	})
	require.NoError(t, err)

	updated, err := ReplaceShipmentLines(context.Background(), store, inv.ID,
		SourceLive, 11, 20000, liveLines(11, 620000))
	require.NoError(t, err)
	require.InDelta(t, 620000, updated.GrossAmount, 0.001)
	require.InDelta(t, 70000, updated.ExpenseAmount, 0.001)
	require.InDelta(t, 550000, updated.GrandTotal, 0.001)
}

func TestReplaceShipmentLinesOnFinalizedInvoice(t *testing.T) {
	store := newMemStore()
	inv, err := MergeShipment(context.Background(), store, wib, MergeInput{
		CustomerID: 1, Date: at(15, 9), Type: TypeLive, Lines: liveLines(11, 500000),
	})
	require.NoError(t, err)
	require.NoError(t, store.SetNumber(context.Background(), inv.ID, "NOTA-20250615-0001"))

	// editing a shipment on a finalized invoice still flows through the
	// recompute, keeping the stored totals consistent with the lines
	updated, err := ReplaceShipmentLines(context.Background(), store, inv.ID,
		SourceLive, 11, 0, liveLines(11, 480000))
	require.NoError(t, err)
	require.InDelta(t, 480000, updated.GrossAmount, 0.001)
	require.InDelta(t, 480000, updated.GrandTotal, 0.001)
	require.False(t, updated.Draft())
}

func TestRemoveShipmentLinesDeletesEmptyDraft(t *testing.T) {
	store := newMemStore()
	inv, err := MergeShipment(context.Background(), store, wib, MergeInput{
		CustomerID: 1, Date: at(15, 9), Type: TypeLive, Expense: 50000,
		Lines: liveLines(11, 500000),
	})
	require.NoError(t, err)

	deleted, _, err := RemoveShipmentLines(context.Background(), store, inv.ID, SourceLive, 11, 50000)
	require.NoError(t, err)
	require.True(t, deleted)
	require.Empty(t, store.invoices)
}

func TestRemoveShipmentLinesKeepsSharedInvoice(t *testing.T) {
	store := newMemStore()
	inv, err := MergeShipment(context.Background(), store, wib, MergeInput{
		CustomerID: 1, Date: at(15, 9), Type: TypeLive, Expense: 50000,
		Lines: liveLines(11, 500000),
	})
	require.NoError(t, err)
	_, err = MergeShipment(context.Background(), store, wib, MergeInput{
		CustomerID: 1, Date: at(15, 11), Type: TypeMeat, Expense: 10000,
		Lines: meatLines(4, 200000),
	})
	require.NoError(t, err)

	deleted, remaining, err := RemoveShipmentLines(context.Background(), store, inv.ID, SourceLive, 11, 50000)
	require.NoError(t, err)
	require.False(t, deleted)
	require.InDelta(t, 200000, remaining.GrossAmount, 0.001)
	require.InDelta(t, 10000, remaining.ExpenseAmount, 0.001)
	require.Equal(t, "BK Daging #4", remaining.Note)
}

func TestRemoveShipmentLinesKeepsEmptiedFinalizedInvoice(t *testing.T) {
	store := newMemStore()
	inv, err := MergeShipment(context.Background(), store, wib, MergeInput{
		CustomerID: 1, Date: at(15, 9), Type: TypeLive, Expense: 50000,
		Lines: liveLines(11, 500000),
	})
	require.NoError(t, err)
	require.NoError(t, store.SetNumber(context.Background(), inv.ID, "NOTA-20250615-0001"))

	deleted, remaining, err := RemoveShipmentLines(context.Background(), store, inv.ID, SourceLive, 11, 50000)
	require.NoError(t, err)
	require.False(t, deleted)
	require.InDelta(t, 0, remaining.GrossAmount, 0.001)
	require.Contains(t, store.invoices, inv.ID)
}

func TestDayBounds(t *testing.T) {
	start, end := DayBounds(at(15, 13), wib)
	require.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, wib), start)
	require.True(t, end.After(at(15, 23)))
	require.True(t, end.Before(time.Date(2025, 6, 16, 0, 0, 0, 0, wib)))
}

func TestNextNumberSequencesPerDay(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	inv1 := &SalesInvoice{CustomerID: 1, Date: at(15, 9)}
	require.NoError(t, store.Insert(ctx, inv1))
	n1, err := NextNumber(ctx, store, inv1.Date, wib)
	require.NoError(t, err)
	require.Equal(t, "NOTA-20250615-0001", n1)
	require.NoError(t, store.SetNumber(ctx, inv1.ID, n1))

	inv2 := &SalesInvoice{CustomerID: 2, Date: at(15, 16)}
	require.NoError(t, store.Insert(ctx, inv2))
	n2, err := NextNumber(ctx, store, inv2.Date, wib)
	require.NoError(t, err)
	require.Equal(t, "NOTA-20250615-0002", n2)

	// counter resets on the next day
	n3, err := NextNumber(ctx, store, at(16, 8), wib)
	require.NoError(t, err)
	require.Equal(t, "NOTA-20250616-0001", n3)
}

func TestNextNumberRejectsMalformedMax(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	inv := &SalesInvoice{CustomerID: 1, Date: at(15, 9)}
	require.NoError(t, store.Insert(ctx, inv))
	require.NoError(t, store.SetNumber(ctx, inv.ID, "NOTA-20250615-xyz"))

	_, err := NextNumber(ctx, store, inv.Date, wib)
	require.Error(t, err)
}
