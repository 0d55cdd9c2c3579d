package catalogsync

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shopbridge/backend/internal/domain/catalog"
	"github.com/shopbridge/backend/internal/domain/syncrun"
)

func newRefreshService(t *testing.T, source *fakeSource, dest *fakeDest) *Service {
	t.Helper()
	return NewService(source, dest, newFastExecutor(t),
		DefaultOrchestratorConfig(), DefaultReconcilerConfig(), 5, zap.NewNop())
}

func TestService_Refresh_PricesPropagateSourceChange(t *testing.T) {
	dest := refreshFixture()
	source := &fakeSource{records: []catalog.SourceRecord{
		{
			SKU: "sku-1",
			Variants: []catalog.SourceVariant{
				{SKU: "sku-1", Price: decimal.NewFromFloat(12.5)},
				{SKU: "sku-2", Price: decimal.NewFromInt(20)},
			},
		},
		{
			SKU: "sku-3",
			Variants: []catalog.SourceVariant{
				{SKU: "sku-3", Price: decimal.NewFromInt(30)},
			},
		},
	}}
	svc := newRefreshService(t, source, dest)

	report, err := svc.Refresh(context.Background(), RefreshKindPrices)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Scanned)
	assert.Equal(t, 1, report.Changed)
	assert.Equal(t, 1, report.Parents)
	assert.Equal(t, 1, report.Applied)
	assert.Empty(t, report.Failures)

	// Only the drifted variant was rewritten, with one mutation on its parent.
	assert.Equal(t, 1, dest.callCount("bulk_update_variants"))
	prodA := dest.product("prod-a")
	assert.True(t, prodA.Variants[0].Price.Equal(decimal.NewFromFloat(12.5)))
	assert.True(t, prodA.Variants[1].Price.Equal(decimal.NewFromInt(20)))
}

func TestService_Refresh_QuantitiesPropagateSourceChange(t *testing.T) {
	dest := refreshFixture()
	source := &fakeSource{records: []catalog.SourceRecord{
		{
			SKU: "sku-3",
			Variants: []catalog.SourceVariant{
				{
					SKU: "sku-3",
					Stock: []catalog.WarehouseStock{
						{WarehouseCode: "W1", Quantity: decimal.NewFromInt(4)},
						{WarehouseCode: "W2", Quantity: decimal.NewFromInt(2)},
					},
				},
			},
		},
	}}
	svc := newRefreshService(t, source, dest)

	report, err := svc.Refresh(context.Background(), RefreshKindQuantities)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Changed)
	assert.Equal(t, 1, report.Applied)
	assert.Equal(t, 1, dest.callCount("set_quantities"))
	prodB := dest.product("prod-b")
	assert.True(t, prodB.Variants[0].Quantity.Equal(decimal.NewFromInt(6)),
		"per-warehouse quantities must be summed, got %s", prodB.Variants[0].Quantity)
}

func TestService_Refresh_UnchangedCatalogMakesNoWrites(t *testing.T) {
	dest := refreshFixture()
	source := &fakeSource{records: []catalog.SourceRecord{
		{
			SKU: "sku-1",
			Variants: []catalog.SourceVariant{
				{SKU: "sku-1", Price: decimal.NewFromInt(10)},
				{SKU: "sku-2", Price: decimal.NewFromInt(20)},
			},
		},
	}}
	svc := newRefreshService(t, source, dest)

	report, err := svc.Refresh(context.Background(), RefreshKindPrices)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Changed)
	assert.Equal(t, 0, dest.callCount("bulk_update_variants"))
}

func TestService_Refresh_UnknownKind(t *testing.T) {
	svc := newRefreshService(t, &fakeSource{}, newFakeDest())

	_, err := svc.Refresh(context.Background(), RefreshKind("partial"))
	assert.ErrorIs(t, err, ErrUnknownRefreshKind)
}

func TestService_Refresh_RejectsActiveRun(t *testing.T) {
	svc := newRefreshService(t, &fakeSource{}, newFakeDest())
	svc.mu.Lock()
	svc.active = &RunHandle{}
	svc.mu.Unlock()

	_, err := svc.Refresh(context.Background(), RefreshKindPrices)
	assert.ErrorIs(t, err, ErrRunActive)
}

func TestService_Start_RejectsActiveRefresh(t *testing.T) {
	svc := newRefreshService(t, &fakeSource{}, newFakeDest())
	svc.mu.Lock()
	svc.refreshing = true
	svc.mu.Unlock()

	_, err := svc.Start(context.Background(), syncrun.ModeFull, 0)
	assert.ErrorIs(t, err, ErrRunActive)
}
