package service_test

import (
	"context"
	"testing"
	"time"

	"buildpos/internal/model"
	"buildpos/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAnalyticsService(t *testing.T, e *env) *service.AnalyticsService {
	t.Helper()
	store, _, c := e.terminal(t, "admin")
	return service.NewAnalyticsService(store, c)
}

func seedSalesHistory(t *testing.T, e *env) {
	t.Helper()
	day := func(d int) time.Time { return time.Date(2026, 8, d, 12, 0, 0, 0, time.UTC) }
	sale := func(id, cashierID, cashierName string, d int, total, discount int64, payment string, items ...model.SaleItem) model.Sale {
		tot := decimal.NewFromInt(total)
		disc := decimal.NewFromInt(discount)
		return model.Sale{
			ID: id, CashierID: cashierID, CashierName: cashierName,
			Date: day(d), Items: items,
			Total: tot, Discount: disc, FinalTotal: tot.Sub(disc),
			PaymentType: payment,
		}
	}
	item := func(pid, name string, qty int, lineTotal int64) model.SaleItem {
		return model.SaleItem{ProductID: pid, ProductName: name, Quantity: qty, Total: decimal.NewFromInt(lineTotal)}
	}

	e.seedTable(t, model.TableSales, []model.Sale{
		sale("s1", "u-admin", "Admin", 1, 500000, 0, model.PaymentCash,
			item("p1", "Cement", 10, 450000), item("p2", "Brick", 5, 50000)),
		sale("s2", "u-cashier", "Kassir", 1, 300000, 30000, model.PaymentCard,
			item("p2", "Brick", 25, 300000)),
		sale("s3", "u-cashier", "Kassir", 2, 200000, 0, model.PaymentCash,
			item("p1", "Cement", 4, 200000)),
	})
}

func TestAnalyticsSummary(t *testing.T) {
	e := newEnv(t)
	svc := newAnalyticsService(t, e)
	seedSalesHistory(t, e)

	sum, err := svc.Summary(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)

	assert.Equal(t, 3, sum.SaleCount)
	// 500000 + 270000 + 200000, discounts already netted out.
	assert.True(t, sum.Revenue.Equal(decimal.NewFromInt(970000)), "revenue %s", sum.Revenue)
	assert.True(t, sum.TotalDiscount.Equal(decimal.NewFromInt(30000)))
}

func TestAnalyticsSummaryDateRange(t *testing.T) {
	e := newEnv(t)
	svc := newAnalyticsService(t, e)
	seedSalesHistory(t, e)

	from := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
	sum, err := svc.Summary(context.Background(), from, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.SaleCount)
	assert.True(t, sum.Revenue.Equal(decimal.NewFromInt(200000)))
}

func TestAnalyticsCashierStats(t *testing.T) {
	e := newEnv(t)
	svc := newAnalyticsService(t, e)
	seedSalesHistory(t, e)
	ctx := context.Background()

	stats, err := svc.CashierStats(ctx, &e.admin, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, stats, 2)
	// Sorted by revenue, descending.
	assert.Equal(t, "Admin", stats[0].CashierName)
	assert.True(t, stats[0].Revenue.Equal(decimal.NewFromInt(500000)))
	assert.Equal(t, "Kassir", stats[1].CashierName)
	assert.Equal(t, 2, stats[1].SaleCount)
	assert.True(t, stats[1].Revenue.Equal(decimal.NewFromInt(470000)))
}

func TestAnalyticsCashierStatsGated(t *testing.T) {
	e := newEnv(t)
	svc := newAnalyticsService(t, e)
	seedSalesHistory(t, e)
	ctx := context.Background()

	_, err := svc.CashierStats(ctx, &e.cashier, time.Time{}, time.Time{})
	assert.ErrorIs(t, err, service.ErrPermissionDenied)

	granted := e.cashier
	granted.Permissions = []string{model.PermAnalyticsCashierStats}
	_, err = svc.CashierStats(ctx, &granted, time.Time{}, time.Time{})
	assert.NoError(t, err)
}

func TestAnalyticsTopProducts(t *testing.T) {
	e := newEnv(t)
	svc := newAnalyticsService(t, e)
	seedSalesHistory(t, e)

	top, err := svc.TopProducts(context.Background(), time.Time{}, time.Time{}, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "Brick", top[0].ProductName)
	assert.Equal(t, 30, top[0].Quantity)
}

func TestAnalyticsRevenueSeries(t *testing.T) {
	e := newEnv(t)
	svc := newAnalyticsService(t, e)
	seedSalesHistory(t, e)

	series, err := svc.RevenueSeries(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, "2026-08-01", series[0].Date)
	assert.True(t, series[0].Revenue.Equal(decimal.NewFromInt(770000)))
	assert.Equal(t, "2026-08-02", series[1].Date)
	assert.True(t, series[1].Revenue.Equal(decimal.NewFromInt(200000)))
}
