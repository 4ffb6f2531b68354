package service

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"buildpos/internal/cache"
	"buildpos/internal/client"
	"buildpos/internal/model"

	"github.com/shopspring/decimal"
)

// SalesSummary aggregates a period of sales history.
type SalesSummary struct {
	SaleCount     int             `json:"saleCount"`
	Revenue       decimal.Decimal `json:"revenue"`
	TotalDiscount decimal.Decimal `json:"totalDiscount"`
	CreditIssued  decimal.Decimal `json:"creditIssued"`
}

// CashierStat is one cashier's slice of the summary.
type CashierStat struct {
	CashierID   string          `json:"cashierId"`
	CashierName string          `json:"cashierName"`
	SaleCount   int             `json:"saleCount"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// ProductStat ranks one product by quantity sold.
type ProductStat struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// DailyRevenue is one day of the revenue series, keyed YYYY-MM-DD.
type DailyRevenue struct {
	Date    string          `json:"date"`
	Revenue decimal.Decimal `json:"revenue"`
}

// AnalyticsService derives reports from sales history. All computation is
// terminal-side over the synced snapshot: with whole collections already in
// hand there is nothing to push to the store.
type AnalyticsService struct {
	store *client.Store
	cache *cache.Cache
}

func NewAnalyticsService(store *client.Store, c *cache.Cache) *AnalyticsService {
	return &AnalyticsService{store: store, cache: c}
}

func (s *AnalyticsService) loadSales(ctx context.Context) ([]model.Sale, error) {
	env, err := s.store.Get(ctx, model.TableSales)
	if err != nil {
		if entry, ok := s.cache.Read(model.TableSales); ok {
			var sales []model.Sale
			if jsonErr := json.Unmarshal(entry.Items, &sales); jsonErr == nil {
				return sales, nil
			}
		}
		return nil, err
	}
	var sales []model.Sale
	if err := json.Unmarshal(env.Items, &sales); err != nil {
		return nil, err
	}
	return sales, nil
}

// revenueOf prefers FinalTotal; records predating the discount fields
// carry only Total.
func revenueOf(sale *model.Sale) decimal.Decimal {
	if !sale.FinalTotal.IsZero() {
		return sale.FinalTotal
	}
	return sale.Total.Sub(sale.Discount)
}

func inRange(t time.Time, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}

// Summary aggregates revenue, discounts and issued credit over [from, to].
// Zero time bounds mean unbounded.
func (s *AnalyticsService) Summary(ctx context.Context, from, to time.Time) (*SalesSummary, error) {
	sales, err := s.loadSales(ctx)
	if err != nil {
		return nil, err
	}
	sum := &SalesSummary{
		Revenue:       decimal.Zero,
		TotalDiscount: decimal.Zero,
		CreditIssued:  decimal.Zero,
	}
	for i := range sales {
		if !inRange(sales[i].Date, from, to) {
			continue
		}
		sum.SaleCount++
		sum.Revenue = sum.Revenue.Add(revenueOf(&sales[i]))
		sum.TotalDiscount = sum.TotalDiscount.Add(sales[i].Discount)
		if sales[i].PaymentType == model.PaymentCredit {
			sum.CreditIssued = sum.CreditIssued.Add(sales[i].RemainingDebt)
		}
	}
	return sum, nil
}

// CashierStats breaks the summary down per cashier. Cashiers need the
// explicit stats permission to see other operators' numbers.
func (s *AnalyticsService) CashierStats(ctx context.Context, actor *model.User, from, to time.Time) ([]CashierStat, error) {
	if !actor.HasPermission(model.PermAnalyticsCashierStats) {
		return nil, ErrPermissionDenied
	}
	sales, err := s.loadSales(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*CashierStat)
	for i := range sales {
		if !inRange(sales[i].Date, from, to) {
			continue
		}
		stat, ok := byID[sales[i].CashierID]
		if !ok {
			stat = &CashierStat{
				CashierID:   sales[i].CashierID,
				CashierName: sales[i].CashierName,
				Revenue:     decimal.Zero,
			}
			byID[sales[i].CashierID] = stat
		}
		stat.SaleCount++
		stat.Revenue = stat.Revenue.Add(revenueOf(&sales[i]))
	}
	stats := make([]CashierStat, 0, len(byID))
	for _, stat := range byID {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Revenue.GreaterThan(stats[j].Revenue)
	})
	return stats, nil
}

// TopProducts ranks products by quantity sold, descending, capped at limit.
func (s *AnalyticsService) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductStat, error) {
	sales, err := s.loadSales(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*ProductStat)
	for i := range sales {
		if !inRange(sales[i].Date, from, to) {
			continue
		}
		for _, item := range sales[i].Items {
			stat, ok := byID[item.ProductID]
			if !ok {
				stat = &ProductStat{
					ProductID:   item.ProductID,
					ProductName: item.ProductName,
					Revenue:     decimal.Zero,
				}
				byID[item.ProductID] = stat
			}
			stat.Quantity += item.Quantity
			stat.Revenue = stat.Revenue.Add(item.Total)
		}
	}
	stats := make([]ProductStat, 0, len(byID))
	for _, stat := range byID {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Quantity != stats[j].Quantity {
			return stats[i].Quantity > stats[j].Quantity
		}
		return stats[i].ProductName < stats[j].ProductName
	})
	if limit > 0 && len(stats) > limit {
		stats = stats[:limit]
	}
	return stats, nil
}

// RevenueSeries returns one entry per calendar day that had sales, sorted
// ascending by date.
func (s *AnalyticsService) RevenueSeries(ctx context.Context, from, to time.Time) ([]DailyRevenue, error) {
	sales, err := s.loadSales(ctx)
	if err != nil {
		return nil, err
	}
	byDay := make(map[string]decimal.Decimal)
	for i := range sales {
		if !inRange(sales[i].Date, from, to) {
			continue
		}
		day := sales[i].Date.Format("2006-01-02")
		byDay[day] = byDay[day].Add(revenueOf(&sales[i]))
	}
	series := make([]DailyRevenue, 0, len(byDay))
	for day, revenue := range byDay {
		series = append(series, DailyRevenue{Date: day, Revenue: revenue})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
	return series, nil
}
