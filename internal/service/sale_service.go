package service

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"buildpos/internal/cache"
	"buildpos/internal/client"
	"buildpos/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// CartLine is one item the cashier scanned.
type CartLine struct {
	ProductID string `validate:"required"`
	Quantity  int    `validate:"gt=0"`
}

// CheckoutInput is everything the payment modal collects.
type CheckoutInput struct {
	Lines       []CartLine `validate:"required,min=1,dive"`
	PaymentType string     `validate:"required,oneof=cash card credit"`
	Discount    decimal.Decimal

	// Credit-sale fields, required when PaymentType is credit.
	CustomerName  string
	CustomerPhone string
	PaidAmount    decimal.Decimal
	DueDate       string
}

// SaleService runs checkouts and reads sales history.
//
// Commit order is fixed: stock decrement first, then the sale append, then
// the debtor for credit sales. The decrement is the contended CAS — two
// terminals fighting over the last unit resolve there, before either sale
// exists. Later failures roll the earlier writes back.
type SaleService struct {
	co    *client.Coordinator
	store *client.Store
	sync  *CatalogSyncer
	cache *cache.Cache
}

func NewSaleService(co *client.Coordinator, store *client.Store, syncer *CatalogSyncer, c *cache.Cache) *SaleService {
	return &SaleService{co: co, store: store, sync: syncer, cache: c}
}

// List returns sales history, cache-backed like the catalog reads.
func (s *SaleService) List(ctx context.Context) ([]model.Sale, error) {
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
	s.cache.Write(model.TableSales, env.Version, env.Items)
	var sales []model.Sale
	if err := json.Unmarshal(env.Items, &sales); err != nil {
		return nil, err
	}
	return sales, nil
}

// Checkout commits one sale. On success the sale is durably stored, stock
// is decremented, any credit debt is recorded, and peers are notified.
func (s *SaleService) Checkout(ctx context.Context, actor *model.User, in CheckoutInput) (*model.Sale, error) {
	if err := s.validateCheckout(actor, in); err != nil {
		return nil, err
	}

	// 1. Decrement stock. The transform snapshots name/unit/price for the
	// receipt from the same collection state the decrement applies to.
	var items []model.SaleItem
	prodRes, err := client.Mutate(ctx, s.co, model.TableProducts, func(products []model.Product) ([]model.Product, error) {
		items = items[:0]
		for _, line := range in.Lines {
			idx := -1
			for i := range products {
				if products[i].ID == line.ProductID {
					idx = i
					break
				}
			}
			if idx < 0 {
				return nil, validationf("product %s not found", line.ProductID)
			}
			p := &products[idx]
			if p.Stock < line.Quantity {
				return nil, validationf("not enough %q in stock: have %d, need %d", p.Name, p.Stock, line.Quantity)
			}
			p.Stock -= line.Quantity
			items = append(items, model.SaleItem{
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    line.Quantity,
				Unit:        p.Unit,
				Price:       p.Price,
				Total:       p.Price.Mul(decimal.NewFromInt(int64(line.Quantity))),
			})
		}
		return products, nil
	})
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Total)
	}
	if in.Discount.GreaterThan(total) {
		// Validated against the priced cart, which only exists now.
		s.compensateStock(ctx, in.Lines)
		return nil, validationf("discount exceeds sale total")
	}
	finalTotal := total.Sub(in.Discount)

	// 2. Reserve the receipt number from the store-side sequence.
	receipt, err := s.store.NextReceipt(ctx)
	if err != nil {
		s.compensateStock(ctx, in.Lines)
		return nil, err
	}

	sale := model.Sale{
		ID:              uuid.NewString(),
		ReceiptNumber:   strconv.FormatInt(receipt, 10),
		CashierID:       actor.ID,
		CashierName:     actor.Name,
		Date:            time.Now(),
		Items:           items,
		Total:           total,
		PaymentType:     in.PaymentType,
		Discount:        in.Discount,
		DiscountPercent: discountPercent(in.Discount, total),
		FinalTotal:      finalTotal,
	}
	if in.PaymentType == model.PaymentCredit {
		sale.CustomerName = in.CustomerName
		sale.CustomerPhone = in.CustomerPhone
		sale.PaidAmount = in.PaidAmount
		sale.RemainingDebt = finalTotal.Sub(in.PaidAmount)
		sale.DueDate = in.DueDate
	} else {
		sale.PaidAmount = finalTotal
	}

	// 3. Append the sale. Upsert by id keeps a retried append idempotent.
	if _, err := client.Mutate(ctx, s.co, model.TableSales, func(sales []model.Sale) ([]model.Sale, error) {
		for i := range sales {
			if sales[i].ID == sale.ID {
				sales[i] = sale
				return sales, nil
			}
		}
		return append(sales, sale), nil
	}); err != nil {
		s.compensateStock(ctx, in.Lines)
		return nil, err
	}

	// 4. Credit sales open a debtor record.
	if in.PaymentType == model.PaymentCredit {
		if err := s.createDebtor(ctx, sale); err != nil {
			s.compensateSale(ctx, sale.ID)
			s.compensateStock(ctx, in.Lines)
			return nil, err
		}
	}

	// 5. Peers and cache: the catalog changed, tell the other terminals.
	raw, err := json.Marshal(prodRes.Items)
	if err == nil {
		s.cache.Write(model.TableProducts, prodRes.Version, raw)
		if s.sync != nil {
			s.sync.BroadcastProducts(ctx, raw, prodRes.Version)
		}
	}

	return &sale, nil
}

func (s *SaleService) validateCheckout(actor *model.User, in CheckoutInput) error {
	if err := validateStruct(in); err != nil {
		return err
	}
	if in.Discount.IsNegative() {
		return validationf("discount must not be negative")
	}
	if in.Discount.IsPositive() && !actor.HasPermission(model.PermSalesDiscount) {
		return ErrPermissionDenied
	}
	if in.PaymentType == model.PaymentCredit {
		if in.CustomerName == "" || in.CustomerPhone == "" || in.DueDate == "" {
			return validationf("credit sale requires customer name, phone and due date")
		}
		if in.PaidAmount.IsNegative() {
			return validationf("paid amount must not be negative")
		}
		if _, err := time.Parse("2006-01-02", in.DueDate); err != nil {
			return validationf("due date must be YYYY-MM-DD")
		}
	}
	seen := make(map[string]bool, len(in.Lines))
	for _, line := range in.Lines {
		if seen[line.ProductID] {
			return validationf("product %s appears twice in the cart", line.ProductID)
		}
		seen[line.ProductID] = true
	}
	return nil
}

func (s *SaleService) createDebtor(ctx context.Context, sale model.Sale) error {
	debtor := model.Debtor{
		ID:            uuid.NewString(),
		CustomerName:  sale.CustomerName,
		CustomerPhone: sale.CustomerPhone,
		TotalDebt:     sale.FinalTotal,
		PaidAmount:    sale.PaidAmount,
		DueDate:       sale.DueDate,
		Sales:         []model.Sale{sale},
		Payments:      []model.PaymentRecord{},
	}
	debtor.Recalculate()

	_, err := client.Mutate(ctx, s.co, model.TableDebtors, func(debtors []model.Debtor) ([]model.Debtor, error) {
		return append(debtors, debtor), nil
	})
	return err
}

// compensateStock restores the decremented quantities after a later step of
// the checkout failed. Best effort: a failure here is logged loudly — the
// operator sees the checkout error either way, and a resync reconciles.
func (s *SaleService) compensateStock(ctx context.Context, lines []CartLine) {
	_, err := client.Mutate(ctx, s.co, model.TableProducts, func(products []model.Product) ([]model.Product, error) {
		for _, line := range lines {
			for i := range products {
				if products[i].ID == line.ProductID {
					products[i].Stock += line.Quantity
					break
				}
			}
		}
		return products, nil
	})
	if err != nil {
		log.Error().Err(err).Msg("stock compensation failed, inventory needs manual review")
	}
}

func (s *SaleService) compensateSale(ctx context.Context, saleID string) {
	_, err := client.Mutate(ctx, s.co, model.TableSales, func(sales []model.Sale) ([]model.Sale, error) {
		next := make([]model.Sale, 0, len(sales))
		for _, sale := range sales {
			if sale.ID != saleID {
				next = append(next, sale)
			}
		}
		return next, nil
	})
	if err != nil {
		log.Error().Err(err).Str("sale_id", saleID).Msg("sale rollback failed")
	}
}

func discountPercent(discount, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() || discount.IsZero() {
		return decimal.Zero
	}
	return discount.Div(total).Mul(decimal.NewFromInt(100)).Round(0)
}
