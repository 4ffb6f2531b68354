package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"buildpos/internal/cache"
	"buildpos/internal/client"
	"buildpos/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// CreateProductInput is the operator form for a new product.
type CreateProductInput struct {
	Name       string          `validate:"required"`
	Price      decimal.Decimal `validate:"min=0"`
	Stock      int             `validate:"min=0"`
	CategoryID string          `validate:"required"`
	Barcode    string
	Unit       string `validate:"required"`
	MinStock   int    `validate:"min=0"`
}

// ProductService owns catalog mutations and the low-stock report.
type ProductService struct {
	co     *client.Coordinator
	store  *client.Store
	sync   *CatalogSyncer
	cache  *cache.Cache
	alerts []model.StockAlert
}

// NewProductService wires the catalog service. syncer and c may be nil
// (headless tools); alerts falls back to the default thresholds.
func NewProductService(co *client.Coordinator, store *client.Store, syncer *CatalogSyncer, c *cache.Cache, alerts []model.StockAlert) *ProductService {
	if len(alerts) == 0 {
		alerts = model.DefaultStockAlerts
	}
	return &ProductService{co: co, store: store, sync: syncer, cache: c, alerts: alerts}
}

// List returns the catalog, falling back to the local cache when the store
// is unreachable so the terminal can keep rendering.
func (s *ProductService) List(ctx context.Context) ([]model.Product, error) {
	env, err := s.store.Get(ctx, model.TableProducts)
	if errors.Is(err, client.ErrStoreUnavailable) {
		if entry, ok := s.cache.Read(model.TableProducts); ok {
			log.Warn().Msg("store unreachable, serving cached products")
			var products []model.Product
			if jsonErr := json.Unmarshal(entry.Items, &products); jsonErr == nil {
				return products, nil
			}
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	s.cache.Write(model.TableProducts, env.Version, env.Items)
	var products []model.Product
	if err := json.Unmarshal(env.Items, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Create validates and appends a product. Requires products_manage.
func (s *ProductService) Create(ctx context.Context, actor *model.User, in CreateProductInput) (*model.Product, error) {
	if !actor.HasPermission(model.PermProductsManage) {
		return nil, ErrPermissionDenied
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	p := model.Product{
		ID:         uuid.NewString(),
		Name:       in.Name,
		Price:      in.Price,
		Stock:      in.Stock,
		CategoryID: in.CategoryID,
		Barcode:    in.Barcode,
		Unit:       in.Unit,
		MinStock:   in.MinStock,
	}
	if p.Barcode == "" {
		p.Barcode = model.DefaultBarcode(time.Now())
	}

	res, err := client.Mutate(ctx, s.co, model.TableProducts, func(products []model.Product) ([]model.Product, error) {
		for _, existing := range products {
			if existing.Barcode == p.Barcode {
				return nil, validationf("barcode %s already in use by %q", p.Barcode, existing.Name)
			}
		}
		return upsertProduct(products, p), nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCatalogChange(ctx, res)
	return &p, nil
}

// Update replaces an existing product wholesale. Requires products_manage.
func (s *ProductService) Update(ctx context.Context, actor *model.User, p model.Product) error {
	if !actor.HasPermission(model.PermProductsManage) {
		return ErrPermissionDenied
	}
	if p.Name == "" {
		return validationf("product name is required")
	}
	if p.Price.IsNegative() {
		return validationf("price must not be negative")
	}
	if p.Stock < 0 {
		return validationf("stock must not be negative")
	}

	res, err := client.Mutate(ctx, s.co, model.TableProducts, func(products []model.Product) ([]model.Product, error) {
		if !containsProduct(products, p.ID) {
			return nil, validationf("product %s not found", p.ID)
		}
		return upsertProduct(products, p), nil
	})
	if err != nil {
		return err
	}

	s.afterCatalogChange(ctx, res)
	return nil
}

// Delete removes a product from the catalog. Requires products_manage.
func (s *ProductService) Delete(ctx context.Context, actor *model.User, id string) error {
	if !actor.HasPermission(model.PermProductsManage) {
		return ErrPermissionDenied
	}

	res, err := client.Mutate(ctx, s.co, model.TableProducts, func(products []model.Product) ([]model.Product, error) {
		next := make([]model.Product, 0, len(products))
		found := false
		for _, p := range products {
			if p.ID == id {
				found = true
				continue
			}
			next = append(next, p)
		}
		if !found {
			return nil, validationf("product %s not found", id)
		}
		return next, nil
	})
	if err != nil {
		return err
	}

	s.afterCatalogChange(ctx, res)
	return nil
}

// AdjustStock applies a relative stock change, rejecting any adjustment that
// would persist a negative quantity.
func (s *ProductService) AdjustStock(ctx context.Context, actor *model.User, id string, delta int) error {
	if !actor.HasPermission(model.PermProductsManage) {
		return ErrPermissionDenied
	}

	res, err := client.Mutate(ctx, s.co, model.TableProducts, func(products []model.Product) ([]model.Product, error) {
		for i := range products {
			if products[i].ID != id {
				continue
			}
			if products[i].Stock+delta < 0 {
				return nil, validationf("stock of %q cannot go below zero", products[i].Name)
			}
			products[i].Stock += delta
			return products, nil
		}
		return nil, validationf("product %s not found", id)
	})
	if err != nil {
		return err
	}

	s.afterCatalogChange(ctx, res)
	return nil
}

// Classify buckets a product's stock against its unit threshold. Critical is
// the bottom quarter of the threshold, rounded up.
func (s *ProductService) Classify(p model.Product) model.StockLevel {
	if p.Stock <= 0 {
		return model.StockOut
	}
	threshold := s.thresholdFor(p.Unit)
	critical := int(math.Ceil(float64(threshold) * 0.25))
	switch {
	case p.Stock <= critical:
		return model.StockCritical
	case p.Stock <= threshold:
		return model.StockLow
	default:
		return model.StockSufficient
	}
}

// LowStockReport groups the catalog by stock level, skipping sufficient.
func (s *ProductService) LowStockReport(ctx context.Context) (map[model.StockLevel][]model.Product, error) {
	products, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	report := make(map[model.StockLevel][]model.Product)
	for _, p := range products {
		level := s.Classify(p)
		if level == model.StockSufficient {
			continue
		}
		report[level] = append(report[level], p)
	}
	return report, nil
}

func (s *ProductService) thresholdFor(unit string) int {
	for _, a := range s.alerts {
		if a.Unit == unit {
			return a.Threshold
		}
	}
	return 10
}

// afterCatalogChange caches the committed snapshot and notifies peers.
func (s *ProductService) afterCatalogChange(ctx context.Context, res *client.Result[model.Product]) {
	raw, err := json.Marshal(res.Items)
	if err != nil {
		return
	}
	s.cache.Write(model.TableProducts, res.Version, raw)
	if s.sync != nil {
		s.sync.BroadcastProducts(ctx, raw, res.Version)
	}
}

func upsertProduct(products []model.Product, p model.Product) []model.Product {
	for i := range products {
		if products[i].ID == p.ID {
			products[i] = p
			return products
		}
	}
	return append(products, p)
}

func containsProduct(products []model.Product, id string) bool {
	for _, p := range products {
		if p.ID == id {
			return true
		}
	}
	return false
}
