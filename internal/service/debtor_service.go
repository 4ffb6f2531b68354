package service

import (
	"context"
	"encoding/json"
	"time"

	"buildpos/internal/cache"
	"buildpos/internal/client"
	"buildpos/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// DebtorService manages outstanding credit-sale balances. Debtors are
// created by SaleService at checkout; here we read them and apply payments.
type DebtorService struct {
	co    *client.Coordinator
	store *client.Store
	cache *cache.Cache
}

func NewDebtorService(co *client.Coordinator, store *client.Store, c *cache.Cache) *DebtorService {
	return &DebtorService{co: co, store: store, cache: c}
}

func (s *DebtorService) List(ctx context.Context) ([]model.Debtor, error) {
	env, err := s.store.Get(ctx, model.TableDebtors)
	if err != nil {
		if entry, ok := s.cache.Read(model.TableDebtors); ok {
			var debtors []model.Debtor
			if jsonErr := json.Unmarshal(entry.Items, &debtors); jsonErr == nil {
				return debtors, nil
			}
		}
		return nil, err
	}
	s.cache.Write(model.TableDebtors, env.Version, env.Items)
	var debtors []model.Debtor
	if err := json.Unmarshal(env.Items, &debtors); err != nil {
		return nil, err
	}
	return debtors, nil
}

// ApplyPayment records an installment against a debtor. The amount must be
// positive and is capped at the remaining balance; a payment that clears the
// balance flips the debtor to paid.
func (s *DebtorService) ApplyPayment(ctx context.Context, actor *model.User, debtorID string, amount decimal.Decimal) (*model.Debtor, error) {
	if !actor.HasPermission(model.PermDebtorsManage) {
		return nil, ErrPermissionDenied
	}
	if !amount.IsPositive() {
		return nil, validationf("payment amount must be positive")
	}

	record := model.PaymentRecord{
		ID:       uuid.NewString(),
		DebtorID: debtorID,
		Date:     time.Now(),
		Amount:   amount,
	}

	var updated model.Debtor
	res, err := client.Mutate(ctx, s.co, model.TableDebtors, func(debtors []model.Debtor) ([]model.Debtor, error) {
		idx := -1
		for i := range debtors {
			if debtors[i].ID == debtorID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, validationf("debtor %s not found", debtorID)
		}
		d := &debtors[idx]
		if amount.GreaterThan(d.RemainingDebt) {
			return nil, validationf("payment %s exceeds remaining debt %s", amount, d.RemainingDebt)
		}
		d.PaidAmount = d.PaidAmount.Add(amount)
		d.Recalculate()
		d.Payments = append(d.Payments, record)
		updated = *d
		return debtors, nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Write(model.TableDebtors, res.Version, mustMarshal(res.Items))

	// The flat payments table feeds reporting only. Best effort: the
	// record already lives inside the debtor, which is authoritative.
	if _, err := client.Mutate(ctx, s.co, model.TablePayments, func(payments []model.PaymentRecord) ([]model.PaymentRecord, error) {
		return append(payments, record), nil
	}); err != nil {
		log.Warn().Err(err).Str("debtor_id", debtorID).Msg("payments table append failed")
	}

	return &updated, nil
}

func mustMarshal(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("[]")
	}
	return raw
}
