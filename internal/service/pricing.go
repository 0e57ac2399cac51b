package service

import (
	"context"
	"fmt"

	"github.com/haripatel07/ecommerce-backend/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// MaxAmount is the largest charge, in minor units, the processor accepts.
const MaxAmount int64 = 99_999_999

// CalculateAmount prices items against the catalog. Client prices are never
// read; only ids and quantities come from the request.
func (s *PaymentService) CalculateAmount(ctx context.Context, items []domain.CartItem) (int64, error) {
	if len(items) == 0 {
		return 0, ErrInvalidAmount
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	products, err := s.catalog.ProductsByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to load products: %w", err)
	}

	return PriceCart(items, products, s.currency)
}

// PriceCart sums price*quantity over items with a positive quantity and a
// matching product, then rounds to the currency's minor unit. Repeated ids
// add up, so the result does not depend on item order.
func PriceCart(items []domain.CartItem, products []*domain.Product, unit currency.Unit) (int64, error) {
	quantities := make(map[string]decimal.Decimal, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		quantities[item.ProductID] = quantities[item.ProductID].Add(decimal.NewFromInt(item.Quantity))
	}

	total := decimal.Zero
	priced := make(map[string]struct{}, len(products))
	for _, p := range products {
		if _, done := priced[p.ID]; done {
			continue
		}
		q, ok := quantities[p.ID]
		if !ok {
			continue
		}
		priced[p.ID] = struct{}{}
		total = total.Add(decimal.NewFromFloat(p.Price).Mul(q))
	}

	minor := toMinorUnits(total, unit)
	if minor.LessThanOrEqual(decimal.Zero) {
		return 0, ErrInvalidAmount
	}
	if minor.GreaterThan(decimal.NewFromInt(MaxAmount)) {
		return 0, fmt.Errorf("%w: exceeds %d minor units", ErrInvalidAmount, MaxAmount)
	}

	return minor.IntPart(), nil
}

func toMinorUnits(amount decimal.Decimal, unit currency.Unit) decimal.Decimal {
	scale, _ := currency.Standard.Rounding(unit)
	return amount.Shift(int32(scale)).Round(0)
}
