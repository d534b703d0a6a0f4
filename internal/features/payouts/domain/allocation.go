package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AllocationPolicy splits an order's shipping cost between its sellers.
// Allocate returns one share per entry of itemsTotals, in the same order,
// and the shares always sum to shipping exactly.
type AllocationPolicy interface {
	Name() string
	Allocate(shipping decimal.Decimal, itemsTotals []decimal.Decimal) []decimal.Decimal
}

// ProportionalPolicy allocates shipping by each seller's share of the order subtotal.
type ProportionalPolicy struct{}

// Name returns "proportional".
func (ProportionalPolicy) Name() string { return "proportional" }

// Allocate rounds each share to 2 decimals and gives the remainder to the last seller.
// A zero subtotal falls back to an equal split.
func (ProportionalPolicy) Allocate(shipping decimal.Decimal, itemsTotals []decimal.Decimal) []decimal.Decimal {
	subtotal := decimal.Sum(decimal.Zero, itemsTotals...)
	if !subtotal.IsPositive() {
		return EqualPolicy{}.Allocate(shipping, itemsTotals)
	}

	return withRemainder(shipping, len(itemsTotals), func(i int) decimal.Decimal {
		return shipping.Mul(itemsTotals[i]).Div(subtotal).Round(2)
	})
}

// EqualPolicy splits shipping evenly between sellers.
type EqualPolicy struct{}

// Name returns "equal".
func (EqualPolicy) Name() string { return "equal" }

// Allocate rounds each share to 2 decimals and gives the remainder to the last seller.
func (EqualPolicy) Allocate(shipping decimal.Decimal, itemsTotals []decimal.Decimal) []decimal.Decimal {
	n := len(itemsTotals)
	if n == 0 {
		return nil
	}
	share := shipping.Div(decimal.NewFromInt(int64(n))).Round(2)
	return withRemainder(shipping, n, func(int) decimal.Decimal { return share })
}

func withRemainder(total decimal.Decimal, n int, share func(i int) decimal.Decimal) []decimal.Decimal {
	if n == 0 {
		return nil
	}

	shares := make([]decimal.Decimal, n)
	allocated := decimal.Zero
	for i := 0; i < n-1; i++ {
		shares[i] = share(i)
		allocated = allocated.Add(shares[i])
	}
	shares[n-1] = total.Sub(allocated)
	return shares
}

// PolicyByName returns the allocation policy registered under name.
func PolicyByName(name string) (AllocationPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "proportional":
		return ProportionalPolicy{}, nil
	case "equal":
		return EqualPolicy{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
}
