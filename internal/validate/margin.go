// Package validate holds input-boundary policy checks. The calculators accept any
// numeric input; these checks gate persistence only.
package validate

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/fuelprice/internal/domain"
)

// Role identifies who owns a build-up entry.
type Role string

const (
	RoleCommercial Role = "commercial"
	RoleRegulator  Role = "regulator"
)

// DefaultSupplierMarginFloorUSD is the minimum commercial supplier margin.
var DefaultSupplierMarginFloorUSD = decimal.NewFromInt(40)

var (
	// ErrMarginBelowFloor is returned when a commercial margin is under the configured floor.
	ErrMarginBelowFloor = errors.New("supplier margin below floor")
	ErrUnknownRole      = errors.New("unknown role")
)

// SupplierMargin checks the margin floor for commercial entries. Other roles are not constrained.
func SupplierMargin(role Role, margin, floor decimal.Decimal) error {
	if role != RoleCommercial {
		return nil
	}
	if margin.LessThan(floor) {
		return fmt.Errorf("%w: %s USD < %s USD", ErrMarginBelowFloor, margin, floor)
	}
	return nil
}

// MarginFromPercent converts a margin entered as a percentage of a base into an amount.
// The conversion happens once at the boundary; the rollup only ever sees amounts.
func MarginFromPercent(base, percent decimal.Decimal) decimal.Decimal {
	return domain.PercentOf(base, percent)
}

// ParseRole validates a role name. Empty means commercial.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case "":
		return RoleCommercial, nil
	case RoleCommercial, RoleRegulator:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}
