package storefront

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/erp/storefront/internal/domain/shared"
)

// RemovalPolicy decides what an optimistic removal does when the remote call fails.
type RemovalPolicy string

const (
	// RemovalKeepRemoved leaves the line out of the local cart and surfaces the error.
	RemovalKeepRemoved RemovalPolicy = "keep_removed"
	// RemovalRestore re-inserts the line at its original position.
	RemovalRestore RemovalPolicy = "restore"
	// RemovalTwoPhase shows the line as pending until the remote call resolves.
	RemovalTwoPhase RemovalPolicy = "two_phase"
)

// ParseRemovalPolicy parses a configured policy name. "" means RemovalKeepRemoved.
func ParseRemovalPolicy(s string) (RemovalPolicy, error) {
	switch p := RemovalPolicy(s); p {
	case "":
		return RemovalKeepRemoved, nil
	case RemovalKeepRemoved, RemovalRestore, RemovalTwoPhase:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown removal policy %q", shared.ErrInvalidInput, s)
	}
}

// Confirmer gates order placement on an explicit yes from the user.
type Confirmer interface {
	Confirm(ctx context.Context, total decimal.Decimal) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, total decimal.Decimal) bool

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, total decimal.Decimal) bool {
	return f(ctx, total)
}

// StaticConfirmer answers every prompt with the same decision. The BFF uses it
// to carry the client's already-collected answer.
type StaticConfirmer bool

// Confirm returns the fixed decision.
func (c StaticConfirmer) Confirm(context.Context, decimal.Decimal) bool {
	return bool(c)
}

// TotalConfirmer confirms only when the order total still equals the total
// the user was shown.
type TotalConfirmer struct {
	Shown decimal.Decimal
}

// Confirm reports whether total matches the shown total.
func (c TotalConfirmer) Confirm(_ context.Context, total decimal.Decimal) bool {
	return c.Shown.Equal(total)
}
