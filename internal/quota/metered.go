package quota

import (
	"context"
	"fmt"
)

// Reserver charges operations against the budget
type Reserver interface {
	Reserve(ctx context.Context, op Operation, qty int) (Decision, error)
}

// Metered wraps fn so that every call, retries included, is charged one op
// before the request goes out. A denied reservation fails with
// ErrBudgetExhausted without calling fn.
func Metered(budget Reserver, op Operation, fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		decision, err := budget.Reserve(ctx, op, 1)
		if err != nil {
			return err
		}
		if decision == Denied {
			return fmt.Errorf("%s: %w", op, ErrBudgetExhausted)
		}
		return fn(ctx)
	}
}
