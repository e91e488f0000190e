// Package retry tracks bounded attempt budgets for guarded generation.
// A Budget is created per operation and never shared across goroutines.
package retry

import "fmt"

// Budget counts attempts against a fixed maximum.
type Budget struct {
	Operation string
	Count     int
	Max       int
	// Reasons records why each failed attempt was rejected, in order.
	Reasons []string
}

// NewBudget returns a budget allowing max attempts. Values below one are
// raised to one so every operation gets at least a single attempt.
func NewBudget(operation string, max int) *Budget {
	if max < 1 {
		max = 1
	}
	return &Budget{Operation: operation, Max: max}
}

// Increment consumes one attempt. It returns ExhaustedError when the budget
// is already spent.
func (b *Budget) Increment() error {
	if b.Count >= b.Max {
		return &ExhaustedError{Operation: b.Operation, Count: b.Count, Max: b.Max, LastReason: b.LastReason()}
	}
	b.Count++
	return nil
}

// Reject records the reason the current attempt was refused.
func (b *Budget) Reject(reason string) {
	b.Reasons = append(b.Reasons, reason)
}

// LastReason returns the most recent rejection reason, or "".
func (b *Budget) LastReason() string {
	if len(b.Reasons) == 0 {
		return ""
	}
	return b.Reasons[len(b.Reasons)-1]
}

// ExhaustedError indicates the attempt limit has been reached.
type ExhaustedError struct {
	Operation  string
	Count      int
	Max        int
	LastReason string
}

func (e *ExhaustedError) Error() string {
	msg := fmt.Sprintf("attempt limit exhausted for %s (%d/%d attempts)", e.Operation, e.Count, e.Max)
	if e.LastReason != "" {
		msg += ": " + e.LastReason
	}
	return msg
}
