package domain

import "time"

// DeriveStatus computes the payment status from the paid amount, the total and the
// due date. It never yields CANCELLED, which is only set by an explicit cancellation.
func DeriveStatus(paid, total int64, dueDate *time.Time, now time.Time) PaymentStatus {
	switch {
	case paid >= total:
		return StatusPaid
	case paid > 0 && dueDate != nil && now.After(*dueDate):
		return StatusOverdue
	case paid > 0:
		return StatusPartial
	default:
		return StatusPending
	}
}

// IsOverdue reports whether an unsettled invoice is past its due date.
func IsOverdue(inv Invoice, now time.Time) bool {
	if inv.DueDate == nil {
		return false
	}
	switch inv.PaymentStatus {
	case StatusPending, StatusPartial:
		return now.After(*inv.DueDate)
	}
	return false
}

// Terminal reports whether the status admits no further payments.
func (s PaymentStatus) Terminal() bool {
	return s == StatusPaid || s == StatusCancelled
}
