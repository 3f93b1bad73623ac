package contract

import (
	"context"
	"time"
)

// Repository is the storage contract the tool engine depends on.
// Implementations must serialise mutations per record.
type Repository interface {
	// FindCustomerByPhoneFragment returns the first customer whose phone
	// matches the noisy input, or ErrCustomerNotFound.
	FindCustomerByPhoneFragment(ctx context.Context, phone string) (Customer, error)
	FindCustomerByID(ctx context.Context, id string) (Customer, error)
	ListCustomers(ctx context.Context) ([]Customer, error)

	ListServices(ctx context.Context) ([]Service, error)

	ListAvailableSlots(ctx context.Context) ([]Slot, error)
	// MarkSlotUnavailable flips an available slot to taken. It returns
	// ErrSlotUnavailable when the slot is unknown or already taken.
	MarkSlotUnavailable(ctx context.Context, date, time string) error

	// ApplyPayment lowers the outstanding balance by amount (floored at zero)
	// and stamps the payment date, atomically for the customer.
	ApplyPayment(ctx context.Context, customerID string, amount Money, paidOn time.Time) (PaymentApplication, error)
}

// TokenIssuer hands out short confirmation tokens meant to be read aloud.
type TokenIssuer interface {
	Issue(prefix string) string
}
