package activity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	bookingx "github.com/tanpawarit/pawsome-voice-agent/agent/booking"
	contractx "github.com/tanpawarit/pawsome-voice-agent/agent/contract"
	identityx "github.com/tanpawarit/pawsome-voice-agent/agent/identity"
	paymentx "github.com/tanpawarit/pawsome-voice-agent/agent/payment"
	storex "github.com/tanpawarit/pawsome-voice-agent/agent/store"
)

var fixedNow = time.Date(2026, time.January, 15, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func TestRecorderRingIsBounded(t *testing.T) {
	t.Parallel()

	r := NewRecorder(WithCapacity(3), WithClock(clock))
	for i := 1; i <= 5; i++ {
		r.LogPayment(context.Background(), PaymentRecord{ID: string(rune('0' + i)), CustomerID: "CUST002", Amount: contractx.Money(i * 100)})
	}
	got := r.Activities(0)
	if len(got) != 3 {
		t.Fatalf("len(Activities) = %d, want 3", len(got))
	}
	if got[0].Message != "Payment of $5.00 received from CUST002" {
		t.Fatalf("newest entry = %q", got[0].Message)
	}
	payments := r.Payments(2)
	if len(payments) != 2 || payments[0].ID != "5" || payments[1].ID != "4" {
		t.Fatalf("Payments(2) = %+v", payments)
	}
}

func TestObserveToolRecordsOutcomes(t *testing.T) {
	t.Parallel()

	repo, err := storex.New()
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	r := NewRecorder(WithClock(clock), WithCustomers(repo))
	ctx := WithCallID(context.Background(), "call-1")

	r.ObserveTool(ctx, contractx.ToolCall{}, contractx.ToolResult{Payload: identityx.Result{Verified: true, FirstName: "Sarah", LastName: "Johnson"}})
	r.ObserveTool(ctx, contractx.ToolCall{}, contractx.ToolResult{Payload: paymentx.Result{
		CustomerID:             "CUST001",
		PaymentAmount:          12950,
		PreviousBalance:        18500,
		NewBalance:             5550,
		MeetsMinimumSettlement: true,
		ConfirmationNumber:     "PAY-1",
	}})
	r.ObserveTool(ctx, contractx.ToolCall{}, contractx.ToolResult{Payload: bookingx.Confirmation{
		ConfirmationNumber: "APT-1",
		CustomerName:       "Sarah Johnson",
		Date:               "2026-01-16",
	}})
	// failures and unrelated payloads are ignored
	r.ObserveTool(ctx, contractx.ToolCall{}, contractx.ToolResult{Err: contractx.ErrSlotUnavailable})
	r.ObserveTool(ctx, contractx.ToolCall{}, contractx.ToolResult{Payload: bookingx.Eligibility{}})

	if n := len(r.Activities(0)); n != 3 {
		t.Fatalf("len(Activities) = %d, want 3", n)
	}
	p := r.Payments(0)
	if len(p) != 1 || p[0].CustomerName != "Sarah Johnson" || p[0].Type != PaymentSettlement {
		t.Fatalf("Payments = %+v", p)
	}

	call := r.EndCall(ctx, "call-1", "customer-ended-call", 95*time.Second)
	if call.Outcome != OutcomeBooking || call.CustomerName != "Sarah Johnson" {
		t.Fatalf("call = %+v", call)
	}

	st := r.Stats()
	want := Stats{CallsToday: 1, SuccessfulCalls: 1, TotalPaymentsToday: 12950, TotalCalls: 1, TotalPayments: 1, TotalBookings: 1}
	if st != want {
		t.Fatalf("Stats() = %+v, want %+v", st, want)
	}
}

func TestEndCallWithoutActivity(t *testing.T) {
	t.Parallel()

	r := NewRecorder(WithClock(clock))
	call := r.EndCall(context.Background(), "", "silence-timed-out", 0)
	if call.ID == "" || call.Outcome != OutcomeNone || call.CustomerName != "Unknown" {
		t.Fatalf("call = %+v", call)
	}
	if r.Stats().SuccessfulCalls != 0 {
		t.Fatal("call without outcome counted as successful")
	}
}

func TestPublisherFailuresAreSwallowed(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		seen []Kind
	)
	pub := PublisherFunc(func(ctx context.Context, e Entry) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.Kind)
		if _, ok := ctx.Deadline(); !ok {
			t.Errorf("publish context has no deadline")
		}
		return errors.New("broker down")
	})
	r := NewRecorder(WithClock(clock), WithPublisher(pub, time.Second))

	r.LogBooking(context.Background(), BookingRecord{ID: "APT-1", CustomerName: "Emily Rodriguez", Date: "2026-01-16"})
	r.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0] != KindBooking {
		t.Fatalf("published = %v", seen)
	}
	if len(r.Bookings(0)) != 1 {
		t.Fatal("booking not recorded")
	}
}

func TestStatsIgnoresOtherDays(t *testing.T) {
	t.Parallel()

	now := fixedNow.AddDate(0, 0, -1)
	r := NewRecorder(WithClock(func() time.Time { return now }))
	r.LogPayment(context.Background(), PaymentRecord{Amount: 1000})
	now = fixedNow
	r.LogPayment(context.Background(), PaymentRecord{Amount: 250})

	st := r.Stats()
	if st.TotalPaymentsToday != 250 || st.TotalPayments != 2 {
		t.Fatalf("Stats() = %+v", st)
	}
}
