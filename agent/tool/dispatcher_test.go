package tool

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	bookingx "github.com/tanpawarit/pawsome-voice-agent/agent/booking"
	contractx "github.com/tanpawarit/pawsome-voice-agent/agent/contract"
	identityx "github.com/tanpawarit/pawsome-voice-agent/agent/identity"
	paymentx "github.com/tanpawarit/pawsome-voice-agent/agent/payment"
	settlementx "github.com/tanpawarit/pawsome-voice-agent/agent/settlement"
	storex "github.com/tanpawarit/pawsome-voice-agent/agent/store"
)

var fixedNow = time.Date(2026, time.January, 15, 9, 30, 0, 0, time.UTC)

func newDispatcher(t *testing.T, opts ...Option) *Dispatcher {
	t.Helper()
	repo, err := storex.New(storex.WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	svc, err := NewServices(repo, settlementx.Policy{Percentage: settlementx.DefaultPercentage}, func() time.Time { return fixedNow })
	if err != nil {
		t.Fatalf("NewServices() error = %v", err)
	}
	d, err := NewDispatcher(svc, opts...)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}
	return d
}

func decode(t *testing.T, res contractx.ToolResult) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal([]byte(res.Encode()), &out); err != nil {
		t.Fatalf("decode %q: %v", res.Encode(), err)
	}
	return out
}

func TestDispatchVerifyIdentity(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t)
	res := d.Dispatch(context.Background(), contractx.ToolCall{
		ID:   "call_1",
		Name: "verifyIdentity",
		Args: map[string]any{"phoneNumber": "555-0101", "lastFourDigits": "0101"},
	})
	if !res.OK() || res.CallID != "call_1" {
		t.Fatalf("unexpected result %+v", res)
	}
	body := decode(t, res)
	if body["verified"] != true || body["customerId"] != "CUST001" {
		t.Fatalf("body = %v", body)
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t)
	res := d.Dispatch(context.Background(), contractx.ToolCall{ID: "x", Name: "refundEverything"})
	if res.OK() || res.Err.Code != contractx.ErrUnknownTool.Code {
		t.Fatalf("unexpected result %+v", res)
	}
	body := decode(t, res)
	if body["success"] != false || !strings.Contains(body["message"].(string), "refundEverything") {
		t.Fatalf("body = %v", body)
	}
}

func TestDispatchMissingArguments(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t)
	res := d.Dispatch(context.Background(), contractx.ToolCall{
		ID:   "c",
		Name: "bookAppointment",
		Args: map[string]any{"customerId": "CUST003", "date": "2026-01-16"},
	})
	if res.OK() || res.Err.Kind != contractx.KindValidation {
		t.Fatalf("unexpected result %+v", res)
	}
	if !strings.Contains(res.Err.Message, "time") || !strings.Contains(res.Err.Message, "serviceId") {
		t.Fatalf("Message = %q", res.Err.Message)
	}
}

func TestDispatchWeaklyTypedArguments(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t)
	res := d.Dispatch(context.Background(), contractx.ToolCall{
		ID:   "p",
		Name: "processPayment",
		Args: map[string]any{"customerId": "CUST001", "amount": "129.50"},
	})
	if !res.OK() {
		t.Fatalf("unexpected error %+v", res.Err)
	}
	body := decode(t, res)
	if body["bookingStatus"] != "allowed_with_prepayment" || body["newBalance"] != 55.5 {
		t.Fatalf("body = %v", body)
	}
	if body["paymentMethod"] != "card" {
		t.Fatalf("paymentMethod = %v", body["paymentMethod"])
	}
}

func TestDispatchRejectsPaymentMethod(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t)
	res := d.Dispatch(context.Background(), contractx.ToolCall{
		Name: "processPayment",
		Args: map[string]any{"customerId": "CUST001", "amount": 10, "paymentMethod": "crypto"},
	})
	if res.OK() || res.Err.Code != contractx.ErrInvalidArguments.Code {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestDispatchPolicyDetails(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t)
	res := d.Dispatch(context.Background(), contractx.ToolCall{
		Name: "bookAppointment",
		Args: map[string]any{"customerId": "CUST005", "date": "2026-01-17", "time": "9:00 AM", "serviceId": "bath_only"},
	})
	if res.OK() {
		t.Fatal("expected prepayment to be required")
	}
	body := decode(t, res)
	if body["requiresPrepayment"] != true || body["prepaymentAmount"] != 25.0 {
		t.Fatalf("body = %v", body)
	}
	if body["error"] != "prepayment_required" {
		t.Fatalf("error = %v", body["error"])
	}
}

type panicVerifier struct{}

func (panicVerifier) Verify(context.Context, string, string) (identityx.Result, error) {
	panic("lookup exploded")
}

type failingBalance struct{}

func (failingBalance) Balance(context.Context, string) (settlementx.BalanceResult, error) {
	return settlementx.BalanceResult{}, errors.New("ledger offline")
}

func TestDispatchContainsFaults(t *testing.T) {
	t.Parallel()

	d, err := NewDispatcher(Services{
		Identity: panicVerifier{},
		Balance:  failingBalance{},
		Payments: stubPayments{},
		Booking:  stubScheduler{},
	})
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	res := d.Dispatch(context.Background(), contractx.ToolCall{
		Name: "verifyIdentity",
		Args: map[string]any{"phoneNumber": "1", "lastFourDigits": "1"},
	})
	if res.OK() || res.Err.Kind != contractx.KindSystemFault || !strings.Contains(res.Err.Message, "lookup exploded") {
		t.Fatalf("panic result = %+v", res.Err)
	}

	res = d.Dispatch(context.Background(), contractx.ToolCall{
		Name: "getAccountBalance",
		Args: map[string]any{"customerId": "CUST001"},
	})
	if res.OK() || res.Err.Kind != contractx.KindSystemFault || res.Err.Message != "ledger offline" {
		t.Fatalf("error result = %+v", res.Err)
	}
}

type stubPayments struct{}

func (stubPayments) Process(context.Context, string, float64, paymentx.Method) (paymentx.Result, error) {
	return paymentx.Result{Success: true}, nil
}

type stubScheduler struct{}

func (stubScheduler) CheckEligibility(context.Context, string) (bookingx.Eligibility, error) {
	return bookingx.Eligibility{Success: true}, nil
}

func (stubScheduler) ListSlots(context.Context, string) (bookingx.SlotList, error) {
	return bookingx.SlotList{Success: true}, nil
}

func (stubScheduler) Book(context.Context, bookingx.BookRequest) (bookingx.Confirmation, error) {
	return bookingx.Confirmation{Success: true}, nil
}

func TestNewDispatcherRequiresServices(t *testing.T) {
	t.Parallel()

	if _, err := NewDispatcher(Services{Identity: panicVerifier{}}); err == nil {
		t.Fatal("expected error for missing services")
	}
}

func TestDispatchBatchKeepsOrder(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t, WithMaxConcurrency(3))
	calls := []contractx.ToolCall{
		{ID: "a", Name: "checkBookingEligibility", Args: map[string]any{"customerId": "CUST003"}},
		{ID: "b", Name: "nope"},
		{ID: "c", Name: "getAccountBalance", Args: map[string]any{"customerId": "CUST002"}},
		{ID: "d", Name: "getAccountBalance", Args: map[string]any{"customerId": "CUST999"}},
		{ID: "e", Name: "getAvailableSlots", Args: map[string]any{"customerId": "CUST001"}},
	}
	results := d.DispatchBatch(context.Background(), calls)
	if len(results) != len(calls) {
		t.Fatalf("len(results) = %d", len(results))
	}
	for i, res := range results {
		if res.CallID != calls[i].ID {
			t.Fatalf("result %d has call id %q, want %q", i, res.CallID, calls[i].ID)
		}
	}
	if !results[0].OK() || results[1].OK() || !results[2].OK() || results[3].OK() || !results[4].OK() {
		t.Fatalf("unexpected outcomes %+v", results)
	}
	if results[3].Err.Code != contractx.ErrCustomerNotFound.Code {
		t.Fatalf("unexpected error %+v", results[3].Err)
	}
}

func TestDispatchBatchEmpty(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t)
	if got := d.DispatchBatch(context.Background(), nil); got == nil || len(got) != 0 {
		t.Fatalf("DispatchBatch(nil) = %v", got)
	}
}

func TestDispatchNotifiesObservers(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		seen []string
	)
	d := newDispatcher(t, WithObserver(ObserverFunc(func(_ context.Context, call contractx.ToolCall, res contractx.ToolResult) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, call.ID)
	})))
	d.DispatchBatch(context.Background(), []contractx.ToolCall{
		{ID: "1", Name: "checkBookingEligibility", Args: map[string]any{"customerId": "CUST003"}},
		{ID: "2", Name: "nope"},
	})
	if len(seen) != 2 {
		t.Fatalf("observer saw %v", seen)
	}
}

func TestDispatchCancelledContext(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := d.Dispatch(ctx, contractx.ToolCall{Name: "getAccountBalance", Args: map[string]any{"customerId": "CUST001"}})
	if res.OK() || res.Err.Kind != contractx.KindSystemFault {
		t.Fatalf("unexpected result %+v", res)
	}
}
