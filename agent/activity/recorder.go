// Package activity keeps the recent history of calls, payments and bookings
// shown on the dashboard, and optionally forwards each event downstream.
package activity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	bookingx "github.com/tanpawarit/pawsome-voice-agent/agent/booking"
	contractx "github.com/tanpawarit/pawsome-voice-agent/agent/contract"
	identityx "github.com/tanpawarit/pawsome-voice-agent/agent/identity"
	paymentx "github.com/tanpawarit/pawsome-voice-agent/agent/payment"
)

const (
	DefaultCapacity       = 50
	DefaultPublishTimeout = 5 * time.Second
)

type Kind string

const (
	KindCall         Kind = "call"
	KindVerification Kind = "verification"
	KindPayment      Kind = "payment"
	KindBooking      Kind = "booking"
)

type Entry struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"type"`
	Message   string    `json:"message"`
	Details   any       `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type PaymentType string

const (
	PaymentFull       PaymentType = "full"
	PaymentSettlement PaymentType = "settlement"
	PaymentPartial    PaymentType = "partial"
)

type PaymentRecord struct {
	ID              string          `json:"id"`
	CustomerID      string          `json:"customerId"`
	CustomerName    string          `json:"customerName"`
	Amount          contractx.Money `json:"amount"`
	Type            PaymentType     `json:"type"`
	PreviousBalance contractx.Money `json:"previousBalance"`
	NewBalance      contractx.Money `json:"newBalance"`
	Timestamp       time.Time       `json:"timestamp"`
}

type BookingRecord struct {
	ID           string          `json:"id"`
	CustomerID   string          `json:"customerId"`
	CustomerName string          `json:"customerName"`
	PetNames     string          `json:"petNames"`
	Service      string          `json:"service"`
	Price        contractx.Money `json:"price"`
	Date         string          `json:"date"`
	Time         string          `json:"time"`
	Prepaid      bool            `json:"prepaid"`
	Timestamp    time.Time       `json:"timestamp"`
}

type CallOutcome string

const (
	OutcomeNone    CallOutcome = "none"
	OutcomePayment CallOutcome = "payment"
	OutcomeBooking CallOutcome = "booking"
)

type CallRecord struct {
	ID              string      `json:"id"`
	CustomerName    string      `json:"customerName"`
	EndedReason     string      `json:"endedReason,omitempty"`
	DurationSeconds float64     `json:"duration"`
	Outcome         CallOutcome `json:"outcome"`
	Timestamp       time.Time   `json:"timestamp"`
}

type Stats struct {
	CallsToday         int             `json:"callsToday"`
	SuccessfulCalls    int             `json:"successfulCalls"`
	TotalPaymentsToday contractx.Money `json:"totalPaymentsToday"`
	TotalCalls         int             `json:"totalCalls"`
	TotalPayments      int             `json:"totalPayments"`
	TotalBookings      int             `json:"totalBookings"`
}

// Publisher forwards entries to another system. Failures are logged only.
type Publisher interface {
	Publish(ctx context.Context, e Entry) error
}

type PublisherFunc func(ctx context.Context, e Entry) error

func (f PublisherFunc) Publish(ctx context.Context, e Entry) error {
	return f(ctx, e)
}

// CustomerLookup resolves display names for entries.
type CustomerLookup interface {
	FindCustomerByID(ctx context.Context, id string) (contractx.Customer, error)
}

type Option func(*Recorder)

func WithCapacity(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.capacity = n
		}
	}
}

func WithPublisher(p Publisher, timeout time.Duration) Option {
	return func(r *Recorder) {
		if p == nil {
			return
		}
		r.publisher = p
		if timeout > 0 {
			r.publishTimeout = timeout
		}
	}
}

func WithCustomers(c CustomerLookup) Option {
	return func(r *Recorder) {
		r.customers = c
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

type callKey struct{}

// WithCallID tags ctx with the platform call id so tool outcomes can be
// attributed to the call when it ends.
func WithCallID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, callKey{}, id)
}

func callIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(callKey{}).(string)
	return id
}

type callState struct {
	customerName string
	outcome      CallOutcome
}

// Recorder keeps bounded, newest-first histories in memory.
type Recorder struct {
	mu       sync.RWMutex
	seq      uint64
	entries  []Entry
	payments []PaymentRecord
	bookings []BookingRecord
	calls    []CallRecord
	open     map[string]*callState

	capacity       int
	customers      CustomerLookup
	publisher      Publisher
	publishTimeout time.Duration
	now            func() time.Time
	wg             sync.WaitGroup
}

func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		capacity:       DefaultCapacity,
		publishTimeout: DefaultPublishTimeout,
		open:           make(map[string]*callState),
		now:            time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// ObserveTool records the outcome of a successful verification, payment or
// booking. Other results are ignored.
func (r *Recorder) ObserveTool(ctx context.Context, _ contractx.ToolCall, res contractx.ToolResult) {
	if !res.OK() {
		return
	}
	callID := callIDFrom(ctx)
	switch p := res.Payload.(type) {
	case identityx.Result:
		if !p.Verified {
			return
		}
		name := p.FirstName + " " + p.LastName
		r.touchCall(callID, name, "")
		r.add(ctx, KindVerification, fmt.Sprintf("Identity verified for %s", name), p)
	case paymentx.Result:
		r.LogPayment(ctx, PaymentRecord{
			ID:              p.ConfirmationNumber,
			CustomerID:      p.CustomerID,
			CustomerName:    r.customerName(ctx, p.CustomerID),
			Amount:          p.PaymentAmount,
			Type:            paymentType(p),
			PreviousBalance: p.PreviousBalance,
			NewBalance:      p.NewBalance,
		})
		r.touchCall(callID, "", OutcomePayment)
	case bookingx.Confirmation:
		r.LogBooking(ctx, BookingRecord{
			ID:           p.ConfirmationNumber,
			CustomerID:   p.CustomerID,
			CustomerName: p.CustomerName,
			PetNames:     p.PetNames,
			Service:      p.Service,
			Price:        p.ServicePrice,
			Date:         p.Date,
			Time:         p.Time,
			Prepaid:      p.Prepaid,
		})
		r.touchCall(callID, p.CustomerName, OutcomeBooking)
	}
}

func (r *Recorder) LogPayment(ctx context.Context, rec PaymentRecord) PaymentRecord {
	r.mu.Lock()
	rec.Timestamp = r.now()
	r.payments = prepend(r.payments, rec, r.capacity)
	r.mu.Unlock()

	who := rec.CustomerName
	if who == "" {
		who = rec.CustomerID
	}
	r.add(ctx, KindPayment, fmt.Sprintf("Payment of %s received from %s", rec.Amount, who), rec)
	return rec
}

func (r *Recorder) LogBooking(ctx context.Context, rec BookingRecord) BookingRecord {
	r.mu.Lock()
	rec.Timestamp = r.now()
	r.bookings = prepend(r.bookings, rec, r.capacity)
	r.mu.Unlock()

	r.add(ctx, KindBooking, fmt.Sprintf("Appointment booked for %s on %s", rec.CustomerName, rec.Date), rec)
	return rec
}

// EndCall closes the call with the given platform id. Outcomes seen during
// the call are folded into the record.
func (r *Recorder) EndCall(ctx context.Context, id, endedReason string, duration time.Duration) CallRecord {
	r.mu.Lock()
	rec := CallRecord{
		ID:              id,
		CustomerName:    "Unknown",
		EndedReason:     endedReason,
		DurationSeconds: duration.Seconds(),
		Outcome:         OutcomeNone,
		Timestamp:       r.now(),
	}
	if st, ok := r.open[id]; ok {
		if st.customerName != "" {
			rec.CustomerName = st.customerName
		}
		rec.Outcome = st.outcome
		delete(r.open, id)
	}
	if rec.ID == "" {
		r.seq++
		rec.ID = fmt.Sprintf("CALL%d", r.seq)
	}
	r.calls = prepend(r.calls, rec, r.capacity)
	r.mu.Unlock()

	r.add(ctx, KindCall, fmt.Sprintf("Call completed with %s", rec.CustomerName), rec)
	return rec
}

func (r *Recorder) Activities(limit int) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return head(r.entries, limit)
}

func (r *Recorder) Payments(limit int) []PaymentRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return head(r.payments, limit)
}

func (r *Recorder) Bookings(limit int) []BookingRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return head(r.bookings, limit)
}

func (r *Recorder) Calls(limit int) []CallRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return head(r.calls, limit)
}

// Stats summarises the retained history. "Today" follows the recorder clock.
func (r *Recorder) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	y, m, d := r.now().Date()
	sameDay := func(t time.Time) bool {
		ty, tm, td := t.Date()
		return ty == y && tm == m && td == d
	}

	st := Stats{
		TotalCalls:    len(r.calls),
		TotalPayments: len(r.payments),
		TotalBookings: len(r.bookings),
	}
	for _, c := range r.calls {
		if sameDay(c.Timestamp) {
			st.CallsToday++
		}
		if c.Outcome == OutcomePayment || c.Outcome == OutcomeBooking {
			st.SuccessfulCalls++
		}
	}
	for _, p := range r.payments {
		if sameDay(p.Timestamp) {
			st.TotalPaymentsToday += p.Amount
		}
	}
	return st
}

// Wait blocks until in-flight publishes finish.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

func (r *Recorder) add(ctx context.Context, kind Kind, msg string, details any) {
	r.mu.Lock()
	r.seq++
	e := Entry{
		ID:        fmt.Sprintf("ACT%d", r.seq),
		Kind:      kind,
		Message:   msg,
		Details:   details,
		Timestamp: r.now(),
	}
	r.entries = prepend(r.entries, e, r.capacity)
	r.mu.Unlock()

	if r.publisher != nil {
		r.publish(ctx, e)
	}
}

func (r *Recorder) publish(ctx context.Context, e Entry) {
	logger := log.Ctx(ctx).With().Str("activity_id", e.ID).Logger()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.publishTimeout)
		defer cancel()
		if err := r.publisher.Publish(pctx, e); err != nil {
			logger.Warn().Err(err).Msg("activity publish failed")
		}
	}()
}

func (r *Recorder) touchCall(id, customerName string, outcome CallOutcome) {
	if id == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.open[id]
	if !ok {
		st = &callState{outcome: OutcomeNone}
		r.open[id] = st
	}
	if customerName != "" {
		st.customerName = customerName
	}
	// a booking outranks a payment made earlier in the same call
	if outcome == OutcomeBooking || (outcome == OutcomePayment && st.outcome == OutcomeNone) {
		st.outcome = outcome
	}
}

func (r *Recorder) customerName(ctx context.Context, id string) string {
	if r.customers == nil {
		return ""
	}
	c, err := r.customers.FindCustomerByID(ctx, id)
	if err != nil {
		return ""
	}
	return c.FullName()
}

func paymentType(p paymentx.Result) PaymentType {
	switch {
	case p.IsFullPayment:
		return PaymentFull
	case p.MeetsMinimumSettlement:
		return PaymentSettlement
	default:
		return PaymentPartial
	}
}

func prepend[T any](list []T, v T, capacity int) []T {
	list = append(list, v)
	copy(list[1:], list[:len(list)-1])
	list[0] = v
	if len(list) > capacity {
		list = list[:capacity]
	}
	return list
}

func head[T any](list []T, limit int) []T {
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}
	return append(make([]T, 0, limit), list[:limit]...)
}
