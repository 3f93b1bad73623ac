package webhook

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	activityx "github.com/tanpawarit/pawsome-voice-agent/agent/activity"
	contractx "github.com/tanpawarit/pawsome-voice-agent/agent/contract"
)

const defaultFeedLimit = 20

type Directory interface {
	FindCustomerByPhoneFragment(ctx context.Context, phone string) (contractx.Customer, error)
	ListCustomers(ctx context.Context) ([]contractx.Customer, error)
	ListServices(ctx context.Context) ([]contractx.Service, error)
	ListAvailableSlots(ctx context.Context) ([]contractx.Slot, error)
}

type Feed interface {
	Activities(limit int) []activityx.Entry
	Payments(limit int) []activityx.PaymentRecord
	Bookings(limit int) []activityx.BookingRecord
	Calls(limit int) []activityx.CallRecord
	Stats() activityx.Stats
}

type CustomerView struct {
	ID           string                  `json:"id"`
	Name         string                  `json:"name"`
	Phone        string                  `json:"phone"`
	Email        string                  `json:"email,omitempty"`
	Pets         []contractx.Pet         `json:"pets"`
	Balance      contractx.Money         `json:"balance"`
	OriginalDebt contractx.Money         `json:"originalDebt"`
	LastPayment  string                  `json:"lastPayment,omitempty"`
	Status       contractx.AccountStatus `json:"status"`
	Notes        string                  `json:"notes,omitempty"`
}

type DashboardStats struct {
	TotalOutstanding   contractx.Money `json:"totalOutstanding"`
	TotalAccounts      int             `json:"totalAccounts"`
	AccountsWithDebt   int             `json:"accountsWithDebt"`
	CallsToday         int             `json:"callsToday"`
	SuccessfulCalls    int             `json:"successfulCalls"`
	RecoveryRate       int             `json:"recoveryRate"`
	TotalPaymentsToday contractx.Money `json:"totalPaymentsToday"`
}

type Dashboard struct {
	service   string
	directory Directory
	feed      Feed
	now       func() time.Time
}

func NewDashboard(service string, directory Directory, feed Feed) *Dashboard {
	return &Dashboard{service: service, directory: directory, feed: feed, now: time.Now}
}

func (d *Dashboard) Health(rw http.ResponseWriter, r *http.Request) {
	respond(r.Context(), rw, http.StatusOK, map[string]string{
		"status":    "healthy",
		"service":   d.service,
		"timestamp": d.now().UTC().Format(time.RFC3339),
	})
}

func (d *Dashboard) Customers(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customers, err := d.directory.ListCustomers(ctx)
	if err != nil {
		d.fail(ctx, rw, "ListCustomers", err)
		return
	}
	out := make([]CustomerView, 0, len(customers))
	for _, c := range customers {
		out = append(out, customerView(c))
	}
	respond(ctx, rw, http.StatusOK, out)
}

func (d *Dashboard) Customer(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := d.directory.FindCustomerByPhoneFragment(ctx, chi.URLParam(r, "phone"))
	if err != nil {
		if errors.Is(err, contractx.ErrCustomerNotFound) {
			respondErr(ctx, rw, http.StatusNotFound, "Customer not found")
			return
		}
		d.fail(ctx, rw, "FindCustomerByPhoneFragment", err)
		return
	}
	respond(ctx, rw, http.StatusOK, customerView(c))
}

func (d *Dashboard) Services(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	services, err := d.directory.ListServices(ctx)
	if err != nil {
		d.fail(ctx, rw, "ListServices", err)
		return
	}
	respond(ctx, rw, http.StatusOK, services)
}

func (d *Dashboard) Slots(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slots, err := d.directory.ListAvailableSlots(ctx)
	if err != nil {
		d.fail(ctx, rw, "ListAvailableSlots", err)
		return
	}
	respond(ctx, rw, http.StatusOK, slots)
}

func (d *Dashboard) Activity(rw http.ResponseWriter, r *http.Request) {
	respond(r.Context(), rw, http.StatusOK, d.feed.Activities(limitParam(r)))
}

func (d *Dashboard) Payments(rw http.ResponseWriter, r *http.Request) {
	respond(r.Context(), rw, http.StatusOK, d.feed.Payments(limitParam(r)))
}

func (d *Dashboard) Bookings(rw http.ResponseWriter, r *http.Request) {
	respond(r.Context(), rw, http.StatusOK, d.feed.Bookings(limitParam(r)))
}

func (d *Dashboard) Calls(rw http.ResponseWriter, r *http.Request) {
	respond(r.Context(), rw, http.StatusOK, d.feed.Calls(limitParam(r)))
}

func (d *Dashboard) Stats(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customers, err := d.directory.ListCustomers(ctx)
	if err != nil {
		d.fail(ctx, rw, "ListCustomers", err)
		return
	}

	var st DashboardStats
	for _, c := range customers {
		st.TotalAccounts++
		st.TotalOutstanding += c.OutstandingBalance
		if c.OutstandingBalance > 0 {
			st.AccountsWithDebt++
		}
	}
	if st.TotalAccounts > 0 {
		cleared := st.TotalAccounts - st.AccountsWithDebt
		st.RecoveryRate = (cleared*100 + st.TotalAccounts/2) / st.TotalAccounts
	}

	feed := d.feed.Stats()
	st.CallsToday = feed.CallsToday
	st.SuccessfulCalls = feed.SuccessfulCalls
	st.TotalPaymentsToday = feed.TotalPaymentsToday
	respond(ctx, rw, http.StatusOK, st)
}

func (d *Dashboard) fail(ctx context.Context, rw http.ResponseWriter, op string, err error) {
	log.Ctx(ctx).Error().Err(err).Str("op", op).Msg("dashboard request failed")
	respondErr(ctx, rw, http.StatusInternalServerError, "Internal server error")
}

func customerView(c contractx.Customer) CustomerView {
	return CustomerView{
		ID:           c.ID,
		Name:         c.FullName(),
		Phone:        c.Phone,
		Email:        c.Email,
		Pets:         c.Pets,
		Balance:      c.OutstandingBalance,
		OriginalDebt: c.OriginalDebt,
		LastPayment:  c.LastPaymentDate,
		Status:       c.Status(),
		Notes:        c.Notes,
	}
}

func limitParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return defaultFeedLimit
	}
	return n
}
