// Package booking gates appointment booking on the settlement standing of the
// account and reserves slots.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	confirmx "github.com/tanpawarit/pawsome-voice-agent/agent/confirm"
	contractx "github.com/tanpawarit/pawsome-voice-agent/agent/contract"
	settlementx "github.com/tanpawarit/pawsome-voice-agent/agent/settlement"
)

const (
	msgGoodStanding = "Account in good standing. Regular booking available."
	msgSettled      = "Settlement arrangement in place. Booking requires full prepayment for services."

	msgSlots           = "Here are available appointment slots. Please speak slowly when listing these to the customer."
	msgSlotsPrepayment = "Here are available slots. Remember, prepayment is required for booking. Please speak slowly when listing these to the customer."
)

type Eligibility struct {
	Success            bool            `json:"success"`
	CustomerID         string          `json:"customerId"`
	CanBook            bool            `json:"canBook"`
	RequiresPrepayment bool            `json:"requiresPrepayment"`
	OutstandingBalance contractx.Money `json:"outstandingBalance"`
	Message            string          `json:"message"`
}

type SlotList struct {
	Success            bool            `json:"success"`
	RequiresPrepayment bool            `json:"requiresPrepayment"`
	Slots              []SlotOption    `json:"slots"`
	Services           []ServiceOption `json:"services,omitempty"`
	Message            string          `json:"message"`
}

type BookRequest struct {
	CustomerID string
	Date       string
	Time       string
	ServiceID  string
	Prepaid    bool
}

type Confirmation struct {
	Success            bool            `json:"success"`
	ConfirmationNumber string          `json:"confirmationNumber"`
	CustomerID         string          `json:"customerId"`
	CustomerName       string          `json:"customerName"`
	PetNames           string          `json:"petNames"`
	Service            string          `json:"service"`
	ServiceID          string          `json:"serviceId"`
	ServicePrice       contractx.Money `json:"servicePrice"`
	Date               string          `json:"date"`
	Time               string          `json:"time"`
	Duration           int             `json:"duration"`
	Prepaid            bool            `json:"prepaid"`
	Message            string          `json:"message"`
}

type Option func(*Scheduler)

func WithTokenIssuer(tokens contractx.TokenIssuer) Option {
	return func(s *Scheduler) {
		if tokens != nil {
			s.tokens = tokens
		}
	}
}

type Scheduler struct {
	repo   contractx.Repository
	policy settlementx.Policy
	tokens contractx.TokenIssuer
}

func NewScheduler(repo contractx.Repository, policy settlementx.Policy, opts ...Option) (*Scheduler, error) {
	if repo == nil {
		return nil, errors.New("repository is required")
	}
	s := &Scheduler{repo: repo, policy: policy, tokens: confirmx.NewIssuer()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// CheckEligibility reads the account fresh on every call.
func (s *Scheduler) CheckEligibility(ctx context.Context, customerID string) (Eligibility, error) {
	c, err := s.repo.FindCustomerByID(ctx, customerID)
	if err != nil {
		return Eligibility{}, err
	}
	st := s.policy.Evaluate(c.OutstandingBalance, c.OriginalDebt)
	return Eligibility{
		Success:            true,
		CustomerID:         c.ID,
		CanBook:            st.CanBook,
		RequiresPrepayment: st.RequiresPrepayment,
		OutstandingBalance: c.OutstandingBalance,
		Message:            eligibilityMessage(st),
	}, nil
}

func (s *Scheduler) ListSlots(ctx context.Context, customerID string) (SlotList, error) {
	el, err := s.CheckEligibility(ctx, customerID)
	if err != nil {
		return SlotList{}, err
	}
	if !el.CanBook {
		return SlotList{Success: false, Slots: []SlotOption{}, Message: el.Message}, nil
	}

	slots, err := s.repo.ListAvailableSlots(ctx)
	if err != nil {
		return SlotList{}, fmt.Errorf("list slots: %w", err)
	}
	services, err := s.repo.ListServices(ctx)
	if err != nil {
		return SlotList{}, fmt.Errorf("list services: %w", err)
	}

	out := SlotList{
		Success:            true,
		RequiresPrepayment: el.RequiresPrepayment,
		Slots:              slotOptions(slots),
		Services:           serviceOptions(services),
		Message:            msgSlots,
	}
	if el.RequiresPrepayment {
		out.Message = msgSlotsPrepayment
	}
	return out, nil
}

func (s *Scheduler) Book(ctx context.Context, req BookRequest) (Confirmation, error) {
	c, err := s.repo.FindCustomerByID(ctx, req.CustomerID)
	if err != nil {
		return Confirmation{}, err
	}
	st := s.policy.Evaluate(c.OutstandingBalance, c.OriginalDebt)
	if !st.CanBook {
		return Confirmation{}, contractx.ErrNotEligible.WithMessage(eligibilityMessage(st))
	}

	services, err := s.repo.ListServices(ctx)
	if err != nil {
		return Confirmation{}, fmt.Errorf("list services: %w", err)
	}
	svc, found := findService(services, req.ServiceID)

	if st.RequiresPrepayment && !req.Prepaid {
		name := "this service"
		if found {
			name = svc.Name
		}
		return Confirmation{}, contractx.ErrPrepaymentRequired.
			WithMessage(fmt.Sprintf("Prepayment of %s required for %s before booking can be confirmed.", svc.Price, name)).
			WithDetail("requiresPrepayment", true).
			WithDetail("prepaymentAmount", svc.Price)
	}

	slots, err := s.repo.ListAvailableSlots(ctx)
	if err != nil {
		return Confirmation{}, fmt.Errorf("list slots: %w", err)
	}
	if !hasSlot(slots, req.Date, req.Time) {
		return Confirmation{}, contractx.ErrSlotUnavailable
	}
	if !found {
		return Confirmation{}, contractx.ErrInvalidService
	}
	// Another call may have taken the slot since it was listed.
	if err := s.repo.MarkSlotUnavailable(ctx, req.Date, req.Time); err != nil {
		return Confirmation{}, err
	}

	token := s.tokens.Issue(confirmx.PrefixBooking)
	pets := strings.Join(c.PetNames(), ", ")
	log.Ctx(ctx).Info().
		Str("customer_id", c.ID).
		Str("service_id", svc.ID).
		Str("slot", req.Date+" "+req.Time).
		Str("confirmation", token).
		Msg("appointment booked")

	return Confirmation{
		Success:            true,
		ConfirmationNumber: token,
		CustomerID:         c.ID,
		CustomerName:       c.FullName(),
		PetNames:           pets,
		Service:            svc.Name,
		ServiceID:          svc.ID,
		ServicePrice:       svc.Price,
		Date:               req.Date,
		Time:               req.Time,
		Duration:           svc.DurationMinutes,
		Prepaid:            req.Prepaid || !st.RequiresPrepayment,
		Message:            fmt.Sprintf("Appointment confirmed! %s for %s on %s at %s. Confirmation: %s", svc.Name, pets, req.Date, req.Time, token),
	}, nil
}

func eligibilityMessage(st settlementx.Standing) string {
	switch st.BookingStatus() {
	case settlementx.StatusAllowed:
		return msgGoodStanding
	case settlementx.StatusAllowedWithPrepayment:
		return msgSettled
	default:
		return fmt.Sprintf("Cannot book appointments. Outstanding balance of %s must be settled. Minimum payment of %s required.", st.Balance, st.Shortfall)
	}
}

func findService(services []contractx.Service, id string) (contractx.Service, bool) {
	id = strings.TrimSpace(id)
	for _, svc := range services {
		if svc.ID == id {
			return svc, true
		}
	}
	return contractx.Service{}, false
}

func hasSlot(slots []contractx.Slot, date, clock string) bool {
	date, clock = strings.TrimSpace(date), strings.TrimSpace(clock)
	for _, s := range slots {
		if s.Date == date && s.Time == clock {
			return true
		}
	}
	return false
}
