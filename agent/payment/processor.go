// Package payment applies caller payments against outstanding balances.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	confirmx "github.com/tanpawarit/pawsome-voice-agent/agent/confirm"
	contractx "github.com/tanpawarit/pawsome-voice-agent/agent/contract"
	settlementx "github.com/tanpawarit/pawsome-voice-agent/agent/settlement"
)

type Method string

const (
	MethodCard         Method = "card"
	MethodBankTransfer Method = "bank_transfer"
)

type Result struct {
	Success                 bool                      `json:"success"`
	CustomerID              string                    `json:"customerId"`
	PaymentAmount           contractx.Money           `json:"paymentAmount"`
	PaymentMethod           Method                    `json:"paymentMethod"`
	PreviousBalance         contractx.Money           `json:"previousBalance"`
	NewBalance              contractx.Money           `json:"newBalance"`
	IsFullPayment           bool                      `json:"isFullPayment"`
	MeetsMinimumSettlement  bool                      `json:"meetsMinimumSettlement"`
	MinimumSettlementAmount contractx.Money           `json:"minimumSettlementAmount"`
	SettlementPercentage    int                       `json:"settlementPercentage"`
	BookingStatus           settlementx.BookingStatus `json:"bookingStatus"`
	ConfirmationNumber      string                    `json:"confirmationNumber"`
	Message                 string                    `json:"message"`
}

type Option func(*Processor)

func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

func WithTokenIssuer(tokens contractx.TokenIssuer) Option {
	return func(p *Processor) {
		if tokens != nil {
			p.tokens = tokens
		}
	}
}

// Processor takes payments. Applying a payment cannot be undone.
type Processor struct {
	repo   contractx.Repository
	policy settlementx.Policy
	tokens contractx.TokenIssuer
	now    func() time.Time
}

func NewProcessor(repo contractx.Repository, policy settlementx.Policy, opts ...Option) (*Processor, error) {
	if repo == nil {
		return nil, errors.New("repository is required")
	}
	p := &Processor{
		repo:   repo,
		policy: policy,
		tokens: confirmx.NewIssuer(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

// ParseMethod defaults an empty method to card.
func ParseMethod(raw string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(raw))); m {
	case "":
		return MethodCard, nil
	case MethodCard, MethodBankTransfer:
		return m, nil
	default:
		return "", contractx.ErrInvalidArguments.WithMessage(fmt.Sprintf("Unsupported payment method %q.", raw))
	}
}

func (p *Processor) Process(ctx context.Context, customerID string, amount float64, method Method) (Result, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return Result{}, contractx.ErrInvalidAmount
	}
	cents := contractx.FromDollars(amount)
	if cents <= 0 {
		return Result{}, contractx.ErrInvalidAmount
	}
	if method == "" {
		method = MethodCard
	}

	applied, err := p.repo.ApplyPayment(ctx, customerID, cents, p.now())
	if err != nil {
		return Result{}, err
	}
	before, after := applied.Before, applied.After

	minimum := p.policy.MinimumSettlement(before.OutstandingBalance)
	standing := p.policy.Evaluate(after.OutstandingBalance, after.OriginalDebt)
	status := standing.BookingStatus()

	res := Result{
		Success:                 true,
		CustomerID:              after.ID,
		PaymentAmount:           cents,
		PaymentMethod:           method,
		PreviousBalance:         before.OutstandingBalance,
		NewBalance:              after.OutstandingBalance,
		IsFullPayment:           cents >= before.OutstandingBalance,
		MeetsMinimumSettlement:  cents >= minimum,
		MinimumSettlementAmount: minimum,
		SettlementPercentage:    int(math.Round(standing.PaidPercentage)),
		BookingStatus:           status,
		ConfirmationNumber:      p.tokens.Issue(confirmx.PrefixPayment),
	}
	res.Message = fmt.Sprintf("Payment of %s processed successfully. %s", cents, bookingMessage(status, standing, minimum))

	log.Ctx(ctx).Info().
		Str("customer_id", after.ID).
		Int64("amount_cents", int64(cents)).
		Int64("new_balance_cents", int64(after.OutstandingBalance)).
		Str("booking_status", string(status)).
		Str("confirmation", res.ConfirmationNumber).
		Msg("payment applied")

	return res, nil
}

func bookingMessage(status settlementx.BookingStatus, st settlementx.Standing, minimum contractx.Money) string {
	switch status {
	case settlementx.StatusAllowed:
		return "Full balance cleared. You can book appointments normally."
	case settlementx.StatusAllowedWithPrepayment:
		return fmt.Sprintf("Settlement accepted. Remaining balance: %s. Future bookings require prepayment.", st.Balance)
	default:
		return fmt.Sprintf("Payment received, but minimum settlement of %s not met. Need additional %s to book appointments.", minimum, st.Shortfall)
	}
}
