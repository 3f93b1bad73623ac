package tool

import (
	"time"

	bookingx "github.com/tanpawarit/pawsome-voice-agent/agent/booking"
	confirmx "github.com/tanpawarit/pawsome-voice-agent/agent/confirm"
	contractx "github.com/tanpawarit/pawsome-voice-agent/agent/contract"
	identityx "github.com/tanpawarit/pawsome-voice-agent/agent/identity"
	paymentx "github.com/tanpawarit/pawsome-voice-agent/agent/payment"
	settlementx "github.com/tanpawarit/pawsome-voice-agent/agent/settlement"
)

// NewServices builds the default operations over repo. Payments and bookings
// share one token issuer so confirmation numbers never collide.
func NewServices(repo contractx.Repository, policy settlementx.Policy, now func() time.Time) (Services, error) {
	if now == nil {
		now = time.Now
	}
	tokens := confirmx.NewIssuer()

	verifier, err := identityx.NewVerifier(repo)
	if err != nil {
		return Services{}, err
	}
	calc, err := settlementx.NewCalculator(repo, policy)
	if err != nil {
		return Services{}, err
	}
	payments, err := paymentx.NewProcessor(repo, policy, paymentx.WithClock(now), paymentx.WithTokenIssuer(tokens))
	if err != nil {
		return Services{}, err
	}
	scheduler, err := bookingx.NewScheduler(repo, policy, bookingx.WithTokenIssuer(tokens))
	if err != nil {
		return Services{}, err
	}

	return Services{
		Identity: verifier,
		Balance:  calc,
		Payments: payments,
		Booking:  scheduler,
	}, nil
}
