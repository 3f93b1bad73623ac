// Package settlement holds the debt-settlement policy shared by payments and
// booking, plus the balance lookup tool.
package settlement

import (
	"fmt"

	contractx "github.com/tanpawarit/pawsome-voice-agent/agent/contract"
)

const DefaultPercentage = 70

type BookingStatus string

const (
	StatusAllowed               BookingStatus = "allowed"
	StatusAllowedWithPrepayment BookingStatus = "allowed_with_prepayment"
	StatusBlocked               BookingStatus = "blocked"
)

// Policy is the minimum-settlement threshold, in whole percent.
type Policy struct {
	Percentage int
}

func NewPolicy(percentage int) (Policy, error) {
	if percentage < 1 || percentage > 100 {
		return Policy{}, fmt.Errorf("%w: settlement percentage must be within 1..100, got %d", contractx.ErrInvalidArguments, percentage)
	}
	return Policy{Percentage: percentage}, nil
}

// MinimumSettlement is pct% of the balance rounded up to the cent, so paying
// exactly the quoted amount always satisfies the threshold.
func (p Policy) MinimumSettlement(balance contractx.Money) contractx.Money {
	return ceilPercent(balance, p.Percentage)
}

// Standing is the booking view of an account at one balance state.
type Standing struct {
	Balance            contractx.Money
	OriginalDebt       contractx.Money
	Paid               contractx.Money
	PaidPercentage     float64
	CanBook            bool
	RequiresPrepayment bool
	// Shortfall is what still has to be paid to reach the threshold.
	Shortfall contractx.Money
}

func (p Policy) Evaluate(balance, original contractx.Money) Standing {
	paid := original - balance
	if paid < 0 {
		paid = 0
	}

	st := Standing{
		Balance:      balance,
		OriginalDebt: original,
		Paid:         paid,
	}
	if original > 0 {
		st.PaidPercentage = float64(paid) * 100 / float64(original)
	} else {
		st.PaidPercentage = 100
	}

	settled := original > 0 && int64(paid)*100 >= int64(p.Percentage)*int64(original)
	st.CanBook = balance == 0 || settled
	st.RequiresPrepayment = st.CanBook && balance > 0

	if !st.CanBook {
		st.Shortfall = ceilPercent(original, p.Percentage) - paid
		if st.Shortfall < 0 {
			st.Shortfall = 0
		}
	}
	return st
}

func (s Standing) BookingStatus() BookingStatus {
	switch {
	case !s.CanBook:
		return StatusBlocked
	case s.RequiresPrepayment:
		return StatusAllowedWithPrepayment
	default:
		return StatusAllowed
	}
}

func ceilPercent(amount contractx.Money, pct int) contractx.Money {
	if amount <= 0 {
		return 0
	}
	num := int64(amount) * int64(pct)
	return contractx.Money((num + 99) / 100)
}
