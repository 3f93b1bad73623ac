// Package identity resolves a caller to a customer record from noisy,
// voice-transcribed phone digits and a 4-digit code.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/pawsome-voice-agent/agent/contract"
	phonex "github.com/tanpawarit/pawsome-voice-agent/agent/phone"
)

type Reason string

const (
	ReasonNotFound     Reason = "not_found"
	ReasonCodeMismatch Reason = "code_mismatch"
)

// Result is returned for both outcomes; a failed verification is an expected
// part of the conversation, not an error.
type Result struct {
	Success    bool   `json:"success"`
	Verified   bool   `json:"verified"`
	CustomerID string `json:"customerId,omitempty"`
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Reason     Reason `json:"reason,omitempty"`
	Message    string `json:"message"`
}

type Verifier struct {
	repo contractx.Repository
}

func NewVerifier(repo contractx.Repository) (*Verifier, error) {
	if repo == nil {
		return nil, errors.New("repository is required")
	}
	return &Verifier{repo: repo}, nil
}

func (v *Verifier) Verify(ctx context.Context, phoneNumber, lastFourDigits string) (Result, error) {
	customer, err := v.repo.FindCustomerByPhoneFragment(ctx, phoneNumber)
	if errors.Is(err, contractx.ErrCustomerNotFound) {
		log.Ctx(ctx).Info().Str("reason", string(ReasonNotFound)).Msg("identity not verified")
		return Result{
			Reason:  ReasonNotFound,
			Message: fmt.Sprintf("No account found with phone number %s. Please check the number or contact us directly.", phoneNumber),
		}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("find customer by phone: %w", err)
	}

	if !phonex.CodeMatches(customer.VerificationCode, lastFourDigits) {
		log.Ctx(ctx).Info().Str("reason", string(ReasonCodeMismatch)).Msg("identity not verified")
		return Result{
			Reason:  ReasonCodeMismatch,
			Message: "Verification failed. The digits provided do not match our records.",
		}, nil
	}

	return Result{
		Success:    true,
		Verified:   true,
		CustomerID: customer.ID,
		FirstName:  customer.FirstName,
		LastName:   customer.LastName,
		Message:    fmt.Sprintf("Identity verified for %s.", customer.FullName()),
	}, nil
}
