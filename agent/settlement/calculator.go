package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/pawsome-voice-agent/agent/contract"
)

type PetSummary struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type BalanceResult struct {
	Success                     bool            `json:"success"`
	CustomerID                  string          `json:"customerId"`
	CustomerName                string          `json:"customerName"`
	OutstandingBalance          contractx.Money `json:"outstandingBalance"`
	OriginalDebt                contractx.Money `json:"originalDebt"`
	HasDebt                     bool            `json:"hasDebt"`
	MinimumSettlementAmount     contractx.Money `json:"minimumSettlementAmount"`
	MinimumSettlementPercentage int             `json:"minimumSettlementPercentage"`
	LastPaymentDate             string          `json:"lastPaymentDate,omitempty"`
	Pets                        []PetSummary    `json:"pets"`
	Message                     string          `json:"message"`
}

// Calculator answers balance questions for a verified customer.
type Calculator struct {
	repo   contractx.Repository
	policy Policy
}

func NewCalculator(repo contractx.Repository, policy Policy) (*Calculator, error) {
	if repo == nil {
		return nil, errors.New("repository is required")
	}
	return &Calculator{repo: repo, policy: policy}, nil
}

func (c *Calculator) Balance(ctx context.Context, customerID string) (BalanceResult, error) {
	customer, err := c.repo.FindCustomerByID(ctx, strings.TrimSpace(customerID))
	if err != nil {
		return BalanceResult{}, err
	}

	hasDebt := customer.OutstandingBalance > 0
	minimum := c.policy.MinimumSettlement(customer.OutstandingBalance)

	pets := make([]PetSummary, 0, len(customer.Pets))
	for _, p := range customer.Pets {
		pets = append(pets, PetSummary{Name: p.Name, Type: p.Species})
	}

	message := "No outstanding balance. Account in good standing."
	if hasDebt {
		message = fmt.Sprintf("Outstanding balance of %s. Minimum settlement: %s (%d%%).",
			customer.OutstandingBalance, minimum, c.policy.Percentage)
	}

	return BalanceResult{
		Success:                     true,
		CustomerID:                  customer.ID,
		CustomerName:                customer.FullName(),
		OutstandingBalance:          customer.OutstandingBalance,
		OriginalDebt:                customer.OriginalDebt,
		HasDebt:                     hasDebt,
		MinimumSettlementAmount:     minimum,
		MinimumSettlementPercentage: c.policy.Percentage,
		LastPaymentDate:             customer.LastPaymentDate,
		Pets:                        pets,
		Message:                     message,
	}, nil
}
