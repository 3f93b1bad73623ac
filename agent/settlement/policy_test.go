package settlement

import (
	"context"
	"errors"
	"reflect"
	"testing"

	contractx "github.com/tanpawarit/pawsome-voice-agent/agent/contract"
	storex "github.com/tanpawarit/pawsome-voice-agent/agent/store"
)

func TestMinimumSettlementRoundsUp(t *testing.T) {
	t.Parallel()

	p := Policy{Percentage: 70}
	cases := []struct {
		balance contractx.Money
		want    contractx.Money
	}{
		{18500, 12950},
		{9550, 6685},
		{1, 1},
		{0, 0},
		{333, 234}, // 233.1 cents rounds up
	}
	for _, tc := range cases {
		if got := p.MinimumSettlement(tc.balance); got != tc.want {
			t.Fatalf("MinimumSettlement(%d) = %d, want %d", tc.balance, got, tc.want)
		}
	}
}

func TestNewPolicyRange(t *testing.T) {
	t.Parallel()

	if _, err := NewPolicy(0); err == nil {
		t.Fatal("expected error for 0%")
	}
	if _, err := NewPolicy(101); err == nil {
		t.Fatal("expected error for 101%")
	}
	p, err := NewPolicy(80)
	if err != nil || p.Percentage != 80 {
		t.Fatalf("NewPolicy(80) = %+v, %v", p, err)
	}
}

func TestEvaluateStates(t *testing.T) {
	t.Parallel()

	p := Policy{Percentage: 70}
	cases := []struct {
		name     string
		balance  contractx.Money
		original contractx.Money
		want     BookingStatus
		short    contractx.Money
	}{
		{"clear", 0, 18500, StatusAllowed, 0},
		{"never in debt", 0, 0, StatusAllowed, 0},
		{"exactly seventy percent", 5550, 18500, StatusAllowedWithPrepayment, 0},
		{"one cent short", 5551, 18500, StatusBlocked, 1},
		{"untouched", 18500, 18500, StatusBlocked, 12950},
		{"after fifty dollars", 13500, 18500, StatusBlocked, 7950},
		{"prior partial", 4500, 15000, StatusAllowedWithPrepayment, 0},
	}
	for _, tc := range cases {
		st := p.Evaluate(tc.balance, tc.original)
		if got := st.BookingStatus(); got != tc.want {
			t.Fatalf("%s: status = %s, want %s", tc.name, got, tc.want)
		}
		if st.Shortfall != tc.short {
			t.Fatalf("%s: shortfall = %d, want %d", tc.name, st.Shortfall, tc.short)
		}
		if st.RequiresPrepayment != (st.CanBook && tc.balance > 0) {
			t.Fatalf("%s: requiresPrepayment inconsistent: %+v", tc.name, st)
		}
	}
}

func TestBalanceScenarioA(t *testing.T) {
	t.Parallel()

	calc := newCalculator(t)
	out, err := calc.Balance(context.Background(), "CUST001")
	if err != nil {
		t.Fatalf("Balance() error = %v", err)
	}
	if out.MinimumSettlementAmount != contractx.FromDollars(129.50) {
		t.Fatalf("minimum = %s, want $129.50", out.MinimumSettlementAmount)
	}
	if !out.HasDebt || out.OutstandingBalance != contractx.FromDollars(185) {
		t.Fatalf("unexpected balance: %+v", out)
	}
	if out.MinimumSettlementPercentage != 70 {
		t.Fatalf("percentage = %d", out.MinimumSettlementPercentage)
	}
	if len(out.Pets) != 1 || out.Pets[0].Name != "Max" {
		t.Fatalf("pets = %+v", out.Pets)
	}
}

func TestBalanceNoDebt(t *testing.T) {
	t.Parallel()

	calc := newCalculator(t)
	out, err := calc.Balance(context.Background(), "CUST003")
	if err != nil {
		t.Fatalf("Balance() error = %v", err)
	}
	if out.HasDebt || out.MinimumSettlementAmount != 0 {
		t.Fatalf("unexpected balance: %+v", out)
	}
}

func TestBalanceIsIdempotent(t *testing.T) {
	t.Parallel()

	calc := newCalculator(t)
	first, err := calc.Balance(context.Background(), "CUST002")
	if err != nil {
		t.Fatalf("Balance() error = %v", err)
	}
	second, _ := calc.Balance(context.Background(), "CUST002")
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Balance() not idempotent:\n%+v\n%+v", first, second)
	}
}

func TestBalanceUnknownCustomer(t *testing.T) {
	t.Parallel()

	calc := newCalculator(t)
	_, err := calc.Balance(context.Background(), "CUST999")
	if !errors.Is(err, contractx.ErrCustomerNotFound) {
		t.Fatalf("error = %v, want ErrCustomerNotFound", err)
	}
}

func newCalculator(t *testing.T) *Calculator {
	t.Helper()
	repo, err := storex.New()
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	calc, err := NewCalculator(repo, Policy{Percentage: DefaultPercentage})
	if err != nil {
		t.Fatalf("NewCalculator() error = %v", err)
	}
	return calc
}
