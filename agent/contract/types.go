package contract

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Money is an amount in cents. All settlement math happens on whole cents.
type Money int64

// FromDollars converts a dollar amount to cents, rounding to the nearest cent.
func FromDollars(d float64) Money {
	return Money(math.Round(d * 100))
}

func (m Money) Dollars() float64 {
	return float64(m) / 100
}

func (m Money) String() string {
	return "$" + m.decimal()
}

// Spoken drops the cents when they are zero ("$45" rather than "$45.00").
func (m Money) Spoken() string {
	if m%100 == 0 {
		return fmt.Sprintf("$%d", int64(m)/100)
	}
	return m.String()
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.decimal()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decode money: %w", err)
	}
	*m = FromDollars(f)
	return nil
}

func (m Money) decimal() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

type Pet struct {
	Name      string `json:"name"`
	Species   string `json:"type"`
	LastVisit string `json:"lastVisit,omitempty"`
}

type Customer struct {
	ID                 string `json:"id"`
	FirstName          string `json:"firstName"`
	LastName           string `json:"lastName"`
	Phone              string `json:"phone"`
	Email              string `json:"email,omitempty"`
	VerificationCode   string `json:"-"`
	Pets               []Pet  `json:"pets"`
	OutstandingBalance Money  `json:"outstandingBalance"`
	OriginalDebt       Money  `json:"originalDebt"`
	LastPaymentDate    string `json:"lastPaymentDate,omitempty"`
	Notes              string `json:"notes,omitempty"`
}

func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

func (c Customer) PetNames() []string {
	names := make([]string, 0, len(c.Pets))
	for _, p := range c.Pets {
		names = append(names, p.Name)
	}
	return names
}

type AccountStatus string

const (
	AccountClear   AccountStatus = "clear"
	AccountPending AccountStatus = "pending"
	AccountPartial AccountStatus = "partial"
)

func (c Customer) Status() AccountStatus {
	switch {
	case c.OutstandingBalance == 0:
		return AccountClear
	case c.OutstandingBalance == c.OriginalDebt:
		return AccountPending
	default:
		return AccountPartial
	}
}

type Service struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	Price           Money  `json:"price"`
	DurationMinutes int    `json:"duration"`
}

type Slot struct {
	Date      string `json:"date"` // YYYY-MM-DD
	DayName   string `json:"dayName"`
	Time      string `json:"time"` // e.g. "10:00 AM"
	Available bool   `json:"available"`
}

func (s Slot) Key() string {
	return s.Date + " " + s.Time
}

// PaymentApplication is the before/after pair of a payment applied atomically
// by the repository.
type PaymentApplication struct {
	Before Customer
	After  Customer
}

/* ------------------------------ Tool calls ------------------------------ */

type ToolName string

const (
	ToolVerifyIdentity          ToolName = "verifyIdentity"
	ToolGetAccountBalance       ToolName = "getAccountBalance"
	ToolProcessPayment          ToolName = "processPayment"
	ToolCheckBookingEligibility ToolName = "checkBookingEligibility"
	ToolGetAvailableSlots       ToolName = "getAvailableSlots"
	ToolBookAppointment         ToolName = "bookAppointment"
)

// ToolNames lists every tool in catalog order.
var ToolNames = []ToolName{
	ToolVerifyIdentity,
	ToolGetAccountBalance,
	ToolProcessPayment,
	ToolCheckBookingEligibility,
	ToolGetAvailableSlots,
	ToolBookAppointment,
}

type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type ToolResult struct {
	CallID  string     `json:"toolCallId"`
	Tool    string     `json:"tool"`
	Payload any        `json:"payload,omitempty"`
	Err     *ToolError `json:"-"`
	At      time.Time  `json:"-"`
}

func (r ToolResult) OK() bool {
	return r.Err == nil
}

// Encode renders the JSON string handed back to the calling platform.
func (r ToolResult) Encode() string {
	if r.Err != nil {
		return encodeError(r.Err)
	}
	raw, err := json.Marshal(r.Payload)
	if err != nil {
		return encodeError(ErrSystemFault.WithMessage(fmt.Sprintf("encode result: %v", err)))
	}
	return string(raw)
}

func encodeError(e *ToolError) string {
	body := make(map[string]any, len(e.Details)+3)
	for k, v := range e.Details {
		body[k] = v
	}
	body["success"] = false
	body["error"] = e.Code
	body["message"] = e.Message
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":%q,"message":%q}`, e.Code, e.Message)
	}
	return string(raw)
}
