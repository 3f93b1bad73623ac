package contract

import (
	"errors"
	"maps"
)

type ErrorKind string

const (
	KindNotFound    ErrorKind = "not_found"
	KindValidation  ErrorKind = "validation"
	KindPolicy      ErrorKind = "policy_violation"
	KindSystemFault ErrorKind = "system_fault"
)

// ToolError is an expected conversational failure. The calling agent speaks
// Message to the customer, so it must stay human-readable.
type ToolError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Details map[string]any
}

func (e *ToolError) Error() string {
	return e.Code + ": " + e.Message
}

// Is matches on Code so that copies made by WithMessage/WithDetail still
// compare equal to the sentinel they came from.
func (e *ToolError) Is(target error) bool {
	t, ok := target.(*ToolError)
	return ok && t.Code == e.Code
}

func (e *ToolError) WithMessage(msg string) *ToolError {
	cp := e.clone()
	cp.Message = msg
	return cp
}

func (e *ToolError) WithDetail(key string, value any) *ToolError {
	cp := e.clone()
	if cp.Details == nil {
		cp.Details = make(map[string]any, 2)
	}
	cp.Details[key] = value
	return cp
}

func (e *ToolError) clone() *ToolError {
	cp := *e
	cp.Details = maps.Clone(e.Details)
	return &cp
}

var (
	ErrCustomerNotFound = &ToolError{
		Kind:    KindNotFound,
		Code:    "customer_not_found",
		Message: "Customer not found. Please verify identity first.",
	}
	ErrSlotUnavailable = &ToolError{
		Kind:    KindNotFound,
		Code:    "slot_unavailable",
		Message: "This time slot is no longer available. Please choose another.",
	}
	ErrInvalidService = &ToolError{
		Kind:    KindNotFound,
		Code:    "invalid_service",
		Message: "Invalid service selected.",
	}
	ErrInvalidAmount = &ToolError{
		Kind:    KindValidation,
		Code:    "invalid_amount",
		Message: "Invalid payment amount.",
	}
	ErrInvalidArguments = &ToolError{
		Kind:    KindValidation,
		Code:    "invalid_arguments",
		Message: "Invalid tool arguments.",
	}
	ErrUnknownTool = &ToolError{
		Kind:    KindValidation,
		Code:    "unknown_tool",
		Message: "Unknown tool.",
	}
	ErrNotEligible = &ToolError{
		Kind:    KindPolicy,
		Code:    "not_eligible",
		Message: "Cannot book appointments until the outstanding balance is settled.",
	}
	ErrPrepaymentRequired = &ToolError{
		Kind:    KindPolicy,
		Code:    "prepayment_required",
		Message: "Prepayment is required before booking can be confirmed.",
	}
	ErrSystemFault = &ToolError{
		Kind:    KindSystemFault,
		Code:    "internal_error",
		Message: "Something went wrong on our side.",
	}
)

// AsToolError unwraps err into a ToolError when possible.
func AsToolError(err error) (*ToolError, bool) {
	var te *ToolError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
