package tool

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	contractx "github.com/tanpawarit/pawsome-voice-agent/agent/contract"
)

var validate = newValidator()

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type VerifyIdentityArgs struct {
	PhoneNumber    string `json:"phoneNumber" validate:"required"`
	LastFourDigits string `json:"lastFourDigits" validate:"required"`
}

type CustomerArgs struct {
	CustomerID string `json:"customerId" validate:"required"`
}

type ProcessPaymentArgs struct {
	CustomerID    string   `json:"customerId" validate:"required"`
	Amount        *float64 `json:"amount" validate:"required"`
	PaymentMethod string   `json:"paymentMethod" validate:"omitempty,oneof=card bank_transfer"`
}

type BookAppointmentArgs struct {
	CustomerID string `json:"customerId" validate:"required"`
	Date       string `json:"date" validate:"required"`
	Time       string `json:"time" validate:"required"`
	ServiceID  string `json:"serviceId" validate:"required"`
	Prepaid    bool   `json:"prepaid"`
}

// decodeArgs turns a loose argument bag into T. Numbers sent as strings and
// the like are accepted; missing required fields are not.
func decodeArgs[T any](args map[string]any) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(args); err != nil {
		return out, contractx.ErrInvalidArguments.WithMessage(fmt.Sprintf("Invalid tool arguments: %v", err))
	}
	if err := validate.Struct(out); err != nil {
		return out, contractx.ErrInvalidArguments.WithMessage(describeValidation(err))
	}
	return out, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid tool arguments: " + err.Error()
	}
	var missing, invalid []string
	for _, fe := range verrs {
		name := fe.Field()
		if fe.Tag() == "required" {
			missing = append(missing, name)
			continue
		}
		invalid = append(invalid, name)
	}
	parts := make([]string, 0, 2)
	if len(missing) > 0 {
		parts = append(parts, "missing "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(invalid, ", "))
	}
	return "Invalid tool arguments: " + strings.Join(parts, "; ") + "."
}
