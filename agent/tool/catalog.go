package tool

import (
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/pawsome-voice-agent/agent/contract"
)

var (
	paymentMethods = []string{"card", "bank_transfer"}
	serviceIDs     = []string{"basic_groom", "full_groom", "premium_groom", "bath_only"}
)

func customerIDParam() *schema.ParameterInfo {
	return &schema.ParameterInfo{Type: schema.String, Desc: "The verified customer ID", Required: true}
}

// Catalog returns the tool definitions in dispatch order.
func Catalog() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name: string(contractx.ToolVerifyIdentity),
			Desc: "Verify the customer identity using their phone number and last 4 digits for security confirmation. Always call this before accessing any account information.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"phoneNumber":    {Type: schema.String, Desc: "The customer phone number (e.g., 555-0101)", Required: true},
				"lastFourDigits": {Type: schema.String, Desc: "The last 4 digits of the phone number for verification", Required: true},
			}),
		},
		{
			Name: string(contractx.ToolGetAccountBalance),
			Desc: "Look up the customer account balance and outstanding debt. Only call this after identity is verified.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"customerId": customerIDParam(),
			}),
		},
		{
			Name: string(contractx.ToolProcessPayment),
			Desc: "Process a payment towards the outstanding balance. The customer must agree to the amount first.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"customerId":    customerIDParam(),
				"amount":        {Type: schema.Number, Desc: "The payment amount in dollars", Required: true},
				"paymentMethod": {Type: schema.String, Desc: "Payment method (card, bank transfer, etc.)", Enum: paymentMethods},
			}),
		},
		{
			Name: string(contractx.ToolCheckBookingEligibility),
			Desc: "Check if the customer is eligible to book appointments based on their account status.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"customerId": customerIDParam(),
			}),
		},
		{
			Name: string(contractx.ToolGetAvailableSlots),
			Desc: "Get available appointment slots. Only call this if the customer is eligible to book.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"customerId": customerIDParam(),
			}),
		},
		{
			Name: string(contractx.ToolBookAppointment),
			Desc: "Book an appointment for the customer. Only call this after confirming eligibility and getting customer agreement on date/time/service.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"customerId": customerIDParam(),
				"date":       {Type: schema.String, Desc: "Appointment date (YYYY-MM-DD format)", Required: true},
				"time":       {Type: schema.String, Desc: "Appointment time (e.g., 10:00 AM)", Required: true},
				"serviceId":  {Type: schema.String, Desc: "Service type ID", Enum: serviceIDs, Required: true},
				"prepaid":    {Type: schema.Boolean, Desc: "Whether the service has been prepaid (required for settlement customers)"},
			}),
		},
	}
}

// Function is the OpenAI-style function definition the voice platform
// registers for each tool.
type Function struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
	Server   *Server     `json:"server,omitempty"`
}

type FunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type Server struct {
	URL string `json:"url"`
}

// Functions renders Catalog for the platform. serverURL is attached to every
// function when non-empty.
func Functions(serverURL string) ([]Function, error) {
	infos := Catalog()
	out := make([]Function, 0, len(infos))
	for _, info := range infos {
		params, err := info.ParamsOneOf.ToOpenAPIV3()
		if err != nil {
			return nil, fmt.Errorf("render %s parameters: %w", info.Name, err)
		}
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("encode %s parameters: %w", info.Name, err)
		}
		fn := Function{
			Type: "function",
			Function: FunctionDef{
				Name:        info.Name,
				Description: info.Desc,
				Parameters:  raw,
			},
		}
		if serverURL != "" {
			fn.Server = &Server{URL: serverURL}
		}
		out = append(out, fn)
	}
	return out, nil
}
