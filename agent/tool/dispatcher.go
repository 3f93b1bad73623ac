// Package tool exposes the account and booking operations as named tools and
// dispatches calls coming from the voice platform.
package tool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/iter"
	bookingx "github.com/tanpawarit/pawsome-voice-agent/agent/booking"
	contractx "github.com/tanpawarit/pawsome-voice-agent/agent/contract"
	identityx "github.com/tanpawarit/pawsome-voice-agent/agent/identity"
	paymentx "github.com/tanpawarit/pawsome-voice-agent/agent/payment"
	settlementx "github.com/tanpawarit/pawsome-voice-agent/agent/settlement"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/tanpawarit/pawsome-voice-agent/agent/tool"

type IdentityVerifier interface {
	Verify(ctx context.Context, phoneNumber, lastFourDigits string) (identityx.Result, error)
}

type BalanceReader interface {
	Balance(ctx context.Context, customerID string) (settlementx.BalanceResult, error)
}

type PaymentProcessor interface {
	Process(ctx context.Context, customerID string, amount float64, method paymentx.Method) (paymentx.Result, error)
}

type Scheduler interface {
	CheckEligibility(ctx context.Context, customerID string) (bookingx.Eligibility, error)
	ListSlots(ctx context.Context, customerID string) (bookingx.SlotList, error)
	Book(ctx context.Context, req bookingx.BookRequest) (bookingx.Confirmation, error)
}

// Services are the operations behind the six tools.
type Services struct {
	Identity IdentityVerifier
	Balance  BalanceReader
	Payments PaymentProcessor
	Booking  Scheduler
}

func (s Services) validate() error {
	var missing []string
	if s.Identity == nil {
		missing = append(missing, "identity")
	}
	if s.Balance == nil {
		missing = append(missing, "balance")
	}
	if s.Payments == nil {
		missing = append(missing, "payments")
	}
	if s.Booking == nil {
		missing = append(missing, "booking")
	}
	if len(missing) > 0 {
		return fmt.Errorf("tool services missing: %v", missing)
	}
	return nil
}

// Observer is told about every finished call. Observers run on the calling
// goroutine and must not block.
type Observer interface {
	ObserveTool(ctx context.Context, call contractx.ToolCall, res contractx.ToolResult)
}

type ObserverFunc func(ctx context.Context, call contractx.ToolCall, res contractx.ToolResult)

func (f ObserverFunc) ObserveTool(ctx context.Context, call contractx.ToolCall, res contractx.ToolResult) {
	f(ctx, call, res)
}

type handler func(ctx context.Context, args map[string]any) (any, error)

// bind adapts a typed operation to the argument bag the platform sends.
// Arguments are decoded and validated before op runs.
func bind[In any, Out any](op func(context.Context, In) (Out, error)) handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		in, err := decodeArgs[In](args)
		if err != nil {
			return nil, err
		}
		return op(ctx, in)
	}
}

type Option func(*Dispatcher)

func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		if o != nil {
			d.observers = append(d.observers, o)
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(d *Dispatcher) {
		if t != nil {
			d.tracer = t
		}
	}
}

// WithMaxConcurrency bounds DispatchBatch. Zero uses GOMAXPROCS.
func WithMaxConcurrency(n int) Option {
	return func(d *Dispatcher) {
		if n >= 0 {
			d.maxConcurrency = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

type Dispatcher struct {
	handlers       map[contractx.ToolName]handler
	observers      []Observer
	tracer         trace.Tracer
	maxConcurrency int
	now            func() time.Time
}

func NewDispatcher(svc Services, opts ...Option) (*Dispatcher, error) {
	if err := svc.validate(); err != nil {
		return nil, err
	}
	d := &Dispatcher{
		handlers: map[contractx.ToolName]handler{
			contractx.ToolVerifyIdentity: bind(func(ctx context.Context, in VerifyIdentityArgs) (identityx.Result, error) {
				return svc.Identity.Verify(ctx, in.PhoneNumber, in.LastFourDigits)
			}),
			contractx.ToolGetAccountBalance: bind(func(ctx context.Context, in CustomerArgs) (settlementx.BalanceResult, error) {
				return svc.Balance.Balance(ctx, in.CustomerID)
			}),
			contractx.ToolProcessPayment: bind(func(ctx context.Context, in ProcessPaymentArgs) (paymentx.Result, error) {
				method, err := paymentx.ParseMethod(in.PaymentMethod)
				if err != nil {
					return paymentx.Result{}, err
				}
				return svc.Payments.Process(ctx, in.CustomerID, *in.Amount, method)
			}),
			contractx.ToolCheckBookingEligibility: bind(func(ctx context.Context, in CustomerArgs) (bookingx.Eligibility, error) {
				return svc.Booking.CheckEligibility(ctx, in.CustomerID)
			}),
			contractx.ToolGetAvailableSlots: bind(func(ctx context.Context, in CustomerArgs) (bookingx.SlotList, error) {
				return svc.Booking.ListSlots(ctx, in.CustomerID)
			}),
			contractx.ToolBookAppointment: bind(func(ctx context.Context, in BookAppointmentArgs) (bookingx.Confirmation, error) {
				return svc.Booking.Book(ctx, bookingx.BookRequest{
					CustomerID: in.CustomerID,
					Date:       in.Date,
					Time:       in.Time,
					ServiceID:  in.ServiceID,
					Prepaid:    in.Prepaid,
				})
			}),
		},
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	for _, name := range contractx.ToolNames {
		if _, ok := d.handlers[name]; !ok {
			return nil, fmt.Errorf("no handler registered for tool %s", name)
		}
	}
	return d, nil
}

// Dispatch runs one call. Failures are reported in the result, never as a
// Go error or panic.
func (d *Dispatcher) Dispatch(ctx context.Context, call contractx.ToolCall) contractx.ToolResult {
	ctx, span := d.tracer.Start(ctx, "tool."+call.Name, trace.WithAttributes(
		attribute.String("tool.name", call.Name),
		attribute.String("tool.call_id", call.ID),
	))
	defer span.End()

	logger := log.Ctx(ctx).With().Str("tool", call.Name).Str("tool_call_id", call.ID).Logger()
	ctx = logger.WithContext(ctx)

	started := d.now()
	res := contractx.ToolResult{CallID: call.ID, Tool: call.Name}
	payload, err := d.run(ctx, call)
	res.At = d.now()
	if err != nil {
		res.Err = classify(err)
	} else {
		res.Payload = payload
	}

	span.SetAttributes(attribute.Bool("tool.ok", res.OK()))
	evt := logger.Info()
	if res.Err != nil {
		span.SetAttributes(attribute.String("tool.error_code", res.Err.Code))
		if res.Err.Kind == contractx.KindSystemFault {
			span.SetStatus(codes.Error, res.Err.Message)
			evt = logger.Error().Err(err)
		}
		evt = evt.Str("error_code", res.Err.Code)
	}
	evt.Dur("elapsed", res.At.Sub(started)).Bool("ok", res.OK()).Msg("tool call finished")

	for _, o := range d.observers {
		o.ObserveTool(ctx, call, res)
	}
	return res
}

// DispatchBatch runs calls concurrently and returns results in call order.
func (d *Dispatcher) DispatchBatch(ctx context.Context, calls []contractx.ToolCall) []contractx.ToolResult {
	if len(calls) == 0 {
		return []contractx.ToolResult{}
	}
	if len(calls) == 1 {
		return []contractx.ToolResult{d.Dispatch(ctx, calls[0])}
	}
	mapper := iter.Mapper[contractx.ToolCall, contractx.ToolResult]{MaxGoroutines: d.maxConcurrency}
	return mapper.Map(calls, func(call *contractx.ToolCall) contractx.ToolResult {
		return d.Dispatch(ctx, *call)
	})
}

func (d *Dispatcher) run(ctx context.Context, call contractx.ToolCall) (payload any, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Ctx(ctx).Error().Str("stack", string(debug.Stack())).Msgf("tool panicked: %v", r)
			payload, err = nil, contractx.ErrSystemFault.WithMessage(fmt.Sprintf("Tool %s failed: %v", call.Name, r))
		}
	}()

	h, ok := d.handlers[contractx.ToolName(call.Name)]
	if !ok {
		return nil, contractx.ErrUnknownTool.WithMessage(fmt.Sprintf("Unknown tool: %s", call.Name))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h(ctx, call.Args)
}

// classify keeps typed tool errors and folds everything else into a system
// fault carrying the original message.
func classify(err error) *contractx.ToolError {
	if te, ok := contractx.AsToolError(err); ok {
		return te
	}
	msg := err.Error()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		msg = "Request was cancelled before the tool finished."
	}
	return contractx.ErrSystemFault.WithMessage(msg)
}
