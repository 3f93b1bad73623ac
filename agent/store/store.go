// Package store is the in-memory customer, catalog and slot repository.
// It is not persistent: every process (or test) builds its own instance.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mohae/deepcopy"
	"github.com/puzpuzpuz/xsync/v3"
	contractx "github.com/tanpawarit/pawsome-voice-agent/agent/contract"
	phonex "github.com/tanpawarit/pawsome-voice-agent/agent/phone"
)

var ErrInvalidSeed = errors.New("invalid seed")

var _ contractx.Repository = (*MemoryStore)(nil)

// Option customizes MemoryStore.
type Option func(*options)

type options struct {
	seed  *Seed
	slots []contractx.Slot
	now   func() time.Time
}

func WithSeed(seed Seed) Option {
	return func(o *options) {
		o.seed = &seed
	}
}

// WithSlots replaces the generated week of slots.
func WithSlots(slots []contractx.Slot) Option {
	return func(o *options) {
		o.slots = append([]contractx.Slot(nil), slots...)
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// MemoryStore keeps records behind per-record locks. The record maps are
// built once and never resized, so only record contents need guarding.
type MemoryStore struct {
	order     []string
	customers map[string]*contractx.Customer
	services  []contractx.Service
	slots     []*contractx.Slot
	slotIndex map[string]*contractx.Slot

	customerLocks *xsync.MapOf[string, *sync.RWMutex]
	slotLocks     *xsync.MapOf[string, *sync.RWMutex]
}

func New(opts ...Option) (*MemoryStore, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	var seed Seed
	if o.seed != nil {
		if err := o.seed.Validate(); err != nil {
			return nil, err
		}
		seed = *o.seed
	} else {
		def, err := DefaultSeed()
		if err != nil {
			return nil, fmt.Errorf("load default seed: %w", err)
		}
		seed = def
	}

	slots := o.slots
	if slots == nil {
		slots = GenerateSlots(o.now())
	}

	s := &MemoryStore{
		order:         make([]string, 0, len(seed.Customers)),
		customers:     make(map[string]*contractx.Customer, len(seed.Customers)),
		services:      make([]contractx.Service, 0, len(seed.Services)),
		slots:         make([]*contractx.Slot, 0, len(slots)),
		slotIndex:     make(map[string]*contractx.Slot, len(slots)),
		customerLocks: xsync.NewMapOf[string, *sync.RWMutex](),
		slotLocks:     xsync.NewMapOf[string, *sync.RWMutex](),
	}
	for _, sc := range seed.Customers {
		c := sc.toCustomer()
		s.order = append(s.order, c.ID)
		s.customers[c.ID] = &c
	}
	for _, svc := range seed.Services {
		s.services = append(s.services, svc.toService())
	}
	for i := range slots {
		slot := slots[i]
		if _, dup := s.slotIndex[slot.Key()]; dup {
			return nil, fmt.Errorf("%w: duplicate slot %s", ErrInvalidSeed, slot.Key())
		}
		s.slots = append(s.slots, &slot)
		s.slotIndex[slot.Key()] = &slot
	}
	return s, nil
}

func (s *MemoryStore) FindCustomerByPhoneFragment(ctx context.Context, phone string) (contractx.Customer, error) {
	if err := ctx.Err(); err != nil {
		return contractx.Customer{}, err
	}
	// Phone numbers are immutable, so matching needs no lock. First match
	// in seed order wins.
	for _, id := range s.order {
		c := s.customers[id]
		if phonex.Match(c.Phone, phone) {
			return s.snapshot(id), nil
		}
	}
	return contractx.Customer{}, contractx.ErrCustomerNotFound
}

func (s *MemoryStore) FindCustomerByID(ctx context.Context, id string) (contractx.Customer, error) {
	if err := ctx.Err(); err != nil {
		return contractx.Customer{}, err
	}
	id = strings.TrimSpace(id)
	if _, ok := s.customers[id]; !ok {
		return contractx.Customer{}, contractx.ErrCustomerNotFound
	}
	return s.snapshot(id), nil
}

func (s *MemoryStore) ListCustomers(ctx context.Context) ([]contractx.Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]contractx.Customer, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.snapshot(id))
	}
	return out, nil
}

func (s *MemoryStore) ListServices(ctx context.Context) ([]contractx.Service, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]contractx.Service(nil), s.services...), nil
}

func (s *MemoryStore) ListAvailableSlots(ctx context.Context) ([]contractx.Slot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]contractx.Slot, 0, len(s.slots))
	for _, slot := range s.slots {
		mu := s.slotLock(slot.Key())
		mu.RLock()
		cp := *slot
		mu.RUnlock()
		if cp.Available {
			out = append(out, cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkSlotUnavailable(ctx context.Context, date, clock string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := contractx.Slot{Date: strings.TrimSpace(date), Time: strings.TrimSpace(clock)}.Key()
	slot, ok := s.slotIndex[key]
	if !ok {
		return contractx.ErrSlotUnavailable
	}

	mu := s.slotLock(key)
	mu.Lock()
	defer mu.Unlock()
	if !slot.Available {
		return contractx.ErrSlotUnavailable
	}
	slot.Available = false
	return nil
}

func (s *MemoryStore) ApplyPayment(ctx context.Context, customerID string, amount contractx.Money, paidOn time.Time) (contractx.PaymentApplication, error) {
	if err := ctx.Err(); err != nil {
		return contractx.PaymentApplication{}, err
	}
	if amount <= 0 {
		return contractx.PaymentApplication{}, contractx.ErrInvalidAmount
	}
	customerID = strings.TrimSpace(customerID)
	c, ok := s.customers[customerID]
	if !ok {
		return contractx.PaymentApplication{}, contractx.ErrCustomerNotFound
	}

	mu := s.customerLock(customerID)
	mu.Lock()
	defer mu.Unlock()

	before := deepcopy.Copy(*c).(contractx.Customer)
	c.OutstandingBalance -= amount
	if c.OutstandingBalance < 0 {
		c.OutstandingBalance = 0
	}
	c.LastPaymentDate = paidOn.Format(slotDateLayout)
	after := deepcopy.Copy(*c).(contractx.Customer)

	return contractx.PaymentApplication{Before: before, After: after}, nil
}

func (s *MemoryStore) snapshot(id string) contractx.Customer {
	mu := s.customerLock(id)
	mu.RLock()
	defer mu.RUnlock()
	return deepcopy.Copy(*s.customers[id]).(contractx.Customer)
}

func (s *MemoryStore) customerLock(id string) *sync.RWMutex {
	mu, _ := s.customerLocks.LoadOrCompute(id, newLock)
	return mu
}

func (s *MemoryStore) slotLock(key string) *sync.RWMutex {
	mu, _ := s.slotLocks.LoadOrCompute(key, newLock)
	return mu
}

func newLock() *sync.RWMutex {
	return &sync.RWMutex{}
}
