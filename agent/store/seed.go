package store

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	contractx "github.com/tanpawarit/pawsome-voice-agent/agent/contract"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

//go:embed fixture/seed.yaml
var defaultSeedRaw []byte

type Seed struct {
	Customers []SeedCustomer `yaml:"customers" validate:"required,dive"`
	Services  []SeedService  `yaml:"services" validate:"required,dive"`
}

type SeedPet struct {
	Name      string `yaml:"name" validate:"required"`
	Type      string `yaml:"type"`
	LastVisit string `yaml:"last_visit"`
}

type SeedCustomer struct {
	ID                 string    `yaml:"id" validate:"required"`
	FirstName          string    `yaml:"first_name" validate:"required"`
	LastName           string    `yaml:"last_name"`
	Phone              string    `yaml:"phone" validate:"required"`
	Email              string    `yaml:"email" validate:"omitempty,email"`
	VerificationCode   string    `yaml:"verification_code" validate:"required,len=4,numeric"`
	Pets               []SeedPet `yaml:"pets" validate:"dive"`
	OutstandingBalance float64   `yaml:"outstanding_balance" validate:"gte=0"`
	OriginalDebt       float64   `yaml:"original_debt" validate:"gte=0"`
	LastPaymentDate    string    `yaml:"last_payment_date"`
	Notes              string    `yaml:"notes"`
}

type SeedService struct {
	ID              string  `yaml:"id" validate:"required"`
	Name            string  `yaml:"name" validate:"required"`
	Description     string  `yaml:"description"`
	Price           float64 `yaml:"price" validate:"gt=0"`
	DurationMinutes int     `yaml:"duration_minutes" validate:"gt=0"`
}

// DefaultSeed returns the embedded demo fixture.
func DefaultSeed() (Seed, error) {
	return ParseSeed(defaultSeedRaw)
}

func ParseSeed(raw []byte) (Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return Seed{}, fmt.Errorf("decode seed: %w", err)
	}
	if err := seed.Validate(); err != nil {
		return Seed{}, err
	}
	return seed, nil
}

// Validate reports every broken record at once.
func (s Seed) Validate() error {
	var errs error
	if err := validator.New().Struct(s); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("invalid seed: %w", err))
	}

	ids := make(map[string]struct{}, len(s.Customers))
	for _, c := range s.Customers {
		if _, dup := ids[c.ID]; dup {
			errs = multierr.Append(errs, fmt.Errorf("duplicate customer id %q", c.ID))
		}
		ids[c.ID] = struct{}{}

		if contractx.FromDollars(c.OutstandingBalance) > contractx.FromDollars(c.OriginalDebt) {
			errs = multierr.Append(errs, fmt.Errorf("customer %s: outstanding balance exceeds original debt", c.ID))
		}
	}

	serviceIDs := make(map[string]struct{}, len(s.Services))
	for _, svc := range s.Services {
		if _, dup := serviceIDs[svc.ID]; dup {
			errs = multierr.Append(errs, fmt.Errorf("duplicate service id %q", svc.ID))
		}
		serviceIDs[svc.ID] = struct{}{}
	}

	if errs != nil {
		return errors.Join(ErrInvalidSeed, errs)
	}
	return nil
}

func (c SeedCustomer) toCustomer() contractx.Customer {
	pets := make([]contractx.Pet, 0, len(c.Pets))
	for _, p := range c.Pets {
		pets = append(pets, contractx.Pet{Name: p.Name, Species: p.Type, LastVisit: p.LastVisit})
	}
	return contractx.Customer{
		ID:                 c.ID,
		FirstName:          c.FirstName,
		LastName:           c.LastName,
		Phone:              c.Phone,
		Email:              c.Email,
		VerificationCode:   c.VerificationCode,
		Pets:               pets,
		OutstandingBalance: contractx.FromDollars(c.OutstandingBalance),
		OriginalDebt:       contractx.FromDollars(c.OriginalDebt),
		LastPaymentDate:    c.LastPaymentDate,
		Notes:              c.Notes,
	}
}

func (s SeedService) toService() contractx.Service {
	return contractx.Service{
		ID:              s.ID,
		Name:            s.Name,
		Description:     s.Description,
		Price:           contractx.FromDollars(s.Price),
		DurationMinutes: s.DurationMinutes,
	}
}
