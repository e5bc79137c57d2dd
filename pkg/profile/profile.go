// Package profile stores the account profile and onboarding progress of the
// single ZapVenda workspace.
package profile

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vinizap/zapvenda/pkg/domain"
	"github.com/vinizap/zapvenda/pkg/logger"
	"github.com/vinizap/zapvenda/pkg/phone"
	"github.com/vinizap/zapvenda/pkg/storage"
)

const (
	profileKey    = "profile"
	onboardingKey = "onboarding"
)

// Profile is the account owner's contact data.
type Profile struct {
	Name      string    `json:"name" validate:"required,min=2"`
	Email     string    `json:"email" validate:"required,email"`
	Phone     string    `json:"phone" validate:"required"`
	Company   string    `json:"company"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Step is one onboarding step.
type Step string

const (
	StepProfile   Step = "profile"
	StepWhatsApp  Step = "whatsapp"
	StepTemplates Step = "templates"
	StepFunnel    Step = "funnel"
)

// Steps lists the onboarding steps in order.
var Steps = []Step{StepProfile, StepWhatsApp, StepTemplates, StepFunnel}

// Onboarding tracks which steps the user finished.
type Onboarding struct {
	CurrentStep    Step   `json:"current_step"`
	CompletedSteps []Step `json:"completed_steps"`
	Completed      bool   `json:"completed"`
}

// Service loads and saves the profile and onboarding state.
type Service struct {
	store    storage.Store
	validate *validator.Validate
	region   string
	log      logger.Logger
	now      func() time.Time
}

// NewService creates a profile service. region is the default phone region.
func NewService(store storage.Store, region string, log logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		store:    store,
		validate: validator.New(),
		region:   region,
		log:      log,
		now:      time.Now,
	}
}

// Get returns the stored profile, or an empty one if none was saved.
func (s *Service) Get(ctx context.Context) (*Profile, error) {
	var p Profile
	err := storage.GetJSON(ctx, s.store, profileKey, &p)
	if errors.Is(err, storage.ErrNotFound) {
		return &Profile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return &p, nil
}

// Update validates p, stores the phone in E.164 and completes the profile
// onboarding step.
func (s *Service) Update(ctx context.Context, p Profile) (*Profile, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(strings.ToLower(p.Email))
	p.Company = strings.TrimSpace(p.Company)

	if err := s.validate.Struct(p); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	e164, err := phone.Normalize(p.Phone, s.region)
	if err != nil {
		return nil, domain.NewValidationError(fmt.Sprintf("phone: %v", err))
	}
	p.Phone = e164
	p.UpdatedAt = s.now().UTC()

	if err := storage.SetJSON(ctx, s.store, profileKey, p, 0); err != nil {
		return nil, domain.NewInternalError(fmt.Errorf("failed to save profile: %w", err))
	}
	if _, err := s.CompleteStep(ctx, StepProfile); err != nil {
		return nil, err
	}

	s.log.Info("profile updated", "email", p.Email)
	return &p, nil
}

// Onboarding returns the stored onboarding progress.
func (s *Service) Onboarding(ctx context.Context) (*Onboarding, error) {
	o := Onboarding{CurrentStep: Steps[0], CompletedSteps: []Step{}}
	err := storage.GetJSON(ctx, s.store, onboardingKey, &o)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to load onboarding: %w", err)
	}
	return &o, nil
}

// CompleteStep marks step done and moves CurrentStep to the first step not
// yet completed.
func (s *Service) CompleteStep(ctx context.Context, step Step) (*Onboarding, error) {
	if !slices.Contains(Steps, step) {
		return nil, domain.NewBadRequestError(fmt.Sprintf("unknown onboarding step %q", step))
	}

	o, err := s.Onboarding(ctx)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(o.CompletedSteps, step) {
		o.CompletedSteps = append(o.CompletedSteps, step)
	}

	o.Completed = true
	for _, st := range Steps {
		if !slices.Contains(o.CompletedSteps, st) {
			o.CurrentStep = st
			o.Completed = false
			break
		}
	}
	if o.Completed {
		o.CurrentStep = Steps[len(Steps)-1]
	}

	if err := storage.SetJSON(ctx, s.store, onboardingKey, o, 0); err != nil {
		return nil, domain.NewInternalError(fmt.Errorf("failed to save onboarding: %w", err))
	}
	return o, nil
}

// ResetOnboarding clears onboarding progress.
func (s *Service) ResetOnboarding(ctx context.Context) error {
	return s.store.Delete(ctx, onboardingKey)
}
