package funnel

import (
	"context"
	"fmt"
	"time"

	"github.com/vinizap/zapvenda/pkg/logger"
	"github.com/vinizap/zapvenda/pkg/template"
)

// Repository persists funnels. Update replaces the step list wholesale.
type Repository interface {
	Create(ctx context.Context, f Funnel) error
	Update(ctx context.Context, f Funnel) error
	Get(ctx context.Context, id string) (*Funnel, error)
	List(ctx context.Context) ([]Funnel, error)
	Delete(ctx context.Context, id string) error
}

// Observer is notified of funnel lifecycle events (metrics).
type Observer interface {
	FunnelSaved(created bool)
	FunnelDeleted()
	FunnelValidationFailed()
}

type nopObserver struct{}

func (nopObserver) FunnelSaved(bool)        {}
func (nopObserver) FunnelDeleted()          {}
func (nopObserver) FunnelValidationFailed() {}

// Service handles funnel operations. It is the Listener create-mode
// editors emit to.
type Service struct {
	repo     Repository
	catalog  template.Catalog
	log      logger.Logger
	observer Observer
	now      func() time.Time
}

// NewService creates a new funnel service. log and observer may be nil.
func NewService(repo Repository, catalog template.Catalog, log logger.Logger, observer Observer) *Service {
	if log == nil {
		log = logger.Discard()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Service{
		repo:     repo,
		catalog:  catalog,
		log:      log,
		observer: observer,
		now:      time.Now,
	}
}

// Catalog returns the template lookup used for validation.
func (s *Service) Catalog() template.Catalog { return s.catalog }

// OnSave stores f as a new funnel, stamping timestamps. Editors of an
// existing funnel save through replace instead.
func (s *Service) OnSave(ctx context.Context, f Funnel) error {
	now := s.now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now
	if err := s.repo.Create(ctx, f); err != nil {
		return fmt.Errorf("failed to create funnel: %w", err)
	}
	s.observer.FunnelSaved(true)
	s.log.Info("funnel created", "funnel_id", f.ID, "steps", len(f.Steps))
	return nil
}

// replace overwrites a stored funnel. A funnel deleted while it was being
// edited stays deleted and the save fails with not found.
func (s *Service) replace(ctx context.Context, f Funnel) error {
	existing, err := s.repo.Get(ctx, f.ID)
	if err != nil {
		return err
	}
	f.CreatedAt = existing.CreatedAt
	f.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, f); err != nil {
		return fmt.Errorf("failed to update funnel: %w", err)
	}
	s.observer.FunnelSaved(false)
	s.log.Info("funnel updated", "funnel_id", f.ID, "steps", len(f.Steps))
	return nil
}

// listenerFor picks how a save from e is persisted: create-mode editors
// insert, every other editor replaces an existing funnel.
func (s *Service) listenerFor(e *Editor) Listener {
	if e.Mode() == ModeCreate {
		return s
	}
	return Callbacks{Save: s.replace, Delete: s.OnDelete}
}

// OnDelete removes the funnel from the repository.
func (s *Service) OnDelete(ctx context.Context, funnelID string) error {
	if err := s.repo.Delete(ctx, funnelID); err != nil {
		return err
	}
	s.observer.FunnelDeleted()
	s.log.Info("funnel deleted", "funnel_id", funnelID)
	return nil
}

// Create validates and stores a new funnel. Any client-supplied id is ignored.
func (s *Service) Create(ctx context.Context, f Funnel) (*Funnel, error) {
	f.ID = ""
	e := RestoreEditor(EditorState{Funnel: f, Mode: ModeCreate, Tab: TabDetails})
	return s.save(ctx, e)
}

// Update validates and replaces the funnel with the given id.
func (s *Service) Update(ctx context.Context, id string, f Funnel) (*Funnel, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	e, err := OpenEditor(*current, ModeEditing)
	if err != nil {
		return nil, err
	}
	f.ID = id
	e.state.Funnel = f.Clone()
	return s.save(ctx, e)
}

func (s *Service) save(ctx context.Context, e *Editor) (*Funnel, error) {
	saved, err := e.Save(ctx, s.catalog, s.listenerFor(e))
	if err != nil {
		if _, ok := AsValidationError(err); ok {
			s.observer.FunnelValidationFailed()
			s.log.Debug("funnel validation failed", "error", err)
		}
		return nil, err
	}
	return s.repo.Get(ctx, saved.ID)
}

// SaveEditor runs Save on an open editor, persisting through this service.
func (s *Service) SaveEditor(ctx context.Context, e *Editor) (Funnel, error) {
	saved, err := e.Save(ctx, s.catalog, s.listenerFor(e))
	if err != nil {
		if _, ok := AsValidationError(err); ok {
			s.observer.FunnelValidationFailed()
		}
		return Funnel{}, err
	}
	return saved, nil
}

// Check runs validation without saving.
func (s *Service) Check(ctx context.Context, f Funnel) error {
	err := Validate(ctx, Normalize(f), s.catalog)
	if _, ok := AsValidationError(err); ok {
		s.observer.FunnelValidationFailed()
	}
	return err
}

// Get returns the funnel with the given id.
func (s *Service) Get(ctx context.Context, id string) (*Funnel, error) {
	return s.repo.Get(ctx, id)
}

// List returns all funnels.
func (s *Service) List(ctx context.Context) ([]Funnel, error) {
	return s.repo.List(ctx)
}

// Delete runs the confirm-delete flow for the funnel with the given id.
func (s *Service) Delete(ctx context.Context, id string) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	e, err := OpenEditor(*current, ModeView)
	if err != nil {
		return err
	}
	if err := e.RequestDelete(); err != nil {
		return err
	}
	return e.ConfirmDelete(ctx, s)
}

// Preview renders the step chain of a stored funnel.
func (s *Service) Preview(ctx context.Context, id string) (*Preview, error) {
	f, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p := BuildPreview(ctx, f.Steps, s.catalog)
	return &p, nil
}
