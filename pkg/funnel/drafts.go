package funnel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vinizap/zapvenda/pkg/domain"
	"github.com/vinizap/zapvenda/pkg/storage"
)

const draftKeyPrefix = "funnel:draft:"

// Draft is an open editor instance as returned to clients.
type Draft struct {
	ID      string      `json:"id"`
	State   EditorState `json:"state"`
	Preview Preview     `json:"preview"`
}

// DraftService keeps editor instances in a key-value store so the editor
// operations can be driven over HTTP. Each draft is one editor; concurrent
// writes to the same draft are last-writer-wins.
type DraftService struct {
	store   storage.Store
	funnels *Service
	ttl     time.Duration
}

// NewDraftService creates a draft service. Drafts expire ttl after their last change.
func NewDraftService(store storage.Store, funnels *Service, ttl time.Duration) *DraftService {
	return &DraftService{store: store, funnels: funnels, ttl: ttl}
}

// Open starts an editor. mode is "create", "view" or "edit"; the latter two
// load funnelID.
func (d *DraftService) Open(ctx context.Context, mode, funnelID string) (*Draft, error) {
	var (
		e   *Editor
		err error
	)
	switch mode {
	case "", string(ModeCreate):
		e = NewEditor()
	case string(ModeView), "edit", string(ModeEditing):
		if funnelID == "" {
			return nil, domain.NewBadRequestError("funnel_id is required to open an existing funnel")
		}
		f, getErr := d.funnels.Get(ctx, funnelID)
		if getErr != nil {
			return nil, getErr
		}
		target := ModeView
		if mode != string(ModeView) {
			target = ModeEditing
		}
		e, err = OpenEditor(*f, target)
		if err != nil {
			return nil, err
		}
	default:
		return nil, domain.NewBadRequestError(fmt.Sprintf("unknown editor mode %q", mode))
	}

	id := uuid.NewString()
	if err := d.persist(ctx, id, e); err != nil {
		return nil, err
	}
	return d.view(ctx, id, e), nil
}

// Get returns the draft with the given id.
func (d *DraftService) Get(ctx context.Context, id string) (*Draft, error) {
	e, err := d.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return d.view(ctx, id, e), nil
}

// Discard drops the draft without emitting anything.
func (d *DraftService) Discard(ctx context.Context, id string) error {
	if _, err := d.load(ctx, id); err != nil {
		return err
	}
	return d.store.Delete(ctx, draftKeyPrefix+id)
}

// Purge drops every open draft and returns how many were dropped.
func (d *DraftService) Purge(ctx context.Context) (int, error) {
	n, err := d.store.DeletePattern(ctx, draftKeyPrefix+"*")
	if err != nil {
		return n, fmt.Errorf("failed to purge drafts: %w", err)
	}
	return n, nil
}

// Apply loads the draft, runs fn against its editor and stores the result.
// The editor state is stored even when fn fails so that save errors stay
// attached to the draft. A draft whose funnel was deleted is dropped.
func (d *DraftService) Apply(ctx context.Context, id string, fn func(*Editor) error) (*Draft, error) {
	e, err := d.load(ctx, id)
	if err != nil {
		return nil, err
	}

	fnErr := fn(e)

	if e.Mode() == ModeDeleted {
		if err := d.store.Delete(ctx, draftKeyPrefix+id); err != nil {
			return nil, fmt.Errorf("failed to drop draft: %w", err)
		}
	} else if err := d.persist(ctx, id, e); err != nil {
		return nil, err
	}

	if fnErr != nil {
		return d.view(ctx, id, e), fnErr
	}
	return d.view(ctx, id, e), nil
}

// AddStep appends a default step to the draft.
func (d *DraftService) AddStep(ctx context.Context, id string) (*Draft, error) {
	return d.Apply(ctx, id, func(e *Editor) error {
		_, err := e.AddStep()
		return err
	})
}

// RemoveStep removes the step at index.
func (d *DraftService) RemoveStep(ctx context.Context, id string, index int) (*Draft, error) {
	return d.Apply(ctx, id, func(e *Editor) error { return e.RemoveStep(index) })
}

// SelectStep selects the step at index.
func (d *DraftService) SelectStep(ctx context.Context, id string, index int) (*Draft, error) {
	return d.Apply(ctx, id, func(e *Editor) error { return e.SelectStep(index) })
}

// UpdateStepField replaces one field of the step at index.
func (d *DraftService) UpdateStepField(ctx context.Context, id string, index int, field StepField, value any) (*Draft, error) {
	return d.Apply(ctx, id, func(e *Editor) error { return e.UpdateStepField(index, field, value) })
}

// SetDetails replaces the funnel-level fields. A nil isActive keeps the
// draft's current value.
func (d *DraftService) SetDetails(ctx context.Context, id, name, description string, isActive *bool) (*Draft, error) {
	return d.Apply(ctx, id, func(e *Editor) error {
		active := e.state.Funnel.IsActive
		if isActive != nil {
			active = *isActive
		}
		return e.SetDetails(name, description, active)
	})
}

// SetTab switches the draft's visible panel.
func (d *DraftService) SetTab(ctx context.Context, id string, tab Tab) (*Draft, error) {
	return d.Apply(ctx, id, func(e *Editor) error { return e.SetTab(tab) })
}

// Edit moves the draft from view to editing.
func (d *DraftService) Edit(ctx context.Context, id string) (*Draft, error) {
	return d.Apply(ctx, id, (*Editor).Edit)
}

// Cancel discards edits.
func (d *DraftService) Cancel(ctx context.Context, id string) (*Draft, error) {
	return d.Apply(ctx, id, (*Editor).Cancel)
}

// Submit saves the draft through the funnel service.
func (d *DraftService) Submit(ctx context.Context, id string) (*Draft, error) {
	return d.Apply(ctx, id, func(e *Editor) error {
		_, err := d.funnels.SaveEditor(ctx, e)
		return err
	})
}

// RequestDelete opens the delete confirmation.
func (d *DraftService) RequestDelete(ctx context.Context, id string) (*Draft, error) {
	return d.Apply(ctx, id, (*Editor).RequestDelete)
}

// CancelDelete closes the delete confirmation.
func (d *DraftService) CancelDelete(ctx context.Context, id string) (*Draft, error) {
	return d.Apply(ctx, id, (*Editor).CancelDelete)
}

// ConfirmDelete deletes the funnel and drops the draft.
func (d *DraftService) ConfirmDelete(ctx context.Context, id string) (*Draft, error) {
	return d.Apply(ctx, id, func(e *Editor) error { return e.ConfirmDelete(ctx, d.funnels) })
}

func (d *DraftService) load(ctx context.Context, id string) (*Editor, error) {
	var state EditorState
	if err := storage.GetJSON(ctx, d.store, draftKeyPrefix+id, &state); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, domain.NewNotFoundError("draft")
		}
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	return RestoreEditor(state), nil
}

func (d *DraftService) persist(ctx context.Context, id string, e *Editor) error {
	if err := storage.SetJSON(ctx, d.store, draftKeyPrefix+id, e.State(), d.ttl); err != nil {
		return fmt.Errorf("failed to store draft: %w", err)
	}
	return nil
}

func (d *DraftService) view(ctx context.Context, id string, e *Editor) *Draft {
	return &Draft{
		ID:      id,
		State:   e.State(),
		Preview: BuildPreview(ctx, e.state.Funnel.Steps, d.funnels.Catalog()),
	}
}
