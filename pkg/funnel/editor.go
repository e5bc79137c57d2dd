package funnel

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/vinizap/zapvenda/pkg/template"
)

// Mode is the editor's position in the view/edit/delete state machine.
type Mode string

const (
	ModeCreate   Mode = "create"
	ModeView     Mode = "view"
	ModeEditing  Mode = "editing"
	ModeDeleting Mode = "deleting"
	ModeDeleted  Mode = "deleted"
)

// Tab is the editor panel currently shown.
type Tab string

const (
	TabDetails Tab = "details"
	TabSteps   Tab = "steps"
	TabConfig  Tab = "config"
	TabPreview Tab = "preview"
)

// Valid reports whether t is a known tab.
func (t Tab) Valid() bool {
	switch t {
	case TabDetails, TabSteps, TabConfig, TabPreview:
		return true
	}
	return false
}

// StepField names a mutable field of a step.
type StepField string

const (
	FieldName            StepField = "name"
	FieldTemplateID      StepField = "template_id"
	FieldDelay           StepField = "delay"
	FieldCondition       StepField = "condition"
	FieldCustomCondition StepField = "custom_condition"
)

var (
	ErrLastStep          = errors.New("a funnel must keep at least one step")
	ErrStepIndex         = errors.New("step index out of range")
	ErrReadOnly          = errors.New("funnel is read-only in the current mode")
	ErrInvalidTransition = errors.New("invalid editor transition")
	ErrUnknownField      = errors.New("unknown step field")
	ErrFieldType         = errors.New("invalid value type for step field")
	ErrNoSteps           = errors.New("funnel has no steps")
	ErrInvalidTab        = errors.New("unknown editor tab")
)

// Listener receives the editor's output events. The caller decides how, or
// whether, to persist.
type Listener interface {
	OnSave(ctx context.Context, f Funnel) error
	OnDelete(ctx context.Context, funnelID string) error
}

// Callbacks adapts a pair of functions to Listener. Nil functions are no-ops.
type Callbacks struct {
	Save   func(ctx context.Context, f Funnel) error
	Delete func(ctx context.Context, funnelID string) error
}

func (c Callbacks) OnSave(ctx context.Context, f Funnel) error {
	if c.Save == nil {
		return nil
	}
	return c.Save(ctx, f)
}

func (c Callbacks) OnDelete(ctx context.Context, funnelID string) error {
	if c.Delete == nil {
		return nil
	}
	return c.Delete(ctx, funnelID)
}

// EditorState is the serializable state of one editor instance.
type EditorState struct {
	Funnel   Funnel       `json:"funnel"`
	Selected int          `json:"selected"`
	Tab      Tab          `json:"tab"`
	Mode     Mode         `json:"mode"`
	Snapshot *Funnel      `json:"snapshot,omitempty"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// Editor owns the step list of one funnel while it is open. It is not safe
// for concurrent use.
type Editor struct {
	state EditorState
}

// NewEditor opens a create-mode editor holding one empty step.
func NewEditor() *Editor {
	return &Editor{state: EditorState{
		Funnel: Funnel{Steps: []Step{NewStep()}, IsActive: true},
		Tab:    TabDetails,
		Mode:   ModeCreate,
	}}
}

// OpenEditor loads an existing funnel in view or editing mode.
func OpenEditor(f Funnel, mode Mode) (*Editor, error) {
	if len(f.Steps) == 0 {
		return nil, ErrNoSteps
	}
	e := &Editor{state: EditorState{Funnel: f.Clone(), Tab: TabDetails, Mode: ModeView}}
	switch mode {
	case ModeView:
	case ModeEditing:
		if err := e.Edit(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: cannot open in %s mode", ErrInvalidTransition, mode)
	}
	return e, nil
}

// RestoreEditor rebuilds an editor from a saved state.
func RestoreEditor(s EditorState) *Editor {
	s.Funnel = s.Funnel.Clone()
	if s.Snapshot != nil {
		snap := s.Snapshot.Clone()
		s.Snapshot = &snap
	}
	return &Editor{state: s}
}

// State returns a deep copy of the editor state.
func (e *Editor) State() EditorState {
	s := e.state
	s.Funnel = e.state.Funnel.Clone()
	if e.state.Snapshot != nil {
		snap := e.state.Snapshot.Clone()
		s.Snapshot = &snap
	}
	if e.state.Errors != nil {
		s.Errors = append([]FieldError(nil), e.state.Errors...)
	}
	return s
}

// Funnel returns a deep copy of the funnel being edited.
func (e *Editor) Funnel() Funnel { return e.state.Funnel.Clone() }

func (e *Editor) Mode() Mode    { return e.state.Mode }
func (e *Editor) Tab() Tab      { return e.state.Tab }
func (e *Editor) Selected() int { return e.state.Selected }

// Steps returns a copy of the current step list.
func (e *Editor) Steps() []Step { return cloneSteps(e.state.Funnel.Steps) }

// Errors returns the field errors of the last failed save.
func (e *Editor) Errors() []FieldError { return append([]FieldError(nil), e.state.Errors...) }

func (e *Editor) mutable() error {
	if e.state.Mode == ModeCreate || e.state.Mode == ModeEditing {
		return nil
	}
	return ErrReadOnly
}

func (e *Editor) checkIndex(index int) error {
	if index < 0 || index >= len(e.state.Funnel.Steps) {
		return fmt.Errorf("%w: %d", ErrStepIndex, index)
	}
	return nil
}

// AddStep appends a step with default values and selects it.
func (e *Editor) AddStep() (Step, error) {
	if err := e.mutable(); err != nil {
		return Step{}, err
	}
	step := NewStep()
	e.state.Funnel.Steps = append(e.state.Funnel.Steps, step)
	e.state.Selected = len(e.state.Funnel.Steps) - 1
	return step, nil
}

// RemoveStep deletes the step at index and re-settles the selection. The
// last remaining step cannot be removed.
func (e *Editor) RemoveStep(index int) error {
	if err := e.mutable(); err != nil {
		return err
	}
	if err := e.checkIndex(index); err != nil {
		return err
	}
	steps := e.state.Funnel.Steps
	if len(steps) <= 1 {
		return ErrLastStep
	}

	next := make([]Step, 0, len(steps)-1)
	next = append(next, steps[:index]...)
	next = append(next, steps[index+1:]...)
	e.state.Funnel.Steps = next

	switch {
	case index == e.state.Selected:
		e.state.Selected = max(0, index-1)
	case index < e.state.Selected:
		e.state.Selected--
	}
	return nil
}

// SelectStep makes index the active step and switches to the config tab.
func (e *Editor) SelectStep(index int) error {
	if e.state.Mode == ModeDeleted {
		return ErrInvalidTransition
	}
	if err := e.checkIndex(index); err != nil {
		return err
	}
	e.state.Selected = index
	e.state.Tab = TabConfig
	return nil
}

// SetTab switches the visible panel.
func (e *Editor) SetTab(tab Tab) error {
	if !tab.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTab, tab)
	}
	if e.state.Mode == ModeDeleted {
		return ErrInvalidTransition
	}
	e.state.Tab = tab
	return nil
}

// SetDetails replaces the funnel-level fields.
func (e *Editor) SetDetails(name, description string, isActive bool) error {
	if err := e.mutable(); err != nil {
		return err
	}
	e.state.Funnel.Name = name
	e.state.Funnel.Description = description
	e.state.Funnel.IsActive = isActive
	return nil
}

// UpdateStepField replaces one field of the step at index. Values are only
// type-checked here; range and reference checks happen on Save.
func (e *Editor) UpdateStepField(index int, field StepField, value any) error {
	if err := e.mutable(); err != nil {
		return err
	}
	if err := e.checkIndex(index); err != nil {
		return err
	}

	steps := cloneSteps(e.state.Funnel.Steps)
	step := &steps[index]

	switch field {
	case FieldName:
		s, err := asString(field, value)
		if err != nil {
			return err
		}
		step.Name = s
	case FieldTemplateID:
		s, err := asString(field, value)
		if err != nil {
			return err
		}
		step.TemplateID = s
	case FieldDelay:
		n, err := asInt(value)
		if err != nil {
			return err
		}
		step.Delay = n
	case FieldCondition:
		switch v := value.(type) {
		case Condition:
			step.Condition = v
		case string:
			step.Condition = Condition(v)
		default:
			return fmt.Errorf("%w: %s expects a string, got %T", ErrFieldType, field, value)
		}
	case FieldCustomCondition:
		s, err := asString(field, value)
		if err != nil {
			return err
		}
		step.CustomCondition = s
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	e.state.Funnel.Steps = steps
	return nil
}

func asString(field StepField, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s expects a string, got %T", ErrFieldType, field, value)
	}
	return s, nil
}

// asInt accepts Go integers and integral JSON numbers.
func asInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, fmt.Errorf("%w: delay must be a whole number of minutes", ErrFieldType)
		}
		return int(v), nil
	}
	return 0, fmt.Errorf("%w: delay expects an integer, got %T", ErrFieldType, value)
}

// Edit moves view → editing, keeping a snapshot for Cancel.
func (e *Editor) Edit() error {
	if e.state.Mode != ModeView {
		return fmt.Errorf("%w: edit from %s", ErrInvalidTransition, e.state.Mode)
	}
	snap := e.state.Funnel.Clone()
	e.state.Snapshot = &snap
	e.state.Mode = ModeEditing
	e.state.Errors = nil
	return nil
}

// Cancel discards edits and returns to view.
func (e *Editor) Cancel() error {
	if e.state.Mode != ModeEditing {
		return fmt.Errorf("%w: cancel from %s", ErrInvalidTransition, e.state.Mode)
	}
	if e.state.Snapshot != nil {
		e.state.Funnel = e.state.Snapshot.Clone()
	}
	e.state.Snapshot = nil
	e.state.Errors = nil
	e.state.Mode = ModeView
	if e.state.Selected >= len(e.state.Funnel.Steps) {
		e.state.Selected = len(e.state.Funnel.Steps) - 1
	}
	return nil
}

// Save validates the funnel and, on success, emits it to l and returns to
// view. A new funnel gets its id here. On validation failure the field
// errors are kept on the editor, nothing is emitted and the mode is
// unchanged.
func (e *Editor) Save(ctx context.Context, catalog template.Catalog, l Listener) (Funnel, error) {
	if err := e.mutable(); err != nil {
		return Funnel{}, err
	}

	f := Normalize(e.state.Funnel)
	if err := Validate(ctx, f, catalog); err != nil {
		if ve, ok := AsValidationError(err); ok {
			e.state.Errors = ve.Fields
		}
		return Funnel{}, err
	}

	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if l != nil {
		if err := l.OnSave(ctx, f.Clone()); err != nil {
			return Funnel{}, fmt.Errorf("failed to save funnel: %w", err)
		}
	}

	e.state.Funnel = f
	e.state.Snapshot = nil
	e.state.Errors = nil
	e.state.Mode = ModeView
	return f.Clone(), nil
}

// RequestDelete opens the delete confirmation from view.
func (e *Editor) RequestDelete() error {
	if e.state.Mode != ModeView || e.state.Funnel.ID == "" {
		return fmt.Errorf("%w: delete from %s", ErrInvalidTransition, e.state.Mode)
	}
	e.state.Mode = ModeDeleting
	return nil
}

// CancelDelete closes the confirmation and returns to view.
func (e *Editor) CancelDelete() error {
	if e.state.Mode != ModeDeleting {
		return fmt.Errorf("%w: cancel delete from %s", ErrInvalidTransition, e.state.Mode)
	}
	e.state.Mode = ModeView
	return nil
}

// ConfirmDelete emits the delete event. The editor is closed afterwards.
func (e *Editor) ConfirmDelete(ctx context.Context, l Listener) error {
	if e.state.Mode != ModeDeleting {
		return fmt.Errorf("%w: confirm delete from %s", ErrInvalidTransition, e.state.Mode)
	}
	if l != nil {
		if err := l.OnDelete(ctx, e.state.Funnel.ID); err != nil {
			return fmt.Errorf("failed to delete funnel: %w", err)
		}
	}
	e.state.Mode = ModeDeleted
	return nil
}
