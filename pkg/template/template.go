// Package template holds reusable message payloads referenced by funnel steps.
package template

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vinizap/zapvenda/pkg/domain"
)

// Type is the kind of payload a template sends.
type Type string

const (
	TypeText  Type = "text"
	TypeImage Type = "image"
	TypeVideo Type = "video"
	TypeAudio Type = "audio"
	TypeFile  Type = "file"
)

// Valid reports whether t is one of the known payload types.
func (t Type) Valid() bool {
	switch t {
	case TypeText, TypeImage, TypeVideo, TypeAudio, TypeFile:
		return true
	}
	return false
}

// Template is a reusable message payload.
type Template struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	Type      Type      `json:"type"`
	Category  string    `json:"category"`
	FileURL   string    `json:"file_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateRequest represents a request to create a template.
type CreateRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Content  string `json:"content" validate:"required"`
	Type     Type   `json:"type" validate:"required,oneof=text image video audio file"`
	Category string `json:"category" validate:"max=100"`
	FileURL  string `json:"file_url,omitempty" validate:"omitempty,url"`
}

// Build turns the request into a new Template with a generated ID.
// Media templates must carry a file URL.
func (r CreateRequest) Build(now time.Time) (Template, error) {
	if r.Type != TypeText && r.FileURL == "" {
		return Template{}, domain.NewValidationError(fmt.Sprintf("file_url is required for %s templates", r.Type))
	}
	return Template{
		ID:        uuid.NewString(),
		Name:      r.Name,
		Content:   r.Content,
		Type:      r.Type,
		Category:  r.Category,
		FileURL:   r.FileURL,
		CreatedAt: now.UTC(),
	}, nil
}

// Catalog is the read-only lookup the funnel editor resolves template ids against.
type Catalog interface {
	Get(ctx context.Context, id string) (*Template, error)
	List(ctx context.Context) ([]Template, error)
}

// Repository is a Catalog that can also be written to.
type Repository interface {
	Catalog
	Create(ctx context.Context, t Template) error
	Delete(ctx context.Context, id string) error
}

// MemoryCatalog is an in-process Repository.
type MemoryCatalog struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewMemoryCatalog creates a catalog seeded with the given templates.
func NewMemoryCatalog(seed ...Template) *MemoryCatalog {
	c := &MemoryCatalog{templates: make(map[string]Template, len(seed))}
	for _, t := range seed {
		c.templates[t.ID] = t
	}
	return c
}

// Get returns the template with the given id or a not-found domain error.
func (c *MemoryCatalog) Get(_ context.Context, id string) (*Template, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.templates[id]
	if !ok {
		return nil, domain.NewNotFoundError("template")
	}
	return &t, nil
}

// List returns all templates ordered by name.
func (c *MemoryCatalog) List(_ context.Context) ([]Template, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]Template, 0, len(c.templates))
	for _, t := range c.templates {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name == result[j].Name {
			return result[i].ID < result[j].ID
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// Create stores t, failing on a duplicate id.
func (c *MemoryCatalog) Create(_ context.Context, t Template) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.templates[t.ID]; exists {
		return domain.NewConflictError("template already exists")
	}
	c.templates[t.ID] = t
	return nil
}

// Delete removes the template with the given id.
func (c *MemoryCatalog) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.templates[id]; !exists {
		return domain.NewNotFoundError("template")
	}
	delete(c.templates, id)
	return nil
}
