package query

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/solatis/queryforge/internal/core/db"
	"github.com/solatis/queryforge/internal/types"
)

// Template is a named, persisted filter tree owned by a tenant.
// Timestamps are RFC3339 UTC strings for cross-driver portability.
type Template struct {
	ID          types.TemplateID `db:"template_id"`
	Tenant      string           `db:"tenant"`
	Name        string           `db:"name"`
	Description string           `db:"description"`
	Tree        string           `db:"tree"`
	CreatedAt   string           `db:"created_at"`
	UpdatedAt   string           `db:"updated_at"`
}

// Preset is a reusable filter fragment (a condition or subtree) that can
// be inserted into a tree under construction.
type Preset struct {
	ID          string `db:"preset_id"`
	Tenant      string `db:"tenant"`
	Name        string `db:"name"`
	Description string `db:"description"`
	Fragment    string `db:"fragment"`
	CreatedAt   string `db:"created_at"`
}

// Share is a persisted share token record. The signature itself is never
// stored; it is recomputed from the share ID on verification.
type Share struct {
	ID         types.ShareID `db:"share_id"`
	TemplateID string        `db:"template_id"`
	Tenant     string        `db:"tenant"`
	SecretID   string        `db:"secret_id"`
	CreatedAt  string        `db:"created_at"`
	ExpiresAt  string        `db:"expires_at"`
	Revoked    int           `db:"revoked"`
}

// Store persists templates, presets, and share tokens through named
// queries.
type Store struct {
	q *db.Queries
}

// NewStore wraps the named-query layer.
func NewStore(q *db.Queries) *Store {
	return &Store{q: q}
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// CreateTemplate persists a new template, assigning its ID and timestamps.
func (s *Store) CreateTemplate(tenant, name, description string, root types.Node) (*Template, error) {
	raw, err := types.MarshalNode(root)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tree: %w", err)
	}

	t := &Template{
		ID:          types.NewTemplateID(),
		Tenant:      tenant,
		Name:        name,
		Description: description,
		Tree:        string(raw),
		CreatedAt:   nowRFC3339(),
		UpdatedAt:   nowRFC3339(),
	}

	if _, err := s.q.Exec("insert-template",
		t.ID, t.Tenant, t.Name, t.Description, t.Tree, t.CreatedAt, t.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert template: %w", err)
	}
	return t, nil
}

// GetTemplate fetches a tenant's template by ID.
func (s *Store) GetTemplate(tenant string, id types.TemplateID) (*Template, error) {
	var t Template
	if err := s.q.Get("get-template", &t, id, tenant); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &t, nil
}

// ListTemplates returns all of a tenant's templates, newest first.
func (s *Store) ListTemplates(tenant string) ([]Template, error) {
	var ts []Template
	if err := s.q.Select("list-templates", &ts, tenant); err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return ts, nil
}

// UpdateTemplate replaces a template's name, description, and tree.
func (s *Store) UpdateTemplate(tenant string, id types.TemplateID, name, description string, root types.Node) error {
	raw, err := types.MarshalNode(root)
	if err != nil {
		return fmt.Errorf("failed to encode tree: %w", err)
	}

	res, err := s.q.Exec("update-template", name, description, string(raw), nowRFC3339(), id, tenant)
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

// DeleteTemplate removes a tenant's template.
func (s *Store) DeleteTemplate(tenant string, id types.TemplateID) error {
	res, err := s.q.Exec("delete-template", id, tenant)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

// TemplateTree decodes a template's stored tree back into a filter node.
func (t *Template) TemplateTree() (types.Node, error) {
	return types.UnmarshalNode([]byte(t.Tree))
}

// CreatePreset persists a reusable filter fragment.
func (s *Store) CreatePreset(tenant, name, description string, fragment types.Node) (*Preset, error) {
	raw, err := types.MarshalNode(fragment)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fragment: %w", err)
	}

	p := &Preset{
		ID:          string(types.NewTemplateID()),
		Tenant:      tenant,
		Name:        name,
		Description: description,
		Fragment:    string(raw),
		CreatedAt:   nowRFC3339(),
	}

	if _, err := s.q.Exec("insert-preset",
		p.ID, p.Tenant, p.Name, p.Description, p.Fragment, p.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert preset: %w", err)
	}
	return p, nil
}

// GetPreset fetches a tenant's preset by ID.
func (s *Store) GetPreset(tenant, id string) (*Preset, error) {
	var p Preset
	if err := s.q.Get("get-preset", &p, id, tenant); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPresetNotFound
		}
		return nil, fmt.Errorf("failed to get preset: %w", err)
	}
	return &p, nil
}

// ListPresets returns a tenant's presets sorted by name.
func (s *Store) ListPresets(tenant string) ([]Preset, error) {
	var ps []Preset
	if err := s.q.Select("list-presets", &ps, tenant); err != nil {
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}
	return ps, nil
}

// DeletePreset removes a tenant's preset.
func (s *Store) DeletePreset(tenant, id string) error {
	res, err := s.q.Exec("delete-preset", id, tenant)
	if err != nil {
		return fmt.Errorf("failed to delete preset: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrPresetNotFound
	}
	return nil
}

// insertShare records a newly issued share token.
func (s *Store) insertShare(sh *Share) error {
	if _, err := s.q.Exec("insert-share",
		sh.ID, sh.TemplateID, sh.Tenant, sh.SecretID, sh.CreatedAt, sh.ExpiresAt); err != nil {
		return fmt.Errorf("failed to insert share token: %w", err)
	}
	return nil
}

// getShare looks up a share record by ID.
func (s *Store) getShare(id types.ShareID) (*Share, error) {
	var sh Share
	if err := s.q.Get("get-share", &sh, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShareInvalidFormat
		}
		return nil, fmt.Errorf("failed to get share token: %w", err)
	}
	return &sh, nil
}

// RevokeShare marks a tenant's share token as revoked. Revocation is
// permanent; issuing a new token requires a new share ID.
func (s *Store) RevokeShare(tenant string, id types.ShareID) error {
	if _, err := s.q.Exec("revoke-share", id, tenant); err != nil {
		return fmt.Errorf("failed to revoke share token: %w", err)
	}
	return nil
}
