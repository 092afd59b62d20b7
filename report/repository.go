package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrBrandingNotFound indicates the requested branding does not exist.
var ErrBrandingNotFound = errors.New("report: branding not found")

// ErrDuplicateBranding indicates the branding name is taken.
var ErrDuplicateBranding = errors.New("report: branding name already exists")

// BrandingRepository persists branding configurations. The template spec is
// stored as (mode, config) and decoded back into its typed variant on read.
type BrandingRepository struct {
	pool *pgxpool.Pool
}

func NewBrandingRepository(pool *pgxpool.Pool) *BrandingRepository {
	return &BrandingRepository{pool: pool}
}

func decodeTemplate(mode TemplateMode, config []byte) (TemplateSpec, error) {
	switch mode {
	case ModeHTML:
		var t HTMLTemplate
		if err := json.Unmarshal(config, &t); err != nil {
			return nil, err
		}
		return t, nil
	case ModeImage:
		var t ImageTemplate
		if err := json.Unmarshal(config, &t); err != nil {
			return nil, err
		}
		return t, nil
	case ModeMarkup:
		var t MarkupTemplate
		if err := json.Unmarshal(config, &t); err != nil {
			return nil, err
		}
		return t, nil
	}
	return nil, fmt.Errorf("report: unknown template mode %q", mode)
}

const brandingColumns = `id, name, margin_top, margin_bottom, margin_left, margin_right,
	COALESCE(title_color,''), COALESCE(accent_color,''), mode, config`

func scanBranding(row pgx.Row) (Branding, error) {
	var b Branding
	var mode TemplateMode
	var config []byte
	err := row.Scan(&b.ID, &b.Name, &b.Margins.Top, &b.Margins.Bottom, &b.Margins.Left, &b.Margins.Right,
		&b.TitleColor, &b.AccentColor, &mode, &config)
	if err != nil {
		return Branding{}, err
	}
	if b.Template, err = decodeTemplate(mode, config); err != nil {
		return Branding{}, err
	}
	return b, nil
}

// Get loads a branding by id.
func (r *BrandingRepository) Get(ctx context.Context, id int64) (Branding, error) {
	b, err := scanBranding(r.pool.QueryRow(ctx, `SELECT `+brandingColumns+` FROM brandings WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Branding{}, ErrBrandingNotFound
	}
	return b, err
}

// GetByName loads a branding by its unique name.
func (r *BrandingRepository) GetByName(ctx context.Context, name string) (Branding, error) {
	b, err := scanBranding(r.pool.QueryRow(ctx, `SELECT `+brandingColumns+` FROM brandings WHERE name=$1`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return Branding{}, ErrBrandingNotFound
	}
	return b, err
}

// List returns all brandings.
func (r *BrandingRepository) List(ctx context.Context) ([]Branding, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+brandingColumns+` FROM brandings ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var brandings []Branding
	for rows.Next() {
		b, err := scanBranding(rows)
		if err != nil {
			return nil, err
		}
		brandings = append(brandings, b)
	}
	return brandings, rows.Err()
}

// Save inserts or updates a branding after validating it.
func (r *BrandingRepository) Save(ctx context.Context, b Branding) (Branding, error) {
	if err := b.Validate(); err != nil {
		return Branding{}, err
	}
	config, err := json.Marshal(b.Template)
	if err != nil {
		return Branding{}, err
	}
	err = r.pool.QueryRow(ctx, `INSERT INTO brandings
		(name, margin_top, margin_bottom, margin_left, margin_right, title_color, accent_color, mode, config, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW(),NOW())
		ON CONFLICT (name) DO UPDATE SET
			margin_top=EXCLUDED.margin_top, margin_bottom=EXCLUDED.margin_bottom,
			margin_left=EXCLUDED.margin_left, margin_right=EXCLUDED.margin_right,
			title_color=EXCLUDED.title_color, accent_color=EXCLUDED.accent_color,
			mode=EXCLUDED.mode, config=EXCLUDED.config, updated_at=NOW()
		RETURNING id`,
		b.Name, b.Margins.Top, b.Margins.Bottom, b.Margins.Left, b.Margins.Right,
		b.TitleColor, b.AccentColor, b.Template.Mode(), config).Scan(&b.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Branding{}, ErrDuplicateBranding
		}
		return Branding{}, err
	}
	return b, nil
}

// Delete removes a branding.
func (r *BrandingRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM brandings WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBrandingNotFound
	}
	return nil
}

// ListAssetPaths returns every asset path referenced by image brandings.
// The worker uses this to sweep orphaned files from the asset directory.
func (r *BrandingRepository) ListAssetPaths(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.pool.Query(ctx, `SELECT config FROM brandings WHERE mode=$1`, ModeImage)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	paths := make(map[string]struct{})
	for rows.Next() {
		var config []byte
		if err := rows.Scan(&config); err != nil {
			return nil, err
		}
		var t ImageTemplate
		if err := json.Unmarshal(config, &t); err != nil {
			return nil, err
		}
		for _, o := range t.Overlays {
			paths[o.AssetPath] = struct{}{}
		}
	}
	return paths, rows.Err()
}
