package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/sol-registry/sol-backend/internal/index/domain"
)

const projectColumns = `id, name, normalized_name, description, created_at, updated_at`

// GetProjectByName looks a project up by its normalized name.
func (r *Repo) GetProjectByName(ctx context.Context, normalized string) (*domain.Project, error) {
	const q = `
select ` + projectColumns + `
from projects
where normalized_name = $1;
`
	var p domain.Project
	err := r.db.QueryRow(ctx, q, normalized).
		Scan(&p.ID, &p.Name, &p.NormalizedName, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFound("project not found: %s", normalized)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjects returns every project ordered by normalized name, which
// keeps the rendered root index stable.
func (r *Repo) ListProjects(ctx context.Context) ([]domain.Project, error) {
	const q = `
select ` + projectColumns + `
from projects
order by normalized_name;
`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Project, 0, 32)
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.NormalizedName, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListProjectVersions returns the version strings of every project,
// keyed by normalized name. Feeds the root index JSON document.
func (r *Repo) ListProjectVersions(ctx context.Context) (map[string][]string, error) {
	const q = `
select p.normalized_name, r.version
from projects p
join releases r on r.project_id = p.id
order by p.normalized_name, r.uploaded_at desc;
`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var name, version string
		if err := rows.Scan(&name, &version); err != nil {
			return nil, err
		}
		out[name] = append(out[name], version)
	}
	return out, rows.Err()
}
