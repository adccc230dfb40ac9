package repository

import (
	"context"

	"github.com/sol-registry/sol-backend/internal/index/domain"
)

const releaseColumns = `id, project_id, version, requires_python, is_prerelease,
yanked, yank_reason, summary, author, author_email, license, keywords, home_page, uploaded_at`

// ListReleases returns all releases of a project, newest upload first.
func (r *Repo) ListReleases(ctx context.Context, projectID int64) ([]domain.Release, error) {
	const q = `
select ` + releaseColumns + `
from releases
where project_id = $1
order by uploaded_at desc;
`
	rows, err := r.db.Query(ctx, q, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Release, 0, 8)
	for rows.Next() {
		var rel domain.Release
		if err := rows.Scan(
			&rel.ID, &rel.ProjectID, &rel.Version, &rel.RequiresPython, &rel.IsPrerelease,
			&rel.Yanked, &rel.YankReason, &rel.Summary, &rel.Author, &rel.AuthorEmail,
			&rel.License, &rel.Keywords, &rel.HomePage, &rel.UploadedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}

// SetReleaseYanked marks or unmarks an entire release as yanked.
func (r *Repo) SetReleaseYanked(ctx context.Context, normalized, version string, yanked bool, reason string) error {
	const q = `
update releases rel
set yanked = $3, yank_reason = $4
from projects p
where rel.project_id = p.id and p.normalized_name = $1 and rel.version = $2;
`
	if !yanked {
		reason = ""
	}
	ct, err := r.db.Exec(ctx, q, normalized, version, yanked, reason)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.NotFound("release not found: %s %s", normalized, version)
	}
	return nil
}
