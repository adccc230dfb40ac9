package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sol-registry/sol-backend/internal/index/domain"
)

// ProjectDetail loads a project with all its releases and files in one
// repeatable-read transaction, so the rendered document reflects a
// single consistent snapshot even while uploads are racing.
func (r *Repo) ProjectDetail(ctx context.Context, normalized string) (*domain.ProjectDetail, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("begin detail tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var detail domain.ProjectDetail
	p := &detail.Project
	err = tx.QueryRow(ctx, `
select `+projectColumns+`
from projects
where normalized_name = $1;
`, normalized).Scan(&p.ID, &p.Name, &p.NormalizedName, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFound("project not found: %s", normalized)
	}
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
select `+releaseColumns+`
from releases
where project_id = $1
order by uploaded_at desc;
`, p.ID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var rel domain.Release
		if err := rows.Scan(
			&rel.ID, &rel.ProjectID, &rel.Version, &rel.RequiresPython, &rel.IsPrerelease,
			&rel.Yanked, &rel.YankReason, &rel.Summary, &rel.Author, &rel.AuthorEmail,
			&rel.License, &rel.Keywords, &rel.HomePage, &rel.UploadedAt,
		); err != nil {
			rows.Close()
			return nil, err
		}
		detail.Releases = append(detail.Releases, rel)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = tx.Query(ctx, `
select f.id, f.release_id, f.filename, f.size, f.md5_digest, f.sha256_digest,
       f.upload_time, f.uploaded_by, f.path, f.content_type, f.packagetype, f.python_version,
       f.requires_python, f.has_signature, f.has_metadata, f.metadata_sha256, f.is_yanked, f.yank_reason
from files f
join releases rel on rel.id = f.release_id
where rel.project_id = $1
order by f.filename;
`, p.ID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		detail.Files = append(detail.Files, *f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit detail tx: %w", err)
	}
	return &detail, nil
}
