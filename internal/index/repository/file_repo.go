package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/sol-registry/sol-backend/internal/index/domain"
)

const fileColumns = `id, release_id, filename, size, md5_digest, sha256_digest,
upload_time, uploaded_by, path, content_type, packagetype, python_version,
requires_python, has_signature, has_metadata, metadata_sha256, is_yanked, yank_reason`

func scanFile(row pgx.Row) (*domain.File, error) {
	var f domain.File
	err := row.Scan(
		&f.ID, &f.ReleaseID, &f.Filename, &f.Size, &f.MD5Digest, &f.SHA256Digest,
		&f.UploadTime, &f.UploadedBy, &f.Path, &f.ContentType, &f.PackageType, &f.PythonVersion,
		&f.RequiresPython, &f.HasSignature, &f.HasMetadata, &f.MetadataSHA256, &f.Yanked, &f.YankReason,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// GetFileByLocation resolves a file by project, version and filename,
// the coordinates used in download URLs.
func (r *Repo) GetFileByLocation(ctx context.Context, normalized, version, filename string) (*domain.File, error) {
	const q = `
select f.id, f.release_id, f.filename, f.size, f.md5_digest, f.sha256_digest,
       f.upload_time, f.uploaded_by, f.path, f.content_type, f.packagetype, f.python_version,
       f.requires_python, f.has_signature, f.has_metadata, f.metadata_sha256, f.is_yanked, f.yank_reason
from files f
join releases rel on rel.id = f.release_id
join projects p on p.id = rel.project_id
where p.normalized_name = $1 and rel.version = $2 and f.filename = $3;
`
	f, err := scanFile(r.db.QueryRow(ctx, q, normalized, version, filename))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFound("file not found: %s/%s/%s", normalized, version, filename)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// SetFileYanked toggles a file's yanked flag. Yanked files stay in the
// index documents, only marked.
func (r *Repo) SetFileYanked(ctx context.Context, normalized, version, filename string, yanked bool, reason string) error {
	const q = `
update files f
set is_yanked = $4, yank_reason = $5
from releases rel, projects p
where f.release_id = rel.id and rel.project_id = p.id
  and p.normalized_name = $1 and rel.version = $2 and f.filename = $3;
`
	if !yanked {
		reason = ""
	}
	ct, err := r.db.Exec(ctx, q, normalized, version, filename, yanked, reason)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.NotFound("file not found: %s/%s/%s", normalized, version, filename)
	}
	return nil
}
