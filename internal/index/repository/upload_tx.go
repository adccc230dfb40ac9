package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sol-registry/sol-backend/internal/index/domain"
)

// CreateFileParams carries everything the write path commits in one
// transaction: project and release identity plus the file row itself.
type CreateFileParams struct {
	Name           string
	NormalizedName string
	Description    string

	Version        string
	RequiresPython string
	IsPrerelease   bool
	Summary        string
	Author         string
	AuthorEmail    string
	License        string
	Keywords       string
	HomePage       string

	Filename       string
	Size           int64
	MD5Digest      string
	SHA256Digest   string
	UploadedBy     string
	Path           string
	ContentType    string
	PackageType    string
	PythonVersion  string
	HasSignature   bool
	HasMetadata    bool
	MetadataSHA256 string
}

type CreateFileResult struct {
	File           domain.File
	ProjectCreated bool
	// Existing is true when an identical file was already registered
	// and the call was an idempotent no-op.
	Existing bool
}

// CreateFile commits project, release and file creation atomically.
// Create-or-fetch races with concurrent uploads resolve through the
// unique constraints; a violation is retried once before surfacing.
func (r *Repo) CreateFile(ctx context.Context, p CreateFileParams) (*CreateFileResult, error) {
	res, err := r.createFileOnce(ctx, p)
	if err != nil && isUniqueViolation(err) {
		res, err = r.createFileOnce(ctx, p)
	}
	return res, err
}

func (r *Repo) createFileOnce(ctx context.Context, p CreateFileParams) (*CreateFileResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin upload tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var res CreateFileResult

	projectID, created, err := upsertProject(ctx, tx, p)
	if err != nil {
		return nil, err
	}
	res.ProjectCreated = created

	releaseID, err := upsertRelease(ctx, tx, projectID, p)
	if err != nil {
		return nil, err
	}

	// No silent overwrite: an existing (release, filename) row with the
	// same content makes the upload an idempotent no-op, any other
	// content is a conflict.
	var existingSHA string
	err = tx.QueryRow(ctx, `
select sha256_digest from files where release_id = $1 and filename = $2;
`, releaseID, p.Filename).Scan(&existingSHA)
	switch {
	case err == nil:
		if existingSHA != p.SHA256Digest {
			return nil, domain.Conflict("file %s already exists with different content", p.Filename)
		}
		f, err := scanFile(tx.QueryRow(ctx, `
select `+fileColumns+` from files where release_id = $1 and filename = $2;
`, releaseID, p.Filename))
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit upload tx: %w", err)
		}
		res.File = *f
		res.Existing = true
		return &res, nil
	case errors.Is(err, pgx.ErrNoRows):
		// fall through to insert
	default:
		return nil, err
	}

	f, err := scanFile(tx.QueryRow(ctx, `
insert into files (
    release_id, filename, size, md5_digest, sha256_digest, uploaded_by, path,
    content_type, packagetype, python_version, requires_python,
    has_signature, has_metadata, metadata_sha256
) values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
returning `+fileColumns+`;
`,
		releaseID, p.Filename, p.Size, p.MD5Digest, p.SHA256Digest, p.UploadedBy, p.Path,
		p.ContentType, p.PackageType, p.PythonVersion, p.RequiresPython,
		p.HasSignature, p.HasMetadata, p.MetadataSHA256,
	))
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `update projects set updated_at = now() where id = $1;`, projectID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit upload tx: %w", err)
	}
	res.File = *f
	return &res, nil
}

// upsertProject inserts the project or fetches the existing row. The
// insert uses ON CONFLICT DO NOTHING so a lost race does not abort the
// surrounding transaction.
func upsertProject(ctx context.Context, tx pgx.Tx, p CreateFileParams) (int64, bool, error) {
	var id int64
	err := tx.QueryRow(ctx, `
insert into projects (name, normalized_name, description)
values ($1, $2, $3)
on conflict (normalized_name) do nothing
returning id;
`, p.Name, p.NormalizedName, p.Description).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, err
	}

	err = tx.QueryRow(ctx, `
select id from projects where normalized_name = $1;
`, p.NormalizedName).Scan(&id)
	if err != nil {
		return 0, false, err
	}
	return id, false, nil
}

func upsertRelease(ctx context.Context, tx pgx.Tx, projectID int64, p CreateFileParams) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
insert into releases (
    project_id, version, requires_python, is_prerelease,
    summary, author, author_email, license, keywords, home_page
) values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
on conflict (project_id, version) do nothing
returning id;
`, projectID, p.Version, p.RequiresPython, p.IsPrerelease,
		p.Summary, p.Author, p.AuthorEmail, p.License, p.Keywords, p.HomePage).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	err = tx.QueryRow(ctx, `
select id from releases where project_id = $1 and version = $2;
`, projectID, p.Version).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}
