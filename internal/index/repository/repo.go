// Package repository implements the metadata store on PostgreSQL.
//
// All multi-row mutations run inside a transaction and rely on the
// unique constraints below for idempotent create-or-fetch under
// concurrent uploads.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

const schema = `
create table if not exists projects (
    id              bigserial primary key,
    name            text not null unique,
    normalized_name text not null unique,
    description     text not null default '',
    created_at      timestamptz not null default now(),
    updated_at      timestamptz not null default now()
);

create table if not exists releases (
    id              bigserial primary key,
    project_id      bigint not null references projects(id),
    version         text not null,
    requires_python text not null default '',
    is_prerelease   boolean not null default false,
    yanked          boolean not null default false,
    yank_reason     text not null default '',
    summary         text not null default '',
    author          text not null default '',
    author_email    text not null default '',
    license         text not null default '',
    keywords        text not null default '',
    home_page       text not null default '',
    uploaded_at     timestamptz not null default now(),
    unique (project_id, version)
);

create table if not exists files (
    id              bigserial primary key,
    release_id      bigint not null references releases(id),
    filename        text not null,
    size            bigint not null,
    md5_digest      text not null default '',
    sha256_digest   text not null,
    upload_time     timestamptz not null default now(),
    uploaded_by     text not null default '',
    path            text not null,
    content_type    text not null,
    packagetype     text not null,
    python_version  text not null,
    requires_python text not null default '',
    has_signature   boolean not null default false,
    has_metadata    boolean not null default false,
    metadata_sha256 text not null default '',
    is_yanked       boolean not null default false,
    yank_reason     text not null default '',
    unique (release_id, filename)
);

create index if not exists idx_releases_project on releases (project_id);
create index if not exists idx_files_release_filename on files (release_id, filename);
`

// EnsureSchema creates the tables if they do not exist yet.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique
// constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
