package domain

import "time"

// Project is a package in the repository. The normalized name is the
// PEP 503 form of the display name and is the key used for lookups.
type Project struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	NormalizedName string    `json:"normalized_name"`
	Description    string    `json:"description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Release is one version of a project. (ProjectID, Version) is unique.
type Release struct {
	ID             int64     `json:"id"`
	ProjectID      int64     `json:"project_id"`
	Version        string    `json:"version"`
	RequiresPython string    `json:"requires_python,omitempty"`
	IsPrerelease   bool      `json:"is_prerelease"`
	Yanked         bool      `json:"yanked"`
	YankReason     string    `json:"yank_reason,omitempty"`
	Summary        string    `json:"summary,omitempty"`
	Author         string    `json:"author,omitempty"`
	AuthorEmail    string    `json:"author_email,omitempty"`
	License        string    `json:"license,omitempty"`
	Keywords       string    `json:"keywords,omitempty"`
	HomePage       string    `json:"home_page,omitempty"`
	UploadedAt     time.Time `json:"uploaded_at"`
}

// File is one uploaded distribution (wheel, sdist, ...). (ReleaseID,
// Filename) is unique and the sha256 digest identifies the stored blob.
type File struct {
	ID             int64     `json:"id"`
	ReleaseID      int64     `json:"release_id"`
	Filename       string    `json:"filename"`
	Size           int64     `json:"size"`
	MD5Digest      string    `json:"md5_digest,omitempty"`
	SHA256Digest   string    `json:"sha256_digest"`
	UploadTime     time.Time `json:"upload_time"`
	UploadedBy     string    `json:"uploaded_by,omitempty"`
	Path           string    `json:"path"`
	ContentType    string    `json:"content_type"`
	PackageType    string    `json:"packagetype"`
	PythonVersion  string    `json:"python_version"`
	RequiresPython string    `json:"requires_python,omitempty"`
	HasSignature   bool      `json:"has_signature"`
	HasMetadata    bool      `json:"has_metadata"`
	MetadataSHA256 string    `json:"metadata_sha256,omitempty"`
	Yanked         bool      `json:"is_yanked"`
	YankReason     string    `json:"yank_reason,omitempty"`
}

// Package type constants derived from the distribution filename.
const (
	PackageTypeSdist = "sdist"
	PackageTypeWheel = "bdist_wheel"
	PackageTypeEgg   = "bdist_egg"
)

// ProjectDetail is one consistent snapshot of a project with every
// release and every file, as needed to render a project page.
type ProjectDetail struct {
	Project  Project
	Releases []Release
	Files    []File
}
