// Package pypi serves the project JSON metadata endpoint. Not defined
// by any PEP, but widely used by tooling; it exposes the full release
// metadata the simple index omits.
package pypi

import (
	"github.com/sol-registry/sol-backend/internal/index/domain"
)

// Info is the metadata block of the document, taken from the latest
// release.
type Info struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	Summary        string `json:"summary,omitempty"`
	Description    string `json:"description,omitempty"`
	Author         string `json:"author,omitempty"`
	AuthorEmail    string `json:"author_email,omitempty"`
	License        string `json:"license,omitempty"`
	Keywords       string `json:"keywords,omitempty"`
	HomePage       string `json:"home_page,omitempty"`
	RequiresPython string `json:"requires_python,omitempty"`
	Yanked         bool   `json:"yanked"`
	YankedReason   string `json:"yanked_reason,omitempty"`
}

// FileInfo is one distribution file in the releases and urls sections.
type FileInfo struct {
	Filename          string            `json:"filename"`
	URL               string            `json:"url"`
	Size              int64             `json:"size"`
	Digests           map[string]string `json:"digests"`
	PythonVersion     string            `json:"python_version"`
	PackageType       string            `json:"packagetype"`
	HasSig            bool              `json:"has_sig"`
	UploadTime        string            `json:"upload_time"`
	UploadTimeISO8601 string            `json:"upload_time_iso_8601"`
	RequiresPython    string            `json:"requires_python,omitempty"`
	Yanked            bool              `json:"yanked"`
	YankedReason      string            `json:"yanked_reason,omitempty"`
}

type Document struct {
	Info       Info                  `json:"info"`
	LastSerial int                   `json:"last_serial"`
	Releases   map[string][]FileInfo `json:"releases"`
	URLs       []FileInfo            `json:"urls"`
}

// Render builds the document. Releases arrive newest upload first, so
// the first one is the latest and feeds both info and urls.
func Render(detail *domain.ProjectDetail) *Document {
	byRelease := make(map[int64][]FileInfo, len(detail.Releases))
	for _, f := range detail.Files {
		byRelease[f.ReleaseID] = append(byRelease[f.ReleaseID], fileInfo(f))
	}

	doc := Document{
		LastSerial: 1,
		Releases:   make(map[string][]FileInfo, len(detail.Releases)),
	}
	for _, rel := range detail.Releases {
		files := byRelease[rel.ID]
		if files == nil {
			files = []FileInfo{}
		}
		doc.Releases[rel.Version] = files
	}

	doc.Info = Info{Name: detail.Project.Name, Description: detail.Project.Description}
	if len(detail.Releases) > 0 {
		latest := detail.Releases[0]
		doc.Info = Info{
			Name:           detail.Project.Name,
			Version:        latest.Version,
			Summary:        latest.Summary,
			Description:    detail.Project.Description,
			Author:         latest.Author,
			AuthorEmail:    latest.AuthorEmail,
			License:        latest.License,
			Keywords:       latest.Keywords,
			HomePage:       latest.HomePage,
			RequiresPython: latest.RequiresPython,
			Yanked:         latest.Yanked,
		}
		if latest.Yanked {
			doc.Info.YankedReason = latest.YankReason
		}
		doc.URLs = doc.Releases[latest.Version]
	}
	if doc.URLs == nil {
		doc.URLs = []FileInfo{}
	}
	return &doc
}

func fileInfo(f domain.File) FileInfo {
	digests := make(map[string]string, 2)
	if f.MD5Digest != "" {
		digests["md5"] = f.MD5Digest
	}
	if f.SHA256Digest != "" {
		digests["sha256"] = f.SHA256Digest
	}

	info := FileInfo{
		Filename:          f.Filename,
		URL:               "/files/" + f.Path,
		Size:              f.Size,
		Digests:           digests,
		PythonVersion:     f.PythonVersion,
		PackageType:       f.PackageType,
		HasSig:            f.HasSignature,
		UploadTime:        f.UploadTime.UTC().Format("2006-01-02 15:04:05"),
		UploadTimeISO8601: f.UploadTime.UTC().Format("2006-01-02T15:04:05Z07:00"),
		RequiresPython:    f.RequiresPython,
		Yanked:            f.Yanked,
	}
	if f.Yanked {
		info.YankedReason = f.YankReason
	}
	return info
}
