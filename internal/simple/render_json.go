package simple

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/sol-registry/sol-backend/internal/index/domain"
)

type docMeta struct {
	APIVersion string `json:"api-version"`
}

type projectRef struct {
	Name string `json:"name"`
}

// IndexDoc is the PEP 691 root index document.
type IndexDoc struct {
	Meta     docMeta                    `json:"meta"`
	Projects []projectRef               `json:"projects"`
	Versions map[string][]string        `json:"versions"`
	Tracks   map[string]map[string]bool `json:"tracks"`
}

// FileEntry is one file in a PEP 691 project page. Yanked and the
// metadata fields are bool-or-string/bool-or-object per PEP 691, so
// they are typed as any.
type FileEntry struct {
	Filename         string            `json:"filename"`
	URL              string            `json:"url"`
	Hashes           map[string]string `json:"hashes"`
	Size             int64             `json:"size"`
	RequiresPython   string            `json:"requires-python,omitempty"`
	Yanked           any               `json:"yanked,omitempty"`
	CoreMetadata     any               `json:"core-metadata,omitempty"`
	DistInfoMetadata any               `json:"dist-info-metadata,omitempty"`
	GPGSig           bool              `json:"gpg-sig,omitempty"`
	UploadTime       string            `json:"upload-time,omitempty"`
}

// ProjectDoc is the PEP 691 project page document.
type ProjectDoc struct {
	Meta     docMeta                    `json:"meta"`
	Name     string                     `json:"name"`
	Files    []FileEntry                `json:"files"`
	Versions []string                   `json:"versions"`
	Tracks   map[string]map[string]bool `json:"tracks"`
}

// tracks is the PEP 708 repository tracks block served on every
// document.
func tracks() map[string]map[string]bool {
	return map[string]map[string]bool{
		"default":    {"stable": true},
		"stable":     {"stable": true},
		"prerelease": {"dev": true, "a": true, "b": true, "rc": true},
	}
}

// RenderIndexJSON renders the root index document.
func RenderIndexJSON(projects []domain.Project, versions map[string][]string) ([]byte, error) {
	doc := IndexDoc{
		Meta:     docMeta{APIVersion: RepositoryVersion},
		Projects: make([]projectRef, 0, len(projects)),
		Versions: versions,
		Tracks:   tracks(),
	}
	if doc.Versions == nil {
		doc.Versions = map[string][]string{}
	}
	for _, p := range projects {
		doc.Projects = append(doc.Projects, projectRef{Name: p.Name})
	}
	return json.Marshal(doc)
}

// RenderProjectJSON renders a project page document.
func RenderProjectJSON(detail *domain.ProjectDetail) ([]byte, error) {
	doc := ProjectDoc{
		Meta:     docMeta{APIVersion: RepositoryVersion},
		Name:     detail.Project.NormalizedName,
		Files:    make([]FileEntry, 0, len(detail.Files)),
		Versions: make([]string, 0, len(detail.Releases)),
		Tracks:   tracks(),
	}

	for _, rel := range detail.Releases {
		doc.Versions = append(doc.Versions, rel.Version)
	}

	for i := range detail.Files {
		f := &detail.Files[i]

		hashes := map[string]string{}
		if f.SHA256Digest != "" {
			hashes["sha256"] = strings.ToLower(f.SHA256Digest)
		}
		if f.MD5Digest != "" {
			hashes["md5"] = strings.ToLower(f.MD5Digest)
		}

		entry := FileEntry{
			Filename:       f.Filename,
			URL:            "/files/" + f.Path,
			Hashes:         hashes,
			Size:           f.Size,
			RequiresPython: f.RequiresPython,
			GPGSig:         f.HasSignature,
		}

		if f.Yanked {
			if f.YankReason != "" {
				entry.Yanked = f.YankReason
			} else {
				entry.Yanked = true
			}
		}

		if f.HasMetadata {
			if f.MetadataSHA256 != "" {
				sidecar := map[string]string{"sha256": f.MetadataSHA256}
				entry.CoreMetadata = sidecar
				entry.DistInfoMetadata = sidecar
			} else {
				entry.CoreMetadata = true
				entry.DistInfoMetadata = true
			}
		}

		if !f.UploadTime.IsZero() {
			entry.UploadTime = f.UploadTime.UTC().Format(time.RFC3339)
		}

		doc.Files = append(doc.Files, entry)
	}

	return json.Marshal(doc)
}
