package simple

import (
	"html"
	"log"
	"regexp"
	"strings"

	"github.com/sol-registry/sol-backend/internal/index/domain"
)

// Simplified PEP 440 specifier shapes accepted for data-requires-python.
var (
	specifierPattern = regexp.MustCompile(`^\s*(?:(?:<=|>=|<|>|!=|==|~=)\s*[0-9]+(?:\.[0-9]+)*(?:(?:a|b|rc)[0-9]+)?(?:\.post[0-9]+)?(?:\.dev[0-9]+)?(?:\s*,\s*)?)+\s*$`)
	versionPattern   = regexp.MustCompile(`^\s*[0-9]+(?:\.[0-9]+)*(?:(?:a|b|rc)[0-9]+)?(?:\.post[0-9]+)?(?:\.dev[0-9]+)?\s*$`)
	exclusionPattern = regexp.MustCompile(`^\s*(?:!=\s*[0-9]+(?:\.[0-9]+)*\.\*\s*,?\s*)+$`)
)

func validRequiresPython(spec string) bool {
	if spec == "" || strings.TrimSpace(spec) == "*" {
		return true
	}
	return specifierPattern.MatchString(spec) ||
		versionPattern.MatchString(spec) ||
		exclusionPattern.MatchString(spec)
}

const htmlHeader = `<!DOCTYPE html>
<html>
  <head>
    <meta name="pypi:repository-version" content="` + RepositoryVersion + `">
  </head>
  <body>
`

const htmlFooter = `  </body>
</html>
`

// RenderIndexHTML renders the root index: one anchor per project.
func RenderIndexHTML(projects []domain.Project) []byte {
	var b strings.Builder
	b.WriteString(htmlHeader)
	for _, p := range projects {
		b.WriteString(`    <a href="/simple/` + p.NormalizedName + `/">`)
		b.WriteString(html.EscapeString(p.Name))
		b.WriteString("</a>\n")
	}
	b.WriteString(htmlFooter)
	return []byte(b.String())
}

// RenderProjectHTML renders a project page: one anchor per file with
// the PEP-mandated data attributes for hashes, requires-python, yank
// status, metadata and signature sidecars.
func RenderProjectHTML(detail *domain.ProjectDetail) []byte {
	var b strings.Builder
	b.WriteString(htmlHeader)
	b.WriteString("    <h1>" + html.EscapeString(detail.Project.Name) + "</h1>\n")

	for i := range detail.Files {
		f := &detail.Files[i]

		b.WriteString(`    <a href="/files/` + f.Path)
		if f.SHA256Digest != "" {
			b.WriteString("#sha256=" + f.SHA256Digest)
		}
		b.WriteString(`"`)

		if f.RequiresPython != "" {
			if !validRequiresPython(f.RequiresPython) {
				log.Printf("[simple] invalid requires-python in %s: %q", f.Filename, f.RequiresPython)
			}
			b.WriteString(` data-requires-python="` + html.EscapeString(f.RequiresPython) + `"`)
		}

		if f.Yanked {
			if f.YankReason != "" {
				b.WriteString(` data-yanked="` + html.EscapeString(f.YankReason) + `"`)
			} else {
				b.WriteString(` data-yanked="true"`)
			}
		}

		if f.HasMetadata {
			if f.MetadataSHA256 != "" {
				b.WriteString(` data-core-metadata="sha256=` + f.MetadataSHA256 + `"`)
				b.WriteString(` data-dist-info-metadata="sha256=` + f.MetadataSHA256 + `"`)
			} else {
				b.WriteString(` data-core-metadata="true"`)
				b.WriteString(` data-dist-info-metadata="true"`)
			}
		}

		if f.HasSignature {
			b.WriteString(` data-gpg-sig="true"`)
		}

		b.WriteString(">" + html.EscapeString(f.Filename) + "</a>\n")
	}

	b.WriteString(htmlFooter)
	return []byte(b.String())
}
