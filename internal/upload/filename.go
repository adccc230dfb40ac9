package upload

import (
	"regexp"
	"strings"

	"github.com/sol-registry/sol-backend/internal/index/domain"
)

// PEP 508 package name shape.
var packageNamePattern = regexp.MustCompile(`^([A-Za-z0-9]|[A-Za-z0-9][A-Za-z0-9._-]*[A-Za-z0-9])$`)

// Simplified PEP 440 version shape, not a full validator.
var versionPattern = regexp.MustCompile(`^([0-9]+)(\.[0-9]+)*([a-zA-Z0-9.-]*)$`)

var eggPythonTag = regexp.MustCompile(`py([0-9]+(?:\.[0-9]+)*)`)

func ValidPackageName(name string) bool {
	return packageNamePattern.MatchString(name)
}

func ValidVersion(version string) bool {
	return versionPattern.MatchString(version)
}

// ParsedFilename is the (project, version, kind) triple extracted from
// a distribution filename.
type ParsedFilename struct {
	Name          string
	Version       string
	PackageType   string
	PythonVersion string
}

// ParseFilename validates and dissects a distribution filename.
//
// Accepted shapes:
//   - package-1.0-py3-none-any.whl (wheel, >= 4 dash-separated parts)
//   - package-1.0.tar.gz / package-1.0.zip (sdist)
//   - package-1.0-py3.9.egg (legacy egg)
func ParseFilename(filename string) (*ParsedFilename, error) {
	var base string
	var parsed ParsedFilename

	switch {
	case strings.HasSuffix(filename, ".whl"):
		base = strings.TrimSuffix(filename, ".whl")
		parts := strings.Split(base, "-")
		if len(parts) < 4 {
			return nil, domain.Validation("invalid package filename: %s", filename)
		}
		parsed.Name = parts[0]
		parsed.Version = parts[1]
		parsed.PackageType = domain.PackageTypeWheel
		parsed.PythonVersion = parts[len(parts)-3]

	case strings.HasSuffix(filename, ".tar.gz"):
		base = strings.TrimSuffix(filename, ".tar.gz")
		if err := splitSdist(base, filename, &parsed); err != nil {
			return nil, err
		}
		parsed.PackageType = domain.PackageTypeSdist
		parsed.PythonVersion = "source"

	case strings.HasSuffix(filename, ".zip"):
		base = strings.TrimSuffix(filename, ".zip")
		if err := splitSdist(base, filename, &parsed); err != nil {
			return nil, err
		}
		parsed.PackageType = domain.PackageTypeSdist
		parsed.PythonVersion = "source"

	case strings.HasSuffix(filename, ".egg"):
		base = strings.TrimSuffix(filename, ".egg")
		if err := splitSdist(base, filename, &parsed); err != nil {
			return nil, err
		}
		parsed.PackageType = domain.PackageTypeEgg
		parsed.PythonVersion = "source"
		if m := eggPythonTag.FindStringSubmatch(filename); m != nil {
			parsed.PythonVersion = "py" + m[1]
		}

	default:
		return nil, domain.Validation("invalid package filename: %s", filename)
	}

	if parsed.Name == "" || !ValidVersion(parsed.Version) {
		return nil, domain.Validation("invalid package filename: %s", filename)
	}
	return &parsed, nil
}

// splitSdist splits name-version on the last dash. Egg filenames may
// carry a trailing python tag (name-version-pyX.Y) which is stripped
// before the split.
func splitSdist(base, filename string, parsed *ParsedFilename) error {
	if idx := strings.LastIndex(base, "-"); idx > 0 && strings.HasPrefix(base[idx+1:], "py") {
		base = base[:idx]
	}
	idx := strings.LastIndex(base, "-")
	if idx <= 0 || idx == len(base)-1 {
		return domain.Validation("invalid package filename: %s", filename)
	}
	parsed.Name = base[:idx]
	parsed.Version = base[idx+1:]
	return nil
}

// ContentTypeFor maps a distribution filename to its content type.
func ContentTypeFor(filename string) string {
	switch {
	case strings.HasSuffix(filename, ".whl"):
		return "application/octet-stream"
	case strings.HasSuffix(filename, ".tar.gz"):
		return "application/gzip"
	case strings.HasSuffix(filename, ".zip"), strings.HasSuffix(filename, ".egg"):
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}
