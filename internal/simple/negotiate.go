package simple

import (
	"sort"
	"strconv"
	"strings"
)

// RenderFormat selects which rendering of an index document to serve.
type RenderFormat string

const (
	FormatJSON RenderFormat = "json"
	FormatHTML RenderFormat = "html"
)

// Media types defined by PEP 691, plus the repository version the
// documents declare.
const (
	MediaTypeJSON = "application/vnd.pypi.simple.v1+json"
	MediaTypeHTML = "application/vnd.pypi.simple.v1+html"

	legacyHTML = "text/html"

	RepositoryVersion = "1.3"
)

// ContentType returns the media type a format is served as.
func (f RenderFormat) ContentType() string {
	if f == FormatHTML {
		return MediaTypeHTML
	}
	return MediaTypeJSON
}

type acceptEntry struct {
	mediaType string
	quality   float64
	order     int
}

// Negotiate picks the render format from the Accept header, the
// User-Agent and an explicit format override. The override always
// wins. Otherwise the Accept header is parsed with quality values;
// JSON is the default when the preference is unspecified or ambiguous,
// HTML when it is explicitly preferred or when there is no parseable
// preference and the client looks like a browser.
func Negotiate(accept, userAgent, override string) RenderFormat {
	switch strings.ToLower(strings.TrimSpace(override)) {
	case "json":
		return FormatJSON
	case "html":
		return FormatHTML
	}

	for _, e := range parseAccept(accept) {
		switch e.mediaType {
		case MediaTypeJSON, "application/json":
			return FormatJSON
		case MediaTypeHTML, legacyHTML:
			return FormatHTML
		}
	}

	if accept == "" || strings.TrimSpace(accept) == "" {
		if looksLikeBrowser(userAgent) {
			return FormatHTML
		}
	}
	return FormatJSON
}

// parseAccept returns acceptable media ranges ordered by descending
// quality, preserving header order among equal qualities.
func parseAccept(accept string) []acceptEntry {
	var entries []acceptEntry
	for i, mediaRange := range strings.Split(accept, ",") {
		parts := strings.Split(strings.TrimSpace(mediaRange), ";")
		mediaType := strings.ToLower(strings.TrimSpace(parts[0]))
		if mediaType == "" {
			continue
		}

		quality := 1.0
		for _, param := range parts[1:] {
			param = strings.TrimSpace(param)
			if !strings.HasPrefix(param, "q=") {
				continue
			}
			q, err := strconv.ParseFloat(param[2:], 64)
			if err != nil {
				q = 0
			}
			quality = q
		}
		if quality <= 0 {
			continue
		}
		entries = append(entries, acceptEntry{mediaType: mediaType, quality: quality, order: i})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].quality != entries[j].quality {
			return entries[i].quality > entries[j].quality
		}
		return entries[i].order < entries[j].order
	})
	return entries
}

func looksLikeBrowser(userAgent string) bool {
	return strings.HasPrefix(userAgent, "Mozilla/")
}
