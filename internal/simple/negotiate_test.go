package simple

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNegotiate(t *testing.T) {
	const (
		pip     = "pip/24.0"
		firefox = "Mozilla/5.0 (X11; Linux x86_64; rv:124.0) Gecko/20100101 Firefox/124.0"
	)

	cases := []struct {
		name      string
		accept    string
		userAgent string
		override  string
		want      RenderFormat
	}{
		{"override json wins over html accept", "text/html", firefox, "json", FormatJSON},
		{"override html wins over json accept", MediaTypeJSON, pip, "html", FormatHTML},
		{"override is case insensitive", "", pip, "JSON", FormatJSON},

		{"explicit vnd json", MediaTypeJSON, pip, "", FormatJSON},
		{"explicit vnd html", MediaTypeHTML, pip, "", FormatHTML},
		{"plain text/html", "text/html", pip, "", FormatHTML},
		{"plain application/json", "application/json", pip, "", FormatJSON},

		{"quality ordering prefers higher q", MediaTypeHTML + ";q=0.5, " + MediaTypeJSON + ";q=0.9", pip, "", FormatJSON},
		{"quality ordering prefers html at higher q", MediaTypeJSON + ";q=0.1, text/html;q=0.8", pip, "", FormatHTML},
		{"zero quality is not acceptable", "text/html;q=0", pip, "", FormatJSON},

		{"no accept from tool defaults to json", "", pip, "", FormatJSON},
		{"no accept from browser defaults to html", "", firefox, "", FormatHTML},
		{"wildcard is ambiguous, defaults to json", "*/*", pip, "", FormatJSON},
		{"wildcard from browser still json when parseable", "*/*", firefox, "", FormatJSON},
		{"garbage accept defaults to json", "not-a-media-type;;q=zz", pip, "", FormatJSON},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Negotiate(tc.accept, tc.userAgent, tc.override))
		})
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, MediaTypeJSON, FormatJSON.ContentType())
	assert.Equal(t, MediaTypeHTML, FormatHTML.ContentType())
}
