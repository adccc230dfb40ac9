package pep503

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Flask", "flask"},
		{"django-rest-framework", "django-rest-framework"},
		{"sqlalchemy_utils", "sqlalchemy-utils"},
		{"NUMPY", "numpy"},
		{"Zope.Interface", "zope-interface"},
		{"Foo_Bar.Baz", "foo-bar-baz"},
		{"foo-bar-baz", "foo-bar-baz"},
		{"a--b__c..d", "a-b-c-d"},
		{"My-Lib", "my-lib"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.in), "Normalize(%q)", tc.in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"Flask", "Foo_Bar.Baz", "a--b__c..d", "already-normal", ""}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "Normalize(%q) not idempotent", in)
	}
}
