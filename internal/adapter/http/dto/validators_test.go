package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeStringRe(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"namespaced owner id", "user:42", true},
		{"community owner id", "community:7", true},
		{"dotted event ref", "checkin.2026-08-29.u42", true},
		{"underscore and dash", "mission_12-b", true},
		{"plain alphanumeric", "abc123", true},
		{"empty", "", false},
		{"whitespace", "user 42", false},
		{"sql metachar", "user';--", false},
		{"html", "<script>", false},
		{"slash", "user/42", false},
		{"hash is reserved for leg refs", "evt#mint", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, safeStringRe.MatchString(tt.input))
		})
	}
}

func TestSanitizeStruct(t *testing.T) {
	extra := "  <i>note</i>  "
	s := struct {
		OwnerID  string
		EventRef string
		Note     *string
		count    int // unexported, untouched
	}{
		OwnerID:  "  user:42  ",
		EventRef: "checkin.1<b>",
		Note:     &extra,
	}

	SanitizeStruct(&s)

	assert.Equal(t, "user:42", s.OwnerID)
	assert.Equal(t, "checkin.1&lt;b&gt;", s.EventRef)
	assert.Equal(t, "&lt;i&gt;note&lt;/i&gt;", *s.Note)
}

func TestSanitizeStruct_NonPointer(t *testing.T) {
	// Must not panic on non-pointer or non-struct input.
	SanitizeStruct(struct{ A string }{A: " x "})
	SanitizeStruct(nil)
	SanitizeStruct("plain string")
}
