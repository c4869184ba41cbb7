package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSexRoundTrip(t *testing.T) {
	tests := []struct {
		column string
		sex    Sex
	}{
		{"M", SexMale},
		{"F", SexFemale},
		{"S", SexServer},
	}

	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			assert.Equal(t, tt.sex, ParseSex(tt.column))
			assert.Equal(t, tt.column, tt.sex.Column())
		})
	}

	// unknown column values default to female
	assert.Equal(t, SexFemale, ParseSex("x"))
	assert.Equal(t, SexFemale, ParseSex(""))
}

func TestValidEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  bool
	}{
		{"plain", "user@example.com", true},
		{"default placeholder", "a@a.com", true},
		{"shortest", "a@b", true},
		{"no at", "userexample.com", false},
		{"trailing at", "user@", false},
		{"trailing dot", "user@example.com.", false},
		{"at dot", "user@.com", false},
		{"double dot in domain", "user@example..com", false},
		{"space in domain", "user@exa mple.com", false},
		{"semicolon in domain", "user@example.com;", false},
		{"too short", "a@", false},
		{"too long", "a@" + string(make([]byte, 40)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidEmail(tt.email))
		})
	}
}
