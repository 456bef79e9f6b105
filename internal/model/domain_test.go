package model_test

import (
	"testing"

	"github.com/reconthing/reconthing/internal/model"

	"github.com/stretchr/testify/require"
)

func TestNormalizeDomain(t *testing.T) {
	t.Parallel()
	var testCases = []struct {
		given string
		then  string
	}{
		{"example.com", "example.com"},
		{"  Example.COM. ", "example.com"},
		{"a-b.example.co.uk", "a-b.example.co.uk"},
	}
	for _, tc := range testCases {
		got, err := model.NormalizeDomain(tc.given)
		require.NoError(t, err, tc.given)
		require.Equal(t, tc.then, got)
	}

	for _, bad := range []string{"", " ", "localhost", "exa mple.com", "example..com", "example.com/x", "http://example.com"} {
		_, err := model.NormalizeDomain(bad)
		require.ErrorIs(t, err, model.ErrInvalidDomain, bad)
	}
}

func TestIsSubdomainOf(t *testing.T) {
	t.Parallel()
	require.True(t, model.IsSubdomainOf("www.example.com", "example.com"))
	require.True(t, model.IsSubdomainOf("example.com", "example.com"))
	require.True(t, model.IsSubdomainOf("a.b.example.com.", "example.com"))
	require.False(t, model.IsSubdomainOf("notexample.com", "example.com"))
	require.False(t, model.IsSubdomainOf("example.org", "example.com"))
}
