package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContainsAnyFold(t *testing.T) {
	testCases := []struct {
		s        string
		matchers []string
		expect   bool
	}{
		{s: "Login.aspx", matchers: []string{"login"}, expect: true},
		{s: "/Account/SIGNIN", matchers: []string{"login"}, expect: false},
		{s: "user_email", matchers: []string{"username", "user", "email", "id"}, expect: true},
		{s: "pwd", matchers: []string{"username", "user", "email", "id"}, expect: false},
		{s: "anything", matchers: nil, expect: false},
	}

	for _, test := range testCases {
		require.Equal(t, test.expect, ContainsAnyFold(test.s, test.matchers), test.s)
	}
}

func TestNormalizeName(t *testing.T) {
	require.Equal(t, "userid", NormalizeName("  User ID\n"))
	require.True(t, EqualFold("PASSWORD", "password"))
	require.True(t, ContainsFold("<FORM action='/LOGIN'>", "login"))
}
