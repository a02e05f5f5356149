package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ at time.Time }

func (c *clock) Now() time.Time { return c.at }

func newManager(t *testing.T, c *clock) *Manager {
	t.Helper()
	m, err := NewManager(Options{
		SigningKey: []byte("0123456789abcdef0123456789abcdef"),
		Issuer:     "inboundpanel",
		Audience:   "inboundpanel-admin",
		TTL:        time.Hour,
		Leeway:     30 * time.Second,
		Now:        c.Now,
	})
	require.NoError(t, err)
	return m
}

func TestIssueAndParseAdmin(t *testing.T) {
	c := &clock{at: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	m := newManager(t, c)

	signed, issued, err := m.IssueAdmin("ops@example.com", 0)
	require.NoError(t, err)
	assert.True(t, issued.IsAdmin())
	assert.Equal(t, c.at.Add(time.Hour), issued.ExpiresAt.Time)

	claims, err := m.Parse("  " + signed + " ")
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Subject)
	assert.True(t, claims.IsAdmin())
}

func TestParseExpiredAndLeeway(t *testing.T) {
	c := &clock{at: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	m := newManager(t, c)
	signed, _, err := m.Issue(IssueInput{Subject: "viewer", TTL: time.Minute})
	require.NoError(t, err)

	c.at = c.at.Add(time.Minute + 10*time.Second)
	claims, err := m.Parse(signed)
	require.NoError(t, err, "inside leeway")
	assert.False(t, claims.IsAdmin())

	c.at = c.at.Add(time.Minute)
	_, err = m.Parse(signed)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestParseRejectsForeignTokens(t *testing.T) {
	c := &clock{at: time.Now()}
	m := newManager(t, c)

	other, err := NewManager(Options{SigningKey: []byte("another-key"), Issuer: "inboundpanel", Audience: "inboundpanel-admin", Now: c.Now})
	require.NoError(t, err)
	signed, _, err := other.IssueAdmin("x", 0)
	require.NoError(t, err)
	_, err = m.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongAud, err := NewManager(Options{SigningKey: []byte("0123456789abcdef0123456789abcdef"), Issuer: "inboundpanel", Audience: "someone-else", Now: c.Now})
	require.NoError(t, err)
	signed, _, err = wrongAud.IssueAdmin("x", 0)
	require.NoError(t, err)
	_, err = m.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Role: RoleAdmin}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Parse(none)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(Options{})
	assert.Error(t, err)
	_, err = NewManager(Options{SigningKey: []byte("k"), SigningAlg: "RS256"})
	assert.Error(t, err)
	m, err := NewManager(Options{SigningKey: []byte("k"), SigningAlg: "hs512"})
	require.NoError(t, err)
	assert.Equal(t, "HS512", m.method.Alg())

	_, _, err = m.Issue(IssueInput{Subject: " "})
	assert.Error(t, err)
}
