package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner_IssueVerify(t *testing.T) {
	s, err := NewSigner("s3cr3t", "stock-replenishment", time.Hour)
	require.NoError(t, err)

	tok, err := s.Issue(Identity{UserID: "u1", CompanyID: "c1", Role: RoleBodeguero})
	require.NoError(t, err)

	id, err := s.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "u1", CompanyID: "c1", Role: RoleBodeguero}, id)
}

func TestSigner_Validaciones(t *testing.T) {
	_, err := NewSigner("", "x", time.Hour)
	assert.ErrorIs(t, err, ErrEmptySecret)

	s, err := NewSigner("s3cr3t", "x", time.Hour)
	require.NoError(t, err)
	_, err = s.Issue(Identity{UserID: "u1", Role: RoleAdmin})
	assert.ErrorIs(t, err, ErrNoCompany)
	_, err = s.Issue(Identity{CompanyID: "c1", Role: "vendedor"})
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestSigner_Vencimiento(t *testing.T) {
	s, err := NewSigner("s3cr3t", "x", time.Minute)
	require.NoError(t, err)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	tok, err := s.Issue(Identity{CompanyID: "c1", Role: RoleAdmin})
	require.NoError(t, err)
	_, err = s.Verify(tok)
	require.NoError(t, err)

	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = s.Verify(tok)
	assert.Error(t, err)
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleComprador))
	assert.False(t, ValidRole(""))
	assert.False(t, ValidRole("vendedor"))
}
