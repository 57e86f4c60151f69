package auth

import (
	"strings"
	"testing"
	"time"

	"eventhub/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClaims() domain.TokenClaims {
	return domain.TokenClaims{SessionID: "sess-1", UserID: "user-123", Email: "u@example.com", Role: domain.RoleOrganization}
}

func TestJWTCodec_IssueAndVerify(t *testing.T) {
	codec := NewJWTCodec("test-secret", "eventhub")

	token, err := codec.Issue(testClaims(), time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsed, err := jwt.ParseWithClaims(token, &jwtClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	raw, ok := parsed.Claims.(*jwtClaims)
	require.True(t, ok)
	assert.Equal(t, "sess-1", raw.ID)
	assert.Equal(t, "user-123", raw.Subject)

	got, err := codec.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, testClaims(), *got)
}

func TestJWTCodec_VerifyRejects(t *testing.T) {
	codec := NewJWTCodec("test-secret", "eventhub")
	good, err := codec.Issue(testClaims(), time.Hour)
	require.NoError(t, err)

	expired := NewJWTCodec("test-secret", "eventhub")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Issue(testClaims(), time.Hour)
	require.NoError(t, err)

	otherSecret, err := NewJWTCodec("other", "eventhub").Issue(testClaims(), time.Hour)
	require.NoError(t, err)
	otherIssuer, err := NewJWTCodec("test-secret", "someone-else").Issue(testClaims(), time.Hour)
	require.NoError(t, err)
	noSession := testClaims()
	noSession.SessionID = ""
	noJTI, err := codec.Issue(noSession, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-jwt"},
		{name: "expired", token: old},
		{name: "wrong secret", token: otherSecret},
		{name: "wrong issuer", token: otherIssuer},
		{name: "missing jti", token: noJTI},
		{name: "tampered", token: good[:strings.LastIndex(good, ".")+1] + "c2lnbmF0dXJl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Verify(tt.token)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
