package scantoken

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/internship-attendance-api/pkg/errors"
)

func newValidator(t *testing.T, now *time.Time) *Validator {
	t.Helper()
	v, err := New(Config{
		Secret: "scan-secret",
		Issuer: "portal",
		TTL:    5 * time.Minute,
		Leeway: 5 * time.Second,
		Now:    func() time.Time { return *now },
	})
	require.NoError(t, err)
	return v
}

func TestIssueAndValidate(t *testing.T) {
	now := time.Date(2024, 1, 2, 7, 55, 0, 0, time.UTC)
	v := newValidator(t, &now)

	raw, exp, err := v.Issue("stu-1")
	require.NoError(t, err)
	assert.Equal(t, now.Add(5*time.Minute), exp)

	id, err := v.Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, "stu-1", id)
}

func TestValidateExpiredWithLeeway(t *testing.T) {
	now := time.Date(2024, 1, 2, 7, 55, 0, 0, time.UTC)
	v := newValidator(t, &now)
	raw, _, err := v.Issue("stu-1")
	require.NoError(t, err)

	now = now.Add(5*time.Minute + 3*time.Second)
	_, err = v.Validate(raw)
	assert.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = v.Validate(raw)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidToken))
	assert.Equal(t, "credential has expired", appErrors.FromError(err).Message)
}

func TestValidateRejects(t *testing.T) {
	now := time.Now()
	v := newValidator(t, &now)

	sign := func(method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
		raw, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return raw
	}
	valid := func() *Claims {
		return &Claims{StudentID: "stu-1", Type: TokenType, RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "portal",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		}}
	}

	wrongType := valid()
	wrongType.Type = "access"
	wrongIssuer := valid()
	wrongIssuer.Issuer = "elsewhere"
	noExpiry := valid()
	noExpiry.ExpiresAt = nil
	noStudent := valid()
	noStudent.StudentID = ""

	cases := map[string]string{
		"empty":        "",
		"malformed":    "not-a-jwt",
		"bad secret":   sign(jwt.SigningMethodHS256, []byte("other"), valid()),
		"wrong method": sign(jwt.SigningMethodHS512, []byte("scan-secret"), valid()),
		"wrong type":   sign(jwt.SigningMethodHS256, []byte("scan-secret"), wrongType),
		"wrong issuer": sign(jwt.SigningMethodHS256, []byte("scan-secret"), wrongIssuer),
		"no expiry":    sign(jwt.SigningMethodHS256, []byte("scan-secret"), noExpiry),
		"no student":   sign(jwt.SigningMethodHS256, []byte("scan-secret"), noStudent),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Validate(raw)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrInvalidToken.Code, appErrors.FromError(err).Code)
		})
	}
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
