// Package scantoken issues and validates the short-lived credentials encoded
// in attendance QR codes.
package scantoken

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	appErrors "github.com/noah-isme/internship-attendance-api/pkg/errors"
)

// TokenType marks scan credentials so access tokens cannot be replayed at the kiosk.
const TokenType = "scan"

// Config holds signing parameters.
type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
	Leeway time.Duration
	// Now overrides the time source, mainly for tests.
	Now func() time.Time
}

// Claims is the payload of a scan credential.
type Claims struct {
	StudentID string `json:"student_id"`
	Type      string `json:"typ"`
	jwt.RegisteredClaims
}

// Validator signs and verifies scan credentials.
type Validator struct {
	secret []byte
	cfg    Config
	parser *jwt.Parser
}

// New constructs a Validator. An empty secret is rejected.
func New(cfg Config) (*Validator, error) {
	if cfg.Secret == "" {
		return nil, errors.New("scantoken: secret is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithTimeFunc(cfg.Now),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &Validator{secret: []byte(cfg.Secret), cfg: cfg, parser: jwt.NewParser(opts...)}, nil
}

// Issue mints a credential for studentID valid for the configured TTL.
func (v *Validator) Issue(studentID string) (string, time.Time, error) {
	if strings.TrimSpace(studentID) == "" {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	issuedAt := v.cfg.Now().UTC()
	expiresAt := issuedAt.Add(v.cfg.TTL)
	claims := &Claims{
		StudentID: studentID,
		Type:      TokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.cfg.Issuer,
			Subject:   studentID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign scan token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate verifies raw and returns the student it identifies. Every failure
// is reported as ErrInvalidToken.
func (v *Validator) Validate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", appErrors.Clone(appErrors.ErrInvalidToken, "credential is required")
	}

	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		msg := "credential is invalid"
		if errors.Is(err, jwt.ErrTokenExpired) {
			msg = "credential has expired"
		}
		return "", appErrors.Wrap(err, appErrors.ErrInvalidToken.Code, appErrors.ErrInvalidToken.Status, msg)
	}
	if !token.Valid || claims.Type != TokenType || strings.TrimSpace(claims.StudentID) == "" {
		return "", appErrors.Clone(appErrors.ErrInvalidToken, "credential is not a scan token")
	}

	return claims.StudentID, nil
}
