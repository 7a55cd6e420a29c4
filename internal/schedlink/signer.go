package schedlink

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// TokenTTL is how long a scheduling link stays valid.
const TokenTTL = 14 * 24 * time.Hour

var (
	ErrNoSecret     = errors.New("scheduling link secret is not configured")
	ErrInvalidToken = errors.New("invalid scheduling token")
)

// Signer issues patient scheduling links carrying an HS256 token.
type Signer struct {
	baseURL string
	secret  []byte
	now     func() time.Time
}

func NewSigner(baseURL, secret string) *Signer {
	return &Signer{baseURL: baseURL, secret: []byte(secret), now: time.Now}
}

// LinkFor returns the scheduling URL for the patient with the token in the
// "token" query parameter.
func (s *Signer) LinkFor(patientID int64) (string, error) {
	token, err := s.Token(patientID)
	if err != nil {
		return "", err
	}

	u, err := url.Parse(s.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid scheduling base url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Token signs a token whose subject is the patient id.
func (s *Signer) Token(patientID int64) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrNoSecret
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(patientID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		ID:        uuid.New().String(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign scheduling token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry and returns the patient id. It is
// the booking side's half of LinkFor.
func (s *Signer) Verify(token string) (int64, error) {
	if len(s.secret) == 0 {
		return 0, ErrNoSecret
	}

	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	patientID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: subject is not a patient id", ErrInvalidToken)
	}
	return patientID, nil
}
