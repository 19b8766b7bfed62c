package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VERIFICATION TOKENS:
// The link in a verification email carries a signed JWT instead of a random
// token stored in the database. The signature proves we issued it, the exp
// claim bounds its life, and the purpose claim stops any other JWT signed
// with the same secret from being replayed here.
//
// Redeeming twice is harmless: the second redemption finds the account
// already verified.

const (
	verificationIssuer  = "utility-lineups"
	verificationPurpose = "email-verification"

	// VerificationTokenTTL is how long a verification link stays usable.
	VerificationTokenTTL = 24 * time.Hour
)

var (
	ErrVerificationTokenExpired = errors.New("auth: verification token expired")
	ErrVerificationTokenInvalid = errors.New("auth: verification token invalid")
)

// VerificationTokens issues and checks email verification tokens.
type VerificationTokens struct {
	secret []byte
}

// NewVerificationTokens requires a secret of at least 16 characters.
func NewVerificationTokens(secret string) (*VerificationTokens, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: verification secret must be at least 16 characters")
	}
	return &VerificationTokens{secret: []byte(secret)}, nil
}

type verificationClaims struct {
	jwt.RegisteredClaims
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
}

// Issue signs a token for userID and email valid for VerificationTokenTTL.
func (v *VerificationTokens) Issue(userID, email string) (string, error) {
	return v.IssueWithDuration(userID, email, VerificationTokenTTL)
}

// IssueWithDuration is Issue with a custom lifetime. Tests use a negative
// duration to mint already-expired tokens.
func (v *VerificationTokens) IssueWithDuration(userID, email string, d time.Duration) (string, error) {
	now := time.Now()
	c := verificationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    verificationIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		},
		Email:   email,
		Purpose: verificationPurpose,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing verification token: %w", err)
	}
	return signed, nil
}

// Parse checks the signature, expiry, issuer and purpose and returns the user
// ID and email the token was issued for.
func (v *VerificationTokens) Parse(token string) (userID, email string, err error) {
	parsed, err := jwt.ParseWithClaims(
		token,
		&verificationClaims{},
		func(t *jwt.Token) (any, error) {
			return v.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(verificationIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", ErrVerificationTokenExpired
		}
		return "", "", fmt.Errorf("%w: %v", ErrVerificationTokenInvalid, err)
	}

	c, ok := parsed.Claims.(*verificationClaims)
	if !ok || !parsed.Valid || c.Purpose != verificationPurpose || c.Subject == "" {
		return "", "", ErrVerificationTokenInvalid
	}
	return c.Subject, c.Email, nil
}
