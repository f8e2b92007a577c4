package security

import (
	"crypto"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, tampered, expired, or of the wrong kind.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenPairMismatch is returned when an access token was not issued alongside the presented refresh token.
	ErrTokenPairMismatch = errors.New("access token not bound to refresh token")
)

// TokenKind distinguishes access from refresh tokens.
type TokenKind string

const (
	AccessToken  TokenKind = "ACCESS"
	RefreshToken TokenKind = "REFRESH"
)

// AccessClaims is the signed payload of an access token. RefreshTokenHash binds it
// to the refresh token it was issued with.
type AccessClaims struct {
	jwt.RegisteredClaims
	UserID           string    `json:"userId"`
	SessionID        string    `json:"sessionId"`
	SessionType      string    `json:"sessionType"`
	TokenType        TokenKind `json:"tokenType"`
	RefreshTokenHash string    `json:"refreshTokenHash"`
}

// RefreshClaims is the signed payload of a refresh token.
type RefreshClaims struct {
	jwt.RegisteredClaims
	UserID      string    `json:"userId"`
	SessionID   string    `json:"sessionId"`
	SessionType string    `json:"sessionType"`
	TokenType   TokenKind `json:"tokenType"`
}

// TokenProvider issues and verifies access/refresh JWT pairs. It signs with HS256
// when built from a secret, or RS256/ES256 when built from a key pair.
type TokenProvider struct {
	method     jwt.SigningMethod
	signKey    any
	verifyKey  any
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenProvider returns a TokenProvider that signs with privateKey (RS256 or ES256)
// and verifies with publicKey.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, accessTTL, refreshTTL time.Duration) (*TokenProvider, error) {
	var method jwt.SigningMethod
	switch KeyAlg(privateKey.Public()) {
	case "RS256":
		method = jwt.SigningMethodRS256
	case "ES256":
		method = jwt.SigningMethodES256
	default:
		return nil, ErrInvalidKey
	}
	return &TokenProvider{
		method:     method,
		signKey:    privateKey,
		verifyKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// NewHMACTokenProvider returns a TokenProvider that signs and verifies with an HS256 secret.
func NewHMACTokenProvider(secret []byte, issuer, audience string, accessTTL, refreshTTL time.Duration) (*TokenProvider, error) {
	if len(secret) == 0 {
		return nil, ErrInvalidKey
	}
	return &TokenProvider{
		method:     jwt.SigningMethodHS256,
		signKey:    secret,
		verifyKey:  secret,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// WithClock replaces the time source used for issuing and validating tokens.
func (p *TokenProvider) WithClock(now func() time.Time) *TokenProvider {
	c := *p
	c.now = now
	return &c
}

// IssueRefresh signs a refresh token for the session. Expiry is the refresh lifetime.
func (p *TokenProvider) IssueRefresh(userID, sessionID, sessionType string) (string, error) {
	reg, err := p.registered(userID, p.refreshTTL)
	if err != nil {
		return "", err
	}
	return p.sign(RefreshClaims{
		RegisteredClaims: reg,
		UserID:           userID,
		SessionID:        sessionID,
		SessionType:      sessionType,
		TokenType:        RefreshToken,
	})
}

// IssueAccess signs an access token bound to refreshToken by embedding its digest.
func (p *TokenProvider) IssueAccess(userID, sessionID, sessionType, refreshToken string) (string, error) {
	reg, err := p.registered(userID, p.accessTTL)
	if err != nil {
		return "", err
	}
	return p.sign(AccessClaims{
		RegisteredClaims: reg,
		UserID:           userID,
		SessionID:        sessionID,
		SessionType:      sessionType,
		TokenType:        AccessToken,
		RefreshTokenHash: HashToken(refreshToken),
	})
}

// ParseAccess verifies signature, expiry, issuer, audience and token type of an access token.
func (p *TokenProvider) ParseAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := p.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != AccessToken || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseRefresh verifies signature, expiry, issuer, audience and token type of a refresh token.
func (p *TokenProvider) ParseRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := p.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != RefreshToken || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyPair checks that accessToken is valid and was issued alongside refreshToken.
func (p *TokenProvider) VerifyPair(accessToken, refreshToken string) error {
	claims, err := p.ParseAccess(accessToken)
	if err != nil {
		return err
	}
	if !TokenHashEqual(refreshToken, claims.RefreshTokenHash) {
		return ErrTokenPairMismatch
	}
	return nil
}

// ExpiryTime returns the absolute expiry for a token of the given kind issued now.
func (p *TokenProvider) ExpiryTime(kind TokenKind) time.Time {
	return p.now().UTC().Add(p.ttl(kind))
}

// ExpiryInSeconds returns the lifetime of the given kind in whole seconds.
func (p *TokenProvider) ExpiryInSeconds(kind TokenKind) int64 {
	return int64(p.ttl(kind) / time.Second)
}

func (p *TokenProvider) ttl(kind TokenKind) time.Duration {
	if kind == RefreshToken {
		return p.refreshTTL
	}
	return p.accessTTL
}

func (p *TokenProvider) registered(subject string, ttl time.Duration) (jwt.RegisteredClaims, error) {
	jti, err := generateJTI()
	if err != nil {
		return jwt.RegisteredClaims{}, err
	}
	now := p.now().UTC()
	return jwt.RegisteredClaims{
		ID:        jti,
		Subject:   subject,
		Issuer:    p.issuer,
		Audience:  jwt.ClaimStrings{p.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}, nil
}

func (p *TokenProvider) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(p.method, claims).SignedString(p.signKey)
}

func (p *TokenProvider) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return p.verifyKey, nil },
		jwt.WithValidMethods([]string{p.method.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
