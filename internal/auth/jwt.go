package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Realm identifies the JWT authentication realm.
type Realm string

const (
	// RealmService is for tenant backend services issuing payments on behalf
	// of their gym. Tokens in this realm are bound to a single tenant.
	RealmService Realm = "service"

	// RealmAdmin is for platform operators managing credentials and
	// inspecting unmatched webhook traffic.
	RealmAdmin Realm = "admin"
)

// Claims holds the custom JWT claims for both realms.
type Claims struct {
	jwt.RegisteredClaims
	Realm    Realm  `json:"realm"`
	TenantID string `json:"tenant_id,omitempty"` // service realm only
	Role     string `json:"role,omitempty"`      // admin realm: viewer, admin
}

// JWTManager handles token generation and validation for both realms.
type JWTManager struct {
	secret        []byte
	serviceExpiry time.Duration
	adminExpiry   time.Duration
}

// NewJWTManager creates a JWT manager with realm-specific expiry durations.
func NewJWTManager(secret string, serviceExpiry, adminExpiry time.Duration) *JWTManager {
	return &JWTManager{
		secret:        []byte(secret),
		serviceExpiry: serviceExpiry,
		adminExpiry:   adminExpiry,
	}
}

// GenerateServiceToken creates a signed JWT bound to one tenant.
func (m *JWTManager) GenerateServiceToken(subjectID, tenantID uuid.UUID) (string, error) {
	return m.generate(RealmService, subjectID, tenantID.String(), "", m.serviceExpiry)
}

// GenerateAdminToken creates a signed JWT for a platform operator.
func (m *JWTManager) GenerateAdminToken(subjectID uuid.UUID, role string) (string, error) {
	return m.generate(RealmAdmin, subjectID, "", role, m.adminExpiry)
}

func (m *JWTManager) generate(realm Realm, subjectID uuid.UUID, tenantID, role string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			ID:        uuid.New().String(),
		},
		Realm:    realm,
		TenantID: tenantID,
		Role:     role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateToken parses and validates a JWT, returning claims if valid.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}

// ValidateTokenForRealm validates a token and ensures it belongs to the expected realm.
func (m *JWTManager) ValidateTokenForRealm(tokenString string, expectedRealm Realm) (*Claims, error) {
	claims, err := m.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Realm != expectedRealm {
		return nil, fmt.Errorf("expected realm %s, got %s", expectedRealm, claims.Realm)
	}
	return claims, nil
}
