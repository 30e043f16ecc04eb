// Package middleware provides gin middleware for the vitals HTTP surface.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sebasr/vitals-service/internal/auth"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// PatientIDKey is the context key for the authenticated patient's ID
const PatientIDKey ContextKey = "patient_id"

// AuthMiddleware provides authentication middleware
type AuthMiddleware struct {
	jwtService *auth.JWTService
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtService *auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
	}
}

// Required returns a middleware that requires a valid patient token.
// Returns 401 Unauthorized if the token is missing or invalid.
func (m *AuthMiddleware) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := m.extractAndValidateToken(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": err.Error(),
			})
			c.Abort()
			return
		}

		patientID, err := claims.PatientUUID()
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "invalid patient ID in token",
			})
			c.Abort()
			return
		}

		c.Set(string(PatientIDKey), patientID)

		c.Next()
	}
}

// extractAndValidateToken extracts the JWT token from the request and validates it
func (m *AuthMiddleware) extractAndValidateToken(c *gin.Context) (*auth.Claims, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, errors.New("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, errors.New("invalid authorization header format")
	}

	tokenString := parts[1]
	if tokenString == "" {
		return nil, errors.New("missing token")
	}

	return m.jwtService.ValidateToken(tokenString)
}

// GetPatientID retrieves the authenticated patient's ID from the context
func GetPatientID(c *gin.Context) (uuid.UUID, error) {
	patientID, exists := c.Get(string(PatientIDKey))
	if !exists {
		return uuid.Nil, errors.New("patient not authenticated")
	}

	id, ok := patientID.(uuid.UUID)
	if !ok {
		return uuid.Nil, errors.New("invalid patient ID format")
	}

	return id, nil
}

// MustGetPatientID retrieves the patient ID from context, panics if not found.
// Use this only in handlers protected by Required() middleware.
func MustGetPatientID(c *gin.Context) uuid.UUID {
	patientID, err := GetPatientID(c)
	if err != nil {
		panic("patient ID not found in context - ensure Required() middleware is applied")
	}
	return patientID
}
