package middleware

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/fumi-go-api/internal/models"
	"github.com/noah-isme/fumi-go-api/internal/utils"
)

// Locals keys holding the authenticated identity.
const (
	LocalUserID   = "user_id"
	LocalUserRole = "user_role"
)

// JWTProtected returns a middleware that validates JWT bearer tokens.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" {
			// Browsers cannot set headers on websocket upgrades.
			if token := strings.TrimSpace(c.Query("access_token")); token != "" {
				authorization = "Bearer " + token
			}
		}
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		userID := extractUserIDFromClaims(claims)
		if userID == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "token subject missing")
		}
		// An empty role marks in-process callers, so tokens must carry one.
		role, ok := extractUserRoleFromClaims(claims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "token role missing")
		}
		c.Locals(LocalUserID, userID)
		c.Locals(LocalUserRole, role)

		return c.Next()
	}
}

// IssueToken signs an HS256 token for the given identity.
func IssueToken(secret, userID string, role models.Role, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Identity returns the authenticated user id and role of the request.
func Identity(c *fiber.Ctx) (string, models.Role) {
	var userID string
	if value, ok := c.Locals(LocalUserID).(string); ok {
		userID = value
	}
	var role models.Role
	if value, ok := c.Locals(LocalUserRole).(models.Role); ok {
		role = value
	}
	return userID, role
}

func extractUserIDFromClaims(claims jwt.MapClaims) string {
	keys := []string{"sub", "user_id", "id"}
	for _, key := range keys {
		if value, ok := claims[key]; ok {
			if normalized := normalizeUserID(value); normalized != "" {
				return normalized
			}
		}
	}
	return ""
}

func normalizeUserID(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v < 0 {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func extractUserRoleFromClaims(claims jwt.MapClaims) (models.Role, bool) {
	candidates := []string{"role", "roles", "user_type"}
	for _, key := range candidates {
		if value, ok := claims[key]; ok {
			if role, ok := normalizeRole(value); ok {
				return role, true
			}
		}
	}
	return "", false
}

func normalizeRole(value interface{}) (models.Role, bool) {
	switch v := value.(type) {
	case string:
		return models.ParseRole(v)
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok {
				if role, ok := models.ParseRole(str); ok {
					return role, true
				}
			}
		}
	}
	return "", false
}
