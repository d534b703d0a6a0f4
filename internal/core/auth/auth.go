package auth

import (
	"errors"
	"fmt"
	"strings"

	"order-settlement/internal/core/identity"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

const actorLocalsKey = "actor"

var (
	// ErrMissingToken is returned when no bearer token accompanies the request.
	ErrMissingToken = errors.New("authorization token is required")
	// ErrInvalidToken is returned when the token fails verification or lacks claims.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims are the JWT claims issued by the auth service.
type Claims struct {
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// ParseToken verifies an HMAC-signed token and returns the actor it identifies.
func ParseToken(tokenString, secret string) (identity.Actor, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return identity.Actor{}, ErrInvalidToken
	}

	role := identity.Role(claims.Role)
	if claims.Subject == "" || !role.Valid() {
		return identity.Actor{}, ErrInvalidToken
	}

	return identity.Actor{ID: claims.Subject, Role: role, Name: claims.Name}, nil
}

// New returns a middleware that authenticates the bearer token and stores the actor in Locals.
func New(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return unauthorized(c, ErrMissingToken)
		}

		actor, err := ParseToken(parts[1], secret)
		if err != nil {
			return unauthorized(c, err)
		}

		c.Locals(actorLocalsKey, actor)
		return c.Next()
	}
}

// RequireRole rejects requests whose actor does not hold one of roles.
func RequireRole(roles ...identity.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFrom(c)
		if !ok {
			return unauthorized(c, ErrMissingToken)
		}
		for _, r := range roles {
			if actor.Role == r {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "forbidden for role " + string(actor.Role),
			"ray_id":  RayID(c),
		})
	}
}

// ActorFrom returns the authenticated actor stored by New.
func ActorFrom(c *fiber.Ctx) (identity.Actor, bool) {
	actor, ok := c.Locals(actorLocalsKey).(identity.Actor)
	return actor, ok
}

// WithActor stores actor in the request Locals. Handler tests use it in place of New.
func WithActor(actor identity.Actor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(actorLocalsKey, actor)
		return c.Next()
	}
}

// RayID returns the request id set by the requestid middleware.
func RayID(c *fiber.Ctx) string {
	rayID, ok := c.Locals("requestid").(string)
	if !ok {
		return "unknown"
	}
	return rayID
}

func unauthorized(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": err.Error(),
		"ray_id":  RayID(c),
	})
}
