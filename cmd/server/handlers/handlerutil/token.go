package handlerutil

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// BearerOrQueryToken returns the access token from the Authorization header
// or, failing that, the "token" query parameter. Websocket upgrades and pdf
// links opened in a new tab cannot set headers, so both transports are
// accepted wherever this helper is used.
func BearerOrQueryToken(c *fiber.Ctx) string {
	if h := c.Get(fiber.HeaderAuthorization); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return tok
		}
	}
	return c.Query("token")
}

// ValidateToken verifies an HS256 access token and extracts the user
// identity claims.
func ValidateToken(tokenString, secret string) (bson.ObjectID, string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return bson.ObjectID{}, "", err
	}
	if !token.Valid {
		return bson.ObjectID{}, "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return bson.ObjectID{}, "", fmt.Errorf("invalid claims")
	}

	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return bson.ObjectID{}, "", fmt.Errorf("missing user_id")
	}

	userEmail, ok := claims["email"].(string)
	if !ok {
		return bson.ObjectID{}, "", fmt.Errorf("missing email")
	}

	userID, err := bson.ObjectIDFromHex(userIDStr)
	if err != nil {
		return bson.ObjectID{}, "", fmt.Errorf("invalid user_id: %w", err)
	}

	return userID, userEmail, nil
}
