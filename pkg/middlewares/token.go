package middlewares

import (
	"strings"

	"impact_chat/pkg/token"

	"github.com/gofiber/fiber/v2"
)

const (
	//QueryToken token in query name (websocket handshakes cannot set headers in browsers)
	QueryToken = "token"

	//TokenUserID get user form token, set c.locals name
	TokenUserID = "UserID"
	//TokenName display name from token, set c.locals name
	TokenName = "name"
)

// JWTMiddleware validates a HS256 JWT from the Authorization header or the token query.
// When optional is set, requests without any token pass through anonymously.
func JWTMiddleware(secret []byte, optional bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))

		// 如果 header 中沒有 token，則嘗試從查詢參數中獲取
		if tokenStr == "" {
			tokenStr = c.Query(QueryToken)
		}

		if tokenStr == "" {
			if optional {
				return c.Next()
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"detail": "Not authenticated",
			})
		}

		claims, err := token.ParseJWT(tokenStr, secret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"detail": "Invalid token",
			})
		}

		c.Locals(TokenUserID, claims.Subject)
		c.Locals(TokenName, claims.Name)
		return c.Next()
	}
}
