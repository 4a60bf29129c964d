package middleware

import (
	"strings"

	"miniapp/backend/client"
	"miniapp/backend/utils"

	"github.com/gofiber/fiber/v2"
)

const localInitData = "initData"

// MessageOpenInTelegram is shown when a request carries no identity token.
const MessageOpenInTelegram = "Приложение должно быть открыто в Telegram."

// InitDataMiddleware requires the host platform token. The token is opaque
// here: it is stored for the handlers and forwarded to the course API as is.
func InitDataMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get(client.HeaderInitData)
		if strings.TrimSpace(token) == "" {
			return utils.Unauthorized(c, MessageOpenInTelegram)
		}
		c.Locals(localInitData, token)
		return c.Next()
	}
}

// InitData returns the token stored by InitDataMiddleware.
func InitData(c *fiber.Ctx) string {
	token, _ := c.Locals(localInitData).(string)
	return token
}
