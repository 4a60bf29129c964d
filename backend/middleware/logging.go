package middleware

import (
	"log"
	"time"

	"miniapp/backend/utils"

	"github.com/gofiber/fiber/v2"
)

// LoggingMiddleware пишет строку на каждый запрос. Заголовок X-Init-Data не
// логируется: это учетные данные пользователя.
func LoggingMiddleware(logger *log.Logger, colors bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		var statusColor, methodColor, reset string
		if colors {
			statusColor, methodColor, reset = utils.StatusColor(status), utils.MethodColor(c.Method()), "\033[0m"
		}

		logger.Printf("%s %s%s%s %s %s%d%s %v",
			c.IP(),
			methodColor, c.Method(), reset,
			c.Path(),
			statusColor, status, reset,
			time.Since(start),
		)
		if err != nil {
			logger.Printf("request error: %v", err)
		}

		return err
	}
}
