package courseapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strings"

	"miniapp/backend/client"
	"miniapp/backend/utils"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrMissingInitData = errors.New("X-Init-Data header is missing")
	ErrInvalidInitData = errors.New("Invalid InitData")
	ErrNoBotToken      = errors.New("BOT_TOKEN is required to verify init data; set INSECURE_INIT_DATA=true to skip verification")
)

const localIdentity = "identity"

// Identity is the Telegram user an init data string was issued for.
type Identity struct {
	ID        int64   `json:"id"`
	FirstName *string `json:"first_name"`
	Username  *string `json:"username"`
}

// ParseInitData reads the user out of Telegram Web App init data. With a bot
// token the hash is checked first; without one the data is trusted as is.
func ParseInitData(raw, botToken string) (Identity, error) {
	if strings.TrimSpace(raw) == "" {
		return Identity{}, ErrMissingInitData
	}

	values, err := url.ParseQuery(raw)
	if err != nil {
		return Identity{}, ErrInvalidInitData
	}

	if botToken != "" {
		want, err := hex.DecodeString(values.Get("hash"))
		if err != nil || !hmac.Equal(want, initDataHash(values, botToken)) {
			return Identity{}, ErrInvalidInitData
		}
	}

	var user Identity
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil || user.ID == 0 {
		return Identity{}, ErrInvalidInitData
	}
	return user, nil
}

// initDataHash signs the sorted key=value lines of everything but the hash.
func initDataHash(values url.Values, botToken string) []byte {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + "=" + values.Get(k)
	}

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))
	return mac.Sum(nil)
}

// CheckVerification refuses to serve unsigned init data unless that was
// asked for explicitly.
func CheckVerification(botToken string, insecure bool) error {
	if botToken == "" && !insecure {
		return ErrNoBotToken
	}
	return nil
}

// Authenticate resolves the caller from X-Init-Data.
func Authenticate(botToken string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := ParseInitData(c.Get(client.HeaderInitData), botToken)
		if err != nil {
			return utils.Unauthorized(c, err.Error())
		}
		c.Locals(localIdentity, user)
		return c.Next()
	}
}

func CurrentUser(c *fiber.Ctx) Identity {
	user, _ := c.Locals(localIdentity).(Identity)
	return user
}
