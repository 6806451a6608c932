package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"
)

type Config struct {
	BotToken       string // Telegram bot API token.
	MPAccessToken  string // MercadoPago access token for API requests.
	PublicURL      string // Externally reachable base URL for callbacks.
	VIPChatID      int64  // Telegram id of the private VIP group.
	Port           int    // HTTP listen port.
	PreviewsLink   string // Public previews channel offered on /start.
	DBPath         string // Ledger file location.
	StartVideoPath string // Sales video sent on /start.
	LogLevel       string // LogLevel is the level of logging for the application.
}

func missingEnvErr(envVar string) error {
	return fmt.Errorf("%s not found in environment", envVar)
}

// New reads the configuration from the environment. Required settings
// without a value make startup fail.
func New() (Config, error) {
	var (
		botToken  = os.Getenv("TOKEN")
		mpToken   = os.Getenv("MP_ACCESS_TOKEN")
		publicURL = os.Getenv("PUBLIC_URL")
		vipChat   = os.Getenv("CHAT_ID_VIP")
	)

	if botToken == "" {
		return Config{}, missingEnvErr("TOKEN")
	}

	if mpToken == "" {
		return Config{}, missingEnvErr("MP_ACCESS_TOKEN")
	}

	if publicURL == "" {
		return Config{}, missingEnvErr("PUBLIC_URL")
	}

	if vipChat == "" {
		return Config{}, missingEnvErr("CHAT_ID_VIP")
	}

	vipChatID, err := strconv.ParseInt(vipChat, 10, 64)
	if err != nil {
		return Config{}, fmt.Errorf("CHAT_ID_VIP must be a numeric chat id: %w", err)
	}

	port, err := strconv.Atoi(getEnvWithDefault("PORT", "3000"))
	if err != nil {
		return Config{}, fmt.Errorf("PORT must be numeric: %w", err)
	}

	return Config{
		BotToken:       botToken,
		MPAccessToken:  mpToken,
		PublicURL:      publicURL,
		VIPChatID:      vipChatID,
		Port:           port,
		PreviewsLink:   getEnvWithDefault("PREVIAS_LINK", "https://t.me/+QCsWxHpN0CtiZmU5"),
		DBPath:         getEnvWithDefault("DB_PATH", "db.json"),
		StartVideoPath: getEnvWithDefault("START_VIDEO_PATH", "start.mp4"),
		LogLevel:       getEnvWithDefault("LOG_LEVEL", strconv.Itoa(int(zerolog.InfoLevel))),
	}, nil
}

func getEnvWithDefault(name string, def string) string {
	res, found := os.LookupEnv(name)
	if !found {
		return def
	}
	return res
}
