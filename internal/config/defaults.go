package config

import "time"

const (
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
	DefaultChatSubject     = "General Inquiry"
	DefaultWidgetHistory   = 50
)

var defaults = map[string]any{
	"log.level":       DefaultLogLevel,
	"log.format":      DefaultLogFormat,
	"log.max_size":    100,
	"log.max_backups": 5,
	"log.max_age":     28,

	"aws.region": "eu-central-1",

	"redis.auth_addr": "localhost:6379",
	"redis.chat_addr": "localhost:6379",

	"auth.access_token_ttl":  DefaultAccessTokenTTL,
	"auth.refresh_token_ttl": DefaultRefreshTokenTTL,

	"http.public_addr":     ":82",
	"http.client_addr":     ":81",
	"http.ws_addr":         ":83",
	"http.allowed_origins": []string{"http://localhost:3000"},

	"chat.default_subject": DefaultChatSubject,
	"chat.widget_history":  DefaultWidgetHistory,

	"queue.size":    10,
	"queue.workers": 10,
}
