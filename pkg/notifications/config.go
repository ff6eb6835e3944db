package notifications

import (
	"fmt"
	"time"

	"golang.org/x/text/language"

	"github.com/dmitrymomot/cafetal/pkg/secrets"
)

// Config holds the process-level notification settings. Provider
// credentials live in the settings store, not here.
type Config struct {
	EmailSendTimeout  time.Duration `env:"EMAIL_SEND_TIMEOUT" envDefault:"15s"`
	Locale            string        `env:"NOTIFY_LOCALE" envDefault:"es"`
	SettingsMasterKey string        `env:"SETTINGS_MASTER_KEY"`
	FeedBuffer        int           `env:"NOTIFY_FEED_BUFFER" envDefault:"16"`
	MaxFeeds          int           `env:"NOTIFY_MAX_FEEDS" envDefault:"10000"`

	Gateways GatewayConfig
}

// Language parses Locale.
func (c Config) Language() (language.Tag, error) {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.Und, fmt.Errorf("notifications: invalid locale %q: %w", c.Locale, err)
	}
	return tag, nil
}

// Sealer decodes SettingsMasterKey. It returns nil when no key is set, in
// which case sealed settings cannot be read.
func (c Config) Sealer() (*secrets.Sealer, error) {
	if c.SettingsMasterKey == "" {
		return nil, nil
	}
	key, err := secrets.DecodeKey(c.SettingsMasterKey)
	if err != nil {
		return nil, err
	}
	return secrets.NewSealer(key)
}
