package notifications

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/dmitrymomot/cafetal/pkg/logger"
	"github.com/dmitrymomot/cafetal/pkg/sanitizer"
	"github.com/dmitrymomot/cafetal/pkg/secrets"
)

// SettingsCategory is the settings category every notification key lives in.
const SettingsCategory = "notifications"

// Settings keys read by the Gate.
const (
	KeyEmailProvider        = "email_provider"
	KeySMTPHost             = "smtp_host"
	KeySMTPPort             = "smtp_port"
	KeySMTPSecure           = "smtp_secure"
	KeySMTPUser             = "smtp_user"
	KeySMTPPassword         = "smtp_password"
	KeyFromEmail            = "from_email"
	KeyFromName             = "from_name"
	KeyReplyTo              = "reply_to"
	KeyPostmarkServerToken  = "postmark_server_token"
	KeyPostmarkAccountToken = "postmark_account_token"
	KeyEmailDevDir          = "email_dev_dir"
)

// Email providers selectable with KeyEmailProvider.
const (
	ProviderSMTP     = "smtp"
	ProviderPostmark = "postmark"
	ProviderFile     = "file"
)

// ChannelKey returns the settings key that enables ch.
func ChannelKey(ch Channel) string {
	return string(ch) + "_enabled"
}

// SettingsSource reads category-scoped key/value settings. Missing keys are
// absent from the result, not an error.
type SettingsSource interface {
	Lookup(ctx context.Context, category string, keys ...string) (map[string]string, error)
}

// Credentials are the email transport settings.
type Credentials struct {
	Provider             string
	Host                 string
	Port                 int
	Secure               bool
	User                 string
	Password             string
	FromEmail            string
	FromName             string
	ReplyTo              string
	PostmarkServerToken  string
	PostmarkAccountToken string
	DevDir               string
}

// Gate is the read-through accessor for notification settings. Every call
// hits the source; nothing is cached. Boolean accessors fail closed.
type Gate struct {
	source SettingsSource
	sealer *secrets.Sealer
	logger *slog.Logger
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithGateLogger sets the logger for the Gate.
func WithGateLogger(l *slog.Logger) GateOption {
	return func(g *Gate) {
		g.logger = l
	}
}

// WithSealer sets the sealer used to open "enc:" secret values.
func WithSealer(s *secrets.Sealer) GateOption {
	return func(g *Gate) {
		g.sealer = s
	}
}

// NewGate creates a Gate over source.
func NewGate(source SettingsSource, opts ...GateOption) *Gate {
	g := &Gate{
		source: source,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(logger.Component("settings"))
	return g
}

// ChannelEnabled reports whether ch is switched on.
func (g *Gate) ChannelEnabled(ctx context.Context, ch Channel) bool {
	return g.flag(ctx, ChannelKey(ch))
}

// EventEnabled reports whether the event toggle is switched on.
func (g *Gate) EventEnabled(ctx context.Context, toggle EventToggle) bool {
	return g.flag(ctx, string(toggle))
}

func (g *Gate) flag(ctx context.Context, key string) bool {
	values, err := g.source.Lookup(ctx, SettingsCategory, key)
	if err != nil {
		g.logger.LogAttrs(ctx, slog.LevelWarn, "settings read failed, treating as disabled",
			logger.Setting(SettingsCategory, key),
			logger.Error(err),
		)
		return false
	}
	v, ok := values[key]
	if !ok {
		g.logger.LogAttrs(ctx, slog.LevelDebug, "setting missing, treating as disabled",
			logger.Setting(SettingsCategory, key),
		)
		return false
	}
	return ParseBool(v)
}

// EmailCredentials reads the transport settings for the configured provider.
// It returns ErrMissingConfig when the provider's required keys are empty or
// the settings cannot be read.
func (g *Gate) EmailCredentials(ctx context.Context) (Credentials, error) {
	values, err := g.source.Lookup(ctx, SettingsCategory,
		KeyEmailProvider, KeySMTPHost, KeySMTPPort, KeySMTPSecure, KeySMTPUser, KeySMTPPassword,
		KeyFromEmail, KeyFromName, KeyReplyTo,
		KeyPostmarkServerToken, KeyPostmarkAccountToken, KeyEmailDevDir,
	)
	if err != nil {
		g.logger.LogAttrs(ctx, slog.LevelWarn, "email credentials read failed", logger.Error(err))
		return Credentials{}, errors.Join(ErrMissingConfig, err)
	}

	get := func(key string) string { return strings.TrimSpace(values[key]) }

	creds := Credentials{
		Provider:  strings.ToLower(get(KeyEmailProvider)),
		Host:      get(KeySMTPHost),
		Secure:    ParseBool(get(KeySMTPSecure)),
		User:      get(KeySMTPUser),
		FromEmail: sanitizer.NormalizeEmail(get(KeyFromEmail)),
		FromName:  sanitizer.SingleLine(get(KeyFromName)),
		ReplyTo:   get(KeyReplyTo),
		DevDir:    get(KeyEmailDevDir),
	}
	if creds.Provider == "" {
		creds.Provider = ProviderSMTP
	}
	if creds.FromEmail == "" && strings.Contains(creds.User, "@") {
		creds.FromEmail = sanitizer.NormalizeEmail(creds.User)
	}
	if p := get(KeySMTPPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			g.logger.LogAttrs(ctx, slog.LevelWarn, "invalid smtp port, using default",
				logger.Setting(SettingsCategory, KeySMTPPort),
			)
		} else {
			creds.Port = port
		}
	}
	if creds.Port == 0 {
		creds.Port = 587
		if creds.Secure {
			creds.Port = 465
		}
	}

	secretsOK := true
	reveal := func(key string) string {
		v, err := g.sealer.Reveal(SettingsCategory, values[key])
		if err != nil {
			g.logger.LogAttrs(ctx, slog.LevelWarn, "cannot open sealed setting",
				logger.Setting(SettingsCategory, key),
				logger.Error(err),
			)
			secretsOK = false
		}
		return v
	}
	creds.Password = reveal(KeySMTPPassword)
	creds.PostmarkServerToken = reveal(KeyPostmarkServerToken)
	creds.PostmarkAccountToken = reveal(KeyPostmarkAccountToken)
	if !secretsOK {
		return Credentials{}, ErrMissingConfig
	}

	if !creds.complete() {
		return Credentials{}, ErrMissingConfig
	}
	return creds, nil
}

func (c Credentials) complete() bool {
	switch c.Provider {
	case ProviderSMTP:
		return c.Host != "" && c.User != ""
	case ProviderPostmark:
		return c.PostmarkServerToken != "" && c.PostmarkAccountToken != ""
	case ProviderFile:
		return c.DevDir != ""
	}
	return false
}

// ParseBool accepts true, 1, yes and on in any case. Anything else is false.
func ParseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

// MemorySettings is an in-memory SettingsSource for tests and local runs.
type MemorySettings struct {
	mu     sync.RWMutex
	values map[string]map[string]string
	err    error
}

// NewMemorySettings creates a source seeded with notification settings.
func NewMemorySettings(notifications map[string]string) *MemorySettings {
	s := &MemorySettings{values: make(map[string]map[string]string)}
	for k, v := range notifications {
		s.Set(SettingsCategory, k, v)
	}
	return s
}

// Set stores one value.
func (s *MemorySettings) Set(category, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values[category] == nil {
		s.values[category] = make(map[string]string)
	}
	s.values[category][key] = value
}

// Delete removes one value.
func (s *MemorySettings) Delete(category, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values[category], key)
}

// FailWith makes every Lookup return err until called with nil.
func (s *MemorySettings) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *MemorySettings) Lookup(ctx context.Context, category string, keys ...string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := s.values[category][k]; ok {
			out[k] = v
		}
	}
	return out, nil
}
