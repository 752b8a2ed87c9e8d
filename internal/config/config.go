// Package config loads the run configuration from the environment.
//
// Everything a run needs is read once at process start into a Config value
// which is then passed explicitly to each component. Components never read
// the environment themselves.
package config

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Environment variables supplied by the scheduler.
const (
	EnvProxy       = "PROXY_HTTP"
	EnvTelegramKey = "TELEGRAM_KEY"
	EnvChatID      = "CHAT_ID"

	// EnvPrefix applies to every optional override (APYWATCH_TARGET_URL, ...).
	EnvPrefix = "APYWATCH"
)

// Viper keys.
const (
	KeyProxy             = "proxy_http"
	KeyTelegramKey       = "telegram_key"
	KeyChatID            = "chat_id"
	KeyTargetURL         = "target_url"
	KeyProbeURL          = "probe_url"
	KeyLabel             = "label"
	KeyTitle             = "title"
	KeyNavigationTimeout = "navigation_timeout"
	KeySettleDelay       = "settle_delay"
	KeyTelegramAPI       = "telegram_api"
	KeyMessageTemplate   = "message_template"
	KeyChromePath        = "chrome_path"
	KeyScreenshotDir     = "screenshot_dir"
	KeyScrollPass        = "scroll_pass"
)

// Fixed run constants. Each can be overridden with APYWATCH_<KEY>.
const (
	DefaultTargetURL         = "https://app.reservoir.xyz/mint?from=rUSD&fromNetwork=Ethereum&to=srUSDv2&toNetwork=Ethereum"
	DefaultProbeURL          = "https://httpbin.org/ip"
	DefaultLabel             = "Current APY"
	DefaultTitle             = "Reservoir srUSD"
	DefaultTelegramAPI       = "https://api.telegram.org"
	DefaultNavigationTimeout = 60 * time.Second
	DefaultSettleDelay       = 8 * time.Second
	DefaultMessageTemplate   = "*{{.Title}}*\nCurrent APY: *{{.Display}}*\n[Open page]({{.URL}})"
)

// Config is the complete, immutable configuration of a single run.
// The env tag names the variable reported in a ConfigurationError.
type Config struct {
	ProxyURL    string `env:"PROXY_HTTP" validate:"required"`
	TelegramKey string `env:"TELEGRAM_KEY" validate:"required"`
	ChatID      string `env:"CHAT_ID" validate:"required"`

	// Proxy is parsed from ProxyURL by Load.
	Proxy ProxyConfig `validate:"-"`

	TargetURL         string        `env:"APYWATCH_TARGET_URL" validate:"required,url"`
	ProbeURL          string        `env:"APYWATCH_PROBE_URL" validate:"required,url"`
	Label             string        `env:"APYWATCH_LABEL" validate:"required"`
	Title             string        `env:"APYWATCH_TITLE"`
	NavigationTimeout time.Duration `env:"APYWATCH_NAVIGATION_TIMEOUT" validate:"gt=0"`
	SettleDelay       time.Duration `env:"APYWATCH_SETTLE_DELAY" validate:"gte=0"`
	TelegramAPI       string        `env:"APYWATCH_TELEGRAM_API" validate:"required,url"`
	MessageTemplate   string        `env:"APYWATCH_MESSAGE_TEMPLATE" validate:"required"`
	ChromePath        string        `env:"APYWATCH_CHROME_PATH"`
	ScreenshotDir     string        `env:"APYWATCH_SCREENSHOT_DIR"`
	ScrollPass        bool          `env:"APYWATCH_SCROLL_PASS"`
}

// Bind registers defaults and environment bindings on v.
// Safe to call more than once.
func Bind(v *viper.Viper) {
	v.SetDefault(KeyTargetURL, DefaultTargetURL)
	v.SetDefault(KeyProbeURL, DefaultProbeURL)
	v.SetDefault(KeyLabel, DefaultLabel)
	v.SetDefault(KeyTitle, DefaultTitle)
	v.SetDefault(KeyNavigationTimeout, DefaultNavigationTimeout)
	v.SetDefault(KeySettleDelay, DefaultSettleDelay)
	v.SetDefault(KeyTelegramAPI, DefaultTelegramAPI)
	v.SetDefault(KeyMessageTemplate, DefaultMessageTemplate)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	// The scheduler's secrets are unprefixed.
	_ = v.BindEnv(KeyProxy, EnvProxy)
	_ = v.BindEnv(KeyTelegramKey, EnvTelegramKey)
	_ = v.BindEnv(KeyChatID, EnvChatID)
}

// Load reads and validates the configuration from v.
// Any failure is a *ConfigurationError.
func Load(v *viper.Viper) (Config, error) {
	Bind(v)

	cfg := Config{
		ProxyURL:          strings.TrimSpace(v.GetString(KeyProxy)),
		TelegramKey:       strings.TrimSpace(v.GetString(KeyTelegramKey)),
		ChatID:            strings.TrimSpace(v.GetString(KeyChatID)),
		TargetURL:         v.GetString(KeyTargetURL),
		ProbeURL:          v.GetString(KeyProbeURL),
		Label:             v.GetString(KeyLabel),
		Title:             v.GetString(KeyTitle),
		NavigationTimeout: v.GetDuration(KeyNavigationTimeout),
		SettleDelay:       v.GetDuration(KeySettleDelay),
		TelegramAPI:       strings.TrimRight(v.GetString(KeyTelegramAPI), "/"),
		MessageTemplate:   v.GetString(KeyMessageTemplate),
		ChromePath:        v.GetString(KeyChromePath),
		ScreenshotDir:     v.GetString(KeyScreenshotDir),
		ScrollPass:        v.GetBool(KeyScrollPass),
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	proxy, err := ParseProxy(cfg.ProxyURL)
	if err != nil {
		return Config{}, err
	}
	cfg.Proxy = proxy

	return cfg, nil
}

var structValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// validate maps validator errors onto a single ConfigurationError so that
// every missing variable is reported at once.
func validate(cfg Config) error {
	err := structValidator.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ConfigurationError{Err: err}
	}

	var missing, bad []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
		} else {
			bad = append(bad, fe.Field()+" ("+fe.Tag()+")")
		}
	}
	if len(missing) > 0 {
		return Missing(missing...)
	}
	return &ConfigurationError{Fields: bad, Err: ErrInvalid}
}

// View is the loggable form of Config with secrets masked.
type View struct {
	Proxy             string `json:"proxy" yaml:"proxy"`
	TelegramKey       string `json:"telegram_key" yaml:"telegram_key"`
	ChatID            string `json:"chat_id" yaml:"chat_id"`
	TargetURL         string `json:"target_url" yaml:"target_url"`
	ProbeURL          string `json:"probe_url" yaml:"probe_url"`
	Label             string `json:"label" yaml:"label"`
	Title             string `json:"title" yaml:"title"`
	NavigationTimeout string `json:"navigation_timeout" yaml:"navigation_timeout"`
	SettleDelay       string `json:"settle_delay" yaml:"settle_delay"`
	TelegramAPI       string `json:"telegram_api" yaml:"telegram_api"`
	MessageTemplate   string `json:"message_template" yaml:"message_template"`
	ChromePath        string `json:"chrome_path,omitempty" yaml:"chrome_path,omitempty"`
	ScreenshotDir     string `json:"screenshot_dir,omitempty" yaml:"screenshot_dir,omitempty"`
	ScrollPass        bool   `json:"scroll_pass" yaml:"scroll_pass"`
}

// Redacted returns a View safe to print.
func (c Config) Redacted() View {
	return View{
		Proxy:             c.Proxy.Redacted(),
		TelegramKey:       mask(c.TelegramKey),
		ChatID:            c.ChatID,
		TargetURL:         c.TargetURL,
		ProbeURL:          c.ProbeURL,
		Label:             c.Label,
		Title:             c.Title,
		NavigationTimeout: c.NavigationTimeout.String(),
		SettleDelay:       c.SettleDelay.String(),
		TelegramAPI:       c.TelegramAPI,
		MessageTemplate:   c.MessageTemplate,
		ChromePath:        c.ChromePath,
		ScreenshotDir:     c.ScreenshotDir,
		ScrollPass:        c.ScrollPass,
	}
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "***"
}
