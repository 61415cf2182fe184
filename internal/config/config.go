package config

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	App struct {
		Env      string
		Timezone string
		BaseURL  string `mapstructure:"base_url"`
		// TrialDays - длительность пробного периода для новых пользователей
		TrialDays int `mapstructure:"trial_days"`
	} `mapstructure:"app"`

	HTTP struct {
		Addr           string
		RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
		RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Supabase struct {
		URL       string
		JWTSecret string `mapstructure:"jwt_secret"`
	} `mapstructure:"supabase"`

	Push struct {
		VAPIDPublicKey  string `mapstructure:"vapid_public_key"`
		VAPIDPrivateKey string `mapstructure:"vapid_private_key"`
		Subject         string
	} `mapstructure:"push"`

	Payment struct {
		APIURL        string `mapstructure:"api_url"`
		PublicKey     string `mapstructure:"public_key"`
		SecretKey     string `mapstructure:"secret_key"`
		WebhookSecret string `mapstructure:"webhook_secret"`
	} `mapstructure:"payment"`

	AI struct {
		APIKey string `mapstructure:"api_key"`
		Model  string
	} `mapstructure:"ai"`

	Telegram struct {
		Token string
	} `mapstructure:"telegram"`

	Alerts struct {
		MaterialWindowDays int `mapstructure:"material_window_days"`
	} `mapstructure:"alerts"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`
}

// envBindings - ключ viper -> точное имя переменной окружения.
var envBindings = map[string]string{
	"app.env":                     "APP_ENV",
	"app.timezone":                "APP_TIMEZONE",
	"app.base_url":                "APP_BASE_URL",
	"app.trial_days":              "TRIAL_DAYS",
	"http.addr":                   "HTTP_ADDR",
	"http.rate_limit_rps":         "RATE_LIMIT_RPS",
	"http.rate_limit_burst":       "RATE_LIMIT_BURST",
	"postgres.dsn":                "DATABASE_URL",
	"supabase.url":                "SUPABASE_URL",
	"supabase.jwt_secret":         "SUPABASE_JWT_SECRET",
	"push.vapid_public_key":       "VAPID_PUBLIC_KEY",
	"push.vapid_private_key":      "VAPID_PRIVATE_KEY",
	"push.subject":                "VAPID_SUBJECT",
	"payment.api_url":             "PAYMENT_API_URL",
	"payment.public_key":          "PAYMENT_PUBLIC_KEY",
	"payment.secret_key":          "PAYMENT_SECRET_KEY",
	"payment.webhook_secret":      "PAYMENT_WEBHOOK_SECRET",
	"ai.api_key":                  "GEMINI_API_KEY",
	"ai.model":                    "GEMINI_MODEL",
	"telegram.token":              "TELEGRAM_BOT_TOKEN",
	"alerts.material_window_days": "ALERTS_MATERIAL_WINDOW_DAYS",
	"metrics.enabled":             "METRICS_ENABLED",
}

// Load читает YAML (если path задан и файл существует), затем переменные окружения.
// .env в рабочей директории подхватывается, если есть.
func Load(path string) (Config, error) {
	_ = gotenv.Load()

	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	var c Config
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return c, err
			}
		}
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	c.App.BaseURL = strings.TrimRight(c.App.BaseURL, "/")
	c.Supabase.URL = strings.TrimRight(c.Supabase.URL, "/")
	if c.Postgres.DSN == "" {
		return c, errors.New("config: DATABASE_URL is required")
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "prod")
	v.SetDefault("app.timezone", "America/Sao_Paulo")
	v.SetDefault("app.base_url", "http://localhost:3000")
	v.SetDefault("app.trial_days", 7)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.rate_limit_rps", 5)
	v.SetDefault("http.rate_limit_burst", 10)
	v.SetDefault("push.subject", "mailto:contato@maosdaobra.app")
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("alerts.material_window_days", 3)
	v.SetDefault("metrics.enabled", true)
}

// Missing перечисляет незаданные секреты, нужные в проде.
// Отсутствие не фатально: компонент вернёт ConfigurationError при обращении.
func (c Config) Missing() []string {
	var out []string
	check := func(val, name string) {
		if strings.TrimSpace(val) == "" {
			out = append(out, name)
		}
	}
	check(c.Supabase.URL, "SUPABASE_URL")
	check(c.Supabase.JWTSecret, "SUPABASE_JWT_SECRET")
	check(c.Push.VAPIDPublicKey, "VAPID_PUBLIC_KEY")
	check(c.Push.VAPIDPrivateKey, "VAPID_PRIVATE_KEY")
	check(c.Payment.PublicKey, "PAYMENT_PUBLIC_KEY")
	check(c.Payment.SecretKey, "PAYMENT_SECRET_KEY")
	check(c.Payment.APIURL, "PAYMENT_API_URL")
	check(c.AI.APIKey, "GEMINI_API_KEY")
	check(c.App.BaseURL, "APP_BASE_URL")
	return out
}
