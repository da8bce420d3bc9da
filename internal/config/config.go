package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	Stripe   StripeConfig
	Mail     MailConfig
	CORS     CORSConfig
	License  LicenseConfig
}

type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout"`
	WriteTimeout   time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout    time.Duration `mapstructure:"idleTimeout"`
	ShutdownPeriod time.Duration `mapstructure:"shutdownPeriod"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
	ApplySchema     bool          `mapstructure:"applySchema"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StripeConfig holds the checkout product and the webhook signing secret.
// SuccessURL must keep the {CHECKOUT_SESSION_ID} placeholder; Stripe fills it in.
type StripeConfig struct {
	SecretKey     string `mapstructure:"secretKey"`
	PriceID       string `mapstructure:"priceId"`
	WebhookSecret string `mapstructure:"webhookSecret"`
	SuccessURL    string `mapstructure:"successUrl"`
	CancelURL     string `mapstructure:"cancelUrl"`
}

type MailConfig struct {
	APIKey      string `mapstructure:"apiKey"`
	From        string `mapstructure:"from"`
	Subject     string `mapstructure:"subject"`
	ProductName string `mapstructure:"productName"`
	AppURL      string `mapstructure:"appUrl"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

type LicenseConfig struct {
	MaxDevices  int           `mapstructure:"maxDevices"`
	TokenSecret string        `mapstructure:"tokenSecret"`
	TokenTTL    time.Duration `mapstructure:"tokenTTL"`
}

// envBindings keeps the variable names the deployment already uses.
var envBindings = map[string]string{
	"database.url":         "DATABASE_URL",
	"redis.addr":           "REDIS_ADDR",
	"redis.password":       "REDIS_PASSWORD",
	"stripe.secretKey":     "STRIPE_SECRET_KEY",
	"stripe.priceId":       "STRIPE_PRICE_ID",
	"stripe.webhookSecret": "STRIPE_WEBHOOK_SECRET",
	"mail.apiKey":          "RESEND_API_KEY",
	"license.tokenSecret":  "LICENSE_TOKEN_SECRET",
}

func LoadConfig(configPath string) (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables and config file")
	}

	v := viper.New()

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 30*time.Second)
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.shutdownPeriod", 15*time.Second)

	v.SetDefault("database.maxOpenConns", 10)
	v.SetDefault("database.maxIdleConns", 2)
	v.SetDefault("database.connMaxLifetime", 5*time.Minute)
	v.SetDefault("database.applySchema", false)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("stripe.successUrl", "https://fontpairai.com/success.html?session_id={CHECKOUT_SESSION_ID}")
	v.SetDefault("stripe.cancelUrl", "https://fontpairai.com/pricing.html")

	v.SetDefault("mail.from", "FontPair AI <onboarding@resend.dev>")
	v.SetDefault("mail.subject", "Your FontPair AI License Key")
	v.SetDefault("mail.productName", "FontPair AI")
	v.SetDefault("mail.appUrl", "https://fontpairai.com")

	v.SetDefault("cors.allowedOrigins", []string{"https://fontpairai.com", "https://www.fontpairai.com"})

	v.SetDefault("license.maxDevices", 3)
	v.SetDefault("license.tokenTTL", 30*24*time.Hour)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(true)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			log.Printf("Warning: could not read config file: %s. Error: %v\n", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports every missing setting the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url (DATABASE_URL) is required"))
	}
	if c.Stripe.SecretKey == "" {
		errs = append(errs, errors.New("stripe.secretKey (STRIPE_SECRET_KEY) is required"))
	}
	if c.Stripe.PriceID == "" {
		errs = append(errs, errors.New("stripe.priceId (STRIPE_PRICE_ID) is required"))
	}
	if c.Stripe.WebhookSecret == "" {
		errs = append(errs, errors.New("stripe.webhookSecret (STRIPE_WEBHOOK_SECRET) is required"))
	}
	if c.Mail.APIKey == "" {
		log.Println("Warning: mail.apiKey (RESEND_API_KEY) is empty, license emails will fail")
	}
	return errors.Join(errs...)
}
