package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Gateway environments.
const (
	GatewayEnvTest = "TEST"
	GatewayEnvProd = "PROD"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Gateway  GatewayConfig
	Checkout CheckoutConfig
	SMTP     SMTPConfig
	Kafka    KafkaConfig
	S3       S3Config
	Metrics  MetricsConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	APIKey string
}

// GatewayConfig holds the payment gateway credentials and limits.
type GatewayConfig struct {
	AppID       string
	SecretKey   string
	Environment string // TEST or PROD
	BaseURL     string
	CheckoutURL string
	APIVersion  string
	Timeout     time.Duration
	Currency    string
	MinAmount   decimal.Decimal
	ReturnURL   string
	NotifyURL   string
	// WebhookSecret signs webhook bodies. Defaults to SecretKey.
	WebhookSecret string
}

// CheckoutConfig holds checkout and reconciliation settings.
type CheckoutConfig struct {
	PendingTTL        time.Duration
	OrderNumberPrefix string
	ConfirmationURL   string
	ProcessingURL     string
	FailureURL        string
	ExpiredURL        string
	SweepInterval     time.Duration // 0 disables the in-process sweeper
	SweepBatch        int
}

// SMTPConfig holds outbound email settings.
type SMTPConfig struct {
	Enabled       bool
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	OperatorEmail string
}

// KafkaConfig holds event publishing settings. Empty Brokers disables Kafka.
type KafkaConfig struct {
	Brokers string
	Topic   string
}

// S3Config holds AWS S3 configuration for operator shortfall reports.
type S3Config struct {
	Enabled   bool
	Bucket    string
	Region    string
	Prefix    string // Path prefix within bucket (e.g., "reports/")
	ReportDir string // Local directory used when S3 is disabled or fails
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Namespace string
}

// Load loads configuration from environment variables. Values from a .env
// file are applied first when one exists; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load(getEnv("ENV_FILE", ".env"))

	gatewayEnv := strings.ToUpper(getEnv("GATEWAY_ENV", GatewayEnvTest))
	secret := getEnv("GATEWAY_SECRET_KEY", "")

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "kartcheckout"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			APIKey: getEnv("API_KEY", ""),
		},
		Gateway: GatewayConfig{
			AppID:         getEnv("GATEWAY_APP_ID", ""),
			SecretKey:     secret,
			Environment:   gatewayEnv,
			BaseURL:       getEnv("GATEWAY_BASE_URL", defaultGatewayBaseURL(gatewayEnv)),
			CheckoutURL:   getEnv("GATEWAY_CHECKOUT_URL", defaultGatewayCheckoutURL(gatewayEnv)),
			APIVersion:    getEnv("GATEWAY_API_VERSION", "2023-08-01"),
			Timeout:       getEnvAsDuration("GATEWAY_TIMEOUT", 10*time.Second),
			Currency:      getEnv("GATEWAY_CURRENCY", "INR"),
			MinAmount:     getEnvAsDecimal("GATEWAY_MIN_AMOUNT", decimal.NewFromInt(1)),
			ReturnURL:     getEnv("GATEWAY_RETURN_URL", "http://localhost:8080/payment/return?order_id={order_id}"),
			NotifyURL:     getEnv("GATEWAY_NOTIFY_URL", "http://localhost:8080/payment/webhook"),
			WebhookSecret: getEnv("GATEWAY_WEBHOOK_SECRET", secret),
		},
		Checkout: CheckoutConfig{
			PendingTTL:        getEnvAsDuration("CHECKOUT_PENDING_TTL", 30*time.Minute),
			OrderNumberPrefix: getEnv("ORDER_NUMBER_PREFIX", "JB"),
			ConfirmationURL:   getEnv("CHECKOUT_CONFIRMATION_URL", "/orders/confirmation"),
			ProcessingURL:     getEnv("CHECKOUT_PROCESSING_URL", "/orders/processing"),
			FailureURL:        getEnv("CHECKOUT_FAILURE_URL", "/checkout/failed"),
			ExpiredURL:        getEnv("CHECKOUT_EXPIRED_URL", "/checkout/expired"),
			SweepInterval:     getEnvAsDuration("CHECKOUT_SWEEP_INTERVAL", 5*time.Minute),
			SweepBatch:        getEnvAsInt("CHECKOUT_SWEEP_BATCH", 100),
		},
		SMTP: SMTPConfig{
			Enabled:       getEnvAsBool("SMTP_ENABLED", false),
			Host:          getEnv("SMTP_HOST", ""),
			Port:          getEnvAsInt("SMTP_PORT", 587),
			Username:      getEnv("SMTP_USERNAME", ""),
			Password:      getEnv("SMTP_PASSWORD", ""),
			From:          getEnv("SMTP_FROM", "orders@localhost"),
			OperatorEmail: getEnv("OPERATOR_EMAIL", ""),
		},
		Kafka: KafkaConfig{
			Brokers: getEnv("KAFKA_BROKERS", ""),
			Topic:   getEnv("KAFKA_TOPIC", "checkout.events"),
		},
		S3: S3Config{
			Enabled:   getEnvAsBool("S3_ENABLED", false),
			Bucket:    getEnv("S3_BUCKET", ""),
			Region:    getEnv("S3_REGION", "ap-south-1"),
			Prefix:    getEnv("S3_PREFIX", "reports/"),
			ReportDir: getEnv("REPORT_DIR", "./reports"),
		},
		Metrics: MetricsConfig{
			Namespace: getEnv("METRICS_NAMESPACE", "kart"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if err := c.Gateway.validate(); err != nil {
		return err
	}

	if c.Checkout.PendingTTL <= 0 {
		return fmt.Errorf("checkout pending TTL must be positive")
	}

	if c.Checkout.OrderNumberPrefix == "" {
		return fmt.Errorf("order number prefix is required")
	}

	if c.SMTP.Enabled && c.SMTP.Host == "" {
		return fmt.Errorf("SMTP host is required when SMTP is enabled")
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	return nil
}

func (g *GatewayConfig) validate() error {
	if g.AppID == "" || g.SecretKey == "" {
		return fmt.Errorf("gateway app id and secret key are required")
	}
	if g.Environment != GatewayEnvTest && g.Environment != GatewayEnvProd {
		return fmt.Errorf("invalid gateway environment: %s (must be TEST or PROD)", g.Environment)
	}
	if g.Timeout <= 0 {
		return fmt.Errorf("gateway timeout must be positive")
	}
	if g.MinAmount.IsNegative() {
		return fmt.Errorf("gateway minimum amount cannot be negative")
	}
	if g.ReturnURL == "" || g.NotifyURL == "" {
		return fmt.Errorf("gateway return and notify URLs are required")
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// BrokerList splits the comma separated broker string.
func (c *KafkaConfig) BrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func defaultGatewayBaseURL(env string) string {
	if env == GatewayEnvProd {
		return "https://api.cashfree.com"
	}
	return "https://sandbox.cashfree.com"
}

func defaultGatewayCheckoutURL(env string) string {
	if env == GatewayEnvProd {
		return "https://payments.cashfree.com/order/#"
	}
	return "https://payments-test.cashfree.com/order/#"
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("30s", "15m").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
