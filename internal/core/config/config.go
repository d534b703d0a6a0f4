package config

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/viper"
)

// AppConfig holds the configuration for the application.
// Tags used:
// - mapstructure: used by viper to unmarshal
// - default: default value to set if missing
// - required: if "true", error if missing
type AppConfig struct {
	// Environment specifies the runtime environment (e.g., development, production).
	Environment string `mapstructure:"APP_ENV" default:"development"`
	// LogLevel defines the logging verbosity (e.g., debug, info, error).
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
	// ServerPort is the port where the server will listen.
	ServerPort int `mapstructure:"SERVER_PORT" default:"8080"`

	// Database holds the database configuration.
	Database DatabaseConfig `mapstructure:",squash"`

	// Redis holds the settlement summary cache configuration.
	Redis RedisConfig `mapstructure:",squash"`

	// Kafka holds the broker configuration for catalog events.
	Kafka KafkaConfig `mapstructure:",squash"`

	// Auth holds the bearer token verification settings.
	Auth AuthConfig `mapstructure:",squash"`

	// Settlement holds the payout policy.
	Settlement SettlementConfig `mapstructure:",squash"`

	// Orders holds order write tuning.
	Orders OrdersConfig `mapstructure:",squash"`

	// Collaborators holds the URLs of external services.
	Collaborators CollaboratorsConfig `mapstructure:",squash"`
}

// DatabaseConfig holds database connection details.
type DatabaseConfig struct {
	// Driver selects the gorm dialector: "postgres" or "sqlite".
	Driver string `mapstructure:"DB_DRIVER" default:"postgres"`
	// Host is the database server hostname.
	Host string `mapstructure:"DB_HOST" default:"localhost"`
	// Port is the database connection port.
	Port int `mapstructure:"DB_PORT" default:"5432"`
	// User is the database role.
	User string `mapstructure:"DB_USER" default:"postgres"`
	// Password is the database role password.
	Password string `mapstructure:"DB_PASSWORD"`
	// Name is the database name.
	Name string `mapstructure:"DB_NAME" default:"bookstore"`
	// SSLMode is passed through to the postgres DSN.
	SSLMode string `mapstructure:"DB_SSLMODE" default:"disable"`
	// SQLitePath is the database file used when Driver is "sqlite".
	SQLitePath string `mapstructure:"DB_SQLITE_PATH" default:"settlement.db"`
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	// URL is the redis connection URL. Empty disables the summary cache.
	URL string `mapstructure:"REDIS_URL"`
	// SummaryTTL is how long a seller's monthly summary stays cached.
	SummaryTTL time.Duration `mapstructure:"SUMMARY_CACHE_TTL" default:"10m"`
}

// KafkaConfig holds the Kafka producer settings.
type KafkaConfig struct {
	// Brokers is a comma separated list of broker addresses. Empty logs events instead.
	Brokers []string `mapstructure:"KAFKA_BROKERS"`
	// StockTopic receives stock-restoration events for the catalog.
	StockTopic string `mapstructure:"KAFKA_STOCK_TOPIC" default:"catalog.stock-restoration"`
}

// AuthConfig holds the JWT verification secret shared with the auth service.
type AuthConfig struct {
	// JWTSecret is the HMAC secret used to verify bearer tokens.
	JWTSecret string `mapstructure:"JWT_SECRET" required:"true"`
}

// SettlementConfig holds the platform payout policy.
type SettlementConfig struct {
	// CommissionRate is the platform commission as a percentage of seller item sales.
	CommissionRate float64 `mapstructure:"COMMISSION_RATE" default:"2.5"`
	// ShippingAllocation selects the shipping split policy ("proportional" or "equal").
	ShippingAllocation string `mapstructure:"SHIPPING_ALLOCATION" default:"proportional"`
	// PlatformPayeeID receives payouts for items whose seller no longer exists.
	PlatformPayeeID string `mapstructure:"PLATFORM_PAYEE_ID" default:"admin"`
}

// OrdersConfig holds order write settings.
type OrdersConfig struct {
	// WriteRetries is the number of attempts on a version conflict when the client did not pin a version.
	WriteRetries int `mapstructure:"ORDER_WRITE_RETRIES" default:"3"`
	// PageSize is the default page size for listings.
	PageSize int `mapstructure:"PAGE_SIZE" default:"10"`
}

// CollaboratorsConfig holds the URLs of the services this one talks to.
type CollaboratorsConfig struct {
	// SellerDirectoryURL is the base URL of the user service seller lookup. Empty trusts every non-empty seller id.
	SellerDirectoryURL string `mapstructure:"SELLER_DIRECTORY_URL"`
	// CourierAPIURL is the base URL of the courier aggregator REST API.
	CourierAPIURL string `mapstructure:"COURIER_API_URL"`
	// CourierAPICouriers lists the couriers served by the aggregator API.
	CourierAPICouriers []string `mapstructure:"COURIER_API_COURIERS"`
	// CourierBrowserName is the courier tracked through its web page.
	CourierBrowserName string `mapstructure:"COURIER_BROWSER_NAME"`
	// CourierBrowserURL is the courier tracking page, with %s for the tracking number.
	CourierBrowserURL string `mapstructure:"COURIER_BROWSER_URL"`
	// CourierBrowserXHR matches the request the tracking page issues for its data.
	CourierBrowserXHR string `mapstructure:"COURIER_BROWSER_XHR"`
	// CourierProxy configures the browser courier adapter's proxy.
	CourierProxy CourierProxyConfig `mapstructure:",squash"`
}

// CourierProxyConfig holds the optional proxy used by the browser courier adapter.
type CourierProxyConfig struct {
	Enabled  bool   `mapstructure:"COURIER_PROXY_ENABLED" default:"false"`
	Hostname string `mapstructure:"COURIER_PROXY_HOST"`
	Port     int    `mapstructure:"COURIER_PROXY_PORT"`
	Username string `mapstructure:"COURIER_PROXY_USER"`
	Password string `mapstructure:"COURIER_PROXY_PASSWORD"`
}

// Load loads configuration from .env files and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// processTags iterates over the struct fields and sets default values in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			if err := v.BindEnv(key); err != nil {
				return fmt.Errorf("failed to bind env %s: %w", key, err)
			}
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks if fields marked as required have non-zero values.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		required := field.Tag.Get("required")
		if required == "true" {
			value := val.Field(i)
			if isZero(value) {
				key := field.Tag.Get("mapstructure")
				return fmt.Errorf("missing required configuration: %s", key)
			}
		}
	}
	return nil
}

// isZero checks if a reflect.Value is the zero value for its type.
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}
