package utils

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Booking   BookingConfig
	Payment   PaymentConfig
	Identity  IdentityConfig
	Broker    BrokerConfig
	Telemetry TelemetryConfig
	Sweep     SweepConfig
}

type AppConfig struct {
	Name          string
	Env           string
	Port          string
	Debug         bool
	LogPath       string
	StorageDriver string // postgres | memory
	Migrate       bool
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type JWTConfig struct {
	Secret string
	Issuer string
}

// BookingConfig maps onto lifecycle.Policy. A nil CancellationLeadTime keeps
// the default; zero measures refunds from the scheduled start.
type BookingConfig struct {
	CancellationLeadTime *time.Duration
	RequestExpiry        time.Duration
	FullRefundThreshold  time.Duration
	PartialRefundPercent int64
	ReviewWindow         time.Duration
	AutoStartSession     bool
	Currency             string
}

type PaymentConfig struct {
	Driver     string // omise | simulated
	PublicKey  string
	SecretKey  string
	FailTokens []string // simulated driver declines these tokens
}

type IdentityConfig struct {
	Driver  string // http | static
	BaseURL string
	Timeout time.Duration
}

type BrokerConfig struct {
	URL      string
	Exchange string
}

type TelemetryConfig struct {
	OTLPEndpoint string
	Insecure     bool
}

type SweepConfig struct {
	Interval  time.Duration
	BatchSize int
}

// BindFlags registers the command line flags that override .env values.
func BindFlags(flags *pflag.FlagSet) {
	flags.String("config", ".env", "path to the env config file")
	flags.String("port", "", "HTTP listen port")
	flags.Bool("migrate", false, "apply database migrations on start")
	flags.String("storage", "", "storage driver: postgres or memory")
}

func LoadConfig(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	configFile := ".env"
	if flags != nil {
		if f := flags.Lookup("config"); f != nil && f.Value.String() != "" {
			configFile = f.Value.String()
		}
	}
	v.SetConfigFile(configFile)
	v.SetConfigType("env")

	// Set defaults
	v.SetDefault("APP_NAME", "companion-booking")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DEBUG", false)
	v.SetDefault("LOG_PATH", "logs/")
	v.SetDefault("STORAGE_DRIVER", "postgres")
	v.SetDefault("MIGRATE", false)
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("JWT_ISSUER", "companion-auth")
	v.SetDefault("BOOKING_CANCELLATION_LEAD", "24h")
	v.SetDefault("BOOKING_REQUEST_EXPIRY", "48h")
	v.SetDefault("BOOKING_FULL_REFUND_THRESHOLD", "12h")
	v.SetDefault("BOOKING_PARTIAL_REFUND_PERCENT", 50)
	v.SetDefault("BOOKING_REVIEW_WINDOW", "24h")
	v.SetDefault("BOOKING_AUTO_START_SESSION", false)
	v.SetDefault("BOOKING_CURRENCY", "thb")
	v.SetDefault("PAYMENT_DRIVER", "simulated")
	v.SetDefault("PAYMENT_FAIL_TOKENS", "tokn_fail")
	v.SetDefault("IDENTITY_DRIVER", "static")
	v.SetDefault("IDENTITY_TIMEOUT", "5s")
	v.SetDefault("BROKER_EXCHANGE", "booking.events")
	v.SetDefault("SWEEP_INTERVAL", "1m")
	v.SetDefault("SWEEP_BATCH_SIZE", 100)

	// a missing file is fine, the environment can carry everything
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	v.AutomaticEnv()

	if flags != nil {
		for key, flag := range map[string]string{"PORT": "port", "MIGRATE": "migrate", "STORAGE_DRIVER": "storage"} {
			if f := flags.Lookup(flag); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	lead := v.GetDuration("BOOKING_CANCELLATION_LEAD")

	config := &Config{
		App: AppConfig{
			Name:          v.GetString("APP_NAME"),
			Env:           v.GetString("APP_ENV"),
			Port:          v.GetString("PORT"),
			Debug:         v.GetBool("DEBUG"),
			LogPath:       v.GetString("LOG_PATH"),
			StorageDriver: v.GetString("STORAGE_DRIVER"),
			Migrate:       v.GetBool("MIGRATE"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASS"),
			MaxConns: v.GetInt32("DB_MAX_CONNS"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
			Issuer: v.GetString("JWT_ISSUER"),
		},
		Booking: BookingConfig{
			CancellationLeadTime: &lead,
			RequestExpiry:        v.GetDuration("BOOKING_REQUEST_EXPIRY"),
			FullRefundThreshold:  v.GetDuration("BOOKING_FULL_REFUND_THRESHOLD"),
			PartialRefundPercent: v.GetInt64("BOOKING_PARTIAL_REFUND_PERCENT"),
			ReviewWindow:         v.GetDuration("BOOKING_REVIEW_WINDOW"),
			AutoStartSession:     v.GetBool("BOOKING_AUTO_START_SESSION"),
			Currency:             v.GetString("BOOKING_CURRENCY"),
		},
		Payment: PaymentConfig{
			Driver:     v.GetString("PAYMENT_DRIVER"),
			PublicKey:  v.GetString("OMISE_PUBLIC_KEY"),
			SecretKey:  v.GetString("OMISE_SECRET_KEY"),
			FailTokens: v.GetStringSlice("PAYMENT_FAIL_TOKENS"),
		},
		Identity: IdentityConfig{
			Driver:  v.GetString("IDENTITY_DRIVER"),
			BaseURL: v.GetString("IDENTITY_BASE_URL"),
			Timeout: v.GetDuration("IDENTITY_TIMEOUT"),
		},
		Broker: BrokerConfig{
			URL:      v.GetString("RABBITMQ_URL"),
			Exchange: v.GetString("BROKER_EXCHANGE"),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Insecure:     v.GetBool("OTEL_EXPORTER_OTLP_INSECURE"),
		},
		Sweep: SweepConfig{
			Interval:  v.GetDuration("SWEEP_INTERVAL"),
			BatchSize: v.GetInt("SWEEP_BATCH_SIZE"),
		},
	}

	return config, nil
}
