package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"github.com/aussiebroadwan/accounts/pkg/jwtx"
	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	MailDriverLog  = "log"
	MailDriverSMTP = "smtp"
)

// Config is read once at startup and never mutated afterwards. Every key can
// come from the YAML file or from an environment variable of the same name
// in upper case (database_file -> DATABASE_FILE).
type Config struct {
	Env                  string        `mapstructure:"env"`        // dev, staging, prod (default: dev)
	LogLevel             string        `mapstructure:"log_level"`  // debug, info, warn, error (default: info)
	LogFormat            string        `mapstructure:"log_format"` // json, text (default: json)
	Port                 int           `mapstructure:"port"`
	ShutdownGracePeriod  time.Duration `mapstructure:"shutdown_grace_period"`
	HousekeepingInterval time.Duration `mapstructure:"housekeeping_interval"`

	DatabaseDriver string `mapstructure:"database_driver"` // sqlite or postgres
	DatabaseFile   string `mapstructure:"database_file"`   // sqlite only
	DatabaseURL    string `mapstructure:"database_url"`    // postgres only

	PepperFile    string `mapstructure:"pepper_file"`
	HashAlgorithm string `mapstructure:"hash_algorithm"` // argon2id or bcrypt
	BcryptCost    int    `mapstructure:"bcrypt_cost"`

	SessionIssuer  string        `mapstructure:"session_issuer"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	SessionKeyFile string        `mapstructure:"session_key_file"` // empty: ephemeral key

	VerificationTokenTTL time.Duration `mapstructure:"verification_token_ttl"`
	ResetTokenTTL        time.Duration `mapstructure:"reset_token_ttl"`
	ClientURL            string        `mapstructure:"client_url"`
	ConcealUnknownEmail  bool          `mapstructure:"conceal_unknown_email"`

	MailDriver   string        `mapstructure:"mail_driver"` // log or smtp
	SMTPHost     string        `mapstructure:"smtp_host"`
	SMTPPort     int           `mapstructure:"smtp_port"`
	SMTPUsername string        `mapstructure:"smtp_username"`
	SMTPPassword string        `mapstructure:"smtp_password"`
	MailFrom     string        `mapstructure:"mail_from"`
	MailTimeout  time.Duration `mapstructure:"mail_timeout"`
	ProductName  string        `mapstructure:"product_name"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("port", 8080)
	v.SetDefault("shutdown_grace_period", 10*time.Second)
	v.SetDefault("housekeeping_interval", time.Hour)

	v.SetDefault("database_driver", DriverSQLite)
	v.SetDefault("database_file", "accounts.db")
	v.SetDefault("database_url", "")

	v.SetDefault("pepper_file", "pepper")
	v.SetDefault("hash_algorithm", cryptox.AlgorithmArgon2id)
	v.SetDefault("bcrypt_cost", cryptox.DefaultBcryptCost)

	v.SetDefault("session_issuer", "aussiebroadwan-accounts")
	v.SetDefault("session_ttl", jwtx.DefaultSessionTTL)
	v.SetDefault("session_key_file", "")

	v.SetDefault("verification_token_ttl", service.DefaultVerificationTTL)
	v.SetDefault("reset_token_ttl", service.DefaultResetTTL)
	v.SetDefault("client_url", "http://localhost:3000")
	v.SetDefault("conceal_unknown_email", false)

	v.SetDefault("mail_driver", MailDriverLog)
	v.SetDefault("smtp_host", "")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("smtp_username", "")
	v.SetDefault("smtp_password", "")
	v.SetDefault("mail_from", "")
	v.SetDefault("mail_timeout", service.DefaultMailTimeout)
	v.SetDefault("product_name", "Accounts")
}

// LoadConfig reads defaults, then the optional YAML file at path, then the
// environment. The result is validated.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsDev reports whether development behaviour (error detail in 500 bodies,
// non-Secure cookies) is enabled.
func (c Config) IsDev() bool { return c.Env == "dev" }

func (c Config) Validate() error {
	var errs []error

	switch c.DatabaseDriver {
	case DriverSQLite:
		if c.DatabaseFile == "" {
			errs = append(errs, errors.New("database_file is required for the sqlite driver"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("database_url is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("database_driver must be %q or %q", DriverSQLite, DriverPostgres))
	}

	switch c.HashAlgorithm {
	case cryptox.AlgorithmArgon2id, cryptox.AlgorithmBcrypt:
	default:
		errs = append(errs, fmt.Errorf("hash_algorithm must be %q or %q", cryptox.AlgorithmArgon2id, cryptox.AlgorithmBcrypt))
	}

	switch c.MailDriver {
	case MailDriverLog:
	case MailDriverSMTP:
		if c.SMTPHost == "" || c.MailFrom == "" {
			errs = append(errs, errors.New("smtp_host and mail_from are required for the smtp mail driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("mail_driver must be %q or %q", MailDriverLog, MailDriverSMTP))
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d is out of range", c.Port))
	}
	if c.SessionIssuer == "" {
		errs = append(errs, errors.New("session_issuer is required"))
	}
	if c.ClientURL == "" {
		errs = append(errs, errors.New("client_url is required"))
	}

	for name, d := range map[string]time.Duration{
		"session_ttl":            c.SessionTTL,
		"verification_token_ttl": c.VerificationTokenTTL,
		"reset_token_ttl":        c.ResetTokenTTL,
		"mail_timeout":           c.MailTimeout,
		"housekeeping_interval":  c.HousekeepingInterval,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}

	return errors.Join(errs...)
}
