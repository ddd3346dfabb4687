package config

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/vault-client-go"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var configType = "yaml"

// Lane holds the worker settings of a single job queue lane. Zero values fall
// back to the shared Queue settings. MaxAttempts counts every run of a job,
// the first one included.
type Lane struct {
	Concurrency int           `mapstructure:"CONCURRENCY"`
	MaxAttempts int           `mapstructure:"MAX_ATTEMPTS"`
	Timeout     time.Duration `mapstructure:"TIMEOUT"`
}

type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	AppName    string `mapstructure:"APP_NAME"`
	AppVersion string `mapstructure:"APP_VERSION"`
	NodeID     int64  `mapstructure:"NODE_ID"`
	Otel       struct {
		Addr string `mapstructure:"ADDR"`
	} `mapstructure:"OTEL"`
	Metrics struct {
		Addr string `mapstructure:"ADDR"`
	} `mapstructure:"METRICS"`
	Database struct {
		Type           string `mapstructure:"TYPE"`
		Host           string `mapstructure:"HOST"`
		Port           string `mapstructure:"PORT"`
		DBNAME         string `mapstructure:"DBNAME"`
		User           string `mapstructure:"USER"`
		Password       string `mapstructure:"PASSWORD"`
		SSLMode        string `mapstructure:"SSLMODE"`
		Timezone       string `mapstructure:"TIMEZONE"`
		AutoMigrate    bool   `mapstructure:"AUTO_MIGRATE"`
		ConnectionPool struct {
			MaxIdleConn     int           `mapstructure:"MAX_IDLE_CONN"`
			MaxOpenConns    int           `mapstructure:"MAX_OPEN_CONNS"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
			ConnMaxIdleTime time.Duration `mapstructure:"CONN_MAX_IDLE_TIME"`
		} `mapstructure:"CONNECTION_POOL"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`
	Oracle struct {
		// Intervals are expressed in milliseconds.
		VerificationInterval int64         `mapstructure:"VERIFICATION_INTERVAL"`
		DistributionInterval int64         `mapstructure:"DISTRIBUTION_INTERVAL"`
		SubmitCampaignProofs bool          `mapstructure:"SUBMIT_CAMPAIGN_PROOFS"`
		SearchWindow         time.Duration `mapstructure:"SEARCH_WINDOW"`
	} `mapstructure:"ORACLE"`
	Queue struct {
		MetricsFetch  Lane          `mapstructure:"METRICS_FETCH"`
		ClaimValidate Lane          `mapstructure:"CLAIM_VALIDATE"`
		ClaimFinalize Lane          `mapstructure:"CLAIM_FINALIZE"`
		MaxAttempts   int           `mapstructure:"MAX_ATTEMPTS"`
		Timeout       time.Duration `mapstructure:"TIMEOUT"`
		BackoffBase   time.Duration `mapstructure:"BACKOFF_BASE"`
		BackoffMax    time.Duration `mapstructure:"BACKOFF_MAX"`
	} `mapstructure:"QUEUE"`
	Solana struct {
		RPCURL           string `mapstructure:"RPC_URL"`
		ProgramID        string `mapstructure:"PROGRAM_ID"`
		Commitment       string `mapstructure:"COMMITMENT"`
		OraclePrivateKey string `mapstructure:"ORACLE_PRIVATE_KEY"`
	} `mapstructure:"SOLANA"`
	Twitter struct {
		BaseURL     string        `mapstructure:"BASE_URL"`
		BearerToken string        `mapstructure:"BEARER_TOKEN"`
		RPS         float64       `mapstructure:"RPS"`
		Timeout     time.Duration `mapstructure:"TIMEOUT"`
	} `mapstructure:"TWITTER"`
}

// VerificationInterval is the oracle scanner tick.
func (c *Config) VerificationInterval() time.Duration {
	return time.Duration(c.Oracle.VerificationInterval) * time.Millisecond
}

// DistributionInterval is the distribution scanner tick.
func (c *Config) DistributionInterval() time.Duration {
	return time.Duration(c.Oracle.DistributionInterval) * time.Millisecond
}

var Module = fx.Module("config", fx.Provide(LoadConfig))

type Params struct {
	fx.In
	Vault *vault.Client `optional:"true"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "creator-missions")
	v.SetDefault("APP_VERSION", "dev")
	v.SetDefault("NODE_ID", 1)
	v.SetDefault("OTEL.ADDR", "")
	v.SetDefault("METRICS.ADDR", ":9090")

	v.SetDefault("DATABASE.TYPE", "postgres")
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", "5432")
	v.SetDefault("DATABASE.DBNAME", "creator_missions")
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "")
	v.SetDefault("DATABASE.SSLMODE", "disable")
	v.SetDefault("DATABASE.TIMEZONE", "UTC")
	v.SetDefault("DATABASE.AUTO_MIGRATE", true)
	v.SetDefault("DATABASE.CONNECTION_POOL.MAX_IDLE_CONN", 5)
	v.SetDefault("DATABASE.CONNECTION_POOL.MAX_OPEN_CONNS", 20)
	v.SetDefault("DATABASE.CONNECTION_POOL.CONN_MAX_LIFETIME", time.Hour)
	v.SetDefault("DATABASE.CONNECTION_POOL.CONN_MAX_IDLE_TIME", 10*time.Minute)

	v.SetDefault("REDIS.ADDR", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("REDIS.POOL_SIZE", 10)
	v.SetDefault("REDIS.POOL_TIMEOUT", 5*time.Second)

	v.SetDefault("ORACLE.VERIFICATION_INTERVAL", 300000)
	v.SetDefault("ORACLE.DISTRIBUTION_INTERVAL", 600000)
	v.SetDefault("ORACLE.SUBMIT_CAMPAIGN_PROOFS", false)
	v.SetDefault("ORACLE.SEARCH_WINDOW", 24*time.Hour)

	for _, lane := range []string{"METRICS_FETCH", "CLAIM_VALIDATE", "CLAIM_FINALIZE"} {
		v.SetDefault("QUEUE."+lane+".CONCURRENCY", 5)
		v.SetDefault("QUEUE."+lane+".MAX_ATTEMPTS", 0)
		v.SetDefault("QUEUE."+lane+".TIMEOUT", 0)
	}
	v.SetDefault("QUEUE.MAX_ATTEMPTS", 3)
	v.SetDefault("QUEUE.TIMEOUT", 2*time.Minute)
	v.SetDefault("QUEUE.BACKOFF_BASE", 5*time.Second)
	v.SetDefault("QUEUE.BACKOFF_MAX", 5*time.Minute)

	v.SetDefault("SOLANA.RPC_URL", "https://api.devnet.solana.com")
	v.SetDefault("SOLANA.PROGRAM_ID", "")
	v.SetDefault("SOLANA.COMMITMENT", "confirmed")
	v.SetDefault("SOLANA.ORACLE_PRIVATE_KEY", "")

	v.SetDefault("TWITTER.BASE_URL", "https://api.twitter.com")
	v.SetDefault("TWITTER.BEARER_TOKEN", "")
	v.SetDefault("TWITTER.RPS", 1)
	v.SetDefault("TWITTER.TIMEOUT", 10*time.Second)
}

// Load reads config.yaml from the working directory (when present) and
// overlays the environment on top of the defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType(configType)
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func LoadConfig(p Params) *Config {
	cfg, err := Load()
	if err != nil {
		zap.L().Error("failed to load config", zap.Error(err))
		os.Exit(1)
	}

	if p.Vault != nil {
		// START - Vault
		ctx := context.Background()

		zap.L().Info("Starting Get Secrets", zap.String("path", cfg.AppEnv))
		secret, err := p.Vault.Secrets.KvV2Read(ctx, cfg.AppEnv, vault.WithMountPath("secret"))
		if err != nil {
			zap.L().Error("failed get secret from vault", zap.Error(err))
			os.Exit(1)
		}
		zap.L().Info("Success Get Secret")

		applySecrets(cfg, secret.Data.Data)
		// END - Vault
	}

	return cfg
}

// applySecrets overlays non-empty vault values onto cfg.
func applySecrets(cfg *Config, data map[string]interface{}) {
	get := func(key, fallback string) string {
		if val, ok := data[key].(string); ok && val != "" {
			return val
		}
		return fallback
	}

	cfg.Database.User = get("postgres_user", cfg.Database.User)
	cfg.Database.Password = get("postgres_password", cfg.Database.Password)
	cfg.Redis.Password = get("redis_password", cfg.Redis.Password)
	cfg.Solana.OraclePrivateKey = get("oracle_private_key", cfg.Solana.OraclePrivateKey)
	cfg.Twitter.BearerToken = get("twitter_bearer_token", cfg.Twitter.BearerToken)
}
