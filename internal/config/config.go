package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the root configuration tree.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Wallet   WalletConfig   `mapstructure:"wallet"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port     int   `mapstructure:"port"`
	WorkerID int64 `mapstructure:"worker_id"`
}

type LogConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	GroupID string           `mapstructure:"group_id"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	ExpiredAuction string `mapstructure:"expired_auction"`
	TransactionFee string `mapstructure:"transaction_fee"`
}

type LedgerConfig struct {
	RPCURL         string          `mapstructure:"rpc_url"`
	ChainID        int64           `mapstructure:"chain_id"`
	TreasuryKey    string          `mapstructure:"treasury_key"`
	InitialBalance string          `mapstructure:"initial_balance"`
	Contracts      ContractsConfig `mapstructure:"contracts"`
}

// ContractsConfig holds the hex addresses of the four marketplace contracts.
type ContractsConfig struct {
	NFT         string `mapstructure:"nft"`
	Token       string `mapstructure:"token"`
	Marketplace string `mapstructure:"marketplace"`
	Auction     string `mapstructure:"auction"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type WalletConfig struct {
	Secret string `mapstructure:"secret"`
}

type BusinessConfig struct {
	MaxRetryCount  int           `mapstructure:"max_retry_count"`
	SweepBatchSize int           `mapstructure:"sweep_batch_size"`
	SweepCron      string        `mapstructure:"sweep_cron"`
	FeeCron        string        `mapstructure:"fee_cron"`
	DefaultGasFee  string        `mapstructure:"default_gas_fee"`
	FeeCacheTTL    time.Duration `mapstructure:"fee_cache_ttl"`
}

var GlobalConfig *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.worker_id", 1)
	v.SetDefault("mysql.max_open_conns", 50)
	v.SetDefault("mysql.max_idle_conns", 10)
	v.SetDefault("kafka.group_id", "realestate-worker")
	v.SetDefault("kafka.topic.expired_auction", "update_expired_offer")
	v.SetDefault("kafka.topic.transaction_fee", "TransactionFeeUpdate")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("business.max_retry_count", 5)
	v.SetDefault("business.sweep_batch_size", 20)
	v.SetDefault("business.sweep_cron", "*/15 * * * * *")
	v.SetDefault("business.fee_cron", "*/15 * * * * *")
	v.SetDefault("business.default_gas_fee", "1.072")
	v.SetDefault("business.fee_cache_ttl", 5*time.Hour)
}

// LoadConfig reads the yaml file at configPath. Values from a .env file and
// the process environment override it (ledger.rpc_url <- LEDGER_RPC_URL).
func LoadConfig(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	GlobalConfig = cfg
	return cfg, nil
}

// Validate checks the settings the process cannot start without.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Wallet.Secret == "" {
		return fmt.Errorf("wallet.secret is required")
	}
	if c.Ledger.RPCURL == "" {
		return fmt.Errorf("ledger.rpc_url is required")
	}
	return nil
}
