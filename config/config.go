package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/viper"
)

// DefaultProgramID is the devnet deployment of the tip_jar program.
const DefaultProgramID = "HGbtQGMTCfXsAB9HPo26EoGYCp6HVvsgo5HWd1vJT3Bm"

type Config struct {
	Server struct {
		Host       string `mapstructure:"host"`
		Port       int64  `mapstructure:"port"`
		JWTSecret  string `mapstructure:"jwt_secret"`
		WalletsDir string `mapstructure:"wallets_dir"`
	} `mapstructure:"server"`

	Solana struct {
		RPCEndpoint    string        `mapstructure:"rpc_endpoint"`
		ProgramID      string        `mapstructure:"program_id"`
		IDLFile        string        `mapstructure:"idl_file"`
		Keypair        string        `mapstructure:"keypair"`
		ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`
		PollInterval   time.Duration `mapstructure:"poll_interval"`
	} `mapstructure:"solana"`

	Redis struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Database struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"database"`

	BlockStorage struct {
		Host      string `mapstructure:"host"`
		Region    string `mapstructure:"region"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret"`
		Bucket    string `mapstructure:"bucket"`
		LocalDir  string `mapstructure:"local_dir"`
	} `mapstructure:"block_storage"`

	Datadog struct {
		Host string `mapstructure:"host"`
		Port string `mapstructure:"port"`
	} `mapstructure:"datadog"`
}

// RedisAddr returns host:port of the redis instance.
func (c Config) RedisAddr() string {
	return c.Redis.Host + ":" + c.Redis.Port
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.wallets_dir", "wallets")

	v.SetDefault("solana.rpc_endpoint", rpc.DevNet_RPC)
	v.SetDefault("solana.program_id", DefaultProgramID)
	v.SetDefault("solana.idl_file", "")
	v.SetDefault("solana.keypair", "")
	v.SetDefault("solana.confirm_timeout", 2*time.Minute)
	v.SetDefault("solana.poll_interval", time.Second)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.user", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("database.dsn", "")

	v.SetDefault("block_storage.host", "")
	v.SetDefault("block_storage.region", "us-east-1")
	v.SetDefault("block_storage.access_key", "")
	v.SetDefault("block_storage.secret", "")
	v.SetDefault("block_storage.bucket", "")
	v.SetDefault("block_storage.local_dir", ".")

	v.SetDefault("datadog.host", "")
	v.SetDefault("datadog.port", "8125")
}

// ReadConfig loads <configName>.yaml from the given search paths (the
// working directory when none are given). A missing file is not an error:
// defaults and TIPJAR_* environment variables still apply.
func ReadConfig(configName string, paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix("tipjar")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("fail to read config file, err: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, err: %w", err)
	}
	return &cfg, nil
}
