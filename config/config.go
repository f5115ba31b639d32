package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置（config.yaml + 环境变量覆盖）
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Outbox     OutboxConfig     `mapstructure:"outbox"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Cloudinary CloudinaryConfig `mapstructure:"cloudinary"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"` // debug / release
}

// OutboxConfig 离线外发队列配置
type OutboxConfig struct {
	// Path 本地 SQLite 文件；:memory: 仅用于测试
	Path string `mapstructure:"path"`
	// DrainInterval 连通性探测与自动 drain 的周期
	DrainInterval time.Duration `mapstructure:"drain_interval"`
	// ProbeAddr 连通性探测目标（host:port）
	ProbeAddr string `mapstructure:"probe_addr"`
}

// DatabaseConfig 文档库连接（sqlite 文件或 postgres DSN）
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CloudinaryConfig struct {
	CloudName string `mapstructure:"cloud_name"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	Folder    string `mapstructure:"folder"`
	// UploadURL 覆盖上传地址（测试用）；为空时按 cloud_name 拼装
	UploadURL string `mapstructure:"upload_url"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type TelemetryConfig struct {
	SentryDSN    string `mapstructure:"sentry_dsn"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
}

// Load 读取配置：./config.yaml（可缺省）+ ECOLINK_ 前缀环境变量
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("ECOLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 配置文件缺省时允许仅用默认值 + 环境变量
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("outbox.path", "ecolink_outbox.db")
	v.SetDefault("outbox.drain_interval", 15*time.Second)
	v.SetDefault("outbox.probe_addr", "1.1.1.1:443")
	v.SetDefault("database.dsn", "ecolink.db")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cloudinary.folder", "ecolink/acciones")
	v.SetDefault("jwt.ttl", 24*time.Hour)
	v.SetDefault("telemetry.service_name", "ecolink")
}
