package core

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/quka-ai/livetable/pkg/config"
)

func MustLoadBaseConfig(path string) CoreConfig {
	if path == "" {
		return LoadBaseConfigFromENV()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	conf := &CoreConfig{}
	conf.SetConfigBytes(raw)

	if err = toml.Unmarshal(raw, conf); err != nil {
		panic(err)
	}
	conf.ApplyDefaults()

	return *conf
}

func (c CoreConfig) LoadCustomConfig(cfg any) error {
	if len(c.bytes) == 0 {
		return nil
	}
	if err := toml.Unmarshal(c.bytes, cfg); err != nil {
		return err
	}
	return nil
}

func LoadBaseConfigFromENV() CoreConfig {
	var c CoreConfig
	c.FromENV()
	c.ApplyDefaults()
	return c
}

type CoreConfig struct {
	Addr     string         `toml:"addr"`
	Log      Log            `toml:"log"`
	Storage  StorageConfig  `toml:"storage"`
	Postgres PGConfig       `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	Sync     SyncConfig     `toml:"sync"`
	Identity IdentityConfig `toml:"identity"`

	bytes []byte `toml:"-"`
}

func (c *CoreConfig) SetConfigBytes(raw []byte) {
	c.bytes = raw
}

const (
	STORAGE_DRIVER_POSTGRES = "postgres"
	STORAGE_DRIVER_MEMORY   = "memory"

	FANOUT_MODE_SINGLE      = "single"
	FANOUT_MODE_DISTRIBUTED = "distributed"

	IDENTITY_MODE_HEADER = "header"
	IDENTITY_MODE_JWT    = "jwt"
)

type StorageConfig struct {
	Driver string `toml:"driver"` // postgres | memory
}

// SyncConfig 协同通道相关配置，时间单位为秒
type SyncConfig struct {
	FanoutMode        string   `toml:"fanout_mode"`        // single | distributed
	EchoToOriginator  bool     `toml:"echo_to_originator"` // 变更是否回显给发起者
	HeartbeatInterval int      `toml:"heartbeat_interval"` // websocket ping 间隔，默认 25
	SessionTTL        int      `toml:"session_ttl"`        // 会话多久未活跃视为失效，默认 120
	SweepSpec         string   `toml:"sweep_spec"`         // 失效会话清理周期，默认 @every 1m
	RateLimit         float64  `toml:"rate_limit"`         // 每个连接每秒允许的消息数，默认 50
	RateBurst         int      `toml:"rate_burst"`         // 默认 100
	SendBuffer        int      `toml:"send_buffer"`        // 每个连接的发送队列长度，默认 256
	MaxMessageSize    int64    `toml:"max_message_size"`   // 单条消息最大字节数，默认 1MB
	AllowedOrigins    []string `toml:"allowed_origins"`    // 为空时不校验 Origin
}

// FromENV 未设置的项保持零值，由 ApplyDefaults 补齐
func (s *SyncConfig) FromENV() {
	s.FanoutMode = os.Getenv("LIVETABLE_FANOUT_MODE")
	s.EchoToOriginator = config.GetEnvBool("LIVETABLE_ECHO_TO_ORIGINATOR", false)
	s.HeartbeatInterval = config.GetEnvInt("LIVETABLE_HEARTBEAT_INTERVAL", 0)
	s.SessionTTL = config.GetEnvInt("LIVETABLE_SESSION_TTL", 0)
	s.SweepSpec = os.Getenv("LIVETABLE_SWEEP_SPEC")
	s.RateLimit = config.GetEnvFloat("LIVETABLE_RATE_LIMIT", 0)
	s.RateBurst = config.GetEnvInt("LIVETABLE_RATE_BURST", 0)
	s.AllowedOrigins = config.GetEnvList("LIVETABLE_ALLOWED_ORIGINS")
}

func (s SyncConfig) Heartbeat() time.Duration {
	return time.Duration(s.HeartbeatInterval) * time.Second
}

func (s SyncConfig) TTL() time.Duration {
	return time.Duration(s.SessionTTL) * time.Second
}

type IdentityConfig struct {
	Mode          string `toml:"mode"`            // header | jwt
	Header        string `toml:"header"`          // header 模式下携带用户 id 的请求头
	PublicKeyPath string `toml:"public_key_path"` // jwt 模式下 RS256 公钥
}

func (c *CoreConfig) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = ":33033"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = STORAGE_DRIVER_POSTGRES
		if c.Postgres.DSN == "" {
			c.Storage.Driver = STORAGE_DRIVER_MEMORY
		}
	}
	if c.Sync.FanoutMode == "" {
		c.Sync.FanoutMode = FANOUT_MODE_SINGLE
	}
	if c.Sync.HeartbeatInterval <= 0 {
		c.Sync.HeartbeatInterval = 25
	}
	if c.Sync.SessionTTL <= 0 {
		c.Sync.SessionTTL = 120
	}
	if c.Sync.SweepSpec == "" {
		c.Sync.SweepSpec = "@every 1m"
	}
	if c.Sync.RateLimit <= 0 {
		c.Sync.RateLimit = 50
	}
	if c.Sync.RateBurst <= 0 {
		c.Sync.RateBurst = 100
	}
	if c.Sync.SendBuffer <= 0 {
		c.Sync.SendBuffer = 256
	}
	if c.Sync.MaxMessageSize <= 0 {
		c.Sync.MaxMessageSize = 1 << 20
	}
	if c.Identity.Mode == "" {
		c.Identity.Mode = IDENTITY_MODE_HEADER
	}
	if c.Identity.Header == "" {
		c.Identity.Header = "X-User-Id"
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "livetable"
	}
}

func (c *CoreConfig) FromENV() {
	c.Addr = os.Getenv("LIVETABLE_ADDRESS")
	c.Storage.Driver = os.Getenv("LIVETABLE_STORAGE_DRIVER")
	c.Identity.Mode = os.Getenv("LIVETABLE_IDENTITY_MODE")
	c.Identity.Header = os.Getenv("LIVETABLE_IDENTITY_HEADER")
	c.Identity.PublicKeyPath = os.Getenv("LIVETABLE_IDENTITY_PUBLIC_KEY")
	c.Sync.FromENV()
	c.Log.FromENV()
	c.Postgres.FromENV()
	c.Redis.FromENV()
}

type PGConfig struct {
	DSN string `toml:"dsn"`
}

func (m *PGConfig) FromENV() {
	m.DSN = os.Getenv("LIVETABLE_POSTGRESQL_DSN")
}

func (c PGConfig) FormatDSN() string {
	return c.DSN
}

type RedisConfig struct {
	// 单机模式配置
	Addr     string `toml:"addr"`     // Redis地址，格式: host:port
	Password string `toml:"password"` // Redis密码
	DB       int    `toml:"db"`       // Redis数据库索引 (0-15)

	// 集群模式配置
	Cluster       bool     `toml:"cluster"`        // 是否启用集群模式
	ClusterAddrs  []string `toml:"cluster_addrs"`  // 集群节点地址列表
	ClusterPasswd string   `toml:"cluster_passwd"` // 集群密码

	// 连接池配置
	PoolSize     int `toml:"pool_size"`      // 连接池大小，默认10
	MinIdleConns int `toml:"min_idle_conns"` // 最小空闲连接数，默认0
	MaxRetries   int `toml:"max_retries"`    // 最大重试次数，默认3
	DialTimeout  int `toml:"dial_timeout"`   // 连接超时(秒)，默认5
	ReadTimeout  int `toml:"read_timeout"`   // 读超时(秒)，默认3
	WriteTimeout int `toml:"write_timeout"`  // 写超时(秒)，默认3

	// 频道前缀，用于隔离不同环境/应用
	KeyPrefix string `toml:"key_prefix"`
}

func (r *RedisConfig) FromENV() {
	r.Addr = os.Getenv("LIVETABLE_REDIS_ADDR")
	r.Password = os.Getenv("LIVETABLE_REDIS_PASSWORD")
	r.DB = config.GetEnvInt("LIVETABLE_REDIS_DB", 0)
	r.KeyPrefix = os.Getenv("LIVETABLE_REDIS_KEY_PREFIX")
}

type Log struct {
	Level string `toml:"level"`
	Path  string `toml:"path"`
}

func (l *Log) FromENV() {
	l.Level = os.Getenv("LIVETABLE_LOG_LEVEL")
	l.Path = os.Getenv("LIVETABLE_LOG_PATH")
}

func (l *Log) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "info":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}
