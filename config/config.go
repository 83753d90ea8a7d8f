package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cwrk-planet/chat-service/internal/pg"

	"gopkg.in/yaml.v3"
)

const defaultPath = "./config/config.yaml"

type HTTP struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type GRPC struct {
	Addr        string        `yaml:"addr"`
	CallTimeout time.Duration `yaml:"callTimeout"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // chat-service
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	Level     string `yaml:"level"`     // debug|info|warn|error
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

// Postgres is optional: without a DSN rooms and users live in memory.
type Postgres struct {
	DSN               string        `yaml:"dsn"`
	MaxConns          int32         `yaml:"maxConns"`
	MinConns          int32         `yaml:"minConns"`
	MaxConnLifetime   time.Duration `yaml:"maxConnLifetime"`
	MaxConnIdleTime   time.Duration `yaml:"maxConnIdleTime"`
	HealthCheckPeriod time.Duration `yaml:"healthCheckPeriod"`
	ApplicationName   string        `yaml:"applicationName"`
}

func (p Postgres) Enabled() bool { return strings.TrimSpace(p.DSN) != "" }

func (p Postgres) ToPGConfig() pg.Config {
	return pg.Config{
		DSN:               p.DSN,
		MaxConns:          p.MaxConns,
		MinConns:          p.MinConns,
		MaxConnLifetime:   p.MaxConnLifetime,
		MaxConnIdleTime:   p.MaxConnIdleTime,
		HealthCheckPeriod: p.HealthCheckPeriod,
		ApplicationName:   p.ApplicationName,
	}
}

type Password struct {
	MinLength  int `yaml:"minLength"`
	BcryptCost int `yaml:"bcryptCost"`
}

func (p *Password) validate() error {
	if p.MinLength == 0 {
		p.MinLength = 6
	}
	if p.MinLength < 6 {
		return errors.New("security.password.minLength must be >= 6")
	}
	if p.BcryptCost != 0 && (p.BcryptCost < 4 || p.BcryptCost > 18) {
		return errors.New("security.password.bcryptCost must be in [4..18]")
	}
	return nil
}

type JWT struct {
	Alg            string        `yaml:"alg"`
	PrivateKeyPath string        `yaml:"privateKeyPath"`
	PublicKeyPath  string        `yaml:"publicKeyPath"`
	Issuer         string        `yaml:"issuer"`
	Audience       string        `yaml:"audience"`
	AccessTTL      time.Duration `yaml:"accessTTL"`
	ClockSkew      time.Duration `yaml:"clockSkew"`

	// GenerateKeys signs with a fresh in-memory key pair. Tokens do not survive a restart.
	GenerateKeys bool `yaml:"generateKeys"`
}

func (j *JWT) validate() error {
	if j.Alg == "" {
		j.Alg = "RS256"
	}
	if j.Alg != "RS256" {
		return fmt.Errorf("security.jwt.alg %q is not supported", j.Alg)
	}
	if !j.GenerateKeys && (j.PrivateKeyPath == "" || j.PublicKeyPath == "") {
		return errors.New("security.jwt.privateKeyPath and publicKeyPath are required unless generateKeys is set")
	}
	if j.Issuer == "" {
		j.Issuer = "chat-service"
	}
	if j.AccessTTL == 0 {
		j.AccessTTL = 24 * time.Hour
	}
	if j.AccessTTL < 0 {
		return errors.New("security.jwt.accessTTL must be > 0")
	}
	if j.ClockSkew < 0 || j.ClockSkew > time.Minute {
		return errors.New("security.jwt.clockSkew must be in [0..1m]")
	}
	return nil
}

type Security struct {
	Password Password `yaml:"password"`
	JWT      JWT      `yaml:"jwt"`
}

const (
	HistoryFile     = "file"
	HistoryRedis    = "redis"
	HistoryPostgres = "postgres"
)

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type History struct {
	Backend string `yaml:"backend"` // file|redis|postgres
	Dir     string `yaml:"dir"`
	Redis   Redis  `yaml:"redis"`
}

type WS struct {
	PingEvery      time.Duration `yaml:"pingEvery"`
	WriteTimeout   time.Duration `yaml:"writeTimeout"`
	SendBuffer     int           `yaml:"sendBuffer"`
	MaxMessageSize int64         `yaml:"maxMessageSize"`
}

type Chat struct {
	AdminUsername string        `yaml:"adminUsername"`
	EvictOnDelete *bool         `yaml:"evictOnDelete"`
	MaxMessageLen int           `yaml:"maxMessageLen"`
	EventTimeout  time.Duration `yaml:"eventTimeout"`
	History       History       `yaml:"history"`
	WS            WS            `yaml:"ws"`
}

// Evict reports whether deleting a room clears its live state. Defaults to true.
func (c Chat) Evict() bool { return c.EvictOnDelete == nil || *c.EvictOnDelete }

type CORS struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type Config struct {
	HTTP     HTTP     `yaml:"http"`
	GRPC     GRPC     `yaml:"grpc"`
	Logging  Logging  `yaml:"logging"`
	Postgres Postgres `yaml:"postgres"`
	Security Security `yaml:"security"`
	Chat     Chat     `yaml:"chat"`
	CORS     CORS     `yaml:"cors"`
}

// LoadConfig reads the file named by CONFIG_PATH, or ./config/config.yaml.
func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultPath
	}
	return Load(path)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if err := c.Security.Password.validate(); err != nil {
		return err
	}
	if err := c.Security.JWT.validate(); err != nil {
		return err
	}

	switch c.Chat.History.Backend {
	case "":
		c.Chat.History.Backend = HistoryFile
		fallthrough
	case HistoryFile:
		if c.Chat.History.Dir == "" {
			c.Chat.History.Dir = "./data/history"
		}
	case HistoryRedis:
		if c.Chat.History.Redis.Addr == "" {
			return errors.New("chat.history.redis.addr is required for the redis backend")
		}
	case HistoryPostgres:
		if !c.Postgres.Enabled() {
			return errors.New("postgres.dsn is required for the postgres history backend")
		}
	default:
		return fmt.Errorf("chat.history.backend %q is not supported", c.Chat.History.Backend)
	}

	// установка дефолтов, если значения не указаны
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 15 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 30 * time.Second
	}
	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = 60 * time.Second
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.Logging.Service == "" {
		c.Logging.Service = "chat-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Postgres.ApplicationName == "" {
		c.Postgres.ApplicationName = c.Logging.Service
	}
	if c.Chat.AdminUsername == "" {
		c.Chat.AdminUsername = "admin"
	}
	return nil
}
