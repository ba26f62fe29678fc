package config

import (
	"encoding/xml"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// RowStoreConfig 远程行存储（PostgREST 风格接口）
type RowStoreConfig struct {
	URL    string `xml:"url" env:"URL"`
	APIKey string `xml:"apikey" env:"APIKEY"`
	Table  string `xml:"table" env:"TABLE"`
}

func (r RowStoreConfig) Enabled() bool {
	return r.URL != "" && r.Table != ""
}

type RedisConfig struct {
	Addr     string `xml:"addr" env:"ADDR"`
	Password string `xml:"password" env:"PASSWORD"`
	DB       int    `xml:"db" env:"DB"`
}

type Config struct {
	XMLName    xml.Name `xml:"config"`
	MainRouter string   `xml:"MainRouter" env:"REALMMAP_LISTEN"`
	Driver     string   `xml:"driver" env:"REALMMAP_DB_DRIVER"`
	Dbname     string   `xml:"dbname" env:"REALMMAP_DB_NAME"`
	Host       string   `xml:"host" env:"REALMMAP_DB_HOST"`
	Port       string   `xml:"port" env:"REALMMAP_DB_PORT"`
	Username   string   `xml:"user" env:"REALMMAP_DB_USER"`
	Password   string   `xml:"password" env:"REALMMAP_DB_PASSWORD"`
	SqlitePath string   `xml:"sqlite" env:"REALMMAP_SQLITE"`
	DBLog      bool     `xml:"dblog" env:"REALMMAP_DB_LOG"`
	DefaultMap string   `xml:"defaultMap" env:"REALMMAP_DEFAULT_MAP"`

	CacheSize     int `xml:"cacheSize" env:"REALMMAP_CACHE_SIZE"`
	CacheTTL      int `xml:"cacheTTL" env:"REALMMAP_CACHE_TTL"`
	SessionTTL    int `xml:"sessionTTL" env:"REALMMAP_SESSION_TTL"`
	UploadLimitMB int `xml:"uploadLimit" env:"REALMMAP_UPLOAD_LIMIT"`

	RowStore RowStoreConfig `xml:"rowstore" envPrefix:"REALMMAP_ROWSTORE_"`
	Redis    RedisConfig    `xml:"redis" envPrefix:"REALMMAP_REDIS_"`
}

// Default 未配置项的默认值
func Default() *Config {
	return &Config{
		MainRouter:    ":8426",
		Driver:        "sqlite",
		Port:          "5432",
		SqlitePath:    "data/realmmap.db",
		CacheSize:     256,
		CacheTTL:      600,
		SessionTTL:    30,
		UploadLimitMB: 16,
	}
}

// Load 读取 config.xml，再用 .env 与环境变量覆盖
// 配置文件不存在时使用默认值
func Load(path string) (*Config, error) {
	cfg := Default()

	xmlFile, err := os.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Printf("配置文件 %s 不存在，使用默认配置", path)
	case err != nil:
		return nil, fmt.Errorf("open config: %w", err)
	default:
		defer xmlFile.Close()
		if err := xml.NewDecoder(xmlFile).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}

	_ = godotenv.Load(".env")
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.fillDefaults()
	return cfg, nil
}

func (c *Config) fillDefaults() {
	d := Default()
	if c.MainRouter == "" {
		c.MainRouter = d.MainRouter
	}
	if c.Driver == "" {
		c.Driver = d.Driver
	}
	if c.SqlitePath == "" {
		c.SqlitePath = d.SqlitePath
	}
	if c.CacheSize <= 0 {
		c.CacheSize = d.CacheSize
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = d.CacheTTL
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = d.SessionTTL
	}
	if c.UploadLimitMB <= 0 {
		c.UploadLimitMB = d.UploadLimitMB
	}
}

// DSN postgres 连接串
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC", c.Host, c.Username, c.Password, c.Dbname, c.Port)
}

func (c *Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

func (c *Config) SessionTTLDuration() time.Duration {
	return time.Duration(c.SessionTTL) * time.Minute
}

func (c *Config) UploadLimit() int64 {
	return int64(c.UploadLimitMB) << 20
}
