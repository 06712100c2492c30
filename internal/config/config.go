package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

const (
	GallerySourceLocal = "local"
	GallerySourceHTTP  = "http"
	GallerySourceS3    = "s3"
)

// S3Config 描述 S3 兼容存储中的 memes 根目录。
type S3Config struct {
	Bucket          string `envconfig:"S3_BUCKET"`
	Region          string `envconfig:"S3_REGION" default:"us-east-1"`
	Endpoint        string `envconfig:"S3_ENDPOINT"`
	Prefix          string `envconfig:"S3_PREFIX" default:"memes"`
	PublicBaseURL   string `envconfig:"S3_PUBLIC_BASE_URL"`
	AccessKeyID     string `envconfig:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `envconfig:"S3_USE_PATH_STYLE" default:"true"`
}

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr        string `envconfig:"LISTEN_ADDR"`
	Port              string `envconfig:"PORT" default:"8080"`
	DatabasePath      string `envconfig:"DATABASE_PATH" default:"memecal.db"`
	SessionSecret     string `envconfig:"SESSION_SECRET" default:"memecal-dev-secret"`
	GinMode           string `envconfig:"GIN_MODE" default:"release"`
	LogLevel          string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat         string `envconfig:"LOG_FORMAT" default:"console"`
	SuperRootUserName string `envconfig:"SUPER_ROOT_USER_NAME"`
	SuperRootPassword string `envconfig:"SUPER_ROOT_PASSWORD"`
	ContributeURL     string `envconfig:"CONTRIBUTE_URL" default:"https://github.com/urielsalis/july-meme-calendar#contribuir-memes"`

	// TargetYear 为 0 时在启动时取当前年份。
	TargetYear  int    `envconfig:"TARGET_YEAR"`
	TargetMonth int    `envconfig:"TARGET_MONTH" default:"7"`
	Timezone    string `envconfig:"TIMEZONE" default:"UTC"`

	GallerySource    string        `envconfig:"GALLERY_SOURCE" default:"local"`
	MemesDir         string        `envconfig:"MEMES_DIR" default:"web/static/memes"`
	MemesURLPath     string        `envconfig:"MEMES_URL_PATH" default:"/memes"`
	GalleryBaseURL   string        `envconfig:"GALLERY_BASE_URL"`
	ProbeConcurrency int           `envconfig:"PROBE_CONCURRENCY" default:"4"`
	HTTPTimeout      time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`

	S3 S3Config
}

// Load 读取 .env（若存在）与环境变量，并为缺失项提供默认值。
func Load() (AppConfig, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded, using process environment")
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("process environment: %w", err)
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func (c *AppConfig) normalize() {
	c.Port = strings.TrimSpace(c.Port)
	c.ListenAddr = strings.TrimSpace(c.ListenAddr)
	if c.ListenAddr == "" {
		c.ListenAddr = fmt.Sprintf(":%s", c.Port)
	}
	c.GallerySource = strings.ToLower(strings.TrimSpace(c.GallerySource))
	c.MemesURLPath = strings.TrimSpace(c.MemesURLPath)
	c.GalleryBaseURL = strings.TrimRight(strings.TrimSpace(c.GalleryBaseURL), "/")
	c.SuperRootUserName = strings.TrimSpace(c.SuperRootUserName)
	c.SuperRootPassword = strings.TrimSpace(c.SuperRootPassword)
	if c.ProbeConcurrency <= 0 {
		c.ProbeConcurrency = 1
	}
}

func (c AppConfig) validate() error {
	if c.TargetMonth < 1 || c.TargetMonth > 12 {
		return fmt.Errorf("TARGET_MONTH must be between 1 and 12, got %d", c.TargetMonth)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}

	switch c.GallerySource {
	case GallerySourceLocal:
	case GallerySourceHTTP:
		if c.GalleryBaseURL == "" {
			return fmt.Errorf("GALLERY_BASE_URL is required for the http gallery source")
		}
	case GallerySourceS3:
		if strings.TrimSpace(c.S3.Bucket) == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 gallery source")
		}
	default:
		return fmt.Errorf("unsupported GALLERY_SOURCE %q", c.GallerySource)
	}
	return nil
}

// Location 返回配置的时区，非法值在 Load 阶段已被拒绝。
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ResolvedTargetYear 在未显式配置年份时使用 now 所在年份。
func (c AppConfig) ResolvedTargetYear(now time.Time) int {
	if c.TargetYear > 0 {
		return c.TargetYear
	}
	return now.In(c.Location()).Year()
}
