package config

import (
	"errors"
	"os"
	"strconv"
)

type Config struct {
	Port                  string
	DatabaseDSN           string
	HostTokenPepper       string
	WebBaseURL            string
	Env                   string
	PresenceWindowSeconds int
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func Load() Config {
	return Config{
		Port:                  getenv("APP_PORT", "8080"),
		DatabaseDSN:           getenv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=flashvote port=5432 sslmode=disable TimeZone=UTC"),
		HostTokenPepper:       os.Getenv("HOST_TOKEN_PEPPER"),
		WebBaseURL:            getenv("WEB_BASE_URL", "http://127.0.0.1:5173"),
		Env:                   getenv("APP_ENV", "dev"),
		PresenceWindowSeconds: getenvInt("PRESENCE_WINDOW_SECONDS", 30),
	}
}

// Validate 在启动时执行。pepper 缺失属于致命配置错误，进程必须拒绝启动，
// 绝不能降级成"跳过校验继续服务"。
func Validate(cfg Config) error {
	if cfg.Port == "" {
		return errors.New("APP_PORT is required")
	}
	if cfg.DatabaseDSN == "" {
		return errors.New("DATABASE_DSN is required")
	}
	if cfg.HostTokenPepper == "" {
		return errors.New("HOST_TOKEN_PEPPER is required")
	}
	if cfg.WebBaseURL == "" {
		return errors.New("WEB_BASE_URL is required")
	}
	return nil
}
