package main

import (
	"github.com/dmitrymomot/fittrack/pkg/config"
	"github.com/dmitrymomot/fittrack/pkg/email"
	"github.com/dmitrymomot/fittrack/pkg/file"
	"github.com/dmitrymomot/fittrack/pkg/gotrue"
	"github.com/dmitrymomot/fittrack/pkg/httpserver"
	"github.com/dmitrymomot/fittrack/pkg/pg"
	"github.com/dmitrymomot/fittrack/pkg/ratelimiter"
	"github.com/dmitrymomot/fittrack/pkg/redis"
)

const (
	storageS3    = "s3"
	storageLocal = "local"
)

type appConfig struct {
	Env     string `env:"APP_ENV" envDefault:"development"`
	Name    string `env:"APP_NAME" envDefault:"GYMBROS"`
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"local"`
	UploadsDir    string `env:"UPLOADS_DIR" envDefault:"tmp/uploads"`

	SessionBufferSize int `env:"SESSION_BUFFER_SIZE" envDefault:"8"`
}

// settings nests every package Config; caarlos0/env walks nested structs.
type settings struct {
	App   appConfig
	HTTP  httpserver.Config
	PG    pg.Config
	Redis redis.Config
	Auth  gotrue.Config
	Email email.Config
	S3    file.S3Config

	SignIn ratelimiter.Config
}

func loadSettings() (settings, error) {
	var s settings
	if err := config.Load(&s); err != nil {
		return settings{}, err
	}
	return s, nil
}
