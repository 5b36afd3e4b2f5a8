package gotrue

import "time"

// Config points the client at a Supabase project.
type Config struct {
	URL       string `env:"SUPABASE_URL,required"`
	AnonKey   string `env:"SUPABASE_ANON_KEY,required"`
	JWTSecret string `env:"SUPABASE_JWT_SECRET"`

	HTTPTimeout     time.Duration `env:"AUTH_HTTP_TIMEOUT" envDefault:"10s"`
	RefreshInterval time.Duration `env:"AUTH_REFRESH_INTERVAL" envDefault:"30s"`
	RefreshMargin   time.Duration `env:"AUTH_REFRESH_MARGIN" envDefault:"90s"`
	StorageKey      string        `env:"AUTH_STORAGE_KEY" envDefault:"fittrack:auth:session"`
}
