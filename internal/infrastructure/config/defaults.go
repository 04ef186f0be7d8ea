package config

import "time"

// SetDefaults fills in default values for any field left unset by the
// environment or config file.
func SetDefaults(cfg *Config) {
	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "invsync.db"
	}
	if cfg.Database.Pool.MaxOpen == 0 {
		cfg.Database.Pool.MaxOpen = 10
	}
	if cfg.Database.Pool.MaxIdle == 0 {
		cfg.Database.Pool.MaxIdle = 5
	}
	if cfg.Database.Pool.MaxLifetime == 0 {
		cfg.Database.Pool.MaxLifetime = 5 * time.Minute
	}

	if cfg.Batch.DefaultSystem == "" {
		cfg.Batch.DefaultSystem = "OPENCART"
	}
	if cfg.Batch.LockPath == "" {
		cfg.Batch.LockPath = "/tmp/invsync.lock"
	}
	if cfg.Batch.Timeout == 0 {
		cfg.Batch.Timeout = 15 * time.Minute
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	setRateLimitDefault(&cfg.Lazada.RateLimit, 5, 5)
	setRateLimitDefault(&cfg.Shopee.RateLimit, 10, 10)
	setRateLimitDefault(&cfg.TikTok.RateLimit, 5, 5)
	setRateLimitDefault(&cfg.Opencart.RateLimit, 5, 5)
	setRateLimitDefault(&cfg.WooCommerce.RateLimit, 10, 10)

	setTimeoutDefault(&cfg.Lazada.Timeout)
	setTimeoutDefault(&cfg.Shopee.Timeout)
	setTimeoutDefault(&cfg.TikTok.Timeout)
	setTimeoutDefault(&cfg.Opencart.Timeout)
	setTimeoutDefault(&cfg.WooCommerce.Timeout)
}

func setRateLimitDefault(r *RateLimitConfig, requests float64, burst int) {
	if r.Requests == 0 {
		r.Requests = requests
	}
	if r.Burst == 0 {
		r.Burst = burst
	}
}

func setTimeoutDefault(d *time.Duration) {
	if *d == 0 {
		*d = 30 * time.Second
	}
}
