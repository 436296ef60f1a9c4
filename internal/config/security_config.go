package config

type SecurityConfig interface {
	GetEnableRateLimiting() bool
	GetFormRatePerSecond() float64
	GetFormRateBurst() int
	GetTrustedProxies() []string
}

type Security struct {
	EnableRateLimiting bool    `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	FormRatePerSecond  float64 `env:"RATE_LIMIT_RPS" envDefault:"1"`
	FormRateBurst      int     `env:"RATE_LIMIT_BURST" envDefault:"5"`
	// IPs or CIDRs of reverse proxies allowed to set X-Forwarded-For.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

var _ SecurityConfig = Security{}

// GetEnableRateLimiting applies to login and register submissions only.
func (s Security) GetEnableRateLimiting() bool {
	return s.EnableRateLimiting
}

func (s Security) GetFormRatePerSecond() float64 {
	return s.FormRatePerSecond
}

func (s Security) GetFormRateBurst() int {
	return s.FormRateBurst
}

func (s Security) GetTrustedProxies() []string {
	return s.TrustedProxies
}
