package domain

import (
	"context"
)

// CertificateValidator runs the rule chains against one certificate
type CertificateValidator interface {
	Validate(ctx context.Context, req *ValidationRequest) (*ValidationResult, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetCacheConfig() *CacheConfig
	GetRateLimitConfig() *RateLimitConfig
	Validate() error
}
