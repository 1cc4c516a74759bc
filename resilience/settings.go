package resilience

import (
	"time"

	"github.com/MrEdHardy/schleuben/validation"
)

// Defaults applied when a setting is missing or out of range.
const (
	DefaultMaxRetryCount              uint    = 3
	DefaultMaxRetryDelay                      = 5 * time.Minute
	DefaultCircuitBreakerFailureRatio float64 = 0.2
	DefaultRequestsPerSecond          uint    = 10

	DefaultBaseDelay         = 2 * time.Second
	DefaultAttemptTimeout    = 30 * time.Second
	DefaultBreakDuration     = 10 * time.Second
	DefaultMinimumThroughput = 10
	samplingPerRetry         = 30 * time.Second
)

// Settings are the four externally configured knobs of a pipeline.
type Settings struct {
	MaxRetryCount              uint          `yaml:"max_retry_count" mapstructure:"max_retry_count" validate:"gte=1"`
	MaxRetryDelay              time.Duration `yaml:"max_retry_delay" mapstructure:"max_retry_delay" validate:"gt=0"`
	CircuitBreakerFailureRatio float64       `yaml:"circuit_breaker_failure_ratio" mapstructure:"circuit_breaker_failure_ratio" validate:"gt=0,lte=1"`
	RequestsPerSecond          uint          `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gte=1"`
}

// DefaultSettings returns 3 retries, 5 minute max delay, 0.2 failure ratio
// and 10 requests per second.
func DefaultSettings() Settings {
	return Settings{
		MaxRetryCount:              DefaultMaxRetryCount,
		MaxRetryDelay:              DefaultMaxRetryDelay,
		CircuitBreakerFailureRatio: DefaultCircuitBreakerFailureRatio,
		RequestsPerSecond:          DefaultRequestsPerSecond,
	}
}

// ApplyDefaults replaces zero or out-of-range values with the defaults.
func (s *Settings) ApplyDefaults() {
	if s.MaxRetryCount == 0 {
		s.MaxRetryCount = DefaultMaxRetryCount
	}
	if s.MaxRetryDelay <= 0 {
		s.MaxRetryDelay = DefaultMaxRetryDelay
	}
	if s.CircuitBreakerFailureRatio <= 0 || s.CircuitBreakerFailureRatio > 1 {
		s.CircuitBreakerFailureRatio = DefaultCircuitBreakerFailureRatio
	}
	if s.RequestsPerSecond == 0 {
		s.RequestsPerSecond = DefaultRequestsPerSecond
	}
}

// Validate checks the settings ranges.
func (s *Settings) Validate() error {
	return validation.Validate(s)
}

// SamplingDuration is the breaker's rolling window: maxRetryCount × 30s.
func (s Settings) SamplingDuration() time.Duration {
	return time.Duration(max(s.MaxRetryCount, 1)) * samplingPerRetry
}
