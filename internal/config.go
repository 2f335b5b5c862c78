package internal

import "time"

// Config is loaded from the environment. ALLOWED_ORIGIN accepts "*" to
// skip the origin check, otherwise it must match the Origin header of
// upgrading clients exactly.
type Config struct {
	Host                 string        `env:"HOST,required=true"`
	Port                 int           `env:"PORT,required=true"`
	AllowedOrigin        string        `env:"ALLOWED_ORIGIN,required=true"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,required=true"`
	MaxPayloadBytes      int64         `env:"MAX_PAYLOAD_BYTES,required=true"`
	LimitMessages        *int          `env:"LIMIT_MESSAGES"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,required=true"`
	LogLevel             string        `env:"LOG_LEVEL,required=true"`
}
