package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port      int    `env:"PORT"       envDefault:"8080"`
	OutputDir string `env:"OUTPUT_DIR" envDefault:"./frames"`
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`

	FFmpegPath  string `env:"FFMPEG_PATH"  envDefault:"ffmpeg"`
	FFprobePath string `env:"FFPROBE_PATH" envDefault:"ffprobe"`

	SampleFPS      float64 `env:"SAMPLE_FPS"      envDefault:"1"`
	KeyframeRate   float64 `env:"KEYFRAME_RATE"   envDefault:"1"`
	SceneThreshold float64 `env:"SCENE_THRESHOLD" envDefault:"0.4"`

	EndpointURL    string        `env:"ENDPOINT_URL"    envDefault:"http://localhost:1234/v1/chat/completions"`
	EndpointAPIKey string        `env:"ENDPOINT_API_KEY"`
	Model          string        `env:"MODEL"           envDefault:"qwen2.5-vl-7b-instruct"`
	Temperature    float64       `env:"TEMPERATURE"     envDefault:"0.3"`
	MaxTokens      int           `env:"MAX_TOKENS"      envDefault:"2048"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"120s"`

	RetryAttempts  int           `env:"RETRY_ATTEMPTS"   envDefault:"1"`
	RetryBaseDelay time.Duration `env:"RETRY_BASE_DELAY" envDefault:"500ms"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
