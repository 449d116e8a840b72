package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type OpenAI struct {
	OpenAIAPIKey     string        `env:"OPENAI_API_KEY,required"`
	OpenAIModel      string        `yaml:"openai_model" env:"OPENAI_MODEL" env-default:"ernie-3.5-8k"`
	OpenAIBaseURL    string        `yaml:"open_ai_base_url" env:"OPENAI_BASE_URL" env-default:"https://qianfan.baidubce.com/v2"`
	ModelTemperature float32       `yaml:"model_temperature" env:"MODEL_TEMPERATURE" env-default:"1"`
	RequestTimeout   time.Duration `yaml:"request_timeout" env:"OPENAI_REQUEST_TIMEOUT" env-default:"10s"`
}

type Telegram struct {
	TelegramAPIToken    string  `env:"TELEGRAM_APITOKEN,required"`
	IsNotPublic         bool    `yaml:"is_not_public"`
	AllowedTelegramID   []int64 `env:"ALLOWED_TELEGRAM_ID" envSeparator:","`
	AdminTelegramIDList []int64 `env:"ADMIN_TELEGRAM_ID" envSeparator:","`
}

type Redis struct {
	// Endpoint left empty keeps every storage in memory.
	Endpoint string `yaml:"endpoint" env:"REDIS_ENDPOINT"`
}

type Pet struct {
	DecayInterval time.Duration `yaml:"decay_interval" env-default:"1m"`
}

type Buddy struct {
	SearchDelay time.Duration `yaml:"search_delay" env-default:"6s"`
}

type Config struct {
	OpenAI   OpenAI   `yaml:"openai"`
	Telegram Telegram `yaml:"telegram"`
	Redis    Redis    `yaml:"redis"`
	Pet      Pet      `yaml:"pet"`
	Buddy    Buddy    `yaml:"buddy"`
}

func LoadConfig(cfgPath string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(cfgPath, &cfg); err != nil {
		return nil, err
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
