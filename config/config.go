package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           int      `yaml:"port"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"server"`

	Database struct {
		URI string `yaml:"uri"`
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Gemini struct {
		ApiKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
	} `yaml:"gemini"`

	Openai struct {
		ApiKey             string `yaml:"apiKey"`
		BaseURL            string `yaml:"baseURL"`
		TranscriptionModel string `yaml:"transcriptionModel"`
		Language           string `yaml:"language"`
	} `yaml:"openai"`

	Transcription struct {
		StreamURL string `yaml:"streamURL"`
	} `yaml:"transcription"`

	Timer struct {
		QAAnswerSeconds int `yaml:"qaAnswerSeconds"`
		TickMillis      int `yaml:"tickMillis"`
	} `yaml:"timer"`

	RateLimit struct {
		Suggestions   int `yaml:"suggestions"`
		WindowSeconds int `yaml:"windowSeconds"`
	} `yaml:"rateLimit"`

	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
}

// LoadConfig reads the configuration file, applies environment overrides and
// fills in defaults. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnvAsInt("PORT", c.Server.Port)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = strings.Split(origins, ",")
	}
	c.Database.URI = getEnv("MONGO_URI", c.Database.URI)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Gemini.ApiKey = getEnv("GEMINI_API_KEY", c.Gemini.ApiKey)
	c.Openai.ApiKey = getEnv("OPENAI_API_KEY", c.Openai.ApiKey)
	c.Transcription.StreamURL = getEnv("TRANSCRIPTION_STREAM_URL", c.Transcription.StreamURL)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 1313
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.5-flash"
	}
	if c.Openai.BaseURL == "" {
		c.Openai.BaseURL = "https://api.openai.com/v1"
	}
	if c.Openai.TranscriptionModel == "" {
		c.Openai.TranscriptionModel = "whisper-1"
	}
	if c.Openai.Language == "" {
		c.Openai.Language = "zh"
	}
	if c.Timer.QAAnswerSeconds <= 0 {
		c.Timer.QAAnswerSeconds = 40
	}
	if c.Timer.TickMillis <= 0 {
		c.Timer.TickMillis = 1000
	}
	if c.RateLimit.Suggestions <= 0 {
		c.RateLimit.Suggestions = 5
	}
	if c.RateLimit.WindowSeconds <= 0 {
		c.RateLimit.WindowSeconds = 60
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
