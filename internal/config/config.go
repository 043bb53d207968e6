package config

import (
	"os"
	"time"

	"github.com/go-yaml/yaml"
)

type Config struct {
	Server Server `yaml:"server"`
	Remote Remote `yaml:"remote"`
	Sync   Sync   `yaml:"sync"`
}

type Server struct {
	Addr          string `yaml:"addr"`
	SQLitePath    string `yaml:"sqlitePath"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`
	MemcachedAddr string `yaml:"memcachedAddr"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
}

type Remote struct {
	BaseURL        string `yaml:"baseURL"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

type Sync struct {
	MirrorIntervalSeconds int `yaml:"mirrorIntervalSeconds"`
	PushIntervalSeconds   int `yaml:"pushIntervalSeconds"`
	HistoryLimit          int `yaml:"historyLimit"`
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	config.applyDefaults()

	return config, nil
}

// Default returns a config usable without a file on disk.
func Default() Config {
	var config Config
	config.applyDefaults()
	return config
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Server.SQLitePath == "" {
		c.Server.SQLitePath = "edustake.db"
	}
	if c.Remote.TimeoutSeconds <= 0 {
		c.Remote.TimeoutSeconds = 3
	}
	if c.Sync.MirrorIntervalSeconds <= 0 {
		c.Sync.MirrorIntervalSeconds = 10
	}
	if c.Sync.PushIntervalSeconds <= 0 {
		c.Sync.PushIntervalSeconds = 30
	}
	if c.Sync.HistoryLimit <= 0 {
		c.Sync.HistoryLimit = 10
	}
}

func (r Remote) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

func (s Sync) MirrorInterval() time.Duration {
	return time.Duration(s.MirrorIntervalSeconds) * time.Second
}

func (s Sync) PushInterval() time.Duration {
	return time.Duration(s.PushIntervalSeconds) * time.Second
}
