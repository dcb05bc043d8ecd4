package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Rule struct {
	Tag    string   `yaml:"tag" json:"tag"`
	Weight int      `yaml:"weight" json:"weight"`
	Any    []string `yaml:"any" json:"any"`
}

// Schedule starts a workflow on a timer: the engine opens URL in a new tab
// and starts Workflow once the page has loaded.
type Schedule struct {
	Name     string `yaml:"name" json:"name"`
	Cron     string `yaml:"cron" json:"cron"`
	Workflow string `yaml:"workflow" json:"workflow"`
	URL      string `yaml:"url" json:"url"`
	MaxPages int    `yaml:"max_pages" json:"max_pages"`
	DelayMs  int    `yaml:"delay_ms" json:"delay_ms"`
}

type Config struct {
	App struct {
		Port    int    `yaml:"port" json:"port"`
		DataDir string `yaml:"data_dir" json:"data_dir"`
	} `yaml:"app" json:"app"`

	Backend struct {
		BaseURL        string  `yaml:"base_url" json:"base_url"`
		APIKey         string  `yaml:"api_key" json:"api_key,omitempty"`
		APIKeyHeader   string  `yaml:"api_key_header" json:"api_key_header"`
		UseKeyring     bool    `yaml:"use_keyring" json:"use_keyring"`
		TimeoutSeconds int     `yaml:"timeout_seconds" json:"timeout_seconds"`
		RatePerSec     float64 `yaml:"rate_per_sec" json:"rate_per_sec"`
		Burst          int     `yaml:"burst" json:"burst"`
	} `yaml:"backend" json:"backend"`

	State struct {
		Backend  string `yaml:"backend" json:"backend"` // sqlite | badger | redis | memory
		Path     string `yaml:"path" json:"path"`
		RedisURL string `yaml:"redis_url" json:"redis_url,omitempty"`
		TTLHours int    `yaml:"ttl_hours" json:"ttl_hours"`
	} `yaml:"state" json:"state"`

	Browser struct {
		Headless   bool     `yaml:"headless" json:"headless"`
		Channel    string   `yaml:"channel" json:"channel"`
		CookiesDir string   `yaml:"cookies_dir" json:"cookies_dir"`
		StartURLs  []string `yaml:"start_urls" json:"start_urls"`
		UserAgent  string   `yaml:"user_agent" json:"user_agent"`
	} `yaml:"browser" json:"browser"`

	Harvest struct {
		Sites          []string `yaml:"sites" json:"sites"`
		SettleMs       int      `yaml:"settle_ms" json:"settle_ms"`
		DelayMs        int      `yaml:"delay_ms" json:"delay_ms"`
		SkipDelayMs    int      `yaml:"skip_delay_ms" json:"skip_delay_ms"`
		MaxPages       int      `yaml:"max_pages" json:"max_pages"`
		FetchLimit     int      `yaml:"fetch_limit" json:"fetch_limit"`
		MonitorSeconds int      `yaml:"monitor_seconds" json:"monitor_seconds"`
	} `yaml:"harvest" json:"harvest"`

	Schedules []Schedule `yaml:"schedules" json:"schedules"`

	Notify struct {
		Telegram struct {
			Enabled bool   `yaml:"enabled" json:"enabled"`
			Token   string `yaml:"token" json:"token,omitempty"`
			ChatID  int64  `yaml:"chat_id" json:"chat_id"`
		} `yaml:"telegram" json:"telegram"`
		RedisChannel string `yaml:"redis_channel" json:"redis_channel"`
	} `yaml:"notify" json:"notify"`

	Skills struct {
		Rules []Rule `yaml:"rules" json:"rules"`
	} `yaml:"skills" json:"skills"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}
