package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pion/stun/v3"
	"github.com/spf13/viper"
)

// StunServer is forwarded to clients verbatim inside the iceservers push.
type StunServer struct {
	URL string `mapstructure:"url" json:"url"`
}

// TurnServer describes one TURN service the relay mints credentials for.
// Either url or urls may be set; AllURLs merges them.
type TurnServer struct {
	Secret         string   `mapstructure:"secret"`
	URL            string   `mapstructure:"url"`
	URLs           []string `mapstructure:"urls"`
	Expiry         int64    `mapstructure:"expiry"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (t TurnServer) AllURLs() []string {
	if len(t.URLs) > 0 {
		return t.URLs
	}
	if t.URL != "" {
		return []string{t.URL}
	}
	return nil
}

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`

	StunServers []StunServer `mapstructure:"stunservers"`
	TurnServers []TurnServer `mapstructure:"turnservers"`
	// TurnOrigins is the process-wide origin allow-list for vending TURN
	// credentials. Empty means every origin. Per-server allowed_origins
	// entries are folded into this list at load time; filtering is
	// all-or-nothing across all configured services.
	TurnOrigins []string `mapstructure:"turnorigins"`

	// RoomMaxClients caps every room; 0 disables the limit.
	RoomMaxClients int `mapstructure:"room_max_clients"`
}

func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8123)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("room_max_clients", 6)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	for _, t := range cfg.TurnServers {
		cfg.TurnOrigins = append(cfg.TurnOrigins, t.AllowedOrigins...)
	}
	return &cfg, nil
}

// validate rejects malformed ICE URIs at startup instead of handing them to
// clients that will fail much later in candidate gathering.
func (c *Config) validate() error {
	for _, s := range c.StunServers {
		if _, err := stun.ParseURI(s.URL); err != nil {
			return fmt.Errorf("bad stun server %q: %w", s.URL, err)
		}
	}
	for i, t := range c.TurnServers {
		if t.Secret == "" {
			return fmt.Errorf("turn server #%d has no secret", i)
		}
		urls := t.AllURLs()
		if len(urls) == 0 {
			return fmt.Errorf("turn server #%d has no url", i)
		}
		for _, u := range urls {
			if _, err := stun.ParseURI(u); err != nil {
				return fmt.Errorf("bad turn server %q: %w", u, err)
			}
		}
	}
	return nil
}
