package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/mohammed-shakir/wcs-downloader/internal/core/wcserr"
)

const (
	DefaultProviderClass = "TileStache.Goodies.Providers.GDAL:Provider"
	DefaultCacheName     = "Test"
)

type CacheCfg struct {
	RedisAddr       string   `toml:"redis_addr"`
	CapabilitiesTTL Duration `toml:"capabilities_ttl"`
	LRUSize         int      `toml:"lru_size"`
}

type EventsCfg struct {
	Brokers string `toml:"kafka_brokers"`
	Topic   string `toml:"kafka_topic"`
	H3Res   int    `toml:"h3_res"`
}

type Config struct {
	LogLevel      string   `toml:"log_level"`
	LogConsole    bool     `toml:"log_console"`
	HTTPTimeout   Duration `toml:"http_timeout"`
	HeaderTimeout Duration `toml:"header_timeout"`
	RequestDelay  Duration `toml:"request_delay"`
	OutputPath    string   `toml:"output_path"`
	ConfigPath    string   `toml:"config_path"`
	Substitute    []string `toml:"substitute"`
	Maskband      *int     `toml:"maskband"`
	CacheName     string   `toml:"cache_name"`
	ProviderClass string   `toml:"provider_class"`
	MetricsFile   string   `toml:"metrics_file"`

	Cache  CacheCfg  `toml:"cache"`
	Events EventsCfg `toml:"events"`
}

// Duration decodes TOML strings such as "1s" or "10m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func Default() Config {
	return Config{
		LogLevel:      "info",
		LogConsole:    true,
		RequestDelay:  Duration{time.Second},
		OutputPath:    "images",
		ConfigPath:    "config.json",
		CacheName:     DefaultCacheName,
		ProviderClass: DefaultProviderClass,
		Cache: CacheCfg{
			CapabilitiesTTL: Duration{10 * time.Minute},
			LRUSize:         16,
		},
		Events: EventsCfg{
			Topic: "coverage-updates",
			H3Res: 8,
		},
	}
}

// Load reads the optional TOML file at path, then applies the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, wcserr.Wrapf(wcserr.ErrConfig, err, "read config file %s", path)
		}
		if undec := md.Undecoded(); len(undec) > 0 {
			keys := make([]string, 0, len(undec))
			for _, k := range undec {
				keys = append(keys, k.String())
			}
			return Config{}, wcserr.Errorf(wcserr.ErrConfig, "config file %s: unknown keys %s", path, strings.Join(keys, ", "))
		}
	}
	applyEnv(&cfg)
	if cfg.Events.H3Res < 0 || cfg.Events.H3Res > 15 {
		return Config{}, wcserr.Errorf(wcserr.ErrConfig, "h3 resolution %d out of range 0..15", cfg.Events.H3Res)
	}
	return cfg, nil
}

// KafkaBrokers splits the comma separated broker list.
func (c Config) KafkaBrokers() []string {
	var out []string
	for b := range strings.SplitSeq(c.Events.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func applyEnv(cfg *Config) {
	cfg.LogLevel = getenv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogConsole = getbool("LOG_CONSOLE", cfg.LogConsole)
	cfg.HTTPTimeout.Duration = getduration("WCS_HTTP_TIMEOUT", cfg.HTTPTimeout.Duration)
	cfg.HeaderTimeout.Duration = getduration("WCS_HEADER_TIMEOUT", cfg.HeaderTimeout.Duration)
	cfg.RequestDelay.Duration = getduration("WCS_REQUEST_DELAY", cfg.RequestDelay.Duration)
	cfg.CacheName = getenv("WCS_CACHE_NAME", cfg.CacheName)
	cfg.ProviderClass = getenv("WCS_PROVIDER_CLASS", cfg.ProviderClass)
	cfg.MetricsFile = getenv("METRICS_FILE", cfg.MetricsFile)

	cfg.Cache.RedisAddr = getenv("REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.CapabilitiesTTL.Duration = getduration("CAPABILITIES_TTL", cfg.Cache.CapabilitiesTTL.Duration)
	cfg.Cache.LRUSize = getint("CAPABILITIES_LRU_SIZE", cfg.Cache.LRUSize)

	cfg.Events.Brokers = getenv("KAFKA_BROKERS", cfg.Events.Brokers)
	cfg.Events.Topic = getenv("KAFKA_TOPIC", cfg.Events.Topic)
	cfg.Events.H3Res = getint("H3_RES", cfg.Events.H3Res)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
