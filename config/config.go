package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Security SecurityConfig `mapstructure:"security"`
	Guild    GuildConfig    `mapstructure:"guild"`
}

type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	Debug    bool   `mapstructure:"debug"`
	AdminKey string `mapstructure:"admin_key"`
	// AdminIPs restricts the admin routes to these addresses or CIDR
	// prefixes. Empty allows any address holding the admin key.
	AdminIPs []string `mapstructure:"admin_ips"`
	NodeName string   `mapstructure:"node_name"` // defaults to the hostname
	// ShutdownTimeout bounds the graceful HTTP shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	NATSURL         string        `mapstructure:"nats_url"` // preferred pub/sub backend when set
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTLH        time.Duration `mapstructure:"jwt_ttl_h"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	// CommandRPS and CommandBurst limit guild commands per character.
	CommandRPS   float64 `mapstructure:"command_rps"`
	CommandBurst int     `mapstructure:"command_burst"`
	// AllowedOrigins lists the WebSocket/SSE origins that are permitted.
	// An empty slice allows all origins (useful for local development only).
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// GuildConfig holds the guild and guild bank limits.
type GuildConfig struct {
	MaxRanks       int      `mapstructure:"max_ranks"`
	MinRanks       int      `mapstructure:"min_ranks"`
	MaxBankTabs    int      `mapstructure:"max_bank_tabs"`
	BankSlots      int      `mapstructure:"bank_slots"`
	MaxMoney       uint64   `mapstructure:"max_money"`
	EventLogSize   int      `mapstructure:"event_log_size"`
	BankLogSize    int      `mapstructure:"bank_log_size"`
	NewsLogSize    int      `mapstructure:"news_log_size"`
	TabCosts       []uint64 `mapstructure:"tab_costs"`
	ResetHour      int      `mapstructure:"reset_hour"`
	WeeklyResetDay int      `mapstructure:"weekly_reset_day"` // time.Weekday
	ItemGUIDStart  int64    `mapstructure:"item_guid_start"`
	ItemGUIDMax    int64    `mapstructure:"item_guid_max"`
	InventoryBags  []int    `mapstructure:"inventory_bags"`
	// ResetCheck is how often the scheduler looks for a due reset.
	ResetCheck time.Duration `mapstructure:"reset_check"`
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration produced by the defaults alone.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/guild.db")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("security.jwt_ttl_h", "72h")
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)
	v.SetDefault("security.command_rps", 10)
	v.SetDefault("security.command_burst", 20)
	v.SetDefault("guild.max_ranks", 10)
	v.SetDefault("guild.min_ranks", 2)
	v.SetDefault("guild.max_bank_tabs", 8)
	v.SetDefault("guild.bank_slots", 98)
	v.SetDefault("guild.max_money", uint64(9999999999))
	v.SetDefault("guild.event_log_size", 100)
	v.SetDefault("guild.bank_log_size", 25)
	v.SetDefault("guild.news_log_size", 250)
	v.SetDefault("guild.tab_costs", []uint64{1000000, 2500000, 5000000, 10000000, 25000000, 50000000, 0, 0})
	v.SetDefault("guild.reset_hour", 6)
	v.SetDefault("guild.weekly_reset_day", int(time.Wednesday))
	v.SetDefault("guild.item_guid_start", 1)
	v.SetDefault("guild.item_guid_max", int64(1)<<40)
	v.SetDefault("guild.inventory_bags", []int{16, 0, 0, 0, 0})
	v.SetDefault("guild.reset_check", "1m")
}
