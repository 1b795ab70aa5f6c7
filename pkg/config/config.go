package config

import "time"

// APIMode selects which server flavour the client talks to
type APIMode string

const (
	// APIModeChat authenticated deployment (/chat/..., room_id)
	APIModeChat APIMode = "chat"
	// APIModeLegacy open deployment (/api/..., room)
	APIModeLegacy APIMode = "legacy"
)

// JoinAck how a join_room is acknowledged
type JoinAck string

const (
	// JoinAckEcho wait for the server to echo user_joined / room_changed
	JoinAckEcho JoinAck = "echo"
	// JoinAckFireAndForget joined as soon as the emit succeeds
	JoinAckFireAndForget JoinAck = "fire_and_forget"
)

// StoreDriver credential store backend
type StoreDriver string

const (
	// StorePebble local on-disk store
	StorePebble StoreDriver = "pebble"
	// StoreRedis shared store
	StoreRedis StoreDriver = "redis"
)

// Client definition chat_client YAML structure
type Client struct {
	Server  ServerConfig  `mapstructure:"server"`
	Chat    ChatConfig    `mapstructure:"chat"`
	Store   StoreConfig   `mapstructure:"store"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Debug   bool          `mapstructure:"debug"`
}

// ServerConfig definition remote endpoints
type ServerConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	WSURL             string        `mapstructure:"ws_url"`
	APIMode           APIMode       `mapstructure:"api_mode"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	ReconnectInterval time.Duration `mapstructure:"reconnect_interval"`
}

// ChatConfig definition room sync tuning
type ChatConfig struct {
	DefaultRoom    string        `mapstructure:"default_room"`
	HistoryLimit   int           `mapstructure:"history_limit"`
	DedupCapacity  int           `mapstructure:"dedup_capacity"`
	TypingTimeout  time.Duration `mapstructure:"typing_timeout"`
	TypingThrottle time.Duration `mapstructure:"typing_throttle"`
	JoinTimeout    time.Duration `mapstructure:"join_timeout"`
	JoinAck        JoinAck       `mapstructure:"join_ack"`
}

// StoreConfig definition credential store
type StoreConfig struct {
	Driver    StoreDriver `mapstructure:"driver"`
	Path      string      `mapstructure:"path"`
	KeyPrefix string      `mapstructure:"key_prefix"`
	Redis     RedisConfig `mapstructure:"redis"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	Addr          string   `mapstructure:"addr"`
	Password      string   `mapstructure:"password"`
	MasterName    string   `mapstructure:"master_name"`
	SentinelAddrs []string `mapstructure:"sentinel_addrs"`
	RedisDB       int      `mapstructure:"redis_db"`

	RetryCount    int           `mapstructure:"retry_count"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// MetricsConfig definition metrics / debug listener, empty Addr disables it
type MetricsConfig struct {
	Addr  string `mapstructure:"addr"`
	Pprof bool   `mapstructure:"pprof"`
}

// ClientDefaults viper defaults for Client
func ClientDefaults() map[string]any {
	return map[string]any{
		"server.base_url":           "http://127.0.0.1:8000",
		"server.ws_url":             "ws://127.0.0.1:8000/ws",
		"server.api_mode":           string(APIModeChat),
		"server.request_timeout":    10 * time.Second,
		"server.reconnect_interval": 3 * time.Second,

		"chat.default_room":    "general",
		"chat.history_limit":   50,
		"chat.dedup_capacity":  256,
		"chat.typing_timeout":  600 * time.Millisecond,
		"chat.typing_throttle": 0,
		"chat.join_timeout":    5 * time.Second,
		"chat.join_ack":        string(JoinAckEcho),

		"store.driver":               string(StorePebble),
		"store.path":                 EnvConfig.ChatClientDataPath,
		"store.key_prefix":           "impact_chat",
		"store.redis.addr":           "",
		"store.redis.password":       "",
		"store.redis.master_name":    "",
		"store.redis.sentinel_addrs": []string{},
		"store.redis.redis_db":       0,
		"store.redis.retry_count":    3,
		"store.redis.retry_interval": time.Second,

		"metrics.addr":  "",
		"metrics.pprof": false,

		"debug": false,
	}
}
