package config

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvInfo client name and paths from .env
type EnvInfo struct {
	ChatClient string

	// client yaml dir
	ChatClientYAMLPath string

	// client log dir
	ChatClientLogPath string

	// local data dir (pebble store)
	ChatClientDataPath string
}

// EnvConfig client env
var (
	EnvConfig = initEnv()
	envConfig EnvInfo
	once      sync.Once
	env       string
)

func initEnv() EnvInfo {
	once.Do(func() {
		path, err := GetPath(".env", 5)
		if err == nil {
			if err := godotenv.Load(path); err != nil {
				log.Printf("Warning: Could not load .env file: %v", err)
			}
		}

		env = os.Getenv("ENV")

		envConfig = EnvInfo{
			ChatClient:         getenv("CHAT_CLIENT", "chat_client"),
			ChatClientYAMLPath: getenv("CHAT_CLIENT_YAML", "./configs"),
			ChatClientLogPath:  getenv("CHAT_CLIENT_LOG", "./logs"),
			ChatClientDataPath: getenv("CHAT_CLIENT_DATA", "./data"),
		}
	})

	return envConfig
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// IsProduction check run env
func IsProduction() bool {
	return env == "production"
}

// IsLocal check run env
func IsLocal() bool {
	return env == "local"
}

// Binder hooks extra sources (command line flags) into the viper instance
type Binder func(v *viper.Viper) error

// LoadConfig 加載配置
// A missing config file is not an error: defaults and env vars still apply.
// Precedence: bound flags > env > file > defaults.
func LoadConfig[T any](serviceName string, configPath string, defaults map[string]any, binders ...Binder) (T, error) {
	var cfg T

	v := viper.New()
	v.SetConfigName(serviceName)
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, bind := range binders {
		if err := bind(v); err != nil {
			return cfg, fmt.Errorf("error binding config source: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("error loading config file: %w", err)
		}
	} else {
		rawConfig, err := os.ReadFile(v.ConfigFileUsed())
		if err != nil {
			return cfg, fmt.Errorf("error reading raw config file: %w", err)
		}

		// 替換 ${} 占位符為環境變數的值
		expandedConfig := os.ExpandEnv(string(rawConfig))

		if err := v.ReadConfig(bytes.NewBuffer([]byte(expandedConfig))); err != nil {
			return cfg, fmt.Errorf("error reading expanded config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return cfg, nil
}

// GetRedisSetting get redis sentinel setting from env
func GetRedisSetting() (string, []string) {
	var (
		masterName    string
		sentinelAddrs []string
	)

	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, value := parts[0], parts[1]

		// REDIS_SENTINEL*_IP + REDIS_SENTINEL*_PORT
		if strings.HasPrefix(key, "REDIS_SENTINEL") && strings.HasSuffix(key, "_IP") {
			portKey := strings.Replace(key, "_IP", "_PORT", 1)
			port := os.Getenv(portKey)
			if port != "" {
				sentinelAddrs = append(sentinelAddrs, fmt.Sprintf("%s:%s", value, port))
			}
		}
	}

	masterName = os.Getenv("REDIS_MASTER_NAME")
	if masterName == "" {
		masterName = "mymaster"
	}

	return masterName, sentinelAddrs
}

// GetPath use fileName loop maxCount find file path
func GetPath(fileName string, maxCount int) (string, error) {
	path := "./" + fileName

	for i := 0; i < maxCount; i++ {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = "../" + path
	}
	return "", errors.New(fileName + " can't find path")
}
