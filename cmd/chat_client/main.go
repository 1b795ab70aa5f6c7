package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"impact_chat/pkg/config"
	errprocess "impact_chat/pkg/err"
	"impact_chat/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:           "chat-client",
	Short:         "Terminal client for the room chat server",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return setup(cmd)
	},
}

var (
	flagConfigDir string
	cfg           config.Client
)

// flag name -> config key
var flagKeys = map[string]string{
	"server":       "server.base_url",
	"ws-url":       "server.ws_url",
	"api-mode":     "server.api_mode",
	"join-ack":     "chat.join_ack",
	"history":      "chat.history_limit",
	"store":        "store.driver",
	"data-dir":     "store.path",
	"redis-addr":   "store.redis.addr",
	"metrics-addr": "metrics.addr",
	"debug":        "debug",
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagConfigDir, "config-dir", config.EnvConfig.ChatClientYAMLPath, "directory holding chat_client.yaml")
	flags.String("server", "", "REST base URL")
	flags.String("ws-url", "", "websocket URL")
	flags.String("api-mode", "", "server flavour: chat or legacy")
	flags.String("join-ack", "", "join acknowledgement: echo or fire_and_forget")
	flags.Int("history", 0, "history page size per kind")
	flags.String("store", "", "credential store: pebble or redis")
	flags.String("data-dir", "", "pebble data directory")
	flags.String("redis-addr", "", "redis address for the redis store")
	flags.String("metrics-addr", "", "serve /metrics and /health on this address")
	flags.Bool("debug", false, "debug logging on stderr")

	rootCmd.AddCommand(
		loginCmd,
		registerCmd,
		logoutCmd,
		whoamiCmd,
		countriesCmd,
		roomsCmd,
		createRoomCmd,
		historyCmd,
		joinCmd,
	)
}

func setup(cmd *cobra.Command) error {
	logger.Log = logger.Initialize(config.EnvConfig.ChatClient, config.EnvConfig.ChatClientLogPath)

	bindFlags := func(v *viper.Viper) error {
		flags := cmd.Flags()
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
		return nil
	}

	var err error
	cfg, err = config.LoadConfig[config.Client](config.EnvConfig.ChatClient, flagConfigDir, config.ClientDefaults(), bindFlags)
	if err != nil {
		return errprocess.Set(fmt.Sprintf("load config: %v", err))
	}
	logger.Log.SetDebugMode(cfg.Debug)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	logger.Log.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", errprocess.DetailOf(err))
		os.Exit(1)
	}
}
