package main

import (
	"bufio"
	"context"
	"os"
	"strings"
	"time"

	"impact_chat/internal/chat/app"
	"impact_chat/internal/chat/repository"
	"impact_chat/pkg/config"
	errprocess "impact_chat/pkg/err"
	"impact_chat/pkg/logger"
	"impact_chat/pkg/metrics"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var flagAs string

var joinCmd = &cobra.Command{
	Use:   "join [room]",
	Short: "Enter a room and chat interactively",
	Long: `Enter a room and chat interactively. Lines are sent as messages.

  /join <room>        switch rooms
  /leave              leave the current room
  /upload <path>...   share files
  /typing             tell the room you are typing
  /who                show connection and room state
  /quit               exit`,
	Args: cobra.MaximumNArgs(1),
	RunE: withSession(runJoin),
}

func init() {
	joinCmd.Flags().StringVar(&flagAs, "as", "", "display name (legacy servers, or to override the stored one)")
}

func runJoin(cmd *cobra.Command, d *deps, args []string) error {
	if flagAs != "" {
		d.session.SetUsername(strings.TrimSpace(flagAs))
	}
	s := d.session.Current()
	if cfg.Server.APIMode == config.APIModeLegacy && s.Username == "" {
		return errprocess.Validation("join", "--as is required on legacy servers")
	}
	if cfg.Server.APIMode != config.APIModeLegacy && s.Token == "" {
		return errprocess.Validation("join", "login first")
	}

	room := cfg.Chat.DefaultRoom
	if len(args) == 1 {
		room = args[0]
	}

	transport := repository.NewWSTransport(cfg.Server.WSURL, cfg.Server.ReconnectInterval, func() string {
		return d.session.Current().Token
	})
	client := app.NewChatClient(app.OptionsFromConfig(cfg), d.session, transport, d.history, d.sink)
	send := app.NewSendMessageUseCase(d.commands, transport, d.session, cfg.Server.APIMode)
	logger.Log.Info("chat client starting", zap.String("client_id", client.ID()), zap.String("room", room))

	g, ctx := errgroup.WithContext(cmd.Context())
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g.Go(func() error { return client.Run(ctx) })

	if cfg.Metrics.Addr != "" {
		status := func() any {
			sctx, scancel := context.WithTimeout(ctx, time.Second)
			defer scancel()
			st, err := client.Status(sctx)
			if err != nil {
				return map[string]string{"status": "stopped"}
			}
			return st
		}
		g.Go(func() error {
			return metrics.Serve(ctx, cfg.Metrics.Addr, metrics.NewRouter(status, cfg.Metrics.Pprof))
		})
	}

	g.Go(func() error {
		defer cancel()
		if err := client.JoinRoom(ctx, room); err != nil {
			report(d.sink, err)
		}
		return readInput(ctx, d.sink, client, send)
	})

	return g.Wait()
}

// readInput runs the prompt until /quit, EOF or ctx is done
func readInput(ctx context.Context, sink *app.ConsoleSink, client *app.ChatClient, send *app.SendMessageUseCase) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, "/") {
			if err := send.Execute(ctx, line); err != nil {
				report(sink, err)
			}
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "/quit", "/exit":
			return nil
		case "/join":
			if len(fields) < 2 {
				sink.Printf("usage: /join <room>")
				continue
			}
			if err := client.JoinRoom(ctx, fields[1]); err != nil {
				report(sink, err)
			}
		case "/leave":
			if err := client.LeaveRoom(ctx); err != nil {
				report(sink, err)
			}
		case "/upload":
			if len(fields) < 2 {
				sink.Printf("usage: /upload <path>...")
				continue
			}
			atts, err := send.Upload(ctx, fields[1:]...)
			if err != nil {
				report(sink, err)
				continue
			}
			sink.Printf("uploaded %d file(s)", len(atts))
		case "/typing":
			if err := client.Typing(ctx); err != nil {
				report(sink, err)
			}
		case "/who":
			st, err := client.Status(ctx)
			if err != nil {
				report(sink, err)
				continue
			}
			sink.Printf("%s in %q: %s, %s, %d entries", app.SanitizeText(st.Username), st.RoomID, st.JoinState, st.Connectivity, st.Entries)
		default:
			sink.Printf("unknown command %s", fields[0])
		}
	}
}

// report rejected local input is dropped, everything else goes to the sink
func report(sink *app.ConsoleSink, err error) {
	if errprocess.IsKind(err, errprocess.KindValidation) {
		logger.Log.Debug("input rejected", zap.String("detail", errprocess.DetailOf(err)))
		return
	}
	sink.OnError(err)
}
