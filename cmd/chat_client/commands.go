package main

import (
	"strings"

	"impact_chat/internal/chat/app"
	"impact_chat/internal/chat/domain"
	errprocess "impact_chat/pkg/err"

	"github.com/spf13/cobra"
)

type runFunc func(cmd *cobra.Command, d *deps, args []string) error

// withDeps build deps for the command and release them afterwards
func withDeps(run runFunc) func(*cobra.Command, []string) error {
	return depsRunner(run, true)
}

// withSession like withDeps, but the credential store is closed after restore
func withSession(run runFunc) func(*cobra.Command, []string) error {
	return depsRunner(run, false)
}

func depsRunner(run runFunc, keepStore bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd.Context(), keepStore)
		if err != nil {
			return err
		}
		defer d.close()
		return run(cmd, d, args)
	}
}

var (
	flagEmail    string
	flagPassword string
	flagName     string
	flagGender   string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and remember the token",
	Args:  cobra.NoArgs,
	RunE: withDeps(func(cmd *cobra.Command, d *deps, _ []string) error {
		u, err := d.auth.Login(cmd.Context(), flagEmail, flagPassword)
		if err != nil {
			return err
		}
		d.sink.Printf("logged in as %s", app.SanitizeText(u.Name))
		return nil
	}),
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and log in",
	Args:  cobra.NoArgs,
	RunE: withDeps(func(cmd *cobra.Command, d *deps, _ []string) error {
		u, err := d.auth.Register(cmd.Context(), domain.RegisterRequest{
			Email:    flagEmail,
			Name:     flagName,
			Password: flagPassword,
			Gender:   flagGender,
		})
		if err != nil {
			return err
		}
		d.sink.Printf("registered and logged in as %s", app.SanitizeText(u.Name))
		return nil
	}),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored token",
	Args:  cobra.NoArgs,
	RunE: withDeps(func(cmd *cobra.Command, d *deps, _ []string) error {
		if err := d.auth.Logout(cmd.Context()); err != nil {
			return err
		}
		d.sink.Printf("logged out")
		return nil
	}),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the account behind the stored token",
	Args:  cobra.NoArgs,
	RunE: withDeps(func(cmd *cobra.Command, d *deps, _ []string) error {
		u, err := d.auth.Whoami(cmd.Context())
		if err != nil {
			return err
		}
		d.sink.Printf("%s <%s> id=%d", app.SanitizeText(u.Name), app.SanitizeText(u.Email), u.ID)
		return nil
	}),
}

var countriesCmd = &cobra.Command{
	Use:   "countries",
	Short: "List countries of the room directory",
	Args:  cobra.NoArgs,
	RunE: withDeps(func(cmd *cobra.Command, d *deps, _ []string) error {
		list, err := d.rooms.Countries(cmd.Context())
		if err != nil {
			return err
		}
		for _, c := range list {
			d.sink.Printf("%s  %s", c.Code, app.SanitizeText(c.Name))
		}
		return nil
	}),
}

var roomsCmd = &cobra.Command{
	Use:   "rooms <country-code>",
	Short: "List rooms of a country",
	Args:  cobra.ExactArgs(1),
	RunE: withDeps(func(cmd *cobra.Command, d *deps, args []string) error {
		list, err := d.rooms.Rooms(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(list) == 0 {
			d.sink.Printf("no rooms yet")
		}
		for _, r := range list {
			d.sink.Printf("%s  %s", r.ID, app.SanitizeText(r.Name))
		}
		return nil
	}),
}

var createRoomCmd = &cobra.Command{
	Use:   "create-room <country-code> <name>",
	Short: "Create a room in a country",
	Args:  cobra.MinimumNArgs(2),
	RunE: withDeps(func(cmd *cobra.Command, d *deps, args []string) error {
		room, err := d.rooms.CreateRoom(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		d.sink.Printf("created %s (%s)", app.SanitizeText(room.Name), room.ID)
		return nil
	}),
}

var historyCmd = &cobra.Command{
	Use:   "history <room>",
	Short: "Print the recent messages and attachments of a room",
	Args:  cobra.ExactArgs(1),
	RunE: withDeps(func(cmd *cobra.Command, d *deps, args []string) error {
		room := strings.TrimSpace(args[0])
		if room == "" {
			return errprocess.Validation("history", "room required")
		}
		r := app.NewHistoryReconciler(d.history, d.session, nil, nil, d.sink, cfg.Chat.HistoryLimit)
		res := r.Load(cmd.Context(), room, 0)
		if res.Err != nil {
			return res.Err
		}
		d.sink.OnReplace(res.Entries)
		return nil
	}),
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVar(&flagEmail, "email", "", "account email")
		c.Flags().StringVar(&flagPassword, "password", "", "account password")
		_ = c.MarkFlagRequired("email")
		_ = c.MarkFlagRequired("password")
	}
	registerCmd.Flags().StringVar(&flagName, "name", "", "display name")
	registerCmd.Flags().StringVar(&flagGender, "gender", "", "optional gender")
	_ = registerCmd.MarkFlagRequired("name")
}
