package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"paydesk/internal/app"
	"paydesk/pkg/config"
	apperrors "paydesk/pkg/errors"
	"paydesk/pkg/logging"
	"paydesk/pkg/utils"
)

const usage = `usage: paydesk [-config file] <command> [flags]

commands:
  login [-email address]   sign in and save the session
  logout [-forget]         sign out; -forget also deletes the saved profile
  whoami                   show the signed-in user
  accounts [-refresh]      list bank accounts; -refresh refetches them first
`

type cli struct {
	stdin        *bufio.Reader
	stdout       io.Writer
	stderr       io.Writer
	readPassword func() (string, error)
	configPath   string
}

var errUsage = errors.New("usage")

func (c *cli) run(ctx context.Context, args []string) int {
	global := flag.NewFlagSet("paydesk", flag.ContinueOnError)
	global.SetOutput(c.stderr)
	global.Usage = func() { fmt.Fprint(c.stderr, usage) }
	configPath := global.String("config", c.configPath, "config file")
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		global.Usage()
		return 2
	}

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		fmt.Fprintf(c.stderr, "paydesk: %v\n", err)
		return 1
	}
	// Terminal output is for the user; keep routine logs out of it.
	level := cfg.LogLevel
	if logging.ParseLevel(level) < slog.LevelWarn {
		level = "warn"
	}
	logger, _ := logging.New(level, cfg.LogFormat, c.stderr)
	logger = logger.With("cmd", global.Arg(0))

	rt, err := app.New(cfg, logger)
	if err != nil {
		fmt.Fprintf(c.stderr, "paydesk: %v\n", err)
		return 1
	}
	defer rt.Close()

	name, rest := global.Arg(0), global.Args()[1:]
	switch name {
	case "login":
		err = c.login(ctx, rt, rest)
	case "logout":
		err = c.logout(rt, rest)
	case "whoami":
		err = c.whoami(rt)
	case "accounts":
		err = c.accounts(ctx, rt, rest)
	default:
		fmt.Fprintf(c.stderr, "paydesk: unknown command %q\n", name)
		global.Usage()
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		return 2
	default:
		fmt.Fprintf(c.stderr, "paydesk %s: %s\n", name, apperrors.UserMessage(err))
		return 1
	}
}

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func (c *cli) login(ctx context.Context, rt *app.Runtime, args []string) error {
	fs := c.flags("login")
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if *email == "" {
		*email = rt.Store.Get().Profile.Email
	}
	if *email == "" {
		fmt.Fprint(c.stderr, "Email: ")
		line, err := c.stdin.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		*email = strings.TrimSpace(line)
	} else {
		fmt.Fprintf(c.stderr, "Signing in as %s\n", *email)
	}

	fmt.Fprint(c.stderr, "Password: ")
	password, err := c.readPassword()
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	s, err := rt.Auth.Login(ctx, *email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Signed in as %s <%s>\n", utils.DisplayName(s.Profile.FullName, s.Profile.FirstName, s.Profile.LastName), s.Profile.Email)
	return nil
}

func (c *cli) logout(rt *app.Runtime, args []string) error {
	fs := c.flags("logout")
	forget := fs.Bool("forget", false, "also delete the saved profile")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if err := rt.Auth.Logout(*forget); err != nil {
		return err
	}
	if *forget {
		fmt.Fprintln(c.stdout, "Signed out and forgot the saved profile")
	} else {
		fmt.Fprintln(c.stdout, "Signed out")
	}
	return nil
}

func (c *cli) whoami(rt *app.Runtime) error {
	s := rt.Store.Get()
	if !s.IsAuthenticated {
		return apperrors.ErrNotAuthenticated
	}
	fmt.Fprintf(c.stdout, "%s <%s>\n", utils.DisplayName(s.Profile.FullName, s.Profile.FirstName, s.Profile.LastName), s.Profile.Email)
	if acc, ok := s.DefaultAccount(); ok {
		fmt.Fprintf(c.stdout, "default account: %s %s\n", acc.Name, utils.MaskAccountNumber(acc.AccountNumber))
	}
	return nil
}

func (c *cli) accounts(ctx context.Context, rt *app.Runtime, args []string) error {
	fs := c.flags("accounts")
	refresh := fs.Bool("refresh", false, "refetch accounts from the API first")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if !rt.Store.IsAuthenticated() {
		return apperrors.ErrNotAuthenticated
	}
	accounts := rt.Store.Get().Accounts
	if *refresh {
		var err error
		if accounts, err = rt.Auth.RefreshAccounts(ctx); err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tNUMBER\tCURRENCY\tCOUNTRY\tDEFAULT")
	for _, acc := range accounts {
		def := ""
		if acc.IsDefault {
			def = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", acc.ID, acc.Name, utils.MaskAccountNumber(acc.AccountNumber), acc.Currency, acc.Country, def)
	}
	return tw.Flush()
}
