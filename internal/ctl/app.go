package ctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/dmitrijs2005/hotspotkeeper/internal/device"
	"github.com/dmitrijs2005/hotspotkeeper/internal/device/routeros"
	"github.com/dmitrijs2005/hotspotkeeper/internal/logging"
	"github.com/dmitrijs2005/hotspotkeeper/internal/pending"
	"github.com/dmitrijs2005/hotspotkeeper/internal/provision"
	"github.com/dmitrijs2005/hotspotkeeper/internal/server/auth"
	"github.com/dmitrijs2005/hotspotkeeper/internal/server/config"
)

const usage = `Usage: hotspotctl [--config FILE] <command> [flags]

Commands:
  token    print an operator API token
  check    verify the router is reachable with the configured credentials
  pending  list pending requests
`

var errUsage = errors.New("usage")

// Seams for tests.
var (
	newGateway = func(cfg routeros.Config) device.Gateway {
		return routeros.NewGateway(cfg, logging.NewNopLogger())
	}
	openPending = pending.Open
)

type App struct {
	out    io.Writer
	errOut io.Writer
	config *config.Config
}

// Run executes one command and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := &App{out: stdout, errOut: stderr}
	if err := app.run(ctx, args); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(stderr, "error:", err)
		}
		return 1
	}
	return 0
}

func (a *App) run(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("hotspotctl", pflag.ContinueOnError)
	fs.SetOutput(a.errOut)
	fs.SetInterspersed(false)
	cfgPath := fs.StringP("config", "c", "", "server config file (JSON or YAML)")
	fs.Usage = func() { fmt.Fprint(a.errOut, usage) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return errUsage
		}
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	a.config = &config.Config{}
	a.config.LoadDefaults()
	if *cfgPath != "" {
		if err := config.ReadFile(a.config, *cfgPath); err != nil {
			return err
		}
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "token":
		return a.token(rest)
	case "check":
		return a.check(ctx, rest)
	case "pending":
		return a.pending(ctx, rest)
	case "help":
		fs.Usage()
		return nil
	}
	fmt.Fprintf(a.errOut, "unknown command %q\n", cmd)
	fs.Usage()
	return errUsage
}

func (a *App) token(args []string) error {
	fs := pflag.NewFlagSet("token", pflag.ContinueOnError)
	fs.SetOutput(a.errOut)
	subject := fs.StringP("subject", "s", "", "operator name embedded in the token")
	ttl := fs.Duration("ttl", a.config.OperatorTokenTTL, "token validity")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subject == "" {
		return errors.New("--subject is required")
	}
	if *ttl <= 0 {
		return errors.New("--ttl must be positive")
	}

	tok, err := auth.GenerateToken(*subject, []byte(a.config.SecretKey), *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, tok)
	return nil
}

func (a *App) check(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("check", pflag.ContinueOnError)
	fs.SetOutput(a.errOut)
	address := fs.String("router", a.config.RouterAddress, "router API address")
	user := fs.String("user", a.config.RouterUser, "router API user")
	ask := fs.Bool("ask-password", false, "prompt for the router password")
	timeout := fs.Duration("timeout", a.config.RouterCallTimeout, "connect timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	password := a.config.RouterPassword
	if *ask {
		pw, err := GetPassword(a.errOut, "Router password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password = pw
	}

	gw := newGateway(routeros.Config{
		Address:     *address,
		User:        *user,
		Password:    password,
		CallTimeout: *timeout,
	})

	ctx, cancel := context.WithTimeout(ctx, *timeout+time.Second)
	defer cancel()

	s, err := gw.Connect(ctx)
	if err == nil {
		err = s.Close()
	}
	fmt.Fprintln(a.out, provision.SelfCheckMessage(err))
	return err
}

func (a *App) pending(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("pending", pflag.ContinueOnError)
	fs.SetOutput(a.errOut)
	backend := fs.StringP("backend", "b", a.config.PendingBackend, "pending backend (file, sqlite, postgres)")
	dir := fs.String("dir", a.config.PendingDir, "pending directory (file backend)")
	dsn := fs.String("dsn", a.config.DatabaseDSN, "database DSN")
	if err := fs.Parse(args); err != nil {
		return err
	}

	repo, closeRepo, err := openPending(ctx, *backend, *dir, *dsn)
	if err != nil {
		return err
	}
	defer closeRepo()

	list, err := repo.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No pending requests.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tIP\tPACKAGE")
	for _, r := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Username, r.Address, r.Package)
	}
	return tw.Flush()
}
