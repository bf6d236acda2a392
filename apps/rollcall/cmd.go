package main

import (
	"context"
	"io"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/attendance"
	"github.com/trezcool/rollcall/core/tag"
	"github.com/trezcool/rollcall/services/logger"
	"github.com/trezcool/rollcall/services/remote"
	"github.com/trezcool/rollcall/storage/database"
	"github.com/trezcool/rollcall/storage/database/sqlx"
)

var (
	loadConfigFunc = core.LoadConfig // mockable
	isTerminalFunc = term.IsTerminal // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	out    io.Writer
	conf   *core.Config
	logger core.Logger
	db     *sqlx.DB
	remote attendance.Remote
	svc    *attendance.Service
	roster *tag.RosterStore
	asJSON bool

	closers []func()
}

// setup wires the dependencies the commands need, up to the database unless
// withServices is set. Fields set beforehand (by tests) are kept.
func (cli *commandLine) setup(ctx context.Context, withServices bool) error {
	if cli.conf == nil {
		conf, err := loadConfigFunc()
		if err != nil {
			return err
		}
		cli.conf = conf
	}
	if cli.logger == nil {
		std := log.New(os.Stderr, "ROLLCALL : ", log.LstdFlags|log.Lmicroseconds)
		if cli.conf.RollbarToken != "" {
			rl := logsvc.NewRollbarLogger(std, cli.conf)
			cli.closers = append(cli.closers, rl.Close)
			cli.logger = rl
		} else {
			cli.logger = logsvc.NewConsoleLogger(std, cli.conf)
		}
	}
	if cli.db == nil {
		db, err := database.Open(ctx, cli.conf.Storage)
		if err != nil {
			return err
		}
		cli.db = db
		cli.closers = append(cli.closers, func() {
			if err := db.Close(); err != nil {
				cli.logger.Error("closing database", err)
			}
		})
	}
	if !withServices {
		return nil
	}
	if err := database.Migrate(ctx, cli.db, cli.conf.Storage.Engine); err != nil {
		return err
	}

	store := sqlxrepos.NewKVStore(cli.db)
	prefix := cli.conf.Storage.Prefix
	if cli.remote == nil {
		cli.remote = remote.NewClient(cli.conf.API, cli.logger)
	}
	if cli.svc == nil {
		cli.svc = attendance.NewService(
			cli.remote,
			attendance.NewCache(store, prefix, cli.logger),
			attendance.NewQueue(store, prefix, cli.logger),
			cli.logger,
		)
	}
	if cli.roster == nil {
		cli.roster = tag.NewRosterStore(store, prefix, cli.logger)
	}
	return nil
}

func (cli *commandLine) close() {
	for i := len(cli.closers) - 1; i >= 0; i-- {
		cli.closers[i]()
	}
	cli.closers = nil
}

func (cli *commandLine) rootCmd() *cobra.Command {
	var output string
	var root *cobra.Command
	root = &cobra.Command{
		Use:           "rollcall",
		Short:         "Take attendance, online or not",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch output {
			case "json":
				cli.asJSON = true
			case "table":
				cli.asJSON = false
			case "":
				f, ok := cli.out.(*os.File)
				cli.asJSON = !ok || !isTerminalFunc(int(f.Fd()))
			default:
				return errors.Errorf("unknown output format %q", output)
			}
			if cmd == root || cmd.Name() == "help" {
				return nil
			}
			// migrate runs goose itself
			return cli.setup(cmd.Context(), cmd.Name() != "migrate")
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	root.PersistentFlags().StringVarP(&output, "output", "o", "", "output format: table or json (default: table on a terminal)")
	root.SetOut(cli.out)
	root.SetErr(cli.out)

	root.AddCommand(
		cli.submitCmd(),
		cli.flushCmd(),
		cli.queueCmd(),
		cli.syncCmd(),
		cli.fetchCmd(),
		cli.recordsCmd(),
		cli.rosterCmd(),
		cli.scanCmd(),
		cli.migrateCmd(),
	)
	return root
}

// run executes the command line args (without program name).
func (cli *commandLine) run(args []string) error {
	if len(args) == 0 {
		_ = cli.rootCmd().Help()
		return errHelp
	}
	root := cli.rootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func requireFlags(cmd *cobra.Command, names ...string) {
	for _, n := range names {
		_ = cmd.MarkFlagRequired(n)
	}
}
