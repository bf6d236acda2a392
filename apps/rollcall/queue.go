package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/trezcool/rollcall/core/attendance"
)

func (cli *commandLine) flushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Send queued attendance to the server, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := cli.svc.Flush(cmd.Context())
			if err != nil {
				return err
			}
			return cli.print(res, func(w io.Writer) {
				row(w, "SENT", "REMAINING", "HALTED", "ERROR")
				row(w, len(res.Succeeded), res.Remaining, res.Halted, res.LastError)
			})
		},
	}
}

func (cli *commandLine) queueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "List attendance waiting to be sent, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := cli.svc.Queue().DrainAll(cmd.Context())
			if err != nil {
				return err
			}
			return cli.print(items, func(w io.Writer) {
				row(w, "ID", "CREATED", "MODE", "ASSIGNMENT", "DATE", "ENTRIES")
				for _, item := range items {
					row(w, item.ID, item.CreatedAt.Local().Format("2006-01-02 15:04"), item.Mode,
						item.Payload.AssignmentID, item.Payload.Date.String, len(item.Payload.Attendance))
				}
			})
		},
	}
}

var notifyContextFunc = signal.NotifyContext // mockable

func (cli *commandLine) syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Keep sending queued attendance until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := notifyContextFunc(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			syncer := attendance.NewSyncer(cli.svc, cli.conf.Sync.FlushInterval, cli.logger)
			cli.logger.Info("syncing attendance", map[string]interface{}{"every": cli.conf.Sync.FlushInterval.String()})
			if err := syncer.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
}
