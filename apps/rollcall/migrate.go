package main

import (
	"github.com/spf13/cobra"

	"github.com/trezcool/rollcall/storage/database"
)

var gooseRunFunc = database.Run // mockable

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a goose command (up, down, status, version, ...) on the device database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Help()
				return errHelp
			}
			return gooseRunFunc(cmd.Context(), cli.db, cli.conf.Storage.Engine, args[0], args[1:]...)
		},
	}
}
