package main

import (
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/trezcool/rollcall/core/attendance"
)

func printRecords(w io.Writer, records []attendance.Record) {
	row(w, "ID", "DAY", "SECTION", "SUBJECT", "ENTRIES")
	for _, r := range records {
		n := "?"
		if entries, err := r.Entries(); err == nil {
			n = strconv.Itoa(len(entries))
		}
		row(w, r.ID, r.Day(), r.AssignedSection, r.Subject.String, n)
	}
}

func (cli *commandLine) fetchCmd() *cobra.Command {
	var teacherID, section, assignmentID string
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Get the attendance of a class from the server, or from the device when offline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := cli.svc.GetClassAttendance(cmd.Context(), teacherID, section, assignmentID)
			if err != nil {
				return err
			}
			return cli.print(res, func(w io.Writer) {
				if res.Cached {
					row(w, res.Message)
				}
				printRecords(w, res.Records)
			})
		},
	}
	cmd.Flags().StringVar(&teacherID, "teacher", "", "teacher id")
	cmd.Flags().StringVar(&section, "section", "", "class section")
	cmd.Flags().StringVar(&assignmentID, "assignment", "", "assignment id")
	requireFlags(cmd, "teacher", "section")
	return cmd
}

func (cli *commandLine) recordsCmd() *cobra.Command {
	var teacherID, section string
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Show the attendance saved on this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scope := attendance.AllScope(teacherID)
			if section != "" {
				scope = attendance.ClassScope(teacherID, section)
			}
			records, _, err := cli.svc.Cache().Get(cmd.Context(), scope)
			if err != nil {
				return err
			}
			if records == nil {
				records = []attendance.Record{}
			}
			return cli.print(records, func(w io.Writer) { printRecords(w, records) })
		},
	}
	cmd.Flags().StringVar(&teacherID, "teacher", "", "teacher id")
	cmd.Flags().StringVar(&section, "section", "", "class section (default: all)")
	requireFlags(cmd, "teacher")
	return cmd
}
