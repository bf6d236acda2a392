package main

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/rollcall/core/attendance"
)

// parseEntries reads "studentId=status" arguments, keeping their order.
func parseEntries(args []string) ([]attendance.Entry, error) {
	entries := make([]attendance.Entry, 0, len(args))
	for _, arg := range args {
		id, status, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(id) == "" {
			return nil, errors.Errorf("%q: expected STUDENT_ID=STATUS", arg)
		}
		st, err := attendance.ParseStatus(status)
		if err != nil {
			return nil, err
		}
		entries = append(entries, attendance.Entry{StudentID: strings.TrimSpace(id), Status: st})
	}
	return entries, nil
}

func (cli *commandLine) submitCmd() *cobra.Command {
	var req attendance.SubmitRequest
	cmd := &cobra.Command{
		Use:   "submit STUDENT_ID=STATUS...",
		Short: "Submit the attendance of a class-day (queued when the server is unreachable)",
		Example: `  rollcall submit --teacher T1 --assignment A100 --section "Grade 3 - A" --subject Math \
    S1=present S2=absent S3=late`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := parseEntries(args)
			if err != nil {
				return err
			}
			req.Entries = entries
			res, err := cli.svc.Submit(cmd.Context(), req)
			if err != nil {
				return err
			}
			return cli.print(res, func(w io.Writer) {
				row(w, "RECORD", "MODE", "QUEUED", "MESSAGE")
				row(w, res.RecordID, res.Mode, res.Queued, res.Message)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.TeacherID, "teacher", "", "teacher id")
	f.StringVar(&req.AssignmentID, "assignment", "", "assignment id")
	f.StringVar(&req.Section, "section", "", "class section")
	f.StringVar(&req.Subject, "subject", "", "subject")
	f.StringVar(&req.Date, "date", "", "class day, YYYY-MM-DD (default: today)")
	f.StringVar(&req.AttendanceID, "attendance-id", "", "server id of the attendance to amend")
	f.BoolVar(&req.ForceUpdate, "force-update", false, "amend without checking the server first")
	requireFlags(cmd, "teacher", "assignment", "section")
	return cmd
}
