package main

import (
	"encoding/hex"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/rollcall/core/tag"
)

func (cli *commandLine) rosterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Manage class rosters",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import FILE.yaml",
		Short: "Store a teacher's roster from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			rf, err := tag.ParseRoster(f)
			if err != nil {
				return err
			}
			if err := cli.roster.Save(cmd.Context(), rf.TeacherID, rf.Students); err != nil {
				return err
			}
			res := tag.NewResolver(rf.Students, cli.logger)
			out := struct {
				TeacherID  string          `json:"teacher_id"`
				Students   int             `json:"students"`
				Cards      int             `json:"cards"`
				Collisions []tag.Collision `json:"collisions"`
			}{rf.TeacherID, len(rf.Students), res.Len(), res.Collisions()}
			return cli.print(out, func(w io.Writer) {
				row(w, "TEACHER", "STUDENTS", "CARDS")
				row(w, out.TeacherID, out.Students, out.Cards)
				for _, c := range out.Collisions {
					row(w, "card "+c.CardID, "shared by "+c.Previous+" and "+c.Winner, "kept "+c.Winner)
				}
			})
		},
	})
	return cmd
}

func (cli *commandLine) scanCmd() *cobra.Command {
	var (
		teacherID string
		text, uri string
		ndefHex   string
		hwHex     string
		serial    string
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Resolve a card scan to a student of the teacher's roster",
		Example: `  rollcall scan --teacher T1 --uri "https://school.example/card?id=42"
  rollcall scan --teacher T1 --id 04a23bff`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scan := tag.Scan{Serial: serial}
			if text != "" {
				scan.Records = append(scan.Records, tag.NewTextRecord(text, "en"))
			}
			if uri != "" {
				scan.Records = append(scan.Records, tag.NewURIRecord(uri))
			}
			if ndefHex != "" {
				raw, err := hex.DecodeString(ndefHex)
				if err != nil {
					return errors.Wrap(err, "--ndef")
				}
				recs, err := tag.ParseMessage(raw)
				if err != nil {
					return err
				}
				scan.Records = append(scan.Records, recs...)
			}
			if hwHex != "" {
				id, err := hex.DecodeString(hwHex)
				if err != nil {
					return errors.Wrap(err, "--id")
				}
				scan.ID = id
			}

			resolver, err := cli.roster.Resolver(cmd.Context(), teacherID)
			if err != nil {
				return err
			}
			studentID, ok := resolver.Resolve(scan)
			out := struct {
				CardID    string `json:"card_id"`
				StudentID string `json:"student_id,omitempty"`
				Matched   bool   `json:"matched"`
			}{scan.CardID(), studentID, ok}
			return cli.print(out, func(w io.Writer) {
				row(w, "CARD", "STUDENT")
				if !ok {
					studentID = "(no match)"
				}
				row(w, out.CardID, studentID)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&teacherID, "teacher", "", "teacher id")
	f.StringVar(&text, "text", "", "text record content")
	f.StringVar(&uri, "uri", "", "URI record content")
	f.StringVar(&ndefHex, "ndef", "", "raw NDEF message, hex encoded")
	f.StringVar(&hwHex, "id", "", "hardware identifier, hex encoded")
	f.StringVar(&serial, "serial", "", "hardware serial number")
	requireFlags(cmd, "teacher")
	return cmd
}
