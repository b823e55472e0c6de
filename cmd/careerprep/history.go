package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	appI18n "github.com/pavelanni/careerprep/internal/i18n"
	"github.com/pavelanni/careerprep/internal/model"
	"github.com/pavelanni/careerprep/internal/store"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show a user's reports, exam results or interviews",
		RunE:  runHistory,
	}
	f := cmd.Flags()
	f.String("db", "careerprep.db", "SQLite database path")
	f.String("username", "", "User to show (required)")
	f.String("kind", "reports", "Records to show (reports, exams, interviews)")
	f.StringP("lang", "l", "en", "Message language (en, ru)")
	addLogFlags(cmd)
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all of a user's records as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "careerprep.db", "SQLite database path")
	f.String("username", "", "User to export (required)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(cmd)
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

// errUserNotFound is returned after the localized notice has been printed.
var errUserNotFound = errors.New("user not found")

func runHistory(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.WithLocalizer(cmd.Context(), appI18n.NewLocalizer(lang))

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	username := v.GetString("username")
	u, err := db.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		color.Red("%s", appI18n.Td(ctx, "UserNotFound", map[string]any{"Username": username}))
		return errUserNotFound
	}

	var n int
	switch kind := strings.ToLower(v.GetString("kind")); kind {
	case "reports":
		n, err = printReports(ctx, os.Stdout, db, u.ID, time.Now())
	case "exams":
		n, err = printExams(ctx, os.Stdout, db, u.ID)
	case "interviews":
		n, err = printInterviews(ctx, os.Stdout, db, u.ID)
	default:
		return fmt.Errorf("unknown kind %q (want reports, exams or interviews)", kind)
	}
	if err != nil {
		return err
	}
	color.Cyan("%s", appI18n.Tp(ctx, "RecordsFound", n))
	return nil
}

// printReports lists roadmap phases per report, marking deadlines that have
// passed.
func printReports(ctx context.Context, w io.Writer, db *store.Store, userID int64, today time.Time) (int, error) {
	reports, err := db.ListSkillGapReports(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list reports: %w", err)
	}
	overdue := color.New(color.FgRed, color.Bold).SprintFunc()
	label := appI18n.T(ctx, "OverdueDeadline")

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Report", "Role", "Created", "Phase", "Duration", "Deadline"})
	for _, r := range reports {
		for _, p := range r.Roadmap {
			deadline := p.Deadline
			if p.Overdue(today) {
				deadline = overdue(deadline + " (" + label + ")")
			}
			table.Append([]string{
				strconv.FormatInt(r.ID, 10),
				r.TargetRole,
				r.CreatedAt.Format(model.DateLayout),
				p.Phase,
				p.Duration,
				deadline,
			})
		}
	}
	table.Render()
	return len(reports), nil
}

func printExams(ctx context.Context, w io.Writer, db *store.Store, userID int64) (int, error) {
	results, err := db.ListExamResults(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list exam results: %w", err)
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Date", "Subject", "Score", "Questions", "Time (s)", "AI Usage", "Weak Topics"})
	for _, r := range results {
		table.Append([]string{
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.ExamType,
			strconv.Itoa(r.Score) + "%",
			strconv.Itoa(r.TotalQuestions),
			strconv.Itoa(r.TimeSpent),
			strconv.Itoa(r.AIUsagePercent) + "%",
			strings.Join(r.WeakTopics, ", "),
		})
	}
	table.Render()
	return len(results), nil
}

func printInterviews(ctx context.Context, w io.Writer, db *store.Store, userID int64) (int, error) {
	sessions, err := db.ListInterviewSessions(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list interview sessions: %w", err)
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Date", "Confidence", "Stress", "Clarity", "Duration (s)"})
	for _, s := range sessions {
		table.Append([]string{
			s.CreatedAt.Format("2006-01-02 15:04"),
			strconv.Itoa(s.ConfidenceScore),
			strconv.Itoa(s.StressLevel),
			strconv.Itoa(s.ClarityScore),
			strconv.Itoa(s.Duration),
		})
	}
	table.Render()
	return len(sessions), nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	username := v.GetString("username")
	export, err := db.ExportUser(cmd.Context(), username)
	if err != nil {
		return fmt.Errorf("export user: %w", err)
	}
	if export == nil {
		return fmt.Errorf("user %q not found", username)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}
