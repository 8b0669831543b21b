package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/revu/internal/config"
	"github.com/joescharf/revu/internal/git"
	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/report"
	"github.com/joescharf/revu/internal/review"
)

var showReport bool

var prCmd = &cobra.Command{
	Use:   "pr <owner/repo|url> <number> | pr <pull-request-url>",
	Short: "Review a GitHub pull request",
	Example: `  revu pr acme/api 42
  revu pr https://github.com/acme/api/pull/42 --report`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, repo, number, err := parsePRArgs(args)
		if err != nil {
			return err
		}
		return prRun(cmd.Context(), owner, repo, number)
	},
}

var filesCmd = &cobra.Command{
	Use:   "files <path>...",
	Short: "Review local files or directories",
	Long: `Review local files or directories as a synthetic submission.

Directories are walked recursively, skipping hidden directories. Files with
uncommitted git changes are reviewed against HEAD; others count as new.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return filesRun(cmd.Context(), args)
	},
}

func init() {
	for _, c := range []*cobra.Command{prCmd, filesCmd} {
		c.Flags().BoolVar(&showReport, "report", false, "Print the full markdown report")
		rootCmd.AddCommand(c)
	}
}

// parsePRArgs accepts "owner/repo N", "URL N" or a single pull request URL.
func parsePRArgs(args []string) (owner, repo string, number int, err error) {
	ref, num := args[0], ""
	if len(args) == 2 {
		num = args[1]
	} else if i := strings.Index(ref, "/pull/"); i >= 0 {
		ref, num = ref[:i], strings.Trim(ref[i+len("/pull/"):], "/")
	} else {
		return "", "", 0, fmt.Errorf("pull request number is required")
	}

	owner, repo, err = git.ParseRepoRef(ref)
	if err != nil {
		return "", "", 0, err
	}
	number, err = strconv.Atoi(num)
	if err != nil || number <= 0 {
		return "", "", 0, fmt.Errorf("invalid pull request number: %q", num)
	}
	return owner, repo, number, nil
}

func prRun(ctx context.Context, owner, repo string, number int) error {
	ctx, stop := signal.NotifyContext(contextOrBackground(ctx), shutdownSignals()...)
	defer stop()

	svc, closeFn, err := newService(ctx, config.ModePR)
	if err != nil {
		return err
	}
	defer closeFn()

	ui.VerboseLog("Reviewing %s/%s#%d", owner, repo, number)
	res, err := svc.ReviewPR(ctx, owner, repo, number)
	if err != nil {
		return err
	}
	return printResult(res, svc.Thresholds())
}

func filesRun(ctx context.Context, paths []string) error {
	ctx, stop := signal.NotifyContext(contextOrBackground(ctx), shutdownSignals()...)
	defer stop()

	svc, closeFn, err := newService(ctx, config.ModeFiles)
	if err != nil {
		return err
	}
	defer closeFn()

	ui.VerboseLog("Reviewing %s", strings.Join(paths, ", "))
	res, err := svc.ReviewPaths(ctx, paths...)
	if err != nil {
		return err
	}
	return printResult(res, svc.Thresholds())
}

// printResult writes the result and returns the run's error, if any, so
// failed reviews exit non-zero.
func printResult(res *review.Result, th models.Thresholds) error {
	if jsonOutput {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		fmt.Fprintln(ui.Out, string(data))
	} else {
		ui.ReviewSummary(res, th)
		rec := res.Record
		if showReport && rec.Report != nil {
			if err := ui.Markdown(report.Markdown(rec.ReportInput(th), *rec.Report)); err != nil {
				return err
			}
		}
	}
	if err := res.Err(); err != nil {
		return fmt.Errorf("review failed: %w", err)
	}
	return nil
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
