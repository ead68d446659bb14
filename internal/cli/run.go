package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hostcomply/hostcomply/internal/check"
	"github.com/hostcomply/hostcomply/internal/hostprobe"
	"github.com/hostcomply/hostcomply/internal/loader"
	"github.com/hostcomply/hostcomply/internal/models"
	"github.com/hostcomply/hostcomply/internal/observability"
	"github.com/hostcomply/hostcomply/internal/observability/logging"
	otelobs "github.com/hostcomply/hostcomply/internal/observability/otel"
	"github.com/hostcomply/hostcomply/internal/observability/report"
	"github.com/hostcomply/hostcomply/internal/prompt"
	"github.com/hostcomply/hostcomply/internal/rule"
	"github.com/hostcomply/hostcomply/internal/solution"
	"github.com/hostcomply/hostcomply/internal/termfmt"
)

// runCmd evaluates a policy against the local host
var runCmd = &cobra.Command{
	Use:   "run <policy> [solutions]",
	Short: "Evaluate a policy against this host",
	Long: `Loads a policy document, evaluates its checks against the local host
and offers to apply the available remediations for the failures.

The policy and solutions arguments accept local paths or http(s) URLs.
When no solutions document is given, one is looked up next to the
policy under <policy>_solutions.<ext>; a missing solutions document is
not an error.

Examples:
  # Evaluate a local policy as root
  sudo hostcomply run cis_debian10.yml

  # Evaluate only two checks, with an explicit solutions file
  sudo hostcomply run cis_debian10.yml cis_fixes.yml --checks 1,4

  # Non-interactive run with a JSON report
  sudo hostcomply run cis_debian10.yml --yes --report run.json`,
	Args:         cobra.RangeArgs(1, 2),
	RunE:         runRun,
	SilenceUsage: true,
}

var (
	runChecksFlag            []int
	runCommandTimeoutFlag    time.Duration
	runYesFlag               bool
	runAllowNonRootFlag      bool
	runAllowPrivateHostsFlag bool
)

func init() {
	runCmd.Flags().IntSliceVar(&runChecksFlag, "checks", nil, "Only evaluate these check ids")
	runCmd.Flags().DurationVar(&runCommandTimeoutFlag, "command-timeout", hostprobe.DefaultCommandTimeout,
		"Timeout for rule command probes")
	runCmd.Flags().BoolVarP(&runYesFlag, "yes", "y", false, "Answer yes to every confirmation")
	runCmd.Flags().BoolVar(&runAllowNonRootFlag, "allow-non-root", false,
		"Run without root privileges (checks that read protected files will fail)")
	runCmd.Flags().BoolVar(&runAllowPrivateHostsFlag, "allow-private-hosts", false,
		"Allow policy URLs that resolve to private/internal networks")
}

// GetRunCmd export
func GetRunCmd() *cobra.Command {
	return runCmd
}

func runRun(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	source := args[0]

	sess := report.Start(ctx, source)
	var reportOpts []report.Option
	defer func() {
		_ = sess.Finish(err, reportOpts...)
	}()

	log := logging.From(ctx)
	start := time.Now()

	// Start OTel span if enabled
	if h := otelobs.From(ctx); h != nil {
		var span trace.Span
		ctx, span = h.Tracer.Start(ctx, "hostcomply.run",
			trace.WithAttributes(
				attribute.String("hostcomply.op_id", observability.OpID(ctx)),
				attribute.String("hostcomply.command", "run"),
				attribute.String("hostcomply.policy", source),
			))
		defer func() {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed")
			} else {
				span.SetStatus(codes.Ok, "success")
			}
			span.End()
		}()
	}

	log.Event(ctx, "run.start", map[string]any{"policy": source})

	var resultStatus string
	defer func() {
		log.Event(ctx, "run.complete", map[string]any{
			"duration_ms": time.Since(start).Milliseconds(),
			"result":      resultStatus,
		})
	}()

	if os.Geteuid() != 0 && !runAllowNonRootFlag {
		resultStatus = "fail"
		return errors.New("root privileges required; rerun with sudo (or --allow-non-root)")
	}

	out := cmd.OutOrStdout()
	prompter := prompt.New()
	prompter.AssumeYes = runYesFlag
	reporter := &consoleReporter{out: out}

	loaderConfig := loader.DefaultConfig()
	loaderConfig.AllowPrivateHosts = runAllowPrivateHostsFlag

	fmt.Fprintln(out, "Loading rules ...")
	policy, err := loader.LoadPolicy(ctx, source, loaderConfig)
	if err != nil {
		resultStatus = "fail"
		return err
	}
	reportOpts = append(reportOpts, report.WithPolicy(policy.Policy))

	entries := loadSolutionEntries(ctx, cmd, args, loaderConfig)
	loader.ResolveSolutions(policy, entries)

	fmt.Fprintln(out, termfmt.Note(strings.Repeat("=", 32)+" "+policy.Policy.ID+" "+strings.Repeat("=", 32)))
	fmt.Fprintln(out, termfmt.Note(policy.Policy.Name))
	fmt.Fprintln(out, termfmt.Note(termfmt.Wrap(policy.Policy.Description, termfmt.DefaultWidth)))

	prober := &hostprobe.Host{CommandTimeout: runCommandTimeoutFlag}

	// Requirements gate
	requirements, err := rule.NewSet(0, policy.Requirements.Condition, policy.Requirements.Rules, reporter)
	if err != nil {
		resultStatus = "fail"
		return err
	}
	if requirements.Eval(ctx, prober, reporter) != rule.ResultTrue {
		fmt.Fprintln(out, termfmt.Error("Requirements not satisfied"))
		resultStatus = "fail"
		return errors.New("requirements not satisfied")
	}

	run, err := check.NewRun(policy, runChecksFlag, reporter)
	if err != nil {
		resultStatus = "fail"
		return err
	}
	fmt.Fprintln(out, termfmt.Success("Loaded all rules"))

	ok, err := prompter.Confirm("Checking", "Start Checks?")
	if err != nil || !ok {
		resultStatus = "declined"
		if errors.Is(err, prompt.ErrAborted) {
			err = nil
		}
		return err
	}

	run.EvaluateAll(ctx, prober, reporter)
	reportOpts = append(reportOpts, report.WithRun(run))

	fmt.Fprintln(out, "\n\nCheck Report")
	fmt.Fprintln(out, termfmt.Success("[    PASSED    ]"), len(run.Passed()))
	fmt.Fprintln(out, termfmt.Error("[    FAILED    ]"), len(run.Failed()))
	fmt.Fprintln(out, termfmt.Muted("[NOT APPLICABLE]"), len(run.NotApplicable()))
	fmt.Fprintln(out)

	solutions := run.AvailableSolutions()
	fmt.Fprintln(out, termfmt.Success("[   SOLUTIONS  ]"), len(solutions))

	if len(solutions) > 0 {
		ok, confirmErr := prompter.Confirm("Solutions", "Apply Available Solutions?")
		if confirmErr == nil && ok {
			env := &solution.HostEnv{
				Host:             prober,
				Prompter:         prompter,
				Out:              out,
				OnRebootRequired: run.SetRebootRequired,
			}
			for _, c := range solutions {
				if applyErr := c.ApplySolution(ctx, env, prober, reporter, out); applyErr != nil {
					if errors.Is(applyErr, prompt.ErrAborted) {
						break
					}
					fmt.Fprintln(out, termfmt.Error(fmt.Sprintf("Solution for check %d failed: %v", c.ID, applyErr)))
				}
			}
		}
	}

	if run.RebootRequired() {
		fmt.Fprintln(out, termfmt.Blink("Reboot is required"))
	}

	resultStatus = "success"
	if len(run.Failed()) > 0 {
		resultStatus = "fail"
	}

	log.Event(ctx, "run.summary", map[string]any{
		"passed":          len(run.Passed()),
		"failed":          len(run.Failed()),
		"not_applicable":  len(run.NotApplicable()),
		"reboot_required": run.RebootRequired(),
	})

	return nil
}

// loadSolutionEntries loads the explicit or derived solutions document.
// A failure here is not fatal: the run continues without remediations.
func loadSolutionEntries(ctx context.Context, cmd *cobra.Command, args []string, config loader.Config) []models.SolutionEntry {
	out := cmd.OutOrStdout()

	source := ""
	if len(args) > 1 {
		source = args[1]
		fmt.Fprintln(out, termfmt.Note("Solutions path: "+source))
	} else {
		source = loader.SolutionsPathFor(args[0])
		fmt.Fprintln(out, termfmt.Note("Solutions path not specified. Will be detected automatically"))
	}

	entries, err := loader.LoadSolutions(ctx, source, config)
	if err != nil {
		fmt.Fprintln(out, termfmt.Style("Error loading solutions", "31", "5"))
		return nil
	}
	return entries
}
