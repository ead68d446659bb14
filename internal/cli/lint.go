package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hostcomply/hostcomply/internal/check"
	"github.com/hostcomply/hostcomply/internal/loader"
	"github.com/hostcomply/hostcomply/internal/rule"
	"github.com/hostcomply/hostcomply/internal/termfmt"
)

// lintCmd validates a policy without touching the host
var lintCmd = &cobra.Command{
	Use:   "lint <policy> [solutions]",
	Short: "Validate a policy document without running it",
	Long: `Parses a policy document and its solutions, reporting every rule that
does not parse, every malformed solution and every structural problem.
Nothing is executed against the host.`,
	Args:         cobra.RangeArgs(1, 2),
	RunE:         runLint,
	SilenceUsage: true,
}

var lintAllowPrivateHostsFlag bool

func init() {
	lintCmd.Flags().BoolVar(&lintAllowPrivateHostsFlag, "allow-private-hosts", false,
		"Allow policy URLs that resolve to private/internal networks")
}

// GetLintCmd export
func GetLintCmd() *cobra.Command {
	return lintCmd
}

func runLint(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	loaderConfig := loader.DefaultConfig()
	loaderConfig.AllowPrivateHosts = lintAllowPrivateHostsFlag

	policy, err := loader.LoadPolicy(ctx, args[0], loaderConfig)
	if err != nil {
		return err
	}

	entries := loadSolutionEntries(ctx, cmd, args, loaderConfig)
	loader.ResolveSolutions(policy, entries)

	reporter := &consoleReporter{out: out}

	if _, err := rule.NewSet(0, policy.Requirements.Condition, policy.Requirements.Rules, reporter); err != nil {
		return fmt.Errorf("requirements: %w", err)
	}
	run, err := check.NewRun(policy, nil, reporter)
	if err != nil {
		return err
	}

	problems := reporter.parseErrors + reporter.solutionErrors
	fmt.Fprintf(out, "%d checks, %d rule parse errors, %d solution errors\n",
		len(run.Checks), reporter.parseErrors, reporter.solutionErrors)
	if problems > 0 {
		return fmt.Errorf("%d problems in %s", problems, args[0])
	}

	fmt.Fprintln(out, termfmt.Success("Policy is valid"))
	return nil
}
