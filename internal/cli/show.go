package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hostcomply/hostcomply/internal/check"
	"github.com/hostcomply/hostcomply/internal/loader"
	"github.com/hostcomply/hostcomply/internal/termfmt"
)

// showCmd renders the loaded checks
var showCmd = &cobra.Command{
	Use:   "show <policy> [solutions]",
	Short: "Print the checks a policy would run",
	Long: `Loads a policy document and prints every check in full: rules in
evaluation order, compliance mappings, references and the attached
remediation tree.`,
	Args:         cobra.RangeArgs(1, 2),
	RunE:         runShow,
	SilenceUsage: true,
}

var (
	showChecksFlag            []int
	showAllowPrivateHostsFlag bool
)

func init() {
	showCmd.Flags().IntSliceVar(&showChecksFlag, "checks", nil, "Only show these check ids")
	showCmd.Flags().BoolVar(&showAllowPrivateHostsFlag, "allow-private-hosts", false,
		"Allow policy URLs that resolve to private/internal networks")
}

// GetShowCmd export
func GetShowCmd() *cobra.Command {
	return showCmd
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	loaderConfig := loader.DefaultConfig()
	loaderConfig.AllowPrivateHosts = showAllowPrivateHostsFlag

	policy, err := loader.LoadPolicy(ctx, args[0], loaderConfig)
	if err != nil {
		return err
	}

	entries := loadSolutionEntries(ctx, cmd, args, loaderConfig)
	loader.ResolveSolutions(policy, entries)

	run, err := check.NewRun(policy, showChecksFlag, &consoleReporter{out: out})
	if err != nil {
		return err
	}

	fmt.Fprintln(out, termfmt.Note(policy.Policy.Name))
	for _, c := range run.Checks {
		fmt.Fprintln(out, strings.Repeat("-", 64))
		fmt.Fprintln(out, c.Describe())
	}
	return nil
}
