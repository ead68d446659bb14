package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hostcomply/hostcomply/internal/observability"
	"github.com/hostcomply/hostcomply/internal/observability/logging"
	otelobs "github.com/hostcomply/hostcomply/internal/observability/otel"
	"github.com/hostcomply/hostcomply/internal/observability/report"
	"github.com/hostcomply/hostcomply/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "hostcomply",
	Short: "Host compliance checker with guided remediation",
	Long: `hostcomply evaluates compliance policies against the local host.
Loads a YAML policy of rule-based checks, reports which pass, fail or do
not apply, and walks the operator through interactive remediation of the
failures.`,
	Version:           version.BuildVersion(),
	SilenceUsage:      true,
	PersistentPreRunE: setupObservability,
	PersistentPostRun: teardownObservability,
}

var (
	logFormatFlag       string
	logLevelFlag        string
	logOutputFlag       string
	otelFlag            bool
	otelEndpointFlag    string
	otelProtocolFlag    string
	otelInsecureFlag    bool
	otelSampleRatioFlag float64
	reportFlag          string
	reportModeFlag      string
)

// Closers for whatever setupObservability opened.
var (
	activeLogger logging.Logger
	activeOtel   *otelobs.Handle
	activeReport report.Writer
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&logFormatFlag, "log-format", "pretty", "Log format: pretty or jsonl")
	pf.StringVar(&logLevelFlag, "log-level", "info", "Log level: debug, info, warn, or error")
	pf.StringVar(&logOutputFlag, "log-output", "stderr", "Log output: stderr or a file path")
	pf.BoolVar(&otelFlag, "otel", false, "Enable OpenTelemetry tracing")
	pf.StringVar(&otelEndpointFlag, "otel-endpoint", "", "OTLP endpoint (default from OTEL_EXPORTER_OTLP_ENDPOINT)")
	pf.StringVar(&otelProtocolFlag, "otel-protocol", otelobs.ProtocolHTTP, "OTLP protocol: otlphttp or otlpgrpc")
	pf.BoolVar(&otelInsecureFlag, "otel-insecure", false, "Allow insecure OTLP connections")
	pf.Float64Var(&otelSampleRatioFlag, "otel-sample-ratio", 1.0, "Trace sampling ratio (0..1)")
	pf.StringVar(&reportFlag, "report", "", "Write a JSON run report to this path")
	pf.StringVar(&reportModeFlag, "report-mode", "overwrite", "Report write mode: overwrite or append")

	rootCmd.AddCommand(GetRunCmd())
	rootCmd.AddCommand(GetLintCmd())
	rootCmd.AddCommand(GetShowCmd())
}

func setupObservability(cmd *cobra.Command, args []string) error {
	ctx := observability.WithOpID(cmd.Context())

	logger, err := logging.NewLogger(logging.Config{
		Format: logFormatFlag,
		Level:  logLevelFlag,
		Output: logOutputFlag,
	})
	if err != nil {
		return fmt.Errorf("logging setup failed: %w", err)
	}
	activeLogger = logger
	ctx = logging.WithLogger(ctx, logger)

	if otelFlag {
		cfg := otelobs.DefaultConfig()
		cfg.Enabled = true
		cfg.Endpoint = otelEndpointFlag
		cfg.Protocol = otelProtocolFlag
		cfg.Insecure = otelInsecureFlag
		cfg.SampleRatio = otelSampleRatioFlag
		handle, err := otelobs.Init(ctx, cfg)
		if err != nil {
			return fmt.Errorf("otel setup failed: %w", err)
		}
		activeOtel = handle
		ctx = otelobs.WithHandle(ctx, handle)
	}

	if reportFlag != "" {
		w, err := report.NewWriter(reportFlag, reportModeFlag)
		if err != nil {
			return err
		}
		activeReport = w
		ctx = report.WithWriter(ctx, w)
	}

	cmd.SetContext(ctx)
	return nil
}

func teardownObservability(cmd *cobra.Command, args []string) {
	if activeReport != nil {
		_ = activeReport.Close()
	}
	if activeOtel != nil && activeOtel.Shutdown != nil {
		_ = activeOtel.Shutdown(cmd.Context())
	}
	if activeLogger != nil {
		_ = activeLogger.Close()
	}
}
