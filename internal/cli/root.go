package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode"

	"github.com/specialistvlad/pipecheck/internal/app"
	"github.com/specialistvlad/pipecheck/internal/dataid"
	"github.com/specialistvlad/pipecheck/internal/validate"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by viper, e.g.
// PIPECHECK_LOG_LEVEL or PIPECHECK_REPORT_URL.
const EnvPrefix = "PIPECHECK"

// persistentFlag binds a root flag to a viper key.
type persistentFlag struct {
	key  string
	flag string
}

var boundFlags = []persistentFlag{
	{key: "log.level", flag: "log-level"},
	{key: "log.format", flag: "log-format"},
	{key: "processes", flag: "processes"},
	{key: "doraise", flag: "doraise"},
	{key: "metrics_file", flag: "metrics-file"},
	{key: "healthcheck_port", flag: "healthcheck-port"},
	{key: "report.url", flag: "report-url"},
	{key: "report.namespace", flag: "report-namespace"},
	{key: "report.insecure_skip_verify", flag: "report-insecure"},
}

// Execute parses args, runs the selected task and maps every outcome to nil
// or an *ExitError.
func Execute(ctx context.Context, out io.Writer, args []string) error {
	v := viper.New()
	root := newRootCmd(out, v)
	root.SetArgs(normalizeIDArgs(args))

	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	// Anything cobra rejects on its own is a usage error.
	return usageError(err)
}

func newRootCmd(out io.Writer, v *viper.Viper) *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:   "pipecheck",
		Short: "Validate calibration and CCD-processing products in a data repository.",
		Long: `pipecheck runs sanity checks against pipeline data products.

Each check logs OK or FAIL; the process exits 1 if any check failed and 2 on
usage errors. Flags may also be set through PIPECHECK_* environment variables
or a config file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cfgPath == "" {
				return nil
			}
			v.SetConfigFile(cfgPath)
			if err := v.ReadInConfig(); err != nil {
				return usageError(fmt.Errorf("failed to read config file: %w", err))
			}
			slog.Debug("Config file loaded.", "path", v.ConfigFileUsed())
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(out)

	pf := root.PersistentFlags()
	pf.StringVarP(&cfgPath, "config", "c", "", "Config file (yaml, json or toml).")
	pf.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	pf.IntP("processes", "j", 1, "Number of data references validated concurrently.")
	pf.Bool("doraise", false, "Abort on the first data reference that cannot be processed.")
	pf.String("metrics-file", "", "Write Prometheus metrics to this file when the run ends.")
	pf.Int("healthcheck-port", 0, "Port serving /health and /metrics during the run. 0 is disabled.")
	pf.String("report-url", "", "socket.io endpoint receiving check results. Empty disables reporting.")
	pf.String("report-namespace", "/", "socket.io namespace for result events.")
	pf.Bool("report-insecure", false, "Skip TLS certificate verification for --report-url.")

	bindConfig(v, pf)

	root.AddCommand(newCalibValidationCmd(out, v), newProcessCcdValidationCmd(out, v))
	return root
}

// bindConfig makes every bound flag resolvable through v with the
// precedence flag > environment > config file > flag default.
func bindConfig(v *viper.Viper, fs *pflag.FlagSet) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for _, b := range boundFlags {
		// Lookup cannot fail for flags registered in newRootCmd.
		_ = v.BindPFlag(b.key, fs.Lookup(b.flag))
	}
}

// runTask builds the application from the merged configuration and runs task.
func runTask(ctx context.Context, out io.Writer, v *viper.Viper, repoPath string, ids []string, task validate.Task) error {
	selectors, err := dataid.ParseAll(ids)
	if err != nil {
		return usageError(err)
	}

	cfg, err := app.NewConfig(app.Config{
		RepoPath:                 repoPath,
		Selectors:                selectors,
		LogLevel:                 v.GetString("log.level"),
		LogFormat:                v.GetString("log.format"),
		Processes:                v.GetInt("processes"),
		DoRaise:                  v.GetBool("doraise"),
		MetricsFile:              v.GetString("metrics_file"),
		HealthcheckPort:          v.GetInt("healthcheck_port"),
		ReportURL:                v.GetString("report.url"),
		ReportNamespace:          v.GetString("report.namespace"),
		ReportInsecureSkipVerify: v.GetBool("report.insecure_skip_verify"),
	})
	if err != nil {
		return usageError(err)
	}
	slog.Debug("CLI configuration resolved.", "config", cfg)

	a, err := app.NewApp(out, cfg)
	if err != nil {
		return usageError(err)
	}

	if err := a.Run(ctx, task); err != nil {
		return &ExitError{Code: ExitFailed, Message: err.Error()}
	}
	return nil
}

// normalizeIDArgs folds the traditional "--id visit=1 ccd=2" spelling, where
// one selector spans several tokens, into "--id=visit=1 ccd=2". Only tokens
// whose key is a bare identifier are folded, so a REPO such as /data/run=3
// stays positional; a relative REPO named like a term must be written as
// ./run=3.
func normalizeIDArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			out = append(out, args[i:]...)
			break
		}
		if arg != "--id" {
			out = append(out, arg)
			continue
		}

		var terms []string
		for i+1 < len(args) && isTerm(args[i+1]) {
			i++
			terms = append(terms, args[i])
		}
		if len(terms) == 0 {
			// Leave it to cobra to report the missing value.
			out = append(out, arg)
			continue
		}
		out = append(out, "--id="+strings.Join(terms, " "))
	}
	return out
}

func isTerm(arg string) bool {
	key, _, ok := strings.Cut(arg, "=")
	if !ok || key == "" {
		return false
	}
	for _, r := range key {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
