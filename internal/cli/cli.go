package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/burstflow/internal/app"
	"github.com/specialistvlad/burstflow/internal/flowerr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: 2, Message: err.Error()}
}

// exitError maps an application error to an exit code: 2 for validation
// failures, 1 otherwise.
func exitError(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	if errors.Is(err, flowerr.ErrValidation) {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	return &ExitError{Code: 1, Message: err.Error()}
}

// Execute runs the command line given by args. A nil args means no
// arguments, never os.Args.
func Execute(ctx context.Context, args []string, outW, errW io.Writer) error {
	if args == nil {
		args = []string{}
	}
	root := NewRootCommand(outW, errW)
	root.SetArgs(args)
	return exitError(root.ExecuteContext(ctx))
}

// NewRootCommand builds the command tree. Results go to outW, logs and help
// go to errW.
func NewRootCommand(outW, errW io.Writer) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("BURSTFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "burstflow",
		Short: "Resolve and plan declarative job and batch flows.",
		Long: `burstflow loads live (interactive job) and batch (pipeline) flows written
in HCL or YAML, validates them and prints their resolved form.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageError(fmt.Errorf("unknown command %q for %q", args[0], "burstflow"))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return v.BindPFlags(cmd.Flags())
		},
	}
	root.SetOut(errW)
	root.SetErr(errW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	pf := root.PersistentFlags()
	pf.StringP("flow", "f", "", "Path to the flow file (or directory, for validate).")
	pf.String("workspace", "", "Root for relative local paths. Defaults to the flow file's directory.")
	pf.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	pf.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.StringP("output", "o", "yaml", "Result format. Options: 'yaml' or 'json'.")
	pf.Int("workers", 10, "Number of concurrent workers used to resolve nodes.")

	newApp := func(args []string) (*app.App, error) {
		cfg, err := buildConfig(v, args)
		if err != nil {
			return nil, err
		}
		return app.NewApp(outW, errW, cfg), nil
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "validate [PATH]",
			Short: "Check every flow file under PATH.",
			Args:  maxArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := newApp(args)
				if err != nil {
					return err
				}
				reports, err := a.Validate(cmd.Context())
				if reports != nil {
					if werr := a.Write(reports); werr != nil {
						return werr
					}
				}
				return err
			},
		},
		&cobra.Command{
			Use:   "order [PATH]",
			Short: "Print the stages of a batch flow.",
			Args:  maxArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := newApp(args)
				if err != nil {
					return err
				}
				order, err := a.Order(cmd.Context())
				if err != nil {
					return err
				}
				return a.Write(order)
			},
		},
		&cobra.Command{
			Use:   "inspect NODE_ID [PATH]",
			Short: "Print the resolved form of one job or batch.",
			Args: func(_ *cobra.Command, args []string) error {
				if len(args) < 1 || len(args) > 2 {
					return usageError(fmt.Errorf("accepts between 1 and 2 arg(s), received %d", len(args)))
				}
				return nil
			},
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := newApp(args[1:])
				if err != nil {
					return err
				}
				node, err := a.Inspect(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.Write(node)
			},
		},
		newPlanCommand(newApp),
	)
	return root
}

func newPlanCommand(newApp func([]string) (*app.App, error)) *cobra.Command {
	var fail []string
	cmd := &cobra.Command{
		Use:   "plan [PATH]",
		Short: "Resolve every node of a flow in execution order.",
		Args:  maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(args)
			if err != nil {
				return err
			}
			p, err := a.Plan(cmd.Context(), app.PlanOptions{Fail: fail})
			if err != nil {
				return err
			}
			return a.Write(p)
		},
	}
	cmd.Flags().StringSliceVar(&fail, "fail", nil, "Real ids whose run is simulated as failed.")
	return cmd
}

func maxArgs(n int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) > n {
			return usageError(fmt.Errorf("accepts at most %d arg(s), received %d", n, len(args)))
		}
		return nil
	}
}

// buildConfig merges flags, environment and the positional path into an
// app.Config.
func buildConfig(v *viper.Viper, args []string) (*app.Config, error) {
	slog.Debug("Building configuration.")
	path := v.GetString("flow")
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return nil, &ExitError{Code: 2, Message: "no flow path given: pass PATH or --flow"}
	}

	logFormat := strings.ToLower(v.GetString("log-format"))
	if logFormat != "text" && logFormat != "json" {
		return nil, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(v.GetString("log-level"))
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	cfg, err := app.NewConfig(app.Config{
		FlowPath:    path,
		Workspace:   v.GetString("workspace"),
		LogFormat:   logFormat,
		LogLevel:    logLevel,
		Output:      strings.ToLower(v.GetString("output")),
		WorkerCount: v.GetInt("workers"),
	})
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Configuration built.", "config", cfg)
	return cfg, nil
}
