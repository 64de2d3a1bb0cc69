package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/lucq/internal/lucene/validation"
	"github.com/roach88/lucq/internal/querysql"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Mode    string
	Target  string
	Dialect string
	Table   string
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <query>",
		Short: "Compile a query into an Elasticsearch body or SQL",
		Long: `Compile Lucene query text and print the rendered result.

The --mode flag selects how the text is read: a scoring query, a filter,
an aggregation expression such as "terms:(category~10 avg:price)", or a
sort expression such as "-created name".

An invalid query prints its validation issues and exits with code 1.`,
		Example: `  lucq compile 'status:active AND age:>30'
  lucq compile --mode filter --target sql --dialect postgres 'tags:go*'
  lucq compile --mode aggregations 'terms:category~5'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Mode, "mode", "m", "query", "query type (query|filter|aggregations|sort)")
	cmd.Flags().StringVarP(&opts.Target, "target", "t", TargetElastic, "render target (elastic|sql)")
	cmd.Flags().StringVar(&opts.Dialect, "dialect", "", "SQL dialect (sqlite|postgres), overrides sql.dialect")
	cmd.Flags().StringVar(&opts.Table, "table", "", "SQL table, overrides sql.table")

	return cmd
}

func runCompile(opts *CompileOptions, text string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	qt, err := parseMode(opts.Mode)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeUsage, err.Error(), nil)
	}
	target, err := parseTarget(opts.Target)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeUsage, err.Error(), nil)
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}
	if opts.Dialect != "" {
		if _, err := querysql.ParseDialect(opts.Dialect); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeUsage, err.Error(), nil)
		}
		cfg.SQL.Dialect = opts.Dialect
	}
	if opts.Table != "" {
		cfg.SQL.Table = opts.Table
	}
	formatter.VerboseLog("Compiling %s for %s", qt, target)

	ctx := cmd.Context()
	s, err := openSession(ctx, cfg, newLogger(formatter.GetErrWriter(), opts.Verbose, cfg.Logging))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}
	defer s.close()

	out, err := s.render(ctx, qt, target, text)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCompile, err.Error(), nil)
	}

	if !out.Validation.IsValid() {
		return outputInvalid(formatter, out.Validation.Issues)
	}
	return formatter.Success(out)
}

// outputInvalid reports validation issues and returns the invalid query
// exit error.
func outputInvalid(formatter *OutputFormatter, issues []validation.Issue) error {
	msg := fmt.Sprintf("invalid query: %d issue(s)", len(issues))
	if formatter.Format != "json" {
		fmt.Fprintf(formatter.Writer, "✗ %s\n", msg)
		for _, issue := range issues {
			fmt.Fprintf(formatter.Writer, "  %v\n", issue)
		}
		return NewExitError(ExitFailure, msg)
	}
	return formatter.Fail(ExitFailure, ErrCodeInvalidQuery, msg, issues)
}
