package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/lucq/internal/lucene/validation"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Mode string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <query>",
		Short: "Validate a query without rendering it",
		Long: `Validate query text against the configured validation policy.

Reports syntax errors, restricted fields and operations, node depth and
the fields and includes the query references. Exits with code 1 when the
query is invalid.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Mode, "mode", "m", "query", "query type (query|filter|aggregations|sort)")

	return cmd
}

func runValidate(opts *ValidateOptions, text string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	qt, err := parseMode(opts.Mode)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeUsage, err.Error(), nil)
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, cfg, newLogger(formatter.GetErrWriter(), opts.Verbose, cfg.Logging))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}
	defer s.close()

	result, err := s.compiler.Validate(ctx, qt, text)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCompile, err.Error(), nil)
	}

	if formatter.Format == "json" {
		if !result.IsValid() {
			return formatter.Fail(ExitFailure, ErrCodeInvalidQuery,
				fmt.Sprintf("invalid query: %d issue(s)", len(result.Issues)), result)
		}
		return formatter.Success(result)
	}

	if !result.IsValid() {
		return outputInvalid(formatter, result.Issues)
	}
	outputValidateText(formatter, result)
	return nil
}

func outputValidateText(formatter *OutputFormatter, result *validation.Result) {
	w := formatter.Writer
	fmt.Fprintln(w, "✓ Query is valid")
	if fields := result.ReferencedFields.Sorted(); len(fields) > 0 {
		fmt.Fprintf(w, "  fields: %s\n", strings.Join(fields, ", "))
	}
	if includes := result.ReferencedIncludes.Sorted(); len(includes) > 0 {
		fmt.Fprintf(w, "  includes: %s\n", strings.Join(includes, ", "))
	}
	if unresolved := result.UnresolvedFields.Sorted(); len(unresolved) > 0 {
		fmt.Fprintf(w, "  unresolved: %s\n", strings.Join(unresolved, ", "))
	}
	fmt.Fprintf(w, "  depth: %d\n", result.MaxNodeDepth)
}
