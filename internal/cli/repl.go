package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/roach88/lucq/internal/config"
	"github.com/roach88/lucq/internal/lucene/ast"
)

const (
	replPrompt  = "lucq> "
	historyFile = ".lucq_history"
)

// replWords are offered by tab completion.
var replWords = []string{
	":mode", ":target", ":metrics", ":help", ":quit",
	"query", "filter", "aggregations", "sort", "elastic", "sql",
	"AND", "OR", "NOT", "TO", "_exists_:", "_missing_:", "@include:",
}

// ReplOptions holds flags for the repl command.
type ReplOptions struct {
	*RootOptions
	Watch bool
}

// NewReplCommand creates the repl command.
func NewReplCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Compile queries interactively",
		Long: `Start an interactive session that compiles each line typed.

Commands:
  :mode <query|filter|aggregations|sort>   change how lines are read
  :target <elastic|sql>                    change the render target
  :metrics                                 print pipeline metrics
  :help                                    list commands
  :quit                                    leave (Ctrl+D works too)

With --watch the configuration file is reloaded whenever it changes.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(opts, cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "reload the configuration file when it changes")

	return cmd
}

// repl holds the interactive state. Lines are evaluated one at a time; the
// session may be replaced concurrently by a configuration reload.
//
// Thread-safety model:
//   - mu guards sess; eval holds the read lock for the whole compilation,
//     reload swaps under the write lock and closes the old session after.
//   - mode and target are only touched by the evaluating goroutine.
//   - Once closed, a late reload closes its new session instead.
type repl struct {
	mu     sync.RWMutex
	sess   *session
	closed bool
	logger *slog.Logger

	format string
	mode   ast.QueryType
	target string
}

func newRepl(sess *session, format string, logger *slog.Logger) *repl {
	return &repl{
		sess:   sess,
		logger: logger,
		format: format,
		mode:   ast.TypeQuery,
		target: TargetElastic,
	}
}

// reload opens a session for cfg and swaps it in. On failure the current
// session is kept.
func (r *repl) reload(ctx context.Context, cfg *config.Config) error {
	next, err := openSession(ctx, cfg, r.logger)
	if err != nil {
		r.logger.Error("keeping previous configuration", "error", err)
		return err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return next.close()
	}
	prev := r.sess
	r.sess = next
	r.mu.Unlock()

	return prev.close()
}

func (r *repl) close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.sess.close()
}

// eval handles one input line and reports whether the session should end.
func (r *repl) eval(ctx context.Context, line string, out io.Writer) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, ":") {
		return r.command(line, out)
	}

	r.mu.RLock()
	res, err := r.sess.render(ctx, r.mode, r.target, line)
	r.mu.RUnlock()
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return false
	}

	formatter := &OutputFormatter{Format: r.format, Writer: out}
	if !res.Validation.IsValid() {
		// The exit error only matters to one-shot commands.
		_ = outputInvalid(formatter, res.Validation.Issues)
		return false
	}
	if err := formatter.Success(res); err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
	}
	return false
}

// command runs a :command line.
func (r *repl) command(line string, out io.Writer) bool {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	switch name {
	case ":quit", ":q", ":exit":
		return true

	case ":help", ":h":
		fmt.Fprintln(out, "Commands: :mode <query|filter|aggregations|sort>, :target <elastic|sql>, :metrics, :help, :quit")

	case ":mode":
		if len(args) != 1 {
			fmt.Fprintf(out, "mode: %s\n", r.mode)
			return false
		}
		qt, err := parseMode(args[0])
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			return false
		}
		r.mode = qt
		fmt.Fprintf(out, "mode: %s\n", r.mode)

	case ":target":
		if len(args) != 1 {
			fmt.Fprintf(out, "target: %s\n", r.target)
			return false
		}
		target, err := parseTarget(args[0])
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			return false
		}
		r.target = target
		fmt.Fprintf(out, "target: %s\n", r.target)

	case ":metrics":
		r.mu.RLock()
		err := writeMetrics(r.sess, out)
		r.mu.RUnlock()
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}

	default:
		fmt.Fprintf(out, "unknown command %s (try :help)\n", name)
	}
	return false
}

// writeMetrics prints the session's counters and histogram sample counts,
// one series per line in name order.
func writeMetrics(s *session, out io.Writer) error {
	families, err := s.registry.Gather()
	if err != nil {
		return err
	}

	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			series := mf.GetName()
			if len(labels) > 0 {
				series += "{" + strings.Join(labels, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				lines = append(lines, fmt.Sprintf("%s %g", series, m.GetCounter().GetValue()))
			case m.GetHistogram() != nil:
				lines = append(lines, fmt.Sprintf("%s count=%d sum=%g", series,
					m.GetHistogram().GetSampleCount(), m.GetHistogram().GetSampleSum()))
			}
		}
	}
	sort.Strings(lines)

	if len(lines) == 0 {
		fmt.Fprintln(out, "no metrics recorded yet")
		return nil
	}
	for _, l := range lines {
		fmt.Fprintln(out, l)
	}
	return nil
}

func runRepl(opts *ReplOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	if opts.Watch && opts.Config == "" {
		return formatter.Fail(ExitCommandError, ErrCodeUsage, "--watch requires --config", nil)
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}
	logger := newLogger(formatter.GetErrWriter(), opts.Verbose, cfg.Logging)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sess, err := openSession(ctx, cfg, logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}
	r := newRepl(sess, opts.Format, logger)
	defer r.close()

	if opts.Watch {
		go func() {
			err := config.Watch(ctx, opts.Config, logger, func(cfg *config.Config) {
				if r.reload(ctx, cfg) == nil {
					fmt.Fprintln(formatter.GetErrWriter(), "configuration reloaded")
				}
			})
			if err != nil {
				logger.Error("configuration watcher stopped", "error", err)
			}
		}()
	}

	return r.loop(ctx, cmd.OutOrStdout())
}

// loop reads lines with liner until :quit or end of input.
func (r *repl) loop(ctx context.Context, out io.Writer) error {
	line := liner.NewLiner()
	defer line.Close()

	// Enable Ctrl+C to abort current line
	line.SetCtrlCAborts(true)
	line.SetCompleter(completions)

	history := filepath.Join(os.TempDir(), historyFile)
	if f, err := os.Open(history); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(history); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintln(out, "lucq repl - :help for commands, Ctrl+D to quit")
	for {
		input, err := line.Prompt(replPrompt)
		switch {
		case errors.Is(err, liner.ErrPromptAborted):
			fmt.Fprintln(out, "^C")
			continue
		case errors.Is(err, io.EOF):
			fmt.Fprintln(out)
			return nil
		case err != nil:
			return WrapExitError(ExitCommandError, "reading input", err)
		}

		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}
		if r.eval(ctx, input, out) {
			return nil
		}
	}
}

// completions returns the words that complete the last token of input.
func completions(input string) []string {
	start := strings.LastIndexAny(input, " (") + 1
	prefix, word := input[:start], input[start:]
	if word == "" {
		return nil
	}

	var out []string
	for _, w := range replWords {
		if strings.HasPrefix(w, word) {
			out = append(out, prefix+w)
		}
	}
	return out
}
