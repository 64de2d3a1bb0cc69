package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/lucq/internal/lucene/parser"
	"github.com/roach88/lucq/internal/store"
)

// SavedOptions holds flags shared by the saved query commands.
type SavedOptions struct {
	*RootOptions
	Store       string
	Description string
}

// NewSavedCommand creates the saved command and its subcommands.
func NewSavedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SavedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "saved",
		Short: "Manage saved queries referenced by @include",
		Long: `Manage the saved query store.

Saved queries are named fragments of query text that other queries
reference as @include:name. The store defaults to include_store from the
configuration.`,
	}
	cmd.PersistentFlags().StringVar(&opts.Store, "store", "", "saved query database (overrides include_store)")

	put := &cobra.Command{
		Use:           "put <name> <query>",
		Short:         "Create or replace a saved query",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSavedPut(opts, args[0], args[1], cmd)
		},
	}
	put.Flags().StringVarP(&opts.Description, "description", "d", "", "description of the saved query")

	get := &cobra.Command{
		Use:           "get <name>",
		Short:         "Print a saved query",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSavedGet(opts, args[0], cmd)
		},
	}

	list := &cobra.Command{
		Use:           "list",
		Short:         "List saved queries by name",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSavedList(opts, cmd)
		},
	}

	del := &cobra.Command{
		Use:           "delete <name>",
		Short:         "Delete a saved query",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSavedDelete(opts, args[0], cmd)
		},
	}

	cmd.AddCommand(put, get, list, del)
	return cmd
}

// openStore opens the --store database or the configured include store.
func (o *SavedOptions) openStore(formatter *OutputFormatter) (*store.Store, error) {
	path := o.Store
	if path == "" {
		cfg, err := o.loadConfig()
		if err != nil {
			return nil, formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
		}
		path = cfg.Path(cfg.IncludeStore)
	}
	if path == "" {
		return nil, formatter.Fail(ExitCommandError, ErrCodeUsage, "no saved query store: pass --store or set include_store", nil)
	}
	formatter.VerboseLog("Using saved query store %s", path)

	st, err := store.Open(path)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	return st, nil
}

func runSavedPut(opts *SavedOptions, name, text string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	// Reject text that could never be included.
	if _, err := parser.Parse(text); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeInvalidQuery, fmt.Sprintf("invalid query: %v", err), nil)
	}

	st, err := opts.openStore(formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	saved, err := st.Put(cmd.Context(), store.SavedQuery{Name: name, Text: text, Description: opts.Description})
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(saved)
	}
	return formatter.Success(fmt.Sprintf("✓ Saved %s (revision %d)", saved.Name, saved.Revision))
}

func runSavedGet(opts *SavedOptions, name string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := opts.openStore(formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	saved, err := st.Get(cmd.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		return formatter.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("saved query not found: %s", name), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(saved)
	}
	return formatter.Success(saved.Text)
}

func runSavedList(opts *SavedOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := opts.openStore(formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	all, err := st.List(cmd.Context())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	if formatter.Format == "json" {
		if all == nil {
			all = []store.SavedQuery{}
		}
		return formatter.Success(all)
	}

	w := formatter.Writer
	if len(all) == 0 {
		fmt.Fprintln(w, "No saved queries")
		return nil
	}
	for _, q := range all {
		if q.Description != "" {
			fmt.Fprintf(w, "%s\t%s\t# %s\n", q.Name, q.Text, q.Description)
		} else {
			fmt.Fprintf(w, "%s\t%s\n", q.Name, q.Text)
		}
	}
	return nil
}

func runSavedDelete(opts *SavedOptions, name string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := opts.openStore(formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	err = st.Delete(cmd.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		return formatter.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("saved query not found: %s", name), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	if formatter.Format == "json" {
		return formatter.Success(map[string]string{"deleted": name})
	}
	return formatter.Success(fmt.Sprintf("✓ Deleted %s", name))
}
