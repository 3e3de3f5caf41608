package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nimburion/docmanager/pkg/app"
	"github.com/nimburion/docmanager/pkg/config"
	"github.com/nimburion/docmanager/pkg/controller"
	"github.com/nimburion/docmanager/pkg/manager"
	"github.com/nimburion/docmanager/pkg/repository/document"
	"github.com/nimburion/docmanager/pkg/server"
	"github.com/nimburion/docmanager/pkg/version"
)

// withApp loads the configuration, opens the application for the duration
// of fn and releases it afterwards.
func withApp(cmd *cobra.Command, flags *rootFlags, fn func(context.Context, *app.App) error) error {
	cfg, log, closeLog, err := flags.load(cmd)
	if err != nil {
		return err
	}
	defer closeLog()

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	runErr := fn(cmd.Context(), a)
	if err := a.Close(); err != nil {
		log.Warn("closing application", "error", err)
	}
	return runErr
}

func newServeCommand(flags *rootFlags) *cobra.Command {
	var shutdownHookTimeout time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured collections over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(_ context.Context, a *app.App) error {
				return server.RunWithSignals(server.RunOptions{
					App:                 a,
					ShutdownHookTimeout: shutdownHookTimeout,
				})
			})
		},
	}
	cmd.Flags().DurationVar(&shutdownHookTimeout, "shutdown-hook-timeout", 10*time.Second, "timeout for shutdown hooks")
	return cmd
}

type listFlags struct {
	query   string
	page    int
	perPage int
	sortBy  string
	order   string
	filters []string
	group   string
}

func newListCommand(flags *rootFlags) *cobra.Command {
	lf := &listFlags{}
	cmd := &cobra.Command{
		Use:   "list <collection>",
		Short: "List a page of documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := parseFilterFlags(lf.filters)
			if err != nil {
				return err
			}
			opts := manager.ListOptions{Filters: filters}
			fs := cmd.Flags()
			if fs.Changed("query") {
				opts.Query = lf.query
			}
			if fs.Changed("page") {
				opts.Page = lf.page
			}
			if fs.Changed("per-page") {
				opts.ItemsPerPage = lf.perPage
			}
			if fs.Changed("sort-by") {
				opts.SortBy = manager.NormalizeFieldName(lf.sortBy)
			}
			if fs.Changed("order") {
				opts.SortDir = lf.order
			}

			return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
				m, err := a.Collection(args[0])
				if err != nil {
					return err
				}
				page, err := m.Documents(ctx, manager.NoRequest, opts)
				if err != nil {
					return err
				}
				resp := controller.ListResponse{
					Items:        page.Items,
					Page:         page.Page,
					ItemsPerPage: page.ItemsPerPage,
					TotalCount:   page.TotalCount,
				}
				if lf.group != "" {
					match, err := manager.NewQuery().Where(filters...).Filter()
					if err != nil {
						return err
					}
					results, err := m.CountByGroup(ctx, manager.NoRequest, manager.NormalizeFieldName(lf.group), manager.GroupOptions{Match: match, Query: opts.Query})
					if err != nil {
						return err
					}
					resp.Groups = manager.SortedGroupCounts(results)
				}
				return writeOutput(cmd.OutOrStdout(), flags.format(), resp)
			})
		},
	}
	f := cmd.Flags()
	f.StringVarP(&lf.query, "query", "q", "", "free-text search term")
	f.IntVar(&lf.page, "page", 1, "page number, starting at 1")
	f.IntVar(&lf.perPage, "per-page", 0, "documents per page")
	f.StringVar(&lf.sortBy, "sort-by", "", "sort field")
	f.StringVar(&lf.order, "order", "", "sort direction (asc, desc)")
	addFilterFlag(cmd, &lf.filters)
	f.StringVar(&lf.group, "group", "", "also count documents per value of this field")
	return cmd
}

func newCountCommand(flags *rootFlags) *cobra.Command {
	var (
		query   string
		filters []string
	)
	cmd := &cobra.Command{
		Use:   "count <collection>",
		Short: "Count matching documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clauses, err := parseFilterFlags(filters)
			if err != nil {
				return err
			}
			opts := manager.CountOptions{Filters: clauses}
			if query != "" {
				opts.Query = query
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
				m, err := a.Collection(args[0])
				if err != nil {
					return err
				}
				n, err := m.Count(ctx, manager.NoRequest, opts)
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), flags.format(), controller.CountResponse{Count: n})
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "free-text search term")
	addFilterFlag(cmd, &filters)
	return cmd
}

func newGroupCommand(flags *rootFlags) *cobra.Command {
	var (
		query   string
		filters []string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "group <collection> <field>",
		Short: "Count documents per value of a field, largest first",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return errors.New("--limit must not be negative")
			}
			clauses, err := parseFilterFlags(filters)
			if err != nil {
				return err
			}
			match, err := manager.NewQuery().Where(clauses...).Filter()
			if err != nil {
				return err
			}
			opts := manager.GroupOptions{
				Match: match,
				Sort:  []document.Sort{{Field: "count", Order: document.SortDesc}, {Field: "_id", Order: document.SortAsc}},
				Limit: limit,
			}
			if query != "" {
				opts.Query = query
			}
			field := manager.NormalizeFieldName(args[1])
			return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
				m, err := a.Collection(args[0])
				if err != nil {
					return err
				}
				results, err := m.CountByGroup(ctx, manager.NoRequest, field, opts)
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), flags.format(), controller.GroupResponse{
					Field:  field,
					Groups: manager.SortedGroupCounts(results),
				})
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "free-text search term")
	cmd.Flags().IntVar(&limit, "limit", 0, "keep only the largest groups (0 keeps all)")
	addFilterFlag(cmd, &filters)
	return cmd
}

func newFindCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "find <collection> <id>",
		Short: "Print one document by identifier",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
				m, err := a.Collection(args[0])
				if err != nil {
					return err
				}
				doc, err := m.Find(ctx, args[1])
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), flags.format(), doc)
			})
		},
	}
}

func newConfigCommand(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "validate",
			Short: "Validate configuration and collection settings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, _, closeLog, err := flags.load(cmd)
				if err != nil {
					return err
				}
				defer closeLog()
				if err := validateCollections(cfg); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "configuration is valid (%d collections)\n", len(cfg.Collections))
				return err
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration with secrets redacted",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, _, closeLog, err := flags.load(cmd)
				if err != nil {
					return err
				}
				defer closeLog()
				return writeOutput(cmd.OutOrStdout(), flags.format(), cfg.Redacted())
			},
		},
	)
	return cmd
}

// validateCollections builds every manager configuration without opening
// any backend.
func validateCollections(cfg *config.Config) error {
	var errs []error
	for _, cc := range cfg.Collections {
		if _, err := cc.ManagerConfig(); err != nil {
			errs = append(errs, fmt.Errorf("collection %s: %w", cc.Name, err))
		}
	}
	return errors.Join(errs...)
}

func newVersionCommand(name string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Current(name)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, info.String())
			if built, ok := info.ParseBuildTime(); ok {
				fmt.Fprintf(out, "built %s\n", built.UTC().Format(time.RFC3339))
			}
			return nil
		},
	}
}

func addFilterFlag(cmd *cobra.Command, target *[]string) {
	cmd.Flags().StringArrayVarP(target, "filter", "f", nil, "filter as field=value or field[op]=value (repeatable)")
}

// parseFilterFlags turns field=value and field[op]=value flags into the
// clauses the HTTP filter parameters produce.
func parseFilterFlags(raw []string) (manager.Filters, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	values := url.Values{}
	for _, f := range raw {
		key, value, ok := strings.Cut(f, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q: expected field=value or field[op]=value", f)
		}
		field, op, hasOp := strings.Cut(key, "[")
		if hasOp {
			if !strings.HasSuffix(op, "]") {
				return nil, fmt.Errorf("invalid filter %q: unterminated operator", f)
			}
			key = "filter[" + field + "][" + strings.TrimSuffix(op, "]") + "]"
		} else {
			key = "filter[" + field + "]"
		}
		values.Add(key, value)
	}
	return controller.ParseFilters(values)
}
