package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dxresults/dxresults/internal/config"
	"github.com/dxresults/dxresults/internal/domain/diagnostictest"
	"github.com/dxresults/dxresults/internal/export"
	"github.com/dxresults/dxresults/internal/platform/db"
	"github.com/dxresults/dxresults/internal/seed"
	"github.com/dxresults/dxresults/pkg/client"
)

// withService loads config, opens the configured store and hands a service
// to fn, closing the store afterwards.
func withService(fn func(ctx context.Context, cfg *config.Config, st *store, svc *diagnostictest.Service) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx := context.Background()
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	return fn(ctx, cfg, st, diagnostictest.NewService(st.repo))
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			return withService(func(ctx context.Context, cfg *config.Config, st *store, _ *diagnostictest.Service) error {
				out := cmd.OutOrStdout()
				switch {
				case st.pool != nil:
					if dir == "" {
						dir = cfg.MigrationsDir
					}
					count, err := db.NewMigrator(st.pool, dir).Up(ctx)
					if err != nil {
						return fmt.Errorf("migration failed: %w", err)
					}
					fmt.Fprintf(out, "Applied %d migration(s) successfully.\n", count)
				case st.gdb != nil:
					if err := st.gdb.WithContext(ctx).AutoMigrate(&diagnostictest.DiagnosticTest{}); err != nil {
						return fmt.Errorf("migration failed: %w", err)
					}
					fmt.Fprintf(out, "Table %s is up to date.\n", diagnostictest.TableName)
				default:
					fmt.Fprintln(out, "Nothing to migrate for the memory store.")
				}
				return nil
			})
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			return withService(func(ctx context.Context, cfg *config.Config, st *store, _ *diagnostictest.Service) error {
				out := cmd.OutOrStdout()
				switch {
				case st.pool != nil:
					if dir == "" {
						dir = cfg.MigrationsDir
					}
					statuses, err := db.NewMigrator(st.pool, dir).Status(ctx)
					if err != nil {
						return fmt.Errorf("failed to get migration status: %w", err)
					}
					printStatuses(out, statuses)
				case st.gdb != nil:
					state := "missing"
					if st.gdb.WithContext(ctx).Migrator().HasTable(&diagnostictest.DiagnosticTest{}) {
						state = "present"
					}
					fmt.Fprintf(out, "Table %s: %s\n", diagnostictest.TableName, state)
				default:
					fmt.Fprintln(out, "The memory store has no schema.")
				}
				return nil
			})
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func printStatuses(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func dbcheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dbcheck",
		Short: "Check that the configured store is reachable and queryable",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(ctx context.Context, cfg *config.Config, _ *store, svc *diagnostictest.Service) error {
				ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
				defer cancel()

				if err := svc.CheckStorage(ctx); err != nil {
					return fmt.Errorf("database connection failed: %w", err)
				}
				tests, err := svc.ListDiagnosticTests(ctx, diagnostictest.ListOptions{})
				if err != nil {
					return fmt.Errorf("database query failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Database connection successful (%s, %d record(s)).\n", cfg.StoreDriver, len(tests))
				return nil
			})
		},
	}
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert fixture records through the validator",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")

			payloads := seed.Default()
			if file != "" {
				var err error
				if payloads, err = seed.LoadFile(file); err != nil {
					return err
				}
			}

			return withService(func(ctx context.Context, cfg *config.Config, _ *store, svc *diagnostictest.Service) error {
				rep, err := seed.Run(ctx, svc, payloads, newLogger(cfg))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, r := range rep.Rejected {
					fmt.Fprintf(out, "skipped entry %d: %v\n", r.Index, r.Errors)
				}
				fmt.Fprintf(out, "Seeded %d record(s), skipped %d.\n", len(rep.Created), len(rep.Rejected))
				return nil
			})
		},
	}
	cmd.Flags().String("file", "", "YAML fixtures file (default: one sample record)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every record to an xlsx workbook, newest test date first",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			return withService(func(ctx context.Context, _ *config.Config, _ *store, svc *diagnostictest.Service) error {
				tests, err := svc.ListDiagnosticTests(ctx, diagnostictest.ListOptions{OrderByTestDateDesc: true})
				if err != nil {
					return err
				}
				if err := export.WriteFile(out, tests); err != nil {
					return fmt.Errorf("export: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d record(s) to %s.\n", len(tests), out)
				return nil
			})
		},
	}
	cmd.Flags().String("out", "diagnostic-tests.xlsx", "Output file")
	return cmd
}

func clientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Call a running server over HTTP",
	}
	cmd.PersistentFlags().String("url", envOr("DXRESULTS_URL", "http://localhost:8000"), "Server base URL")
	cmd.PersistentFlags().Duration("timeout", 15*time.Second, "Request timeout")
	cmd.PersistentFlags().Int("retry", 0, "Retries on connection failures")

	newClient := func(cmd *cobra.Command) *client.Client {
		url, opts := clientOptions(cmd)
		return client.New(url, opts...)
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			byDate, _ := cmd.Flags().GetBool("order-by-date")
			tests, err := newClient(cmd).List(cmd.Context(), byDate)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), tests)
		},
	}
	listCmd.Flags().Bool("order-by-date", false, "Newest test date first")
	cmd.AddCommand(listCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Fetch one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := newClient(cmd).Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), t)
		},
	})

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := inputFromFlags(cmd)
			if err != nil {
				return err
			}
			t, err := newClient(cmd).Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), t)
		},
	}
	addInputFlags(createCmd)
	cmd.AddCommand(createCmd)

	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace a record's fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := inputFromFlags(cmd)
			if err != nil {
				return err
			}
			t, err := newClient(cmd).Update(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), t)
		},
	}
	addInputFlags(updateCmd)
	cmd.AddCommand(updateCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := newClient(cmd).Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), t)
		},
	})

	return cmd
}

func clientOptions(cmd *cobra.Command) (string, []client.Option) {
	url, _ := cmd.Flags().GetString("url")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	retry, _ := cmd.Flags().GetInt("retry")

	opts := []client.Option{client.WithTimeout(timeout)}
	if retry > 0 {
		opts = append(opts, client.WithRetry(retry))
	}
	return url, opts
}

func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().String("patient", "", "Patient name")
	cmd.Flags().String("type", "", "Test type")
	cmd.Flags().String("result", "", "Test result")
	cmd.Flags().String("date", "", "Test date (RFC 3339, YYYY-MM-DD, YYYY/MM/DD or \"Jan 2 2006\")")
	cmd.Flags().String("notes", "", "Free-text notes")
}

func inputFromFlags(cmd *cobra.Command) (client.Input, error) {
	var in client.Input
	in.PatientName, _ = cmd.Flags().GetString("patient")
	in.TestType, _ = cmd.Flags().GetString("type")
	in.Result, _ = cmd.Flags().GetString("result")

	if date, _ := cmd.Flags().GetString("date"); date != "" {
		t, err := diagnostictest.ParseTestDate(date)
		if err != nil {
			return in, fmt.Errorf("--date: %w", err)
		}
		in.TestDate = &t
	}
	if cmd.Flags().Changed("notes") {
		notes, _ := cmd.Flags().GetString("notes")
		in.Notes = &notes
	}
	return in, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
