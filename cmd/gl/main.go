package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gearline/internal/app"
	"gearline/internal/config"
	"gearline/internal/domain"
	"gearline/internal/engine"
	"gearline/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "gl",
	Short: "Gearline CLI",
	Long: `Gearline restores a profile's equipment tree from a captured snapshot,
applied per container slot with rollback on any failure. The workspace holds
the snapshot store, the audit log, and gearline.yml.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("GEARLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("store", "file", "snapshot store kind (file|sqlite)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("store", rootCmd.PersistentFlags().Lookup("store"))
}

func registerCommands() {
	rootCmd.AddCommand(restoreCmd())
	rootCmd.AddCommand(snapshotCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(versionCmd())
}

func withApp(fn func(ctx context.Context, a *app.Context) error) error {
	a, err := app.Build(app.Options{
		Workspace: viper.GetString("workspace"),
		StoreKind: viper.GetString("store"),
	})
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(context.Background(), a)
}

func restoreCmd() *cobra.Command {
	var identity, profilePath string
	var write bool
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Apply the stored snapshot to a profile file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.Context) error {
				records, err := readProfile(profilePath)
				if err != nil {
					return err
				}
				outcome := a.Engine.TryRestore(ctx, identity, &records)
				if write && outcome.Succeeded {
					if err := writeProfile(profilePath, records); err != nil {
						return fmt.Errorf("write profile: %w", err)
					}
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"outcome": outcome, "records": records})
				}
				renderOutcome(outcome)
				if !outcome.Succeeded {
					return fmt.Errorf("restore failed: %s", outcome.ErrorMessage)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&identity, "identity", "", "identity key")
	cmd.Flags().StringVar(&profilePath, "profile", "", "profile records JSON file")
	cmd.Flags().BoolVar(&write, "write", false, "write the mutated collection back to the profile file")
	_ = cmd.MarkFlagRequired("identity")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

func snapshotCmd() *cobra.Command {
	snap := &cobra.Command{Use: "snapshot", Short: "Manage stored snapshots"}
	snap.AddCommand(snapshotListCmd())
	snap.AddCommand(snapshotShowCmd())
	snap.AddCommand(snapshotDeleteCmd())
	snap.AddCommand(snapshotImportCmd())
	return snap
}

func snapshotListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List identities with a stored snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.Context) error {
				lister, ok := a.Engine.Store.(server.Lister)
				if !ok {
					return fmt.Errorf("store does not support listing")
				}
				keys, err := lister.List()
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(keys)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Identity", "Size (bytes)"})
				for _, k := range keys {
					size, err := a.Engine.Store.SizeOf(k)
					if err != nil {
						size = -1
					}
					tw.AppendRow(table.Row{k, size})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func snapshotShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <identity>",
		Short: "Print the raw snapshot payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.Context) error {
				data, err := a.Engine.Store.Read(args[0])
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			})
		},
	}
}

func snapshotDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <identity>",
		Short: "Discard the stored snapshot for an identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.Context) error {
				a.Engine.ClearSnapshot(ctx, args[0])
				return nil
			})
		},
	}
}

func snapshotImportCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import <identity>",
		Short: "Store a snapshot payload for an identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.Context) error {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				return a.Engine.Store.Put(args[0], data)
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "snapshot JSON file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Workspace configuration"}
	cfg.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, warnings, err := config.Load(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			for _, w := range warnings {
				fmt.Fprintln(os.Stderr, "warning:", w)
			}
			if viper.GetBool("json") {
				return printJSON(c)
			}
			out, err := c.ToYAML()
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	})
	cfg.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default gearline.yml into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			out, err := config.Default().ToYAML()
			if err != nil {
				return err
			}
			return os.WriteFile(path, out, 0o644)
		},
	})
	return cfg
}

func logCmd() *cobra.Command {
	var limit int
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Show recent restoration attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.Context) error {
				items, err := a.Events.Tail(ctx, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"TS", "Type", "Identity", "Payload"})
				for _, e := range items {
					tw.AppendRow(table.Row{e.TS, e.Type, e.Identity, e.Payload})
				}
				tw.Render()
				return nil
			})
		},
	}
	tail.Flags().IntVarP(&limit, "limit", "n", 20, "number of events")
	log := &cobra.Command{Use: "log", Short: "Audit log"}
	log.AddCommand(tail)
	return log
}

func serveCmd() *cobra.Command {
	var addr, basePath, jwtSecret string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the restoration API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.Context) error {
				handler, err := server.New(server.Config{
					Engine:   a.Engine,
					BasePath: basePath,
					Auth:     server.AuthConfig{JWTSecret: jwtSecret},
				})
				if err != nil {
					return err
				}
				srv := &http.Server{
					Addr:              addr,
					Handler:           handler,
					ReadHeaderTimeout: 5 * time.Second,
				}
				fmt.Println("listening on", addr)
				return srv.ListenAndServe()
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8787", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().StringVar(&jwtSecret, "jwt-secret", "", "HS256 secret; empty disables auth")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the running version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(engine.ModVersion)
		},
	}
}

// readProfile accepts either a bare JSON array of records or an object with
// a "records" field.
func readProfile(path string) ([]domain.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []domain.Record
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}
	var wrapped struct {
		Records []domain.Record `json:"records"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return wrapped.Records, nil
}

func writeProfile(path string, records []domain.Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func renderOutcome(outcome domain.RestoreOutcome) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Succeeded", "Added", "Duplicates", "Non-managed", "Error"})
	tw.AppendRow(table.Row{outcome.Succeeded, outcome.ItemsAdded, outcome.DuplicatesSkipped, outcome.NonManagedSkipped, outcome.ErrorMessage})
	tw.Render()
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
