package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/everstacklabs/apkforge/internal/apkfile"
	"github.com/everstacklabs/apkforge/internal/cache"
	"github.com/everstacklabs/apkforge/internal/config"
	"github.com/everstacklabs/apkforge/internal/patch"
	"github.com/everstacklabs/apkforge/internal/pipeline"
)

var cfgFile string

func main() {
	// A missing .env is fine; explicit environment always wins.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "apkforge",
		Short: "APK patching automation",
		Long:  "Fetches the patching toolchain, acquires APKs, and drives interactive patch selection and application.",
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	rootCmd.AddCommand(
		buildCmd(),
		patchesCmd(),
		fetchCmd(),
		inspectCmd(),
		doctorCmd(),
		cleanCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(pipeline.ExitError)
	}
}

func buildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Full workflow: fetch toolchain, acquire APK, select and apply patches",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			opts := pipeline.BuildOptions{}
			opts.APK, _ = cmd.Flags().GetString("apk")
			opts.Source, _ = cmd.Flags().GetString("source")
			opts.Query, _ = cmd.Flags().GetString("query")
			opts.Extra, _ = cmd.Flags().GetStringSlice("engine-arg")
			opts.Run, _ = cmd.Flags().GetBool("run")
			if cmd.Flags().Changed("exclusive") {
				cfg.Patching.Exclusive, _ = cmd.Flags().GetBool("exclusive")
			}
			if cmd.Flags().Changed("include-universal") {
				cfg.Patching.IncludeUniversal, _ = cmd.Flags().GetBool("include-universal")
			}

			code, err := pipeline.New(cfg).Build(cmd.Context(), opts)
			if err != nil {
				slog.Error("build failed", "error", err)
			}
			if code != pipeline.ExitSuccess {
				os.Exit(code)
			}
			return nil
		},
	}

	cmd.Flags().String("apk", "", "Input APK path (skips acquisition)")
	cmd.Flags().String("source", "local", "APK source when --apk is not given (local, mirror)")
	cmd.Flags().String("query", "", "App name to search for on the mirror")
	cmd.Flags().StringSlice("engine-arg", nil, "Extra argument passed through to the patch engine")
	cmd.Flags().Bool("run", false, "Execute the engine instead of only printing the command")
	cmd.Flags().Bool("exclusive", true, "Apply only the selected patches")
	cmd.Flags().Bool("include-universal", false, "Keep patches with no package scope when filtering")

	return cmd
}

func patchesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patches",
		Short: "List available patches",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			pkg, _ := cmd.Flags().GetString("package")
			format, _ := cmd.Flags().GetString("format")

			records, err := pipeline.New(cfg).Patches(cmd.Context(), pkg)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("no patches")
				os.Exit(pipeline.ExitNoPatches)
			}

			switch format {
			case "table":
				renderTable(records)
			case "yaml":
				if err := renderYAML(records); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown format %q (want table or yaml)", format)
			}
			return nil
		},
	}

	cmd.Flags().String("package", "", "Only patches compatible with this package id")
	cmd.Flags().String("format", "table", "Output format: table or yaml")

	return cmd
}

func fetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Download the patching toolchain",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			tc, err := pipeline.New(cfg).FetchToolchain(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("cli:        %s\n", tc.CLIJar)
			fmt.Printf("patches:    %s\n", tc.BundleJar)
			fmt.Printf("merge tool: %s\n", tc.MergeJar)
			return nil
		},
	}
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <apk>",
		Short: "Print package id and version of an APK",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(); err != nil {
				return err
			}

			info, err := apkfile.DetectPackage(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Print(formatInfo(info))
			return nil
		},
	}
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the local environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if code := pipeline.New(cfg).Doctor(cmd.Context()); code != pipeline.ExitSuccess {
				os.Exit(code)
			}
			return nil
		},
	}
}

func cleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Delete cached toolchain artifacts and HTTP responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := cache.OpenArtifacts(filepath.Join(cfg.CacheDir, "artifacts"))
			if err != nil {
				return fmt.Errorf("opening artifact store: %w", err)
			}
			if err := store.Purge(); err != nil {
				return fmt.Errorf("purging artifacts: %w", err)
			}
			fmt.Printf("purged %s\n", store.Dir())

			httpDir := filepath.Join(cfg.CacheDir, "http")
			if err := os.RemoveAll(httpDir); err != nil {
				return fmt.Errorf("clearing HTTP cache: %w", err)
			}
			fmt.Printf("purged %s\n", httpDir)
			return nil
		},
	}
}

func formatInfo(info *apkfile.Info) string {
	var b strings.Builder
	fmt.Fprintf(&b, "package:      %s\n", info.Package)
	if info.VersionName != "" {
		fmt.Fprintf(&b, "version name: %s\n", info.VersionName)
	}
	if info.VersionCode != 0 {
		fmt.Fprintf(&b, "version code: %d\n", info.VersionCode)
	}
	return b.String()
}

func renderTable(records []*patch.Record) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tNAME\tPACKAGES\tOPTIONS")
	for _, r := range records {
		idx := "-"
		if r.HasIndex() {
			idx = fmt.Sprintf("%d", *r.Index)
		}
		pkgs := "(universal)"
		if len(r.Packages) > 0 {
			pkgs = strings.Join(r.Packages, ", ")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", idx, r.Name, pkgs, len(r.Options))
	}
	w.Flush()
	fmt.Printf("\nTotal: %d patches\n", len(records))
}

type patchView struct {
	Index     *int      `yaml:"index,omitempty"`
	Name      string    `yaml:"name"`
	Enabled   *bool     `yaml:"enabled,omitempty"`
	Universal bool      `yaml:"universal"`
	Packages  []string  `yaml:"packages,omitempty"`
	Options   []optView `yaml:"options,omitempty"`
}

type optView struct {
	Key      string   `yaml:"key"`
	Type     string   `yaml:"type,omitempty"`
	Default  *string  `yaml:"default,omitempty"`
	Values   []string `yaml:"possible_values,omitempty"`
	Required *bool    `yaml:"required,omitempty"`
}

func renderYAML(records []*patch.Record) error {
	views := make([]patchView, 0, len(records))
	for _, r := range records {
		v := patchView{
			Index:     r.Index,
			Name:      r.Name,
			Enabled:   r.Enabled,
			Universal: r.Universal,
			Packages:  r.Packages,
		}
		for _, o := range r.Options {
			v.Options = append(v.Options, optView{
				Key:      o.Key,
				Type:     o.Type,
				Default:  o.Default,
				Values:   o.PossibleValues,
				Required: o.Required,
			})
		}
		views = append(views, v)
	}

	out, err := yaml.Marshal(views)
	if err != nil {
		return fmt.Errorf("rendering patches: %w", err)
	}
	os.Stdout.Write(out)
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	setupLogging(cfg.LogLevel)
	return cfg, nil
}

func setupLogging(level string) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}
