package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kokistudios/metamagic/internal/bundle"
	"github.com/kokistudios/metamagic/internal/catalog"
	"github.com/kokistudios/metamagic/internal/fixture"
	"github.com/kokistudios/metamagic/internal/query"
	"github.com/kokistudios/metamagic/internal/record"
	"github.com/kokistudios/metamagic/internal/report"
	"github.com/kokistudios/metamagic/internal/store"
	"github.com/kokistudios/metamagic/internal/ui"
)

// Set via ldflags at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

func buildVersion() string {
	if commit == "none" {
		return version
	}
	return fmt.Sprintf("%s (%s, %s)", version, commit, date)
}

// exitError carries a process exit code other than 1.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func main() {
	os.Exit(execute(newRootCmd()))
}

// execute runs root and returns the process exit code. Errors other than
// exitError are printed to the command's error stream.
func execute(root *cobra.Command) int {
	err := root.Execute()
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
	return 1
}

func newRootCmd() *cobra.Command {
	var noColor bool
	var logLevel string
	var dir, device, fixturePath string

	rootCmd := &cobra.Command{
		Use:   "metamagic",
		Short: "metamagic: video metadata sidecar toolkit",
		Long: `Load JSON video metadata sidecar files from a directory, filter them by device,
sort them by capture time, and generate synthetic fixture files.

Run without a subcommand to list the configured device's records, print capture
start times before and after sorting, and write one fixture file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ui.Init(noColor)
			s, err := store.LoadOrDefault(store.Home())
			if err != nil {
				ui.Logger.Warn("using default configuration", "err", err)
				s = defaultStore()
			}
			level := s.Config.Log.Level
			if logLevel != "" {
				level = logLevel
			}
			if err := ui.SetLevel(level); err != nil {
				ui.Logger.Warn("falling back to info", "err", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s := loadStore()
			return runDefault(cmd, s.Config, dir, device, fixturePath)
		},
	}

	rootCmd.Version = buildVersion()
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")
	rootCmd.Flags().StringVar(&dir, "dir", "", "Metadata directory (default from config)")
	rootCmd.Flags().StringVar(&device, "device", "", "Device ID to list (default from config)")
	rootCmd.Flags().StringVar(&fixturePath, "fixture", "", "Fixture output path (default from config)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "records", Title: "Record Commands:"},
		&cobra.Group{ID: "bundle", Title: "Bundle Commands:"},
		&cobra.Group{ID: "config", Title: "Configuration:"},
	)

	for _, c := range []*cobra.Command{listCmd(), showCmd(), fixtureCmd(), reportCmd()} {
		c.GroupID = "records"
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{exportCmd(), importCmd()} {
		c.GroupID = "bundle"
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{initCmd(), configCmd(), doctorCmd()} {
		c.GroupID = "config"
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(completionCmd())

	return rootCmd
}

// loadStore reads METAMAGIC_HOME. A config.yaml that cannot be read or parsed
// yields the defaults so that doctor, init and config set stay usable; the
// pre-run hook has already warned about it.
func loadStore() *store.Store {
	s, err := store.LoadOrDefault(store.Home())
	if err != nil {
		return defaultStore()
	}
	return s
}

func defaultStore() *store.Store {
	return &store.Store{Home: store.Home(), Config: store.DefaultConfig()}
}

// orDefault returns flag unless it is empty.
func orDefault(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}

// loadDir loads every document of dir and logs the entries it had to skip.
func loadDir(dir string) (*catalog.Result, error) {
	res, err := catalog.LoadAll(dir)
	if err != nil {
		return nil, err
	}
	for _, sk := range res.Skipped {
		ui.Logger.Warn("skipped metadata entry", "path", sk.Path, "err", sk.Err)
	}
	ui.Logger.Debug("loaded metadata", "dir", dir, "records", len(res.Records), "skipped", len(res.Skipped))
	return res, nil
}

func runDefault(cmd *cobra.Command, cfg store.Config, dir, device, fixturePath string) error {
	out := cmd.OutOrStdout()
	dir = orDefault(dir, cfg.Metadata.Dir)
	device = orDefault(device, cfg.Metadata.Device)
	fixturePath = orDefault(fixturePath, cfg.Fixture.Path)

	res, err := loadDir(dir)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Listing all metadata files from device ID: %s\n", device)
	for _, r := range query.FilterByDevice(device, res.Records) {
		fmt.Fprintf(out, "%s\n\n", r)
	}

	fmt.Fprintln(out, "Sorting metadata files by capture start times:")
	fmt.Fprintln(out, "Pre sorted:")
	for _, r := range res.Records {
		fmt.Fprintln(out, r.CaptureStart)
	}

	fmt.Fprintln(out, "\n\nPost sorted:")
	for _, r := range query.SortByCaptureStart(res.Records) {
		fmt.Fprintln(out, r.CaptureStart)
		fmt.Fprintln(out, r.CaptureTime().Format(timeLayout))
	}

	written, err := fixture.NewWriter().Write(fixturePath)
	if err != nil {
		return err
	}
	ui.Logger.Debug("wrote fixture", "path", fixturePath, "capture_start", written.CaptureStart)
	return nil
}

func listCmd() *cobra.Command {
	var dir, device string
	var sorted, strict, asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List metadata records in a directory",
		Long:  "Load every document in the metadata directory, optionally keep one device's records and sort them by capture start. Entries that fail to load are reported and skipped.",
		Example: `  metamagic list
  metamagic list --dir ./metadata --device 1fc0c10b0a534202 --sort
  metamagic list --json > records.jsonl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := loadStore()
			dir = orDefault(dir, s.Config.Metadata.Dir)

			res, err := loadDir(dir)
			if err != nil {
				return err
			}
			if strict && len(res.Records) == 0 && len(res.Skipped) > 0 {
				return fmt.Errorf("no records loaded from %s (%d entries skipped)", dir, len(res.Skipped))
			}

			records := res.Records
			if device != "" {
				records = query.FilterByDevice(device, records)
			}
			if sorted {
				records = query.SortByCaptureStart(records)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				for _, r := range records {
					data, err := record.Encode(r)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, string(data))
				}
				return nil
			}

			if len(records) == 0 {
				ui.EmptyState(fmt.Sprintf("No records in %s.", dir))
				return nil
			}
			var rows [][]string
			for _, r := range records {
				rows = append(rows, []string{
					r.DeviceID,
					r.LoggerID,
					fmt.Sprintf("%d", r.CaptureStart),
					r.CaptureTime().Format(timeLayout),
					fmt.Sprintf("%d", r.FrameRate),
					r.Format,
					fmt.Sprintf("%dx%d", r.ResolutionHeight, r.ResolutionWidth),
				})
			}
			ui.Table(out, []string{"DEVICE", "LOGGER", "CAPTURE START", "CAPTURED AT", "FPS", "FORMAT", "RESOLUTION"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Metadata directory (default from config)")
	cmd.Flags().StringVar(&device, "device", "", "Only list records from this device ID")
	cmd.Flags().BoolVar(&sorted, "sort", false, "Sort by capture start")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when entries exist but none could be loaded")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print one JSON document per line")
	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "show <file>",
		Short:   "Display one metadata document",
		Example: "  metamagic show metadata/capture-0001.json",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := catalog.LoadOne(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), r)
			return nil
		},
	}
}

func fixtureCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "fixture [path]",
		Short: "Write a synthetic metadata document",
		Long:  "Write one synthetic metadata document stamped with the current time. The tick is the capture start rounded to the nearest 10 seconds.",
		Example: `  metamagic fixture
  metamagic fixture metadata/faux.json --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := loadStore()
			path := s.Config.Fixture.Path
			if len(args) == 1 {
				path = args[0]
			}

			if _, err := os.Stat(path); err == nil && !force {
				if !ui.IsInteractive() {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
				proceed, err := ui.Confirm(fmt.Sprintf("Overwrite %s?", path))
				if err != nil {
					return err
				}
				if !proceed {
					ui.Info("Cancelled.")
					return nil
				}
			}

			r, err := fixture.NewWriter().Write(path)
			if err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Wrote fixture %s", path))
			ui.KeyValue("Capture Start:", fmt.Sprintf("%d", r.CaptureStart))
			ui.KeyValue("Tick:         ", fmt.Sprintf("%d", r.Tick))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file without asking")
	return cmd
}

func reportCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize a metadata directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := loadStore()
			res, err := catalog.LoadAll(orDefault(dir, s.Config.Metadata.Dir))
			if err != nil {
				return err
			}
			ui.RenderMarkdown(cmd.OutOrStdout(), report.Markdown(res))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Metadata directory (default from config)")
	return cmd
}

func exportCmd() *cobra.Command {
	var dir, device string
	var sorted bool
	cmd := &cobra.Command{
		Use:   "export [output]",
		Short: "Export metadata records to a portable .mmb bundle",
		Long: `Export the records of a metadata directory to a gzip-compressed bundle.

The bundle holds one canonical JSON document per record and a manifest.
Entries that fail to load are skipped and reported.`,
		Example: `  metamagic export
  metamagic export ~/Desktop/cam1.mmb --device 1fc0c10b0a534202 --sort`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := loadStore()
			dir = orDefault(dir, s.Config.Metadata.Dir)
			outPath := ""
			if len(args) == 1 {
				outPath = args[0]
			}

			res, err := loadDir(dir)
			if err != nil {
				return err
			}
			records := res.Records
			if device != "" {
				records = query.FilterByDevice(device, records)
			}
			if sorted {
				records = query.SortByCaptureStart(records)
			}

			written, manifest, err := bundle.Export(records, outPath, bundle.ExportOptions{Source: dir, Device: device})
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			sizeStr := ""
			if info, _ := os.Stat(written); info != nil {
				sizeStr = " " + ui.Dim(fmt.Sprintf("(%d bytes)", info.Size()))
			}
			ui.Success(fmt.Sprintf("Exported %s records to %s%s", ui.Bold(fmt.Sprintf("%d", manifest.Count)), written, sizeStr))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Metadata directory (default from config)")
	cmd.Flags().StringVar(&device, "device", "", "Only export records from this device ID")
	cmd.Flags().BoolVar(&sorted, "sort", false, "Store records sorted by capture start")
	return cmd
}

func importCmd() *cobra.Command {
	var dir string
	var preview bool
	cmd := &cobra.Command{
		Use:   "import <bundle-path>",
		Short: "Import records from a .mmb bundle",
		Long: `Import the records of a bundle into the metadata directory.

Each record is written as <device_id>_<capture_start>.json. Files that already
exist are left untouched. Use --preview to inspect the manifest only.`,
		Example: `  metamagic import cam1.mmb
  metamagic import cam1.mmb --dir ./metadata --preview`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundlePath := args[0]

			if preview {
				manifest, err := bundle.ReadManifest(bundlePath)
				if err != nil {
					return fmt.Errorf("failed to read bundle: %w", err)
				}
				ui.CommandBanner("IMPORT PREVIEW", bundlePath)
				ui.KeyValue("Bundle ID:  ", manifest.ID)
				ui.KeyValue("Exported at:", manifest.ExportedAt.Format("2006-01-02 15:04:05"))
				ui.KeyValue("Source:     ", orDefault(manifest.Source, "-"))
				ui.KeyValue("Device:     ", orDefault(manifest.Device, "(all)"))
				ui.KeyValue("Records:    ", fmt.Sprintf("%d", manifest.Count))
				ui.Info("Use 'metamagic import' without --preview to import these records.")
				return nil
			}

			s := loadStore()
			dir = orDefault(dir, s.Config.Metadata.Dir)

			result, err := bundle.Import(bundlePath, dir)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
			ui.Success(fmt.Sprintf("Imported %s records into %s", ui.Bold(fmt.Sprintf("%d", len(result.Written))), dir))
			if len(result.Existing) > 0 {
				ui.Warning(fmt.Sprintf("%d records already present, left untouched:", len(result.Existing)))
				for _, p := range result.Existing {
					ui.Detail("", p)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Target metadata directory (default from config)")
	cmd.Flags().BoolVar(&preview, "preview", false, "Preview bundle contents without importing")
	return cmd
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:     "init",
		Short:   "Initialize METAMAGIC_HOME with a default config.yaml",
		Long:    "Create the METAMAGIC_HOME directory (~/.metamagic by default) with config.yaml. metamagic works without it, using built-in defaults.",
		Example: "  metamagic init\n  metamagic init --force",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			home := store.Home()
			if err := store.Init(home, force); err != nil {
				return err
			}
			ui.Success("metamagic initialized")
			ui.Detail("Home:", home)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Reinitialize even if METAMAGIC_HOME already exists")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and edit metamagic configuration",
	}
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configGetCmd())
	cmd.AddCommand(configSetCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := loadStore()
			data, err := yaml.Marshal(s.Config)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func configGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "get <key>",
		Short:     "Print one configuration value",
		Args:      cobra.ExactArgs(1),
		ValidArgs: store.ConfigKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := loadStore()
			v, err := s.GetConfigValue(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func configSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long:  "Set a metamagic configuration value. Valid keys: " + strings.Join(store.ConfigKeys, ", ") + ".",
		Example: `  metamagic config set metadata.dir /data/metadata
  metamagic config set metadata.device 1fc0c10b0a534202
  metamagic config set log.level debug`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := loadStore()
			if err := s.SetConfigValue(args[0], args[1]); err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Set %s = %s", args[0], args[1]))
			return nil
		},
	}
}

func doctorCmd() *cobra.Command {
	var fix bool
	var dir string
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and metadata directory health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			home := store.Home()

			if fix {
				ui.CommandBanner("DOCTOR", "repair mode")
				fixed := store.FixIssues(home)
				for _, f := range fixed {
					ui.Success(fmt.Sprintf("[FIXED] %s", f))
				}
				if len(fixed) == 0 {
					ui.EmptyState("Nothing to fix.")
				}
			} else {
				ui.CommandBanner("DOCTOR", "health check")
			}

			s := loadStore()
			errs, warns := printIssues("Configuration", store.CheckHealth(home))
			e, w := printIssues("Metadata", store.CheckMetadata(orDefault(dir, s.Config.Metadata.Dir)))
			errs, warns = errs+e, warns+w

			if errs+warns == 0 {
				ui.Success("Everything looks good")
				return nil
			}
			msg := issueSummary(errs, warns)
			fmt.Fprintln(os.Stderr)
			ui.Info(msg)
			if errs > 0 {
				return &exitError{code: 2, msg: msg}
			}
			return &exitError{code: 1, msg: msg}
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "Recreate a missing config.yaml before checking")
	cmd.Flags().StringVar(&dir, "dir", "", "Metadata directory to check (default from config)")
	return cmd
}

// printIssues prints one doctor section and counts its errors and warnings.
func printIssues(label string, issues []store.Issue) (errs, warns int) {
	ui.SectionHeader(label)
	if len(issues) == 0 {
		ui.EmptyState("No issues.")
		return 0, 0
	}
	for _, issue := range issues {
		if issue.Severity == "error" {
			ui.Error(fmt.Sprintf("[ERR]  %s", issue.Message))
			errs++
		} else {
			ui.Warning(fmt.Sprintf("[WARN] %s", issue.Message))
			warns++
		}
	}
	return errs, warns
}

func issueSummary(errs, warns int) string {
	return fmt.Sprintf("doctor found %s and %s",
		ui.Red(fmt.Sprintf("%d error(s)", errs)),
		ui.Yellow(fmt.Sprintf("%d warning(s)", warns)))
}

func completionCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "completion [bash|zsh|fish]",
		Short:     "Generate shell completion scripts",
		Long:      "Generate shell completion scripts for bash, zsh, or fish. Output the script to stdout for sourcing in your shell profile.",
		Example:   "  metamagic completion bash > ~/.bashrc.d/metamagic\n  metamagic completion zsh > ~/.zfunc/_metamagic",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			default:
				return fmt.Errorf("unsupported shell: %s (use bash, zsh, or fish)", args[0])
			}
		},
	}
}
