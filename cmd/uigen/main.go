// cmd/uigen/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"uigen/client"
	"uigen/internal/api"
	"uigen/internal/app"
	"uigen/internal/config"
	"uigen/internal/logging"
	"uigen/internal/tools"
	"uigen/internal/vfs"
	"uigen/internal/watch"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	dbPath     string
	serverURL  string
	logLevel   string

	cfg     *config.Config
	logger  = logging.Nop()
	backing backend
)

var rootCmd = &cobra.Command{
	Use:   "uigen",
	Short: "uigen keeps the virtual file systems of generated UI projects",
	Long: `uigen stores generated UI projects as in-memory file trees with a
revision history. It serves the editor tools a model uses to build them, and
lets you inspect, diff, restore, import and export projects from the shell.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger, err = logging.NewLogger(cfg.LogLevel, "development")
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		return nil
	},
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		if _, err := os.Stat(config.Path()); err == nil {
			path = config.Path()
		}
	}
	c, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		c.Database.Path = dbPath
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	return c, nil
}

// openBackend connects to --server when given, otherwise opens the local
// database.
func openBackend() (backend, error) {
	if serverURL != "" {
		return &remoteBackend{Client: client.New(serverURL), limits: cfg.Limits}, nil
	}
	a, err := app.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	return newLocalBackend(a), nil
}

// withBackend opens the backend for a command; main closes it once the
// command returns.
func withBackend(run func(cmd *cobra.Command, b backend, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		b, err := openBackend()
		if err != nil {
			return err
		}
		backing = b
		return run(cmd, b, args)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (JSON or YAML)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database directory, overrides the config")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Talk to a running server instead of the local database")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	var serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if serverURL != "" {
				return fmt.Errorf("serve runs against the local database; drop --server")
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				host, portStr, err := net.SplitHostPort(addr)
				if err != nil {
					return fmt.Errorf("invalid address %q: %w", addr, err)
				}
				port, err := strconv.Atoi(portStr)
				if err != nil {
					return fmt.Errorf("invalid port %q", portStr)
				}
				cfg.Server.Host, cfg.Server.Port = host, port
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			backing = newLocalBackend(a)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.Serve(ctx)
		},
	}
	serveCmd.Flags().String("addr", "", "Listen address host:port, overrides the config")

	// Project commands
	var projectCmd = &cobra.Command{
		Use:   "project",
		Short: "Create, list, show and delete projects",
	}

	var createProjectCmd = &cobra.Command{
		Use:   "create [name]",
		Short: "Create a new project",
		Args:  cobra.ExactArgs(1),
		RunE: withBackend(func(cmd *cobra.Command, b backend, args []string) error {
			ctx := cmd.Context()
			from, _ := cmd.Flags().GetString("from")
			files := map[string]string{}
			if from != "" {
				scratch := vfs.New(vfs.WithLimits(cfg.Limits))
				report, err := watch.Import(ctx, scratch, from)
				if err != nil {
					return fmt.Errorf("reading %s: %w", from, err)
				}
				printSkipped(report)
				files = api.FileContents(scratch.Serialize())
			}

			p, err := b.CreateProject(ctx, args[0], files)
			if err != nil {
				return fmt.Errorf("creating project: %w", err)
			}
			fmt.Printf("Created project %s: %s (%d files)\n", p.ID, p.Name, len(files))
			return nil
		}),
	}
	createProjectCmd.Flags().String("from", "", "Seed the project from a local directory")

	var listProjectsCmd = &cobra.Command{
		Use:   "list",
		Short: "List all projects",
		RunE: withBackend(func(cmd *cobra.Command, b backend, args []string) error {
			ctx := cmd.Context()
			projects, err := b.ListProjects(ctx)
			if err != nil {
				return fmt.Errorf("listing projects: %w", err)
			}
			if len(projects) == 0 {
				fmt.Println("No projects found")
				return nil
			}

			fmt.Println("\nProjects:")
			for _, p := range projects {
				fmt.Printf("%s  %s  %s  [%s]\n",
					p.ID[:8],
					p.UpdatedAt.Format(time.RFC3339),
					shortHash(p.Revision),
					p.Name,
				)
			}
			return nil
		}),
	}

	var showProjectCmd = &cobra.Command{
		Use:   "show [id]",
		Short: "Show a project and its file tree",
		Args:  cobra.ExactArgs(1),
		RunE: withBackend(func(cmd *cobra.Command, b backend, args []string) error {
			ctx := cmd.Context()
			p, err := b.GetProject(ctx, args[0])
			if err != nil {
				return err
			}
			nodes, err := b.Files(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Project %s: %s\n", p.ID, p.Name)
			fmt.Printf("Revision %s, %d in history\n\n", shortHash(p.Revision), len(p.History))
			printTree(nodes)
			return nil
		}),
	}

	var deleteProjectCmd = &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a project and its history",
		Args:  cobra.ExactArgs(1),
		RunE: withBackend(func(cmd *cobra.Command, b backend, args []string) error {
			ctx := cmd.Context()
			if err := b.DeleteProject(ctx, args[0]); err != nil {
				return fmt.Errorf("deleting project: %w", err)
			}
			fmt.Println("Deleted project", args[0])
			return nil
		}),
	}

	// File commands
	var filesCmd = &cobra.Command{
		Use:   "files [id]",
		Short: "Print a project's file tree",
		Args:  cobra.ExactArgs(1),
		RunE: withBackend(func(cmd *cobra.Command, b backend, args []string) error {
			ctx := cmd.Context()
			nodes, err := b.Files(ctx, args[0])
			if err != nil {
				return err
			}
			printTree(nodes)
			return nil
		}),
	}

	var viewCmd = &cobra.Command{
		Use:   "view [id] [path]",
		Short: "Show a file with line numbers, or list a directory",
		Args:  cobra.RangeArgs(1, 2),
		RunE: withBackend(func(cmd *cobra.Command, b backend, args []string) error {
			ctx := cmd.Context()
			path := "/"
			if len(args) == 2 {
				path = args[1]
			}
			var rng *vfs.ViewRange
			flags := cmd.Flags()
			if flags.Changed("start") || flags.Changed("end") {
				start, _ := flags.GetInt("start")
				end, _ := flags.GetInt("end")
				rng = &vfs.ViewRange{Start: start, End: end}
			}

			out, err := b.View(ctx, args[0], path, rng)
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		}),
	}
	viewCmd.Flags().Int("start", 1, "First line to show")
	viewCmd.Flags().Int("end", -1, "Last line to show, -1 for the end of the file")

	var toolCmd = &cobra.Command{
		Use:   "tool [id] [name] [arguments-json]",
		Short: "Run a model tool call against a project",
		Example: `  uigen tool 1a2b str_replace_editor '{"command":"create","path":"/App.jsx","file_text":"export default () => null"}'
  uigen tool 1a2b file_manager '{"command":"delete","path":"/old"}'`,
		Args: cobra.ExactArgs(3),
		RunE: withBackend(func(cmd *cobra.Command, b backend, args []string) error {
			ctx := cmd.Context()
			raw := json.RawMessage(args[2])
			if !json.Valid(raw) {
				return fmt.Errorf("arguments are not valid JSON")
			}
			res, err := b.CallTool(ctx, args[0], args[1], raw)
			if err != nil {
				return err
			}
			printToolResult(res)
			return nil
		}),
	}

	var toolsCmd = &cobra.Command{
		Use:   "tools",
		Short: "Print the tool definitions offered to models",
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(tools.Definitions())
		},
	}

	// Sync commands
	var importCmd = &cobra.Command{
		Use:   "import [id] [dir]",
		Short: "Copy a local directory into a project",
		Long: `Copy every allowed file under dir into the project, creating or
updating files. With --watch, keep mirroring changes until interrupted.`,
		Args: cobra.ExactArgs(2),
		RunE: withBackend(func(cmd *cobra.Command, b backend, args []string) error {
			ctx := cmd.Context()
			id, dir := args[0], args[1]

			var report watch.Report
			err := b.Do(ctx, id, "import "+dir, func(fs *vfs.FileSystem) error {
				var err error
				report, err = watch.Import(ctx, fs, dir)
				return err
			})
			if err != nil {
				return fmt.Errorf("importing %s: %w", dir, err)
			}
			fmt.Printf("Imported %s: %d created, %d updated, %d unchanged\n", dir, report.Created, report.Updated, report.Unchanged)
			printSkipped(report)

			if watchFlag, _ := cmd.Flags().GetBool("watch"); !watchFlag {
				return nil
			}
			w, err := watch.NewWatcher(dir, id, b, logger.Named("watch"))
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			fmt.Println("Watching for changes, press Ctrl+C to stop")
			return w.Run(ctx)
		}),
	}
	importCmd.Flags().BoolP("watch", "w", false, "Keep mirroring local changes into the project")

	var exportCmd = &cobra.Command{
		Use:   "export [id] [dir]",
		Short: "Write a project's files to a local directory",
		Args:  cobra.ExactArgs(2),
		RunE: withBackend(func(cmd *cobra.Command, b backend, args []string) error {
			ctx := cmd.Context()
			nodes, err := b.Files(ctx, args[0])
			if err != nil {
				return err
			}
			files := api.FileContents(nodes)
			if err := watch.Export(ctx, files, args[1]); err != nil {
				return fmt.Errorf("exporting: %w", err)
			}
			fmt.Printf("Exported %d files to %s\n", len(files), args[1])
			return nil
		}),
	}

	// History commands
	var historyCmd = &cobra.Command{
		Use:   "history [id]",
		Short: "List a project's revisions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: withBackend(func(cmd *cobra.Command, b backend, args []string) error {
			ctx := cmd.Context()
			p, err := b.GetProject(ctx, args[0])
			if err != nil {
				return err
			}
			printHistory(p)
			return nil
		}),
	}

	var diffCmd = &cobra.Command{
		Use:   "diff [id] [from] [to]",
		Short: "Show changes between two revisions",
		Long:  `Show changes between revision from and revision to, or the current revision when to is omitted. Revisions may be given by hash prefix.`,
		Args:  cobra.RangeArgs(2, 3),
		RunE: withBackend(func(cmd *cobra.Command, b backend, args []string) error {
			ctx := cmd.Context()
			to := ""
			if len(args) == 3 {
				to = args[2]
			}
			diffs, err := b.Diff(ctx, args[0], args[1], to)
			if err != nil {
				return err
			}
			if len(diffs) == 0 {
				fmt.Println("No differences")
				return nil
			}
			for _, d := range diffs {
				printFileDiff(d)
			}
			return nil
		}),
	}

	var restoreCmd = &cobra.Command{
		Use:   "restore [id] [revision]",
		Short: "Restore a project to an earlier revision",
		Args:  cobra.ExactArgs(2),
		RunE: withBackend(func(cmd *cobra.Command, b backend, args []string) error {
			ctx := cmd.Context()
			p, err := b.Restore(ctx, args[0], args[1])
			if err != nil {
				return fmt.Errorf("restoring: %w", err)
			}
			fmt.Printf("Restored %s, now at revision %s\n", p.Name, shortHash(p.Revision))
			return nil
		}),
	}

	// Add commands to root
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(toolCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(restoreCmd)

	// Add project subcommands
	projectCmd.AddCommand(createProjectCmd)
	projectCmd.AddCommand(listProjectsCmd)
	projectCmd.AddCommand(showProjectCmd)
	projectCmd.AddCommand(deleteProjectCmd)
}

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	if backing != nil {
		if cerr := backing.Close(); cerr != nil {
			logger.Error("failed to close backend", zap.Error(cerr))
		}
	}
	if err != nil {
		logger.Debug("command failed", zap.Error(err))
		os.Exit(1)
	}
}
