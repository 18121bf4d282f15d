package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dejo1307/archstyle/internal/config"
	"github.com/dejo1307/archstyle/internal/engine"
	"github.com/dejo1307/archstyle/internal/extractors/goextractor"
	"github.com/dejo1307/archstyle/internal/extractors/manifestextractor"
	"github.com/dejo1307/archstyle/internal/extractors/textextractor"
	"github.com/dejo1307/archstyle/internal/extractors/tsextractor"
	"github.com/dejo1307/archstyle/internal/renderers/markdown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// cli holds the state shared by all subcommands.
type cli struct {
	cfgPath string
	cfg     *config.Config
	logger  *slog.Logger
	stdout  io.Writer
	stderr  io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "archstyle",
		Short: "archstyle - design intent and architectural style analyzer",
		Long: `archstyle extracts per-file component facts from a repository and scores how well
it follows separation of concerns, information hiding and dependency inversion. It also
detects layered, hexagonal, clean, microservice and event-driven architectures.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVarP(&c.cfgPath, "config", "c", config.DefaultFile, "Path to configuration file")

	root.AddCommand(c.analyzeCmd(), c.factsCmd(), c.serveCmd())
	return root
}

// loadConfig reads the config file and builds the logger. Logs go to stderr because
// stdout carries reports and the MCP protocol.
func (c *cli) loadConfig() error {
	cfg, err := config.LoadOrDefault(c.cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	c.cfg = cfg
	c.logger = cfg.NewLogger(c.stderr)
	return nil
}

// newEngine creates an engine with every built-in extractor and renderer registered.
func (c *cli) newEngine() (*engine.Engine, error) {
	eng, err := engine.New(c.cfg, c.logger)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}

	eng.RegisterExtractor(goextractor.New(c.logger))
	eng.RegisterExtractor(tsextractor.New(c.logger))
	eng.RegisterExtractor(textextractor.New(c.logger))
	eng.RegisterExtractor(manifestextractor.New(c.logger))

	eng.RegisterRenderer(markdown.New(0))
	return eng, nil
}

// repoArg returns the repository argument, falling back to the configured repo.
func (c *cli) repoArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return c.cfg.Repo
}
