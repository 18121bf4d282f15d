package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dejo1307/archstyle/internal/engine"
	"github.com/dejo1307/archstyle/internal/renderers/markdown"
	"github.com/dejo1307/archstyle/internal/server"
)

func (c *cli) analyzeCmd() *cobra.Command {
	var (
		format string
		write  bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [repo]",
		Short: "Analyze a repository and print the report",
		Long: `Extracts component facts from a repository, runs the intent and style analysis and
prints the report to stdout.

Example:
  archstyle analyze
  archstyle analyze ../shop --format json
  archstyle analyze ../shop --write`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var artifact string
			switch format {
			case "markdown", "md":
				artifact = markdown.ArtifactName
			case "json":
				artifact = engine.ReportFile
			default:
				return fmt.Errorf("unknown format %q (use markdown or json)", format)
			}

			eng, err := c.newEngine()
			if err != nil {
				return err
			}
			repoPath, err := filepath.Abs(c.repoArg(args))
			if err != nil {
				return fmt.Errorf("resolving repo path: %w", err)
			}

			snapshot, err := eng.GenerateSnapshot(cmd.Context(), repoPath)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			if write {
				if err := eng.WriteArtifacts(repoPath); err != nil {
					return fmt.Errorf("writing artifacts: %w", err)
				}
				c.logger.Info("artifacts written", "dir", filepath.Join(repoPath, c.cfg.Output.Dir))
			}

			content, err := eng.GetArtifact(artifact)
			if err != nil {
				return err
			}
			if _, err := c.stdout.Write(content); err != nil {
				return err
			}

			c.logger.Info("analysis complete",
				"repo", snapshot.Meta.RepoPath,
				"components", snapshot.Meta.FactCount,
				"primary_style", snapshot.Meta.PrimaryStyle,
				"duration", snapshot.Meta.Duration)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "Output format: markdown or json")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "Also write artifacts to the output directory")
	return cmd
}

func (c *cli) factsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "facts [repo]",
		Short: "Extract component facts and print them as JSONL",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := c.newEngine()
			if err != nil {
				return err
			}
			if _, err := eng.GenerateSnapshot(cmd.Context(), c.repoArg(args)); err != nil {
				return fmt.Errorf("extraction failed: %w", err)
			}
			return eng.Corpus().WriteJSONL(c.stdout)
		},
	}
}

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Long: `Runs an MCP server on stdin/stdout. Facts written by an earlier
"archstyle analyze --write" are loaded on startup so the report is available immediately.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := c.newEngine()
			if err != nil {
				return err
			}

			if repoPath, err := filepath.Abs(c.cfg.Repo); err == nil {
				factsPath := filepath.Join(repoPath, c.cfg.Output.Dir, engine.FactsFile)
				if _, err := os.Stat(factsPath); err == nil {
					if _, err := eng.LoadFacts(cmd.Context(), factsPath); err != nil {
						c.logger.Warn("failed to load existing facts", "path", factsPath, "error", err)
					}
				}
			}

			srv, err := server.New(eng, c.cfg, c.logger)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			return srv.Run(cmd.Context())
		},
	}
}
