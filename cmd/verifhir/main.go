package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"verifhir/internal/app"
	"verifhir/internal/audit"
	"verifhir/internal/queue"
)

var (
	version = "dev"
	commit  = "unknown"
)

type buildFunc func(app.Options) (app.Deps, error)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(app.Build).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand(build buildFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "verifhir",
		Short: "Quality review of FHIR Implementation Guides",
		Long: `Audit a FHIR Implementation Guide export (IG publisher or packaged ZIP)
against a best-practice checklist and render an HTML report.

Examples:
  verifhir audit --file ./my-ig.zip --output ./reports
  verifhir audit --file ./my-ig.zip --model gpt-4o
  verifhir enqueue --file /shared/my-ig.zip --output /shared/reports`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	root.AddCommand(newAuditCommand(build), newEnqueueCommand(build))
	return root
}

type auditFlags struct {
	file   string
	output string
	model  string
}

func (f *auditFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "IG export ZIP file")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "report directory (default OUTPUT_DIR)")
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "LLM model (default LLM_MODEL)")
	_ = cmd.MarkFlagRequired("file")
}

func newAuditCommand(build buildFunc) *cobra.Command {
	var flags auditFlags
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit an IG export and write the HTML report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := build(app.Options{LogWriter: cmd.ErrOrStderr(), LogFormat: "text", WithLLM: true})
			if err != nil {
				return err
			}
			client, err := deps.LLMFor(flags.model)
			if err != nil {
				return err
			}
			output := flags.output
			if output == "" {
				output = deps.Config.OutputDir
			}
			res, err := audit.Run(cmd.Context(), deps.Log, client, audit.Options{
				ArchivePath: flags.file,
				OutputDir:   output,
				MaxPages:    deps.Config.MaxPages,
				BatchSize:   deps.Config.LLMBatchSize,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.ReportPath)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newEnqueueCommand(build buildFunc) *cobra.Command {
	var (
		flags       auditFlags
		maxAttempts int
	)
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Publish an audit task for the worker",
		Long: `Publish an audit task on the queue. Paths are resolved to absolute paths and
must be reachable from the worker.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := build(app.Options{LogWriter: cmd.ErrOrStderr(), LogFormat: "text", WithQueue: true})
			if err != nil {
				return err
			}
			archivePath, err := filepath.Abs(flags.file)
			if err != nil {
				return err
			}
			if _, err := os.Stat(archivePath); err != nil {
				return fmt.Errorf("ig export: %w", err)
			}
			output := flags.output
			if output == "" {
				output = deps.Config.OutputDir
			}
			if output, err = filepath.Abs(output); err != nil {
				return err
			}

			task, err := queue.NewAuditTask(queue.AuditPayload{
				ArchivePath: archivePath,
				OutputDir:   output,
				Model:       flags.model,
			}, maxAttempts)
			if err != nil {
				return err
			}
			if err := queue.EnqueueWithRetry(cmd.Context(), deps.Queue, task, 3, 200*time.Millisecond); err != nil {
				return fmt.Errorf("enqueue audit: %w", err)
			}
			deps.Log.Info("audit task published", "id", task.ID, "archive", archivePath)
			fmt.Fprintln(cmd.OutOrStdout(), task.ID)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", queue.DefaultMaxAttempts, "attempts before the task is dropped")
	return cmd
}
