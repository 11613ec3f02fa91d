package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"mareero-backend/internal/config"
	"mareero-backend/internal/workbook"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

var (
	exportFormat string
	exportOut    string
)

// exportCmd writes the current table to a file without going through HTTP.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the record table as a PDF report or workbook",
	Long: `Export the record table as a PDF report or an .xlsx workbook.

Without --out the file is written to the current directory under its
default name (Report_<date>.pdf or Data_<date>.xlsx).`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var importActor string

var importCmd = &cobra.Command{
	Use:   "import <file.xlsx|file.xls>",
	Short: "Append the rows of a workbook to the record table",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print a bcrypt hash for MANAGER_PASSWORD_HASH",
	Long: `Print a bcrypt hash for MANAGER_PASSWORD_HASH.

The password is read from the first argument, or from the first line of
standard input when no argument is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHashPassword,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "pdf", "output format: pdf or xlsx")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default: generated name)")
	importCmd.Flags().StringVar(&importActor, "actor", "cli", "name recorded in the audit log")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(true)
	if err != nil {
		return err
	}
	defer log.Sync()

	d, err := openDeps(cfg, log)
	if err != nil {
		return err
	}
	defer d.Close()

	app := newApp(d)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("port", cfg.HTTPPort))
		errCh <- app.Listen(":" + cfg.HTTPPort)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}

func runExport(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(exportFormat)
	if format != "pdf" && format != "xlsx" {
		return fmt.Errorf("unknown format %q, want pdf or xlsx", exportFormat)
	}

	cfg, log, err := setup(false)
	if err != nil {
		return err
	}
	defer log.Sync()
	if err := requirePersistentStore(cfg, cmd.Name()); err != nil {
		return err
	}

	d, err := openDeps(cfg, log)
	if err != nil {
		return err
	}
	defer d.Close()

	records, err := d.inv.Snapshot(cmd.Context())
	if err != nil {
		return err
	}
	now := d.inv.Now()

	var (
		name string
		data []byte
	)
	switch format {
	case "pdf":
		doc, err := d.builder.Build(records, now)
		if err != nil {
			return err
		}
		name, data = doc.Filename, doc.Bytes
	case "xlsx":
		r, err := d.exporter.Export(records)
		if err != nil {
			return err
		}
		if data, err = io.ReadAll(r); err != nil {
			return err
		}
		name = fmt.Sprintf("Data_%s.xlsx", now.Format("2006-01-02"))
	}

	out := exportOut
	if out == "" {
		out = name
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	log.Info("export written", zap.String("file", out), zap.Int("records", len(records)))
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(false)
	if err != nil {
		return err
	}
	defer log.Sync()
	if err := requirePersistentStore(cfg, cmd.Name()); err != nil {
		return err
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	rows, err := workbook.ReadFile(filepath.Base(path), data, cfg.Location)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	d, err := openDeps(cfg, log)
	if err != nil {
		return err
	}
	defer d.Close()

	res, err := d.inv.Import(cmd.Context(), rows, importActor)
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(res); encErr != nil {
		return encErr
	}
	return err
}

// requirePersistentStore rejects the memory backend for one-shot commands:
// each run starts from an empty table and nothing it writes is kept.
func requirePersistentStore(cfg *config.Config, command string) error {
	if cfg.StoreBackend == config.StoreBackendMemory {
		return fmt.Errorf("%s needs a persistent store: STORE_BACKEND=%s starts empty on every run, use %s or %s",
			command, cfg.StoreBackend, config.StoreBackendPostgres, config.StoreBackendWorkbook)
	}
	return nil
}

func runHashPassword(cmd *cobra.Command, args []string) error {
	var password string
	if len(args) == 1 {
		password = args[0]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return errors.New("password is empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(hash))
	return nil
}
