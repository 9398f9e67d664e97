package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/mtlprog/fuelprice/internal/api"
	"github.com/mtlprog/fuelprice/internal/config"
	"github.com/mtlprog/fuelprice/internal/database"
	"github.com/mtlprog/fuelprice/internal/domain"
	"github.com/mtlprog/fuelprice/internal/fx"
	"github.com/mtlprog/fuelprice/internal/logger"
	"github.com/mtlprog/fuelprice/internal/pricing"
	"github.com/mtlprog/fuelprice/internal/quote"
	"github.com/mtlprog/fuelprice/internal/record"
	"github.com/mtlprog/fuelprice/internal/rollup"
	"github.com/mtlprog/fuelprice/internal/workbook"
	"github.com/mtlprog/fuelprice/internal/worker"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	slog.SetDefault(logger.New(os.Stderr, cfg.LogLevel))

	if err := newApp(cfg, os.Stdout).RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(cfg config.Config, stdout io.Writer) *cli.App {
	return &cli.App{
		Name:   "fuelprice",
		Usage:  "petroleum import price structures, cost build-ups and sales quotes",
		Writer: stdout,
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run migrations, the audit worker and the HTTP API",
				Action: func(c *cli.Context) error {
					return serve(c.Context, cfg)
				},
			},
			{
				Name:  "migrate",
				Usage: "apply pending migrations, or roll back with --down",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "down", Usage: "number of migrations to roll back"},
				},
				Action: func(c *cli.Context) error {
					return migrate(c.Context, cfg, c.Int("down"), c.App.Writer)
				},
			},
			{
				Name:  "compute",
				Usage: "price an input file (JSON or xlsx) without storing it",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "kind", Required: true, Usage: "mining-reference, nonmining-reference, mining-buildup or nonmining-buildup"},
					&cli.StringFlag{Name: "input", Required: true, Usage: "input file, .json or .xlsx; - reads JSON from stdin"},
					&cli.StringFlag{Name: "sheet", Usage: "xlsx sheet name (default: first sheet)"},
					&cli.StringFlag{Name: "rate", Usage: "CDF per USD; USD figures are unavailable without it"},
					&cli.BoolFlag{Name: "include-pmf-fiscal", Usage: "add the PMF fiscal adjustment to the non-mining reference price"},
					&cli.IntFlag{Name: "places", Value: int(cfg.RoundingPlaces), Usage: "decimal places in the output"},
					&cli.BoolFlag{Name: "summary", Usage: "print the stage trail and final price as text instead of JSON"},
				},
				Action: func(c *cli.Context) error {
					return compute(c)
				},
			},
			{
				Name:  "template",
				Usage: "write a blank xlsx entry sheet for a kind",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "kind", Required: true},
					&cli.StringFlag{Name: "out", Required: true, Usage: "output .xlsx path"},
				},
				Action: func(c *cli.Context) error {
					return template(c.String("kind"), c.String("out"))
				},
			},
		},
	}
}

func compute(c *cli.Context) error {
	kind, err := pricing.ParseKind(c.String("kind"))
	if err != nil {
		return err
	}

	rate := decimal.Zero
	if s := c.String("rate"); s != "" {
		rate, err = decimal.NewFromString(s)
		if err != nil {
			return fmt.Errorf("invalid rate %q: %w", s, err)
		}
	}

	in, err := readInputs(c.String("input"), c.String("sheet"), os.Stdin)
	if err != nil {
		return err
	}

	out, err := pricing.Compute(kind, in, rate, pricing.Options{IncludePMFFiscal: c.Bool("include-pmf-fiscal")})
	if err != nil {
		return err
	}

	places := int32(c.Int("places"))
	if c.Bool("summary") {
		return summary(c.App.Writer, out, places)
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out.Rounded(places))
}

func summary(w io.Writer, out pricing.Output, places int32) error {
	for _, st := range out.Trail() {
		if _, err := fmt.Fprintf(w, "%-20s %-22s %s\n", st.Stage, st.Total, domain.FormatFixed(decimal.NewNullDecimal(st.Value), places)); err != nil {
			return err
		}
	}
	h := out.Headline()
	_, err := fmt.Fprintf(w, "%s: %s CDF, %s USD\n", h.Name, domain.FormatFixed(h.CDF, places), domain.FormatFixed(h.USD, places))
	return err
}

func readInputs(path, sheet string, stdin io.Reader) (rollup.Inputs, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return workbook.ReadFile(path, sheet)
	}

	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening input: %w", err)
		}
		defer f.Close()
		r = f
	}

	var in rollup.Inputs
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("decoding input JSON: %w", err)
	}
	return in, nil
}

func template(kind, out string) error {
	k, err := pricing.ParseKind(kind)
	if err != nil {
		return err
	}
	t, err := pricing.Table(k, pricing.Options{IncludePMFFiscal: true})
	if err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", out, err)
	}
	defer f.Close()

	return workbook.WriteTemplate(f, string(k), t.Fields())
}

func migrations() (fs.FS, error) {
	return fs.Sub(migrationsFS, "migrations")
}

func migrate(ctx context.Context, cfg config.Config, down int, w io.Writer) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	fsys, err := migrations()
	if err != nil {
		return fmt.Errorf("opening migrations: %w", err)
	}

	if down > 0 {
		err = database.RollbackMigrations(ctx, cfg.DatabaseURL, fsys, down)
	} else {
		err = database.RunMigrations(ctx, cfg.DatabaseURL, fsys)
	}
	if err != nil {
		return err
	}

	version, err := database.MigrationVersion(ctx, cfg.DatabaseURL, fsys)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "schema version %d\n", version)
	return err
}

func serve(ctx context.Context, cfg config.Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	fsys, err := migrations()
	if err != nil {
		return fmt.Errorf("opening migrations: %w", err)
	}
	if err := database.RunMigrations(ctx, cfg.DatabaseURL, fsys); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	// Create services
	rateSvc := fx.NewService(fx.NewPgRateRepository(pool))
	recordSvc := record.NewService(record.NewPgRepository(pool), rateSvc, cfg.SupplierMarginFloorUSD)
	quoteSvc := quote.NewService(quote.NewPgRepository(pool), recordSvc)

	// Start workers
	auditWorker := worker.NewAuditWorker(recordSvc, cfg.AuditWorkerInterval, cfg.AuditBatchSize)
	go auditWorker.Run(ctx)

	// Start HTTP server
	handler := api.NewHandler(rateSvc, recordSvc, quoteSvc, cfg.RoundingPlaces)
	srv := api.NewServer(cfg.HTTPPort, handler)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("HTTP server: %w", err)
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}

	slog.Info("shutdown complete")
	return nil
}
