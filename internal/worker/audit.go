package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/mtlprog/fuelprice/internal/record"
)

// RecordVerifier recomputes stored records and reports the ones that drifted.
type RecordVerifier interface {
	VerifyAll(ctx context.Context, limit int) (int, []record.Drift, error)
}

// AuditWorker periodically checks that stored outputs still match a fresh computation.
type AuditWorker struct {
	verifier RecordVerifier
	interval time.Duration
	batch    int
}

// NewAuditWorker creates a new AuditWorker checking up to batch records per run.
func NewAuditWorker(verifier RecordVerifier, interval time.Duration, batch int) *AuditWorker {
	return &AuditWorker{
		verifier: verifier,
		interval: interval,
		batch:    batch,
	}
}

func (w *AuditWorker) audit(ctx context.Context) {
	checked, drifts, err := w.verifier.VerifyAll(ctx, w.batch)
	if err != nil {
		slog.Error("AuditWorker: verification failed", "error", err)
		return
	}
	for _, d := range drifts {
		slog.Warn("AuditWorker: stored outputs drifted",
			"id", d.ID,
			"kind", d.Kind,
			"stored", d.Stored.USD,
			"fresh", d.Fresh.USD)
	}
	slog.Info("AuditWorker: verification completed", "checked", checked, "drifted", len(drifts))
}

// Run starts the audit worker loop. It blocks until the context is cancelled.
func (w *AuditWorker) Run(ctx context.Context) {
	slog.Info("AuditWorker: starting")

	// Audit immediately on startup
	w.audit(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("AuditWorker: shutting down")
			return
		case <-ticker.C:
			w.audit(ctx)
		}
	}
}
