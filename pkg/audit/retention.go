package audit

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner periodically deletes durable audit records older than a
// configured retention window, on a cron schedule. It operates on the
// durable Storage directly — the in-memory queue the Emitter holds is
// never pruned, since it never holds more than BufferSize in-flight
// records to begin with.
type Pruner struct {
	storage Storage
	logger  *slog.Logger
	days    int
	cron    *cron.Cron
}

// NewPruner constructs a Pruner that keeps `days` days of audit history.
func NewPruner(storage Storage, logger *slog.Logger, days int) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{storage: storage, logger: logger, days: days}
}

// Start schedules the prune to run once a day.
func (p *Pruner) Start() {
	p.cron = cron.New()
	p.cron.AddFunc("@daily", p.runOnce)
	p.cron.Start()
}

// Stop halts the scheduled prune.
func (p *Pruner) Stop() {
	if p.cron != nil {
		p.cron.Stop()
	}
}

func (p *Pruner) runOnce() {
	cutoff := time.Now().AddDate(0, 0, -p.days)
	n, err := p.storage.Prune(cutoff)
	if err != nil {
		p.logger.Error("audit retention prune failed", "error", err)
		return
	}
	if n > 0 {
		p.logger.Info("audit retention prune complete", "pruned", n)
	}
}
