package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/delay-risk-cli/internal/config"
)

// Report is the outcome of one check.
type Report struct {
	Snapshot *Snapshot `json:"snapshot"`
	Alerts   []Alert   `json:"alerts"`
	Sent     int       `json:"sent"`
}

// Checker collects, evaluates and delivers alerts, once or on a ticker.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig
}

// NewChecker creates an alert checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
	}
}

// Check runs a single collect-evaluate-send cycle.
func (c *Checker) Check(ctx context.Context) (*Report, error) {
	snap, err := c.collector.Collect(ctx, c.cfg.LookbackWindowHours)
	if err != nil {
		return nil, err
	}
	alerts := c.alerter.Evaluate(snap)
	return &Report{
		Snapshot: snap,
		Alerts:   alerts,
		Sent:     c.alerter.SendAlerts(ctx, alerts),
	}, nil
}

// Run starts the periodic check loop. It blocks until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting alert checker",
		zap.Duration("interval", interval),
		zap.Int("lookback_hours", c.cfg.LookbackWindowHours),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("alert checker stopped")
			return
		case <-ticker.C:
			c.tick(ctx, log)
		}
	}
}

func (c *Checker) tick(ctx context.Context, log *zap.Logger) {
	report, err := c.Check(ctx)
	if err != nil {
		log.Error("monitoring: check failed", zap.Error(err))
		return
	}
	if len(report.Alerts) == 0 {
		log.Debug("monitoring: no alerts triggered",
			zap.Int("predictions", report.Snapshot.Predictions),
		)
		return
	}
	log.Info("monitoring: alert check complete",
		zap.Int("alerts_triggered", len(report.Alerts)),
		zap.Int("alerts_sent", report.Sent),
	)
}
