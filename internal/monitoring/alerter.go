package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/delay-risk-cli/internal/config"
	"github.com/sells-group/delay-risk-cli/internal/model"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertHighRiskRate AlertType = "high_risk_rate"
	AlertNoModel      AlertType = "no_model"
	AlertStaleModel   AlertType = "stale_model"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a Snapshot against configured thresholds and posts
// breaches to a webhook.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	var alerts []Alert
	ts := snap.CollectedAt

	high := snap.Tiers[model.TierHigh]
	if snap.Predictions >= a.cfg.MinPredictions && snap.Predictions > 0 && snap.HighRate > a.cfg.HighRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertHighRiskRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"%.1f%% of orders scored HIGH risk, above threshold %.1f%% (%d of %d in last %dh)",
				snap.HighRate*100, a.cfg.HighRateThreshold*100,
				high, snap.Predictions, snap.LookbackHours,
			),
			Details: map[string]any{
				"high_rate":       snap.HighRate,
				"threshold":       a.cfg.HighRateThreshold,
				"high":            high,
				"predictions":     snap.Predictions,
				"avg_probability": snap.AvgProbability,
			},
			Timestamp: ts,
		})
	}

	switch {
	case snap.ModelRunID == "":
		alerts = append(alerts, Alert{
			Type:      AlertNoModel,
			Severity:  "high",
			Message:   "No training run has been recorded",
			Timestamp: ts,
		})
	case a.cfg.MaxModelAgeHours > 0 && snap.ModelAge() > time.Duration(a.cfg.MaxModelAgeHours)*time.Hour:
		age := snap.ModelAge()
		alerts = append(alerts, Alert{
			Type:     AlertStaleModel,
			Severity: "medium",
			Message: fmt.Sprintf(
				"Model %s was trained %.0fh ago, older than %dh",
				snap.ModelRunID, age.Hours(), a.cfg.MaxModelAgeHours,
			),
			Details: map[string]any{
				"model_run_id": snap.ModelRunID,
				"age_hours":    age.Hours(),
				"max_hours":    a.cfg.MaxModelAgeHours,
			},
			Timestamp: ts,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
