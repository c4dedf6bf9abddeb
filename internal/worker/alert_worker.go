package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Mailer sends an email with an HTML body. Implemented by infra's SMTP
// client; kept as an interface so handler tests can stub delivery.
type Mailer interface {
	Send(to []string, subject, htmlBody string) error
}

// NewStockAlertHandler builds the handler that emails low-stock alerts.
// recipient is the farm's alert address from config.
func NewStockAlertHandler(mailer Mailer, recipient string) Handler {
	return func(ctx context.Context, job Job) error {
		var p StockAlertPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			// Malformed payloads never succeed on retry; log and swallow.
			log.Error().Err(err).Str("job_id", job.ID).Msg("malformed stock alert payload")
			return nil
		}
		if recipient == "" {
			log.Warn().Str("item", p.Name).Msg("stock alert dropped, no alert email configured")
			return nil
		}

		subject := fmt.Sprintf("[%s] Low stock: %s", p.Severity, p.Name)
		body := fmt.Sprintf(
			`<h2>Low stock alert</h2>
<p>Item <strong>%s</strong> is at <strong>%.2f kg</strong>, below its threshold of %.2f kg.</p>
<p>Severity: <strong>%s</strong></p>
<p>Farm: %s</p>`,
			p.Name,
			float64(p.QuantityG)/1000,
			float64(p.ThresholdG)/1000,
			p.Severity,
			p.FarmID,
		)
		if err := mailer.Send([]string{recipient}, subject, body); err != nil {
			return fmt.Errorf("sending stock alert for %s: %w", p.Name, err)
		}
		log.Info().Str("item", p.Name).Str("severity", p.Severity).Msg("stock alert emailed")
		return nil
	}
}
