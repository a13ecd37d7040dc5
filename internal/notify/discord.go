package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/plugfox/foxy-ban-server/internal/config"
	"github.com/plugfox/foxy-ban-server/internal/model"
	gobreaker "github.com/sony/gobreaker/v2"
)

var ErrorWebhookStatus = errors.New("webhook returned an error status")

// Discord posts an embed per event to the webhook configured for its kind.
// Kinds without a webhook URL are skipped.
type Discord struct {
	config  config.WebhooksConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewDiscord creates a Discord notifier. The breaker opens after
// five consecutive failures and probes again after a minute.
func NewDiscord(config config.WebhooksConfig, client *http.Client, logger *slog.Logger) *Discord {
	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "discord-webhooks",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})

	return &Discord{
		config:  config,
		client:  client,
		breaker: breaker,
	}
}

func (d *Discord) Name() string {
	return "discord"
}

// Send delivers the event, or does nothing if its kind has no webhook.
func (d *Discord) Send(ctx context.Context, event model.BanEvent) error {
	webhook := d.webhookFor(event.Kind)
	if webhook.URL == "" {
		return nil
	}

	body, err := json.Marshal(d.payload(event, webhook))
	if err != nil {
		return fmt.Errorf("failed to marshal discord payload: %w", err)
	}

	_, err = d.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, d.post(ctx, webhook.URL, body)
	})

	return err
}

func (d *Discord) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create discord request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send discord webhook: %w", err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: %d", ErrorWebhookStatus, resp.StatusCode)
	}

	return nil
}

func (d *Discord) webhookFor(kind model.EventKind) config.WebhookConfig {
	switch kind {
	case model.EventBanIssued:
		return d.config.Ban
	case model.EventEvasionDetected:
		return d.config.BanEvading
	case model.EventKick:
		return d.config.Kick
	case model.EventUnban:
		return d.config.Unban
	default:
		return config.WebhookConfig{}
	}
}

func (d *Discord) payload(event model.BanEvent, webhook config.WebhookConfig) discordWebhookPayload {
	fields := Fields(event)

	embedFields := make([]discordEmbedField, 0, len(fields))
	for _, field := range fields {
		embedFields = append(embedFields, discordEmbedField{
			Name:   field.Name,
			Value:  field.Value,
			Inline: field.Inline,
		})
	}

	embed := discordEmbed{
		Title:       Title(event.Kind),
		Description: Describe(event),
		Color:       webhook.Color,
		Timestamp:   event.At.UTC().Format(time.RFC3339),
		Fields:      embedFields,
		Footer: discordEmbedFooter{
			Text: d.config.DisplayName,
		},
	}

	if d.config.ImageURL != "" {
		embed.Thumbnail = &discordEmbedImage{URL: d.config.ImageURL}
	}

	return discordWebhookPayload{
		Username:  d.config.DisplayName,
		AvatarURL: d.config.ImageURL,
		Embeds:    []discordEmbed{embed},
	}
}

// Discord webhook structures
type discordWebhookPayload struct {
	Username  string         `json:"username,omitempty"`
	AvatarURL string         `json:"avatar_url,omitempty"`
	Content   string         `json:"content,omitempty"`
	Embeds    []discordEmbed `json:"embeds,omitempty"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Thumbnail   *discordEmbedImage  `json:"thumbnail,omitempty"`
	Footer      discordEmbedFooter  `json:"footer,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbedImage struct {
	URL string `json:"url"`
}

type discordEmbedFooter struct {
	Text string `json:"text,omitempty"`
}
