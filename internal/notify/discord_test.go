package notify

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/plugfox/foxy-ban-server/internal/config"
	"github.com/plugfox/foxy-ban-server/internal/model"
	"github.com/stretchr/testify/require"
)

func TestDiscordSend(t *testing.T) {
	var (
		mu       sync.Mutex
		paths    []string
		payloads []discordWebhookPayload
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload discordWebhookPayload
		_ = json.NewDecoder(r.Body).Decode(&payload)

		mu.Lock()
		paths = append(paths, r.URL.Path)
		payloads = append(payloads, payload)
		mu.Unlock()

		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	discord := NewDiscord(config.WebhooksConfig{
		DisplayName: "Global Ban",
		ImageURL:    "https://example.com/logo.png",
		Ban:         config.WebhookConfig{URL: srv.URL + "/ban", Color: 0xFF0000},
		BanEvading:  config.WebhookConfig{URL: srv.URL + "/banevading", Color: 0xFFA500},
	}, srv.Client(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx := context.Background()
	at := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, discord.Send(ctx, model.BanEvent{
		Kind: model.EventBanIssued, Subject: "alice", SubjectID: 1, Actor: "admin", Reason: "cheating", DurationSeconds: 60, At: at,
	}))
	require.NoError(t, discord.Send(ctx, model.BanEvent{
		Kind: model.EventEvasionDetected, Subject: "bob", SubjectID: 2, Reason: "evasion", DurationSeconds: model.PermanentDuration, At: at,
	}))
	// No webhook configured for kicks.
	require.NoError(t, discord.Send(ctx, model.BanEvent{Kind: model.EventKick, Subject: "carol", At: at}))

	mu.Lock()
	defer mu.Unlock()

	require.Equal(t, []string{"/ban", "/banevading"}, paths)

	ban := payloads[0]
	require.Equal(t, "Global Ban", ban.Username)
	require.Len(t, ban.Embeds, 1)
	require.Equal(t, "Player banned", ban.Embeds[0].Title)
	require.Equal(t, "alice was banned. Reason: cheating", ban.Embeds[0].Description)
	require.Equal(t, 0xFF0000, ban.Embeds[0].Color)
	require.Equal(t, "2024-03-01T12:00:00Z", ban.Embeds[0].Timestamp)
	require.NotNil(t, ban.Embeds[0].Thumbnail)

	evading := payloads[1]
	require.Equal(t, "Ban evasion detected", evading.Embeds[0].Title)
	require.Equal(t, "permanent", evading.Embeds[0].Fields[len(evading.Embeds[0].Fields)-1].Value)
}

func TestDiscordErrorStatus(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()

		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	discord := NewDiscord(config.WebhooksConfig{
		Unban: config.WebhookConfig{URL: srv.URL},
	}, srv.Client(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	for range 5 {
		err := discord.Send(context.Background(), model.BanEvent{Kind: model.EventUnban})
		require.ErrorIs(t, err, ErrorWebhookStatus)
	}

	// The breaker is open, the webhook is not called again.
	err := discord.Send(context.Background(), model.BanEvent{Kind: model.EventUnban})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrorWebhookStatus)

	mu.Lock()
	defer mu.Unlock()

	require.Equal(t, 5, calls)
}
