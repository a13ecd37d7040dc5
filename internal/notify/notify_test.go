package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/plugfox/foxy-ban-server/internal/metrics"
	"github.com/plugfox/foxy-ban-server/internal/model"
	"github.com/stretchr/testify/require"
)

type funcNotifier struct {
	name string
	send func(ctx context.Context, event model.BanEvent) error
}

func (n funcNotifier) Name() string {
	return n.name
}

func (n funcNotifier) Send(ctx context.Context, event model.BanEvent) error {
	return n.send(ctx, event)
}

// Logger safe for concurrent writers.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

func TestDispatcherFanOut(t *testing.T) {
	var (
		mu       sync.Mutex
		received []string
	)

	record := func(name string) Notifier {
		return funcNotifier{name: name, send: func(_ context.Context, event model.BanEvent) error {
			mu.Lock()
			defer mu.Unlock()

			received = append(received, name+":"+event.Reason)

			return nil
		}}
	}

	output := &lockedBuffer{}
	logger := slog.New(slog.NewTextHandler(output, nil))
	failing := funcNotifier{name: "failing", send: func(context.Context, model.BanEvent) error {
		return errors.New("unreachable")
	}}
	panicking := funcNotifier{name: "panicking", send: func(context.Context, model.BanEvent) error {
		panic("boom")
	}}

	dispatcher := NewDispatcher(time.Second, logger, metrics.NewMetricsFake(), record("a"), failing, panicking, record("b"))
	dispatcher.Notify(context.Background(), model.BanEvent{Kind: model.EventBanIssued, Reason: "spam"})
	dispatcher.Wait()

	require.ElementsMatch(t, []string{"a:spam", "b:spam"}, received)
	require.Contains(t, output.String(), "failed to deliver ban event")
	require.Contains(t, output.String(), "notifier panicked")
}

func TestDispatcherDoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	slow := funcNotifier{name: "slow", send: func(ctx context.Context, _ model.BanEvent) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}}

	dispatcher := NewDispatcher(time.Minute, slog.New(slog.NewTextHandler(&lockedBuffer{}, nil)), metrics.NewMetricsFake(), slow)

	done := make(chan struct{})
	go func() {
		dispatcher.Notify(context.Background(), model.BanEvent{})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a slow notifier")
	}

	close(release)
	dispatcher.Wait()
}

type resolverFunc func(ctx context.Context, accountID model.AccountID) string

func (f resolverFunc) ResolveDisplayName(ctx context.Context, accountID model.AccountID) string {
	return f(ctx, accountID)
}

func TestDispatcherResolvesNames(t *testing.T) {
	release := make(chan struct{})
	names := map[model.AccountID]string{1: "alice", 100: "admin"}
	resolver := resolverFunc(func(_ context.Context, accountID model.AccountID) string {
		<-release
		return names[accountID]
	})

	var (
		mu       sync.Mutex
		received []model.BanEvent
	)

	notifier := funcNotifier{name: "names", send: func(_ context.Context, event model.BanEvent) error {
		mu.Lock()
		defer mu.Unlock()

		received = append(received, event)

		return nil
	}}

	dispatcher := NewDispatcher(time.Minute, slog.New(slog.NewTextHandler(&lockedBuffer{}, nil)), metrics.NewMetricsFake(), notifier)
	dispatcher.SetResolver(resolver)

	testcases := []struct {
		name    string
		event   model.BanEvent
		subject string
		actor   string
	}{
		{name: "Both missing", event: model.BanEvent{Reason: "a", SubjectID: 1, ActorID: 100}, subject: "alice", actor: "admin"},
		{name: "Supplied names kept", event: model.BanEvent{Reason: "b", Subject: "Al", SubjectID: 1, Actor: "mod", ActorID: 100}, subject: "Al", actor: "mod"},
		{name: "System actor not resolved", event: model.BanEvent{Reason: "c", SubjectID: 1, Actor: "system"}, subject: "alice", actor: "system"},
	}

	done := make(chan struct{})
	go func() {
		for _, tc := range testcases {
			dispatcher.Notify(context.Background(), tc.event)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a slow name lookup")
	}

	close(release)
	dispatcher.Wait()

	require.Len(t, received, len(testcases))

	byReason := make(map[string]model.BanEvent, len(received))
	for _, event := range received {
		byReason[event.Reason] = event
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			event := byReason[tc.event.Reason]
			require.Equal(t, tc.subject, event.Subject)
			require.Equal(t, tc.actor, event.Actor)
		})
	}
}

func TestDispatcherOutlivesCallerContext(t *testing.T) {
	var delivered error

	notifier := funcNotifier{name: "ctx", send: func(ctx context.Context, _ model.BanEvent) error {
		delivered = ctx.Err()
		return nil
	}}

	dispatcher := NewDispatcher(time.Second, slog.New(slog.NewTextHandler(&lockedBuffer{}, nil)), metrics.NewMetricsFake(), notifier)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dispatcher.Notify(ctx, model.BanEvent{})
	dispatcher.Wait()

	require.NoError(t, delivered)
}

func TestBroadcast(t *testing.T) {
	output := &lockedBuffer{}
	broadcast := NewBroadcast(slog.New(slog.NewTextHandler(output, nil)))

	err := broadcast.Send(context.Background(), model.BanEvent{
		Kind:            model.EventBanIssued,
		Subject:         "alice",
		SubjectID:       1,
		Reason:          "cheating",
		DurationSeconds: model.PermanentDuration,
	})
	require.NoError(t, err)
	require.Equal(t, "broadcast", broadcast.Name())
	require.Contains(t, output.String(), "alice was banned. Reason: cheating")
	require.Contains(t, output.String(), "duration=permanent")
}

func TestFormatDuration(t *testing.T) {
	testcases := []struct {
		seconds  uint32
		expected string
	}{
		{seconds: model.PermanentDuration, expected: "permanent"},
		{seconds: 0, expected: "0s"},
		{seconds: 3590, expected: "59m50s"},
		{seconds: 86400, expected: "24h0m0s"},
	}

	for _, tc := range testcases {
		t.Run(tc.expected, func(t *testing.T) {
			require.Equal(t, tc.expected, FormatDuration(tc.seconds))
		})
	}
}

func TestFields(t *testing.T) {
	at := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

	testcases := []struct {
		name     string
		event    model.BanEvent
		expected []string
	}{
		{
			name:     "Ban",
			event:    model.BanEvent{Kind: model.EventBanIssued, SubjectID: 1, Actor: "admin", At: at},
			expected: []string{"Account", "Banned by", "Time", "Reason", "Duration"},
		},
		{
			name:     "Evasion",
			event:    model.BanEvent{Kind: model.EventEvasionDetected, SubjectID: 1, At: at},
			expected: []string{"Account", "Time", "Reason", "Duration"},
		},
		{
			name:     "Kick",
			event:    model.BanEvent{Kind: model.EventKick, SubjectID: 1, At: at},
			expected: []string{"Account", "Kicked by", "Time", "Reason"},
		},
		{
			name:     "Unban",
			event:    model.BanEvent{Kind: model.EventUnban, SubjectID: 1, At: at},
			expected: []string{"Account", "Unbanned by", "Time"},
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			var names []string
			for _, field := range Fields(tc.event) {
				names = append(names, field.Name)
			}

			require.Equal(t, tc.expected, names)
		})
	}

	external := Fields(model.BanEvent{Kind: model.EventBanIssued, Actor: "External", ActorID: 5, External: true, At: at})
	require.Equal(t, "External (5)", external[1].Value)
}
