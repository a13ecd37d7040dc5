package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	config "github.com/plugfox/foxy-ban-server/internal/config"
	apperrors "github.com/plugfox/foxy-ban-server/internal/errors"
	"github.com/plugfox/foxy-ban-server/internal/model"
	"github.com/stretchr/testify/require"
)

// Each test gets its own shared in-memory database.
func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	storage, err := New(&config.DatabaseConfig{
		Driver:     "sqlite3",
		Connection: fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		Timeout:    5 * time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = storage.Close()
	})

	return storage
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := New(&config.DatabaseConfig{Driver: "oracle"}, slog.Default())
	require.ErrorIs(t, err, ErrorUnsupportedDriver)
}

func TestFindInEffect(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

	records := []*model.BanRecord{
		{AccountID: 1, TimeOfBan: now.Add(-time.Hour), Duration: 60, Reason: "expired"},
		{AccountID: 1, TimeOfBan: now.Add(-time.Minute), Duration: 3600, Reason: "active"},
		{AccountID: 1, TimeOfBan: now.AddDate(-10, 0, 0), Duration: model.PermanentDuration, Reason: "permanent"},
		{AccountID: 2, IP: 99, TimeOfBan: now, Duration: model.PermanentDuration, Reason: "ip"},
		{AccountID: 3, Hwid: "X", TimeOfBan: now.Add(-time.Second), Duration: 2, Reason: "hwid"},
	}
	for _, record := range records {
		require.NoError(t, storage.Insert(ctx, record))
		require.NotZero(t, record.ID)
	}

	testcases := []struct {
		name     string
		filter   model.BanFilter
		expected []string
	}{
		{
			name:     "Account",
			filter:   model.BanFilter{Mode: model.SearchByAccount, AccountID: 1, Now: now},
			expected: []string{"active", "permanent"},
		},
		{
			name:     "Ip",
			filter:   model.BanFilter{Mode: model.SearchByIP, IP: 99, Now: now},
			expected: []string{"ip"},
		},
		{
			name:     "Hwid",
			filter:   model.BanFilter{Mode: model.SearchByHwid, Hwid: "X", Now: now},
			expected: []string{"hwid"},
		},
		{
			name:     "Hwid under a second left",
			filter:   model.BanFilter{Mode: model.SearchByHwid, Hwid: "X", Now: now.Add(500 * time.Millisecond)},
			expected: nil,
		},
		{
			name:     "Hwid expired later",
			filter:   model.BanFilter{Mode: model.SearchByHwid, Hwid: "X", Now: now.Add(time.Second)},
			expected: nil,
		},
		{
			name:     "Permanent far in the future",
			filter:   model.BanFilter{Mode: model.SearchByAccount, AccountID: 1, Now: now.AddDate(100, 0, 0)},
			expected: []string{"permanent"},
		},
		{
			name:     "Unknown account",
			filter:   model.BanFilter{Mode: model.SearchByAccount, AccountID: 42, Now: now},
			expected: nil,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			found, err := storage.FindInEffect(ctx, tc.filter)
			require.NoError(t, err)

			var reasons []string
			for _, record := range found {
				reasons = append(reasons, record.Reason)
			}

			require.Equal(t, tc.expected, reasons)
		})
	}
}

func TestInsertRoundTrip(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

	record := &model.BanRecord{
		ServerID:  3,
		AccountID: 76561198000000001,
		IP:        model.ParseIPv4("10.0.0.1"),
		Hwid:      "hwid",
		TimeOfBan: now,
		Duration:  model.PermanentDuration,
		Reason:    "cheating",
		AdminID:   76561198000000002,
	}
	require.NoError(t, storage.Insert(ctx, record))
	require.False(t, record.ExpiresAt.Valid)

	history, err := storage.BansByAccount(ctx, record.AccountID)
	require.NoError(t, err)
	require.Len(t, history, 1)

	stored := history[0]
	require.Equal(t, record.ID, stored.ID)
	require.Equal(t, "10.0.0.1", stored.IP.String())
	require.Equal(t, model.PermanentDuration, stored.Duration)
	require.Equal(t, record.AdminID, stored.AdminID)
	require.True(t, stored.TimeOfBan.Equal(now))
	require.Nil(t, stored.EscalationKey)
}

func TestInsertEscalationKeyUnique(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	key, err := model.EscalationKey(1, 99, "X", 1)
	require.NoError(t, err)

	newRecord := func() *model.BanRecord {
		k := key
		return &model.BanRecord{AccountID: 1, IP: 99, Hwid: "X", TimeOfBan: time.Now(), Duration: 60, EscalationKey: &k}
	}

	require.NoError(t, storage.Insert(ctx, newRecord()))
	require.ErrorIs(t, storage.Insert(ctx, newRecord()), apperrors.ErrorDuplicate)

	// Records without a key never conflict.
	for range 2 {
		require.NoError(t, storage.Insert(ctx, &model.BanRecord{AccountID: 1, TimeOfBan: time.Now(), Duration: 60}))
	}

	history, err := storage.BansByAccount(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 3)
}

func TestInsertEscalationKeyConcurrent(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	key, err := model.EscalationKey(5, 0, "Y", 9)
	require.NoError(t, err)

	const workers = 8

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		inserted   int
		duplicates int
	)

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			k := key
			err := storage.Insert(ctx, &model.BanRecord{AccountID: 5, Hwid: "Y", TimeOfBan: time.Now(), Duration: 60, EscalationKey: &k})

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				inserted++
			case errors.Is(err, apperrors.ErrorDuplicate):
				duplicates++
			}
		}()
	}

	wg.Wait()

	require.Equal(t, 1, inserted)
	require.Equal(t, workers-1, duplicates)
}

func TestPlayers(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	_, err := storage.PlayerByID(ctx, 1)
	require.ErrorIs(t, err, apperrors.ErrorNotFound)

	player := (&model.Player{ID: 1, CharacterName: "alice", LastIP: 99}).Seen()
	require.NoError(t, storage.UpsertPlayer(ctx, player))

	player.CharacterName = "alice2"
	require.NoError(t, storage.UpsertPlayer(ctx, player))

	stored, err := storage.PlayerByID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "alice2", stored.CharacterName)
	require.Equal(t, model.IPv4(99), stored.LastIP)
	require.True(t, stored.LastSeen.Valid)
}

func TestRegisterServer(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	first, err := storage.RegisterServer(ctx, "eu-1")
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	again, err := storage.RegisterServer(ctx, "eu-1")
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)

	other, err := storage.RegisterServer(ctx, "us-1")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, other.ID)

	require.NoError(t, storage.Ping(ctx))
}

func TestIsRetryableError(t *testing.T) {
	testcases := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "Nil", err: nil, expected: false},
		{name: "Deadline", err: context.DeadlineExceeded, expected: false},
		{name: "Locked", err: errors.New("database is locked (5) (SQLITE_BUSY)"), expected: true},
		{name: "Reset", err: errors.New("read tcp: connection reset by peer"), expected: true},
		{name: "Syntax", err: errors.New("near \"SELEC\": syntax error"), expected: false},
		{name: "Not found", err: apperrors.ErrorNotFound, expected: false},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, IsRetryableError(tc.err))
		})
	}
}

func TestRetryRead(t *testing.T) {
	ctx := context.Background()

	calls := 0
	value, err := retryRead(ctx, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("database is locked")
		}

		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, value)
	require.Equal(t, 3, calls)

	calls = 0
	permanent := errors.New("no such table: bans")
	_, err = retryRead(ctx, func(context.Context) (int, error) {
		calls++
		return 0, permanent
	})
	require.ErrorIs(t, err, permanent)
	require.Equal(t, 1, calls)
}
