package ban

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/plugfox/foxy-ban-server/internal/config"
	apperrors "github.com/plugfox/foxy-ban-server/internal/errors"
	"github.com/plugfox/foxy-ban-server/internal/model"
)

var epoch = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

// memoryStore is an in-memory Store with the same escalation key uniqueness as the database.
type memoryStore struct {
	mu        sync.Mutex
	records   []model.BanRecord
	nextID    uint64
	failModes map[model.SearchMode]error
	failWrite error
	finds     int
	onInsert  func()
}

func newMemoryStore(records ...model.BanRecord) *memoryStore {
	store := &memoryStore{failModes: map[model.SearchMode]error{}}
	for i := range records {
		store.add(records[i])
	}

	return store
}

func (s *memoryStore) add(record model.BanRecord) {
	s.nextID++
	record.ID = s.nextID
	s.records = append(s.records, record)
}

func (s *memoryStore) FindInEffect(_ context.Context, filter model.BanFilter) ([]model.BanRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.finds++

	if err := s.failModes[filter.Mode]; err != nil {
		return nil, apperrors.WrapStoreUnavailable("find bans", err)
	}

	var found []model.BanRecord

	for _, record := range s.records {
		var match bool

		switch filter.Mode {
		case model.SearchByAccount:
			match = record.AccountID == filter.AccountID
		case model.SearchByIP:
			match = record.IP == filter.IP
		case model.SearchByHwid:
			match = record.Hwid == filter.Hwid
		}

		if match && InEffect(&record, filter.Now) {
			found = append(found, record)
		}
	}

	return found, nil
}

func (s *memoryStore) Insert(_ context.Context, record *model.BanRecord) error {
	if s.onInsert != nil {
		s.onInsert()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWrite != nil {
		return apperrors.WrapStoreUnavailable("insert ban", s.failWrite)
	}

	if record.EscalationKey != nil {
		for _, existing := range s.records {
			if existing.EscalationKey != nil && *existing.EscalationKey == *record.EscalationKey {
				return apperrors.ErrorDuplicate
			}
		}
	}

	s.nextID++
	record.ID = s.nextID
	record.ExpiresAt = record.Expiry()
	s.records = append(s.records, *record)

	return nil
}

func (s *memoryStore) snapshot() []model.BanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]model.BanRecord(nil), s.records...)
}

type staticDirectory struct {
	serverID uint64
}

func (d staticDirectory) CurrentServerID() uint64 {
	return d.serverID
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []model.BanEvent
}

func (n *recordingNotifier) Notify(_ context.Context, event model.BanEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.events = append(n.events, event)
}

func (n *recordingNotifier) recorded() []model.BanEvent {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]model.BanEvent(nil), n.events...)
}

// notifierFunc adapts a function to notify.Notifier.
type notifierFunc func(event model.BanEvent)

func (f notifierFunc) Name() string {
	return "func"
}

func (f notifierFunc) Send(_ context.Context, event model.BanEvent) error {
	f(event)
	return nil
}

func testBanConfig() config.BanConfig {
	return config.BanConfig{
		Instance:            "test",
		CaptureIdentifiers:  true,
		EvasionReason:       "evasion",
		NewIdentifierReason: "new identifiers",
		SystemActor:         "system",
		ExternalActor:       "external",
	}
}

// testClock is a wall clock the test moves by hand.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *testClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = now
}

type engineFixture struct {
	engine   *Engine
	store    *memoryStore
	notifier *recordingNotifier
	clock    *testClock
}

func newFixture(t *testing.T, now time.Time, cfg config.BanConfig, records ...model.BanRecord) *engineFixture {
	t.Helper()

	store := newMemoryStore(records...)
	notifier := &recordingNotifier{}
	clock := &testClock{now: now}

	engine := New(store, staticDirectory{serverID: 7}, notifier, cfg,
		WithClock(clock.Now),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	return &engineFixture{engine: engine, store: store, notifier: notifier, clock: clock}
}
