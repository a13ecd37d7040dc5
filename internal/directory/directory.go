package directory

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/plugfox/foxy-ban-server/internal/config"
	apperrors "github.com/plugfox/foxy-ban-server/internal/errors"
	"github.com/plugfox/foxy-ban-server/internal/model"
)

// PlayerStore persists the last known identity of each account.
type PlayerStore interface {
	PlayerByID(ctx context.Context, id model.AccountID) (*model.Player, error)
	UpsertPlayer(ctx context.Context, player *model.Player) error
}

// Directory knows which server this is and what players are called.
type Directory struct {
	store    PlayerStore
	serverID uint64
	cache    *ristretto.Cache[uint64, string]
	ttl      time.Duration
	logger   *slog.Logger
}

// New creates a Directory for the given server.
func New(store PlayerStore, serverID uint64, config config.CacheConfig, logger *slog.Logger) (*Directory, error) {
	const bufferItems = 64

	cache, err := ristretto.NewCache(&ristretto.Config[uint64, string]{
		NumCounters: max(config.NumCounters, 100),
		MaxCost:     max(config.MaxCost, 10),
		BufferItems: bufferItems,
		// Every entry costs 1, MaxCost is the number of cached names.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}

	return &Directory{
		store:    store,
		serverID: serverID,
		cache:    cache,
		ttl:      config.TTL,
		logger:   logger,
	}, nil
}

// CurrentServerID returns the id of the server this process runs for.
func (d *Directory) CurrentServerID() uint64 {
	return d.serverID
}

// ResolveDisplayName returns the last known character name of the account,
// falling back to the account id as text.
func (d *Directory) ResolveDisplayName(ctx context.Context, accountID model.AccountID) string {
	if accountID == 0 {
		return accountID.ToString()
	}

	if name, ok := d.cache.Get(accountID.ToUint64()); ok {
		return name
	}

	player, err := d.store.PlayerByID(ctx, accountID)
	switch {
	case errors.Is(err, apperrors.ErrorNotFound):
		return accountID.ToString()
	case err != nil:
		d.logger.WarnContext(ctx, "failed to resolve display name",
			slog.Uint64("account_id", accountID.ToUint64()),
			slog.Any("error", err),
		)

		return accountID.ToString()
	case player.CharacterName == "":
		return accountID.ToString()
	}

	d.remember(accountID, player.CharacterName)

	return player.CharacterName
}

// Track records a connection attempt as the latest identity of the account.
func (d *Directory) Track(ctx context.Context, conn model.Connection) error {
	if conn.AccountID == 0 {
		return nil
	}

	player := &model.Player{ID: conn.AccountID}

	existing, err := d.store.PlayerByID(ctx, conn.AccountID)
	switch {
	case err == nil:
		player = existing
	case !errors.Is(err, apperrors.ErrorNotFound):
		return err
	}

	if conn.CharacterName != "" {
		player.CharacterName = conn.CharacterName
	}

	player.LastIP = conn.IP
	player.LastHwid = conn.Hwid
	player.ServerID = d.serverID

	if err := d.store.UpsertPlayer(ctx, player.Seen()); err != nil {
		return err
	}

	if player.CharacterName != "" {
		d.remember(conn.AccountID, player.CharacterName)
	}

	return nil
}

func (d *Directory) remember(accountID model.AccountID, name string) {
	d.cache.SetWithTTL(accountID.ToUint64(), name, 1, d.ttl)
}

// Close releases the cache.
func (d *Directory) Close() {
	d.cache.Close()
}
