package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	config "github.com/plugfox/foxy-ban-server/internal/config"
	apperrors "github.com/plugfox/foxy-ban-server/internal/errors"
	"github.com/plugfox/foxy-ban-server/internal/model"
	storage_logger "github.com/plugfox/foxy-ban-server/internal/storage/storage_logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

type Storage struct {
	db      *gorm.DB
	timeout time.Duration
}

func New(config *config.DatabaseConfig, logger *slog.Logger) (*Storage, error) {
	dialector, err := createDialector(config)
	if err != nil {
		return nil, err
	}

	const slowQueryThreshold = 200 * time.Millisecond

	db, err := gorm.Open(
		dialector,
		&gorm.Config{
			NamingStrategy: schema.NamingStrategy{},
			Logger:         storage_logger.NewGormSlogLogger(logger, slowQueryThreshold),
			NowFunc:        func() time.Time { return time.Now().UTC() },
		})
	if err != nil {
		return nil, err
	}

	// One writer at a time for the embedded database
	if isSQLite(config.Driver) {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}

		sqlDB.SetMaxOpenConns(1)
	}

	// Migrations
	const migrationTimeout = 15 * time.Minute
	ctx, cancel := context.WithTimeout(context.Background(), migrationTimeout)
	defer cancel()

	if err := db.WithContext(ctx).AutoMigrate(
		&model.Server{},
		&model.Player{},
		&model.BanRecord{},
	); err != nil {
		return nil, err
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	return &Storage{db: db, timeout: timeout}, nil
}

// Close - close the database connection
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Ping - check the database connection
func (s *Storage) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sqlDB, err := s.db.DB()
	if err != nil {
		return apperrors.WrapStoreUnavailable("ping", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return apperrors.WrapStoreUnavailable("ping", err)
	}

	return nil
}

// FindInEffect - get the bans matching one identifier that are in effect at filter.Now
func (s *Storage) FindInEffect(ctx context.Context, filter model.BanFilter) ([]model.BanRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	records, err := retryRead(ctx, func(ctx context.Context) ([]model.BanRecord, error) {
		var records []model.BanRecord

		// In effect means at least one whole second left
		query := s.db.WithContext(ctx).
			Where("(expires_at IS NULL OR expires_at >= ?)", filter.Now.Add(time.Second).UTC())

		switch filter.Mode {
		case model.SearchByAccount:
			query = query.Where("account_id = ?", filter.AccountID)
		case model.SearchByIP:
			query = query.Where("ip = ?", filter.IP)
		case model.SearchByHwid:
			query = query.Where("hwid = ?", filter.Hwid)
		}

		if err := query.Order("id").Find(&records).Error; err != nil {
			return nil, err
		}

		return records, nil
	})
	if err != nil {
		return nil, apperrors.WrapStoreUnavailable("find bans", err)
	}

	return records, nil
}

// Insert - insert a ban record, a conflicting escalation key yields ErrorDuplicate
func (s *Storage) Insert(ctx context.Context, record *model.BanRecord) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(record)
	if result.Error != nil {
		return apperrors.WrapStoreUnavailable("insert ban", result.Error)
	}

	if result.RowsAffected == 0 {
		return apperrors.ErrorDuplicate
	}

	return nil
}

// BansByAccount - get every ban of the account, newest first
func (s *Storage) BansByAccount(ctx context.Context, accountID model.AccountID) ([]model.BanRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	records, err := retryRead(ctx, func(ctx context.Context) ([]model.BanRecord, error) {
		var records []model.BanRecord
		if err := s.db.WithContext(ctx).Where("account_id = ?", accountID).Order("id DESC").Find(&records).Error; err != nil {
			return nil, err
		}

		return records, nil
	})
	if err != nil {
		return nil, apperrors.WrapStoreUnavailable("ban history", err)
	}

	return records, nil
}

// PlayerByID - get the player by account ID
func (s *Storage) PlayerByID(ctx context.Context, id model.AccountID) (*model.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	player, err := retryRead(ctx, func(ctx context.Context) (*model.Player, error) {
		var player model.Player
		if err := s.db.WithContext(ctx).Where("id = ?", id).First(&player).Error; err != nil {
			return nil, err
		}

		return &player, nil
	})

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperrors.ErrorNotFound
	case err != nil:
		return nil, apperrors.WrapStoreUnavailable("player by id", err)
	}

	return player, nil
}

// UpsertPlayer - insert or update the player
func (s *Storage) UpsertPlayer(ctx context.Context, player *model.Player) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.db.WithContext(ctx).Save(player).Error; err != nil {
		return apperrors.WrapStoreUnavailable("upsert player", err)
	}

	return nil
}

// RegisterServer - get or create the server row for the instance and mark it active
func (s *Storage) RegisterServer(ctx context.Context, instance string) (*model.Server, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var server model.Server

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(model.Server{Instance: instance}).FirstOrCreate(&server).Error; err != nil {
			return err
		}

		return tx.Model(&server).Update("last_active", time.Now().UTC()).Error
	})
	if err != nil {
		return nil, apperrors.WrapStoreUnavailable("register server", err)
	}

	return &server, nil
}
