package storage

import (
	"errors"
	"strings"

	"github.com/glebarez/sqlite"
	config "github.com/plugfox/foxy-ban-server/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var ErrorUnsupportedDriver = errors.New("unsupported database driver")

// createDialector creates the appropriate GORM dialector based on the config.
func createDialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch strings.ToLower(cfg.Driver) {
	case "sqlite3", "sqlite":
		return sqliteDialector(cfg.Connection)
	case "postgres", "postgresql":
		return postgresDialector(cfg.Connection)
	case "mysql", "mariadb", "tidb":
		return mysqlDialector(cfg.Connection)
	default:
		return nil, ErrorUnsupportedDriver
	}
}

// isSQLite reports whether the driver name selects the embedded database.
func isSQLite(driver string) bool {
	switch strings.ToLower(driver) {
	case "sqlite3", "sqlite":
		return true
	default:
		return false
	}
}

func sqliteDialector(connection string) (gorm.Dialector, error) {
	if connection == ":memory:" {
		return sqlite.Open("file::memory:?cache=shared"), nil
	}

	return sqlite.Open(connection), nil
}

func postgresDialector(connection string) (gorm.Dialector, error) {
	return postgres.New(
		postgres.Config{
			DSN:                  connection,
			PreferSimpleProtocol: true, // Disables implicit prepared statement usage
		},
	), nil
}

func mysqlDialector(connection string) (gorm.Dialector, error) {
	const defaultStringSize = 256

	return mysql.New(
		mysql.Config{
			// e.g. bans:secret@tcp(127.0.0.1:3306)/bans?charset=utf8mb4&parseTime=True&loc=UTC
			DSN:                       connection,
			DefaultStringSize:         defaultStringSize,
			DisableDatetimePrecision:  false, // Keep sub-second ban timestamps
			DontSupportRenameIndex:    true,  // Drop and create, MariaDB and MySQL before 5.7
			DontSupportRenameColumn:   true,  // Use change, MariaDB and MySQL before 8
			SkipInitializeWithVersion: false,
		},
	), nil
}
