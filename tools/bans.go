// Import bans from a JSON export into the configured database

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/goccy/go-json"
	config "github.com/plugfox/foxy-ban-server/internal/config"
	log "github.com/plugfox/foxy-ban-server/internal/log"
	"github.com/plugfox/foxy-ban-server/internal/model"
	storage "github.com/plugfox/foxy-ban-server/internal/storage"
)

// exportedBan is one entry of the export file. Permanent bans carry no duration.
type exportedBan struct {
	AccountID uint64    `json:"account_id"`
	IP        string    `json:"ip"`
	Hwid      string    `json:"hwid"`
	TimeOfBan time.Time `json:"time_of_ban"`
	Duration  *uint32   `json:"duration"`
	Reason    string    `json:"reason"`
	AdminID   uint64    `json:"admin_id"`
}

func main() {
	path := "bans.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read file: %v\n", err)
		os.Exit(1)
	}

	var bans []exportedBan
	if err := json.Unmarshal(raw, &bans); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse JSON: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.MustLoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config load error: %v\n", err)
		os.Exit(1)
	}

	logger := log.New(log.WithLevel(cfg.Verbose), log.WithFormat(cfg.LogFormat))

	db, err := storage.New(&cfg.Database, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Database connection error: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()

	srv, err := db.RegisterServer(ctx, cfg.Ban.Instance)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server registration error: %v\n", err)
		os.Exit(1)
	}

	imported := 0
	for _, ban := range bans {
		record := toRecord(ban, srv.ID)
		if err := db.Insert(ctx, record); err != nil {
			logger.WarnContext(ctx, "skipping ban",
				slog.Uint64("account_id", ban.AccountID),
				slog.Any("error", err),
			)

			continue
		}
		imported++
	}

	logger.InfoContext(ctx, "import finished", slog.Int("imported", imported), slog.Int("total", len(bans)))
}

func toRecord(ban exportedBan, serverID uint64) *model.BanRecord {
	duration := model.PermanentDuration
	if ban.Duration != nil {
		duration = *ban.Duration
	}

	timeOfBan := ban.TimeOfBan.UTC()
	if timeOfBan.IsZero() {
		timeOfBan = time.Now().UTC()
	}

	return &model.BanRecord{
		ServerID:  serverID,
		AccountID: model.AccountIDFrom(ban.AccountID),
		IP:        model.ParseIPv4(ban.IP),
		Hwid:      ban.Hwid,
		TimeOfBan: timeOfBan,
		Duration:  duration,
		Reason:    ban.Reason,
		AdminID:   model.AccountIDFrom(ban.AdminID),
	}
}
