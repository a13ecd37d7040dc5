package telegram

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/plugfox/foxy-ban-server/internal/ban"
	"github.com/plugfox/foxy-ban-server/internal/model"
	"github.com/plugfox/foxy-ban-server/internal/notify"
	tele "gopkg.in/telebot.v3"
)

var (
	ErrorUsage           = errors.New("usage: /ban <account> <duration|permanent> <reason>")
	ErrorInvalidAccount  = errors.New("invalid account id")
	ErrorInvalidDuration = errors.New("invalid duration")
)

const historyLimit = 10

// ParseBanCommand reads "<account> <duration> <reason...>".
func ParseBanCommand(args []string) (model.BanRequest, error) {
	if len(args) < 3 {
		return model.BanRequest{}, ErrorUsage
	}

	account, err := parseAccount(args[0])
	if err != nil {
		return model.BanRequest{}, err
	}

	duration, err := ParseDuration(args[1])
	if err != nil {
		return model.BanRequest{}, err
	}

	return model.BanRequest{
		Target:   account,
		Duration: duration,
		Reason:   strings.Join(args[2:], " "),
	}, nil
}

// ParseDuration reads a ban length in seconds: "permanent", days like "7d",
// or anything time.ParseDuration accepts. Lengths past the sentinel become permanent.
func ParseDuration(s string) (uint32, error) {
	switch strings.ToLower(s) {
	case "perm", "permanent", "forever":
		return model.PermanentDuration, nil
	}

	var length time.Duration

	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.ParseUint(days, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrorInvalidDuration, s)
		}

		if n >= math.MaxUint32/(24*60*60) {
			return model.PermanentDuration, nil
		}

		length = time.Duration(n) * 24 * time.Hour
	} else {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrorInvalidDuration, s)
		}

		length = parsed
	}

	seconds := int64(length / time.Second)
	switch {
	case seconds <= 0:
		return 0, fmt.Errorf("%w: %s", ErrorInvalidDuration, s)
	case seconds >= math.MaxUint32:
		return model.PermanentDuration, nil
	default:
		return uint32(seconds), nil
	}
}

func parseAccount(s string) (model.AccountID, error) {
	id, err := strconv.ParseUint(s, 10, 63)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %s", ErrorInvalidAccount, s)
	}

	return model.AccountID(id), nil
}

// /ban <account> <duration> <reason>
func (t *Telegram) onBan(c tele.Context) error {
	req, err := ParseBanCommand(c.Args())
	if err != nil {
		return c.Send(err.Error())
	}

	req.ActorName = senderName(c.Sender())

	record, err := t.issuer.IssueBan(context.Background(), req)
	if err != nil {
		return c.Send("Failed to store the ban, try again later")
	}

	return c.Send(fmt.Sprintf("Banned %s for %s (#%d)",
		req.Target.ToString(), notify.FormatDuration(req.Duration), record.ID))
}

// /bans <account>
func (t *Telegram) onBans(c tele.Context) error {
	args := c.Args()
	if len(args) != 1 {
		return c.Send("usage: /bans <account>")
	}

	account, err := parseAccount(args[0])
	if err != nil {
		return c.Send(err.Error())
	}

	records, err := t.history.BansByAccount(context.Background(), account)
	if err != nil {
		return c.Send("Failed to load bans, try again later")
	}

	return c.Send(formatHistory(account, records, time.Now()))
}

func formatHistory(account model.AccountID, records []model.BanRecord, now time.Time) string {
	if len(records) == 0 {
		return "No bans for " + account.ToString()
	}

	var builder strings.Builder

	fmt.Fprintf(&builder, "Bans for %s:", account.ToString())

	for i := range records {
		if i == historyLimit {
			fmt.Fprintf(&builder, "\n... and %d more", len(records)-historyLimit)
			break
		}

		record := &records[i]

		state := "expired"
		switch remaining := ban.Remaining(record, now); {
		case record.IsPermanent():
			state = "in effect"
		case remaining > 0:
			state = notify.FormatDuration(remaining) + " left"
		}

		fmt.Fprintf(&builder, "\n#%d %s: %s (%s, %s)",
			record.ID,
			record.TimeOfBan.UTC().Format(time.DateOnly),
			record.Reason,
			notify.FormatDuration(record.Duration),
			state,
		)
	}

	return builder.String()
}
