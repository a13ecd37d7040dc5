package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBanRecordExpiry(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	temporary := &BanRecord{TimeOfBan: at, Duration: 3600}
	expiry := temporary.Expiry()
	require.True(t, expiry.Valid)
	require.Equal(t, at.Add(time.Hour), expiry.Time)
	require.False(t, temporary.IsPermanent())

	permanent := &BanRecord{TimeOfBan: at, Duration: PermanentDuration}
	require.False(t, permanent.Expiry().Valid)
	require.True(t, permanent.IsPermanent())

	require.NoError(t, temporary.BeforeCreate(nil))
	require.Equal(t, expiry, temporary.ExpiresAt)
}

func TestBanRecordCovers(t *testing.T) {
	record := &BanRecord{IP: 99, Hwid: "X"}
	require.True(t, record.Covers(99, "X"))
	require.False(t, record.Covers(99, "Y"))
	require.False(t, record.Covers(98, "X"))
	require.False(t, (&BanRecord{}).Covers(99, "X"))
	require.True(t, (&BanRecord{}).Covers(0, ""))
}

func TestBanRecordSystemIssued(t *testing.T) {
	require.True(t, (&BanRecord{AdminID: 0}).IsSystemIssued())
	require.False(t, (&BanRecord{AdminID: 7}).IsSystemIssued())
}

func TestEscalationKey(t *testing.T) {
	InitHashFunction()

	key, err := EscalationKey(1, 99, "X", 10)
	require.NoError(t, err)
	require.Len(t, key, 64)

	same, err := EscalationKey(1, 99, "X", 10)
	require.NoError(t, err)
	require.Equal(t, key, same)

	testcases := []struct {
		Name      string
		AccountID AccountID
		IP        IPv4
		Hwid      string
		SourceID  uint64
	}{
		{Name: "other account", AccountID: 2, IP: 99, Hwid: "X", SourceID: 10},
		{Name: "other ip", AccountID: 1, IP: 98, Hwid: "X", SourceID: 10},
		{Name: "other hwid", AccountID: 1, IP: 99, Hwid: "Y", SourceID: 10},
		{Name: "other source", AccountID: 1, IP: 99, Hwid: "X", SourceID: 11},
	}

	for _, testcase := range testcases {
		t.Run(testcase.Name, func(t *testing.T) {
			other, err := EscalationKey(testcase.AccountID, testcase.IP, testcase.Hwid, testcase.SourceID)
			require.NoError(t, err)
			require.NotEqual(t, key, other)
		})
	}
}

func TestMatchTypeString(t *testing.T) {
	require.Equal(t, "none", MatchNone.String())
	require.Equal(t, "account", MatchByAccount.String())
	require.Equal(t, "ip", MatchByIP.String())
	require.Equal(t, "hwid", MatchByHwid.String())
}

func TestEventKindString(t *testing.T) {
	require.Equal(t, "ban", EventBanIssued.String())
	require.Equal(t, "banevading", EventEvasionDetected.String())
	require.Equal(t, "kick", EventKick.String())
	require.Equal(t, "unban", EventUnban.String())
	require.True(t, BanEvent{DurationSeconds: PermanentDuration}.IsPermanent())
}
