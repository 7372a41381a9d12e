package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d, hh int) time.Time {
	return time.Date(y, m, d, hh, 0, 0, 0, time.UTC)
}

func TestRollCountersSameDay(t *testing.T) {
	now := date(2025, time.March, 10, 18)
	last := date(2025, time.March, 10, 9)

	daily, monthly := rollCounters(now, last, 41, 900)
	assert.Equal(t, 41, daily)
	assert.Equal(t, 900, monthly)
}

func TestRollCountersNewDaySameMonth(t *testing.T) {
	now := date(2025, time.March, 11, 0)
	last := date(2025, time.March, 10, 23)

	daily, monthly := rollCounters(now, last, 1000, 900)
	assert.Equal(t, 0, daily, "daily counter resets on a new calendar day")
	assert.Equal(t, 900, monthly, "monthly counter keeps counting within the month")
}

func TestRollCountersNewMonth(t *testing.T) {
	now := date(2025, time.April, 1, 0)
	last := date(2025, time.March, 31, 23)

	daily, monthly := rollCounters(now, last, 55, 29999)
	assert.Equal(t, 0, daily, "a new month implies a new day")
	assert.Equal(t, 0, monthly)
}

func TestRollCountersNewYearSameMonthNumber(t *testing.T) {
	// Same month and day numbers a year apart must still reset both.
	now := date(2026, time.March, 10, 12)
	last := date(2025, time.March, 10, 12)

	daily, monthly := rollCounters(now, last, 10, 100)
	assert.Equal(t, 0, daily)
	assert.Equal(t, 0, monthly)
}

func TestRollCountersNonUTCInput(t *testing.T) {
	// 2025-03-10 23:30 in UTC-5 is 2025-03-11 04:30 UTC; rollover is
	// decided on the UTC calendar.
	loc := time.FixedZone("UTC-5", -5*3600)
	last := date(2025, time.March, 10, 12)
	now := time.Date(2025, time.March, 10, 23, 30, 0, 0, loc)

	daily, _ := rollCounters(now, last, 7, 7)
	assert.Equal(t, 0, daily)
}

func TestDecideQuotaAllowsBelowCaps(t *testing.T) {
	d := decideQuota(true, 41, 900, 1000, 30000)
	assert.True(t, d.Allowed)
	assert.Empty(t, d.Reason)
}

// The last slot is usable: a counter at cap-1 passes and the call is
// then counted, so the next one sits at the cap and is denied.
func TestDecideQuotaLastSlotBoundary(t *testing.T) {
	d := decideQuota(true, 999, 900, 1000, 30000)
	assert.True(t, d.Allowed, "cap-1 is the last allowed call")

	d = decideQuota(true, 1000, 901, 1000, 30000)
	assert.False(t, d.Allowed)
	assert.Equal(t, DenyQuotaExceeded, d.Reason)
}

func TestDecideQuotaMonthlyCapIndependent(t *testing.T) {
	// A fresh day does not help once the monthly budget is gone.
	d := decideQuota(true, 0, 30000, 1000, 30000)
	assert.False(t, d.Allowed)
	assert.Equal(t, DenyQuotaExceeded, d.Reason)

	d = decideQuota(true, 0, 29999, 1000, 30000)
	assert.True(t, d.Allowed)
}

func TestDecideQuotaRevokedWinsOverQuota(t *testing.T) {
	d := decideQuota(false, 0, 0, 1000, 30000)
	assert.False(t, d.Allowed)
	assert.Equal(t, DenyAccessRevoked, d.Reason)
}
