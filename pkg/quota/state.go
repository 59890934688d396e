// Package quota accounts for YouTube Data API quota usage.
//
// Every API method has a fixed cost in quota units and a project has a
// daily budget that resets at midnight Pacific time. The Tracker records
// the cost of each call in Redis so that usage is shared across processes
// and visible through Prometheus. It never delays or rejects a request.
package quota

import (
	"time"
)

// Redis key layout. Day-scoped keys carry the Pacific calendar day.
const (
	redisKeyPrefix     = "yt:quota:"
	RedisKeyLastUpdate = "yt:quota:last_update"
)

// DefaultDailyLimit is the default daily quota of a YouTube Data API project.
const DefaultDailyLimit = 10000

// WarningRatio is the share of the daily limit at which usage is logged as a warning.
const WarningRatio = 0.8

// dayKeyTTL keeps a day's counters around a little past its reset.
const dayKeyTTL = 48 * time.Hour

// methodCosts are the documented unit costs per API method.
var methodCosts = map[string]int{
	"channels.list": 1,
	"search.list":   100,
}

// Cost returns the quota cost of an API method. Unknown methods cost 1 unit.
func Cost(method string) int {
	if c, ok := methodCosts[method]; ok {
		return c
	}
	return 1
}

// State is the quota usage for one Pacific calendar day.
type State struct {
	// Day is the Pacific calendar day, formatted 2006-01-02.
	Day string `json:"day"`

	// Used is the number of units consumed so far.
	Used int `json:"used"`

	// Limit is the configured daily budget.
	Limit int `json:"limit"`

	// ByMethod breaks Used down by API method.
	ByMethod map[string]int `json:"by_method"`

	// LastUpdate is when usage was last recorded by any process.
	LastUpdate time.Time `json:"last_update"`
}

// Remaining returns the units left today, never negative.
func (s *State) Remaining() int {
	if r := s.Limit - s.Used; r > 0 {
		return r
	}
	return 0
}

// IsExhausted reports whether the daily budget is spent.
func (s *State) IsExhausted() bool {
	return s.Used >= s.Limit
}

// NearLimit reports whether usage reached WarningRatio of the budget
// without exhausting it.
func (s *State) NearLimit() bool {
	return float64(s.Used) >= float64(s.Limit)*WarningRatio && !s.IsExhausted()
}

// TimeUntilReset returns the duration until the next Pacific midnight.
func (s *State) TimeUntilReset(now time.Time) time.Duration {
	local := now.In(pacific)
	next := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, pacific)
	return next.Sub(now)
}

// pacific is the zone quota days are counted in. Falls back to a fixed
// UTC-8 offset when no tz database is available.
var pacific = loadPacific()

func loadPacific() *time.Location {
	if loc, err := time.LoadLocation("America/Los_Angeles"); err == nil {
		return loc
	}
	return time.FixedZone("PST", -8*60*60)
}

// DayOf returns the quota day t belongs to.
func DayOf(t time.Time) string {
	return t.In(pacific).Format("2006-01-02")
}

func usedKey(day string) string {
	return redisKeyPrefix + day + ":used"
}

func methodsKey(day string) string {
	return redisKeyPrefix + day + ":methods"
}
