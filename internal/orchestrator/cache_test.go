package orchestrator

import (
	"testing"
	"time"

	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestResultCache(t *testing.T) {
	au := domain.RulesKey{Jurisdiction: domain.Australia, Year: 2024}
	uk := domain.RulesKey{Jurisdiction: domain.UnitedKingdom, Year: 2024}
	c := newResultCache(100)

	assert.True(t, c.put("a", au, &Result{Fingerprint: "a"}, 40))
	assert.True(t, c.put("b", uk, &Result{Fingerprint: "b"}, 40))
	_, ok := c.get("a") // a becomes most recent
	assert.True(t, ok)

	assert.True(t, c.put("c", au, &Result{Fingerprint: "c"}, 40))
	_, ok = c.get("b")
	assert.False(t, ok, "least recently used entry evicted")

	u := c.usage()
	assert.Equal(t, 2, u.entries)
	assert.EqualValues(t, 80, u.bytes)
	assert.EqualValues(t, 1, u.evictions)

	assert.False(t, c.put("huge", au, &Result{}, 101))

	assert.Equal(t, 2, c.invalidate(au))
	u = c.usage()
	assert.Zero(t, u.entries)
	assert.Zero(t, u.bytes)
	assert.True(t, u.oldest.IsZero())
	assert.Zero(t, c.invalidate(uk))
}

func TestResultCacheReplace(t *testing.T) {
	key := domain.RulesKey{Jurisdiction: domain.Australia, Year: 2024}
	c := newResultCache(100)
	c.put("a", key, &Result{}, 30)
	c.put("a", key, &Result{}, 50)
	u := c.usage()
	assert.Equal(t, 1, u.entries)
	assert.EqualValues(t, 50, u.bytes)
	assert.Zero(t, u.evictions)
}

func TestResultCacheRecordsCreation(t *testing.T) {
	key := domain.RulesKey{Jurisdiction: domain.Australia, Year: 2024}
	start := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	clock := start
	c := newResultCache(100)
	c.now = func() time.Time { return clock }

	tests := []struct {
		name   string
		fp     Fingerprint
		at     time.Duration
		oldest time.Duration
	}{
		{"first entry", "a", 0, 0},
		{"later entry keeps oldest", "b", time.Minute, 0},
		{"replacing the oldest moves it", "a", 2 * time.Minute, time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock = start.Add(tt.at)
			c.put(tt.fp, key, &Result{Fingerprint: tt.fp}, 10)
			e, ok := c.get(tt.fp)
			assert.True(t, ok)
			assert.Equal(t, clock, e.created)
			assert.Equal(t, start.Add(tt.oldest), c.usage().oldest)
		})
	}

	// Reading an entry does not refresh it.
	clock = start.Add(time.Hour)
	e, _ := c.get("b")
	assert.Equal(t, start.Add(time.Minute), e.created)
}
