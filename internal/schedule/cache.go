package schedule

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/google/uuid"
)

// dayCache keeps recently read per-resource day interval lists so hot
// agenda day views skip the store. Entries are invalidated whenever the
// owning resource/day is written, but readers may still race a write
// and re-install a slightly older list, so the cache serves
// presentation reads only and never the conflict path.
type dayCache struct {
	lru *lru.Cache[string, []Appointment]
}

func newDayCache(size int) *dayCache {
	if size <= 0 {
		return &dayCache{}
	}
	c, err := lru.New[string, []Appointment](size)
	if err != nil {
		return &dayCache{}
	}
	return &dayCache{lru: c}
}

func dayCacheKey(resourceID uuid.UUID, day time.Time) string {
	return fmt.Sprintf("%s|%s", resourceID, day.Format("2006-01-02"))
}

func (c *dayCache) Get(resourceID uuid.UUID, day time.Time) ([]Appointment, bool) {
	if c.lru == nil {
		return nil, false
	}
	return c.lru.Get(dayCacheKey(resourceID, day))
}

func (c *dayCache) Put(resourceID uuid.UUID, day time.Time, entries []Appointment) {
	if c.lru == nil {
		return
	}
	c.lru.Add(dayCacheKey(resourceID, day), entries)
}

func (c *dayCache) Invalidate(resourceID uuid.UUID, day time.Time) {
	if c.lru == nil {
		return
	}
	c.lru.Remove(dayCacheKey(resourceID, day))
}
