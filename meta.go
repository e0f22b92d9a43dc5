package minimap

import (
	"sync/atomic"
	"time"
)

type Stats struct {
	Passes        uint64        `json:"passes"`
	Aborted       uint64        `json:"aborted"`
	Failed        uint64        `json:"failed"`
	Published     uint64        `json:"published"`
	LastCells     int64         `json:"lastCells"`
	LastDuration  time.Duration `json:"lastDuration"`
	CacheSize     int           `json:"cacheSize"`
	CacheCapacity int           `json:"cacheCapacity"`
	State         string        `json:"state"`
}

type loopCounters struct {
	passes       atomic.Uint64
	aborted      atomic.Uint64
	failed       atomic.Uint64
	published    atomic.Uint64
	lastCells    atomic.Int64
	lastDuration atomic.Int64
}

func (c *loopCounters) record(result PassResult) {
	c.published.Add(1)
	c.lastCells.Store(int64(result.Cells))
	c.lastDuration.Store(int64(result.Duration))
}

func (c *loopCounters) snapshot() Stats {
	return Stats{
		Passes:       c.passes.Load(),
		Aborted:      c.aborted.Load(),
		Failed:       c.failed.Load(),
		Published:    c.published.Load(),
		LastCells:    c.lastCells.Load(),
		LastDuration: time.Duration(c.lastDuration.Load()),
	}
}
