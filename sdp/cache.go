package sdp

import (
	"github.com/currantlabs/ag"
)

// Interop lists for late HFP revisions.
const (
	InteropHFP17 = "hfp_1_7_allowlist"
	InteropHFP19 = "hfp_1_9_allowlist"
)

// Entry is what is remembered about a peer.
type Entry struct {
	Version     uint16
	Features    uint16
	HasFeatures bool
}

// Cache remembers discovered peer versions and SDP features by address,
// and keeps interoperability allow-lists. It is owned by the gateway
// executor and is not safe for concurrent use.
type Cache struct {
	peers   map[ag.Addr]Entry
	interop map[string]map[ag.Addr]bool
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		peers:   make(map[ag.Addr]Entry),
		interop: make(map[string]map[ag.Addr]bool),
	}
}

// Get returns the entry of a.
func (c *Cache) Get(a ag.Addr) (Entry, bool) {
	e, ok := c.peers[a]
	return e, ok
}

// SetVersion stores the profile version of a.
func (c *Cache) SetVersion(a ag.Addr, v uint16) {
	e := c.peers[a]
	e.Version = v
	c.peers[a] = e
}

// SetFeatures stores the SDP supported features of a.
func (c *Cache) SetFeatures(a ag.Addr, f uint16) {
	e := c.peers[a]
	e.Features = f
	e.HasFeatures = true
	c.peers[a] = e
}

// AddInterop records a on the named allow-list.
func (c *Cache) AddInterop(list string, a ag.Addr) {
	m, ok := c.interop[list]
	if !ok {
		m = make(map[ag.Addr]bool)
		c.interop[list] = m
	}
	m[a] = true
}

// Interop reports whether a is on the named allow-list.
func (c *Cache) Interop(list string, a ag.Addr) bool {
	return c.interop[list][a]
}

// RecordVersion puts a on the allow-list matching its version, if any.
func (c *Cache) RecordVersion(a ag.Addr, v uint16) {
	switch {
	case v >= ag.HFPVersion19:
		c.AddInterop(InteropHFP19, a)
	case v >= ag.HFPVersion17:
		c.AddInterop(InteropHFP17, a)
	}
}
