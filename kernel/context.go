package kernel

import "sync/atomic"

var nextCid int64

// Context implements github.com/ossrs/go-oryx-lib/logger.Context, tagging
// every log line from one accepted connection or session with the same
// numeric id so interleaved goroutines' output can be told apart.
type Context struct {
	cid int64
}

// NewContext allocates a Context with a fresh, process-wide unique id.
func NewContext() *Context {
	return &Context{cid: atomic.AddInt64(&nextCid, 1)}
}

func (c *Context) Cid() int {
	if c == nil {
		return 0
	}
	if c.cid == 0 {
		c.cid = atomic.AddInt64(&nextCid, 1)
	}
	return int(c.cid)
}
