//go:build !wk2132debug

package wk2132

func (c *Channel) dbgTx(bool, int, error) {}
func (c *Channel) dbgCacheFull()          {}
func (c *Channel) dbgFlushPoll()          {}
func (c *Channel) dbgReadWait()           {}
func (c *Channel) dbgTimeout()            {}
