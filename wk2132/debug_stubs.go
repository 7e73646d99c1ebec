//go:build !wk2132debug

package wk2132

type Stats struct{}

func (c *Channel) DebugReset()       {}
func (c *Channel) DebugStats() Stats { return Stats{} }
