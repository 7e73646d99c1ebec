package main

import (
	"fmt"
	"strconv"
	"strings"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/jangala-dev/tinygo-wk2132/mcp2221"
)

// openBus resolves name to an I2C bus. "mcp2221" or "mcp2221:N" selects a
// USB adapter; anything else goes to the periph registry, where the empty
// string means the first bus found.
func openBus(name string) (i2c.BusCloser, error) {
	if rest, ok := strings.CutPrefix(name, "mcp2221"); ok {
		idx := 0
		if rest != "" {
			n, err := strconv.Atoi(strings.TrimPrefix(rest, ":"))
			if err != nil || !strings.HasPrefix(rest, ":") {
				return nil, fmt.Errorf("bad bus name %q", name)
			}
			idx = n
		}
		b, err := mcp2221.Open(idx)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	return i2creg.Open(name)
}
