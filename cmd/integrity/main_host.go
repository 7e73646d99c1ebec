//go:build !rp2040 && !rp2350

package main

import "log"

func main() {
	log.SetFlags(0)
	log.Fatal("integrity runs on an rp2040 or rp2350 target: tinygo flash -target=pico ./cmd/integrity")
}
