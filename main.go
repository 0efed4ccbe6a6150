// Package main is the entry point for the haxmetrics CLI tool, which replays
// host event streams and computes per-player kick and possession metrics.
package main

import "github.com/pable/go-hax-metrics/cmd"

func main() {
	cmd.Execute()
}
