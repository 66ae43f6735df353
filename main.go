// Package main is the entry point for the vgrmetrics CLI tool, which decodes
// Vainglory binary replay files and computes player and match metrics.
package main

import "github.com/turnabouthero/go-vgr-metrics/cmd"

func main() {
	cmd.Execute()
}
