// Package main is the entry point for the mutest CLI.
package main

import "github.com/openshift-eng/mutest/cmd"

func main() {
	cmd.Execute()
}
