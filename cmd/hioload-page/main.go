// File: cmd/hioload-page/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// hioload-page runs echo servers, clients and a round-trip self test as
// page tasks over the epoll reactor.

package main

import (
	"fmt"
	"os"

	"github.com/momentics/hioload-page/internal/cli"
	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	os.Exit(run())
}

func run() int {
	undo, err := maxprocs.Set(maxprocs.Logger(func(string, ...any) {}))
	defer undo()
	if err != nil {
		fmt.Fprintf(os.Stderr, "hioload-page: GOMAXPROCS: %v\n", err)
	}

	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "hioload-page: %v\n", err)
		return 1
	}
	return 0
}
