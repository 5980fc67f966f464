package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/lherron/tasklens/internal/cli"
)

func main() {
	addr := flag.String("addr", os.Getenv("TASKLENS_ADDR"), "Listen address (default 127.0.0.1:3000)")
	env := flag.String("env", os.Getenv("TASKLENS_ENV"), "Environment: production or development")
	source := flag.String("source", os.Getenv("TASKLENS_SOURCE"), "Task source: airtable or snapshot")
	flag.Parse()

	opts := cli.DaemonOptions{
		Addr:   *addr,
		Env:    *env,
		Source: *source,
	}

	if err := cli.ServeDaemon(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
