package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/davidbz/medimentor/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		// Failed requests already printed the fallback text.
		if !errors.Is(err, cli.ErrRequestFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}
