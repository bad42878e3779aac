package main

import (
	"context"
	"log"
	"os"
	"os/signal"
)

func main() {
	// Context with Ctrl+C cancel
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}
