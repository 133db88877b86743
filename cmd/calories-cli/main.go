package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/calories/client"
)

func main() {
	server := flag.String("server", "http://localhost:2022", "Calorie tracker base URL")
	food := flag.String("food", "", "Food name to log (optional)")
	calories := flag.Int("calories", 0, "Calories for -food")
	timeout := flag.Duration("timeout", 10*time.Second, "Overall request timeout")
	verbose := flag.Bool("v", false, "Log request failures to stderr")
	flag.Parse()

	log := zap.NewNop()
	if *verbose {
		if l, err := zap.NewDevelopment(); err == nil {
			log = l
		}
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	view := client.NewView(client.New(client.Config{BaseURL: *server, Timeout: *timeout}), log)
	view.Load(ctx)

	exit := 0
	if *food != "" || *calories != 0 {
		if _, err := view.Submit(ctx, *food, *calories); err != nil {
			fmt.Fprintf(os.Stderr, "add food entry: %v\n", err)
			exit = 1
		}
	}

	if err := client.Render(os.Stdout, view.Snapshot()); err != nil {
		fmt.Fprintf(os.Stderr, "render: %v\n", err)
		exit = 1
	}
	os.Exit(exit)
}
