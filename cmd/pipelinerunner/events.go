package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/northroot-labs/pipelinerunner/internal/runner/contracts"
	"github.com/northroot-labs/pipelinerunner/internal/runner/eventlog"
)

func runEvents(args []string, stdout, stderr io.Writer) int {
	runDir, rest, ok := requireRunDir(args, stderr)
	if !ok {
		return 1
	}

	var tailN int
	var follow, asJSON bool
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case "--tail":
			i++
			if i >= len(rest) {
				fmt.Fprintln(stderr, "--tail requires a value")
				return 1
			}
			n, err := strconv.Atoi(rest[i])
			if err != nil || n < 0 {
				fmt.Fprintln(stderr, "--tail must be a non-negative integer")
				return 1
			}
			tailN = n
		case "--follow":
			follow = true
		case "--json":
			asJSON = true
		default:
			fmt.Fprintf(stderr, "unknown arg: %s\n", rest[i])
			return 1
		}
	}

	if !follow {
		var events []contracts.Event
		var err error
		if tailN > 0 {
			events, err = eventlog.Tail(runDir, tailN)
		} else {
			events, err = eventlog.ReadAll(runDir)
		}
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		for _, e := range events {
			printEvent(stdout, e, asJSON)
		}
		return 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	defer func() {
		signal.Stop(sigCh)
		cancel()
	}()

	out, errc := eventlog.Stream(ctx, runDir, true)
	for {
		select {
		case e, ok := <-out:
			if !ok {
				return 0
			}
			printEvent(stdout, e, asJSON)
		case err := <-errc:
			if err != nil {
				fmt.Fprintln(stderr, err)
				return 1
			}
		case <-ctx.Done():
			return 0
		}
	}
}

func printEvent(w io.Writer, e contracts.Event, asJSON bool) {
	if asJSON {
		b, err := json.Marshal(e)
		if err != nil {
			return
		}
		fmt.Fprintln(w, string(b))
		return
	}
	fmt.Fprintf(w, "%s  %-22s %s\n", e.TimestampUTC, e.EventType, e.StepID)
}
