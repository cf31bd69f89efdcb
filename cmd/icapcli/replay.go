package main

import (
	"fmt"
	"os"

	"github.com/tokenshield/icap-core/internal/icap"
)

// runReplay reads path in one shot and feeds it to a fresh parser in two
// halves the first time through, to exercise the same incremental Push
// contract a live connection would, then prints every message the stream
// yields.
func runReplay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	parser := icap.New()
	count := 0

	emit := func(chunk []byte) error {
		for {
			msg, err := parser.Push(chunk)
			chunk = nil
			if err != nil {
				return err
			}
			if msg == nil {
				return nil
			}
			count++
			printMessage(count, msg)
		}
	}

	mid := len(data) / 2
	if err := emit(data[:mid]); err != nil {
		return fmt.Errorf("message %d: %w", count+1, err)
	}
	if err := emit(data[mid:]); err != nil {
		return fmt.Errorf("message %d: %w", count+1, err)
	}

	fmt.Printf("%d message(s) parsed\n", count)
	return nil
}

func printMessage(n int, msg *icap.Message) {
	if msg.IsRequest {
		fmt.Printf("[%d] %s %s %s\n", n, msg.Method, msg.URI, msg.Version)
	} else {
		fmt.Printf("[%d] %s %d %s\n", n, msg.Version, msg.Status, msg.Reason)
	}
	fmt.Printf("    encapsulation: %v\n", msg.Encapsulated.Kind)
	if h := msg.Headers; h != nil {
		fmt.Printf("    headers: %d\n", h.Len())
	}
}
