package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vexis-audio/oscrt/receiver"
	"github.com/vexis-audio/oscrt/transport"
)

var dumpIgnoreTimetags bool

var dumpCmd = &cobra.Command{
	Use:   "dump <port>",
	Short: "Listen on a UDP port and print every received message or bundle",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().BoolVar(&dumpIgnoreTimetags, "ignore-timetags", false, "dispatch bundles synchronously instead of honoring their schedule")
}

func runDump(cmd *cobra.Command, args []string) error {
	port, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("oscrt: invalid port %q: %w", args[0], err)
	}

	conv, err := resolveDialect()
	if err != nil {
		return err
	}

	link := transport.NewLink(transport.DefaultSettings())
	if err := link.OpenToAny(port); err != nil {
		return fmt.Errorf("oscrt: open_to_any: %w", err)
	}
	defer link.Close()

	r := receiver.New(conv)
	r.IgnoreTimetags = dumpIgnoreTimetags
	r.Connect(link)
	defer r.Disconnect()

	r.MessageReceived.Subscribe(func(e receiver.MessageReceivedEvent) {
		fmt.Printf("[%s] %s\n", e.From, e.Message.String())
	})
	r.BundleReceived.Subscribe(func(e receiver.BundleReceivedEvent) {
		fmt.Printf("[%s] %s\n", e.From, e.Bundle.String())
	})
	r.HeapTaskError.Subscribe(func(e receiver.HeapTaskErrorEvent) {
		fmt.Fprintf(os.Stderr, "oscrt: receive error: %v\n", e.Err)
	})

	fmt.Printf("listening on %s (dialect=%s)\n", link.LocalAddr(), dialectName)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	return nil
}
