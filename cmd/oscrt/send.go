package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vexis-audio/oscrt/osc"
	"github.com/vexis-audio/oscrt/sender"
	"github.com/vexis-audio/oscrt/transport"
)

var (
	sendBindPort int
	sendPriority int
)

var sendCmd = &cobra.Command{
	Use:   "send <host:port> <address> [args...]",
	Short: "Encode and send a single OSC message",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runSend,
}

func init() {
	sendCmd.Flags().IntVar(&sendBindPort, "bind", 0, "local UDP port to bind (0 = OS-chosen)")
	sendCmd.Flags().IntVar(&sendPriority, "priority", 0, "packet heap priority layer")
}

func runSend(cmd *cobra.Command, args []string) error {
	endpoint, address, rawArgs := args[0], args[1], args[2:]

	conv, err := resolveDialect()
	if err != nil {
		return err
	}

	msgArgs := make([]osc.Argument, 0, len(rawArgs))
	for _, raw := range rawArgs {
		a, err := parseArgument(raw)
		if err != nil {
			return fmt.Errorf("oscrt: argument %q: %w", raw, err)
		}
		msgArgs = append(msgArgs, a)
	}

	msg := osc.NewMessage(address, msgArgs...)
	data, err := conv.EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("oscrt: encode: %w", err)
	}

	link := transport.NewLink(transport.DefaultSettings())
	if err := link.OpenToTarget(endpoint, sendBindPort); err != nil {
		return fmt.Errorf("oscrt: open_to_target: %w", err)
	}
	defer link.Close()

	s := sender.New(sender.DefaultSettings())
	s.Connect(link)
	defer s.Disconnect()

	if err := s.EnqueueTail(data, sendPriority); err != nil {
		return fmt.Errorf("oscrt: enqueue: %w", err)
	}

	// Give the scheduler at least one cycle to flush the heap before the
	// link is torn down on return.
	time.Sleep(5 * sender.DefaultSettings().CycleWait)
	fmt.Printf("sent %s to %s\n", msg.String(), endpoint)
	return nil
}

// parseArgument supports an explicit "kind:value" prefix (i/h/f/d/s/b) and
// falls back to int32, then float64, then string for a bare literal. "T",
// "F", "N" and "I" are the boolean/nil/infinity no-payload tags.
func parseArgument(raw string) (osc.Argument, error) {
	switch raw {
	case "T":
		return osc.Bool(true), nil
	case "F":
		return osc.Bool(false), nil
	case "N":
		return osc.Nil(), nil
	case "I":
		return osc.Inf(), nil
	}

	if kind, value, ok := strings.Cut(raw, ":"); ok {
		switch kind {
		case "i":
			v, err := strconv.ParseInt(value, 10, 32)
			return osc.Int32(int32(v)), err
		case "h":
			v, err := strconv.ParseInt(value, 10, 64)
			return osc.Int64(v), err
		case "f":
			v, err := strconv.ParseFloat(value, 32)
			return osc.Float32(float32(v)), err
		case "d":
			v, err := strconv.ParseFloat(value, 64)
			return osc.Float64(v), err
		case "s":
			return osc.String(value), nil
		case "b":
			v, err := strconv.ParseBool(value)
			return osc.Bool(v), err
		}
	}

	if v, err := strconv.ParseInt(raw, 10, 32); err == nil {
		return osc.Int32(int32(v)), nil
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return osc.Float64(v), nil
	}
	return osc.String(raw), nil
}
