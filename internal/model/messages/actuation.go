// Package messages holds the wire types exchanged with the relay controllers.
// The payloads are plain ASCII integers; the format is fixed by the deployed
// ESP firmware and must not change without a firmware rollout.
package messages

import (
	"fmt"
	"strconv"
	"strings"
)

// ActuationCommand is published on a controller's command topic to open one
// relay for a bounded time.
type ActuationCommand struct {
	Relay      int
	DurationMS int64
}

// Encode renders the command in the firmware's expected form:
// "relay duration_ms".
func (c ActuationCommand) Encode() string {
	return fmt.Sprintf("%d %d", c.Relay, c.DurationMS)
}

// ActuationAck is the completion report a controller publishes on the shared
// ack topic after a relay has been switched off again.
type ActuationAck struct {
	Controller int
	Relay      int
}

// ParseAck normalizes both ack payload forms seen in the field:
//
//	"controller relay"  two whitespace-separated integers
//	"cr..."             one combined integer, first digit the controller,
//	                    remaining digits the relay
//
// Anything else is a malformed payload.
func ParseAck(payload string) (ActuationAck, error) {
	fields := strings.Fields(payload)
	switch len(fields) {
	case 1:
		s := fields[0]
		if len(s) < 2 {
			return ActuationAck{}, fmt.Errorf("ack payload %q: combined form needs at least two digits", payload)
		}
		controller, err := strconv.Atoi(s[:1])
		if err != nil {
			return ActuationAck{}, fmt.Errorf("ack payload %q: bad controller digit: %w", payload, err)
		}
		relay, err := strconv.Atoi(s[1:])
		if err != nil {
			return ActuationAck{}, fmt.Errorf("ack payload %q: bad relay digits: %w", payload, err)
		}
		if controller <= 0 || relay <= 0 {
			return ActuationAck{}, fmt.Errorf("ack payload %q: ids must be positive", payload)
		}
		return ActuationAck{Controller: controller, Relay: relay}, nil
	case 2:
		controller, err := strconv.Atoi(fields[0])
		if err != nil {
			return ActuationAck{}, fmt.Errorf("ack payload %q: bad controller id: %w", payload, err)
		}
		relay, err := strconv.Atoi(fields[1])
		if err != nil {
			return ActuationAck{}, fmt.Errorf("ack payload %q: bad relay id: %w", payload, err)
		}
		if controller <= 0 || relay <= 0 {
			return ActuationAck{}, fmt.Errorf("ack payload %q: ids must be positive", payload)
		}
		return ActuationAck{Controller: controller, Relay: relay}, nil
	default:
		return ActuationAck{}, fmt.Errorf("ack payload %q: expected one or two integers", payload)
	}
}

// Matches reports whether the ack confirms the given command on the given
// controller. Acks correlate only by controller+relay; the protocol keeps at
// most one command outstanding, so no request id exists on the wire.
func (a ActuationAck) Matches(controller int, cmd ActuationCommand) bool {
	return a.Controller == controller && a.Relay == cmd.Relay
}
