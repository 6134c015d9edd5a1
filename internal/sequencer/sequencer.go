// Package sequencer drives physical relays one at a time over the messaging
// channel, confirming each watering event before moving on. Serialization is
// a hard constraint, not an optimization: the zones share one water source
// and concurrent draw causes pressure interference.
package sequencer

import (
	"context"
	"log"
	"time"

	"github.com/gardenops/cimis-irrigation/internal/model"
	"github.com/gardenops/cimis-irrigation/internal/model/messages"
	"github.com/gardenops/cimis-irrigation/pkg/mqttbus"
)

// ZoneState tracks one zone's progress through a cycle.
type ZoneState int

const (
	Pending ZoneState = iota
	CommandSent
	Confirmed
	TimedOut
)

func (s ZoneState) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case CommandSent:
		return "COMMAND_SENT"
	case Confirmed:
		return "CONFIRMED"
	case TimedOut:
		return "TIMED_OUT"
	default:
		return "UNKNOWN"
	}
}

// RunState is the sequencer's overall state.
type RunState int

const (
	Idle RunState = iota
	Running
	Done
)

// DefaultGrace is added to each wait beyond the commanded duration to absorb
// actuator and transport latency.
const DefaultGrace = time.Second

// Task is one zone ready for actuation: the command topic of its controller
// and the valve-open duration derived from its demand.
type Task struct {
	Zone     *model.Zone
	Topic    string
	Duration time.Duration
}

// Result records what happened to one task.
type Result struct {
	Zone     *model.Zone
	State    ZoneState
	SentAt   time.Time // zero if the command was never published
	DoneAt   time.Time
	Duration time.Duration
	Err      error // publish failure, nil otherwise
}

// Actuated reports whether the command went out on the wire, which means
// water was physically dispensed whether or not an ack came back.
func (r Result) Actuated() bool {
	return r.State == CommandSent || r.State == Confirmed || r.State == TimedOut
}

// Sequencer issues one command at a time and waits for its acknowledgment or
// a deadline before the next.
type Sequencer struct {
	pub   mqttbus.IPublisher
	acks  *AckStream
	qos   byte
	grace time.Duration
	state RunState
}

func New(pub mqttbus.IPublisher, acks *AckStream, qos byte, grace time.Duration) *Sequencer {
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Sequencer{pub: pub, acks: acks, qos: qos, grace: grace}
}

// State returns the sequencer's run state.
func (s *Sequencer) State() RunState {
	return s.state
}

// Run actuates the tasks strictly in order, one at a time. The context gates
// only the entry: once the first command is published the cycle runs to
// completion, because an opened valve has no local undo and the persisted
// record must reflect every dispensed volume.
//
// A missing acknowledgment times the zone out, is logged, and the run
// advances; no retry happens within the cycle.
func (s *Sequencer) Run(ctx context.Context, tasks []Task) []Result {
	results := make([]Result, 0, len(tasks))
	s.state = Running

	for i, t := range tasks {
		if i == 0 {
			select {
			case <-ctx.Done():
				log.Printf("sequencer: cancelled before first command: %v", ctx.Err())
				s.state = Done
				return results
			default:
			}
		}
		results = append(results, s.actuate(t))
	}

	s.state = Done
	return results
}

func (s *Sequencer) actuate(t Task) Result {
	z := t.Zone
	cmd := messages.ActuationCommand{Relay: z.Relay, DurationMS: t.Duration.Milliseconds()}
	res := Result{Zone: z, State: Pending, Duration: t.Duration}

	if stale := s.acks.Drain(); stale > 0 {
		log.Printf("sequencer: drained %d stale ack(s) before commanding zone %q", stale, z.Name)
	}

	log.Printf("sequencer: zone %q controller=%d relay=%d on for %s (%.2f gal)",
		z.Name, z.Controller, z.Relay, t.Duration, z.Demand)
	if err := s.pub.Publish(t.Topic, s.qos, cmd.Encode()); err != nil {
		// Nothing went out, so no water moved: the zone stays PENDING and
		// its record is left untouched.
		log.Printf("sequencer: publish for zone %q failed: %v", z.Name, err)
		res.Err = err
		res.DoneAt = time.Now()
		return res
	}
	res.State = CommandSent
	res.SentAt = time.Now()

	// Wait for the matching ack up to duration+grace. The actuator reports
	// completion only after its own timer expires, so an early ack means the
	// valve is already closed and the wait may end early.
	timer := time.NewTimer(t.Duration + s.grace)
	defer timer.Stop()

	for {
		select {
		case ack := <-s.acks.C():
			if !ack.Matches(z.Controller, cmd) {
				log.Printf("sequencer: ignoring unmatched ack controller=%d relay=%d while waiting on zone %q",
					ack.Controller, ack.Relay, z.Name)
				continue
			}
			res.State = Confirmed
			res.DoneAt = time.Now()
			log.Printf("sequencer: zone %q watered and confirmed after %s", z.Name, res.DoneAt.Sub(res.SentAt))
			return res
		case <-timer.C:
			res.State = TimedOut
			res.DoneAt = time.Now()
			log.Printf("sequencer: zone %q: no ack within %s, advancing (volume assumed dispensed)",
				z.Name, t.Duration+s.grace)
			return res
		}
	}
}
