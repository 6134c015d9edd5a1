package sequencer

import (
	"log"
	"time"

	"github.com/gardenops/cimis-irrigation/internal/model/messages"
	"github.com/gardenops/cimis-irrigation/pkg/dedup"
)

// AckStream carries acknowledgments from the messaging client's receive
// goroutine to the sequencer. The bounded channel is the only state shared
// across execution contexts; the receive side never blocks on it.
type AckStream struct {
	ch      chan messages.ActuationAck
	deduper *dedup.Deduper
}

// NewAckStream sizes the buffer for the worst case of one ack per zone plus
// stragglers. The dedup TTL is short on purpose: ack payloads carry no
// message id, and the same controller+relay pair legitimately acks again in
// a later cycle.
func NewAckStream(buffer int) *AckStream {
	if buffer <= 0 {
		buffer = 16
	}
	return &AckStream{
		ch:      make(chan messages.ActuationAck, buffer),
		deduper: dedup.New(30*time.Second, 1024),
	}
}

// HandleMessage is the MQTT subscription callback for the shared ack topic.
// It normalizes the payload, drops QoS1 redeliveries, and hands the ack to
// the sequencer without blocking.
func (s *AckStream) HandleMessage(topic string, payload []byte) error {
	raw := string(payload)
	ack, err := messages.ParseAck(raw)
	if err != nil {
		log.Printf("sequencer: dropping malformed ack on %s: %v", topic, err)
		return nil
	}
	if !s.deduper.ShouldProcess(raw) {
		log.Printf("sequencer: dropping duplicate ack %q", raw)
		return nil
	}

	select {
	case s.ch <- ack:
	default:
		log.Printf("sequencer: ack buffer full, dropping %q", raw)
	}
	return nil
}

// C exposes the ack channel to the sequencer's wait loop.
func (s *AckStream) C() <-chan messages.ActuationAck {
	return s.ch
}

// Drain discards buffered acks and returns how many were dropped. The
// sequencer drains immediately before each publish so a stale ack from an
// earlier command can never confirm the next one.
func (s *AckStream) Drain() int {
	n := 0
	for {
		select {
		case ack := <-s.ch:
			log.Printf("sequencer: discarding stale ack controller=%d relay=%d", ack.Controller, ack.Relay)
			n++
		default:
			return n
		}
	}
}
