package gateway

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Broadcaster builds envelopes and sends them to clients.
type Broadcaster struct {
	hub *Hub
	now func() time.Time
}

// NewBroadcaster creates a Broadcaster backed by the given Hub.
func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub, now: time.Now}
}

// Broadcast encodes data and sends it on channel to every client. Slow
// clients whose send queue is full miss the message; they can backfill it
// from the replay buffer using channel_seq.
func (b *Broadcaster) Broadcast(channel string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "marshal payload")
	}
	now := b.now().UTC()

	b.hub.mu.Lock()
	b.hub.channelSeqs[channel]++
	channelSeq := b.hub.channelSeqs[channel]
	b.hub.seq++
	seq := b.hub.seq

	buf := buildEnvelope(channel, payload, now, seq, channelSeq)
	b.hub.latest[channel] = latestEntry{Envelope: buf, TS: now, Seq: channelSeq}

	rb, exists := b.hub.replayBufs[channel]
	if !exists {
		rb = NewReplayBuffer(b.hub.replaySize)
		b.hub.replayBufs[channel] = rb
	}
	// Push before unlocking so replay order matches channel_seq order.
	rb.Push(channelSeq, buf)
	b.hub.mu.Unlock()

	b.hub.mu.RLock()
	defer b.hub.mu.RUnlock()
	for client := range b.hub.clients {
		select {
		case client.send <- buf:
		default:
		}
	}
	return nil
}

// buildEnvelope writes {"channel":...,"data":...,"ts":...,"seq":N,"channel_seq":M}
// by hand; data must already be valid JSON.
func buildEnvelope(channel string, data []byte, now time.Time, seq, channelSeq int64) []byte {
	quoted, _ := json.Marshal(channel)

	buf := make([]byte, 0, len(quoted)+len(data)+128)
	buf = append(buf, `{"channel":`...)
	buf = append(buf, quoted...)
	buf = append(buf, `,"data":`...)
	buf = append(buf, data...)
	buf = append(buf, `,"ts":"`...)
	buf = now.AppendFormat(buf, time.RFC3339Nano)
	buf = append(buf, `","seq":`...)
	buf = strconv.AppendInt(buf, seq, 10)
	buf = append(buf, `,"channel_seq":`...)
	buf = strconv.AppendInt(buf, channelSeq, 10)
	buf = append(buf, '}')
	return buf
}
