package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CourtsPubSub fans out court schedule changes to every instance so each
// can drop its cached schedules.
type CourtsPubSub struct {
	rdb     *redis.Client
	channel string
	now     func() time.Time
}

func NewCourtsPubSub(rdb *redis.Client) *CourtsPubSub {
	return &CourtsPubSub{
		rdb:     rdb,
		channel: ChannelCourtsChanged(),
		now:     time.Now,
	}
}

type courtChangedMsg struct {
	Type    string    `json:"type"`
	CourtID uuid.UUID `json:"court_id"`
	Dates   []string  `json:"dates"`
	TsUnix  int64     `json:"ts_unix"`
}

// PublishCourtChanged announces that bookings of a court changed on the given
// facility-local dates. A nil publisher does nothing.
func (p *CourtsPubSub) PublishCourtChanged(ctx context.Context, courtID uuid.UUID, dates ...string) error {
	if p == nil {
		return nil
	}

	msg := courtChangedMsg{
		Type:    "court_changed",
		CourtID: courtID,
		Dates:   dates,
		TsUnix:  p.now().Unix(),
	}

	b, _ := json.Marshal(msg)

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

// Subscribe blocks, calling handler for every well-formed message, until ctx
// is done or the subscription closes.
func (p *CourtsPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, courtID uuid.UUID, dates []string)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			handleCourtMessage(ctx, m.Payload, handler)
		}
	}
}

func handleCourtMessage(ctx context.Context, payload string, handler func(ctx context.Context, courtID uuid.UUID, dates []string)) bool {
	var ev courtChangedMsg
	if err := json.Unmarshal([]byte(payload), &ev); err != nil || ev.CourtID == uuid.Nil {
		return false
	}

	handler(ctx, ev.CourtID, ev.Dates)

	return true
}
