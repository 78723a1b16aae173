package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// SeasonsPubSub broadcasts season change notifications so other instances can
// drop their cached availability.
type SeasonsPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewSeasonsPubSub(rdb *redis.Client) *SeasonsPubSub {
	return &SeasonsPubSub{
		rdb:     rdb,
		channel: ChannelSeasonsChanged(),
	}
}

type seasonChangedMsg struct {
	Type     string `json:"type"`
	SeasonID int64  `json:"season_id"`
	TsUnix   int64  `json:"ts_unix"`
}

func (p *SeasonsPubSub) PublishSeasonChanged(ctx context.Context, seasonID int64) error {
	msg := seasonChangedMsg{
		Type:     "season_changed",
		SeasonID: seasonID,
		TsUnix:   time.Now().Unix(),
	}

	b, _ := json.Marshal(msg)

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

func (p *SeasonsPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, seasonID int64)) error {
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
			var ev seasonChangedMsg
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil &&
				ev.SeasonID != 0 {
				handler(ctx, ev.SeasonID)
			}
		}
	}
}
