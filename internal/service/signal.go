package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/totegamma/questlog"
)

const channelPrefix = "questlog:campaign:"

func channel(campaignID int64) string {
	return channelPrefix + strconv.FormatInt(campaignID, 10)
}

// SignalService fans graph change events out to realtime subscribers.
// With a redis client events travel over pub/sub so every server instance
// sees them; without one they stay inside the process.
type SignalService struct {
	rdb *redis.Client

	mu    sync.Mutex
	local map[int64]map[chan questlog.Event]struct{}
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb:   redisClient,
		local: make(map[int64]map[chan questlog.Event]struct{}),
	}
}

func (s *SignalService) Publish(ctx context.Context, event questlog.Event) error {
	if s.rdb == nil {
		s.broadcast(event)
		return nil
	}

	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, channel(event.CampaignID), jsonstr).Err()
	if err != nil {
		return errors.Wrap(err, "publish graph change")
	}

	return nil
}

// Realtime forwards events of one campaign to output until ctx is done.
func (s *SignalService) Realtime(ctx context.Context, campaignID int64, output chan<- questlog.Event) {
	if s.rdb == nil {
		s.realtimeLocal(ctx, campaignID, output)
		return
	}

	pubsub := s.rdb.Subscribe(ctx, channel(campaignID))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event questlog.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.ErrorContext(
					ctx, "malformed signal",
					slog.String("error", err.Error()),
					slog.String("module", "signal"),
				)
				continue
			}
			select {
			case output <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *SignalService) realtimeLocal(ctx context.Context, campaignID int64, output chan<- questlog.Event) {
	ch := make(chan questlog.Event, 16)

	s.mu.Lock()
	subs, ok := s.local[campaignID]
	if !ok {
		subs = make(map[chan questlog.Event]struct{})
		s.local[campaignID] = subs
	}
	subs[ch] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(subs, ch)
		if len(subs) == 0 {
			delete(s.local, campaignID)
		}
		s.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-ch:
			select {
			case output <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *SignalService) broadcast(event questlog.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.local[event.CampaignID] {
		select {
		case ch <- event:
		default:
			slog.Warn(
				"subscriber is lagging, signal dropped",
				slog.Int64("campaignId", event.CampaignID),
				slog.String("module", "signal"),
			)
		}
	}
}
