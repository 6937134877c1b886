package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kasuganosora/guildbank/cache"
	"github.com/kasuganosora/guildbank/game/guild"
	"github.com/kasuganosora/guildbank/game/player"
	"go.uber.org/zap"
)

// CharChannel carries events for characters connected to another node.
const CharChannel = "guildbank.char"

const publishTimeout = 2 * time.Second

// GuildChannel returns the channel guild-wide events of id are published on.
func GuildChannel(id int64) string { return fmt.Sprintf("guildbank.guild.%d", id) }

// relay carries the events of one guild operation for characters that are
// not connected to the publishing node.
type relay struct {
	Node       string           `json:"node"`
	GuildID    int64            `json:"guild_id"`
	Deliveries []guild.Delivery `json:"deliveries"`
}

// Hub delivers guild events to WebSocket sessions. Characters connected to
// this node get the event directly; the others are reached through the
// pub/sub relay that every node runs.
type Hub struct {
	sessions *player.SessionManager
	ps       cache.PubSub
	node     string
	logger   *zap.Logger
}

// NewHub creates a Hub. ps may be nil on a single node deployment.
func NewHub(sessions *player.SessionManager, ps cache.PubSub, node string, logger *zap.Logger) *Hub {
	return &Hub{sessions: sessions, ps: ps, node: node, logger: logger}
}

func (h *Hub) deliver(s *player.PlayerSession, ev guild.Event) {
	s.SendJSON(ev.Type, ev)
}

// Notify implements guild.Notifier. Local sessions get their events
// directly; the rest travel in a single relay message.
func (h *Hub) Notify(guildID int64, ds []guild.Delivery) {
	var remote []guild.Delivery
	for _, d := range ds {
		if s := h.sessions.Get(d.CharID); s != nil {
			h.deliver(s, d.Event)
			continue
		}
		remote = append(remote, d)
	}
	if h.ps == nil || len(remote) == 0 {
		return
	}
	h.publish(CharChannel, relay{Node: h.node, GuildID: guildID, Deliveries: remote})
}

// Publish implements guild.Notifier.
func (h *Hub) Publish(guildID int64, ev guild.Event) {
	if h.ps == nil {
		return
	}
	h.publish(GuildChannel(guildID), ev)
}

func (h *Hub) publish(channel string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("encode guild event", zap.String("channel", channel), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := h.ps.Publish(ctx, channel, string(data)); err != nil {
		h.logger.Warn("publish guild event", zap.String("channel", channel), zap.Error(err))
	}
}

// Run relays events published by other nodes to local sessions until ctx
// is done.
func (h *Hub) Run(ctx context.Context) error {
	if h.ps == nil {
		<-ctx.Done()
		return nil
	}
	ch, cancel, err := h.ps.Subscribe(ctx, CharChannel)
	if err != nil {
		return err
	}
	defer cancel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var r relay
			if err := json.Unmarshal([]byte(msg.Payload), &r); err != nil {
				h.logger.Warn("bad relay message", zap.Error(err))
				continue
			}
			if r.Node == h.node {
				continue
			}
			for _, d := range r.Deliveries {
				if s := h.sessions.Get(d.CharID); s != nil {
					h.deliver(s, d.Event)
				}
			}
		case <-ctx.Done():
			return nil
		}
	}
}
