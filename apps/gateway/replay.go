package main

import (
	"context"
	"log"
	"strconv"

	"github.com/ritvik/chat-dispatch/pkg/model"
	"github.com/ritvik/chat-dispatch/pkg/protocol"
)

// replayOffline delivers the messages addressed to userID, directly or to any
// group they belong to, that arrived after the user's last offline mark, in
// ascending userTime order. A zero mark means a first-ever login: no prior
// session, nothing missed, nothing replayed.
func (d *Dispatcher) replayOffline(ctx context.Context, userID string, h Handle) {
	id, _ := strconv.ParseInt(userID, 10, 64) // validated in register

	user, err := d.users.GetUser(ctx, id)
	if err != nil {
		log.Printf("gateway: replay: load user %s: %v", userID, err)
		d.reply(h, protocol.Failure(protocol.Register, "failed to load offline messages"))
		return
	}
	if user.OfflineTime.IsZero() {
		return
	}

	groupIDs, err := d.groups.GroupsOf(ctx, id)
	if err != nil {
		log.Printf("gateway: replay: load groups of %s: %v", userID, err)
		d.reply(h, protocol.Failure(protocol.Register, "failed to load offline messages"))
		return
	}

	pending, err := d.messages.PendingSince(ctx, id, groupIDs, user.OfflineTime)
	if err != nil {
		log.Printf("gateway: replay: load pending for %s: %v", userID, err)
		d.reply(h, protocol.Failure(protocol.Register, "failed to load offline messages"))
		return
	}

	profiles := make(map[int64]*model.User)
	for i := range pending {
		msg := &pending[i]
		sender, ok := profiles[msg.FromUserID]
		if !ok {
			sender = d.senderProfile(ctx, msg.FromUserID)
			profiles[msg.FromUserID] = sender
		}
		env := envelopeFor(msg, sender)
		if env == nil {
			log.Printf("gateway: replay: message %d has unknown type %d, skipped", msg.MessageID, msg.Type)
			continue
		}
		// A failed envelope doesn't abort the rest; reply logs and moves on.
		d.reply(h, env)
	}
	if len(pending) > 0 {
		log.Printf("gateway: replayed %d pending messages to %s", len(pending), userID)
	}
}
