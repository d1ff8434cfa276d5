package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/ritvik/chat-dispatch/pkg/model"
	"github.com/ritvik/chat-dispatch/pkg/protocol"
	"github.com/ritvik/chat-dispatch/pkg/store"
)

// Store interfaces are declared on the consumer side; pkg/store provides the
// Scylla-backed implementations, the tests provide in-memory fakes.

type UserStore interface {
	GetUser(ctx context.Context, userID int64) (*model.User, error)
	SetOfflineTime(ctx context.Context, userID int64, at time.Time) error
}

type GroupStore interface {
	GetGroup(ctx context.Context, groupID int64) (*model.Group, error)
	GroupsOf(ctx context.Context, userID int64) ([]int64, error)
}

type MessageStore interface {
	Insert(ctx context.Context, msg *model.Message) error
	PendingSince(ctx context.Context, userID int64, groupIDs []int64, since time.Time) ([]model.Message, error)
}

// Dispatcher routes one decoded inbound frame at a time per connection.
// Errors are local to the request that produced them; nothing here is fatal
// to the process.
type Dispatcher struct {
	presence *Registry
	users    UserStore
	groups   GroupStore
	messages MessageStore
	events   *EventFeed // optional

	// persistDeliveredFiles also stores direct file notices that were
	// delivered live. Off by default: a delivered file notice is ephemeral,
	// only the missed ones are kept for replay.
	persistDeliveredFiles bool
}

func NewDispatcher(presence *Registry, users UserStore, groups GroupStore, messages MessageStore, events *EventFeed, persistDeliveredFiles bool) *Dispatcher {
	return &Dispatcher{
		presence:              presence,
		users:                 users,
		groups:                groups,
		messages:              messages,
		events:                events,
		persistDeliveredFiles: persistDeliveredFiles,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, frame []byte, h Handle) {
	in, err := protocol.ParseInbound(frame)
	if err != nil {
		log.Printf("gateway: unparseable frame: %v", err)
		d.reply(h, protocol.Failure("", "invalid frame"))
		return
	}

	switch protocol.ChatType(in.Type) {
	case protocol.Register:
		d.register(ctx, in, h)
	case protocol.SingleSending:
		d.singleSend(ctx, in, h)
	case protocol.GroupSending:
		d.groupSend(ctx, in, h)
	case protocol.FileSingleSending:
		d.fileSingleSend(ctx, in, h)
	case protocol.FileGroupSending:
		d.fileGroupSend(ctx, in, h)
	default:
		d.reply(h, protocol.Failure("", "type not recognized"))
	}
}

func (d *Dispatcher) register(ctx context.Context, in *protocol.Inbound, h Handle) {
	if _, err := strconv.ParseInt(in.UserID, 10, 64); err != nil {
		d.reply(h, protocol.Failure(protocol.Register, "userId must be numeric"))
		return
	}

	prior, had := d.presence.Put(in.UserID, h)
	if had && prior != h {
		prior.Close()
	}
	d.reply(h, protocol.Success(protocol.Register))
	log.Printf("gateway: user %s registered, %d online", in.UserID, d.presence.Size())

	// The offline mark only advances at disconnect. Displacing a live session
	// means the mark is unchanged since its replay, so nothing new is pending.
	if had {
		return
	}
	d.replayOffline(ctx, in.UserID, h)
}

func (d *Dispatcher) singleSend(ctx context.Context, in *protocol.Inbound, h Handle) {
	from, to, ok := d.parsePair(h, protocol.SingleSending, in.FromUserID, in.ToUserID)
	if !ok {
		return
	}

	msg := &model.Message{
		Type:       model.TypeDirectText,
		FromUserID: from,
		ToUserID:   to,
		Content:    in.Content,
		UserTime:   time.Now(),
	}
	if err := d.messages.Insert(ctx, msg); err != nil {
		log.Printf("gateway: persist direct text from %d: %v", from, err)
		d.reply(h, protocol.Failure(protocol.SingleSending, "internal error"))
		return
	}
	d.publish(ctx, msg)

	recipient, online := d.presence.Get(in.ToUserID)
	if !online {
		// The row is persisted regardless; the sender just learns the peer
		// will see it later.
		d.reply(h, protocol.Failure(protocol.SingleSending,
			fmt.Sprintf("userId %s not logged in", in.ToUserID)))
		return
	}
	d.reply(recipient, envelopeFor(msg, d.senderProfile(ctx, from)))
}

func (d *Dispatcher) groupSend(ctx context.Context, in *protocol.Inbound, h Handle) {
	from, groupID, ok := d.parsePair(h, protocol.GroupSending, in.FromUserID, in.ToGroupID)
	if !ok {
		return
	}

	group, err := d.groups.GetGroup(ctx, groupID)
	if errors.Is(err, store.ErrNotFound) {
		d.reply(h, protocol.Failure(protocol.GroupSending, "group id does not exist"))
		return
	}
	if err != nil {
		log.Printf("gateway: load group %d: %v", groupID, err)
		d.reply(h, protocol.Failure(protocol.GroupSending, "internal error"))
		return
	}

	msg := &model.Message{
		Type:       model.TypeGroupText,
		FromUserID: from,
		GroupID:    groupID,
		Content:    in.Content,
		UserTime:   time.Now(),
	}
	if err := d.messages.Insert(ctx, msg); err != nil {
		log.Printf("gateway: persist group text from %d: %v", from, err)
		d.reply(h, protocol.Failure(protocol.GroupSending, "internal error"))
		return
	}
	d.publish(ctx, msg)

	d.fanOut(ctx, group, msg)
}

func (d *Dispatcher) fileSingleSend(ctx context.Context, in *protocol.Inbound, h Handle) {
	from, to, ok := d.parsePair(h, protocol.FileSingleSending, in.FromUserID, in.ToUserID)
	if !ok {
		return
	}

	msg := &model.Message{
		Type:       model.TypeDirectFile,
		FromUserID: from,
		ToUserID:   to,
		FileName:   in.OriginalFilename,
		FileSize:   in.FileSize,
		FileURL:    in.FileURL,
		UserTime:   time.Now(),
	}

	recipient, online := d.presence.Get(in.ToUserID)
	if !online || d.persistDeliveredFiles {
		if err := d.messages.Insert(ctx, msg); err != nil {
			log.Printf("gateway: persist direct file from %d: %v", from, err)
			d.reply(h, protocol.Failure(protocol.FileSingleSending, "internal error"))
			return
		}
		d.publish(ctx, msg)
	}

	if !online {
		d.reply(h, protocol.Failure(protocol.FileSingleSending,
			fmt.Sprintf("userId %s not logged in", in.ToUserID)))
		return
	}
	d.reply(recipient, envelopeFor(msg, d.senderProfile(ctx, from)))
}

func (d *Dispatcher) fileGroupSend(ctx context.Context, in *protocol.Inbound, h Handle) {
	from, groupID, ok := d.parsePair(h, protocol.FileGroupSending, in.FromUserID, in.ToGroupID)
	if !ok {
		return
	}

	group, err := d.groups.GetGroup(ctx, groupID)
	if errors.Is(err, store.ErrNotFound) {
		d.reply(h, protocol.Failure(protocol.FileGroupSending, "group id does not exist"))
		return
	}
	if err != nil {
		log.Printf("gateway: load group %d: %v", groupID, err)
		d.reply(h, protocol.Failure(protocol.FileGroupSending, "internal error"))
		return
	}

	msg := &model.Message{
		Type:       model.TypeGroupFile,
		FromUserID: from,
		GroupID:    groupID,
		FileName:   in.OriginalFilename,
		FileSize:   in.FileSize,
		FileURL:    in.FileURL,
		UserTime:   time.Now(),
	}
	if err := d.messages.Insert(ctx, msg); err != nil {
		log.Printf("gateway: persist group file from %d: %v", from, err)
		d.reply(h, protocol.Failure(protocol.FileGroupSending, "internal error"))
		return
	}
	d.publish(ctx, msg)

	d.fanOut(ctx, group, msg)
}

// Disconnect removes the handle's presence entry and advances the user's
// offline mark. Idempotent: unknown handles are silently ignored.
func (d *Dispatcher) Disconnect(ctx context.Context, h Handle) {
	userID, ok := d.presence.RemoveByHandle(h)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return
	}
	if err := d.users.SetOfflineTime(ctx, id, time.Now()); err != nil {
		log.Printf("gateway: update offline mark for %s: %v", userID, err)
	}
	log.Printf("gateway: user %s disconnected, %d online", userID, d.presence.Size())
}

// fanOut delivers a group envelope to every online member except the sender.
// A failed write to one member never stops delivery to the rest.
func (d *Dispatcher) fanOut(ctx context.Context, group *model.Group, msg *model.Message) {
	env := envelopeFor(msg, d.senderProfile(ctx, msg.FromUserID))
	payload, err := env.Encode()
	if err != nil {
		log.Printf("gateway: encode fan-out envelope: %v", err)
		return
	}
	for _, member := range group.Members {
		if member == msg.FromUserID {
			continue
		}
		if h, online := d.presence.Get(strconv.FormatInt(member, 10)); online {
			if err := h.Send(payload); err != nil {
				log.Printf("gateway: fan-out to %d failed: %v", member, err)
			}
		}
	}
}

func (d *Dispatcher) parsePair(h Handle, t protocol.ChatType, fromStr, targetStr string) (int64, int64, bool) {
	from, err := strconv.ParseInt(fromStr, 10, 64)
	if err != nil {
		d.reply(h, protocol.Failure(t, "fromUserId must be numeric"))
		return 0, 0, false
	}
	target, err := strconv.ParseInt(targetStr, 10, 64)
	if err != nil {
		d.reply(h, protocol.Failure(t, "target id must be numeric"))
		return 0, 0, false
	}
	return from, target, true
}

// reply encodes and fires an envelope at a handle. Transport failures are
// logged and swallowed; the peer is gone or hopelessly slow either way.
func (d *Dispatcher) reply(h Handle, env protocol.Envelope) {
	payload, err := env.Encode()
	if err != nil {
		log.Printf("gateway: encode envelope: %v", err)
		return
	}
	if err := h.Send(payload); err != nil {
		log.Printf("gateway: dropped outbound envelope: %v", err)
	}
}

func (d *Dispatcher) publish(ctx context.Context, msg *model.Message) {
	if d.events == nil {
		return
	}
	d.events.Publish(ctx, msg)
}

// senderProfile loads the sender's display profile. Lookup failure degrades
// to a bare id so delivery still happens.
func (d *Dispatcher) senderProfile(ctx context.Context, userID int64) *model.User {
	u, err := d.users.GetUser(ctx, userID)
	if err != nil {
		log.Printf("gateway: load sender %d: %v", userID, err)
		return &model.User{UserID: userID}
	}
	return u
}

// envelopeFor renders the live-delivery envelope for a persisted message.
// Offline replay reuses the same shapes. Returns nil for an unknown type.
func envelopeFor(msg *model.Message, sender *model.User) protocol.Envelope {
	sendTime := protocol.FormatTime(msg.UserTime)
	fromID := strconv.FormatInt(msg.FromUserID, 10)

	switch msg.Type {
	case model.TypeDirectText:
		return protocol.Success(protocol.SingleSending).
			With("fromUserId", fromID).
			With("fromUserName", sender.UserName).
			With("sendTime", sendTime).
			With("content", msg.Content)
	case model.TypeGroupText:
		return protocol.Success(protocol.GroupSending).
			With("fromUserId", fromID).
			With("fromUserName", sender.UserName).
			With("fromUserIcon", sender.UserIcon).
			With("content", msg.Content).
			With("toGroupId", strconv.FormatInt(msg.GroupID, 10)).
			With("sendTime", sendTime)
	case model.TypeDirectFile:
		return protocol.Success(protocol.FileSingleSending).
			With("fromUserId", fromID).
			With("fromUserName", sender.UserName).
			With("originalFilename", msg.FileName).
			With("fileSize", msg.FileSize).
			With("fileUrl", msg.FileURL).
			With("sendTime", sendTime)
	case model.TypeGroupFile:
		return protocol.Success(protocol.FileGroupSending).
			With("fromUserId", fromID).
			With("toGroupId", strconv.FormatInt(msg.GroupID, 10)).
			With("fromUserName", sender.UserName).
			With("fromUserIcon", sender.UserIcon).
			With("originalFilename", msg.FileName).
			With("fileSize", msg.FileSize).
			With("fileUrl", msg.FileURL).
			With("sendTime", sendTime)
	}
	return nil
}
