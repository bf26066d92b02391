package gateway

import (
	"context"
	"errors"

	"talentwire/internal/core/domain"
	"talentwire/internal/core/ports"

	"go.uber.org/zap"
)

// HubMetrics feeds the prometheus collector from the membership loop.
type HubMetrics interface {
	ClientJoined()
	ClientLeft()
	SetOpenRooms(n int)
	RecordBroadcast(eventType string)
	RecordSlowClientDrop()
}

type noopHubMetrics struct{}

func (noopHubMetrics) ClientJoined()          {}
func (noopHubMetrics) ClientLeft()            {}
func (noopHubMetrics) SetOpenRooms(int)       {}
func (noopHubMetrics) RecordBroadcast(string) {}
func (noopHubMetrics) RecordSlowClientDrop()  {}

type hubCmd interface{ hubCmd() }

type cmdJoin struct {
	client ports.Client
	round  domain.RoundID
}

func (cmdJoin) hubCmd() {}

type cmdLeave struct {
	client ports.Client
}

func (cmdLeave) hubCmd() {}

type cmdBroadcast struct {
	round     domain.RoundID
	eventType string
	data      []byte
	localOnly bool
	ctx       context.Context
}

func (cmdBroadcast) hubCmd() {}

type cmdMembers struct {
	round   domain.RoundID
	replyCh chan int
}

func (cmdMembers) hubCmd() {}

type cmdStop struct {
	doneCh chan struct{}
}

func (cmdStop) hubCmd() {}

type busOp struct {
	subscribe bool
	round     domain.RoundID
}

// Hub owns room membership for this relay instance. Every mutation runs on
// the single command loop, which makes the one-room-per-connection invariant
// trivially atomic: an implicit leave and the following join can never
// interleave with another mutation of the same connection.
type Hub struct {
	cmdCh chan hubCmd
	busCh chan busOp

	rooms       map[domain.RoundID]map[string]ports.Client
	memberRooms map[string]domain.RoundID

	bus     ports.ClusterBus
	metrics HubMetrics
	logger  *zap.SugaredLogger
}

func NewHub(bus ports.ClusterBus, metrics HubMetrics, logger *zap.SugaredLogger) *Hub {
	if metrics == nil {
		metrics = noopHubMetrics{}
	}
	h := &Hub{
		cmdCh:       make(chan hubCmd, 256),
		rooms:       make(map[domain.RoundID]map[string]ports.Client),
		memberRooms: make(map[string]domain.RoundID),
		bus:         bus,
		metrics:     metrics,
		logger:      logger,
	}
	if bus != nil {
		h.busCh = make(chan busOp, 256)
		go h.busLoop()
	}
	go h.run()
	return h
}

// busLoop applies subscribe/unsubscribe calls one at a time, in the order the
// membership loop decided them. A slow unsubscribe can therefore never land
// after the subscribe of a member who joined the same room later.
func (h *Hub) busLoop() {
	for op := range h.busCh {
		if op.subscribe {
			if err := h.bus.SubscribeRoom(op.round); err != nil {
				h.logger.Errorw("room subscribe failed", "round_id", op.round, "error", err)
			}
		} else {
			if err := h.bus.UnsubscribeRoom(op.round); err != nil {
				h.logger.Warnw("room unsubscribe failed", "round_id", op.round, "error", err)
			}
		}
	}
}

func (h *Hub) run() {
	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case cmdJoin:
			h.handleJoin(c.client, c.round)
		case cmdLeave:
			h.handleLeave(c.client, false)
		case cmdBroadcast:
			h.handleBroadcast(c)
		case cmdMembers:
			c.replyCh <- len(h.rooms[c.round])
		case cmdStop:
			h.handleStop()
			close(c.doneCh)
			return
		}
	}
}

func (h *Hub) handleJoin(client ports.Client, round domain.RoundID) {
	// One room per connection: joining implicitly leaves the previous room
	// without closing the connection.
	h.handleLeave(client, false)

	members, open := h.rooms[round]
	if !open {
		members = make(map[string]ports.Client)
		h.rooms[round] = members
		h.metrics.SetOpenRooms(len(h.rooms))
		h.subscribeRoom(round)
	}

	members[client.ID()] = client
	h.memberRooms[client.ID()] = round
	h.metrics.ClientJoined()
}

// handleLeave removes the client from its room, if any. Leaving never tears
// the connection down on its own; closeClient is true only for the hub's own
// disconnect decisions (slow-client drops, Stop). The read loop owns teardown
// for everything else.
func (h *Hub) handleLeave(client ports.Client, closeClient bool) {
	round, ok := h.memberRooms[client.ID()]
	if ok {
		delete(h.memberRooms, client.ID())
		members := h.rooms[round]
		delete(members, client.ID())
		h.metrics.ClientLeft()

		if len(members) == 0 {
			delete(h.rooms, round)
			h.metrics.SetOpenRooms(len(h.rooms))
			h.unsubscribeRoom(round)
		}
	}

	if closeClient {
		if gc, isGateway := client.(*Client); isGateway {
			gc.close()
		}
	}
}

func (h *Hub) handleBroadcast(c cmdBroadcast) {
	h.metrics.RecordBroadcast(c.eventType)

	members := h.rooms[c.round]
	var slow []ports.Client
	for _, member := range members {
		if err := member.SendRaw(c.data); err != nil {
			if errors.Is(err, ErrSendBufferFull) {
				slow = append(slow, member)
			}
		}
	}

	// A saturated buffer means the reader cannot keep up with the room's
	// event rate. Drop it; the client reconnects and catches up.
	for _, member := range slow {
		h.logger.Warnw("disconnecting slow client",
			"round_id", c.round,
			"client_id", member.ID(),
		)
		h.metrics.RecordSlowClientDrop()
		h.handleLeave(member, true)
	}

	if !c.localOnly && h.bus != nil {
		if err := h.bus.PublishRoom(c.ctx, c.round, c.data); err != nil {
			h.logger.Warnw("cluster publish failed", "round_id", c.round, "error", err)
		}
	}
}

func (h *Hub) handleStop() {
	for id, round := range h.memberRooms {
		members := h.rooms[round]
		if member, ok := members[id]; ok {
			if gc, isGateway := member.(*Client); isGateway {
				gc.close()
			}
		}
	}
	h.rooms = make(map[domain.RoundID]map[string]ports.Client)
	h.memberRooms = make(map[string]domain.RoundID)

	if h.busCh != nil {
		close(h.busCh)
	}
}

// subscribeRoom hands the broker round-trip to the bus worker: it must not
// stall membership, and it must stay ordered relative to unsubscribes of the
// same room. Events published before the subscription lands are covered by
// the catch-up batch on join.
func (h *Hub) subscribeRoom(round domain.RoundID) {
	if h.busCh == nil {
		return
	}
	h.busCh <- busOp{subscribe: true, round: round}
}

func (h *Hub) unsubscribeRoom(round domain.RoundID) {
	if h.busCh == nil {
		return
	}
	h.busCh <- busOp{round: round}
}

// --- ports.RoomRegistry ---

func (h *Hub) Join(client ports.Client, round domain.RoundID) {
	h.cmdCh <- cmdJoin{client: client, round: round}
}

// Leave removes the client from its room without closing the connection:
// an explicit leave_room keeps the socket alive for a later join.
func (h *Hub) Leave(client ports.Client) {
	h.cmdCh <- cmdLeave{client: client}
}

// Broadcast fans an event out to the room's local members and publishes it
// to the cluster bus for members on other instances.
func (h *Hub) Broadcast(ctx context.Context, round domain.RoundID, eventType string, payload any) {
	data, err := marshalEnvelope(eventType, payload)
	if err != nil {
		h.logger.Errorw("broadcast marshal failed", "round_id", round, "event", eventType, "error", err)
		return
	}
	h.cmdCh <- cmdBroadcast{round: round, eventType: eventType, data: data, ctx: ctx}
}

func (h *Hub) LocalMembers(round domain.RoundID) int {
	replyCh := make(chan int, 1)
	h.cmdCh <- cmdMembers{round: round, replyCh: replyCh}
	return <-replyCh
}

// DeliverClusterEvent hands an envelope received from another instance to
// this instance's local members. Never republished, or two instances would
// ping-pong events forever.
func (h *Hub) DeliverClusterEvent(round domain.RoundID, data []byte) {
	h.cmdCh <- cmdBroadcast{round: round, eventType: "cluster", data: data, localOnly: true, ctx: context.Background()}
}

// Stop tears down all connections and halts the command loop.
func (h *Hub) Stop() {
	doneCh := make(chan struct{})
	h.cmdCh <- cmdStop{doneCh: doneCh}
	<-doneCh
}
