package chord

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/zde37/ringlookup/pkg"
	"github.com/zde37/ringlookup/pkg/ring"
)

// Sender delivers a message to the participant at the given address. Sends
// are reliable and ordered per sender/receiver pair.
type Sender interface {
	Send(ctx context.Context, to Address, msg Message) error
}

// Mailbox yields the next inbound message from any sender, of any kind.
// Receive blocks until a message is available.
type Mailbox interface {
	Receive(ctx context.Context) (Message, error)
}

// ServiceState is the termination state of a NodeService.
type ServiceState int32

const (
	StateActive ServiceState = iota
	StateLocallyDone
	StateTerminated
)

func (s ServiceState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateLocallyDone:
		return "locally_done"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// NodeService is the message loop of one participant. It routes lookups on
// behalf of others, collects replies to its own lookups and runs the DONE
// handshake.
//
// The handshake (announce local completion, wait for everyone else's) is only
// sound because membership is static and known up front. It must not be
// reused if participants can ever join or leave.
type NodeService struct {
	dir     *RingDirectory
	node    NodeState
	addr    Address
	results *ResultStore

	doneCount int
	state     atomic.Int32

	sender      Sender
	mailbox     Mailbox
	broadcaster EventBroadcaster

	logger *pkg.Logger
}

// NewNodeService creates the service for participant self, which will issue
// `issued` lookups of its own.
func NewNodeService(dir *RingDirectory, self ring.ID, issued int, sender Sender, mailbox Mailbox, logger *pkg.Logger) (*NodeService, error) {
	if dir == nil {
		return nil, fmt.Errorf("directory cannot be nil")
	}
	if sender == nil || mailbox == nil {
		return nil, fmt.Errorf("sender and mailbox cannot be nil")
	}
	if issued < 0 {
		return nil, fmt.Errorf("issued lookups cannot be negative, got %d", issued)
	}
	if logger == nil {
		logger = pkg.Nop()
	}

	node, err := NewNodeState(dir, self)
	if err != nil {
		return nil, err
	}
	addr, err := dir.AddressOf(self)
	if err != nil {
		return nil, err
	}

	s := &NodeService{
		dir:     dir,
		node:    node,
		addr:    addr,
		results: NewResultStore(issued),
		sender:  sender,
		mailbox: mailbox,
		logger: logger.WithFields(pkg.Fields{
			"node_id": uint64(self),
			"rank":    int(addr),
		}),
	}

	s.logger.Debug().
		Uint64("successor", uint64(node.Successor)).
		Uint64("predecessor", uint64(node.Predecessor)).
		Str("fingers", fmt.Sprint(node.Fingers)).
		Msg("Node state built")

	return s, nil
}

// SetBroadcaster attaches an optional event broadcaster. Call before Run.
func (s *NodeService) SetBroadcaster(b EventBroadcaster) {
	s.broadcaster = b
}

// ID returns the participant's ring id.
func (s *NodeService) ID() ring.ID {
	return s.node.ID
}

// Address returns the participant's address.
func (s *NodeService) Address() Address {
	return s.addr
}

// NodeState returns the participant's routing state.
func (s *NodeService) NodeState() NodeState {
	return s.node
}

// State returns the current termination state.
func (s *NodeService) State() ServiceState {
	return ServiceState(s.state.Load())
}

// Run drives the service loop until the DONE handshake completes and returns
// the participant's own lookups ordered by sequence number. The context only
// serves to abort the whole run; no timeouts are applied.
func (s *NodeService) Run(ctx context.Context) ([]LookupMessage, error) {
	s.logger.Debug().
		Int("issued", s.results.Size()).
		Int("participants", s.dir.Len()).
		Msg("Service loop started")

	for {
		if err := s.advance(ctx); err != nil {
			return nil, err
		}
		if s.State() == StateTerminated {
			s.publish(LookupEvent{Type: EventTerminated, Message: "all participants done"})
			s.logger.Info().
				Int("lookups", s.results.Completed()).
				Msg("Service loop terminated")
			return s.results.Ordered(), nil
		}

		msg, err := s.mailbox.Receive(ctx)
		if err != nil {
			return nil, fmt.Errorf("node %d receive: %w", s.node.ID, err)
		}

		if err := s.handle(ctx, msg); err != nil {
			return nil, err
		}
	}
}

// handle dispatches a single inbound message.
func (s *NodeService) handle(ctx context.Context, msg Message) error {
	switch m := msg.(type) {
	case RouteRequest:
		return s.handleRoute(ctx, m)
	case Reply:
		return s.handleReply(m)
	case Done:
		s.doneCount++
		s.logger.Debug().
			Int("from", int(m.From)).
			Int("done_count", s.doneCount).
			Msg("Done received")
		return nil
	default:
		return fmt.Errorf("node %d: unexpected message %T", s.node.ID, msg)
	}
}

func (s *NodeService) handleRoute(ctx context.Context, req RouteRequest) error {
	if len(req.Lookup.Path) == 0 {
		s.publish(LookupEvent{
			Type:      EventLookupIssued,
			Initiator: uint64(req.Lookup.InitiatorID),
			Seq:       req.Lookup.Seq,
			Key:       uint64(req.Lookup.Key),
		})
	}

	out, to, err := Route(s.dir, s.node, req.Lookup)
	if err != nil {
		return fmt.Errorf("node %d route: %w", s.node.ID, err)
	}

	var lookup LookupMessage
	event := EventLookupForwarded
	switch o := out.(type) {
	case Reply:
		lookup = o.Lookup
		event = EventLookupReplied
	case RouteRequest:
		lookup = o.Lookup
	}

	s.logger.Debug().
		Str("kind", out.Kind()).
		Uint64("key", uint64(lookup.Key)).
		Int("seq", lookup.Seq).
		Uint64("initiator", uint64(lookup.InitiatorID)).
		Int("to", int(to)).
		Msg("Routing step")

	if err := s.sender.Send(ctx, to, out); err != nil {
		return fmt.Errorf("node %d send %s to %d: %w", s.node.ID, out.Kind(), to, err)
	}

	s.publish(LookupEvent{
		Type:      event,
		Initiator: uint64(lookup.InitiatorID),
		Seq:       lookup.Seq,
		Key:       uint64(lookup.Key),
		Next:      int(to),
		Path:      pathToUint(lookup.Path),
	})
	return nil
}

func (s *NodeService) handleReply(rep Reply) error {
	if rep.Lookup.InitiatorID != s.node.ID {
		return fmt.Errorf("node %d got reply for initiator %d: %w", s.node.ID, rep.Lookup.InitiatorID, pkg.ErrUnknownID)
	}
	if err := s.results.Put(rep.Lookup); err != nil {
		return fmt.Errorf("node %d: %w", s.node.ID, err)
	}

	s.logger.Debug().
		Uint64("key", uint64(rep.Lookup.Key)).
		Int("seq", rep.Lookup.Seq).
		Str("path", rep.Lookup.PathString()).
		Int("completed", s.results.Completed()).
		Msg("Lookup completed")

	s.publish(LookupEvent{
		Type:      EventLookupCompleted,
		Initiator: uint64(rep.Lookup.InitiatorID),
		Seq:       rep.Lookup.Seq,
		Key:       uint64(rep.Lookup.Key),
		Path:      pathToUint(rep.Lookup.Path),
		Message:   rep.Lookup.PathString(),
	})
	return nil
}

// advance fires the state transitions that the current counters allow.
func (s *NodeService) advance(ctx context.Context) error {
	if s.State() == StateActive && s.results.Completed() == s.results.Size() {
		s.state.Store(int32(StateLocallyDone))

		for _, addr := range s.dir.Addresses() {
			if addr == s.addr {
				continue
			}
			if err := s.sender.Send(ctx, addr, Done{From: s.addr}); err != nil {
				return fmt.Errorf("node %d send done to %d: %w", s.node.ID, addr, err)
			}
		}

		s.logger.Info().
			Int("lookups", s.results.Completed()).
			Msg("All local lookups completed, done broadcast")
		s.publish(LookupEvent{Type: EventLocallyDone})
	}

	if s.State() == StateLocallyDone && s.doneCount == s.dir.Len()-1 {
		s.state.Store(int32(StateTerminated))
	}
	return nil
}

func (s *NodeService) publish(event LookupEvent) {
	if s.broadcaster == nil {
		return
	}
	event.NodeID = uint64(s.node.ID)
	event.Address = int(s.addr)
	event.Timestamp = time.Now().UnixNano()
	if err := s.broadcaster.BroadcastLookupEvent(event); err != nil {
		s.logger.Warn().Err(err).Str("event", event.Type).Msg("Failed to broadcast event")
	}
}

func pathToUint(path []ring.ID) []uint64 {
	out := make([]uint64, len(path))
	for i, id := range path {
		out[i] = uint64(id)
	}
	return out
}
