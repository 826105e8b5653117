package chord

import (
	"context"
	"fmt"

	"github.com/zde37/ringlookup/pkg"
	"github.com/zde37/ringlookup/pkg/ring"
)

// LocalInitiator turns a participant's input keys into lookups and injects
// them into the participant's own service loop as the first hop.
type LocalInitiator struct {
	dir    *RingDirectory
	self   ring.ID
	sender Sender
	logger *pkg.Logger
}

// NewLocalInitiator creates the initiator for participant self.
func NewLocalInitiator(dir *RingDirectory, self ring.ID, sender Sender, logger *pkg.Logger) *LocalInitiator {
	if logger == nil {
		logger = pkg.Nop()
	}
	return &LocalInitiator{
		dir:    dir,
		self:   self,
		sender: sender,
		logger: logger.WithFields(pkg.Fields{"component": "initiator", "node_id": uint64(self)}),
	}
}

// Initiate sends one RouteRequest per key, in order, to the participant
// itself. The i-th key gets sequence number i. Every key is checked against
// the identifier space before anything is sent.
func (li *LocalInitiator) Initiate(ctx context.Context, keys []ring.ID) error {
	space := li.dir.Space()
	for i, k := range keys {
		if !space.Contains(k) {
			return fmt.Errorf("lookup %d key %d: %w", i, k, pkg.ErrIDOutOfRange)
		}
	}

	addr, err := li.dir.AddressOf(li.self)
	if err != nil {
		return err
	}

	for i, k := range keys {
		req := RouteRequest{Lookup: LookupMessage{
			InitiatorID: li.self,
			Seq:         i,
			Key:         k,
		}}
		if err := li.sender.Send(ctx, addr, req); err != nil {
			return fmt.Errorf("inject lookup %d: %w", i, err)
		}
	}

	li.logger.Debug().Int("lookups", len(keys)).Msg("Lookups issued")
	return nil
}
