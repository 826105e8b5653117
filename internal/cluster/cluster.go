// Package cluster bootstraps a static ring of participants inside one
// process: it assigns ranks, performs the id all-gather, wires every
// participant to the transport and runs all service loops to completion.
package cluster

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/zde37/ringlookup/internal/chord"
	"github.com/zde37/ringlookup/internal/input"
	"github.com/zde37/ringlookup/internal/transport"
	"github.com/zde37/ringlookup/pkg"
	"github.com/zde37/ringlookup/pkg/ring"
)

// Options configures a run.
type Options struct {
	Bits      int
	Transport transport.Options // Size is filled in from the inputs

	// Broadcaster, when set, receives the events of every participant.
	Broadcaster chord.EventBroadcaster
}

// Result is the outcome of one participant.
type Result struct {
	Rank    int
	ID      ring.ID
	Lookups []chord.LookupMessage // in submission order
}

// Gather performs the all-gather of ring ids: participant i contributes its
// id at address i.
func Gather(space ring.Space, participants []input.Participant) (*chord.RingDirectory, error) {
	members := make([]chord.Member, len(participants))
	for i, p := range participants {
		members[i] = chord.Member{ID: p.ID, Addr: chord.Address(i)}
	}
	return chord.NewRingDirectory(space, members)
}

// Run executes the whole simulation. Any participant failure cancels every
// other participant and is returned; results are only returned when all
// participants terminated.
func Run(ctx context.Context, opts Options, participants []input.Participant, logger *pkg.Logger) ([]Result, error) {
	if logger == nil {
		logger = pkg.Nop()
	}
	if len(participants) == 0 {
		return nil, fmt.Errorf("no participants: %w", pkg.ErrInputUnavailable)
	}

	space, err := ring.NewSpace(opts.Bits)
	if err != nil {
		return nil, err
	}

	dir, err := Gather(space, participants)
	if err != nil {
		return nil, fmt.Errorf("all-gather: %w", err)
	}

	logger.Info().
		Int("participants", dir.Len()).
		Int("bits", space.Bits).
		Str("ids", fmt.Sprint(dir.IDs())).
		Str("transport", opts.Transport.Kind).
		Msg("Ring directory built")

	tOpts := opts.Transport
	tOpts.Size = len(participants)
	fabric, err := transport.NewFabric(tOpts, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}
	defer func() {
		if err := fabric.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close transport")
		}
	}()

	// Build every service before starting any, so a bad participant fails the
	// run before a single message is sent.
	services := make([]*chord.NodeService, len(participants))
	initiators := make([]*chord.LocalInitiator, len(participants))
	for i, p := range participants {
		ep, err := fabric.Endpoint(chord.Address(i))
		if err != nil {
			return nil, err
		}
		plog := logger.WithFields(pkg.Fields{"rank": i})

		svc, err := chord.NewNodeService(dir, p.ID, len(p.Keys), ep, ep, plog)
		if err != nil {
			return nil, fmt.Errorf("rank %d: %w", i, err)
		}
		if opts.Broadcaster != nil {
			svc.SetBroadcaster(opts.Broadcaster)
		}

		state := svc.NodeState()
		fingers := make([]string, len(state.Fingers))
		for j, f := range state.Fingers {
			fingers[j] = f.String()
		}
		plog.Debug().
			Uint64("node_id", uint64(state.ID)).
			Uint64("successor", uint64(state.Successor)).
			Uint64("predecessor", uint64(state.Predecessor)).
			Strs("fingers", fingers).
			Msg("Finger table built")

		services[i] = svc
		initiators[i] = chord.NewLocalInitiator(dir, p.ID, ep, plog)
	}

	results := make([]Result, len(participants))
	g, gctx := errgroup.WithContext(ctx)
	for i := range participants {
		g.Go(func() error {
			if err := initiators[i].Initiate(gctx, participants[i].Keys); err != nil {
				return fmt.Errorf("rank %d: %w", i, err)
			}
			lookups, err := services[i].Run(gctx)
			if err != nil {
				return fmt.Errorf("rank %d: %w", i, err)
			}
			results[i] = Result{Rank: i, ID: participants[i].ID, Lookups: lookups}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// WriteReports prints every participant's report, rank by rank.
func WriteReports(w io.Writer, results []Result) error {
	for _, r := range results {
		if err := chord.WriteReport(w, r.Lookups); err != nil {
			return err
		}
	}
	return nil
}
