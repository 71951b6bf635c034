// Package scan drives file discovery into a catalog.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/mrsinham/dicomsend/internal/catalog"
	"github.com/mrsinham/dicomsend/internal/source"
)

// DefaultTick is the pause between two pulls from the file source.
const DefaultTick = 10 * time.Millisecond

// Outcome is how a scan that did not fail ended.
type Outcome int

const (
	Completed Outcome = iota
	Cancelled
)

func (o Outcome) String() string {
	if o == Cancelled {
		return "cancelled"
	}
	return "completed"
}

// Pipeline pulls one file per tick from a source and classifies it on a
// bounded pool of goroutines.
type Pipeline struct {
	// Tick is the pull period. Zero or negative pulls without pausing.
	Tick time.Duration
	// Workers bounds concurrent classifications. Defaults to 2*NumCPU.
	Workers int
	Log     zerolog.Logger
}

// New returns a pipeline with default tick and pool size.
func New(log zerolog.Logger) *Pipeline {
	return &Pipeline{Tick: DefaultTick, Workers: runtime.NumCPU() * 2, Log: log}
}

// Run scans src into cat until the source is exhausted and every submitted
// file has been classified, or until ctx is cancelled. Cancellation returns
// Cancelled at once; classifications already started finish in the
// background. An enumeration error from the source is returned as is.
// observe, if set, is called after every pull with the catalog counts.
func (p *Pipeline) Run(ctx context.Context, cat *catalog.Catalog, src source.FileSource, filter []string, observe func(catalog.Counts)) (Outcome, error) {
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}
	sem := semaphore.NewWeighted(int64(workers))

	var tick <-chan time.Time
	if p.Tick > 0 {
		ticker := time.NewTicker(p.Tick)
		defer ticker.Stop()
		tick = ticker.C
	}

	exhausted := false
	for {
		if ctx.Err() != nil {
			p.Log.Debug().Int64("submitted", cat.Submitted()).Msg("scan cancelled")
			return Cancelled, nil
		}

		if !exhausted {
			ref, err := src.Next(ctx)
			switch {
			case errors.Is(err, io.EOF):
				exhausted = true
			case ctx.Err() != nil:
				return Cancelled, nil
			case err != nil:
				return Completed, fmt.Errorf("scan: %w", err)
			default:
				if err := sem.Acquire(ctx, 1); err != nil {
					return Cancelled, nil
				}
				cat.Submit()
				go func() {
					defer sem.Release(1)
					cat.Classify(ctx, ref, filter)
				}()
			}
		}

		counts := cat.Counts()
		if observe != nil {
			observe(counts)
		}
		if exhausted && counts.InFlight == 0 {
			p.Log.Debug().Int64("submitted", counts.Submitted).Int("studies", counts.Studies).Msg("scan complete")
			return Completed, nil
		}

		if tick == nil {
			if exhausted {
				// Nothing left to pull: wait for running classifications.
				if err := sem.Acquire(ctx, int64(workers)); err != nil {
					return Cancelled, nil
				}
				sem.Release(int64(workers))
			}
			continue
		}
		select {
		case <-ctx.Done():
			return Cancelled, nil
		case <-tick:
		}
	}
}
