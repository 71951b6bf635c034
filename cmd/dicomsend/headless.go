package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/mrsinham/dicomsend/internal/catalog"
	"github.com/mrsinham/dicomsend/internal/source"
	"github.com/mrsinham/dicomsend/internal/workflow"
)

// headless drives the workflow from flags, printing progress to out.
type headless struct {
	m       *workflow.Machine
	out     io.Writer
	studies []string
	all     bool
	yes     bool
	// written receives the result of writing the ledger after completion.
	written <-chan error
	// confirm asks the operator; nil refuses anything not pre-confirmed.
	confirm func(question string) (bool, error)
}

// snapshotQueue buffers every snapshot so no state change is missed.
type snapshotQueue struct {
	mu     sync.Mutex
	items  []workflow.Snapshot
	signal chan struct{}
}

func newSnapshotQueue() *snapshotQueue {
	return &snapshotQueue{signal: make(chan struct{}, 1)}
}

func (q *snapshotQueue) push(s workflow.Snapshot) {
	q.mu.Lock()
	q.items = append(q.items, s)
	q.mu.Unlock()
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *snapshotQueue) drain() []workflow.Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

func (h *headless) run(ctx context.Context, dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("folder: %w", err)
	}

	q := newSnapshotQueue()
	unsubscribe := h.m.Subscribe(q.push)
	defer unsubscribe()

	if err := h.m.SelectFolder(source.Dir(dir)); err != nil {
		return err
	}

	var (
		bar     *progressbar.ProgressBar
		started = time.Now()
	)
	for {
		select {
		case <-ctx.Done():
			_ = h.m.Cancel()
			return ctx.Err()
		case <-q.signal:
		}

		for _, s := range q.drain() {
			switch s.State {
			case workflow.Scanning:
				if bar == nil {
					bar = progressbar.NewOptions(-1,
						progressbar.OptionSetWriter(h.out),
						progressbar.OptionSetDescription("scanning"),
						progressbar.OptionShowCount(),
						progressbar.OptionSpinnerType(14),
					)
				}
				_ = bar.Set64(s.Scan.Submitted)

			case workflow.ScanCompleteSelectionPending:
				if bar != nil {
					_ = bar.Finish()
					fmt.Fprintln(h.out)
					bar = nil
				}
				if len(s.Selected) > 0 || s.Warning != "" {
					// Our own selection being echoed back.
					continue
				}
				if err := h.choose(s); err != nil {
					return err
				}

			case workflow.Sending:
				if bar == nil {
					bar = progressbar.NewOptions(s.Send.Total,
						progressbar.OptionSetWriter(h.out),
						progressbar.OptionSetDescription("sending"),
						progressbar.OptionShowCount(),
						progressbar.OptionSetWidth(40),
					)
				}
				_ = bar.Set(s.Send.Sent)

			case workflow.SendComplete:
				if bar != nil {
					_ = bar.Finish()
					fmt.Fprintln(h.out)
				}
				fmt.Fprintf(h.out, "Sent %s instances in %s.\n",
					humanize.Comma(int64(s.Send.Sent)), time.Since(started).Round(time.Millisecond))
				if h.written == nil {
					return nil
				}
				return waitLedger(ctx, h.written)

			case workflow.Failed:
				return errors.New(s.Failure)

			case workflow.WaitingForFolder:
				return errors.New("scan cancelled")
			}
		}
	}
}

// choose prints the studies found, selects and confirms them.
func (h *headless) choose(s workflow.Snapshot) error {
	studies := h.m.Catalog().Studies()
	fmt.Fprintf(h.out, "%s files scanned, %s not DICOM, %s filtered out.\n",
		humanize.Comma(s.Scan.Submitted), humanize.Comma(int64(s.Scan.Other)), humanize.Comma(int64(s.Scan.Rejected)))
	if len(studies) == 0 {
		return errors.New("no studies found")
	}
	fmt.Fprintln(h.out, studyTable(studies))

	uids, err := resolveStudies(studies, h.studies, h.all)
	if err != nil {
		return err
	}
	if err := h.m.SetSelection(uids); err != nil {
		return err
	}

	if !h.yes {
		question := fmt.Sprintf("Send %d studies (%s instances)?", len(uids), humanize.Comma(int64(countInstances(studies, uids))))
		if h.confirm == nil {
			return errors.New("refusing to send without confirmation: pass --yes")
		}
		ok, err := h.confirm(question)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("aborted")
		}
	}
	return h.m.Confirm()
}

// resolveStudies maps --study tokens, UIDs or ordinals such as "#2" or
// "2", to UIDs. With all set every study is returned.
func resolveStudies(studies []*catalog.Study, tokens []string, all bool) ([]string, error) {
	if all {
		uids := make([]string, 0, len(studies))
		for _, s := range studies {
			uids = append(uids, s.UID)
		}
		return uids, nil
	}
	if len(tokens) == 0 {
		return nil, errors.New("no study selected: pass --study or --all")
	}

	var uids []string
	for _, tok := range tokens {
		uid, ok := lookupStudy(studies, strings.TrimSpace(tok))
		if !ok {
			return nil, fmt.Errorf("unknown study %q", tok)
		}
		if !slices.Contains(uids, uid) {
			uids = append(uids, uid)
		}
	}
	return uids, nil
}

func lookupStudy(studies []*catalog.Study, tok string) (string, bool) {
	for _, s := range studies {
		if s.UID == tok {
			return s.UID, true
		}
	}
	n, err := strconv.Atoi(strings.TrimPrefix(tok, "#"))
	if err != nil {
		return "", false
	}
	for _, s := range studies {
		if s.Ordinal == n {
			return s.UID, true
		}
	}
	return "", false
}

func countInstances(studies []*catalog.Study, uids []string) int {
	n := 0
	for _, s := range studies {
		if slices.Contains(uids, s.UID) {
			n += s.NumberOfFiles()
		}
	}
	return n
}

func confirmOnTerminal(question string) (bool, error) {
	if !isTerminal(os.Stdin) {
		return false, errors.New("refusing to send without confirmation: pass --yes")
	}
	var ok bool
	err := huh.NewConfirm().
		Title(question).
		Affirmative("Send").
		Negative("Cancel").
		Value(&ok).
		Run()
	return ok, err
}
