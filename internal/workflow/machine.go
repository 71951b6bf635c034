package workflow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrsinham/dicomsend/internal/catalog"
	"github.com/mrsinham/dicomsend/internal/dicom"
	"github.com/mrsinham/dicomsend/internal/ledger"
	"github.com/mrsinham/dicomsend/internal/metrics"
	"github.com/mrsinham/dicomsend/internal/scan"
	"github.com/mrsinham/dicomsend/internal/selection"
	"github.com/mrsinham/dicomsend/internal/send"
	"github.com/mrsinham/dicomsend/internal/source"
)

// ErrUnknownStudy is returned when selecting a study the catalog lacks.
var ErrUnknownStudy = errors.New("unknown study")

// MalformedResultMessage is the failure text for a send result the
// workflow cannot interpret.
const MalformedResultMessage = "unexpected result while sending"

// Config is the behaviour the operator configures.
type Config struct {
	URL string
	// Modalities restricts cataloged files; empty accepts all.
	Modalities []string
	// MaxStudies bounds the selection; 0 is unlimited.
	MaxStudies int
	// OnComplete receives the ledger on entering SendComplete.
	OnComplete func(ledger.Tree)
}

// Scanner runs a scan. *scan.Pipeline implements it.
type Scanner interface {
	Run(ctx context.Context, cat *catalog.Catalog, src source.FileSource, filter []string, observe func(catalog.Counts)) (scan.Outcome, error)
}

// Sender runs a send. *send.Pipeline implements it.
type Sender interface {
	Run(ctx context.Context, instances []catalog.Instance, url string, l *ledger.Ledger, observe func(send.Progress)) (send.Outcome, error)
}

// Deps are the collaborators the Machine drives.
type Deps struct {
	Decoder dicom.Decoder
	Scanner Scanner
	Sender  Sender
	Log     zerolog.Logger
	Metrics *metrics.Recorder
}

// Snapshot is what observers render.
type Snapshot struct {
	State      State
	Folder     string
	Scan       catalog.Counts
	Studies    []catalog.Summary
	Selected   []string
	MaxStudies int
	Send       send.Progress
	Failure    string
	Warning    string
}

// Machine owns the catalog, the selection, the ledger and the running
// pipelines. Its methods are safe to call from several goroutines, but
// observers are called synchronously and must not call back into it.
type Machine struct {
	cfg  Config
	deps Deps

	mu        sync.Mutex
	ctx       context.Context
	state     State
	dir       source.Directory
	cat       *catalog.Catalog
	sel       *selection.Set
	ledger    *ledger.Ledger
	scanCount catalog.Counts
	sendProg  send.Progress
	failure   string
	warning   string

	gen        uint64
	cancelScan context.CancelFunc
	cancelSend context.CancelFunc

	notifyMu  sync.Mutex
	observers map[int]func(Snapshot)
	nextObs   int
}

// New returns a Machine in its initial state. Call Start to resolve it.
func New(cfg Config, deps Deps) *Machine {
	if deps.Decoder == nil {
		deps.Decoder = dicom.Codec{}
	}
	if deps.Scanner == nil {
		deps.Scanner = scan.New(deps.Log)
	}
	if deps.Sender == nil {
		panic("workflow: Deps.Sender is required")
	}
	m := &Machine{
		cfg:       cfg,
		deps:      deps,
		ctx:       context.Background(),
		sel:       selection.New(cfg.MaxStudies),
		ledger:    ledger.New(),
		observers: make(map[int]func(Snapshot)),
	}
	m.cat = m.newCatalog()
	return m
}

func (m *Machine) newCatalog() *catalog.Catalog {
	return catalog.New(m.deps.Decoder, catalog.WithLogger(m.deps.Log), catalog.WithMetrics(m.deps.Metrics))
}

// Subscribe registers an observer and returns a function removing it.
func (m *Machine) Subscribe(fn func(Snapshot)) func() {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	id := m.nextObs
	m.nextObs++
	m.observers[id] = fn
	return func() {
		m.notifyMu.Lock()
		defer m.notifyMu.Unlock()
		delete(m.observers, id)
	}
}

// Start resolves the initial state. Pipelines run under ctx.
func (m *Machine) Start(ctx context.Context, supported bool) error {
	m.mu.Lock()
	m.ctx = ctx
	return m.dispatch(Initialize{Supported: supported})
}

// SelectFolder starts scanning dir.
func (m *Machine) SelectFolder(dir source.Directory) error {
	m.mu.Lock()
	return m.dispatch(FolderSelected{Dir: dir})
}

// Cancel stops the running scan or send.
func (m *Machine) Cancel() error {
	m.mu.Lock()
	return m.dispatch(Cancel{})
}

// Confirm starts sending the selected studies. With nothing selected it
// surfaces EmptySelectionWarning and stays put.
func (m *Machine) Confirm() error {
	m.mu.Lock()
	return m.dispatch(Confirm{Selected: m.sel.Len()})
}

// Back returns to folder selection, discarding the catalog.
func (m *Machine) Back() error {
	m.mu.Lock()
	return m.dispatch(Back{})
}

// Fail moves the workflow to Failed with msg.
func (m *Machine) Fail(msg string) error {
	m.mu.Lock()
	return m.dispatch(Fail{Message: msg})
}

// Toggle flips the selection of a study, refusing selections past the limit.
func (m *Machine) Toggle(studyUID string) (bool, error) {
	m.mu.Lock()
	if err := m.checkSelecting(studyUID); err != nil {
		m.mu.Unlock()
		return false, err
	}
	on, err := m.sel.Toggle(studyUID)
	if err != nil {
		m.warning = err.Error()
	}
	snap := m.snapshotLocked()
	m.warning = ""
	m.unlockAndNotify([]Snapshot{snap}, nil)
	return on, err
}

// SetSelection replaces the selection.
func (m *Machine) SetSelection(studyUIDs []string) error {
	m.mu.Lock()
	for _, uid := range studyUIDs {
		if err := m.checkSelecting(uid); err != nil {
			m.mu.Unlock()
			return err
		}
	}
	if err := m.sel.Replace(studyUIDs); err != nil {
		m.mu.Unlock()
		return err
	}
	m.unlockAndNotify([]Snapshot{m.snapshotLocked()}, nil)
	return nil
}

func (m *Machine) checkSelecting(uid string) error {
	if m.state != ScanCompleteSelectionPending {
		return fmt.Errorf("%w: selection in state %s", ErrInvalidTransition, m.state)
	}
	if _, ok := m.cat.Study(uid); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStudy, uid)
	}
	return nil
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Snapshot returns what observers would be handed now.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Catalog returns the current catalog.
func (m *Machine) Catalog() *catalog.Catalog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cat
}

// Ledger returns a copy of the current ledger.
func (m *Machine) Ledger() ledger.Tree {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger.Tree()
}

// dispatch runs ev and any automatic follow-ups with m.mu held, then
// releases it and notifies observers.
func (m *Machine) dispatch(ev Event) error {
	var (
		snaps []Snapshot
		calls []func()
	)
	for ev != nil {
		prev := m.state
		next, effects, err := Transition(prev, ev)
		if err != nil {
			m.unlockAndNotify(snaps, calls)
			return err
		}
		m.state = next
		if next == WaitingForFolder {
			m.failure = ""
		}
		for _, eff := range effects {
			if call := m.apply(eff); call != nil {
				calls = append(calls, call)
			}
		}
		if next != prev {
			m.deps.Log.Info().Stringer("from", prev).Stringer("to", next).Msg("state changed")
			m.deps.Metrics.Transition(next.String())
		}
		snaps = append(snaps, m.snapshotLocked())
		m.warning = ""

		ev = nil
		if next == ScanStarting || next == SendStarting {
			ev = Advance{}
		}
	}
	m.unlockAndNotify(snaps, calls)
	return nil
}

// apply performs one effect with m.mu held. Work that must run outside the
// lock is returned as a function.
func (m *Machine) apply(eff Effect) func() {
	switch e := eff.(type) {
	case SetFolder:
		m.dir = e.Dir
	case ResetCatalog:
		m.cat = m.newCatalog()
		m.scanCount = catalog.Counts{}
	case ClearSelection:
		m.sel.Clear()
	case StartScan:
		m.startScan()
	case CancelScan:
		if m.cancelScan != nil {
			m.cancelScan()
			m.cancelScan = nil
			m.gen++
		}
	case ResetLedger:
		m.ledger = ledger.New()
		m.sendProg = send.Progress{}
	case StartSend:
		m.startSend()
	case CancelSend:
		if m.cancelSend != nil {
			m.cancelSend()
			m.cancelSend = nil
			m.gen++
		}
	case DeliverLedger:
		tree := m.ledger.Tree()
		if m.cfg.OnComplete != nil {
			return func() { m.deliver(tree) }
		}
	case RecordFailure:
		m.failure = e.Message
		m.deps.Log.Error().Str("reason", e.Message).Msg("workflow failed")
	case Warn:
		m.warning = e.Message
	}
	return nil
}

func (m *Machine) deliver(tree ledger.Tree) {
	defer func() {
		if r := recover(); r != nil {
			m.deps.Log.Error().Msgf("completion callback panicked: %v", r)
		}
	}()
	m.cfg.OnComplete(tree)
}

func (m *Machine) startScan() {
	m.gen++
	gen := m.gen
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancelScan = cancel
	cat := m.cat
	src := m.dir.Walk(ctx)
	run := uuid.NewString()
	m.deps.Log.Info().Str("run", run).Str("folder", m.dir.Name()).Strs("modalities", m.cfg.Modalities).Msg("scan started")

	go func() {
		defer cancel()
		out, err := m.deps.Scanner.Run(ctx, cat, src, m.cfg.Modalities, func(c catalog.Counts) {
			m.scanProgress(gen, c)
		})
		m.deps.Log.Info().Str("run", run).Stringer("outcome", out).Err(err).Msg("scan finished")
		m.scanDone(gen, out, err)
	}()
}

func (m *Machine) scanProgress(gen uint64, c catalog.Counts) {
	m.mu.Lock()
	if gen != m.gen || m.state != Scanning {
		m.mu.Unlock()
		return
	}
	m.scanCount = c
	m.unlockAndNotify([]Snapshot{m.snapshotLocked()}, nil)
}

func (m *Machine) scanDone(gen uint64, out scan.Outcome, err error) {
	m.mu.Lock()
	if gen != m.gen || m.state != Scanning {
		m.mu.Unlock()
		return
	}
	m.cancelScan = nil
	m.scanCount = m.cat.Counts()
	switch {
	case err != nil:
		_ = m.dispatch(Fail{Message: err.Error()})
	case out == scan.Completed:
		_ = m.dispatch(ScanFinished{})
	default:
		m.mu.Unlock()
	}
}

func (m *Machine) startSend() {
	m.gen++
	gen := m.gen
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancelSend = cancel
	instances := m.cat.Instances(m.sel.UIDs())
	l := m.ledger
	m.sendProg = send.Progress{Total: len(instances)}
	run := uuid.NewString()
	m.deps.Log.Info().Str("run", run).Str("url", m.cfg.URL).Int("instances", len(instances)).Msg("send started")

	go func() {
		defer cancel()
		out, err := m.deps.Sender.Run(ctx, instances, m.cfg.URL, l, func(p send.Progress) {
			m.sendProgress(gen, p)
		})
		m.deps.Log.Info().Str("run", run).Stringer("outcome", out).Int("sent", l.Count()).Err(err).Msg("send finished")
		m.sendDone(gen, out, err)
	}()
}

func (m *Machine) sendProgress(gen uint64, p send.Progress) {
	m.mu.Lock()
	if gen != m.gen || m.state != Sending {
		m.mu.Unlock()
		return
	}
	m.sendProg = p
	m.unlockAndNotify([]Snapshot{m.snapshotLocked()}, nil)
}

func (m *Machine) sendDone(gen uint64, out send.Outcome, err error) {
	m.mu.Lock()
	if gen != m.gen || m.state != Sending {
		m.mu.Unlock()
		return
	}
	m.cancelSend = nil
	switch {
	case errors.Is(err, send.ErrMalformedResult):
		_ = m.dispatch(Fail{Message: MalformedResultMessage})
	case err != nil:
		_ = m.dispatch(SendFailed{Message: err.Error()})
	case out == send.Completed:
		_ = m.dispatch(SendFinished{})
	default:
		m.mu.Unlock()
	}
}

func (m *Machine) snapshotLocked() Snapshot {
	s := Snapshot{
		State:      m.state,
		Scan:       m.scanCount,
		Selected:   m.sel.UIDs(),
		MaxStudies: m.sel.Max(),
		Send:       m.sendProg,
		Failure:    m.failure,
		Warning:    m.warning,
	}
	if m.dir != nil {
		s.Folder = m.dir.Name()
	}
	if m.state == ScanCompleteSelectionPending {
		s.Studies = m.cat.Summaries()
	}
	return s
}

// unlockAndNotify hands snaps to observers in order, after releasing m.mu,
// then runs calls.
func (m *Machine) unlockAndNotify(snaps []Snapshot, calls []func()) {
	m.notifyMu.Lock()
	m.mu.Unlock()
	observers := make([]func(Snapshot), 0, len(m.observers))
	ids := make([]int, 0, len(m.observers))
	for id := range m.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		observers = append(observers, m.observers[id])
	}
	for _, s := range snaps {
		for _, fn := range observers {
			fn(s)
		}
	}
	m.notifyMu.Unlock()

	for _, call := range calls {
		call()
	}
}
