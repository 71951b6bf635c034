// Package workflow coordinates scanning, selection and sending.
package workflow

import (
	"errors"
	"fmt"

	"github.com/mrsinham/dicomsend/internal/source"
)

// State is a workflow state.
type State int

const (
	initial State = iota
	WaitingForFolder
	ScanStarting
	Scanning
	ScanCompleteSelectionPending
	SendStarting
	Sending
	SendComplete
	Failed
	EnvironmentUnsupported
)

var stateNames = map[State]string{
	initial:                      "Initial",
	WaitingForFolder:             "WaitingForFolder",
	ScanStarting:                 "ScanStarting",
	Scanning:                     "Scanning",
	ScanCompleteSelectionPending: "ScanCompleteSelectionPending",
	SendStarting:                 "SendStarting",
	Sending:                      "Sending",
	SendComplete:                 "SendComplete",
	Failed:                       "Failed",
	EnvironmentUnsupported:       "EnvironmentUnsupported",
}

// String returns the state's name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrInvalidTransition is returned for an event the current state does not accept.
var ErrInvalidTransition = errors.New("invalid transition")

// Event is anything that can move the workflow.
type Event interface{ isEvent() }

type (
	// Initialize resolves the initial state from the environment's capability.
	Initialize struct{ Supported bool }
	// FolderSelected carries the directory the operator picked.
	FolderSelected struct{ Dir source.Directory }
	// Advance moves a transient *Starting state on.
	Advance struct{}
	// ScanFinished is reported by the scan pipeline on completion.
	ScanFinished struct{}
	// Cancel is the operator cancelling a scan or a send.
	Cancel struct{}
	// Confirm is the operator confirming Selected studies.
	Confirm struct{ Selected int }
	// SendFinished is reported by the send pipeline on completion.
	SendFinished struct{}
	// SendFailed is reported by the send pipeline when an upload fails.
	SendFailed struct{ Message string }
	// Fail is any other unrecoverable error.
	Fail struct{ Message string }
	// Back is the operator returning to folder selection.
	Back struct{}
)

func (Initialize) isEvent()     {}
func (FolderSelected) isEvent() {}
func (Advance) isEvent()        {}
func (ScanFinished) isEvent()   {}
func (Cancel) isEvent()         {}
func (Confirm) isEvent()        {}
func (SendFinished) isEvent()   {}
func (SendFailed) isEvent()     {}
func (Fail) isEvent()           {}
func (Back) isEvent()           {}

// Effect is work the Machine performs when a transition is taken.
type Effect interface{ isEffect() }

type (
	// SetFolder remembers the directory to scan.
	SetFolder struct{ Dir source.Directory }
	// ResetCatalog drops every classified file.
	ResetCatalog struct{}
	// ClearSelection empties the selection.
	ClearSelection struct{}
	// StartScan launches the scan pipeline.
	StartScan struct{}
	// CancelScan stops a running scan.
	CancelScan struct{}
	// ResetLedger replaces the ledger with an empty one.
	ResetLedger struct{}
	// StartSend launches the send pipeline over the selection.
	StartSend struct{}
	// CancelSend stops a running send.
	CancelSend struct{}
	// DeliverLedger hands a copy of the ledger to the completion callback.
	DeliverLedger struct{}
	// RecordFailure keeps Message for display in Failed.
	RecordFailure struct{ Message string }
	// Warn surfaces a message without changing state.
	Warn struct{ Message string }
)

func (SetFolder) isEffect()      {}
func (ResetCatalog) isEffect()   {}
func (ClearSelection) isEffect() {}
func (StartScan) isEffect()      {}
func (CancelScan) isEffect()     {}
func (ResetLedger) isEffect()    {}
func (StartSend) isEffect()      {}
func (CancelSend) isEffect()     {}
func (DeliverLedger) isEffect()  {}
func (RecordFailure) isEffect()  {}
func (Warn) isEffect()           {}

// EmptySelectionWarning is surfaced when the operator confirms nothing.
const EmptySelectionWarning = "select at least one study before sending"

// Transition computes the next state and the effects to run for ev. An
// event the state does not accept returns ErrInvalidTransition and leaves
// the state unchanged.
func Transition(s State, ev Event) (State, []Effect, error) {
	if f, ok := ev.(Fail); ok && s != initial && s != EnvironmentUnsupported {
		return Failed, []Effect{CancelScan{}, CancelSend{}, RecordFailure{Message: f.Message}, ClearSelection{}, ResetLedger{}}, nil
	}

	switch s {
	case initial:
		if e, ok := ev.(Initialize); ok {
			if !e.Supported {
				return EnvironmentUnsupported, nil, nil
			}
			return WaitingForFolder, nil, nil
		}

	case WaitingForFolder:
		switch e := ev.(type) {
		case FolderSelected:
			if e.Dir == nil {
				return s, nil, fmt.Errorf("%w: no directory selected", ErrInvalidTransition)
			}
			return ScanStarting, []Effect{SetFolder{Dir: e.Dir}}, nil
		case Back:
			return WaitingForFolder, []Effect{ResetCatalog{}, ClearSelection{}}, nil
		}

	case ScanStarting:
		if _, ok := ev.(Advance); ok {
			return Scanning, []Effect{ResetCatalog{}, ClearSelection{}, ResetLedger{}, StartScan{}}, nil
		}

	case Scanning:
		switch ev.(type) {
		case ScanFinished:
			return ScanCompleteSelectionPending, []Effect{ClearSelection{}}, nil
		case Cancel:
			return WaitingForFolder, []Effect{CancelScan{}, ResetCatalog{}, ClearSelection{}}, nil
		}

	case ScanCompleteSelectionPending:
		switch e := ev.(type) {
		case Confirm:
			if e.Selected <= 0 {
				return s, []Effect{Warn{Message: EmptySelectionWarning}}, nil
			}
			return SendStarting, nil, nil
		case Back:
			return WaitingForFolder, []Effect{ResetCatalog{}, ClearSelection{}}, nil
		}

	case SendStarting:
		if _, ok := ev.(Advance); ok {
			return Sending, []Effect{ResetLedger{}, StartSend{}}, nil
		}

	case Sending:
		switch e := ev.(type) {
		case SendFinished:
			return SendComplete, []Effect{DeliverLedger{}}, nil
		case Cancel:
			return ScanCompleteSelectionPending, []Effect{CancelSend{}, ClearSelection{}}, nil
		case SendFailed:
			return Failed, []Effect{RecordFailure{Message: e.Message}, ClearSelection{}, ResetLedger{}}, nil
		}

	case SendComplete, Failed:
		if _, ok := ev.(Back); ok {
			return WaitingForFolder, []Effect{ResetCatalog{}, ClearSelection{}}, nil
		}
	}
	return s, nil, fmt.Errorf("%w: %T in state %s", ErrInvalidTransition, ev, s)
}
