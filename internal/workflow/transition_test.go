package workflow

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/mrsinham/dicomsend/internal/source"
)

func TestTransition(t *testing.T) {
	dir := source.FromFS("root", fstest.MapFS{})

	tests := []struct {
		name    string
		from    State
		event   Event
		want    State
		effects []Effect
	}{
		{"unsupported environment", initial, Initialize{Supported: false}, EnvironmentUnsupported, nil},
		{"supported environment", initial, Initialize{Supported: true}, WaitingForFolder, nil},
		{"folder selected", WaitingForFolder, FolderSelected{Dir: dir}, ScanStarting, []Effect{SetFolder{Dir: dir}}},
		{"scan starts", ScanStarting, Advance{}, Scanning, []Effect{ResetCatalog{}, ClearSelection{}, ResetLedger{}, StartScan{}}},
		{"scan completes", Scanning, ScanFinished{}, ScanCompleteSelectionPending, []Effect{ClearSelection{}}},
		{"scan cancelled", Scanning, Cancel{}, WaitingForFolder, []Effect{CancelScan{}, ResetCatalog{}, ClearSelection{}}},
		{"confirm selection", ScanCompleteSelectionPending, Confirm{Selected: 2}, SendStarting, nil},
		{"confirm empty selection", ScanCompleteSelectionPending, Confirm{Selected: 0}, ScanCompleteSelectionPending, []Effect{Warn{Message: EmptySelectionWarning}}},
		{"send starts", SendStarting, Advance{}, Sending, []Effect{ResetLedger{}, StartSend{}}},
		{"send completes", Sending, SendFinished{}, SendComplete, []Effect{DeliverLedger{}}},
		{"send cancelled", Sending, Cancel{}, ScanCompleteSelectionPending, []Effect{CancelSend{}, ClearSelection{}}},
		{"send fails", Sending, SendFailed{Message: "boom"}, Failed, []Effect{RecordFailure{Message: "boom"}, ClearSelection{}, ResetLedger{}}},
		{"back from waiting", WaitingForFolder, Back{}, WaitingForFolder, []Effect{ResetCatalog{}, ClearSelection{}}},
		{"back from selection", ScanCompleteSelectionPending, Back{}, WaitingForFolder, []Effect{ResetCatalog{}, ClearSelection{}}},
		{"back from failed", Failed, Back{}, WaitingForFolder, []Effect{ResetCatalog{}, ClearSelection{}}},
		{"back from complete", SendComplete, Back{}, WaitingForFolder, []Effect{ResetCatalog{}, ClearSelection{}}},
	}

	failEffects := []Effect{CancelScan{}, CancelSend{}, RecordFailure{Message: "disk gone"}, ClearSelection{}, ResetLedger{}}
	for _, s := range []State{WaitingForFolder, ScanStarting, Scanning, ScanCompleteSelectionPending, SendStarting, Sending, SendComplete, Failed} {
		tests = append(tests, struct {
			name    string
			from    State
			event   Event
			want    State
			effects []Effect
		}{"fail from " + s.String(), s, Fail{Message: "disk gone"}, Failed, failEffects})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, effects, err := Transition(tt.from, tt.event)
			if err != nil {
				t.Fatalf("Transition() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Transition() state = %s, want %s", got, tt.want)
			}
			if len(effects) != len(tt.effects) {
				t.Fatalf("Transition() effects = %#v, want %#v", effects, tt.effects)
			}
			for i := range effects {
				if effects[i] != tt.effects[i] {
					t.Errorf("effect %d = %#v, want %#v", i, effects[i], tt.effects[i])
				}
			}
		})
	}
}

func TestTransitionRejects(t *testing.T) {
	tests := []struct {
		name  string
		from  State
		event Event
	}{
		{"folder while scanning", Scanning, FolderSelected{Dir: source.FromFS("x", fstest.MapFS{})}},
		{"nil folder", WaitingForFolder, FolderSelected{}},
		{"confirm while waiting", WaitingForFolder, Confirm{Selected: 1}},
		{"cancel while waiting", WaitingForFolder, Cancel{}},
		{"stale scan report", ScanCompleteSelectionPending, ScanFinished{}},
		{"stale send report", ScanCompleteSelectionPending, SendFinished{}},
		{"back while sending", Sending, Back{}},
		{"anything when unsupported", EnvironmentUnsupported, FolderSelected{}},
		{"fail when unsupported", EnvironmentUnsupported, Fail{Message: "x"}},
		{"initialize twice", WaitingForFolder, Initialize{Supported: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, effects, err := Transition(tt.from, tt.event)
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("Transition() error = %v, want ErrInvalidTransition", err)
			}
			if got != tt.from || effects != nil {
				t.Errorf("rejected transition changed state to %s with %v", got, effects)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	if got := ScanCompleteSelectionPending.String(); got != "ScanCompleteSelectionPending" {
		t.Errorf("String() = %q", got)
	}
	if got := State(99).String(); got != "State(99)" {
		t.Errorf("String() = %q", got)
	}
}
