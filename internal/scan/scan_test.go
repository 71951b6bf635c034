package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom/pkg/tag"
	"go.uber.org/atomic"

	"github.com/mrsinham/dicomsend/internal/catalog"
	"github.com/mrsinham/dicomsend/internal/dicom"
	"github.com/mrsinham/dicomsend/internal/source"
)

// slowDecoder treats "dcm:<study>" payloads as CT files of that study and
// tracks how many decodes run at once.
type slowDecoder struct {
	delay   time.Duration
	running *atomic.Int64
	peak    *atomic.Int64
}

func newSlowDecoder(delay time.Duration) *slowDecoder {
	return &slowDecoder{delay: delay, running: atomic.NewInt64(0), peak: atomic.NewInt64(0)}
}

func (d *slowDecoder) Decode(data []byte) (dicom.TagIndex, error) {
	n := d.running.Inc()
	defer d.running.Dec()
	for {
		p := d.peak.Load()
		if n <= p || d.peak.CAS(p, n) {
			break
		}
	}
	time.Sleep(d.delay)

	var study string
	if _, err := fmt.Sscanf(string(data), "dcm:%s", &study); err != nil {
		return nil, errors.New("not dicom")
	}
	str := func(v string) dicom.Element { return dicom.Element{Value: v, HasValue: true, Length: len(v)} }
	return dicom.TagIndex{
		tag.StudyInstanceUID:  str(study),
		tag.SeriesInstanceUID: str(study + ".1"),
		tag.Modality:          str("CT"),
	}, nil
}

func refs(payloads ...string) []source.FileRef {
	out := make([]source.FileRef, len(payloads))
	for i, p := range payloads {
		out[i] = source.Bytes{Path: fmt.Sprintf("f%03d", i), Data: []byte(p)}
	}
	return out
}

// endless yields junk files forever.
type endless struct{ n int }

func (e *endless) Next(ctx context.Context) (source.FileRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.n++
	return source.Bytes{Path: fmt.Sprintf("junk%d", e.n), Data: []byte("junk")}, nil
}

func TestRunCompletes(t *testing.T) {
	cat := catalog.New(newSlowDecoder(time.Millisecond))
	p := &Pipeline{Tick: time.Millisecond, Workers: 4, Log: zerolog.Nop()}

	var observed int
	out, err := p.Run(context.Background(), cat,
		&source.Slice{Refs: refs("dcm:A", "dcm:A", "notes", "dcm:B")}, nil,
		func(catalog.Counts) { observed++ })
	require.NoError(t, err)
	assert.Equal(t, Completed, out)
	assert.Positive(t, observed)

	counts := cat.Counts()
	assert.Equal(t, 2, counts.Studies)
	assert.Equal(t, 3, counts.Files)
	assert.Equal(t, 1, counts.Other)
	assert.EqualValues(t, 4, counts.Submitted)
	assert.Zero(t, counts.InFlight)
}

func TestRunEmptySource(t *testing.T) {
	cat := catalog.New(newSlowDecoder(0))
	p := &Pipeline{Tick: time.Hour, Workers: 1, Log: zerolog.Nop()}

	done := make(chan Outcome, 1)
	go func() {
		out, err := p.Run(context.Background(), cat, &source.Slice{}, nil, nil)
		assert.NoError(t, err)
		done <- out
	}()
	select {
	case out := <-done:
		assert.Equal(t, Completed, out)
	case <-time.After(2 * time.Second):
		t.Fatal("empty scan did not complete immediately")
	}
}

func TestRunWithoutTick(t *testing.T) {
	var payloads []string
	for i := 0; i < 50; i++ {
		payloads = append(payloads, fmt.Sprintf("dcm:S%d", i%5))
	}
	dec := newSlowDecoder(2 * time.Millisecond)
	cat := catalog.New(dec)
	p := &Pipeline{Tick: 0, Workers: 3, Log: zerolog.Nop()}

	out, err := p.Run(context.Background(), cat, &source.Slice{Refs: refs(payloads...)}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Completed, out)
	assert.Equal(t, 50, cat.Counts().Files)
	assert.Equal(t, 5, cat.Counts().Studies)
	assert.LessOrEqual(t, dec.peak.Load(), int64(3), "pool bound exceeded")
}

func TestRunSourceError(t *testing.T) {
	boom := errors.New("permission denied")
	cat := catalog.New(newSlowDecoder(0))
	p := &Pipeline{Tick: time.Millisecond, Workers: 2, Log: zerolog.Nop()}

	_, err := p.Run(context.Background(), cat, &source.Slice{Refs: refs("dcm:A"), Err: boom}, nil, nil)
	assert.ErrorIs(t, err, boom)
}

func TestRunCancelled(t *testing.T) {
	cat := catalog.New(newSlowDecoder(0))
	p := &Pipeline{Tick: time.Millisecond, Workers: 2, Log: zerolog.Nop()}

	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	out, err := p.Run(ctx, cat, &endless{}, nil, func(c catalog.Counts) {
		if c.Submitted >= 5 {
			once.Do(cancel)
		}
	})
	require.NoError(t, err)
	assert.Equal(t, Cancelled, out)
	assert.GreaterOrEqual(t, cat.Submitted(), int64(5))
}

func TestRunModalityFilter(t *testing.T) {
	cat := catalog.New(newSlowDecoder(0))
	p := &Pipeline{Tick: time.Millisecond, Workers: 2, Log: zerolog.Nop()}

	out, err := p.Run(context.Background(), cat, &source.Slice{Refs: refs("dcm:A", "dcm:B")}, []string{"MR"}, nil)
	require.NoError(t, err)
	assert.Equal(t, Completed, out)
	assert.Len(t, cat.Rejected(), 2)
	assert.Empty(t, cat.Studies())
}

func TestNewDefaults(t *testing.T) {
	p := New(zerolog.Nop())
	assert.Equal(t, DefaultTick, p.Tick)
	assert.Positive(t, p.Workers)
	assert.Equal(t, "cancelled", Cancelled.String())
}
