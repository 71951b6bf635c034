// Package send anonymizes and uploads a selection of instances.
package send

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mrsinham/dicomsend/internal/catalog"
	"github.com/mrsinham/dicomsend/internal/dicom"
	"github.com/mrsinham/dicomsend/internal/ledger"
	"github.com/mrsinham/dicomsend/internal/metrics"
)

// ErrMalformedResult is returned when an instance lacks an identifier the
// ledger needs.
var ErrMalformedResult = errors.New("instance lacks required identifiers")

// Outcome is how a send that did not fail ended.
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

// Progress reports sent/total after each instance.
type Progress struct {
	Sent  int
	Total int
}

// Percent is Sent as a share of Total, 100 for an empty run.
func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 100
	}
	return float64(p.Sent) * 100 / float64(p.Total)
}

// Uploader posts a payload. *upload.Client implements it.
type Uploader interface {
	Post(ctx context.Context, url string, body []byte) error
}

// Pipeline sends instances one at a time.
type Pipeline struct {
	Decoder  dicom.Decoder
	Uploader Uploader
	Log      zerolog.Logger
	Metrics  *metrics.Recorder
}

// Run anonymizes and uploads instances in order, recording each success in
// l. The first failure aborts the run and is returned; later instances are
// not attempted. Cancellation is checked before each instance and after its
// result is recorded; an instance already started runs to completion.
func (p *Pipeline) Run(ctx context.Context, instances []catalog.Instance, url string, l *ledger.Ledger, observe func(Progress)) (Outcome, error) {
	total := len(instances)
	for i, inst := range instances {
		if ctx.Err() != nil {
			p.Log.Info().Int("sent", i).Int("total", total).Msg("send cancelled")
			return Cancelled, nil
		}
		if err := p.sendOne(context.WithoutCancel(ctx), inst, url, l); err != nil {
			return Completed, err
		}
		if observe != nil {
			observe(Progress{Sent: i + 1, Total: total})
		}
		if ctx.Err() != nil {
			p.Log.Info().Int("sent", i+1).Int("total", total).Msg("send cancelled")
			return Cancelled, nil
		}
	}
	return Completed, nil
}

func (p *Pipeline) sendOne(ctx context.Context, inst catalog.Instance, url string, l *ledger.Ledger) error {
	name := inst.File.Name()
	raw, err := inst.File.Read(ctx)
	if err != nil {
		return fmt.Errorf("send %s: %w", name, err)
	}
	data := bytes.Clone(raw)
	index, err := p.Decoder.Decode(data)
	if err != nil {
		return fmt.Errorf("send %s: %w", name, err)
	}
	dicom.Redact(data, index)

	study, okStudy := index.String(dicom.StudyInstanceUID.Tag)
	series, okSeries := index.String(dicom.SeriesInstanceUID.Tag)
	sop, okSOP := index.String(dicom.SOPInstanceUID.Tag)
	if !okStudy || !okSeries || !okSOP {
		return fmt.Errorf("send %s: %w", name, ErrMalformedResult)
	}

	if err := p.Uploader.Post(ctx, url, data); err != nil {
		return fmt.Errorf("send %s: %w", name, err)
	}
	l.Record(study, series, sop)
	p.Metrics.InstanceSent()
	p.Log.Debug().
		Str("file", name).
		Str("sop", sop).
		Str("modality", index.StringOr(dicom.Modality.Tag, "")).
		Msg("instance sent")
	return nil
}
