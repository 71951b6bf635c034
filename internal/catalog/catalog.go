// Package catalog groups scanned files into studies and series.
package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/mrsinham/dicomsend/internal/dicom"
	"github.com/mrsinham/dicomsend/internal/metrics"
	"github.com/mrsinham/dicomsend/internal/source"
)

// Result is where Classify placed a file.
type Result int

const (
	Cataloged Result = iota
	Other
	Rejected
)

func (r Result) String() string {
	switch r {
	case Cataloged:
		return metrics.ResultStudy
	case Rejected:
		return metrics.ResultRejected
	default:
		return metrics.ResultOther
	}
}

// Instance is one cataloged file. Its SOPInstanceUID is only read at send time.
type Instance struct {
	File      source.FileRef
	StudyUID  string
	SeriesUID string
}

// Series groups instances sharing a SeriesInstanceUID.
type Series struct {
	UID         string
	Modality    string
	Description string
	Instances   []Instance
}

// Study groups series sharing a StudyInstanceUID. Ordinal is 1-based in
// first-sighting order.
type Study struct {
	UID         string
	Ordinal     int
	Date        string
	Description string
	// Modalities in first-sighting order, without duplicates.
	Modalities []string
	Series     []*Series

	seriesIndex map[string]*Series
}

// NumberOfFiles counts instances across all series.
func (s *Study) NumberOfFiles() int {
	n := 0
	for _, se := range s.Series {
		n += len(se.Instances)
	}
	return n
}

// Instances concatenates the instances of every series in insertion order.
func (s *Study) Instances() []Instance {
	out := make([]Instance, 0, s.NumberOfFiles())
	for _, se := range s.Series {
		out = append(out, se.Instances...)
	}
	return out
}

func (s *Study) clone() *Study {
	c := *s
	c.Modalities = slices.Clone(s.Modalities)
	c.Series = make([]*Series, len(s.Series))
	c.seriesIndex = nil
	for i, se := range s.Series {
		cs := *se
		cs.Instances = slices.Clone(se.Instances)
		c.Series[i] = &cs
	}
	return &c
}

// Catalog accumulates classified files. It is safe for concurrent use.
type Catalog struct {
	decoder dicom.Decoder
	log     zerolog.Logger
	metrics *metrics.Recorder

	mu       sync.Mutex
	studies  map[string]*Study
	order    []string
	other    []source.FileRef
	rejected []source.FileRef

	inFlight  *atomic.Int64
	submitted *atomic.Int64
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger used for classification failures.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Catalog) { c.log = log }
}

// WithMetrics counts each classification result on m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(c *Catalog) { c.metrics = m }
}

// New returns an empty catalog decoding files with decoder.
func New(decoder dicom.Decoder, opts ...Option) *Catalog {
	c := &Catalog{
		decoder:   decoder,
		log:       zerolog.Nop(),
		studies:   make(map[string]*Study),
		inFlight:  atomic.NewInt64(0),
		submitted: atomic.NewInt64(0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit records that one file is about to be classified. Every Submit must
// be matched by exactly one Classify.
func (c *Catalog) Submit() {
	c.submitted.Inc()
	c.inFlight.Inc()
}

// Classify reads and decodes ref and files it as a study instance, "other"
// or "rejected". It never fails: unreadable or undecodable files, including
// decoder panics, end up in "other".
func (c *Catalog) Classify(ctx context.Context, ref source.FileRef, filter []string) (result Result) {
	defer c.inFlight.Dec()
	defer func() {
		if r := recover(); r != nil {
			c.log.Debug().Str("file", ref.Name()).Msgf("classify panic: %v", r)
			c.addOther(ref)
			result = Other
		}
		c.metrics.FileClassified(result.String())
	}()

	data, err := ref.Read(ctx)
	if err != nil {
		c.log.Debug().Err(err).Str("file", ref.Name()).Msg("unreadable file")
		c.addOther(ref)
		return Other
	}
	index, err := c.decoder.Decode(data)
	if err != nil {
		c.log.Debug().Err(err).Str("file", ref.Name()).Msg("not a DICOM file")
		c.addOther(ref)
		return Other
	}
	return c.insert(ref, index, filter)
}

func (c *Catalog) insert(ref source.FileRef, index dicom.TagIndex, filter []string) Result {
	studyUID, okStudy := index.String(dicom.StudyInstanceUID.Tag)
	seriesUID, okSeries := index.String(dicom.SeriesInstanceUID.Tag)
	modality, okModality := index.String(dicom.Modality.Tag)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !okStudy || !okSeries || !okModality {
		c.other = append(c.other, ref)
		return Other
	}
	if len(filter) > 0 && !slices.Contains(filter, modality) {
		c.rejected = append(c.rejected, ref)
		return Rejected
	}

	study, ok := c.studies[studyUID]
	if !ok {
		study = &Study{
			UID:         studyUID,
			Ordinal:     len(c.order) + 1,
			Date:        index.StringOr(dicom.StudyDate.Tag, ""),
			Description: index.StringOr(dicom.StudyDescription.Tag, ""),
			seriesIndex: make(map[string]*Series),
		}
		c.studies[studyUID] = study
		c.order = append(c.order, studyUID)
	}
	if !slices.Contains(study.Modalities, modality) {
		study.Modalities = append(study.Modalities, modality)
	}
	series, ok := study.seriesIndex[seriesUID]
	if !ok {
		series = &Series{
			UID:         seriesUID,
			Modality:    modality,
			Description: index.StringOr(dicom.SeriesDescription.Tag, ""),
		}
		study.seriesIndex[seriesUID] = series
		study.Series = append(study.Series, series)
	}
	series.Instances = append(series.Instances, Instance{File: ref, StudyUID: studyUID, SeriesUID: seriesUID})
	return Cataloged
}

func (c *Catalog) addOther(ref source.FileRef) {
	c.mu.Lock()
	c.other = append(c.other, ref)
	c.mu.Unlock()
}

// InFlight is the number of submitted files not yet classified.
func (c *Catalog) InFlight() int64 { return c.inFlight.Load() }

// Submitted is the number of files handed to the catalog so far.
func (c *Catalog) Submitted() int64 { return c.submitted.Load() }

// Studies returns copies of all studies in ordinal order.
func (c *Catalog) Studies() []*Study {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Study, 0, len(c.order))
	for _, uid := range c.order {
		out = append(out, c.studies[uid].clone())
	}
	return out
}

// Study returns a copy of one study.
func (c *Catalog) Study(uid string) (*Study, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.studies[uid]
	if !ok {
		return nil, false
	}
	return s.clone(), true
}

// Other returns the files that did not decode as DICOM.
func (c *Catalog) Other() []source.FileRef {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.other)
}

// Rejected returns the DICOM files the modality filter dropped.
func (c *Catalog) Rejected() []source.FileRef {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.rejected)
}

// Instances returns, for the given study UIDs in order, each study's
// instances. Unknown UIDs contribute nothing.
func (c *Catalog) Instances(studyUIDs []string) []Instance {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Instance
	for _, uid := range studyUIDs {
		if s, ok := c.studies[uid]; ok {
			out = append(out, s.Instances()...)
		}
	}
	return out
}

// Counts is a point-in-time view of the catalog's size.
type Counts struct {
	Studies   int
	Files     int
	Other     int
	Rejected  int
	Submitted int64
	InFlight  int64
}

// Counts returns the current classification totals.
func (c *Catalog) Counts() Counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := Counts{
		Studies:   len(c.order),
		Other:     len(c.other),
		Rejected:  len(c.rejected),
		Submitted: c.submitted.Load(),
		InFlight:  c.inFlight.Load(),
	}
	for _, s := range c.studies {
		n.Files += s.NumberOfFiles()
	}
	return n
}

// Summary is the display form of a study.
type Summary struct {
	UID     string
	Label   string
	Series  int
	Files   int
	Ordinal int
}

// Summaries renders every study as "#n - description - modalities - (date)".
func (c *Catalog) Summaries() []Summary {
	studies := c.Studies()
	out := make([]Summary, 0, len(studies))
	for _, s := range studies {
		out = append(out, Summary{
			UID:     s.UID,
			Label:   Label(s),
			Series:  len(s.Series),
			Files:   s.NumberOfFiles(),
			Ordinal: s.Ordinal,
		})
	}
	return out
}

// Label formats a study for selection lists.
func Label(s *Study) string {
	return fmt.Sprintf("#%d - %s - %s - (%s)", s.Ordinal, s.Description, strings.Join(s.Modalities, " "), s.Date)
}
