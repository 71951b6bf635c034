package dicom

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/dicomsend/internal/dicom/corruption"
	"github.com/mrsinham/dicomsend/internal/dicom/edgecases"
	"github.com/mrsinham/dicomsend/internal/dicom/modalities"
	"github.com/mrsinham/dicomsend/internal/util"
)

// SampleOptions configures WriteSampleTree.
type SampleOptions struct {
	Root               string
	Studies            int
	SeriesPerStudy     int
	InstancesPerSeries int
	// Modalities are assigned to series round-robin. Defaults to CT.
	Modalities []string
	// NoiseFiles is the number of non-DICOM files written alongside.
	NoiseFiles int
	Rows       int
	Columns    int
	Seed       uint64
	Workers    int
	// EdgeCases varies identifying values of a share of instances.
	EdgeCases edgecases.Config
	// Corruption damages an exact number of instances.
	Corruption corruption.Config
}

// SampleTree summarizes a generated tree.
type SampleTree struct {
	Studies []string
	Files   int
	Noise   int
	// EdgeCases counts instances whose values an edge case rewrote.
	EdgeCases int
	// Corrupted counts damaged instances by type.
	Corrupted map[corruption.Type]int
}

// Uncataloged is the number of instance files a scan files as "other".
func (t SampleTree) Uncataloged() int {
	n := 0
	for typ, count := range t.Corrupted {
		if !typ.Catalogs() {
			n += count
		}
	}
	return n
}

type sampleTask struct {
	path      string
	fixture   Fixture
	malformed bool
}

// WriteSampleTree writes a PTxxxxxx/STxxxxxx/SExxxxxx/IMxxxxxx hierarchy of
// synthetic instances carrying identifying values, plus noise files.
func WriteSampleTree(opts SampleOptions) (SampleTree, error) {
	if opts.Root == "" {
		return SampleTree{}, errors.New("sample root is required")
	}
	if opts.Studies <= 0 || opts.SeriesPerStudy <= 0 || opts.InstancesPerSeries <= 0 {
		return SampleTree{}, errors.New("studies, series and instances must be positive")
	}
	mods := opts.Modalities
	if len(mods) == 0 {
		mods = []string{string(modalities.CT)}
	}
	for _, m := range mods {
		if !modalities.IsValid(m) {
			return SampleTree{}, fmt.Errorf("unknown modality %q, valid modalities: %v", m, modalities.All())
		}
	}
	if err := opts.EdgeCases.Validate(); err != nil {
		return SampleTree{}, err
	}
	if err := opts.Corruption.Validate(); err != nil {
		return SampleTree{}, err
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x5eed))
	edges := edgecases.NewApplicator(opts.EdgeCases, rng)

	var (
		tree  SampleTree
		tasks []sampleTask
	)
	total := opts.Studies * opts.SeriesPerStudy * opts.InstancesPerSeries
	damage := opts.Corruption.Plan(total, rng)
	tree.Corrupted = make(map[corruption.Type]int)
	n := 0
	for st := 0; st < opts.Studies; st++ {
		id := util.NewIdentity(rng)
		studyUID := DeterministicUID(fmt.Sprintf("%d/study/%d", opts.Seed, st))
		tree.Studies = append(tree.Studies, studyUID)
		studyDate := fmt.Sprintf("2024%02d%02d", 1+rng.IntN(12), 1+rng.IntN(28))
		for se := 0; se < opts.SeriesPerStudy; se++ {
			modality := mods[(st*opts.SeriesPerStudy+se)%len(mods)]
			seriesUID := DeterministicUID(fmt.Sprintf("%d/series/%d/%d", opts.Seed, st, se))
			profile, _ := modalities.Lookup(modality)
			scanner, bodyPart := profile.Pick(rng)
			for im := 0; im < opts.InstancesPerSeries; im++ {
				values := edgecases.Values{
					PatientName:        id.PatientName,
					PatientAge:         id.PatientAge,
					PatientComments:    id.PatientComments,
					InstitutionName:    id.InstitutionName,
					InstitutionAddress: id.InstitutionAddress,
					DeviceSerialNumber: id.DeviceSerialNumber,
					StudyDescription:   fmt.Sprintf("Sample study %d", st+1),
					SeriesDescription:  fmt.Sprintf("%s series %d", modality, se+1),
				}
				if edges.Apply(&values) != "" {
					tree.EdgeCases++
				}
				task := sampleTask{
					path: filepath.Join(opts.Root,
						fmt.Sprintf("PT%06d", st), fmt.Sprintf("ST%06d", st),
						fmt.Sprintf("SE%06d", se), fmt.Sprintf("IM%06d", im+1)),
					fixture: Fixture{
						StudyInstanceUID:      studyUID,
						SeriesInstanceUID:     seriesUID,
						SOPInstanceUID:        DeterministicUID(fmt.Sprintf("%d/sop/%d/%d/%d", opts.Seed, st, se, im)),
						Modality:              modality,
						StudyDate:             studyDate,
						StudyDescription:      values.StudyDescription,
						SeriesDescription:     values.SeriesDescription,
						PatientName:           values.PatientName,
						PatientAge:            values.PatientAge,
						PatientComments:       values.PatientComments,
						InstitutionName:       values.InstitutionName,
						InstitutionAddress:    values.InstitutionAddress,
						DeviceSerialNumber:    values.DeviceSerialNumber,
						CharacterSet:          values.CharacterSet,
						Manufacturer:          scanner.Manufacturer,
						ManufacturerModelName: scanner.Model,
						BodyPartExamined:      bodyPart,
						Rows:                  opts.Rows,
						Columns:               opts.Columns,
						Overlay:               fmt.Sprintf("File %d/%d", n+1, total),
					},
				}
				if typ, ok := damage[n]; ok {
					damageTask(&task, typ, rng)
					tree.Corrupted[typ]++
				}
				tasks = append(tasks, task)
				n++
			}
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(tasks))

	taskChan := make(chan sampleTask, len(tasks))
	errChan := make(chan error, len(tasks))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskChan {
				errChan <- task.write()
			}
		}()
	}
	for _, task := range tasks {
		taskChan <- task
	}
	close(taskChan)
	wg.Wait()
	close(errChan)

	var errs []error
	for err := range errChan {
		if err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return SampleTree{}, err
	}
	tree.Files = len(tasks)

	for i := 0; i < opts.NoiseFiles; i++ {
		path := filepath.Join(opts.Root, "notes", fmt.Sprintf("note%03d.txt", i+1))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return SampleTree{}, fmt.Errorf("create notes directory: %w", err)
		}
		if err := os.WriteFile(path, []byte("not a DICOM file\n"), 0644); err != nil {
			return SampleTree{}, fmt.Errorf("write noise file: %w", err)
		}
		tree.Noise++
	}
	return tree, nil
}

func damageTask(task *sampleTask, typ corruption.Type, rng *rand.Rand) {
	switch typ {
	case corruption.MalformedLengths:
		task.malformed = true
	case corruption.MissingIdentifiers:
		switch corruption.PickIdentifier(rng) {
		case tag.StudyInstanceUID:
			task.fixture.StudyInstanceUID = ""
		case tag.SeriesInstanceUID:
			task.fixture.SeriesInstanceUID = ""
		default:
			task.fixture.Modality = ""
		}
	case corruption.VendorPrivate:
		task.fixture.Private = corruption.PrivateElements(rng)
	}
}

func (task sampleTask) write() error {
	if !task.malformed {
		return task.fixture.WriteFile(task.path)
	}
	data, err := task.fixture.Bytes()
	if err != nil {
		return err
	}
	if !corruption.PatchMalformedLength(data, tag.StudyInstanceUID) {
		return fmt.Errorf("malformed-lengths: no StudyInstanceUID in %s", task.path)
	}
	if err := os.MkdirAll(filepath.Dir(task.path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(task.path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", task.path, err)
	}
	return nil
}
