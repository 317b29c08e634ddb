// Package verify recomputes the digest of every file a manifest declares
// and classifies each entry. The scan never short-circuits: a bad or
// missing file does not stop classification of the rest, so one call
// yields a complete report.
package verify

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/calvoindustrial/companydata/pkg/digest"
	"github.com/calvoindustrial/companydata/pkg/manifest"
)

type Status string

const (
	StatusOK      Status = "OK"
	StatusBadHash Status = "BADHASH"
	StatusMissing Status = "MISSING"
)

// Result is the classification of one manifest entry. Actual holds the
// recomputed digest for OK and BADHASH entries.
type Result struct {
	Entry  manifest.FileEntry
	Status Status
	Actual string
}

// Report lists every entry in manifest order with aggregate counts.
type Report struct {
	Results []Result
	OK      int
	Bad     int
	Missing int
}

// Valid reports whether the package content matches its manifest in full.
func (r *Report) Valid() bool {
	return r.Bad == 0 && r.Missing == 0
}

type fileJob struct {
	index int
	entry manifest.FileEntry
}

type fileResult struct {
	index  int
	result Result
	err    error
}

// Verify hashes each declared file under root and compares against the
// manifest. Hashing runs on a bounded worker pool; the report is ordered
// by manifest position regardless of completion order. Only an unexpected
// read error (not a missing file) aborts the scan.
func Verify(root string, m *manifest.Manifest) (*Report, error) {
	report := &Report{
		Results: make([]Result, len(m.Files)),
	}
	if len(m.Files) == 0 {
		return report, nil
	}

	workers := runtime.NumCPU()
	if workers > len(m.Files) {
		workers = len(m.Files)
	}

	jobCh := make(chan fileJob, len(m.Files))
	resultCh := make(chan fileResult, len(m.Files))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hashWorker(root, jobCh, resultCh)
		}()
	}

	for i, e := range m.Files {
		jobCh <- fileJob{index: i, entry: e}
	}
	close(jobCh)

	wg.Wait()
	close(resultCh)

	var firstErr error
	for r := range resultCh {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		report.Results[r.index] = r.result
	}
	if firstErr != nil {
		return nil, firstErr
	}

	for _, r := range report.Results {
		switch r.Status {
		case StatusOK:
			report.OK++
		case StatusBadHash:
			report.Bad++
		case StatusMissing:
			report.Missing++
		}
	}
	return report, nil
}

// Root loads the manifest under root and verifies against it. The manifest
// failing to load is the earlier, distinct failure (manifest.ErrUnavailable);
// no report exists in that case.
func Root(root string) (*Report, error) {
	m, err := manifest.Load(root)
	if err != nil {
		return nil, err
	}
	return Verify(root, m)
}

func hashWorker(
	root string,
	jobs <-chan fileJob,
	results chan<- fileResult,
) {
	buf := make([]byte, 1<<20)
	for j := range jobs {
		r, err := classify(root, j.entry, buf)
		results <- fileResult{index: j.index, result: r, err: err}
	}
}

func classify(
	root string,
	entry manifest.FileEntry,
	buf []byte,
) (Result, error) {
	full := filepath.Join(root, filepath.FromSlash(entry.Path))
	actual, err := digest.File(full, buf)
	if os.IsNotExist(err) {
		return Result{Entry: entry, Status: StatusMissing}, nil
	}
	if err != nil {
		return Result{}, err
	}

	status := StatusOK
	if !digest.Equal(actual, entry.SHA256) {
		status = StatusBadHash
	}
	return Result{Entry: entry, Status: status, Actual: actual}, nil
}
