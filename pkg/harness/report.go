package harness

import (
	"time"

	"github.com/goliatone/go-cardgen/pkg/model"
	"github.com/goliatone/go-cardgen/pkg/surface"
)

// Status is the verdict for one case on one template and surface.
type Status string

const (
	Passed  Status = "passed"
	Failed  Status = "failed"
	Skipped Status = "skipped"
)

// CaseResult records one cell of the matrix.
type CaseResult struct {
	Surface  model.Mode
	Template string
	Case     string
	Status   Status
	// Reason explains a skip.
	Reason   string
	Err      error
	Duration time.Duration
	Result   surface.Result
	// ArtifactPath is set when artifacts are written.
	ArtifactPath string
}

// Report is every result in surface, template and catalog order.
type Report struct {
	Results []CaseResult
}

// Counts tallies results by status.
type Counts struct {
	Passed  int
	Failed  int
	Skipped int
}

func (c Counts) Total() int {
	return c.Passed + c.Failed + c.Skipped
}

func (r *Report) Counts() Counts {
	var c Counts
	for _, res := range r.Results {
		switch res.Status {
		case Passed:
			c.Passed++
		case Failed:
			c.Failed++
		case Skipped:
			c.Skipped++
		}
	}
	return c
}

// OK reports whether no case failed.
func (r *Report) OK() bool {
	return r.Counts().Failed == 0
}

// Filter returns the results matching keep.
func (r *Report) Filter(keep func(CaseResult) bool) []CaseResult {
	var out []CaseResult
	for _, res := range r.Results {
		if keep(res) {
			out = append(out, res)
		}
	}
	return out
}

// Lookup finds the result of name on template and surface.
func (r *Report) Lookup(mode model.Mode, template, name string) (CaseResult, bool) {
	for _, res := range r.Results {
		if res.Surface == mode && res.Template == template && res.Case == name {
			return res, true
		}
	}
	return CaseResult{}, false
}
