// Package score implements the training loop's scorer contract: an
// object that observes every trained batch's output against its
// expected labels. MulticlassScorer accumulates a confusion matrix on
// the backend and renders a human-readable report with
// olekukonko/tablewriter, the way the original implementation's
// scoring report is meant to be read at a terminal.
package score

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/ollama/nnrun/backend"
	"github.com/ollama/nnrun/dims"
)

// NoopScorer discards every batch; used when only the loss trajectory
// matters.
type NoopScorer struct{}

func (NoopScorer) ProcessBatch(backend.Backend, backend.TensorRef2, backend.TensorRef2) error {
	return nil
}

// MulticlassScorer maintains an N×N confusion matrix (rows are the
// expected class, columns the predicted class) accumulated via
// AccumConfusionMatrixMulticlass across every batch it's shown.
type MulticlassScorer struct {
	be      backend.Backend
	classes int
	matrix  backend.Tensor2
}

// NewMulticlassScorer allocates a classes×classes confusion matrix on
// be.
func NewMulticlassScorer(be backend.Backend, classes int) *MulticlassScorer {
	return &MulticlassScorer{
		be:      be,
		classes: classes,
		matrix:  be.NewTensor2Exact(dims.D2{N0: classes, N1: classes}),
	}
}

// ProcessBatch argmaxes each row of output and expected and
// accumulates the result into the confusion matrix.
func (s *MulticlassScorer) ProcessBatch(be backend.Backend, output backend.TensorRef2, expected backend.TensorRef2) error {
	return be.AccumConfusionMatrixMulticlass(output, expected, s.matrix)
}

// Report renders the confusion matrix as a table with rows normalized
// to probabilities, followed by the aggregate error rate (one minus
// the raw matrix's diagonal count divided by its total count; 1 when
// nothing has been accumulated).
func (s *MulticlassScorer) Report() (string, error) {
	raw := s.be.ReadTensor2(s.matrix).Slice()
	n := s.classes

	rowTotals := make([]float64, n)
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			rowTotals[r] += float64(raw[r*n+c])
		}
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)

	header := make([]string, n+1)
	header[0] = "expected \\ predicted"
	for c := 0; c < n; c++ {
		header[c+1] = fmt.Sprintf("class %d", c)
	}
	table.SetHeader(header)

	var correct, total float64
	for r := 0; r < n; r++ {
		row := make([]string, n+1)
		row[0] = fmt.Sprintf("class %d", r)
		for c := 0; c < n; c++ {
			p := 0.0
			if rowTotals[r] > 0 {
				p = float64(raw[r*n+c]) / rowTotals[r]
			}
			row[c+1] = fmt.Sprintf("%.3f", p)
			if r == c {
				correct += float64(raw[r*n+c])
			}
			total += float64(raw[r*n+c])
		}
		table.Append(row)
	}
	table.Render()

	errorRate := 1.0
	if total > 0 {
		errorRate = 1 - correct/total
	}
	fmt.Fprintf(&buf, "error rate: %.4f\n", errorRate)

	return buf.String(), nil
}
