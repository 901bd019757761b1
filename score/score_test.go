package score

import (
	"strings"
	"testing"

	"github.com/ollama/nnrun/backend/cpu"
	"github.com/ollama/nnrun/dims"
	"github.com/ollama/nnrun/tensor"
)

func TestMulticlassScorerReportContainsErrorRate(t *testing.T) {
	be := cpu.New(4)
	s := NewMulticlassScorer(be, 2)

	out := be.NewTensor2FromHost(tensor.NewView([]float32{0.9, 0.1, 0.2, 0.8}, dims.D2{N0: 2, N1: 2}))
	expected := be.NewTensor2FromHost(tensor.NewView([]float32{1, 0, 0, 1}, dims.D2{N0: 2, N1: 2}))

	if err := s.ProcessBatch(be, out, expected); err != nil {
		t.Fatalf("process_batch: %v", err)
	}

	report, err := s.Report()
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(report, "error rate") {
		t.Fatalf("report missing error rate line:\n%s", report)
	}
	if !strings.Contains(report, "0.0000") {
		t.Fatalf("expected zero error rate for perfect predictions:\n%s", report)
	}
}

func TestNoopScorerNeverErrors(t *testing.T) {
	be := cpu.New(4)
	out := be.NewTensor2FromHost(tensor.NewView([]float32{1, 2}, dims.D2{N0: 1, N1: 2}))
	if err := (NoopScorer{}).ProcessBatch(be, out, out); err != nil {
		t.Fatalf("noop scorer returned error: %v", err)
	}
}
