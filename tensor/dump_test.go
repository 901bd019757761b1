package tensor

import (
	"strings"
	"testing"

	"github.com/ollama/nnrun/dims"
)

func TestDumpSmallTensorPrintsInFull(t *testing.T) {
	o := NewOwned([]float32{1, 2, 3, 4}, dims.D2{N0: 2, N1: 2})
	s := Dump(ToRank3View2(o.Borrow()), "f32")
	if strings.Contains(s, "...") {
		t.Fatalf("small tensor should not elide: %s", s)
	}
	if !strings.Contains(s, "f32") {
		t.Fatalf("footer missing type name: %s", s)
	}
}

func TestDumpLargeTensorElides(t *testing.T) {
	data := make([]float32, 5000)
	o := NewOwned(data, dims.D1{N0: 5000})
	s := Dump(ToRank3View1(o.Borrow()), "f32", DumpWithThreshold(100), DumpWithEdgeItems(2))
	if !strings.Contains(s, "...") {
		t.Fatalf("large tensor should elide: %s", s)
	}
}
