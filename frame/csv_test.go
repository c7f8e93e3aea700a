package frame

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

const irisSample = `sepal_len,sepal_wid,species
5.1,3.5,setosa
4.9,3.0,setosa
6.3,3.3,virginica
5.8,2.7,virginica
7.0,3.2,versicolor
`

func TestReadCSVTypeInference(t *testing.T) {
	f, err := ReadCSV(strings.NewReader(irisSample))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}

	if f.NumRows() != 5 {
		t.Errorf("rows = %d, want 5", f.NumRows())
	}
	if f.NumCols() != 3 {
		t.Errorf("cols = %d, want 3", f.NumCols())
	}

	sepal, err := f.Col("sepal_len")
	if err != nil {
		t.Fatalf("Col failed: %v", err)
	}
	if sepal.Type != Numeric {
		t.Errorf("sepal_len inferred as %v, want numeric", sepal.Type)
	}
	if sepal.Data[0] != 5.1 {
		t.Errorf("sepal_len[0] = %v, want 5.1", sepal.Data[0])
	}

	species, err := f.Col("species")
	if err != nil {
		t.Fatalf("Col failed: %v", err)
	}
	if species.Type != Enum {
		t.Errorf("species inferred as %v, want enum", species.Type)
	}
	// Levels are sorted lexicographically.
	want := []string{"setosa", "versicolor", "virginica"}
	got := species.Levels()
	if len(got) != len(want) {
		t.Fatalf("levels = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("level %d = %q, want %q", i, got[i], want[i])
		}
	}

	lvl, err := species.LevelAt(4)
	if err != nil {
		t.Fatalf("LevelAt failed: %v", err)
	}
	if lvl != "versicolor" {
		t.Errorf("row 4 species = %q, want versicolor", lvl)
	}
}

func TestReadCSVMissingValues(t *testing.T) {
	data := `x,label
1.0,a
?,b
3.0,?
NA,a
`
	f, err := ReadCSV(strings.NewReader(data))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}

	x, _ := f.Col("x")
	if x.Type != Numeric {
		t.Fatalf("x inferred as %v, want numeric", x.Type)
	}
	if x.NACount() != 2 {
		t.Errorf("x NA count = %d, want 2", x.NACount())
	}
	if !math.IsNaN(x.Data[1]) {
		t.Errorf("x[1] = %v, want NaN", x.Data[1])
	}

	label, _ := f.Col("label")
	if label.NACount() != 1 {
		t.Errorf("label NA count = %d, want 1", label.NACount())
	}
}

func TestReadCSVEmptyBody(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("a,b\n")); err == nil {
		t.Error("header-only csv should fail")
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	f, err := ReadCSV(strings.NewReader(irisSample))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}

	var buf bytes.Buffer
	if err := f.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	back, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("re-reading written csv: %v", err)
	}
	if back.NumRows() != f.NumRows() || back.NumCols() != f.NumCols() {
		t.Errorf("round trip shape %dx%d, want %dx%d",
			back.NumRows(), back.NumCols(), f.NumRows(), f.NumCols())
	}

	species, _ := back.Col("species")
	lvl, err := species.LevelAt(0)
	if err != nil {
		t.Fatalf("LevelAt failed: %v", err)
	}
	if lvl != "setosa" {
		t.Errorf("round trip species[0] = %q, want setosa", lvl)
	}
}
