// Package frame provides grove's in-memory columnar table: CSV import
// with type inference, seeded fraction splits, and gonum bridges for
// the trainers.
package frame

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/grove/pkg/errors"
)

// Frame is a named collection of equal-length columns.
type Frame struct {
	cols   []*Column
	byName map[string]int
	nrows  int
}

// New builds a frame from columns, validating that all lengths match
// and names are unique.
func New(cols ...*Column) (*Frame, error) {
	if len(cols) == 0 {
		return nil, errors.NewValueError("frame.New", "no columns")
	}
	nrows := cols[0].Len()
	byName := make(map[string]int, len(cols))
	for i, c := range cols {
		if c.Len() != nrows {
			return nil, errors.NewDimensionError("frame.New", nrows, c.Len(), 0)
		}
		if _, dup := byName[c.Name]; dup {
			return nil, errors.NewValueError("frame.New", "duplicate column name "+c.Name)
		}
		byName[c.Name] = i
	}
	return &Frame{cols: cols, byName: byName, nrows: nrows}, nil
}

// NumRows returns the row count.
func (f *Frame) NumRows() int { return f.nrows }

// NumCols returns the column count.
func (f *Frame) NumCols() int { return len(f.cols) }

// Names returns the column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name
	}
	return names
}

// Col returns the named column.
func (f *Frame) Col(name string) (*Column, error) {
	idx, ok := f.byName[name]
	if !ok {
		return nil, errors.Wrapf(errors.ErrColumnNotFound, "column %q", name)
	}
	return f.cols[idx], nil
}

// Has reports whether the frame contains the named column.
func (f *Frame) Has(name string) bool {
	_, ok := f.byName[name]
	return ok
}

// Select returns a new frame with only the named columns, in the given
// order. The columns are shared, not copied.
func (f *Frame) Select(names []string) (*Frame, error) {
	cols := make([]*Column, 0, len(names))
	for _, name := range names {
		c, err := f.Col(name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return New(cols...)
}

// Drop returns a new frame without the named columns.
func (f *Frame) Drop(names []string) (*Frame, error) {
	dropped := make(map[string]struct{}, len(names))
	for _, name := range names {
		if !f.Has(name) {
			return nil, errors.Wrapf(errors.ErrColumnNotFound, "column %q", name)
		}
		dropped[name] = struct{}{}
	}
	cols := make([]*Column, 0, len(f.cols))
	for _, c := range f.cols {
		if _, skip := dropped[c.Name]; !skip {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		return nil, errors.NewValueError("Drop", "dropping every column")
	}
	return New(cols...)
}

// RowSubset returns a new frame holding the given rows of every column.
func (f *Frame) RowSubset(rows []int) *Frame {
	cols := make([]*Column, len(f.cols))
	for i, c := range f.cols {
		cols[i] = c.subset(rows)
	}
	sub, _ := New(cols...)
	return sub
}

// Bind appends columns to the frame, validating lengths.
func (f *Frame) Bind(cols ...*Column) error {
	for _, c := range cols {
		if c.Len() != f.nrows {
			return errors.NewDimensionError("Bind", f.nrows, c.Len(), 0)
		}
		if _, dup := f.byName[c.Name]; dup {
			return errors.NewValueError("Bind", "duplicate column name "+c.Name)
		}
		f.byName[c.Name] = len(f.cols)
		f.cols = append(f.cols, c)
	}
	return nil
}

// FeatureMeta describes one predictor column for the trainers.
type FeatureMeta struct {
	Name    string
	Enum    bool
	NLevels int
}

// Meta returns trainer metadata for the named columns.
func (f *Frame) Meta(names []string) ([]FeatureMeta, error) {
	meta := make([]FeatureMeta, 0, len(names))
	for _, name := range names {
		c, err := f.Col(name)
		if err != nil {
			return nil, err
		}
		meta = append(meta, FeatureMeta{
			Name:    name,
			Enum:    c.Type == Enum,
			NLevels: c.Cardinality(),
		})
	}
	return meta, nil
}

// Matrix packs the named columns into a row-major dense matrix for the
// trainers. Enum cells are their level indices.
func (f *Frame) Matrix(names []string) (*mat.Dense, error) {
	if f.nrows == 0 {
		return nil, errors.WithStack(errors.ErrEmptyFrame)
	}
	cols := make([]*Column, 0, len(names))
	for _, name := range names {
		c, err := f.Col(name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	m := mat.NewDense(f.nrows, len(cols), nil)
	for j, c := range cols {
		for i := 0; i < f.nrows; i++ {
			m.Set(i, j, c.Data[i])
		}
	}
	return m, nil
}

// Vector packs the named column into a dense vector.
func (f *Frame) Vector(name string) (*mat.VecDense, error) {
	if f.nrows == 0 {
		return nil, errors.WithStack(errors.ErrEmptyFrame)
	}
	c, err := f.Col(name)
	if err != nil {
		return nil, err
	}
	v := mat.NewVecDense(f.nrows, nil)
	for i := 0; i < f.nrows; i++ {
		v.SetVec(i, c.Data[i])
	}
	return v, nil
}
