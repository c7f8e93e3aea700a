package frame

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/grove/pkg/errors"
)

// ColType distinguishes numeric columns from categorical (enum) columns.
type ColType int

const (
	// Numeric is a real-valued column stored as float64.
	Numeric ColType = iota
	// Enum is a categorical column stored as level indices into a
	// lexicographically sorted level dictionary.
	Enum
)

// String returns the column type name as shown in summaries.
func (t ColType) String() string {
	switch t {
	case Numeric:
		return "numeric"
	case Enum:
		return "enum"
	default:
		return "unknown"
	}
}

// Column is a single named column. Both types store their values as
// float64: enum cells hold the level index, and NaN marks a missing
// value in either representation.
type Column struct {
	Name string
	Type ColType
	Data []float64

	levels     []string
	levelIndex map[string]int
}

// NewNumericColumn builds a numeric column. The data slice is owned by
// the column afterwards.
func NewNumericColumn(name string, data []float64) *Column {
	return &Column{Name: name, Type: Numeric, Data: data}
}

// NewEnumColumn builds a categorical column from raw string cells.
// Levels are sorted lexicographically so the dictionary is stable
// regardless of row order. Empty strings become missing values.
func NewEnumColumn(name string, values []string) *Column {
	uniq := make(map[string]struct{})
	for _, v := range values {
		if v != "" {
			uniq[v] = struct{}{}
		}
	}
	levels := make([]string, 0, len(uniq))
	for v := range uniq {
		levels = append(levels, v)
	}
	sort.Strings(levels)

	index := make(map[string]int, len(levels))
	for i, lvl := range levels {
		index[lvl] = i
	}

	data := make([]float64, len(values))
	for i, v := range values {
		if v == "" {
			data[i] = math.NaN()
			continue
		}
		data[i] = float64(index[v])
	}

	return &Column{Name: name, Type: Enum, Data: data, levels: levels, levelIndex: index}
}

// NewEnumColumnWithLevels builds an enum column reusing an existing
// dictionary. Used by prediction output and row subsetting so level
// indices stay comparable across frames.
func NewEnumColumnWithLevels(name string, data []float64, levels []string) *Column {
	index := make(map[string]int, len(levels))
	for i, lvl := range levels {
		index[lvl] = i
	}
	return &Column{Name: name, Type: Enum, Data: data, levels: levels, levelIndex: index}
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.Data) }

// IsNA reports whether row i holds a missing value.
func (c *Column) IsNA(i int) bool { return math.IsNaN(c.Data[i]) }

// NACount returns the number of missing cells.
func (c *Column) NACount() int {
	n := 0
	for _, v := range c.Data {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Levels returns the level dictionary of an enum column, nil for numeric.
func (c *Column) Levels() []string { return c.levels }

// Cardinality returns the number of levels of an enum column.
func (c *Column) Cardinality() int { return len(c.levels) }

// LevelIndex looks up a level string in the dictionary.
func (c *Column) LevelIndex(level string) (int, bool) {
	idx, ok := c.levelIndex[level]
	return idx, ok
}

// LevelAt returns the level string stored at row i, or an error for
// numeric columns and missing cells.
func (c *Column) LevelAt(i int) (string, error) {
	if c.Type != Enum {
		return "", errors.NewValueError("LevelAt", "column "+c.Name+" is not an enum column")
	}
	if c.IsNA(i) {
		return "", errors.NewValueError("LevelAt", "missing value")
	}
	idx := int(c.Data[i])
	if idx < 0 || idx >= len(c.levels) {
		return "", errors.Newf("level index %d out of range for column %s", idx, c.Name)
	}
	return c.levels[idx], nil
}

// Mean returns the mean of the non-missing cells of a numeric column.
func (c *Column) Mean() float64 {
	sum, n := 0.0, 0
	for _, v := range c.Data {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// Min returns the smallest non-missing value.
func (c *Column) Min() float64 {
	minV := math.Inf(1)
	seen := false
	for _, v := range c.Data {
		if !math.IsNaN(v) && v < minV {
			minV = v
			seen = true
		}
	}
	if !seen {
		return math.NaN()
	}
	return minV
}

// Max returns the largest non-missing value.
func (c *Column) Max() float64 {
	maxV := math.Inf(-1)
	seen := false
	for _, v := range c.Data {
		if !math.IsNaN(v) && v > maxV {
			maxV = v
			seen = true
		}
	}
	if !seen {
		return math.NaN()
	}
	return maxV
}

// subset returns a new column holding the given rows, sharing the level
// dictionary for enum columns.
func (c *Column) subset(rows []int) *Column {
	data := make([]float64, len(rows))
	for i, r := range rows {
		data[i] = c.Data[r]
	}
	if c.Type == Enum {
		return NewEnumColumnWithLevels(c.Name, data, c.levels)
	}
	return NewNumericColumn(c.Name, data)
}
