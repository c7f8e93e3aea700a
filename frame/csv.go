package frame

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/YuminosukeSato/grove/pkg/errors"
	"github.com/YuminosukeSato/grove/pkg/log"
)

// naTokens are the cell values treated as missing on import.
var naTokens = map[string]struct{}{
	"":   {},
	"?":  {},
	"NA": {},
	"na": {},
}

// ImportFile reads a CSV file into a frame. The first row must be a
// header naming every column.
func ImportFile(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "importing %s", path)
	}
	defer func() { _ = file.Close() }()

	start := time.Now()
	f, err := ReadCSV(file)
	if err != nil {
		return nil, errors.Wrapf(err, "importing %s", path)
	}

	logger := log.GetLoggerWithName("frame")
	logger.Info("Frame imported",
		log.OperationKey, log.OperationImport,
		log.RowsKey, f.NumRows(),
		log.FeaturesKey, f.NumCols(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return f, nil
}

// ReadCSV reads CSV content with a header row into a frame, inferring a
// type per column: if every non-missing cell parses as a float the
// column is numeric, otherwise it becomes an enum with a sorted level
// dictionary.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "reading header")
	}
	if len(header) == 0 {
		return nil, errors.NewValueError("ReadCSV", "empty header")
	}

	raw := make([][]string, len(header))
	nrows := 0
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "reading line %d", line)
		}
		for j, cell := range record {
			raw[j] = append(raw[j], cell)
		}
		nrows++
	}
	if nrows == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}

	cols := make([]*Column, len(header))
	for j, name := range header {
		cols[j] = inferColumn(name, raw[j])
	}
	return New(cols...)
}

// inferColumn decides the column type from its raw cells and builds it.
func inferColumn(name string, cells []string) *Column {
	numeric := true
	parsed := make([]float64, len(cells))
	nNumeric, nString := 0, 0

	for i, cell := range cells {
		if _, isNA := naTokens[cell]; isNA {
			parsed[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			numeric = false
			nString++
			continue
		}
		parsed[i] = v
		nNumeric++
	}

	if numeric {
		return NewNumericColumn(name, parsed)
	}

	// Mixed content falls back to enum; numeric-looking cells become
	// string levels like any other.
	if nNumeric > 0 && nNumeric > nString {
		errors.Warn(errors.NewDataConversionWarning("numeric", "enum",
			"column "+name+" has a numeric majority but non-numeric cells"))
	}

	values := make([]string, len(cells))
	for i, cell := range cells {
		if _, isNA := naTokens[cell]; isNA {
			values[i] = ""
			continue
		}
		values[i] = cell
	}
	return NewEnumColumn(name, values)
}

// WriteCSV writes the frame as CSV with a header row. Missing values
// are written as empty cells.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Names()); err != nil {
		return errors.Wrap(err, "writing header")
	}

	record := make([]string, len(f.cols))
	for i := 0; i < f.nrows; i++ {
		for j, c := range f.cols {
			switch {
			case c.IsNA(i):
				record[j] = ""
			case c.Type == Enum:
				lvl, err := c.LevelAt(i)
				if err != nil {
					return err
				}
				record[j] = lvl
			default:
				record[j] = strconv.FormatFloat(c.Data[i], 'g', -1, 64)
			}
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrapf(err, "writing row %d", i)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}
