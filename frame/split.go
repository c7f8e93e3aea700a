package frame

import (
	"fmt"
	"math/rand/v2"

	"github.com/YuminosukeSato/grove/pkg/errors"
	"github.com/YuminosukeSato/grove/pkg/log"
)

// Split partitions the frame's rows into len(fractions)+1 frames by a
// seeded pseudo-random assignment: each row draws an independent
// uniform number and lands in the partition whose cumulative fraction
// range contains it, with the remainder forming the last partition.
// Partition sizes are therefore approximate, which matches the
// probabilistic split of distributed ML platforms.
func (f *Frame) Split(fractions []float64, seed int64) ([]*Frame, error) {
	if err := validateFractions(fractions); err != nil {
		return nil, err
	}
	if f.nrows == 0 {
		return nil, errors.WithStack(errors.ErrEmptyFrame)
	}

	cum := cumulative(fractions)
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))

	parts := make([][]int, len(fractions)+1)
	for i := 0; i < f.nrows; i++ {
		r := rng.Float64()
		idx := len(fractions) // remainder partition
		for k, bound := range cum {
			if r < bound {
				idx = k
				break
			}
		}
		parts[idx] = append(parts[idx], i)
	}

	return f.assemble(parts, fractions, seed)
}

// StratifiedSplit partitions rows like Split but preserves the class
// distribution of the target column in every partition. Rows with a
// missing target go to the remainder partition.
func (f *Frame) StratifiedSplit(target string, fractions []float64, seed int64) ([]*Frame, error) {
	if err := validateFractions(fractions); err != nil {
		return nil, err
	}
	col, err := f.Col(target)
	if err != nil {
		return nil, err
	}
	if col.Type != Enum {
		return nil, errors.NewValueError("StratifiedSplit", "target "+target+" must be an enum column")
	}

	// Group rows by class, shuffle within each class, then assign
	// proportional contiguous chunks per class.
	classRows := make(map[int][]int)
	var naRows []int
	for i := 0; i < f.nrows; i++ {
		if col.IsNA(i) {
			naRows = append(naRows, i)
			continue
		}
		lvl := int(col.Data[i])
		classRows[lvl] = append(classRows[lvl], i)
	}

	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	parts := make([][]int, len(fractions)+1)
	for lvl := 0; lvl < col.Cardinality(); lvl++ {
		rows := classRows[lvl]
		rng.Shuffle(len(rows), func(i, j int) {
			rows[i], rows[j] = rows[j], rows[i]
		})

		offset := 0
		for k, frac := range fractions {
			take := int(frac * float64(len(rows)))
			if offset+take > len(rows) {
				take = len(rows) - offset
			}
			parts[k] = append(parts[k], rows[offset:offset+take]...)
			offset += take
		}
		parts[len(fractions)] = append(parts[len(fractions)], rows[offset:]...)
	}
	parts[len(fractions)] = append(parts[len(fractions)], naRows...)

	return f.assemble(parts, fractions, seed)
}

func (f *Frame) assemble(parts [][]int, fractions []float64, seed int64) ([]*Frame, error) {
	frames := make([]*Frame, len(parts))
	sizes := make([]int, len(parts))
	for k, rows := range parts {
		if len(rows) == 0 {
			return nil, errors.NewValueError("Split",
				fmt.Sprintf("partition %d received no rows; use larger fractions or more data", k))
		}
		frames[k] = f.RowSubset(rows)
		sizes[k] = len(rows)
	}

	logger := log.GetLoggerWithName("frame")
	logger.Info("Frame split",
		log.OperationKey, log.OperationSplit,
		log.RowsKey, f.nrows,
		log.SplitFractionsKey, fractions,
		log.SeedKey, seed,
		"partition_sizes", sizes,
	)
	return frames, nil
}

func validateFractions(fractions []float64) error {
	if len(fractions) == 0 {
		return errors.NewValidationError("fractions", "need at least one fraction", fractions)
	}
	sum := 0.0
	for _, frac := range fractions {
		if frac <= 0 || frac >= 1 {
			return errors.NewValidationError("fractions", "each fraction must be in (0, 1)", frac)
		}
		sum += frac
	}
	if sum >= 1 {
		return errors.NewValidationError("fractions", "fractions must sum to less than 1 (remainder forms the last split)", sum)
	}
	return nil
}

func cumulative(fractions []float64) []float64 {
	cum := make([]float64, len(fractions))
	sum := 0.0
	for i, frac := range fractions {
		sum += frac
		cum[i] = sum
	}
	return cum
}
