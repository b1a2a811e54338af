package features

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingFeatures means none of the declared numeric columns exist.
	ErrMissingFeatures = errors.New("no numeric feature columns present")
	// ErrEmptyTable means the input has a header but no rows.
	ErrEmptyTable = errors.New("input table has no rows")
)

// MissingFeatureError names the numeric columns that were looked for and
// the columns the table actually has.
type MissingFeatureError struct {
	Declared []string
	Present  []string
}

func (e *MissingFeatureError) Error() string {
	return fmt.Sprintf("%v: looked for [%s], table has [%s]",
		ErrMissingFeatures, strings.Join(e.Declared, ", "), strings.Join(e.Present, ", "))
}

func (e *MissingFeatureError) Unwrap() error { return ErrMissingFeatures }
