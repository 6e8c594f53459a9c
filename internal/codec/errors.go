package codec

import (
	"fmt"
	"strings"

	"github.com/sells-group/delay-risk-cli/internal/model"
)

// UnknownCategoryError reports a categorical value outside the vocabulary
// observed at training time.
type UnknownCategoryError struct {
	Field model.Field
	Value string
	Known []string
}

func (e *UnknownCategoryError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("codec: unknown %s category %q", e.Field, e.Value)
	}
	return fmt.Sprintf("codec: unknown %s category %q (known: %s)",
		e.Field, e.Value, strings.Join(e.Known, ", "))
}

// MissingValueError reports a required field with no value.
type MissingValueError struct {
	Field model.Field
}

func (e *MissingValueError) Error() string {
	return fmt.Sprintf("codec: missing value for %s", e.Field)
}
