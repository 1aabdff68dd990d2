package series

import (
	"fmt"
	"strings"
)

// EmptySeriesError：快照数量不足以构成序列（至少两次）。
type EmptySeriesError struct {
	Category string
	Have     int
}

func (e *EmptySeriesError) Error() string {
	return fmt.Sprintf("category %q has %d snapshot(s), need at least 2 for a series", e.Category, e.Have)
}

// InconsistentLanguageSetError：同一分类的快照语言列表不一致，序列不可比。
type InconsistentLanguageSetError struct {
	Category string
	Want     []string
	Got      []string
}

func (e *InconsistentLanguageSetError) Error() string {
	return fmt.Sprintf("category %q snapshots use different language sets: [%s] vs [%s]",
		e.Category, strings.Join(e.Want, "|"), strings.Join(e.Got, "|"))
}
