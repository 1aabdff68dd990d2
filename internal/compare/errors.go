package compare

import (
	"fmt"
	"strings"
)

// SchemaMismatchError：记录的语言键集合与快照语言列表不一致，属配置/程序错误。
type SchemaMismatchError struct {
	Title string
	Want  []string
	Got   []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("record %q language keys [%s] do not match configured languages [%s]",
		e.Title, strings.Join(e.Got, " "), strings.Join(e.Want, " "))
}
