package snapstore

import "fmt"

// DuplicateTimestampError：同一分类当天已存在快照，拒绝覆盖。
type DuplicateTimestampError struct {
	Category string
	Date     string
}

func (e *DuplicateTimestampError) Error() string {
	return fmt.Sprintf("snapshot for %q already exists on %s", e.Category, e.Date)
}

// CorruptSnapshotError：快照文件无法解析或校验失败。
type CorruptSnapshotError struct {
	Path string
	Err  error
}

func (e *CorruptSnapshotError) Error() string {
	return fmt.Sprintf("corrupt snapshot %s: %v", e.Path, e.Err)
}

func (e *CorruptSnapshotError) Unwrap() error { return e.Err }
