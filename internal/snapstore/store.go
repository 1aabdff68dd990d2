// 包 snapstore 以文件为单位持久化快照：
// 布局 data/json/<YYYY-MM-DD>/<分类>.json，每（分类, 日期）至多一份。
// 文件即权威数据，sqlite 仅做索引（见 store 包）。
package snapstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go-wiki-gap/internal/compare"
	"go-wiki-gap/internal/logx"
	"go-wiki-gap/internal/model"
)

// Store 管理 DataDir 下的快照文件。
type Store struct {
	dir string
}

func New(dataDir string) *Store { return &Store{dir: dataDir} }

// Path 返回快照的落盘路径。分类名中的空格替换为下划线。
func (s *Store) Path(category string, t time.Time) string {
	name := strings.ReplaceAll(category, " ", "_") + ".json"
	return filepath.Join(s.dir, "json", t.UTC().Format("2006-01-02"), name)
}

// Save 校验并写入快照。同（分类, 日期）已有文件时返回 DuplicateTimestampError，
// 既有文件保持不变。
func (s *Store) Save(snap model.Snapshot) (string, error) {
	for _, r := range snap.Records {
		if err := compare.ValidateRecord(r, snap.Languages); err != nil {
			return "", fmt.Errorf("save snapshot %q: %w", snap.Category, err)
		}
	}
	path := s.Path(snap.Category, snap.TakenAt)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", &DuplicateTimestampError{
				Category: snap.Category,
				Date:     snap.TakenAt.UTC().Format("2006-01-02"),
			}
		}
		return "", fmt.Errorf("create snapshot file: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(snap); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close snapshot file: %w", err)
	}
	return path, nil
}

// load 读取并校验单个快照文件。
func load(path string) (model.Snapshot, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	var snap model.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return model.Snapshot{}, &CorruptSnapshotError{Path: path, Err: err}
	}
	if snap.Version != model.SnapshotVersion {
		return model.Snapshot{}, &CorruptSnapshotError{
			Path: path,
			Err:  fmt.Errorf("unsupported snapshot version %d", snap.Version),
		}
	}
	for _, r := range snap.Records {
		if err := compare.ValidateRecord(r, snap.Languages); err != nil {
			return model.Snapshot{}, &CorruptSnapshotError{Path: path, Err: err}
		}
	}
	return snap, nil
}

// LoadAll 加载分类的全部快照，按时间升序返回。
// lenient 为真时损坏文件仅告警跳过，否则直接返回 CorruptSnapshotError。
func (s *Store) LoadAll(category string, lenient bool) ([]model.Snapshot, error) {
	name := strings.ReplaceAll(category, " ", "_") + ".json"
	paths, err := filepath.Glob(filepath.Join(s.dir, "json", "*", name))
	if err != nil {
		return nil, fmt.Errorf("glob snapshots: %w", err)
	}
	var out []model.Snapshot
	for _, p := range paths {
		snap, err := load(p)
		if err != nil {
			if lenient {
				logx.Warnf("跳过损坏的快照文件：%v", err)
				continue
			}
			return nil, err
		}
		out = append(out, snap)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TakenAt.Before(out[j].TakenAt) })
	return out, nil
}

// LoadLatest 返回分类最近一次的快照。
func (s *Store) LoadLatest(category string) (model.Snapshot, error) {
	all, err := s.LoadAll(category, false)
	if err != nil {
		return model.Snapshot{}, err
	}
	if len(all) == 0 {
		return model.Snapshot{}, fmt.Errorf("no snapshot found for category %q", category)
	}
	return all[len(all)-1], nil
}

// RunInfo 为目录扫描得到的一次运行摘要，供无索引库时的 list 命令使用。
type RunInfo struct {
	Category string
	TakenAt  time.Time
	Pages    int
	Partial  bool
	Path     string
}

// ListRuns 扫描全部快照文件并返回摘要，按时间升序。损坏文件告警跳过。
func (s *Store) ListRuns() ([]RunInfo, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "json", "*", "*.json"))
	if err != nil {
		return nil, fmt.Errorf("glob snapshots: %w", err)
	}
	var out []RunInfo
	for _, p := range paths {
		snap, err := load(p)
		if err != nil {
			logx.Warnf("跳过损坏的快照文件：%v", err)
			continue
		}
		out = append(out, RunInfo{
			Category: snap.Category,
			TakenAt:  snap.TakenAt,
			Pages:    len(snap.Records),
			Partial:  snap.Partial,
			Path:     p,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TakenAt.Before(out[j].TakenAt) })
	return out, nil
}
