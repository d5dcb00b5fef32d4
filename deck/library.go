// Package deck 管理记录集与工作牌组：加载规范数据、导入导出、筛选排序以及牌组增删改。
package deck

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/ByLCY/grimoire/spell"
)

// ErrMalformedImport 表示用户导入的文件不是合法的记录对象或数组；牌组与记录集保持不变。
var ErrMalformedImport = errors.New("导入文件格式错误")

// IDGenerator 生成进程内唯一标识。
type IDGenerator func() string

// Entry 是记录集中的一条记录。ID 在加载时分配，不信任文件中的值。
type Entry struct {
	ID       string
	Record   spell.Record
	Uploaded bool
}

// Options 配置 Library 与 Deck。
type Options struct {
	NewID  IDGenerator
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Library 是规范记录与用户导入记录的集合。
type Library struct {
	opts    Options
	entries []Entry
	byID    map[string]int
}

func NewLibrary(opts Options) *Library {
	return &Library{opts: opts.withDefaults(), byID: map[string]int{}}
}

// Load 读取规范记录数组并替换当前内容。任何一条记录无效都会使整个加载失败。
func (l *Library) Load(r io.Reader) error {
	recs, err := spell.DecodeList(r)
	if err != nil {
		return err
	}
	l.entries = l.entries[:0]
	l.byID = map[string]int{}
	for _, rec := range recs {
		l.add(rec, false)
	}
	return nil
}

// LoadFile 从文件加载规范记录。
func (l *Library) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("打开法术数据 %s 失败: %w", path, err)
	}
	defer f.Close()
	if err := l.Load(f); err != nil {
		return fmt.Errorf("加载法术数据 %s 失败: %w", path, err)
	}
	return nil
}

// Import 导入单个记录或记录数组；每条分配新 ID 并标记为用户上传，同名记录允许共存。
// 解析失败时整份文件被拒绝，返回包装了 ErrMalformedImport 的错误。
func (l *Library) Import(data []byte) ([]Entry, error) {
	recs, err := spell.DecodeOneOrMany(data)
	if err != nil {
		l.opts.Logger.Warn("拒绝导入文件", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrMalformedImport, err)
	}
	out := make([]Entry, 0, len(recs))
	for _, rec := range recs {
		out = append(out, l.add(rec, true))
	}
	return out, nil
}

func (l *Library) add(rec spell.Record, uploaded bool) Entry {
	e := Entry{ID: l.opts.NewID(), Record: rec, Uploaded: uploaded}
	l.byID[e.ID] = len(l.entries)
	l.entries = append(l.entries, e)
	return e
}

// Get 按 ID 查找记录。
func (l *Library) Get(id string) (Entry, bool) {
	i, ok := l.byID[id]
	if !ok {
		return Entry{}, false
	}
	return l.entries[i], true
}

// Entries 返回全部记录（按加载顺序）的副本。
func (l *Library) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Library) Len() int { return len(l.entries) }

// ExportReference 导出参考子集。referenceMode 为 true 时名称替换为参考别名，与列表显示一致。
func (l *Library) ExportReference(w io.Writer, referenceMode bool) error {
	var recs []spell.Record
	for _, e := range l.entries {
		if !e.Record.Reference.Enabled {
			continue
		}
		recs = append(recs, exportRecord(e.Record, referenceMode))
	}
	if err := spell.EncodeList(w, recs); err != nil {
		return fmt.Errorf("导出参考记录失败: %w", err)
	}
	return nil
}

func exportRecord(rec spell.Record, referenceMode bool) spell.Record {
	out := rec.Clone()
	out.Name = spell.DisplayName(rec, referenceMode)
	return out
}
