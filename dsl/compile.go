package dsl

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ByLCY/grimoire/card"
	"github.com/ByLCY/grimoire/deck"
	"github.com/ByLCY/grimoire/pagination"
	"github.com/ByLCY/grimoire/spell"
)

// EntryKind 是卡片清单中一行的类型。
type EntryKind int

const (
	EntrySpell EntryKind = iota
	EntryReference
	EntryBlank
	EntryImport
	// EntryAll 加入筛选后的全部记录。
	EntryAll
)

// Entry 是卡片清单中的一行。
type Entry struct {
	Kind    EntryKind
	Name    string
	Source  string
	Path    string
	Starred bool
}

// Plan 是编译后的牌组描述。未出现的选项保持零值，由调用方用配置补齐。
type Plan struct {
	Name    string
	Page    string
	Sort    *deck.Sort
	Layout  pagination.Options
	View    card.View
	Filter  deck.Filter
	Entries []Entry

	set map[string]bool
}

// Has 表示 options 段是否显式设置了 key。
func (p *Plan) Has(key string) bool { return p.set[key] }

// Compile 把语法树转换为 Plan，未知键或类型错误的值返回带位置的错误。
func Compile(f *File) (*Plan, error) {
	p := &Plan{Name: string(f.Name), set: map[string]bool{}}
	for _, sec := range f.Sections {
		var err error
		switch {
		case sec.Options != nil:
			err = p.options(sec.Options)
		case sec.Filter != nil:
			err = p.filter(sec.Filter)
		case sec.Cards != nil:
			err = p.cards(sec.Cards)
		}
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Plan) options(b *Block) error {
	for _, st := range b.Statements {
		a := st.Assignment
		if a == nil {
			return fmt.Errorf("%s: options 中只允许 key: value", st.Command.Pos)
		}
		var err error
		switch a.Key {
		case "page":
			p.Page, err = a.Value.text()
		case "sort":
			var s string
			if s, err = a.Value.text(); err == nil {
				var order deck.Sort
				order, err = deck.ParseSort(s)
				p.Sort = &order
			}
		case "default-back":
			p.Layout.DefaultCardBack, err = a.Value.boolean()
		case "side-by-side":
			p.Layout.SideBySide, err = a.Value.boolean()
		case "grayscale":
			p.View.Grayscale, err = a.Value.boolean()
		case "reference-only":
			p.View.ReferenceMode, err = a.Value.boolean()
			p.Filter.ReferenceOnly = p.View.ReferenceMode
		default:
			err = fmt.Errorf("未知选项")
		}
		if err != nil {
			return fmt.Errorf("%s: %s: %w", a.Pos, a.Key, err)
		}
		p.set[a.Key] = true
	}
	return nil
}

func (p *Plan) filter(b *Block) error {
	for _, st := range b.Statements {
		a := st.Assignment
		if a == nil {
			return fmt.Errorf("%s: filter 中只允许 key: value", st.Command.Pos)
		}
		var err error
		switch a.Key {
		case "levels":
			p.Filter.Levels, err = a.Value.ints()
		case "schools":
			var words []string
			if words, err = a.Value.texts(); err == nil {
				p.Filter.Schools = nil
				for _, w := range words {
					s := spell.School(strings.ToLower(w))
					if !s.Valid() {
						err = fmt.Errorf("未知学派 %q", w)
						break
					}
					p.Filter.Schools = append(p.Filter.Schools, s)
				}
			}
		case "classes":
			p.Filter.Classes, err = a.Value.texts()
		case "sources":
			p.Filter.Sources, err = a.Value.texts()
		case "search":
			p.Filter.Search, err = a.Value.text()
		case "concentration":
			p.Filter.Concentration, err = a.Value.boolean()
		case "ritual":
			p.Filter.Ritual, err = a.Value.boolean()
		case "exclude-reprints":
			p.Filter.ExcludeReprints, err = a.Value.boolean()
		case "ruleset":
			var s string
			if s, err = a.Value.text(); err == nil {
				p.Filter.Ruleset, err = deck.ParseRuleset(s)
			}
		default:
			err = fmt.Errorf("未知筛选条件")
		}
		if err != nil {
			return fmt.Errorf("%s: %s: %w", a.Pos, a.Key, err)
		}
	}
	return nil
}

func (p *Plan) cards(b *Block) error {
	for _, st := range b.Statements {
		cmd := st.Command
		if cmd == nil {
			return fmt.Errorf("%s: cards 中不允许赋值", st.Assignment.Pos)
		}
		e, err := entryOf(cmd)
		if err != nil {
			return fmt.Errorf("%s: %s: %w", cmd.Pos, cmd.Name, err)
		}
		p.Entries = append(p.Entries, e)
	}
	return nil
}

func entryOf(cmd *Command) (Entry, error) {
	args := cmd.Args
	switch cmd.Name {
	case "reference":
		return Entry{Kind: EntryReference}, noArgs(args)
	case "blank":
		return Entry{Kind: EntryBlank}, noArgs(args)
	case "all":
		return Entry{Kind: EntryAll}, noArgs(args)
	case "import":
		if len(args) != 1 || args[0].Type != "String" {
			return Entry{}, fmt.Errorf("需要一个文件路径字符串")
		}
		return Entry{Kind: EntryImport, Path: args[0].Value}, nil
	case "spell":
		if len(args) == 0 || args[0].Type != "String" {
			return Entry{}, fmt.Errorf("需要法术名称字符串")
		}
		e := Entry{Kind: EntrySpell, Name: args[0].Value}
		for i := 1; i < len(args); i++ {
			switch args[i].Value {
			case "star":
				e.Starred = true
			case "source":
				if i+1 >= len(args) {
					return Entry{}, fmt.Errorf("source 缺少取值")
				}
				i++
				e.Source = args[i].Value
			default:
				return Entry{}, fmt.Errorf("未知参数 %q", args[i].Raw)
			}
		}
		return e, nil
	}
	return Entry{}, fmt.Errorf("未知卡片类型")
}

func noArgs(args []*Lexeme) error {
	if len(args) > 0 {
		return fmt.Errorf("不接受参数 %q", args[0].Raw)
	}
	return nil
}

func (v *Value) text() (string, error) {
	switch {
	case v.String != nil:
		return string(*v.String), nil
	case v.Word != nil:
		return *v.Word, nil
	case v.Number != nil:
		return *v.Number, nil
	}
	return "", fmt.Errorf("期望单个值")
}

func (v *Value) boolean() (bool, error) {
	s, err := v.text()
	if err != nil {
		return false, err
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("期望 true/false，实际 %q", s)
	}
	return b, nil
}

func (v *Value) texts() ([]string, error) {
	if v.Array == nil {
		s, err := v.text()
		if err != nil {
			return nil, err
		}
		return []string{s}, nil
	}
	out := make([]string, 0, len(v.Array.Values))
	for _, item := range v.Array.Values {
		s, err := item.text()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (v *Value) ints() ([]int, error) {
	words, err := v.texts()
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(words))
	for _, w := range words {
		n, err := strconv.Atoi(w)
		if err != nil {
			return nil, fmt.Errorf("期望整数，实际 %q", w)
		}
		out = append(out, n)
	}
	return out, nil
}

// Apply 按清单顺序把卡片加入牌组。import 路径相对 baseDir 解析；
// spell 按名称（大小写不敏感）与可选来源在记录集中查找，多条匹配时取筛选排序后的第一条。
func (p *Plan) Apply(lib *deck.Library, d *deck.Deck, baseDir string) error {
	order := deck.SortName
	if p.Sort != nil {
		order = *p.Sort
	}
	for _, e := range p.Entries {
		switch e.Kind {
		case EntryReference:
			d.AddReference()
		case EntryBlank:
			d.AddBlank()
		case EntryAll:
			for _, entry := range deck.Visible(lib.Entries(), p.Filter, order) {
				if _, err := d.Add(entry.ID); err != nil {
					return err
				}
			}
		case EntryImport:
			path := e.Path
			if !filepath.IsAbs(path) {
				path = filepath.Join(baseDir, path)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("读取导入文件 %s 失败: %w", e.Path, err)
			}
			added, err := lib.Import(data)
			if err != nil {
				return fmt.Errorf("导入 %s 失败: %w", e.Path, err)
			}
			for _, entry := range added {
				if _, err := d.Add(entry.ID); err != nil {
					return err
				}
			}
		case EntrySpell:
			id, err := lookup(lib, e, p.Filter, order)
			if err != nil {
				return err
			}
			c, err := d.Add(id)
			if err != nil {
				return err
			}
			if e.Starred {
				if _, err := d.ToggleStar(c.ID); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func lookup(lib *deck.Library, e Entry, f deck.Filter, order deck.Sort) (string, error) {
	var matches []deck.Entry
	for _, entry := range lib.Entries() {
		if !strings.EqualFold(entry.Record.Name, e.Name) {
			continue
		}
		if e.Source != "" && !strings.EqualFold(entry.Record.Source, e.Source) {
			continue
		}
		matches = append(matches, entry)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("找不到法术 %q", e.Name)
	}
	if f.ExcludeReprints && len(matches) > 1 {
		if preferred := deck.Visible(matches, deck.Filter{ExcludeReprints: true, Ruleset: f.Ruleset}, order); len(preferred) > 0 {
			return preferred[0].ID, nil
		}
	}
	return matches[0].ID, nil
}
