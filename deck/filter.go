package deck

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/ByLCY/grimoire/spell"
)

// Sort 是列表排序方式；名称（大小写不敏感）总是最后的比较键。
type Sort int

const (
	SortName Sort = iota
	SortLevel
	SortSchool
)

func (s Sort) String() string {
	switch s {
	case SortLevel:
		return "level"
	case SortSchool:
		return "school"
	default:
		return "name"
	}
}

// ParseSort 解析 name / level / school。
func ParseSort(s string) (Sort, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "name":
		return SortName, nil
	case "level":
		return SortLevel, nil
	case "school":
		return SortSchool, nil
	}
	return SortName, fmt.Errorf("未知排序方式 %q", s)
}

// Ruleset 决定「排除重印」时优先保留哪个来源。
type Ruleset string

const (
	Ruleset2014 Ruleset = "2014"
	Ruleset2024 Ruleset = "2024"
)

// ParseRuleset 解析 2014 / 2024。
func ParseRuleset(s string) (Ruleset, error) {
	switch r := Ruleset(strings.TrimSpace(s)); r {
	case "", Ruleset2014:
		return Ruleset2014, nil
	case Ruleset2024:
		return r, nil
	}
	return Ruleset2014, fmt.Errorf("未知规则版本 %q", s)
}

// 两个规则版本各自的核心来源。
const (
	SourcePHB  = "PHB"
	SourceXPHB = "XPHB"
)

// Filter 是一次列表计算的全部筛选条件，按值传递。零值表示不筛选。
type Filter struct {
	Levels  []int
	Schools []spell.School
	Classes []string
	Sources []string
	// Search 对显示名做大小写不敏感的子串匹配。
	Search        string
	Concentration bool
	Ritual        bool
	// ReferenceOnly 只保留参考记录，并以参考别名显示。
	ReferenceOnly   bool
	ExcludeReprints bool
	Ruleset         Ruleset
}

// Visible 计算可见列表：先排除重印，再逐条筛选，最后排序。不修改入参。
func Visible(entries []Entry, f Filter, order Sort) []Entry {
	candidates := entries
	if f.ExcludeReprints {
		candidates = excludeReprints(entries, f.Ruleset)
	}
	out := make([]Entry, 0, len(candidates))
	for _, e := range candidates {
		if f.match(e.Record) {
			out = append(out, e)
		}
	}
	SortEntries(out, order, f.ReferenceOnly)
	return out
}

func (f Filter) match(r spell.Record) bool {
	if f.ReferenceOnly && !r.Reference.Enabled {
		return false
	}
	if len(f.Levels) > 0 && !slices.Contains(f.Levels, r.Level) {
		return false
	}
	if len(f.Schools) > 0 && !slices.Contains(f.Schools, r.School) {
		return false
	}
	if len(f.Classes) > 0 && !slices.ContainsFunc(f.Classes, r.HasClass) {
		return false
	}
	if len(f.Sources) > 0 && !slices.ContainsFunc(f.Sources, func(s string) bool { return strings.EqualFold(s, r.Source) }) {
		return false
	}
	if f.Concentration && !r.Concentration {
		return false
	}
	if f.Ritual && !r.Ritual {
		return false
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		name := spell.DisplayName(r, f.ReferenceOnly)
		if !strings.Contains(strings.ToLower(name), strings.ToLower(q)) {
			return false
		}
	}
	return true
}

// SortEntries 原地稳定排序，排序键使用与显示一致的名称。
func SortEntries(entries []Entry, order Sort, referenceMode bool) {
	sort.SliceStable(entries, func(i, j int) bool {
		return less(entries[i].Record, entries[j].Record, order, referenceMode)
	})
}

func less(a, b spell.Record, order Sort, referenceMode bool) bool {
	if order == SortSchool && a.School != b.School {
		return a.School.Index() < b.School.Index()
	}
	if order != SortName && a.Level != b.Level {
		return a.Level < b.Level
	}
	return strings.ToLower(spell.DisplayName(a, referenceMode)) < strings.ToLower(spell.DisplayName(b, referenceMode))
}

// excludeReprints 同名记录只保留一条。两个规则版本的取舍方式不同：
//   - 2014：有 PHB 版本时保留 PHB，否则保留最先出现的一条；
//   - 2024：有 XPHB 版本时保留 XPHB，否则保留最后出现（最新重印）的一条。
//
// 只有一条的名称不受影响。
func excludeReprints(entries []Entry, ruleset Ruleset) []Entry {
	groups := map[string][]int{}
	for i, e := range entries {
		key := strings.ToLower(strings.TrimSpace(e.Record.Name))
		groups[key] = append(groups[key], i)
	}

	keep := make(map[int]bool, len(groups))
	for _, idx := range groups {
		keep[preferred(entries, idx, ruleset)] = true
	}
	out := make([]Entry, 0, len(keep))
	for i, e := range entries {
		if keep[i] {
			out = append(out, e)
		}
	}
	return out
}

func preferred(entries []Entry, idx []int, ruleset Ruleset) int {
	if ruleset == Ruleset2024 {
		for _, i := range idx {
			if strings.EqualFold(entries[i].Record.Source, SourceXPHB) {
				return i
			}
		}
		return idx[len(idx)-1]
	}
	for _, i := range idx {
		if strings.EqualFold(entries[i].Record.Source, SourcePHB) {
			return i
		}
	}
	return idx[0]
}
