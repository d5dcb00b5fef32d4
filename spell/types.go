package spell

import "strings"

// 该文件定义法术记录（Record）及其子字段。range/duration/castingTime 按取值形态拆成标记联合，
// 渲染阶段无需再判断「某字段在当前形态下是否有意义」。

// School 表示法术学派，共 8 种。
type School string

const (
	SchoolAbjuration    School = "abjuration"
	SchoolConjuration   School = "conjuration"
	SchoolDivination    School = "divination"
	SchoolEnchantment   School = "enchantment"
	SchoolEvocation     School = "evocation"
	SchoolIllusion      School = "illusion"
	SchoolNecromancy    School = "necromancy"
	SchoolTransmutation School = "transmutation"
)

// Schools 按固定顺序列出全部学派（排序与筛选都依赖该顺序）。
var Schools = []School{
	SchoolAbjuration,
	SchoolConjuration,
	SchoolDivination,
	SchoolEnchantment,
	SchoolEvocation,
	SchoolIllusion,
	SchoolNecromancy,
	SchoolTransmutation,
}

// Valid 判断学派是否为已知取值。
func (s School) Valid() bool {
	return s.Index() >= 0
}

// Index 返回学派在 Schools 中的位置，未知学派返回 -1。
func (s School) Index() int {
	for i, v := range Schools {
		if v == s {
			return i
		}
	}
	return -1
}

// Title 返回首字母大写的学派名，例如 "Evocation"。
func (s School) Title() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// TimeUnit 是施法时间单位。
type TimeUnit string

const (
	TimeAction   TimeUnit = "action"
	TimeBonus    TimeUnit = "bonus"
	TimeReaction TimeUnit = "reaction"
	TimeMinute   TimeUnit = "minute"
	TimeHour     TimeUnit = "hour"
)

// Fast 表示三种「快速」施法单位（动作/附赠动作/反应）。
func (u TimeUnit) Fast() bool {
	return u == TimeAction || u == TimeBonus || u == TimeReaction
}

func (u TimeUnit) valid() bool {
	switch u {
	case TimeAction, TimeBonus, TimeReaction, TimeMinute, TimeHour:
		return true
	}
	return false
}

// CastingTime 描述施法时间；Condition 仅对反应有意义（触发条件文本）。
type CastingTime struct {
	Amount    int
	Unit      TimeUnit
	Condition string
}

// DistanceUnit 是距离单位。
type DistanceUnit string

const (
	UnitFeet      DistanceUnit = "feet"
	UnitMiles     DistanceUnit = "miles"
	UnitUnlimited DistanceUnit = "unlimited"
)

// Abbrev 返回单位缩写：feet→ft，miles→mi。
func (u DistanceUnit) Abbrev() string {
	switch u {
	case UnitFeet:
		return "ft"
	case UnitMiles:
		return "mi"
	default:
		return string(u)
	}
}

// AreaShape 是效果范围形状。
type AreaShape string

const (
	AreaCone      AreaShape = "cone"
	AreaCube      AreaShape = "cube"
	AreaCylinder  AreaShape = "cylinder"
	AreaEmanation AreaShape = "emanation"
	AreaLine      AreaShape = "line"
	AreaSphere    AreaShape = "sphere"
)

func (s AreaShape) valid() bool {
	switch s {
	case AreaCone, AreaCube, AreaCylinder, AreaEmanation, AreaLine, AreaSphere:
		return true
	}
	return false
}

// Area 描述效果范围；Height 为可选的第二维（例如圆柱高度）。
type Area struct {
	Shape      AreaShape
	Size       float64
	Unit       DistanceUnit
	Height     float64
	HeightUnit DistanceUnit
}

// Targets 描述目标数量。
type Targets struct {
	Count         int
	ScalesByLevel bool
	RequiresSight bool
}

// Origin 是施法距离的起点类型。
type Origin string

const (
	OriginSelf    Origin = "self"
	OriginTouch   Origin = "touch"
	OriginPoint   Origin = "point"
	OriginSpecial Origin = "special"
)

// Extent 是各类 Range 共有的可选部分（效果范围与目标）。
type Extent struct {
	Area    *Area
	Targets *Targets
}

func (e Extent) extent() Extent { return e }

// Range 是施法距离的标记联合：SelfRange | TouchRange | PointRange | SpecialRange。
type Range interface {
	Origin() Origin
	extent() Extent
}

// SelfRange 以施法者自身为起点。
type SelfRange struct{ Extent }

// TouchRange 为接触。
type TouchRange struct{ Extent }

// PointRange 指定距离内的一点。
type PointRange struct {
	Distance float64
	Unit     DistanceUnit
	Extent
}

// SpecialRange 为特殊距离。
type SpecialRange struct{ Extent }

func (SelfRange) Origin() Origin    { return OriginSelf }
func (TouchRange) Origin() Origin   { return OriginTouch }
func (PointRange) Origin() Origin   { return OriginPoint }
func (SpecialRange) Origin() Origin { return OriginSpecial }

// AreaOf 返回 Range 的效果范围，可能为 nil。
func AreaOf(r Range) *Area {
	if r == nil {
		return nil
	}
	return r.extent().Area
}

// TargetsOf 返回 Range 的目标信息，可能为 nil。
func TargetsOf(r Range) *Targets {
	if r == nil {
		return nil
	}
	return r.extent().Targets
}

// DurationKind 是持续时间类型。
type DurationKind string

const (
	DurationInstant   DurationKind = "instant"
	DurationTimed     DurationKind = "timed"
	DurationPermanent DurationKind = "permanent"
	DurationSpecial   DurationKind = "special"
)

// DurationUnit 是计时持续时间的单位。
type DurationUnit string

const (
	DurationRound  DurationUnit = "round"
	DurationMinute DurationUnit = "minute"
	DurationHour   DurationUnit = "hour"
	DurationDay    DurationUnit = "day"
)

func (u DurationUnit) valid() bool {
	switch u {
	case DurationRound, DurationMinute, DurationHour, DurationDay:
		return true
	}
	return false
}

// EndCondition 是持续时间的结束条件标签。
type EndCondition string

const (
	EndDispel  EndCondition = "dispel"
	EndTrigger EndCondition = "trigger"
)

// Duration 是持续时间的标记联合：InstantDuration | TimedDuration | PermanentDuration | SpecialDuration。
type Duration interface {
	Kind() DurationKind
}

type InstantDuration struct{}

type TimedDuration struct {
	Amount int
	Unit   DurationUnit
	Ends   []EndCondition
}

type PermanentDuration struct {
	Ends []EndCondition
}

type SpecialDuration struct{}

func (InstantDuration) Kind() DurationKind   { return DurationInstant }
func (TimedDuration) Kind() DurationKind     { return DurationTimed }
func (PermanentDuration) Kind() DurationKind { return DurationPermanent }
func (SpecialDuration) Kind() DurationKind   { return DurationSpecial }

// HasEnd 判断结束条件中是否包含指定标签。
func HasEnd(ends []EndCondition, want EndCondition) bool {
	for _, e := range ends {
		if e == want {
			return true
		}
	}
	return false
}

// MaterialVariant 区分材料成分的三种图标形态。
type MaterialVariant int

const (
	MaterialPlain MaterialVariant = iota
	MaterialCost
	MaterialConsumed
)

// Components 描述言语/姿势/材料成分。
type Components struct {
	Verbal      bool
	Somatic     bool
	Material    bool
	Cost        bool
	Consumed    bool
	Description string
}

// Variant 返回材料成分图标形态；消耗优先于有价。
func (c Components) Variant() MaterialVariant {
	switch {
	case c.Consumed:
		return MaterialConsumed
	case c.Cost:
		return MaterialCost
	default:
		return MaterialPlain
	}
}

// ReferenceFlag 是双用途字段：JSON 中可为 bool，也可为字符串（参考模式下的替代显示名）。
type ReferenceFlag struct {
	Enabled bool
	Alias   string
}

// Record 是一条法术记录。约定为不可变值，修改请先 Clone。
type Record struct {
	Name          string
	Subtitle      string
	Source        string
	Page          int
	Reference     ReferenceFlag
	Level         int
	School        School
	CastingTime   CastingTime
	Range         Range
	Duration      Duration
	Components    Components
	Description   string
	HigherLevels  string
	Classes       []string
	Concentration bool
	Ritual        bool
}

// HasClass 判断记录的职业列表中是否包含 class（大小写不敏感）。
func (r Record) HasClass(class string) bool {
	for _, c := range r.Classes {
		if strings.EqualFold(c, class) {
			return true
		}
	}
	return false
}

// DisplayName 返回当前模式下的显示名。参考模式下，若参考标记为字符串，则使用该字符串。
// 列表、排序键、卡面与导出必须统一调用此函数。
func DisplayName(r Record, referenceMode bool) string {
	if referenceMode && r.Reference.Enabled && r.Reference.Alias != "" {
		return r.Reference.Alias
	}
	return r.Name
}

// Clone 深拷贝记录，使副本可以独立编辑。
func (r Record) Clone() Record {
	out := r
	if r.Classes != nil {
		out.Classes = append([]string(nil), r.Classes...)
	}
	out.Range = cloneRange(r.Range)
	out.Duration = cloneDuration(r.Duration)
	return out
}

func cloneExtent(e Extent) Extent {
	out := Extent{}
	if e.Area != nil {
		a := *e.Area
		out.Area = &a
	}
	if e.Targets != nil {
		t := *e.Targets
		out.Targets = &t
	}
	return out
}

func cloneRange(r Range) Range {
	switch v := r.(type) {
	case SelfRange:
		return SelfRange{cloneExtent(v.Extent)}
	case TouchRange:
		return TouchRange{cloneExtent(v.Extent)}
	case PointRange:
		return PointRange{Distance: v.Distance, Unit: v.Unit, Extent: cloneExtent(v.Extent)}
	case SpecialRange:
		return SpecialRange{cloneExtent(v.Extent)}
	default:
		return r
	}
}

func cloneDuration(d Duration) Duration {
	switch v := d.(type) {
	case TimedDuration:
		v.Ends = append([]EndCondition(nil), v.Ends...)
		return v
	case PermanentDuration:
		v.Ends = append([]EndCondition(nil), v.Ends...)
		return v
	default:
		return d
	}
}
