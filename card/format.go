package card

import (
	"strconv"
	"strings"

	"github.com/ByLCY/grimoire/spell"
)

// RangeText 是施法距离行的文字部分与（可选）效果范围形状。
type RangeText struct {
	Text  string
	Shape spell.AreaShape
}

// FormatRange 按以下顺序拼装距离文本：
//   - 自身 + 有效范围：只显示「{范围} {单位}」
//   - 指定点 + 距离 + 范围：「{距离} {单位}, {范围} {单位}」
//   - 其他：起点名称或「{距离} {单位}」，再在设置了范围形状时追加「, {范围} {单位}」
func FormatRange(r spell.Range) RangeText {
	if r == nil {
		return RangeText{}
	}
	area := spell.AreaOf(r)
	if area != nil && area.Shape == "" {
		area = nil
	}

	if r.Origin() == spell.OriginSelf && area != nil && area.Size > 0 {
		return RangeText{Text: formatDistance(area.Size, area.Unit), Shape: area.Shape}
	}
	if p, ok := r.(spell.PointRange); ok && p.Distance > 0 && area != nil {
		return RangeText{
			Text:  formatDistance(p.Distance, p.Unit) + ", " + formatDistance(area.Size, area.Unit),
			Shape: area.Shape,
		}
	}

	var text string
	switch v := r.(type) {
	case spell.SelfRange:
		text = "Self"
	case spell.TouchRange:
		text = "Touch"
	case spell.SpecialRange:
		text = "Special"
	case spell.PointRange:
		switch {
		case v.Unit == spell.UnitUnlimited:
			text = "Unlimited"
		case v.Distance > 0:
			text = formatDistance(v.Distance, v.Unit)
		default:
			text = "Self"
		}
	default:
		text = "Self"
	}
	if area == nil {
		return RangeText{Text: text}
	}
	return RangeText{Text: text + ", " + formatDistance(area.Size, area.Unit), Shape: area.Shape}
}

func formatDistance(v float64, unit spell.DistanceUnit) string {
	if unit == "" {
		unit = spell.UnitFeet
	}
	return formatNumber(v) + " " + unit.Abbrev()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var durationAbbrev = map[spell.DurationUnit]string{
	spell.DurationRound:  "Round",
	spell.DurationMinute: "min",
	spell.DurationHour:   "h",
	spell.DurationDay:    "d",
}

// FormatDuration 返回持续时间文本；ok=false 表示不渲染持续时间节点（瞬时与特殊）。
// 永久持续时间只在含触发结束条件时显示「or Triggered」，否则文本为空但图标照常显示。
func FormatDuration(d spell.Duration) (text string, ok bool) {
	switch v := d.(type) {
	case spell.TimedDuration:
		return strconv.Itoa(v.Amount) + " " + durationAbbrev[v.Unit], true
	case spell.PermanentDuration:
		if spell.HasEnd(v.Ends, spell.EndTrigger) {
			return "or Triggered", true
		}
		return "", true
	default:
		return "", false
	}
}

var fastGlyphs = map[spell.TimeUnit]string{
	spell.TimeAction:   "A",
	spell.TimeBonus:    "B",
	spell.TimeReaction: "R",
}

// FormatCastingTime 三种快速单位返回单字母徽记（glyph=true），其余返回「{数量} {缩写}」。
func FormatCastingTime(ct spell.CastingTime) (text string, glyph bool) {
	if g, ok := fastGlyphs[ct.Unit]; ok {
		return g, true
	}
	switch ct.Unit {
	case spell.TimeMinute:
		return strconv.Itoa(ct.Amount) + " min", false
	case spell.TimeHour:
		return strconv.Itoa(ct.Amount) + " h", false
	case "":
		return "", false
	default:
		return strconv.Itoa(ct.Amount) + " " + string(ct.Unit), false
	}
}

// FormatLevel 返回等级徽章文字，戏法（0 级）使用独立符号。
func FormatLevel(level int) string {
	if level <= 0 {
		return "○"
	}
	return strconv.Itoa(level)
}

// SchoolLetters 把学派名拆成逐字排布的字符序列。
func SchoolLetters(s spell.School) []Letter {
	title := strings.ToUpper(s.Title())
	out := make([]Letter, 0, len(title))
	for i, r := range []rune(title) {
		out = append(out, Letter{Char: string(r), Index: i})
	}
	return out
}
