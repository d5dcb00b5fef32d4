package markup

import (
	"sort"
	"strings"
)

// 已知占位符（小写）→ 图标资源名。未登记的占位符按纯文本渲染（去掉反引号）。
var placeholders = map[string]string{
	"action":         "time-action",
	"bonus action":   "time-bonus",
	"reaction":       "time-reaction",
	"concentration":  "concentration",
	"ritual":         "ritual",
	"verbal":         "component-verbal",
	"somatic":        "component-somatic",
	"material":       "component-material",
	"cone":           "area-cone",
	"cube":           "area-cube",
	"cylinder":       "area-cylinder",
	"emanation":      "area-emanation",
	"line":           "area-line",
	"sphere":         "area-sphere",
	"heal":           "heal",
	"temp hp":        "temp-hp",
	"saving throw":   "saving-throw",
	"attack roll":    "attack-roll",
	"advantage":      "advantage",
	"disadvantage":   "disadvantage",
}

var damageTypes = []string{
	"acid", "bludgeoning", "cold", "fire", "force", "lightning", "necrotic",
	"piercing", "poison", "psychic", "radiant", "slashing", "thunder",
}

func init() {
	for _, d := range damageTypes {
		placeholders[d+" damage"] = "damage-" + d
		placeholders[d] = "damage-" + d
	}
}

// LookupPlaceholder 按大小写不敏感方式查找占位符对应的图标。
func LookupPlaceholder(name string) (string, bool) {
	icon, ok := placeholders[strings.ToLower(strings.TrimSpace(name))]
	return icon, ok
}

// PlaceholderEntry 是图例卡使用的一条占位符说明。
type PlaceholderEntry struct {
	Label string
	Icon  string
}

// Legend 返回按图标去重、按标签排序的占位符列表。同一图标有多个别名时取最长的别名作标签。
func Legend() []PlaceholderEntry {
	byIcon := map[string]string{}
	for label, icon := range placeholders {
		if cur, ok := byIcon[icon]; !ok || len(label) > len(cur) || (len(label) == len(cur) && label < cur) {
			byIcon[icon] = label
		}
	}
	out := make([]PlaceholderEntry, 0, len(byIcon))
	for icon, label := range byIcon {
		out = append(out, PlaceholderEntry{Label: label, Icon: icon})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}
