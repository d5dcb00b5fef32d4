package theme

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// 颜色令牌以 CSS 变量形式书写（var(--name) 或 var(--name, fallback)），Resolve 负责展开。
var varPattern = regexp.MustCompile(`var\(\s*(--[A-Za-z0-9_-]+)\s*(?:,\s*([^()]*(?:\([^()]*\))?[^()]*))?\)`)

// 变量互相引用时的最大展开深度，防止循环引用导致死循环。
const maxDepth = 8

// Theme 保存颜色变量表。零值不可用，请使用 Default 或 New。
type Theme struct {
	vars map[string]string
}

// 默认色板：学派色、正文色、卡片底色、弱化色。
var defaults = map[string]string{
	"--card-base":            "#ffffff",
	"--text":                 "#1e1e1e",
	"--muted":                "#b4b4b4",
	"--rule":                 "var(--muted)",
	"--school-abjuration":    "#2f6fb0",
	"--school-conjuration":   "#c18a1d",
	"--school-divination":    "#6c8ea8",
	"--school-enchantment":   "#c2457a",
	"--school-evocation":     "#c63b2b",
	"--school-illusion":      "#7a4fb0",
	"--school-necromancy":    "#3d6b3a",
	"--school-transmutation": "#8a5a2b",
}

// Default 返回默认主题。
func Default() *Theme {
	return New(nil)
}

// New 以默认色板为底，叠加 overrides（键可带或不带 "--" 前缀）。
func New(overrides map[string]string) *Theme {
	t := &Theme{vars: make(map[string]string, len(defaults)+len(overrides))}
	for k, v := range defaults {
		t.vars[k] = v
	}
	for k, v := range overrides {
		if !strings.HasPrefix(k, "--") {
			k = "--" + k
		}
		t.vars[k] = v
	}
	return t
}

// Resolve 将 value 中的 var(--x) 递归替换为变量值；未定义且无回退的变量保持原样。
func (t *Theme) Resolve(value string) string {
	for depth := 0; depth < maxDepth; depth++ {
		if !strings.Contains(value, "var(") {
			return value
		}
		next := varPattern.ReplaceAllStringFunc(value, func(match string) string {
			groups := varPattern.FindStringSubmatch(match)
			if len(groups) < 2 {
				return match
			}
			if v, ok := t.vars[groups[1]]; ok {
				return v
			}
			if len(groups) > 2 && strings.TrimSpace(groups[2]) != "" {
				return strings.TrimSpace(groups[2])
			}
			return match
		})
		if next == value {
			return value
		}
		value = next
	}
	return value
}

// Token 解析令牌名（不带前缀）对应的规范颜色。
func (t *Theme) Token(name string) (string, error) {
	return Normalize(t.Resolve("var(--" + strings.TrimPrefix(name, "--") + ")"))
}

// MustToken 与 Token 相同，但解析失败时返回中性正文色。
func (t *Theme) MustToken(name string) string {
	c, err := t.Token(name)
	if err != nil {
		return "1e1e1e"
	}
	return c
}

// Normalize 把颜色规范化为 6 位小写十六进制（不带 #）或 "transparent"，
// 使视觉上相同的颜色共享同一缓存键，并与预生成资源文件名一致。
func Normalize(value string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "":
		return "", fmt.Errorf("颜色值为空")
	case "transparent", "none":
		return "transparent", nil
	case "white":
		return "ffffff", nil
	case "black":
		return "000000", nil
	}
	if strings.HasPrefix(v, "var(") {
		return "", fmt.Errorf("颜色变量 %s 未解析", value)
	}
	if strings.HasPrefix(v, "rgb") {
		return normalizeRGB(v)
	}
	hex := strings.TrimPrefix(v, "#")
	if !isHex(hex) {
		return "", fmt.Errorf("颜色值 %s 无法解析", value)
	}
	switch len(hex) {
	case 3:
		return string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]}), nil
	case 4:
		if hex[3] == '0' {
			return "transparent", nil
		}
		return string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]}), nil
	case 6:
		return hex, nil
	case 8:
		if hex[6:] == "00" {
			return "transparent", nil
		}
		return hex[:6], nil
	default:
		return "", fmt.Errorf("颜色值 %s 无法解析", value)
	}
}

func normalizeRGB(v string) (string, error) {
	open := strings.IndexByte(v, '(')
	end := strings.LastIndexByte(v, ')')
	if open < 0 || end < open {
		return "", fmt.Errorf("颜色值 %s 无法解析", v)
	}
	parts := strings.FieldsFunc(v[open+1:end], func(r rune) bool { return r == ',' || r == ' ' || r == '/' })
	if len(parts) < 3 {
		return "", fmt.Errorf("颜色值 %s 无法解析", v)
	}
	if len(parts) >= 4 {
		a, err := strconv.ParseFloat(strings.TrimSuffix(parts[3], "%"), 64)
		if err == nil && a == 0 {
			return "transparent", nil
		}
	}
	var b strings.Builder
	for _, p := range parts[:3] {
		n, err := strconv.ParseFloat(p, 64)
		if err != nil || n < 0 || n > 255 {
			return "", fmt.Errorf("颜色值 %s 无法解析", v)
		}
		fmt.Fprintf(&b, "%02x", int(n+0.5))
	}
	return b.String(), nil
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}

// RGB 把规范颜色拆成 0-255 分量；transparent 返回 ok=false。
func RGB(normalized string) (r, g, b int, ok bool) {
	if len(normalized) != 6 || !isHex(normalized) {
		return 0, 0, 0, false
	}
	parse := func(s string) int {
		n, _ := strconv.ParseUint(s, 16, 8)
		return int(n)
	}
	return parse(normalized[0:2]), parse(normalized[2:4]), parse(normalized[4:6]), true
}
