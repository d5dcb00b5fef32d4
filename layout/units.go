package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// 布局内部长度统一使用毫米，字号档位以 pt 配置。

// Unit 是长度的书写单位。
type Unit int

const (
	UnitNone Unit = iota
	UnitMM
	UnitPT
	UnitIN
)

// pt 与 mm 的换算常数。
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

// Length 保留数值与其原始单位。
type Length struct {
	Value float64
	Unit  Unit
}

// To 换算到 mm 或 pt；无单位的值原样返回。
func (l Length) To(target Unit) float64 {
	var mm float64
	switch l.Unit {
	case UnitMM:
		mm = l.Value
	case UnitIN:
		mm = l.Value * 25.4
	case UnitPT:
		if target == UnitPT {
			return l.Value
		}
		mm = l.Value * PtToMm
	default:
		return l.Value
	}
	if target == UnitPT {
		return mm * MmToPt
	}
	return mm
}

// ParseLength 解析 "7.5pt"、"3mm"、"0.1in" 这类长度；没有后缀时使用 fallback 单位。
func ParseLength(value string, fallback Unit) (Length, error) {
	s := strings.ToLower(strings.TrimSpace(value))
	unit := fallback
	for _, suf := range []struct {
		s string
		u Unit
	}{{"mm", UnitMM}, {"pt", UnitPT}, {"in", UnitIN}} {
		if strings.HasSuffix(s, suf.s) {
			unit = suf.u
			s = strings.TrimSpace(strings.TrimSuffix(s, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return Length{}, fmt.Errorf("无法解析长度 %q", value)
	}
	return Length{Value: f, Unit: unit}, nil
}

// ParseBodySizes 把字号档位列表解析为 pt，并要求严格递减。
func ParseBodySizes(values []string) ([]float64, error) {
	sizes := make([]float64, 0, len(values))
	for i, v := range values {
		l, err := ParseLength(v, UnitPT)
		if err != nil {
			return nil, err
		}
		pt := l.To(UnitPT)
		if pt <= 0 {
			return nil, fmt.Errorf("字号必须为正数: %q", v)
		}
		if i > 0 && pt >= sizes[i-1] {
			return nil, fmt.Errorf("字号档位必须逐级缩小: %q", v)
		}
		sizes = append(sizes, pt)
	}
	return sizes, nil
}
