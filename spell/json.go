package spell

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// 以下 wire* 结构对应规范 JSON 模式；Record 与之互转时完成校验与标记联合的构造。

type wireRecord struct {
	Name          string          `json:"name"`
	Subtitle      string          `json:"subtitle,omitempty"`
	Source        string          `json:"source"`
	Page          int             `json:"page"`
	Reference     json.RawMessage `json:"reference,omitempty"`
	Level         int             `json:"level"`
	School        string          `json:"school"`
	Time          wireTime        `json:"time"`
	Range         wireRange       `json:"range"`
	Duration      wireDuration    `json:"duration"`
	Components    wireComponents  `json:"components"`
	Description   string          `json:"description"`
	HigherLevels  string          `json:"higherLevels,omitempty"`
	Classes       []string        `json:"classes"`
	Concentration bool            `json:"concentration"`
	Ritual        bool            `json:"ritual"`
}

type wireTime struct {
	Amount    int    `json:"amount"`
	Unit      string `json:"unit"`
	Condition string `json:"condition,omitempty"`
}

type wireRange struct {
	Origin         string  `json:"origin"`
	Distance       float64 `json:"distance,omitempty"`
	Unit           string  `json:"unit,omitempty"`
	Area           string  `json:"area,omitempty"`
	AreaDistance   float64 `json:"areaDistance,omitempty"`
	AreaUnit       string  `json:"areaUnit,omitempty"`
	AreaHeight     float64 `json:"areaHeight,omitempty"`
	AreaHeightUnit string  `json:"areaHeightUnit,omitempty"`
	Targets        int     `json:"targets,omitempty"`
	TargetsScale   bool    `json:"targetsScale,omitempty"`
	RequiresSight  bool    `json:"requiresSight,omitempty"`
}

type wireDuration struct {
	Type   string   `json:"type"`
	Amount int      `json:"amount,omitempty"`
	Unit   string   `json:"unit,omitempty"`
	Ends   []string `json:"ends,omitempty"`
}

type wireComponents struct {
	Verbal      bool   `json:"v"`
	Somatic     bool   `json:"s"`
	Material    bool   `json:"m"`
	Cost        bool   `json:"cost,omitempty"`
	Consumed    bool   `json:"consumed,omitempty"`
	Description string `json:"description,omitempty"`
}

// MarshalJSON 输出规范模式（不含 id/modified 等内部字段）。
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(toWire(r))
}

// UnmarshalJSON 解析并校验规范模式。
func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	rec, err := fromWire(w)
	if err != nil {
		return err
	}
	*r = rec
	return nil
}

// MarshalJSON 按原始形态输出：仅启用时为 true，带别名时为字符串。
func (f ReferenceFlag) MarshalJSON() ([]byte, error) {
	if f.Enabled && f.Alias != "" {
		return json.Marshal(f.Alias)
	}
	return json.Marshal(f.Enabled)
}

// UnmarshalJSON 接受 bool 或字符串；空字符串视为未启用。
func (f *ReferenceFlag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ReferenceFlag{}
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = ReferenceFlag{Enabled: b}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("reference 只能是布尔值或字符串")
	}
	*f = ReferenceFlag{Enabled: s != "", Alias: s}
	return nil
}

// DecodeList 解析规范数据源中的记录数组。
func DecodeList(r io.Reader) ([]Record, error) {
	var out []Record
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("解析法术列表失败: %w", err)
	}
	return out, nil
}

// DecodeOneOrMany 解析单个对象或对象数组（用户导入文件两种形态都允许）。
func DecodeOneOrMany(data []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("内容为空")
	}
	switch trimmed[0] {
	case '[':
		var out []Record
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, err
		}
		return out, nil
	case '{':
		var rec Record
		if err := json.Unmarshal(trimmed, &rec); err != nil {
			return nil, err
		}
		return []Record{rec}, nil
	default:
		return nil, fmt.Errorf("期望 JSON 对象或数组")
	}
}

// EncodeList 以缩进格式写出记录数组。
func EncodeList(w io.Writer, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// Equal 以规范编码比较两条记录。
func Equal(a, b Record) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

func fromWire(w wireRecord) (Record, error) {
	rec := Record{
		Name:          strings.TrimSpace(w.Name),
		Subtitle:      w.Subtitle,
		Source:        w.Source,
		Page:          w.Page,
		Level:         w.Level,
		School:        School(strings.ToLower(w.School)),
		Description:   w.Description,
		HigherLevels:  w.HigherLevels,
		Classes:       w.Classes,
		Concentration: w.Concentration,
		Ritual:        w.Ritual,
		Components: Components{
			Verbal:      w.Components.Verbal,
			Somatic:     w.Components.Somatic,
			Material:    w.Components.Material,
			Cost:        w.Components.Cost,
			Consumed:    w.Components.Consumed,
			Description: w.Components.Description,
		},
	}
	if rec.Name == "" {
		return Record{}, fmt.Errorf("name 不能为空")
	}
	if len(w.Reference) > 0 {
		if err := rec.Reference.UnmarshalJSON(w.Reference); err != nil {
			return Record{}, fmt.Errorf("%s: %w", rec.Name, err)
		}
	}
	if rec.Level < 0 || rec.Level > 9 {
		return Record{}, fmt.Errorf("%s: level 超出范围: %d", rec.Name, rec.Level)
	}
	if !rec.School.Valid() {
		return Record{}, fmt.Errorf("%s: 未知学派 %q", rec.Name, w.School)
	}

	unit := TimeUnit(strings.ToLower(w.Time.Unit))
	if !unit.valid() {
		return Record{}, fmt.Errorf("%s: time.unit 无效 %q", rec.Name, w.Time.Unit)
	}
	rec.CastingTime = CastingTime{Amount: w.Time.Amount, Unit: unit, Condition: w.Time.Condition}
	if rec.CastingTime.Amount <= 0 {
		rec.CastingTime.Amount = 1
	}

	rng, err := rangeFromWire(w.Range)
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", rec.Name, err)
	}
	rec.Range = rng

	dur, err := durationFromWire(w.Duration)
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", rec.Name, err)
	}
	rec.Duration = dur
	return rec, nil
}

func rangeFromWire(w wireRange) (Range, error) {
	ext := Extent{}
	if w.Area != "" {
		shape := AreaShape(strings.ToLower(w.Area))
		if !shape.valid() {
			return nil, fmt.Errorf("range.area 无效 %q", w.Area)
		}
		ext.Area = &Area{
			Shape:      shape,
			Size:       w.AreaDistance,
			Unit:       DistanceUnit(w.AreaUnit),
			Height:     w.AreaHeight,
			HeightUnit: DistanceUnit(w.AreaHeightUnit),
		}
	}
	if w.Targets > 0 || w.TargetsScale || w.RequiresSight {
		ext.Targets = &Targets{Count: w.Targets, ScalesByLevel: w.TargetsScale, RequiresSight: w.RequiresSight}
	}
	switch Origin(strings.ToLower(w.Origin)) {
	case OriginSelf:
		return SelfRange{ext}, nil
	case OriginTouch:
		return TouchRange{ext}, nil
	case OriginPoint:
		return PointRange{Distance: w.Distance, Unit: DistanceUnit(w.Unit), Extent: ext}, nil
	case OriginSpecial:
		return SpecialRange{ext}, nil
	default:
		return nil, fmt.Errorf("range.origin 无效 %q", w.Origin)
	}
}

func durationFromWire(w wireDuration) (Duration, error) {
	ends := make([]EndCondition, 0, len(w.Ends))
	for _, e := range w.Ends {
		ends = append(ends, EndCondition(strings.ToLower(e)))
	}
	if len(ends) == 0 {
		ends = nil
	}
	switch DurationKind(strings.ToLower(w.Type)) {
	case DurationInstant:
		return InstantDuration{}, nil
	case DurationTimed:
		unit := DurationUnit(strings.ToLower(w.Unit))
		if !unit.valid() {
			return nil, fmt.Errorf("duration.unit 无效 %q", w.Unit)
		}
		return TimedDuration{Amount: w.Amount, Unit: unit, Ends: ends}, nil
	case DurationPermanent:
		return PermanentDuration{Ends: ends}, nil
	case DurationSpecial:
		return SpecialDuration{}, nil
	default:
		return nil, fmt.Errorf("duration.type 无效 %q", w.Type)
	}
}

func toWire(r Record) wireRecord {
	w := wireRecord{
		Name:          r.Name,
		Subtitle:      r.Subtitle,
		Source:        r.Source,
		Page:          r.Page,
		Level:         r.Level,
		School:        string(r.School),
		Time:          wireTime{Amount: r.CastingTime.Amount, Unit: string(r.CastingTime.Unit), Condition: r.CastingTime.Condition},
		Description:   r.Description,
		HigherLevels:  r.HigherLevels,
		Classes:       r.Classes,
		Concentration: r.Concentration,
		Ritual:        r.Ritual,
		Components: wireComponents{
			Verbal:      r.Components.Verbal,
			Somatic:     r.Components.Somatic,
			Material:    r.Components.Material,
			Cost:        r.Components.Cost,
			Consumed:    r.Components.Consumed,
			Description: r.Components.Description,
		},
	}
	if w.Classes == nil {
		w.Classes = []string{}
	}
	if r.Reference.Enabled {
		w.Reference, _ = r.Reference.MarshalJSON()
	}

	if r.Range != nil {
		w.Range.Origin = string(r.Range.Origin())
		if p, ok := r.Range.(PointRange); ok {
			w.Range.Distance = p.Distance
			w.Range.Unit = string(p.Unit)
		}
		if a := AreaOf(r.Range); a != nil {
			w.Range.Area = string(a.Shape)
			w.Range.AreaDistance = a.Size
			w.Range.AreaUnit = string(a.Unit)
			w.Range.AreaHeight = a.Height
			w.Range.AreaHeightUnit = string(a.HeightUnit)
		}
		if t := TargetsOf(r.Range); t != nil {
			w.Range.Targets = t.Count
			w.Range.TargetsScale = t.ScalesByLevel
			w.Range.RequiresSight = t.RequiresSight
		}
	}

	switch d := r.Duration.(type) {
	case TimedDuration:
		w.Duration = wireDuration{Type: string(DurationTimed), Amount: d.Amount, Unit: string(d.Unit), Ends: endsToWire(d.Ends)}
	case PermanentDuration:
		w.Duration = wireDuration{Type: string(DurationPermanent), Ends: endsToWire(d.Ends)}
	case SpecialDuration:
		w.Duration = wireDuration{Type: string(DurationSpecial)}
	default:
		w.Duration = wireDuration{Type: string(DurationInstant)}
	}
	return w
}

func endsToWire(ends []EndCondition) []string {
	if len(ends) == 0 {
		return nil
	}
	out := make([]string, len(ends))
	for i, e := range ends {
		out[i] = string(e)
	}
	return out
}
