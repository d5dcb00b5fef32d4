package layout

import "github.com/ByLCY/grimoire/card"

// Measurer 在离屏画布上排出正文并与可用高度比较，供溢出处理使用。
type Measurer struct {
	composer *Composer
}

// NewMeasurer 使用 composer 的字体与排版后端测量正文。
func NewMeasurer(composer *Composer) *Measurer {
	return &Measurer{composer: composer}
}

// BodyHeight 返回正文在当前字号档位下需要的高度与可用高度（mm）。
func (m *Measurer) BodyHeight(face *card.Face) (needed, available float64, err error) {
	_, available = BodyRegion(face.Side)
	needed, err = m.composer.composeBody(&canvas{}, face, m.composer.palette(face), 0, 0, card.Width-2*contentInset)
	return needed, available, err
}

// Overflows 实现 overflow.Measurer。
func (m *Measurer) Overflows(face *card.Face) (bool, error) {
	needed, available, err := m.BodyHeight(face)
	if err != nil {
		return false, err
	}
	return needed > available+1e-6, nil
}
