package fonts

import (
	"fmt"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

var builtin = map[string][]byte{
	"regular":    goregular.TTF,
	"bold":       gobold.TTF,
	"italic":     goitalic.TTF,
	"bolditalic": gobolditalic.TTF,
}

// Load 返回内置字体的字节数据，path 可写为 "embed:bold" 或直接 "bold"。
func Load(path string) ([]byte, error) {
	name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(path, "embed:")))
	data, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("读取内置字体 %s 失败: 未知字体", name)
	}
	return data, nil
}
