package renderer

import "github.com/ByLCY/grimoire/layout"

// Renderer 将布局结果输出为单个文件，例如 PDF。
// Render 返回生成的二进制数据以及可能的错误。
type Renderer interface {
	Render(result *layout.Result) ([]byte, error)
}

// PageRenderer 将每一页输出为独立、自包含的文件（例如 SVG），不依赖任何应用状态。
type PageRenderer interface {
	RenderPages(result *layout.Result) ([][]byte, error)
}
