package book

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ByLCY/grimoire/layout"
	"github.com/ByLCY/grimoire/renderer"
)

// Format 是输出格式。
type Format string

const (
	FormatPDF Format = "pdf"
	FormatSVG Format = "svg"
)

// ParseFormat 解析 pdf / svg。
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatPDF:
		return FormatPDF, nil
	case FormatSVG:
		return f, nil
	}
	return "", fmt.Errorf("未知输出格式 %q", s)
}

// Write 把排版结果写到 out。PDF 写为单个文件；SVG 每页一个文件，
// 文件名为 out 去掉扩展名后加上 -页码.svg。返回写出的文件路径。
func Write(result *layout.Result, r renderer.Renderer, format Format, out string) ([]string, error) {
	if result == nil {
		return nil, fmt.Errorf("没有可输出的页面")
	}
	if dir := filepath.Dir(out); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("创建输出目录失败: %w", err)
		}
	}

	switch format {
	case FormatSVG:
		pr, ok := r.(renderer.PageRenderer)
		if !ok {
			return nil, fmt.Errorf("渲染器不支持逐页输出")
		}
		pages, err := pr.RenderPages(result)
		if err != nil {
			return nil, fmt.Errorf("渲染 SVG 失败: %w", err)
		}
		base := strings.TrimSuffix(out, filepath.Ext(out))
		paths := make([]string, 0, len(pages))
		for i, data := range pages {
			path := fmt.Sprintf("%s-%d.svg", base, i+1)
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return nil, fmt.Errorf("写入 %s 失败: %w", path, err)
			}
			paths = append(paths, path)
		}
		return paths, nil
	default:
		data, err := r.Render(result)
		if err != nil {
			return nil, fmt.Errorf("渲染 PDF 失败: %w", err)
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return nil, fmt.Errorf("写入 %s 失败: %w", out, err)
		}
		return []string{out}, nil
	}
}
