package icon

//go:generate mockgen -source=icon.go -destination=mock/mock_loader.go -package=mockicon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ByLCY/grimoire/theme"
)

// Key 唯一标识一份预生成的图标资源：图标名 + 前景色 + 背景色（均为规范化颜色）。
type Key struct {
	Name string `json:"name"`
	FG   string `json:"fg"`
	BG   string `json:"bg"`
}

// NewKey 规范化颜色后构造 Key，保证视觉上相同的颜色落到同一个缓存项。
func NewKey(name, fg, bg string) (Key, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Key{}, fmt.Errorf("图标名为空")
	}
	nfg, err := theme.Normalize(fg)
	if err != nil {
		return Key{}, fmt.Errorf("图标 %s 前景色: %w", name, err)
	}
	nbg, err := theme.Normalize(bg)
	if err != nil {
		return Key{}, fmt.Errorf("图标 %s 背景色: %w", name, err)
	}
	return Key{Name: name, FG: nfg, BG: nbg}, nil
}

func (k Key) String() string {
	return k.Name + "_" + k.FG + "_" + k.BG
}

// FileName 返回预生成资源的文件名，例如 area-cone_c63b2b_ffffff.png。
func (k Key) FileName() string {
	return k.String() + ".png"
}

// Image 是已解析的图标资源引用。Path 为空表示仅用于记录（不可绘制）。
type Image struct {
	Key    Key    `json:"key"`
	Path   string `json:"path,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Loader 是图标资源边界：每个实际用到的 (name, fg, bg) 组合都必须预先生成。
type Loader interface {
	Load(ctx context.Context, key Key) (Image, error)
}

// AssetMissingError 表示请求的图标组合没有预生成。渲染调用必须向上传递该错误，不能静默跳过。
type AssetMissingError struct {
	Key Key
}

func (e *AssetMissingError) Error() string {
	return fmt.Sprintf("缺少图标资源 %s (fg=%s bg=%s)", e.Key.Name, e.Key.FG, e.Key.BG)
}

// DirLoader 从目录中读取预生成的 PNG 文件。
type DirLoader struct {
	dir string
}

// NewDirLoader 创建目录加载器；dir 会被转换为绝对路径以便渲染器直接使用。
func NewDirLoader(dir string) (*DirLoader, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("解析图标目录 %s 失败: %w", dir, err)
	}
	return &DirLoader{dir: abs}, nil
}

// Load 实现 Loader。
func (l *DirLoader) Load(ctx context.Context, key Key) (Image, error) {
	if err := ctx.Err(); err != nil {
		return Image{}, err
	}
	path := filepath.Join(l.dir, key.FileName())
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Image{}, &AssetMissingError{Key: key}
		}
		return Image{}, fmt.Errorf("读取图标 %s 失败: %w", path, err)
	}
	if info.IsDir() {
		return Image{}, &AssetMissingError{Key: key}
	}
	return Image{Key: key, Path: path, Width: generatedSize, Height: generatedSize}, nil
}

// Recorder 记录所有被请求的 Key 并返回不可绘制的占位引用，
// 用于离线计算一副牌实际需要哪些图标组合。
type Recorder struct {
	mu    sync.Mutex
	seen  map[Key]struct{}
	order []Key
}

func NewRecorder() *Recorder {
	return &Recorder{seen: map[Key]struct{}{}}
}

func (r *Recorder) Load(_ context.Context, key Key) (Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[key]; !ok {
		r.seen[key] = struct{}{}
		r.order = append(r.order, key)
	}
	return Image{Key: key}, nil
}

// Keys 按首次请求顺序返回记录到的 Key。
func (r *Recorder) Keys() []Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Key(nil), r.order...)
}
