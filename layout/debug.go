package layout

import (
	"encoding/json"
	"fmt"
	"os"
)

// WriteDebugJSON 将布局结果（或槽位分配等任意调试结构）输出为 JSON，便于调试或可视化。
func WriteDebugJSON(v any, path string) error {
	if v == nil {
		return nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化调试 JSON 失败: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
