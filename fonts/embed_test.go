package fonts

import "testing"

func TestLoadBuiltin(t *testing.T) {
	for _, name := range []string{"embed:regular", "bold", "embed:Italic", "bolditalic"} {
		data, err := Load(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(data) == 0 {
			t.Fatalf("%s: 字体数据为空", name)
		}
	}
	if _, err := Load("embed:Inter/static/Inter-Regular.ttf"); err == nil {
		t.Fatalf("未知字体应返回错误")
	}
}
