package fonts

import (
	"fmt"
	"strings"

	"github.com/go-fonts/latin-modern/lmroman10bold"
	"github.com/go-fonts/latin-modern/lmroman10regular"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
)

// Family 是打印机支持的三种固定字体类别，不允许加载任意字体。
type Family string

const (
	Monospace Family = "monospace"
	SansSerif Family = "sans-serif"
	Serif     Family = "serif"
)

// Families lists the supported classes in a stable order.
var Families = []Family{Monospace, SansSerif, Serif}

type faceSet struct {
	regular []byte
	bold    []byte
}

var builtin = map[Family]faceSet{
	Monospace: {regular: gomono.TTF, bold: gomonobold.TTF},
	SansSerif: {regular: goregular.TTF, bold: gobold.TTF},
	Serif:     {regular: lmroman10regular.TTF, bold: lmroman10bold.TTF},
}

// ParseFamily 解析字体类别，接受 "sans"、"mono" 等常见别名。
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monospace", "mono", "courier":
		return Monospace, nil
	case "sans-serif", "sans", "sansserif", "":
		return SansSerif, nil
	case "serif", "roman", "times":
		return Serif, nil
	}
	return "", fmt.Errorf("unknown font family %q", s)
}

// Valid reports whether f is one of the three supported classes.
func (f Family) Valid() bool {
	_, ok := builtin[f]
	return ok
}

// Load 返回内置字体的字节数据；bold 选择同一类别的粗体字形。
func Load(family Family, bold bool) ([]byte, error) {
	set, ok := builtin[family]
	if !ok {
		return nil, fmt.Errorf("读取内置字体 %q 失败: 未知字体类别", family)
	}
	if bold {
		return set.bold, nil
	}
	return set.regular, nil
}
