package ImgHandler

import (
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	fontOnce    sync.Once
	defaultFont *truetype.Font
	fontErr     error
)

func loadFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		defaultFont, fontErr = truetype.Parse(goregular.TTF)
	})
	return defaultFont, fontErr
}

// newFace face 带字形缓存，不能跨协程共享，每个 surface 各自创建
func newFace(size float64) (font.Face, error) {
	f, err := loadFont()
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull}), nil
}
