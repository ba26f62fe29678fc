package methods

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-pinyin"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxFileNameLength 文件名主体（不含扩展名）的最大长度
const MaxFileNameLength = 64

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// hanToPinyin 汉字转为不带声调的拼音，拼音之间用下划线分隔
func hanToPinyin(s string) string {
	a := pinyin.NewArgs()
	a.Style = pinyin.NORMAL
	var b strings.Builder
	for _, r := range s {
		if !unicode.Is(unicode.Han, r) {
			b.WriteRune(r)
			continue
		}
		py := pinyin.SinglePinyin(r, a)
		if len(py) == 0 {
			b.WriteRune('_')
			continue
		}
		b.WriteRune('_')
		b.WriteString(py[0])
		b.WriteRune('_')
	}
	return b.String()
}

// stripDiacritics 去掉重音符号，é -> e
func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

// ExportFileName 由地图名称生成安全的下载文件名
func ExportFileName(name string, ext string) string {
	base := stripDiacritics(hanToPinyin(strings.TrimSpace(name)))
	base = unsafeFileChars.ReplaceAllString(base, "_")
	base = strings.Trim(collapseUnderscore(base), "_.-")
	if len(base) > MaxFileNameLength {
		base = strings.TrimRight(base[:MaxFileNameLength], "_.-")
	}
	if base == "" {
		base = "map"
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return base + ext
}

func collapseUnderscore(s string) string {
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return s
}
