package methods

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExportFileName(t *testing.T) {
	cases := map[string]string{
		"Harbor Town":             "Harbor_Town.png",
		"Café du Monde":           "Cafe_du_Monde.png",
		"龙城":                      "long_cheng.png",
		"../../etc/passwd":        "etc_passwd.png",
		"":                        "map.png",
		"???":                     "map.png",
		"Old-Town_v2.final":       "Old-Town_v2.final.png",
		"Temple Quarter (Night)!": "Temple_Quarter_Night.png",
	}
	for in, expected := range cases {
		assert.Equal(t, expected, ExportFileName(in, ".png"), in)
	}
}

func TestExportFileNameLengthCap(t *testing.T) {
	name := ExportFileName(strings.Repeat("a", 200), "png")
	assert.Equal(t, strings.Repeat("a", MaxFileNameLength)+".png", name)
}

func TestMd5Str(t *testing.T) {
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", Md5Str("hello"))
}
