package methods

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

func Md5Str(data string) string {
	hash := md5.New()
	hash.Write([]byte(data))
	return hex.EncodeToString(hash.Sum(nil))
}

// CacheKey 拼接各部分后取 md5，用作渲染缓存键
func CacheKey(parts ...string) string {
	return Md5Str(strings.Join(parts, "|"))
}
