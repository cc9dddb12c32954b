package util

import (
	"Warbler/internal/pkg/consts"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var usernameStripRegex = regexp.MustCompile(`[^a-z0-9_]`)

// NormalizePage page < 1 取 1，limit < 1 取默认值，并限制最大值
func NormalizePage(page, limit, maxLimit int) (int, int) {
	if page < 1 {
		page = consts.DefaultPage
	}
	if limit < 1 {
		limit = consts.DefaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

// TotalPages 向上取整
func TotalPages(total int64, limit int) int64 {
	if limit <= 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}

// ParseObjectID 解析十六进制 id，大小写不敏感
func ParseObjectID(hex string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(strings.ToLower(strings.TrimSpace(hex)))
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

// HexIDs 转为十六进制字符串
func HexIDs(ids []primitive.ObjectID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Hex())
	}
	return out
}

// UsernameBase 由邮箱前缀生成用户名基础部分，不足最小长度时补 "user"
func UsernameBase(email string) string {
	local := strings.ToLower(email)
	if i := strings.IndexByte(local, '@'); i >= 0 {
		local = local[:i]
	}
	local = usernameStripRegex.ReplaceAllString(local, "")
	if utf8.RuneCountInString(local) > consts.GeneratedPrefix {
		local = string([]rune(local)[:consts.GeneratedPrefix])
	}
	if len(local) < consts.UsernameMinLen {
		local = "user" + local
	}
	return local
}

// UsernameCandidate 第 n 次尝试的候选用户名，n 为 0 时不带后缀
func UsernameCandidate(base string, n int) string {
	if n == 0 {
		return base
	}
	return base + strconv.Itoa(n)
}
