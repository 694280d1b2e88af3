package util

import (
	"strings"

	"github.com/google/uuid"
)

// EnsureUUID 将任意用户标识转换为稳定的 UUID
//   - 合法 UUID 原样返回（小写）
//   - 纯数字 ID（最多 12 位）映射为 00000000-0000-4000-a000-<补零数字>
//   - 其他字符串使用 DNS 命名空间生成 UUIDv5
func EnsureUUID(raw string) uuid.UUID {
	s := strings.TrimSpace(raw)
	if s == "" {
		return uuid.Nil
	}

	if id, err := uuid.Parse(s); err == nil {
		return id
	}

	if isDigits(s) && len(s) <= 12 {
		return uuid.MustParse("00000000-0000-4000-a000-" + strings.Repeat("0", 12-len(s)) + s)
	}

	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(s))
}

// CanonicalUserID EnsureUUID 的字符串形式
func CanonicalUserID(raw string) string {
	return EnsureUUID(raw).String()
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
