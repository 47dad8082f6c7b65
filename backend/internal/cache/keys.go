package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// 键语义：
// - EntityKey(resource,id):          单条记录键（String JSON）
// - ListKey(resource,list,p,l,s):    分页聚合键，可读格式，便于按前缀做模式失效
// - ListPattern(resource,list):      失效分页聚合键用的通配键
// - QueryKey(resource,params):       任意查询参数的确定性哈希键
//
// 约定统一为 "{resource}:{identifier}"，例如：
//   users:performers_p1_l10_sJohnDoe
//   search_performers:9a0364b9e99bb480dd25e1f0284c8555

const (
	keyEntityFmt      = "%s:%s"
	keyListFmt        = "%s:%s_p%d_l%d_s%s"
	keyListPatternFmt = "%s:%s_p*"
)

func EntityKey(resource, id string) string { return fmt.Sprintf(keyEntityFmt, resource, id) }

func ListKey(resource, list string, page, limit int, search string) string {
	return fmt.Sprintf(keyListFmt, resource, list, page, limit, search)
}

func ListPattern(resource, list string) string {
	return fmt.Sprintf(keyListPatternFmt, resource, list)
}

// QueryKey 把查询参数归一化为确定性的缓存键：
// 参数名排序后拼成 canonical 字符串再做 md5，
// 这样键序不同但逻辑等价的查询会命中同一条缓存。
func QueryKey(resource string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(params[name])
	}
	sum := md5.Sum([]byte(b.String()))
	return fmt.Sprintf(keyEntityFmt, resource, hex.EncodeToString(sum[:]))
}
