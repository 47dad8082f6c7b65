package cache

import (
	"strings"
	"testing"
)

func TestListKey_MatchesPattern(t *testing.T) {
	key := ListKey("users", "performers", 1, 10, "JohnDoe")
	want := "users:performers_p1_l10_sJohnDoe"
	if key != want {
		t.Fatalf("ListKey() = %q, want %q", key, want)
	}

	pattern := ListPattern("users", "performers")
	// 模式必须能覆盖所有分页变体
	prefix := strings.TrimSuffix(pattern, "*")
	if !strings.HasPrefix(key, prefix) {
		t.Fatalf("ListKey %q does not match ListPattern %q", key, pattern)
	}
	other := ListKey("users", "performers", 3, 50, "")
	if !strings.HasPrefix(other, prefix) {
		t.Fatalf("ListKey %q does not match ListPattern %q", other, pattern)
	}
}

func TestQueryKey_OrderIndependent(t *testing.T) {
	a := QueryKey("search_performers", map[string]string{"city": "Berlin", "category": "magician", "q": "fire"})
	b := QueryKey("search_performers", map[string]string{"q": "fire", "city": "Berlin", "category": "magician"})
	if a != b {
		t.Fatalf("QueryKey depends on param order: %q != %q", a, b)
	}
}

func TestQueryKey_DistinctParams(t *testing.T) {
	a := QueryKey("search_performers", map[string]string{"city": "Berlin"})
	b := QueryKey("search_performers", map[string]string{"city": "Munich"})
	if a == b {
		t.Fatalf("different params produced the same key %q", a)
	}
	c := QueryKey("search_performers", map[string]string{"q": "Berlin"})
	if a == c {
		t.Fatalf("different param names produced the same key %q", a)
	}
}

func TestQueryKey_ResourcePrefix(t *testing.T) {
	key := QueryKey("search_performers", map[string]string{"q": "fire"})
	if !strings.HasPrefix(key, "search_performers:") {
		t.Fatalf("QueryKey() = %q, want prefix %q", key, "search_performers:")
	}
}
