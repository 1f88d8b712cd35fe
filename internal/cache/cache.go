// Package cache implements the read-through store that sits in front of
// the resource repositories.  Entries are keyed by organization, resource
// kind and the normalized query string, so equivalent queries written in a
// different parameter order share one entry and invalidation can target
// everything one organization cached for one resource kind.
//
// The cache is strictly best-effort: a failing store behaves like a miss
// on reads and is ignored on writes, so the source of truth always
// answers.  Invalidation deletes the whole org+kind prefix -
// over-invalidation is acceptable, under-invalidation is not.
package cache

import (
	"context"
	"crypto/sha1"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Store is the minimal key-value surface the cache layer needs.  Both the
// Redis-backed store and the in-process fallback implement it.
type Store interface {
	// Get returns the cached payload and true on a hit.  Any store error
	// is reported as a miss.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set writes a payload with the given TTL, best-effort.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration)
	// DeletePrefix removes every key starting with prefix, best-effort.
	DeletePrefix(ctx context.Context, prefix string)
}

// Resource kind segments used in cache keys.  One constant per cached
// repository keeps invalidation calls and key builders in sync.
const (
	KindItemCategory    = "item-categories"
	KindItemSubCategory = "item-subcategories"
	KindItem            = "items"
	KindOrganization    = "organizations"
)

// KindPrefix is the shared prefix of every entry one organization holds
// for one resource kind; InvalidateKind deletes exactly this prefix.
func KindPrefix(prefix string, orgID uint64, kind string) string {
	return fmt.Sprintf("%s:org:%d:%s:", prefix, orgID, kind)
}

// ListKey addresses the "all" entry for a collection read.  The query
// parameters are normalized (sorted by key, values sorted within a key)
// and hashed, keeping the key length bounded while equivalent queries
// collide on purpose.
func ListKey(prefix string, orgID uint64, kind string, params url.Values) string {
	return KindPrefix(prefix, orgID, kind) + "all:" + hashQuery(params)
}

// SingleKey addresses the entry for a direct id lookup.  The normalized
// query tail is included so query-sensitive kinds keep distinct entries
// per query shape, mirroring the list keys.
func SingleKey(prefix string, orgID uint64, kind string, id uint64, params url.Values) string {
	return fmt.Sprintf("%sone:%d:%s", KindPrefix(prefix, orgID, kind), id, hashQuery(params))
}

// hashQuery renders params in a canonical order and returns a short
// SHA-1 digest of the result.
func hashQuery(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		vals := append([]string(nil), params[k]...)
		sort.Strings(vals)
		for _, v := range vals {
			b.WriteString(k)
			b.WriteString("=")
			b.WriteString(v)
			b.WriteString("&")
		}
	}
	sum := sha1.Sum([]byte(b.String()))
	return fmt.Sprintf("%x", sum[:])
}
