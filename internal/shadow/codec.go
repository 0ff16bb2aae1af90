package shadow

import (
	"encoding/base64"
	"fmt"
	"math"
	"reflect"
	"slices"
	"sort"
	"strconv"
	"time"
)

// DefaultChunkSize is the number of raw bytes stored per certificate chunk.
const DefaultChunkSize = 1024

// EncodeList encodes an ordered list as an index-keyed map:
// ["a","b"] → {"0":"a","1":"b"}. A nil list encodes to nil.
func EncodeList[T any](items []T) Properties {
	if items == nil {
		return nil
	}
	out := make(Properties, len(items))
	for i, item := range items {
		out[strconv.Itoa(i)] = item
	}
	return out
}

// DecodeList returns the values of an index-keyed map in index order.
// Non-numeric keys are ignored. A plain []any is accepted as-is. The second
// result is false when v holds no list at all.
func DecodeList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	}
	m, ok := AsProperties(v)
	if !ok {
		return nil, false
	}
	type entry struct {
		idx int
		val any
	}
	entries := make([]entry, 0, len(m))
	for k, val := range m {
		idx, err := strconv.Atoi(k)
		if err != nil || val == nil {
			continue
		}
		entries = append(entries, entry{idx, val})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].idx < entries[j].idx })
	out := make([]any, len(entries))
	for i, e := range entries {
		out[i] = e.val
	}
	return out, true
}

// DecodeStrings decodes an index-keyed list of strings. Non-string entries
// are skipped.
func DecodeStrings(v any) ([]string, bool) {
	items, ok := DecodeList(v)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, isStr := item.(string); isStr {
			out = append(out, s)
		}
	}
	return out, true
}

// EncodeSet encodes a set of strings as a key-presence map:
// {"DA","HD"} → {"DA":true,"HD":true}. A nil set encodes to nil.
func EncodeSet(items []string) Properties {
	if items == nil {
		return nil
	}
	out := make(Properties, len(items))
	for _, item := range items {
		out[item] = true
	}
	return out
}

// DecodeSet returns the members of a key-presence map in sorted order.
// Keys mapped to false or nil are not members. Agents report sets as
// arrays, which arrive index-keyed; a map whose keys are all indices and
// whose values are all strings is read by value.
func DecodeSet(v any) ([]string, bool) {
	if items, ok := v.([]any); ok {
		return sortedMembers(items), true
	}
	m, ok := AsProperties(v)
	if !ok {
		return nil, false
	}
	if isStringList(m) {
		items, _ := DecodeList(m)
		return sortedMembers(items), true
	}
	out := make([]string, 0, len(m))
	for k, val := range m {
		if b, isBool := val.(bool); isBool && !b {
			continue
		}
		if val == nil {
			continue
		}
		out = append(out, k)
	}
	slices.Sort(out)
	return out, true
}

func sortedMembers(items []any) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, isStr := item.(string); isStr {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// isStringList reports whether m is a non-empty index-keyed list of
// strings. Key-presence sets hold bools, so the two never overlap.
func isStringList(m Properties) bool {
	if len(m) == 0 {
		return false
	}
	for k, v := range m {
		if _, err := strconv.Atoi(k); err != nil {
			return false
		}
		if _, isStr := v.(string); !isStr {
			return false
		}
	}
	return true
}

// EncodeChunks encodes binary data as an index-keyed list of base64 chunks
// of at most chunkSize raw bytes. A nil slice encodes to nil.
func EncodeChunks(data []byte, chunkSize int) Properties {
	if data == nil {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	chunks := make([]string, 0, len(data)/chunkSize+1)
	for start := 0; start < len(data); start += chunkSize {
		end := min(start+chunkSize, len(data))
		chunks = append(chunks, base64.StdEncoding.EncodeToString(data[start:end]))
	}
	return EncodeList(chunks)
}

// DecodeChunks reassembles data written by EncodeChunks. A single base64
// string is also accepted.
func DecodeChunks(v any) ([]byte, error) {
	if s, ok := v.(string); ok {
		data, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
		}
		return data, nil
	}
	parts, ok := DecodeStrings(v)
	if !ok {
		return nil, nil
	}
	out := []byte{}
	for i, part := range parts {
		chunk, err := base64.StdEncoding.DecodeString(part)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %d: %w", ErrEncoding, i, err)
		}
		out = append(out, chunk...)
	}
	return out, nil
}

// WithDeletions returns next prepared as a merge patch over prev: wherever
// prev holds a map key that next lacks, the result carries nil so applying
// it removes the stale key. Non-map values are returned unchanged.
func WithDeletions(prev, next any) any {
	nextMap, ok := AsProperties(next)
	if !ok {
		return next
	}
	prevMap, _ := AsProperties(prev)
	out := make(Properties, len(nextMap)+len(prevMap))
	for k, v := range nextMap {
		out[k] = WithDeletions(prevMap[k], v)
	}
	for k := range prevMap {
		if _, kept := nextMap[k]; !kept {
			out[k] = nil
		}
	}
	return out
}

// Equal reports whether two property values are equal. Numbers compare by
// value regardless of their Go type, and the two map spellings compare
// equal. nil equals only nil.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if am, ok := AsProperties(a); ok {
		bm, ok := AsProperties(b)
		if !ok || len(am) != len(bm) {
			return false
		}
		for k, av := range am {
			bv, present := bm[k]
			if !present || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	if as, ok := a.([]any); ok {
		bs, ok := b.([]any)
		if !ok || len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !Equal(as[i], bs[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// String returns v as a string.
func String(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// Bool returns v as a bool. The strings "true" and "false" are accepted.
func Bool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(t)
		return b, err == nil
	default:
		return false, false
	}
}

// Int64 returns v as an int64. Floats are accepted when integral.
func Int64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

// Float64 returns v as a float64.
func Float64(v any) (float64, bool) {
	if f, ok := toFloat(v); ok {
		return f, true
	}
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

// Time returns v as a time. Timestamps are stored as RFC 3339 strings.
func Time(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		ts, err := time.Parse(time.RFC3339Nano, t)
		return ts, err == nil
	default:
		return time.Time{}, false
	}
}

// FormatTime renders a timestamp the way Time parses it.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
