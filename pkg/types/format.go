// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// ListSeparator joins list-valued fields when they are rendered as a single
// text cell.
const ListSeparator = "; "

func joinList(items []string) string {
	return strings.Join(items, ListSeparator)
}

func toString(v any) string {
	switch t := v.(type) {
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, toString(p))
		}
		return joinList(parts)
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprint(t)
	}
}
