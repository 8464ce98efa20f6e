package patchset

import (
	"fmt"
	"strconv"
)

// Array op directive keys. A patch value that is a JSON object using only
// these keys mutates an existing array instead of overwriting it.
const (
	opRemove = "$remove"
	opUpdate = "$update"
	opAppend = "$append"
)

// IsArrayOp reports whether a patch value is an array op directive.
func IsArrayOp(value any) bool {
	m, ok := value.(map[string]any)
	if !ok || len(m) == 0 {
		return false
	}
	for key := range m {
		switch key {
		case opRemove, opUpdate, opAppend:
		default:
			return false
		}
	}
	return true
}

// ApplyOps mutates a copy of current under an array op directive. Directives
// run remove, then update, then append. $remove lists element indices;
// $update maps an index to a field object merged into the element at that
// position. Update indices refer to positions after removal.
func ApplyOps(current []any, directive map[string]any) ([]any, error) {
	out := append([]any(nil), current...)

	if raw, ok := directive[opRemove]; ok {
		indices, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("%s wants an index array, got %T", opRemove, raw)
		}
		drop := make(map[int]struct{}, len(indices))
		for _, v := range indices {
			idx, err := opIndex(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", opRemove, err)
			}
			if idx < 0 || idx >= len(out) {
				return nil, fmt.Errorf("%s index %d outside array of %d elements", opRemove, idx, len(out))
			}
			drop[idx] = struct{}{}
		}
		filtered := out[:0]
		for i, v := range out {
			if _, gone := drop[i]; !gone {
				filtered = append(filtered, v)
			}
		}
		out = filtered
	}

	if raw, ok := directive[opUpdate]; ok {
		updates, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s wants an index-to-object map, got %T", opUpdate, raw)
		}
		for key, v := range updates {
			idx, err := strconv.Atoi(key)
			if err != nil {
				return nil, fmt.Errorf("%s index %q is not a number", opUpdate, key)
			}
			if idx < 0 || idx >= len(out) {
				return nil, fmt.Errorf("%s index %d outside array of %d elements", opUpdate, idx, len(out))
			}
			fields, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s[%d] wants a field object, got %T", opUpdate, idx, v)
			}
			elem, ok := out[idx].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s index %d targets a %T, not an object", opUpdate, idx, out[idx])
			}
			merged := make(map[string]any, len(elem)+len(fields))
			for k, ev := range elem {
				merged[k] = ev
			}
			for k, fv := range fields {
				merged[k] = fv
			}
			out[idx] = merged
		}
	}

	if raw, ok := directive[opAppend]; ok {
		toAppend, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("%s wants an array, got %T", opAppend, raw)
		}
		out = append(out, toAppend...)
	}

	return out, nil
}

// opIndex coerces a decoded JSON number into an integral array index.
func opIndex(v any) (int, error) {
	n, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("index %v is not a number", v)
	}
	idx := int(n)
	if float64(idx) != n {
		return 0, fmt.Errorf("index %v is not an integer", n)
	}
	return idx, nil
}
