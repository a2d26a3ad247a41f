package urlstate

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gridwire-dev/gridwire/pkg/selection"
)

// Reserved parameter names and prefixes. These encodings are part of the
// bookmarkable URL contract and must stay bit-exact.
const (
	// ParamSort holds the active sort as "<field>:<asc|desc>".
	ParamSort = "sort"

	// ParamPage holds the 1-indexed page number.
	ParamPage = "page"

	// ParamPageSize holds the page size.
	ParamPageSize = "pageSize"

	// FilterPrefix marks per-column filter parameters: f_<columnKey>=<value>.
	FilterPrefix = "f_"

	// HighlightPrefix marks secondary highlight parameters (h_*). Highlight
	// parameters never trigger a data refetch.
	HighlightPrefix = "h_"
)

// Order is a sort direction.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// Sort describes the active sort column and direction.
// The zero value means "no sort".
type Sort struct {
	Field string
	Order Order
}

// IsZero reports whether no sort is active.
func (s Sort) IsZero() bool {
	return s.Field == ""
}

// EncodeSort serializes a sort descriptor as "<field>:<asc|desc>".
// A zero descriptor encodes to the empty string.
func EncodeSort(s Sort) string {
	if s.IsZero() {
		return ""
	}
	order := s.Order
	if order != OrderDesc {
		order = OrderAsc
	}
	return s.Field + ":" + string(order)
}

// DecodeSort parses "<field>:<asc|desc>". URL input is user-editable, so
// malformed input degrades instead of erroring: a bare field defaults to
// ascending, an unknown direction defaults to ascending, and an empty
// string decodes to the zero descriptor.
func DecodeSort(raw string) Sort {
	if raw == "" {
		return Sort{}
	}
	field, dir, found := strings.Cut(raw, ":")
	if field == "" {
		return Sort{}
	}
	order := OrderAsc
	if found && dir == string(OrderDesc) {
		order = OrderDesc
	}
	return Sort{Field: field, Order: order}
}

// EncodeSelection serializes engine selection keys ("parent|child") into the
// application-facing form "parent:child,parent:child". Invalid keys are
// dropped. An empty selection encodes to the empty string.
func EncodeSelection(keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		parent, child, ok := selection.SplitKey(key)
		if !ok {
			continue
		}
		pairs = append(pairs, parent+":"+child)
	}
	return strings.Join(pairs, ",")
}

// DecodeSelection parses "parent:child,parent:child" into engine selection
// keys ("parent|child"). Items without a colon separator are dropped
// silently. The empty string decodes to an empty slice.
func DecodeSelection(raw string) []string {
	if raw == "" {
		return []string{}
	}
	items := strings.Split(raw, ",")
	keys := make([]string, 0, len(items))
	for _, item := range items {
		parent, child, found := strings.Cut(item, ":")
		if !found {
			continue
		}
		keys = append(keys, selection.Key(parent, child))
	}
	return keys
}

// EncodeFilters maps column filters to their f_-prefixed parameters.
func EncodeFilters(filters map[string]string) map[string]string {
	params := make(map[string]string, len(filters))
	for column, value := range filters {
		params[FilterPrefix+column] = value
	}
	return params
}

// DecodeFilters extracts column filters from a parameter snapshot.
// Values are kept verbatim; matching lower-cases at apply time.
func DecodeFilters(params map[string]string) map[string]string {
	filters := make(map[string]string)
	for key, value := range params {
		if column, ok := strings.CutPrefix(key, FilterPrefix); ok && column != "" && value != "" {
			filters[column] = value
		}
	}
	return filters
}

// Page is 1-indexed pagination state as it appears in the URL.
type Page struct {
	Number int
	Size   int
}

// Offset converts to the internal 0-indexed row offset.
func (p Page) Offset() int {
	if p.Number < 1 || p.Size < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// EncodePage serializes pagination to its page/pageSize parameters.
func EncodePage(p Page) map[string]string {
	return map[string]string{
		ParamPage:     strconv.Itoa(p.Number),
		ParamPageSize: strconv.Itoa(p.Size),
	}
}

// DecodePage parses pagination with graceful degradation: a missing or
// invalid page falls back to 1, a missing or invalid size falls back to
// defaultSize.
func DecodePage(pageRaw, sizeRaw string, defaultSize int) Page {
	page := DecodeInt(pageRaw, 1)
	if page < 1 {
		page = 1
	}
	size := DecodeInt(sizeRaw, defaultSize)
	if size < 1 {
		size = defaultSize
	}
	return Page{Number: page, Size: size}
}

// EncodeStrings serializes a string slice as comma-separated values.
// The empty slice encodes to the empty string.
func EncodeStrings(values []string) string {
	return strings.Join(values, ",")
}

// DecodeStrings parses comma-separated values. The empty string decodes to
// an empty slice.
func DecodeStrings(raw string) []string {
	if raw == "" {
		return []string{}
	}
	return strings.Split(raw, ",")
}

// DecodeInt parses a numeric parameter, returning def for missing or
// malformed input.
func DecodeInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// EncodeInt serializes a numeric parameter.
func EncodeInt(n int) string {
	return strconv.Itoa(n)
}

// DecodeBool parses a boolean parameter, returning def for missing or
// malformed input.
func DecodeBool(raw string, def bool) bool {
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}

// EncodeBool serializes a boolean parameter.
func EncodeBool(b bool) string {
	return strconv.FormatBool(b)
}

// DecodeJSON parses a JSON-object-valued parameter into out, leaving out
// untouched for missing or malformed input and reporting whether it parsed.
func DecodeJSON(raw string, out any) bool {
	if raw == "" {
		return false
	}
	return json.Unmarshal([]byte(raw), out) == nil
}

// EncodeJSON serializes a JSON-object-valued parameter. Marshal failures
// encode to the empty string.
func EncodeJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
