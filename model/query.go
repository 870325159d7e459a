package model

// Filter operators understood by the upstream list endpoint.
const (
	OpEquals  = "="
	OpIn      = "in"
	OpBetween = "between"
)

// Sort directions as sent by the table UI.
const (
	OrderAscend  = "ascend"
	OrderDescend = "descend"
)

// QueryState is the raw pagination/sort/filter state staged by the UI before
// translation into a normalized Query.
type QueryState struct {
	Page     int
	PageSize int
	Keyword  string

	// Sort maps field names to "ascend"/"descend".
	Sort map[string]string

	// Filters maps field names to staged values: scalars, or arrays for
	// set-membership and ranges. Empty-array values are dropped before
	// transmission.
	Filters map[string]any
}

// Query is the normalized list request transmitted upstream.
type Query struct {
	Page     int      `json:"page"`
	PageSize int      `json:"pageSize"`
	Keyword  string   `json:"keyword,omitempty"`
	Params   []Param  `json:"params"`
	Sorters  []Sorter `json:"sorters"`
}

// Param is one translated filter predicate.
type Param struct {
	Key      string `json:"key"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// Sorter is one entry of the flattened, ordered sort specification.
type Sorter struct {
	Field string `json:"field"`
	Order string `json:"order"`
}

// ListResult is the outcome of a translated list query.
type ListResult struct {
	Rows  []Row `json:"data"`
	Total int64 `json:"total"`
}

// ExportResult carries the file URL produced by an asynchronous export job.
type ExportResult struct {
	URL string `json:"url"`
}

// DispatchResult reports what the UI must do after an action completes.
// Reload and ClearSelection are only set on success; a rejected action leaves
// the table and selection untouched.
type DispatchResult struct {
	Reload         bool   `json:"reload"`
	ClearSelection bool   `json:"clearSelection"`
	Message        string `json:"message,omitempty"`
}
