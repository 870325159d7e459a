package model

// Value-type tags carried by column descriptors. A tag resolves to exactly
// one cell strategy and at most one form strategy in the value-type registry;
// unrecognized tags fall back to plain text.
const (
	TypeText           = "text"
	TypeTextarea       = "textarea"
	TypePassword       = "password"
	TypeDigit          = "digit"
	TypeMoney          = "money"
	TypeDate           = "date"
	TypeDateTime       = "dateTime"
	TypeDateRange      = "dateRange"
	TypeDateTimeRange  = "dateTimeRange"
	TypeSelect         = "select"
	TypeMultipleSelect = "multipleSelect"
	TypeSwitch         = "switch"
	TypeImage          = "image"
	TypeFile           = "file"
	TypeHTML           = "html"
	TypeForeign        = "foreign"
	TypeDatabase       = "database"
	TypeAvatar         = "avatar"
	TypeCode           = "code"
	TypeJSONCode       = "jsonCode"
	TypeRangePicker    = "rangePicker"
)

// ResourceMeta is a backend-declared entity schema: field list, row key,
// capability flags, and custom actions. It is fetched once per navigation to
// a resource and treated as immutable for the session unless re-fetched.
type ResourceMeta struct {
	Name       string             `json:"name"`
	Title      string             `json:"title,omitempty"`
	RowKey     string             `json:"rowKey"`
	Columns    []ColumnDescriptor `json:"columns"`
	Creatable  bool               `json:"creatable"`
	Updatable  bool               `json:"updatable"`
	Deleteable bool               `json:"deleteable"`
	Copyable   bool               `json:"copyable"`
	Exportable bool               `json:"exportable"`
	Actions    []ActionDescriptor `json:"actions,omitempty"`

	// ActionNames lists actions the upstream declares by bare name, without
	// a full descriptor. Names already covered by Actions are ignored when
	// the operation list is derived.
	ActionNames []string `json:"actionNames,omitempty"`
}

// Column returns the descriptor whose data index matches field, if any.
func (m *ResourceMeta) Column(field string) (ColumnDescriptor, bool) {
	for _, col := range m.Columns {
		if col.DataIndex == field {
			return col, true
		}
	}
	return ColumnDescriptor{}, false
}

// ColumnDescriptor describes one field of a resource: how it is rendered in
// tables, collected in forms, and filtered in searches.
type ColumnDescriptor struct {
	DataIndex    string `json:"dataIndex"`
	Title        string `json:"title,omitempty"`
	ValueType    string `json:"valueType,omitempty"`
	HideInTable  bool   `json:"hideInTable,omitempty"`
	HideInForm   bool   `json:"hideInForm,omitempty"`
	HideInSearch bool   `json:"hideInSearch,omitempty"`

	Rules []ValidationRule `json:"rules,omitempty"`

	// ValueEnum maps stored values to display labels. Static when embedded
	// in meta, or populated lazily from a foreign-key lookup.
	ValueEnum map[string]string `json:"valueEnum,omitempty"`

	// ForeignKey is set when ValueType is "foreign": the field references
	// another resource's key/label fields.
	ForeignKey *ForeignKeyBinding `json:"foreignKey,omitempty"`

	// TypeParams carries type-specific configuration, e.g. the table/value/
	// label fields of a database-backed select.
	TypeParams map[string]any `json:"valueTypeParams,omitempty"`
}

// ForeignKeyBinding declares a reference from a local field to another
// resource's key/label fields. It is resolved lazily into a value→label
// enumeration scoped to the rows currently displayed.
type ForeignKeyBinding struct {
	Model      string `json:"model"`
	KeyField   string `json:"keyField"`
	LabelField string `json:"labelField"`
}

// Bound reports whether the binding is usable for lookup.
func (f *ForeignKeyBinding) Bound() bool {
	return f != nil && f.KeyField != "" && f.Model != ""
}

// ValidationRule is a client-side validation constraint attached to a column.
type ValidationRule struct {
	Required  bool     `json:"required,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
	Message   string   `json:"message,omitempty"`
}

// ActionDescriptor is a backend-declared custom operation on a resource,
// optionally batch-capable and optionally carrying its own parameter columns.
type ActionDescriptor struct {
	Name    string             `json:"name"`
	Title   string             `json:"title,omitempty"`
	Batch   bool               `json:"batch,omitempty"`
	Danger  bool               `json:"danger,omitempty"`
	Columns []ColumnDescriptor `json:"columns,omitempty"`
}

// Row is one resource instance as returned by list/detail fetches, keyed by
// data-index paths. Rows live only for the duration of a view; mutations are
// always round-tripped through the upstream service.
type Row map[string]any

// Identity returns the row-key field value, or nil when absent.
func (r Row) Identity(rowKey string) any {
	return r[rowKey]
}

// CurrentUser is the session-scoped admin identity returned by the upstream
// service. Access carries the role driving capability derivation.
type CurrentUser struct {
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	Email  string `json:"email,omitempty"`
	Access Role   `json:"access,omitempty"`
	UserID string `json:"userid,omitempty"`
}
