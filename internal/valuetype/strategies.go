package valuetype

import (
	"fmt"
	"time"

	"github.com/pitabwire/curator/model"
)

// foreignParamSchema describes the configuration a foreign-key column needs:
// the target model plus its key and label fields.
func foreignParamSchema() []model.ColumnDescriptor {
	return []model.ColumnDescriptor{
		{
			DataIndex: "model",
			Title:     "Model",
			ValueType: model.TypeText,
			Rules:     []model.ValidationRule{{Required: true}},
		},
		{
			DataIndex: "keyField",
			Title:     "Key Field",
			ValueType: model.TypeText,
			Rules:     []model.ValidationRule{{Required: true}},
		},
		{
			DataIndex: "labelField",
			Title:     "Label Field",
			ValueType: model.TypeText,
			Rules:     []model.ValidationRule{{Required: true}},
		},
	}
}

func builtinStrategies() []Strategy {
	enumCell := func(value any, _ model.Row, col model.ColumnDescriptor) any {
		return EnumLabel(col, value)
	}
	multiEnumCell := func(value any, row model.Row, col model.ColumnDescriptor) any {
		items, ok := value.([]any)
		if !ok {
			return EnumLabel(col, value)
		}
		labels := make([]any, len(items))
		for i, item := range items {
			labels[i] = EnumLabel(col, item)
		}
		return labels
	}

	return []Strategy{
		{Name: model.TypeText, Control: "text"},
		{Name: model.TypeTextarea, Control: "textarea"},
		{Name: model.TypePassword, Control: "password"},
		{Name: model.TypeDigit, Control: "digit"},
		{Name: model.TypeMoney, Control: "money", Cell: moneyCell},
		{Name: model.TypeDate, Control: "date", Cell: dateCell("2006-01-02")},
		{Name: model.TypeDateTime, Control: "dateTime", Cell: dateCell("2006-01-02 15:04:05")},
		{Name: model.TypeDateRange, Control: "dateRange"},
		{Name: model.TypeDateTimeRange, Control: "dateTimeRange"},
		{Name: model.TypeRangePicker, Control: "dateTimeRange"},
		{Name: model.TypeSelect, Control: "select", Cell: enumCell},
		{Name: model.TypeMultipleSelect, Control: "multiSelect", Cell: multiEnumCell},
		{Name: model.TypeSwitch, Control: "switch", Cell: enumCell},
		{Name: model.TypeImage, Control: "upload"},
		{Name: model.TypeAvatar, Control: "upload"},
		{Name: model.TypeFile, Control: "upload"},
		{Name: model.TypeHTML, Control: "richText"},
		{Name: model.TypeCode, Control: "code"},
		{Name: model.TypeJSONCode, Control: "jsonCode"},
		{
			Name:        model.TypeForeign,
			Control:     "foreignSelect",
			Cell:        enumCell,
			ParamSchema: foreignParamSchema(),
		},
		{
			Name:        model.TypeDatabase,
			Control:     "foreignSelect",
			Cell:        enumCell,
			ParamSchema: foreignParamSchema(),
		},
	}
}

// moneyCell renders numeric amounts with two decimal places.
func moneyCell(value any, _ model.Row, _ model.ColumnDescriptor) any {
	switch v := value.(type) {
	case float64:
		return fmt.Sprintf("%.2f", v)
	case int:
		return fmt.Sprintf("%d.00", v)
	case int64:
		return fmt.Sprintf("%d.00", v)
	default:
		return value
	}
}

// dateCell renders stored timestamps in the given layout, UTC. Values may be
// epoch seconds, epoch milliseconds, or an RFC 3339 string; anything else
// passes through untouched.
func dateCell(layout string) CellFunc {
	return func(value any, _ model.Row, _ model.ColumnDescriptor) any {
		t, ok := ParseTime(value)
		if !ok {
			return value
		}
		return t.UTC().Format(layout)
	}
}

// ParseTime interprets a stored value as a point in time. Epoch values above
// 1e12 are treated as milliseconds.
func ParseTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case float64:
		return fromEpoch(int64(v)), true
	case int64:
		return fromEpoch(v), true
	case int:
		return fromEpoch(int64(v)), true
	case string:
		for _, layout := range []string{
			time.RFC3339Nano, time.RFC3339,
			"2006-01-02 15:04:05", "2006-01-02",
		} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func fromEpoch(v int64) time.Time {
	if v > 1e12 {
		return time.UnixMilli(v)
	}
	return time.Unix(v, 0)
}
