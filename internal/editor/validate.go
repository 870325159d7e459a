package editor

import (
	"fmt"
	"regexp"

	"github.com/pitabwire/curator/model"
)

// Validate checks field values against their column rules and returns every
// violation. An empty result means the submission may proceed.
func Validate(columns []model.ColumnDescriptor, values map[string]any) []model.FieldError {
	var errs []model.FieldError
	for _, col := range columns {
		if col.HideInForm {
			continue
		}
		value, present := values[col.DataIndex]
		for _, rule := range col.Rules {
			if msg := checkRule(rule, value, present); msg != "" {
				errs = append(errs, model.FieldError{
					Field:   col.DataIndex,
					Message: msg,
				})
				break
			}
		}
	}
	return errs
}

func checkRule(rule model.ValidationRule, value any, present bool) string {
	empty := !present || value == nil || value == ""

	if rule.Required && empty {
		return ruleMessage(rule, "is required")
	}
	if empty {
		return ""
	}

	if rule.Pattern != "" {
		s, ok := value.(string)
		if !ok {
			return ruleMessage(rule, "has an invalid format")
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			// An uncompilable backend pattern must not block every write.
			return ""
		}
		if !re.MatchString(s) {
			return ruleMessage(rule, "has an invalid format")
		}
	}

	if rule.Min != nil || rule.Max != nil {
		n, ok := asNumber(value)
		if !ok {
			return ruleMessage(rule, "must be a number")
		}
		if rule.Min != nil && n < *rule.Min {
			return ruleMessage(rule, fmt.Sprintf("must be at least %v", *rule.Min))
		}
		if rule.Max != nil && n > *rule.Max {
			return ruleMessage(rule, fmt.Sprintf("must be at most %v", *rule.Max))
		}
	}

	if rule.MinLength != nil || rule.MaxLength != nil {
		s, ok := value.(string)
		if !ok {
			return ""
		}
		length := len([]rune(s))
		if rule.MinLength != nil && length < *rule.MinLength {
			return ruleMessage(rule, fmt.Sprintf("must be at least %d characters", *rule.MinLength))
		}
		if rule.MaxLength != nil && length > *rule.MaxLength {
			return ruleMessage(rule, fmt.Sprintf("must be at most %d characters", *rule.MaxLength))
		}
	}

	return ""
}

func ruleMessage(rule model.ValidationRule, fallback string) string {
	if rule.Message != "" {
		return rule.Message
	}
	return fallback
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
