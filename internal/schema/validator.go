package schema

import (
	"fmt"

	"github.com/pitabwire/curator/model"
)

// VError describes a single validation error in a console definition.
type VError struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e VError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validator validates console definitions structurally and referentially.
type Validator struct{}

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	return &Validator{}
}

var validSections = map[string]bool{
	"": true, model.SectionGeneral: true, model.SectionUsers: true,
	model.SectionLogs: true, model.SectionBusiness: true, model.SectionSynthesis: true,
}

var validSortOrders = map[string]bool{
	model.OrderAscend: true, model.OrderDescend: true,
}

// Validate checks all definitions and returns every problem found.
func (v *Validator) Validate(defs []model.ConsoleDefinition) []VError {
	var errs []VError
	seenOverlays := make(map[string]string)

	for i, def := range defs {
		prefix := fmt.Sprintf("definitions[%d]", i)

		for j, item := range def.Menu {
			mp := fmt.Sprintf("%s.menu[%d]", prefix, j)
			errs = append(errs, v.validateMenuItem(mp, item)...)
		}

		for j, o := range def.Resources {
			op := fmt.Sprintf("%s.resources[%d]", prefix, j)
			errs = append(errs, v.validateOverlay(op, o)...)

			if o.Name != "" {
				if prev, dup := seenOverlays[o.Name]; dup {
					errs = append(errs, VError{
						Path:    op + ".name",
						Code:    "DUPLICATE",
						Message: fmt.Sprintf("resource %q already declared at %s", o.Name, prev),
					})
				}
				seenOverlays[o.Name] = op
			}
		}
	}

	return errs
}

func (v *Validator) validateMenuItem(prefix string, item model.MenuItemDefinition) []VError {
	var errs []VError

	if item.Path == "" {
		errs = append(errs, VError{Path: prefix + ".path", Code: "REQUIRED", Message: "path is required"})
	}
	if item.Name == "" && len(item.Children) == 0 {
		errs = append(errs, VError{Path: prefix + ".name", Code: "REQUIRED", Message: "name is required for leaf entries"})
	}
	if !validSections[item.Section] {
		errs = append(errs, VError{
			Path:    prefix + ".section",
			Code:    "INVALID_ENUM",
			Message: fmt.Sprintf("unknown section %q", item.Section),
		})
	}

	for i, child := range item.Children {
		cp := fmt.Sprintf("%s.children[%d]", prefix, i)
		errs = append(errs, v.validateMenuItem(cp, child)...)
	}

	return errs
}

func (v *Validator) validateOverlay(prefix string, o model.ResourceOverlay) []VError {
	var errs []VError

	if o.Name == "" {
		errs = append(errs, VError{Path: prefix + ".name", Code: "REQUIRED", Message: "name is required"})
	}
	if o.PageSize < 0 || o.PageSize > 200 {
		errs = append(errs, VError{Path: prefix + ".page_size", Code: "RANGE", Message: "page_size must be 0-200"})
	}
	for field, order := range o.FixedSort {
		if !validSortOrders[order] {
			errs = append(errs, VError{
				Path:    prefix + ".fixed_sort",
				Code:    "INVALID_ENUM",
				Message: fmt.Sprintf("sort order for %q must be ascend or descend, got %q", field, order),
			})
		}
	}

	return errs
}
