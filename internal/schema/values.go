package schema

import (
	"fmt"
	"strings"

	"github.com/starford/vitrine/internal/models"
)

// DisplayValue renders an item's raw value for a field as the string a
// user sees: booleans go through the definition's true/false labels,
// checklists join their entries, everything else is stringified.
// Missing or nil values render empty.
func DisplayValue(def models.FieldDefinition, raw any) string {
	if raw == nil {
		return ""
	}
	switch def.Type {
	case models.FieldBoolean:
		on, off := "Sí", "No"
		if def.BooleanConfig != nil {
			if def.BooleanConfig.TrueLabel != "" {
				on = def.BooleanConfig.TrueLabel
			}
			if def.BooleanConfig.FalseLabel != "" {
				off = def.BooleanConfig.FalseLabel
			}
		}
		if truthy(raw) {
			return on
		}
		return off
	case models.FieldChecklist:
		return strings.Join(ChecklistValues(raw), ", ")
	default:
		return stringify(raw)
	}
}

// ChecklistValues normalizes a checklist's raw value to its selected
// entries. Scalars collapse to a single-entry list.
func ChecklistValues(raw any) []string {
	switch v := raw.(type) {
	case nil:
		return nil
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s := stringify(e); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := stringify(v); s != "" {
			return []string{s}
		}
		return nil
	}
}

// EvaluateShowIf reports whether a conditionally-visible usage should
// be shown for the given item data. Fields without a rule are always
// visible. The comparison runs on display values, so a boolean rule
// written as "Sí" matches a stored true.
func EvaluateShowIf(usage models.FieldUsage, resolve func(models.FieldUsage) models.FieldDefinition, t models.ItemType, data map[string]any) bool {
	if usage.ShowIf == nil {
		return true
	}
	for _, sibling := range t.Fields {
		if sibling.FieldID != usage.ShowIf.SourceFieldID {
			continue
		}
		def := resolve(sibling)
		raw := data[def.Key]
		if def.Type == models.FieldChecklist {
			for _, v := range ChecklistValues(raw) {
				if v == usage.ShowIf.ExpectedValue {
					return true
				}
			}
			return false
		}
		return DisplayValue(def, raw) == usage.ShowIf.ExpectedValue
	}
	// Dangling rule: the source usage is gone, keep the field visible.
	return true
}

func truthy(raw any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "sí" || v == "Sí" || v == "yes"
	case float64:
		return v != 0
	default:
		return false
	}
}

func stringify(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		// JSON numbers decode as float64; render integers without the
		// trailing ".0".
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
