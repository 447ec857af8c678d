package engine

import (
	"github.com/ekaya-inc/ekaya-query/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-query/pkg/models"
)

// validateRequest rejects filters, sorts and page windows the definition does
// not allow. It runs after pre-processing so masked attributes are known.
func validateRequest(def *models.QueryDefinition, qc *models.QueryContext) error {
	for _, f := range qc.Filters {
		attr, ok := def.Attribute(f.Attribute)
		if !ok {
			return apperrors.NewValidationError(def.Name(), "unknown filter attribute %q", f.Attribute)
		}
		if !attr.Filterable {
			return apperrors.NewValidationError(def.Name(), "attribute %q is not filterable", f.Attribute)
		}
		if !qc.IsVisible(attr) {
			return apperrors.NewValidationError(def.Name(), "attribute %q is not accessible", f.Attribute)
		}
		if err := f.Validate(); err != nil {
			return apperrors.NewValidationError(def.Name(), "%s", err.Error())
		}
	}

	for _, s := range qc.Sorts {
		attr, ok := def.Attribute(s.Attribute)
		if !ok {
			return apperrors.NewValidationError(def.Name(), "unknown sort attribute %q", s.Attribute)
		}
		if attr.SortColumn() == "" {
			return apperrors.NewValidationError(def.Name(), "attribute %q is not sortable", s.Attribute)
		}
		if !qc.IsVisible(attr) {
			return apperrors.NewValidationError(def.Name(), "attribute %q is not accessible", s.Attribute)
		}
		if _, err := models.ParseDirection(string(s.Direction)); err != nil {
			return apperrors.NewValidationError(def.Name(), "%s", err.Error())
		}
	}

	if qc.Page != nil {
		if err := qc.Page.Validate(def.MaxPageSize()); err != nil {
			return apperrors.NewValidationError(def.Name(), "%s", err.Error())
		}
	}
	return nil
}
