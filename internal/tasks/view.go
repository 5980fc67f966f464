package tasks

import "github.com/lherron/tasklens/internal/domain"

// View applies company scoping. With a company on the identity it keeps,
// in order, the records whose Company field is a string equal to the
// company ID; otherwise it returns all unchanged.
func View(all []domain.TaskRecord, identity *domain.Identity) []domain.TaskRecord {
	if !identity.Scoped() {
		return all
	}
	scoped := make([]domain.TaskRecord, 0, len(all))
	for _, rec := range all {
		if company, ok := rec.Field(domain.CompanyField).(string); ok && company == identity.CompanyID {
			scoped = append(scoped, rec)
		}
	}
	return scoped
}
