package repository

import (
	"context"
	"fmt"

	"github.com/cwsupport/crf-provisioner/internal/model"
)

// ListByTerm returns every stored section of a term, used by the canceled-
// section sweep to reconcile local state against the warehouse.
func (r *SectionRepository) ListByTerm(ctx context.Context, term int) ([]model.Section, error) {
	query := fmt.Sprintf(`SELECT %s FROM sections WHERE term = $1 ORDER BY section_code`, sectionColumns)
	rows, err := r.Query(ctx, query, term)
	if err != nil {
		return nil, fmt.Errorf("list sections by term: %w", err)
	}
	defer rows.Close()

	var sections []model.Section
	for rows.Next() {
		section, err := scanSection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		sections = append(sections, *section)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sections: %w", err)
	}
	return sections, nil
}
