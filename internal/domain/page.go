package domain

// EntityPage is the pagination envelope for entity listings.
type EntityPage struct {
	Items []Entity `json:"items"`
	Total int      `json:"total"`
	Page  int      `json:"page"`
	Size  int      `json:"size"`
	Pages int      `json:"pages"`
}

// RelationshipPage is the pagination envelope for relationship listings.
type RelationshipPage struct {
	Items []Relationship `json:"items"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
	Pages int            `json:"pages"`
}

// TypeList wraps a catalog listing.
type TypeList struct {
	Items []TypeDefinition `json:"items"`
	Total int              `json:"total"`
}

// PageOf computes the 1-based page number and page count for an
// offset/limit window over total rows.
func PageOf(total, limit, offset int) (page, pages int) {
	if limit <= 0 {
		return 1, 1
	}
	page = offset/limit + 1
	pages = (total + limit - 1) / limit
	return page, pages
}
