package store

import "thought-stream-go/internal/models"

// Window describes one page of the thought log.
type Window struct {
	Page       int
	Size       int
	Offset     int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// Paginate computes the window for page over total items. Pages are
// 1-based; anything below 1 is treated as the first page.
func Paginate(total, page, size int) Window {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}
	totalPages := (total + size - 1) / size
	return Window{
		Page:       page,
		Size:       size,
		Offset:     (page - 1) * size,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// Page is the JSON body served for GET /thoughts.
type Page struct {
	Thoughts   []models.Thought `json:"thoughts"`
	Page       int              `json:"page"`
	TotalPages int              `json:"total_pages"`
	HasNext    bool             `json:"has_next"`
	HasPrev    bool             `json:"has_prev"`
}

func NewPage(thoughts []models.Thought, w Window) Page {
	if thoughts == nil {
		thoughts = []models.Thought{}
	}
	return Page{
		Thoughts:   thoughts,
		Page:       w.Page,
		TotalPages: w.TotalPages,
		HasNext:    w.HasNext,
		HasPrev:    w.HasPrev,
	}
}

// window clamps [offset, offset+limit) to n items.
func window(n, offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		offset = n
	}
	end := n
	if limit >= 0 && offset+limit < n {
		end = offset + limit
	}
	return offset, end
}
