package domain

import "strings"

// MaxTitleLength is the longest accepted task title after trimming.
const MaxTitleLength = 120

// Task represents a single tracked item.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Done        bool   `json:"done"`
	// CreatedAt is epoch milliseconds, assigned once at creation.
	CreatedAt int64 `json:"createdAt"`
}

// TaskPatch carries a partial update. Nil fields are left untouched so a
// zero value and an absent field stay distinguishable after decoding.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Done        *bool   `json:"done,omitempty"`
}

// Empty reports whether the patch carries no fields.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Done == nil
}

// ValidateTitle trims a title and returns it, or a ValidationError when the
// trimmed title is empty or longer than MaxTitleLength.
func ValidateTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", &ValidationError{Message: "Title is required."}
	}
	if len([]rune(trimmed)) > MaxTitleLength {
		return "", &ValidationError{Message: "Title must be 120 characters or fewer."}
	}
	return trimmed, nil
}
