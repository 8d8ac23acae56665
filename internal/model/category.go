package model

import (
	"strings"
	"time"
)

// Category groups products; categories may nest via ParentCategoryID.
type Category struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	ParentCategoryID *int64     `json:"parent_category_id"`
	IsActive         bool       `json:"is_active"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

type CategoryCreate struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	ParentCategoryID *int64 `json:"parent_category_id,omitempty"`
	IsActive         *bool  `json:"is_active,omitempty"`
}

type CategoryUpdate struct {
	Name             Optional[string] `json:"name,omitzero"`
	Description      Optional[string] `json:"description,omitzero"`
	ParentCategoryID Optional[int64]  `json:"parent_category_id,omitzero"`
	IsActive         Optional[bool]   `json:"is_active,omitzero"`
}

func (in CategoryCreate) Build() Category {
	c := Category{
		Name:             strings.TrimSpace(in.Name),
		Description:      strings.TrimSpace(in.Description),
		ParentCategoryID: in.ParentCategoryID,
		IsActive:         true,
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	return c
}

func (p CategoryUpdate) Validate() error {
	var ve ValidationError
	if v, ok := p.Name.Get(); ok {
		ve.Add("name", checkText(v, true, 50))
	}
	if v, ok := p.Description.Get(); ok {
		ve.Add("description", checkText(v, false, 200))
	}
	if v, ok := p.ParentCategoryID.Get(); ok {
		ve.Add("parent_category_id", checkID(v))
	}
	return ve.Err()
}

func (p CategoryUpdate) Apply(c *Category) {
	if v, ok := p.Name.Get(); ok {
		c.Name = strings.TrimSpace(v)
	}
	if v, ok := p.Description.Get(); ok {
		c.Description = strings.TrimSpace(v)
	}
	if v, ok := p.ParentCategoryID.Get(); ok {
		c.ParentCategoryID = &v
	}
	if v, ok := p.IsActive.Get(); ok {
		c.IsActive = v
	}
}

// ValidateCategory checks a Category for constraint violations.
func ValidateCategory(c *Category) error {
	var ve ValidationError
	ve.Add("name", checkText(c.Name, true, 50))
	ve.Add("description", checkText(c.Description, false, 200))
	if c.ParentCategoryID != nil {
		ve.Add("parent_category_id", checkID(*c.ParentCategoryID))
	}
	return ve.Err()
}
