package model

import (
	"fmt"
	"strings"
	"time"
)

// Review is a user's rating of a product.
type Review struct {
	ID        int64      `json:"id"`
	ProductID int64      `json:"product_id"`
	UserID    int64      `json:"user_id"`
	Rating    int        `json:"rating"`
	Comment   string     `json:"comment"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type ReviewCreate struct {
	ProductID int64  `json:"product_id"`
	UserID    int64  `json:"user_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

// ReviewUpdate only covers the rating and comment; a review cannot move to
// another product or author.
type ReviewUpdate struct {
	Rating  Optional[int]    `json:"rating,omitzero"`
	Comment Optional[string] `json:"comment,omitzero"`
}

func (in ReviewCreate) Build() Review {
	return Review{
		ProductID: in.ProductID,
		UserID:    in.UserID,
		Rating:    in.Rating,
		Comment:   strings.TrimSpace(in.Comment),
	}
}

func (p ReviewUpdate) Validate() error {
	var ve ValidationError
	if v, ok := p.Rating.Get(); ok {
		ve.Add("rating", checkRating(v))
	}
	if v, ok := p.Comment.Get(); ok {
		ve.Add("comment", checkText(v, false, 1000))
	}
	return ve.Err()
}

func (p ReviewUpdate) Apply(r *Review) {
	if v, ok := p.Rating.Get(); ok {
		r.Rating = v
	}
	if v, ok := p.Comment.Get(); ok {
		r.Comment = strings.TrimSpace(v)
	}
}

// ValidateReview checks a Review for constraint violations.
func ValidateReview(r *Review) error {
	var ve ValidationError
	ve.Add("product_id", checkID(r.ProductID))
	ve.Add("user_id", checkID(r.UserID))
	ve.Add("rating", checkRating(r.Rating))
	ve.Add("comment", checkText(r.Comment, false, 1000))
	return ve.Err()
}

func checkRating(v int) string {
	if v < 1 || v > 5 {
		return fmt.Sprintf("must be between 1 and 5, got %d", v)
	}
	return ""
}
