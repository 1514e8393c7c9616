package dto

import (
	"time"

	"github.com/google/uuid"
)

type SemanticSearchRequest struct {
	Query     string   `json:"query" validate:"required"`
	Limit     *int     `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
	Threshold *float64 `json:"threshold,omitempty" validate:"omitempty,gte=-1,lte=1"`
}

type SearchResultItem struct {
	Id         uuid.UUID  `json:"id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Category   *string    `json:"category,omitempty"`
	Summary    *string    `json:"summary,omitempty"`
	Similarity float64    `json:"similarity"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}

type SemanticSearchResponse struct {
	Results []*SearchResultItem `json:"results"`
	Count   int                 `json:"count"`
}

type BackfillResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}
