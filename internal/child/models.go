package child

import (
	"backend-carewatch/internal/shared/instant"
)

type Child struct {
	ID       string `json:"id"`
	ParentID string `json:"parent_id"`
	Name     string `json:"name"`
	Age      int    `json:"age,omitempty"`

	DateOfBirth string `json:"date_of_birth,omitempty"`
	Gender      string `json:"gender,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`

	// emergency contact numbers shared with the sitter during a session
	ChildNumber  string `json:"child_number,omitempty"`
	ParentNumber string `json:"parent_number,omitempty"`
	SitterNumber string `json:"sitter_number,omitempty"`

	CreatedAt instant.Time `json:"created_at"`
	UpdatedAt instant.Time `json:"updated_at"`
}

type UpdateRequest struct {
	Name         *string `json:"name,omitempty"`
	Age          *int    `json:"age,omitempty"`
	DateOfBirth  *string `json:"date_of_birth,omitempty"`
	Gender       *string `json:"gender,omitempty"`
	PhotoURL     *string `json:"photo_url,omitempty"`
	ChildNumber  *string `json:"child_number,omitempty"`
	ParentNumber *string `json:"parent_number,omitempty"`
	SitterNumber *string `json:"sitter_number,omitempty"`
}
