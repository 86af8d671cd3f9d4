package models

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Actor identifies where and by whom a tree operation runs
type Actor struct {
	Scope    string `json:"scope" validate:"required,max=64"`
	Locale   string `json:"locale" validate:"required,max=16"`
	AuthorID string `json:"authorId" validate:"required,max=255"`
}

// GenerateRequest represents the request body for generating a resource locator
type GenerateRequest struct {
	Parts       []string `json:"parts" validate:"required,min=1,dive,max=255"`
	ParentPath  string   `json:"parentPath" validate:"omitempty,startswith=/"`
	ParentID    *string  `json:"parentId,omitempty" validate:"omitempty,uuid"`
	Scope       string   `json:"scope" validate:"required,max=64"`
	Locale      string   `json:"locale" validate:"required,max=16"`
	TemplateKey string   `json:"templateKey,omitempty" validate:"omitempty,max=64"`
}

// RestoreRequest represents the request body for restoring an archived path
type RestoreRequest struct {
	Actor
	Path string `json:"path" validate:"required,startswith=/"`
}

// CreateNodeRequest represents the request body for creating a node
type CreateNodeRequest struct {
	Actor
	ParentID   *string           `json:"parentId,omitempty" validate:"omitempty,uuid"`
	Parts      []string          `json:"parts" validate:"required,min=1,dive,max=255"`
	Title      string            `json:"title,omitempty" validate:"max=255"`
	Properties map[string]string `json:"properties,omitempty"`
}

// MoveNodeRequest represents the request body for moving or copying a node.
// A nil DestinationID targets the top level of the scope.
type MoveNodeRequest struct {
	Actor
	DestinationID *string `json:"destinationId,omitempty" validate:"omitempty,uuid"`
}

// OrderBeforeRequest represents the request body for reordering before a sibling
type OrderBeforeRequest struct {
	Actor
	TargetID string `json:"targetId" validate:"required,uuid"`
}

// OrderAtRequest represents the request body for reordering to a position
type OrderAtRequest struct {
	Actor
	Position int `json:"position"`
}

// RenameNodeRequest represents the request body for regenerating a node's segment
type RenameNodeRequest struct {
	Actor
	Parts []string `json:"parts" validate:"required,min=1,dive,max=255"`
}

// CreateCategoryRequest represents the request body for inserting a category
type CreateCategoryRequest struct {
	ParentID *string `json:"parentId,omitempty" validate:"omitempty,uuid"`
	Key      *string `json:"key,omitempty" validate:"omitempty,min=1,max=255"`
}

// MoveCategoryRequest represents the request body for moving a category
type MoveCategoryRequest struct {
	ParentID *string `json:"parentId,omitempty" validate:"omitempty,uuid"`
}

// Validate validates the generate request
func (r *GenerateRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the restore request
func (r *RestoreRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the create node request
func (r *CreateNodeRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the move request
func (r *MoveNodeRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the order-before request
func (r *OrderBeforeRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the order-at request
func (r *OrderAtRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the rename request
func (r *RenameNodeRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the create category request
func (r *CreateCategoryRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the move category request
func (r *MoveCategoryRequest) Validate() error {
	return validate.Struct(r)
}
