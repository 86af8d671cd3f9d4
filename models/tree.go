package models

import (
	"time"

	"github.com/sulu/sulu-sub013/repository"
)

// Node represents a single content node in the tree
type Node struct {
	ID         string            `json:"id"`
	ParentID   *string           `json:"parentId"`
	Scope      string            `json:"scope"`
	Path       string            `json:"path"`
	Position   int               `json:"position"`
	Title      string            `json:"title,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
	Creator    string            `json:"creator"`
	Changer    string            `json:"changer"`
	Created    time.Time         `json:"created"`
	Changed    time.Time         `json:"changed"`
	Children   []*Node           `json:"children,omitempty"`
}

// NewNode converts a stored node into its representation for locale
func NewNode(node *repository.Node, locale string) *Node {
	return &Node{
		ID:         node.ID,
		ParentID:   node.ParentID,
		Scope:      node.Scope,
		Path:       node.Path,
		Position:   node.Position,
		Title:      node.Title(locale),
		Properties: node.Properties,
		Creator:    node.Creator,
		Changer:    node.Changer,
		Created:    node.Created,
		Changed:    node.Changed,
	}
}

// AddChild adds a child node to the current node
func (n *Node) AddChild(child *Node) {
	n.Children = append(n.Children, child)
}

// BuildTree nests a pre-ordered subtree under its first node
func BuildTree(nodes []*repository.Node, locale string) *Node {
	if len(nodes) == 0 {
		return nil
	}
	byID := make(map[string]*Node, len(nodes))
	var root *Node
	for _, node := range nodes {
		model := NewNode(node, locale)
		byID[node.ID] = model
		if root == nil {
			root = model
			continue
		}
		if node.ParentID != nil {
			if parent, ok := byID[*node.ParentID]; ok {
				parent.AddChild(model)
			}
		}
	}
	return root
}

// Resolution is the result of looking up a resource locator
type Resolution struct {
	NodeID        string `json:"nodeId" dynamodbav:"nodeId"`
	Scope         string `json:"scope" dynamodbav:"scope"`
	Path          string `json:"path" dynamodbav:"path"`
	RequestedPath string `json:"requestedPath" dynamodbav:"requestedPath"`
	// Redirect is set when RequestedPath is an archived path of the node
	Redirect bool `json:"redirect" dynamodbav:"redirect"`
}

// ResourceLocator wraps a single path in API responses
type ResourceLocator struct {
	ResourceLocator string `json:"resourceLocator"`
}

// HistoryEntry is an archived resource locator
type HistoryEntry struct {
	ResourceLocator string    `json:"resourceLocator"`
	Locale          string    `json:"locale"`
	CreatedAt       time.Time `json:"createdAt"`
}

// NewHistory converts archived entries
func NewHistory(entries []*repository.PathHistoryEntry) []*HistoryEntry {
	history := make([]*HistoryEntry, 0, len(entries))
	for _, entry := range entries {
		history = append(history, &HistoryEntry{
			ResourceLocator: entry.Path,
			Locale:          entry.Locale,
			CreatedAt:       entry.CreatedAt,
		})
	}
	return history
}

// Category is a nested set category
type Category struct {
	ID       string  `json:"id"`
	Key      *string `json:"key,omitempty"`
	ParentID *string `json:"parentId"`
	Lft      int     `json:"lft"`
	Rgt      int     `json:"rgt"`
	Depth    int     `json:"depth"`
}

// NewCategory converts a stored category
func NewCategory(c *repository.CategoryNode) *Category {
	return &Category{
		ID:       c.ID,
		Key:      c.Key,
		ParentID: c.ParentID,
		Lft:      c.Lft,
		Rgt:      c.Rgt,
		Depth:    c.Depth,
	}
}

// NewCategories converts a list of stored categories
func NewCategories(categories []*repository.CategoryNode) []*Category {
	result := make([]*Category, 0, len(categories))
	for _, c := range categories {
		result = append(result, NewCategory(c))
	}
	return result
}
