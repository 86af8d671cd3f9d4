package repository

import (
	"context"
	"errors"
	"sort"
	"time"
)

// errTxDone is returned when a finished transaction is used again
var errTxDone = errors.New("transaction has already been committed or rolled back")

type pathKey struct {
	scope string
	path  string
}

type historyKey struct {
	scope  string
	locale string
	path   string
}

type memoryState struct {
	nodes      map[string]*Node
	paths      map[pathKey]string
	history    map[historyKey]*PathHistoryEntry
	categories map[string]*CategoryNode
}

func newMemoryState() *memoryState {
	return &memoryState{
		nodes:      make(map[string]*Node),
		paths:      make(map[pathKey]string),
		history:    make(map[historyKey]*PathHistoryEntry),
		categories: make(map[string]*CategoryNode),
	}
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		nodes:      make(map[string]*Node, len(s.nodes)),
		paths:      make(map[pathKey]string, len(s.paths)),
		history:    make(map[historyKey]*PathHistoryEntry, len(s.history)),
		categories: make(map[string]*CategoryNode, len(s.categories)),
	}
	for id, node := range s.nodes {
		c.nodes[id] = node.Clone()
	}
	for key, id := range s.paths {
		c.paths[key] = id
	}
	for key, entry := range s.history {
		copied := *entry
		c.history[key] = &copied
	}
	for id, category := range s.categories {
		c.categories[id] = category.Clone()
	}
	return c
}

// MemoryStore implements Store in process memory.
// A transaction works on a private copy of the state which replaces the
// shared state on commit; writers are serialised.
type MemoryStore struct {
	sem   chan struct{}
	state *memoryState
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sem:   make(chan struct{}, 1),
		state: newMemoryState(),
	}
}

// Initialize performs any necessary setup
func (m *MemoryStore) Initialize(ctx context.Context) error {
	return nil
}

// Cleanup drops all stored data
func (m *MemoryStore) Cleanup(ctx context.Context) error {
	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-m.sem }()
	m.state = newMemoryState()
	return nil
}

// Begin acquires the store lock and opens a transaction
func (m *MemoryStore) Begin(ctx context.Context) (Tx, error) {
	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &memoryTx{store: m, state: m.state.clone()}, nil
}

type memoryTx struct {
	store *MemoryStore
	state *memoryState
	done  bool
}

func (t *memoryTx) Commit() error {
	if t.done {
		return errTxDone
	}
	t.store.state = t.state
	t.done = true
	<-t.store.sem
	return nil
}

func (t *memoryTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	<-t.store.sem
	return nil
}

func (t *memoryTx) check(ctx context.Context) error {
	if t.done {
		return errTxDone
	}
	return ctx.Err()
}

func (t *memoryTx) GetNode(ctx context.Context, id string) (*Node, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	node, ok := t.state.nodes[id]
	if !ok {
		return nil, nodeNotFound(id)
	}
	return node.Clone(), nil
}

func (t *memoryTx) FindNodeByPath(ctx context.Context, scope, path string) (*Node, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	id, ok := t.state.paths[pathKey{scope: scope, path: path}]
	if !ok {
		return nil, pathNotFound(path)
	}
	return t.state.nodes[id].Clone(), nil
}

func (t *memoryTx) ListChildren(ctx context.Context, parentID *string, scope string) ([]*Node, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	var children []*Node
	for _, node := range t.state.nodes {
		if parentID == nil {
			if node.ParentID == nil && node.Scope == scope {
				children = append(children, node.Clone())
			}
			continue
		}
		if node.ParentID != nil && *node.ParentID == *parentID {
			children = append(children, node.Clone())
		}
	}
	sort.Slice(children, func(i, j int) bool {
		if children[i].Position != children[j].Position {
			return children[i].Position < children[j].Position
		}
		return children[i].ID < children[j].ID
	})
	return children, nil
}

func (t *memoryTx) CreateNode(ctx context.Context, node *Node) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	if _, exists := t.state.nodes[node.ID]; exists {
		return &ConflictError{Op: "create node", ID: node.ID, Reason: "id already exists"}
	}
	key := pathKey{scope: node.Scope, path: node.Path}
	if _, taken := t.state.paths[key]; taken {
		return &ConflictError{Op: "create node", ID: node.ID, Reason: "path " + node.Path + " is taken"}
	}
	t.state.nodes[node.ID] = node.Clone()
	t.state.paths[key] = node.ID
	return nil
}

func (t *memoryTx) UpdateNode(ctx context.Context, node *Node) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	stored, ok := t.state.nodes[node.ID]
	if !ok {
		return nodeNotFound(node.ID)
	}
	updated := node.Clone()
	stored.ParentID = updated.ParentID
	stored.Position = updated.Position
	stored.Properties = updated.Properties
	stored.Translations = updated.Translations
	stored.Changer = updated.Changer
	stored.Changed = updated.Changed
	return nil
}

func (t *memoryTx) UpdateNodePath(ctx context.Context, id, path string) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	node, ok := t.state.nodes[id]
	if !ok {
		return nodeNotFound(id)
	}
	newKey := pathKey{scope: node.Scope, path: path}
	if owner, taken := t.state.paths[newKey]; taken && owner != id {
		return &ConflictError{Op: "update path of", ID: id, Reason: "path " + path + " is taken"}
	}
	delete(t.state.paths, pathKey{scope: node.Scope, path: node.Path})
	node.Path = path
	t.state.paths[newKey] = id
	return nil
}

func (t *memoryTx) TouchNode(ctx context.Context, id, changer string, changed time.Time) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	node, ok := t.state.nodes[id]
	if !ok {
		return nodeNotFound(id)
	}
	node.Changer = changer
	node.Changed = changed
	return nil
}

func (t *memoryTx) DeleteNode(ctx context.Context, id string) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	node, ok := t.state.nodes[id]
	if !ok {
		return nodeNotFound(id)
	}
	for _, other := range t.state.nodes {
		if other.ParentID != nil && *other.ParentID == id {
			return &ConflictError{Op: "delete node", ID: id, Reason: "node has children"}
		}
	}
	delete(t.state.paths, pathKey{scope: node.Scope, path: node.Path})
	delete(t.state.nodes, id)
	return nil
}

func (t *memoryTx) AddHistory(ctx context.Context, entry *PathHistoryEntry) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	copied := *entry
	t.state.history[historyKey{scope: entry.Scope, locale: entry.Locale, path: entry.Path}] = &copied
	return nil
}

func (t *memoryTx) GetHistoryEntry(ctx context.Context, scope, locale, path string) (*PathHistoryEntry, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	entry, ok := t.state.history[historyKey{scope: scope, locale: locale, path: path}]
	if !ok {
		return nil, pathNotFound(path)
	}
	copied := *entry
	return &copied, nil
}

func (t *memoryTx) FindHistoryByPath(ctx context.Context, scope, path string) ([]*PathHistoryEntry, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	var entries []*PathHistoryEntry
	for key, entry := range t.state.history {
		if key.scope == scope && key.path == path {
			copied := *entry
			entries = append(entries, &copied)
		}
	}
	sortHistory(entries)
	return entries, nil
}

func (t *memoryTx) ListHistory(ctx context.Context, nodeID, scope, locale string) ([]*PathHistoryEntry, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	var entries []*PathHistoryEntry
	for _, entry := range t.state.history {
		if entry.NodeID == nodeID && entry.Scope == scope && entry.Locale == locale {
			copied := *entry
			entries = append(entries, &copied)
		}
	}
	sortHistory(entries)
	return entries, nil
}

func (t *memoryTx) DeleteHistory(ctx context.Context, scope, locale, path string) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	delete(t.state.history, historyKey{scope: scope, locale: locale, path: path})
	return nil
}

func (t *memoryTx) DeleteNodeHistory(ctx context.Context, nodeID string) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	for key, entry := range t.state.history {
		if entry.NodeID == nodeID {
			delete(t.state.history, key)
		}
	}
	return nil
}

// sortHistory orders entries newest first
func sortHistory(entries []*PathHistoryEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].Path < entries[j].Path
	})
}

func (t *memoryTx) GetCategory(ctx context.Context, id string) (*CategoryNode, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	category, ok := t.state.categories[id]
	if !ok {
		return nil, categoryNotFound(id)
	}
	return category.Clone(), nil
}

func (t *memoryTx) GetCategoryByKey(ctx context.Context, key string) (*CategoryNode, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	for _, category := range t.state.categories {
		if category.Key != nil && *category.Key == key {
			return category.Clone(), nil
		}
	}
	return nil, &NotFoundError{Kind: "category key", ID: key}
}

func (t *memoryTx) ListCategories(ctx context.Context) ([]*CategoryNode, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	categories := make([]*CategoryNode, 0, len(t.state.categories))
	for _, category := range t.state.categories {
		categories = append(categories, category.Clone())
	}
	sortCategories(categories)
	return categories, nil
}

func (t *memoryTx) ListCategoriesInRange(ctx context.Context, r CategoryRange) ([]*CategoryNode, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	var categories []*CategoryNode
	for _, c := range t.state.categories {
		if c.Lft > r.LftAbove && c.Lft < r.LftBelow && c.Rgt > r.RgtAbove && c.Rgt < r.RgtBelow {
			categories = append(categories, c.Clone())
		}
	}
	sortCategories(categories)
	return categories, nil
}

func sortCategories(categories []*CategoryNode) {
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Lft < categories[j].Lft
	})
}

func (t *memoryTx) MaxCategoryRgt(ctx context.Context) (int, error) {
	if err := t.check(ctx); err != nil {
		return 0, err
	}
	maxRgt := 0
	for _, c := range t.state.categories {
		if c.Rgt > maxRgt {
			maxRgt = c.Rgt
		}
	}
	return maxRgt, nil
}

func (t *memoryTx) CreateCategory(ctx context.Context, category *CategoryNode) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	if _, exists := t.state.categories[category.ID]; exists {
		return &ConflictError{Op: "create category", ID: category.ID, Reason: "id already exists"}
	}
	if category.Key != nil {
		for _, other := range t.state.categories {
			if other.Key != nil && *other.Key == *category.Key {
				return &ConflictError{Op: "create category", ID: category.ID, Reason: "key " + *category.Key + " is taken"}
			}
		}
	}
	t.state.categories[category.ID] = category.Clone()
	return nil
}

func (t *memoryTx) SetCategoryParent(ctx context.Context, id string, parentID *string) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	category, ok := t.state.categories[id]
	if !ok {
		return categoryNotFound(id)
	}
	if parentID == nil {
		category.ParentID = nil
		return nil
	}
	p := *parentID
	category.ParentID = &p
	return nil
}

func (t *memoryTx) ShiftCategoryBounds(ctx context.Context, from, delta int) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	for _, c := range t.state.categories {
		if c.Lft >= from {
			c.Lft += delta
		}
		if c.Rgt >= from {
			c.Rgt += delta
		}
	}
	return nil
}

func (t *memoryTx) ShiftCategoryRange(ctx context.Context, lo, hi, delta, depthDelta int) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	for _, c := range t.state.categories {
		if c.Lft >= lo && c.Lft <= hi {
			c.Lft += delta
			c.Rgt += delta
			c.Depth += depthDelta
		}
	}
	return nil
}

func (t *memoryTx) DeleteCategoryRange(ctx context.Context, lo, hi int) error {
	if err := t.check(ctx); err != nil {
		return err
	}
	for id, c := range t.state.categories {
		if c.Lft >= lo && c.Lft <= hi {
			delete(t.state.categories, id)
		}
	}
	return nil
}
