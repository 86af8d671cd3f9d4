package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// sqlDialect captures what differs between the SQL backends
type sqlDialect struct {
	// isConflict reports constraint violations and serialization failures
	isConflict func(err error) bool
}

const nodeColumns = `id, parent_id, scope, path, position, properties, translations, creator, changer, created_at, changed_at`

const historyColumns = `scope, locale, path, node_id, created_at`

const categoryColumns = `id, category_key, parent_id, lft, rgt, depth, created_at`

// nodeRow is the column layout of the nodes table
type nodeRow struct {
	ID           string         `db:"id"`
	ParentID     sql.NullString `db:"parent_id"`
	Scope        string         `db:"scope"`
	Path         string         `db:"path"`
	Position     int            `db:"position"`
	Properties   []byte         `db:"properties"`
	Translations []byte         `db:"translations"`
	Creator      string         `db:"creator"`
	Changer      string         `db:"changer"`
	Created      time.Time      `db:"created_at"`
	Changed      time.Time      `db:"changed_at"`
}

func (r *nodeRow) node() (*Node, error) {
	node := &Node{
		ID:           r.ID,
		Scope:        r.Scope,
		Path:         r.Path,
		Position:     r.Position,
		Properties:   make(map[string]string),
		Translations: make(map[string]map[string]string),
		Creator:      r.Creator,
		Changer:      r.Changer,
		Created:      r.Created.UTC(),
		Changed:      r.Changed.UTC(),
	}
	if r.ParentID.Valid {
		parentID := r.ParentID.String
		node.ParentID = &parentID
	}
	if len(r.Properties) > 0 {
		if err := json.Unmarshal(r.Properties, &node.Properties); err != nil {
			return nil, fmt.Errorf("error decoding properties of node %s: %w", r.ID, err)
		}
	}
	if len(r.Translations) > 0 {
		if err := json.Unmarshal(r.Translations, &node.Translations); err != nil {
			return nil, fmt.Errorf("error decoding translations of node %s: %w", r.ID, err)
		}
	}
	return node, nil
}

// historyRow is the column layout of the path_history table
type historyRow struct {
	Scope     string    `db:"scope"`
	Locale    string    `db:"locale"`
	Path      string    `db:"path"`
	NodeID    string    `db:"node_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *historyRow) entry() *PathHistoryEntry {
	return &PathHistoryEntry{
		Scope:     r.Scope,
		Locale:    r.Locale,
		Path:      r.Path,
		NodeID:    r.NodeID,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

// categoryRow is the column layout of the categories table
type categoryRow struct {
	ID       string         `db:"id"`
	Key      sql.NullString `db:"category_key"`
	ParentID sql.NullString `db:"parent_id"`
	Lft      int            `db:"lft"`
	Rgt      int            `db:"rgt"`
	Depth    int            `db:"depth"`
	Created  time.Time      `db:"created_at"`
}

func (r *categoryRow) category() *CategoryNode {
	c := &CategoryNode{
		ID:      r.ID,
		Lft:     r.Lft,
		Rgt:     r.Rgt,
		Depth:   r.Depth,
		Created: r.Created.UTC(),
	}
	if r.Key.Valid {
		key := r.Key.String
		c.Key = &key
	}
	if r.ParentID.Valid {
		parentID := r.ParentID.String
		c.ParentID = &parentID
	}
	return c
}

// sqlTx implements Tx on top of sqlx; queries are written with ? and
// rebound to the driver's placeholder syntax
type sqlTx struct {
	tx      *sqlx.Tx
	dialect *sqlDialect
}

func (t *sqlTx) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.tx.Rebind(query), args...)
}

func (t *sqlTx) get(ctx context.Context, dest any, query string, args ...any) error {
	return t.tx.GetContext(ctx, dest, t.tx.Rebind(query), args...)
}

func (t *sqlTx) selectRows(ctx context.Context, dest any, query string, args ...any) error {
	return t.tx.SelectContext(ctx, dest, t.tx.Rebind(query), args...)
}

// wrap converts driver errors into the repository error types
func (t *sqlTx) wrap(op, id string, err error) error {
	if err == nil {
		return nil
	}
	if t.dialect.isConflict(err) {
		return &ConflictError{Op: op, ID: id, Reason: err.Error()}
	}
	return fmt.Errorf("error during %s %s: %w", op, id, err)
}

func (t *sqlTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return t.wrap("commit", "", err)
	}
	return nil
}

func (t *sqlTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("error rolling back transaction: %w", err)
	}
	return nil
}

func encodeNodeMaps(node *Node) (string, string, error) {
	properties := node.Properties
	if properties == nil {
		properties = map[string]string{}
	}
	translations := node.Translations
	if translations == nil {
		translations = map[string]map[string]string{}
	}
	p, err := json.Marshal(properties)
	if err != nil {
		return "", "", fmt.Errorf("error encoding properties of node %s: %w", node.ID, err)
	}
	tr, err := json.Marshal(translations)
	if err != nil {
		return "", "", fmt.Errorf("error encoding translations of node %s: %w", node.ID, err)
	}
	return string(p), string(tr), nil
}

func (t *sqlTx) getNode(ctx context.Context, query string, args ...any) (*Node, error) {
	var row nodeRow
	if err := t.get(ctx, &row, query, args...); err != nil {
		return nil, err
	}
	return row.node()
}

func (t *sqlTx) GetNode(ctx context.Context, id string) (*Node, error) {
	node, err := t.getNode(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nodeNotFound(id)
		}
		return nil, fmt.Errorf("error getting node: %w", err)
	}
	return node, nil
}

func (t *sqlTx) FindNodeByPath(ctx context.Context, scope, path string) (*Node, error) {
	node, err := t.getNode(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE scope = ? AND path = ?`, scope, path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, pathNotFound(path)
		}
		return nil, fmt.Errorf("error finding node by path: %w", err)
	}
	return node, nil
}

func (t *sqlTx) ListChildren(ctx context.Context, parentID *string, scope string) ([]*Node, error) {
	var rows []nodeRow
	var err error
	if parentID == nil {
		err = t.selectRows(ctx, &rows, `
			SELECT `+nodeColumns+` FROM nodes
			WHERE parent_id IS NULL AND scope = ?
			ORDER BY position, id`, scope)
	} else {
		err = t.selectRows(ctx, &rows, `
			SELECT `+nodeColumns+` FROM nodes
			WHERE parent_id = ?
			ORDER BY position, id`, *parentID)
	}
	if err != nil {
		return nil, fmt.Errorf("error listing children: %w", err)
	}
	nodes := make([]*Node, 0, len(rows))
	for i := range rows {
		node, err := rows[i].node()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (t *sqlTx) CreateNode(ctx context.Context, node *Node) error {
	properties, translations, err := encodeNodeMaps(node)
	if err != nil {
		return err
	}
	_, err = t.exec(ctx, `
		INSERT INTO nodes (`+nodeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		node.ID, node.ParentID, node.Scope, node.Path, node.Position,
		properties, translations, node.Creator, node.Changer,
		node.Created.UTC(), node.Changed.UTC(),
	)
	return t.wrap("create node", node.ID, err)
}

func (t *sqlTx) UpdateNode(ctx context.Context, node *Node) error {
	properties, translations, err := encodeNodeMaps(node)
	if err != nil {
		return err
	}
	result, err := t.exec(ctx, `
		UPDATE nodes
		SET parent_id = ?, position = ?, properties = ?, translations = ?, changer = ?, changed_at = ?
		WHERE id = ?`,
		node.ParentID, node.Position, properties, translations, node.Changer, node.Changed.UTC(), node.ID,
	)
	if err != nil {
		return t.wrap("update node", node.ID, err)
	}
	return expectRow(result, node.ID)
}

func (t *sqlTx) UpdateNodePath(ctx context.Context, id, path string) error {
	result, err := t.exec(ctx, `UPDATE nodes SET path = ? WHERE id = ?`, path, id)
	if err != nil {
		return t.wrap("update path of", id, err)
	}
	return expectRow(result, id)
}

func (t *sqlTx) TouchNode(ctx context.Context, id, changer string, changed time.Time) error {
	result, err := t.exec(ctx, `UPDATE nodes SET changer = ?, changed_at = ? WHERE id = ?`, changer, changed.UTC(), id)
	if err != nil {
		return t.wrap("touch node", id, err)
	}
	return expectRow(result, id)
}

func (t *sqlTx) DeleteNode(ctx context.Context, id string) error {
	var children int
	if err := t.get(ctx, &children, `SELECT COUNT(*) FROM nodes WHERE parent_id = ?`, id); err != nil {
		return fmt.Errorf("error counting children: %w", err)
	}
	if children > 0 {
		return &ConflictError{Op: "delete node", ID: id, Reason: "node has children"}
	}
	result, err := t.exec(ctx, `DELETE FROM nodes WHERE id = ?`, id)
	if err != nil {
		return t.wrap("delete node", id, err)
	}
	return expectRow(result, id)
}

func expectRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rows == 0 {
		return nodeNotFound(id)
	}
	return nil
}

func (t *sqlTx) selectHistory(ctx context.Context, query string, args ...any) ([]*PathHistoryEntry, error) {
	var rows []historyRow
	if err := t.selectRows(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	entries := make([]*PathHistoryEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, rows[i].entry())
	}
	return entries, nil
}

func (t *sqlTx) AddHistory(ctx context.Context, entry *PathHistoryEntry) error {
	_, err := t.exec(ctx, `
		INSERT INTO path_history (`+historyColumns+`)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (scope, locale, path)
		DO UPDATE SET node_id = excluded.node_id, created_at = excluded.created_at`,
		entry.Scope, entry.Locale, entry.Path, entry.NodeID, entry.CreatedAt.UTC(),
	)
	return t.wrap("archive path", entry.Path, err)
}

func (t *sqlTx) GetHistoryEntry(ctx context.Context, scope, locale, path string) (*PathHistoryEntry, error) {
	var row historyRow
	err := t.get(ctx, &row, `
		SELECT `+historyColumns+` FROM path_history
		WHERE scope = ? AND locale = ? AND path = ?`, scope, locale, path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, pathNotFound(path)
		}
		return nil, fmt.Errorf("error getting history entry: %w", err)
	}
	return row.entry(), nil
}

func (t *sqlTx) FindHistoryByPath(ctx context.Context, scope, path string) ([]*PathHistoryEntry, error) {
	entries, err := t.selectHistory(ctx, `
		SELECT `+historyColumns+` FROM path_history
		WHERE scope = ? AND path = ?
		ORDER BY created_at DESC, locale`, scope, path)
	if err != nil {
		return nil, fmt.Errorf("error finding history by path: %w", err)
	}
	return entries, nil
}

func (t *sqlTx) ListHistory(ctx context.Context, nodeID, scope, locale string) ([]*PathHistoryEntry, error) {
	entries, err := t.selectHistory(ctx, `
		SELECT `+historyColumns+` FROM path_history
		WHERE node_id = ? AND scope = ? AND locale = ?
		ORDER BY created_at DESC, path`, nodeID, scope, locale)
	if err != nil {
		return nil, fmt.Errorf("error listing history: %w", err)
	}
	return entries, nil
}

func (t *sqlTx) DeleteHistory(ctx context.Context, scope, locale, path string) error {
	_, err := t.exec(ctx, `DELETE FROM path_history WHERE scope = ? AND locale = ? AND path = ?`, scope, locale, path)
	return t.wrap("delete history entry", path, err)
}

func (t *sqlTx) DeleteNodeHistory(ctx context.Context, nodeID string) error {
	_, err := t.exec(ctx, `DELETE FROM path_history WHERE node_id = ?`, nodeID)
	return t.wrap("delete history of node", nodeID, err)
}

func (t *sqlTx) getCategory(ctx context.Context, query string, args ...any) (*CategoryNode, error) {
	var row categoryRow
	if err := t.get(ctx, &row, query, args...); err != nil {
		return nil, err
	}
	return row.category(), nil
}

func (t *sqlTx) selectCategories(ctx context.Context, query string, args ...any) ([]*CategoryNode, error) {
	var rows []categoryRow
	if err := t.selectRows(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	categories := make([]*CategoryNode, 0, len(rows))
	for i := range rows {
		categories = append(categories, rows[i].category())
	}
	return categories, nil
}

func (t *sqlTx) GetCategory(ctx context.Context, id string) (*CategoryNode, error) {
	c, err := t.getCategory(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, categoryNotFound(id)
		}
		return nil, fmt.Errorf("error getting category: %w", err)
	}
	return c, nil
}

func (t *sqlTx) GetCategoryByKey(ctx context.Context, key string) (*CategoryNode, error) {
	c, err := t.getCategory(ctx, `SELECT `+categoryColumns+` FROM categories WHERE category_key = ?`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Kind: "category key", ID: key}
		}
		return nil, fmt.Errorf("error getting category by key: %w", err)
	}
	return c, nil
}

func (t *sqlTx) ListCategories(ctx context.Context) ([]*CategoryNode, error) {
	categories, err := t.selectCategories(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY lft`)
	if err != nil {
		return nil, fmt.Errorf("error listing categories: %w", err)
	}
	return categories, nil
}

func (t *sqlTx) ListCategoriesInRange(ctx context.Context, r CategoryRange) ([]*CategoryNode, error) {
	categories, err := t.selectCategories(ctx, `
		SELECT `+categoryColumns+` FROM categories
		WHERE lft > ? AND lft < ? AND rgt > ? AND rgt < ?
		ORDER BY lft`, r.LftAbove, r.LftBelow, r.RgtAbove, r.RgtBelow)
	if err != nil {
		return nil, fmt.Errorf("error listing category range: %w", err)
	}
	return categories, nil
}

func (t *sqlTx) MaxCategoryRgt(ctx context.Context) (int, error) {
	var maxRgt int
	if err := t.get(ctx, &maxRgt, `SELECT COALESCE(MAX(rgt), 0) FROM categories`); err != nil {
		return 0, fmt.Errorf("error reading category bounds: %w", err)
	}
	return maxRgt, nil
}

func (t *sqlTx) CreateCategory(ctx context.Context, c *CategoryNode) error {
	_, err := t.exec(ctx, `
		INSERT INTO categories (`+categoryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Key, c.ParentID, c.Lft, c.Rgt, c.Depth, c.Created.UTC(),
	)
	return t.wrap("create category", c.ID, err)
}

func (t *sqlTx) SetCategoryParent(ctx context.Context, id string, parentID *string) error {
	result, err := t.exec(ctx, `UPDATE categories SET parent_id = ? WHERE id = ?`, parentID, id)
	if err != nil {
		return t.wrap("update category", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rows == 0 {
		return categoryNotFound(id)
	}
	return nil
}

func (t *sqlTx) ShiftCategoryBounds(ctx context.Context, from, delta int) error {
	// both bounds move in one statement so lft < rgt holds for every row
	_, err := t.exec(ctx, `
		UPDATE categories
		SET lft = CASE WHEN lft >= ? THEN lft + ? ELSE lft END,
		    rgt = CASE WHEN rgt >= ? THEN rgt + ? ELSE rgt END
		WHERE rgt >= ?`,
		from, delta, from, delta, from,
	)
	return t.wrap("shift category bounds", "", err)
}

func (t *sqlTx) ShiftCategoryRange(ctx context.Context, lo, hi, delta, depthDelta int) error {
	_, err := t.exec(ctx, `
		UPDATE categories
		SET lft = lft + ?, rgt = rgt + ?, depth = depth + ?
		WHERE lft >= ? AND lft <= ?`,
		delta, delta, depthDelta, lo, hi,
	)
	return t.wrap("move category range", "", err)
}

func (t *sqlTx) DeleteCategoryRange(ctx context.Context, lo, hi int) error {
	_, err := t.exec(ctx, `DELETE FROM categories WHERE lft >= ? AND lft <= ?`, lo, hi)
	return t.wrap("delete category range", "", err)
}
