package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"catmig/internal/instance"
	"catmig/internal/logging"
	"catmig/internal/schema"
)

// ErrNotFound is returned when no instance has the requested id.
var ErrNotFound = errors.New("not found")

// InstanceInfo describes a stored instance without loading its rows.
type InstanceInfo struct {
	ID        string
	Name      string
	Schema    string
	CreatedAt time.Time
}

// SaveInstance stores x under a fresh id. The schema travels with the rows as
// its presentation; attribute values are stored as JSON, so numbers come back
// as float64.
func (s *LocalStore) SaveInstance(ctx context.Context, name string, x *instance.Instance) (string, error) {
	timer := logging.StartTimer(logging.CategoryStore, "SaveInstance")
	defer timer.Stop()

	if err := x.Validate(); err != nil {
		return "", fmt.Errorf("refusing to save invalid instance: %w", err)
	}
	sch := x.Schema()
	pres, err := json.Marshal(sch.Presentation())
	if err != nil {
		return "", fmt.Errorf("failed to encode schema: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO instances (id, name, schema_name, schema_json, created_at) VALUES (?, ?, ?, ?, ?)",
		id, name, sch.Name, string(pres), time.Now().UnixNano())
	if err != nil {
		logging.StoreError("Failed to insert instance %s: %v", name, err)
		return "", fmt.Errorf("failed to insert instance: %w", err)
	}

	for ob, o := range sch.Obs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO parts (instance_id, ob, count) VALUES (?, ?, ?)", id, o.Name, x.NParts(ob)); err != nil {
			return "", fmt.Errorf("failed to insert parts of %s: %w", o.Name, err)
		}
	}

	homStmt, err := tx.PrepareContext(ctx, "INSERT INTO hom_values (instance_id, hom, row, value) VALUES (?, ?, ?, ?)")
	if err != nil {
		return "", fmt.Errorf("failed to prepare hom insert: %w", err)
	}
	defer homStmt.Close()
	for h, hom := range sch.Homs {
		for row := 0; row < x.NParts(hom.Dom); row++ {
			if _, err := homStmt.ExecContext(ctx, id, hom.Name, row, x.Subpart(h, row)); err != nil {
				return "", fmt.Errorf("failed to insert %s[%d]: %w", hom.Name, row, err)
			}
		}
	}

	attrStmt, err := tx.PrepareContext(ctx, "INSERT INTO attr_values (instance_id, attr, row, value) VALUES (?, ?, ?, ?)")
	if err != nil {
		return "", fmt.Errorf("failed to prepare attribute insert: %w", err)
	}
	defer attrStmt.Close()
	for a, attr := range sch.Attrs {
		for row := 0; row < x.NParts(attr.Dom); row++ {
			value, err := json.Marshal(x.AttrValue(a, row))
			if err != nil {
				return "", fmt.Errorf("failed to encode %s[%d]: %w", attr.Name, row, err)
			}
			if _, err := attrStmt.ExecContext(ctx, id, attr.Name, row, string(value)); err != nil {
				return "", fmt.Errorf("failed to insert %s[%d]: %w", attr.Name, row, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit instance: %w", err)
	}
	logging.StoreDebug("Saved instance %s (%s) as %s", name, x, id)
	return id, nil
}

// LoadInstance reads back an instance saved by SaveInstance.
func (s *LocalStore) LoadInstance(ctx context.Context, id string) (*instance.Instance, InstanceInfo, error) {
	timer := logging.StartTimer(logging.CategoryStore, "LoadInstance")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	info := InstanceInfo{ID: id}
	var presJSON string
	var created int64
	err := s.db.QueryRowContext(ctx,
		"SELECT name, schema_name, schema_json, created_at FROM instances WHERE id = ?", id).
		Scan(&info.Name, &info.Schema, &presJSON, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, info, fmt.Errorf("instance %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, info, fmt.Errorf("failed to query instance: %w", err)
	}
	info.CreatedAt = time.Unix(0, created)

	var pres schema.Presentation
	if err := json.Unmarshal([]byte(presJSON), &pres); err != nil {
		return nil, info, fmt.Errorf("failed to decode schema: %w", err)
	}
	sch, err := schema.FreeDiagram(pres)
	if err != nil {
		return nil, info, err
	}
	x := instance.New(sch)

	rows, err := s.db.QueryContext(ctx, "SELECT ob, count FROM parts WHERE instance_id = ?", id)
	if err != nil {
		return nil, info, fmt.Errorf("failed to query parts: %w", err)
	}
	err = scanRows(rows, func() error {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return err
		}
		ob, ok := sch.Ob(name)
		if !ok {
			return &schema.SchemaError{Schema: sch.Name, Name: name, Reason: "stored parts for unknown object"}
		}
		x.AddParts(ob, n)
		return nil
	})
	if err != nil {
		return nil, info, err
	}

	homs := make([][]int, sch.NHoms())
	for h, hom := range sch.Homs {
		homs[h] = make([]int, x.NParts(hom.Dom))
	}
	rows, err = s.db.QueryContext(ctx, "SELECT hom, row, value FROM hom_values WHERE instance_id = ?", id)
	if err != nil {
		return nil, info, fmt.Errorf("failed to query hom values: %w", err)
	}
	err = scanRows(rows, func() error {
		var name string
		var row, value int
		if err := rows.Scan(&name, &row, &value); err != nil {
			return err
		}
		h, ok := sch.Hom(name)
		if !ok || row < 0 || row >= len(homs[h]) {
			return &schema.SchemaError{Schema: sch.Name, Name: name, Reason: fmt.Sprintf("stored value for row %d does not fit", row)}
		}
		homs[h][row] = value
		return nil
	})
	if err != nil {
		return nil, info, err
	}
	for h, values := range homs {
		if err := x.SetHom(h, values); err != nil {
			return nil, info, err
		}
	}

	attrs := make([][]any, sch.NAttrs())
	for a, attr := range sch.Attrs {
		attrs[a] = make([]any, x.NParts(attr.Dom))
	}
	rows, err = s.db.QueryContext(ctx, "SELECT attr, row, value FROM attr_values WHERE instance_id = ?", id)
	if err != nil {
		return nil, info, fmt.Errorf("failed to query attribute values: %w", err)
	}
	err = scanRows(rows, func() error {
		var name, raw string
		var row int
		if err := rows.Scan(&name, &row, &raw); err != nil {
			return err
		}
		a, ok := sch.Attr(name)
		if !ok || row < 0 || row >= len(attrs[a]) {
			return &schema.SchemaError{Schema: sch.Name, Name: name, Reason: fmt.Sprintf("stored value for row %d does not fit", row)}
		}
		return json.Unmarshal([]byte(raw), &attrs[a][row])
	})
	if err != nil {
		return nil, info, err
	}
	for a, values := range attrs {
		if err := x.SetAttr(a, values); err != nil {
			return nil, info, err
		}
	}

	logging.StoreDebug("Loaded instance %s: %s", id, x)
	return x, info, nil
}

// ListInstances returns stored instances, newest first.
func (s *LocalStore) ListInstances(ctx context.Context) ([]InstanceInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, schema_name, created_at FROM instances ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query instances: %w", err)
	}
	var infos []InstanceInfo
	err = scanRows(rows, func() error {
		var info InstanceInfo
		var created int64
		if err := rows.Scan(&info.ID, &info.Name, &info.Schema, &created); err != nil {
			return err
		}
		info.CreatedAt = time.Unix(0, created)
		infos = append(infos, info)
		return nil
	})
	return infos, err
}

// DeleteInstance removes an instance and its rows.
func (s *LocalStore) DeleteInstance(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM instances WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete instance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("instance %s: %w", id, ErrNotFound)
	}
	for _, table := range []string{"parts", "hom_values", "attr_values"} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE instance_id = ?", table), id); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// scanRows calls scan for each row and closes rows.
func scanRows(rows *sql.Rows, scan func() error) error {
	defer rows.Close()
	for rows.Next() {
		if err := scan(); err != nil {
			return err
		}
	}
	return rows.Err()
}
