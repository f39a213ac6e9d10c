package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
)

const sqlSchema = `
CREATE TABLE IF NOT EXISTS templates (
	id         TEXT PRIMARY KEY,
	session    TEXT NOT NULL DEFAULT '',
	name       TEXT NOT NULL DEFAULT '',
	data       TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS templates_session ON templates(session);
CREATE TABLE IF NOT EXISTS profiles (
	session    TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (session, id)
);
CREATE TABLE IF NOT EXISTS sessions (
	id             TEXT PRIMARY KEY,
	active_profile TEXT NOT NULL
);`

// SQLStore keeps templates and profiles in a SQLite database as JSON rows.
// It satisfies both TemplateStore and ProfileStore.
type SQLStore struct {
	db *sql.DB
}

// OpenSQLStore opens (and migrates) the database at path. ":memory:" works
// for tests.
func OpenSQLStore(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// an in-memory database lives on a single connection
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqlSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func stamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// ListTemplates returns templates visible to the session, ordered by id
func (s *SQLStore) ListTemplates(sessionID string) ([]*models.TemplateDocument, error) {
	rows, err := s.db.Query(
		`SELECT data FROM templates WHERE ? = '' OR session = '' OR session = ? ORDER BY id`,
		sessionID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	var docs []*models.TemplateDocument
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var doc models.TemplateDocument
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			return nil, fmt.Errorf("failed to decode template: %w", err)
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// GetTemplate loads one template
func (s *SQLStore) GetTemplate(id string) (*models.TemplateDocument, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM templates WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	var doc models.TemplateDocument
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode template: %w", err)
	}
	return &doc, nil
}

// SaveTemplate inserts or replaces a template
func (s *SQLStore) SaveTemplate(doc *models.TemplateDocument) error {
	if err := ValidateID(doc.ID); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode template: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO templates (id, session, name, data, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET session = excluded.session, name = excluded.name,
		 data = excluded.data, updated_at = excluded.updated_at`,
		doc.ID, doc.SessionID, doc.Name, string(data), stamp(doc.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}
	return nil
}

// DeleteTemplate removes a template
func (s *SQLStore) DeleteTemplate(id string) error {
	res, err := s.db.Exec(`DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return requireRow(res, "template "+id)
}

// ListProfiles returns the session's profiles ordered by id
func (s *SQLStore) ListProfiles(sessionID string) ([]*models.Profile, error) {
	rows, err := s.db.Query(`SELECT data FROM profiles WHERE session = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*models.Profile
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var p models.Profile
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("failed to decode profile: %w", err)
		}
		profiles = append(profiles, &p)
	}
	return profiles, rows.Err()
}

// GetProfile loads one profile
func (s *SQLStore) GetProfile(sessionID, id string) (*models.Profile, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM profiles WHERE session = ? AND id = ?`, sessionID, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s/%s: %w", sessionID, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	var p models.Profile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &p, nil
}

// SaveProfile inserts or replaces a profile
func (s *SQLStore) SaveProfile(p *models.Profile) error {
	if err := ValidateID(p.SessionID); err != nil {
		return err
	}
	if err := ValidateID(p.ID); err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO profiles (session, id, data, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		p.SessionID, p.ID, string(data), stamp(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// DeleteProfile removes a profile
func (s *SQLStore) DeleteProfile(sessionID, id string) error {
	res, err := s.db.Exec(`DELETE FROM profiles WHERE session = ? AND id = ?`, sessionID, id)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return requireRow(res, "profile "+sessionID+"/"+id)
}

// ActiveProfile returns the session's active profile id, the default when unset
func (s *SQLStore) ActiveProfile(sessionID string) (string, error) {
	var id string
	err := s.db.QueryRow(`SELECT active_profile FROM sessions WHERE id = ?`, sessionID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && id == "") {
		return models.DefaultProfileID, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load session: %w", err)
	}
	return id, nil
}

// SetActiveProfile records the session's active profile id
func (s *SQLStore) SetActiveProfile(sessionID, id string) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, active_profile) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET active_profile = excluded.active_profile`,
		sessionID, id)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func requireRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
