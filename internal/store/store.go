package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type Upload struct {
	ID         string    `json:"id"`
	GroupID    int64     `json:"group_id"`
	UserID     int64     `json:"user_id"`
	AlbumID    string    `json:"album_id"`
	AlbumName  string    `json:"album_name"`
	Source     string    `json:"source"`
	LocalPath  string    `json:"local_path,omitempty"`
	Size       int64     `json:"size"`
	Retained   bool      `json:"retained"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type Album struct {
	GroupID    int64     `json:"group_id"`
	AlbumID    string    `json:"album_id"`
	Name       string    `json:"name"`
	Uploads    int       `json:"uploads"`
	LastUpload time.Time `json:"last_upload"`
}

type UploadStore struct {
	db *sql.DB
}

type ListUploadsParams struct {
	GroupID   *int64
	AlbumName *string
	Since     *time.Time
	Limit     int
	Page      int
}

func NewUploadStore(dbPath string) (*UploadStore, error) {
	// Create directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %v", err)
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS albums (
			group_id INTEGER,
			album_id TEXT,
			name TEXT,
			last_upload TIMESTAMP,
			PRIMARY KEY (group_id, album_id)
		);

		CREATE TABLE IF NOT EXISTS uploads (
			id TEXT PRIMARY KEY,
			group_id INTEGER,
			user_id INTEGER,
			album_id TEXT,
			album_name TEXT,
			source TEXT,
			local_path TEXT,
			size INTEGER,
			retained BOOLEAN DEFAULT 1,
			uploaded_at TIMESTAMP,
			FOREIGN KEY (group_id, album_id) REFERENCES albums(group_id, album_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %v", err)
	}

	return &UploadStore{db: db}, nil
}

func (s *UploadStore) Close() error {
	return s.db.Close()
}

// RecordUpload stores a completed upload and bumps its album's last upload
// time.
// RecordUpload stores u and bumps its album's last upload time. Times are
// stored in UTC so Since filters compare correctly.
func (s *UploadStore) RecordUpload(u Upload) error {
	u.UploadedAt = u.UploadedAt.UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO albums (group_id, album_id, name, last_upload) VALUES (?, ?, ?, ?)
		ON CONFLICT(group_id, album_id) DO UPDATE SET
			name = CASE WHEN excluded.name IS NOT NULL AND excluded.name != '' THEN excluded.name ELSE albums.name END,
			last_upload = MAX(albums.last_upload, excluded.last_upload)`,
		u.GroupID, u.AlbumID, u.AlbumName, u.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store album: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO uploads (id, group_id, user_id, album_id, album_name, source, local_path, size, retained, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.GroupID, u.UserID, u.AlbumID, u.AlbumName, u.Source, u.LocalPath, u.Size, u.Retained, u.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store upload: %w", err)
	}

	return tx.Commit()
}

func (s *UploadStore) ListUploads(params ListUploadsParams) ([]Upload, error) {
	query := `SELECT id, group_id, user_id, album_id, album_name, source, local_path, size, retained, uploaded_at
	          FROM uploads WHERE 1=1`
	args := []interface{}{}

	if params.GroupID != nil {
		query += " AND group_id = ?"
		args = append(args, *params.GroupID)
	}
	if params.AlbumName != nil {
		query += " AND album_name = ?"
		args = append(args, *params.AlbumName)
	}
	if params.Since != nil {
		query += " AND uploaded_at >= ?"
		args = append(args, params.Since.UTC())
	}

	query += " ORDER BY uploaded_at DESC LIMIT ? OFFSET ?"
	args = append(args, params.Limit, params.Page*params.Limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var uploads []Upload
	for rows.Next() {
		var u Upload
		var localPath sql.NullString
		if err := rows.Scan(&u.ID, &u.GroupID, &u.UserID, &u.AlbumID, &u.AlbumName, &u.Source, &localPath, &u.Size, &u.Retained, &u.UploadedAt); err != nil {
			return nil, err
		}
		// Deleted local copies are not worth pointing at.
		if localPath.Valid && u.Retained {
			u.LocalPath = localPath.String
		}
		uploads = append(uploads, u)
	}

	return uploads, rows.Err()
}

// ListAlbums returns the albums a group has uploaded to, most recently used
// first.
func (s *UploadStore) ListAlbums(groupID int64) ([]Album, error) {
	rows, err := s.db.Query(`
		SELECT a.group_id, a.album_id, a.name, a.last_upload, COUNT(u.id)
		FROM albums a LEFT JOIN uploads u ON u.group_id = a.group_id AND u.album_id = a.album_id
		WHERE a.group_id = ?
		GROUP BY a.group_id, a.album_id
		ORDER BY a.last_upload DESC
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var albums []Album
	for rows.Next() {
		var a Album
		if err := rows.Scan(&a.GroupID, &a.AlbumID, &a.Name, &a.LastUpload, &a.Uploads); err != nil {
			return nil, err
		}
		albums = append(albums, a)
	}

	return albums, rows.Err()
}
