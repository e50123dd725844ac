package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS images (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        filename TEXT,
        originalname TEXT,
        mimetype TEXT,
        size INTEGER,
        path TEXT,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS chats (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        image_id INTEGER REFERENCES images(id),
        role TEXT,
        text TEXT,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// Image methods

func (s *SQLiteStore) InsertImage(meta ImageMeta) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO images (filename, originalname, mimetype, size, path) VALUES (?, ?, ?, ?, ?)",
		meta.Filename, meta.OriginalName, meta.MimeType, meta.Size, meta.Path,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert image: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted image id: %w", err)
	}
	return id, nil
}

// GetImage returns the image row for id, or nil when no such row exists.
func (s *SQLiteStore) GetImage(id int64) (*Image, error) {
	var img Image
	err := s.db.QueryRow(
		"SELECT id, filename, originalname, mimetype, size, path, created_at FROM images WHERE id = ?", id,
	).Scan(&img.ID, &img.Filename, &img.OriginalName, &img.MimeType, &img.Size, &img.Path, &img.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Image not found
		}
		return nil, fmt.Errorf("failed to query image: %w", err)
	}
	return &img, nil
}

// Chat methods

func (s *SQLiteStore) InsertChat(imageID *int64, role, text string) (int64, error) {
	stmt, err := s.db.Prepare("INSERT INTO chats (image_id, role, text) VALUES (?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare chat insert: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.Exec(imageID, role, text)
	if err != nil {
		return 0, fmt.Errorf("failed to execute chat insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted chat id: %w", err)
	}
	return id, nil
}

// GetChatsByImage returns every chat row tied to imageID in ascending id
// order, which matches insertion order since ids are assigned monotonically.
func (s *SQLiteStore) GetChatsByImage(imageID int64) ([]Chat, error) {
	rows, err := s.db.Query(
		"SELECT id, image_id, role, text, created_at FROM chats WHERE image_id = ? ORDER BY id ASC", imageID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	defer rows.Close()

	var chats []Chat
	for rows.Next() {
		var chat Chat
		var imgID sql.NullInt64
		if err := rows.Scan(&chat.ID, &imgID, &chat.Role, &chat.Text, &chat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat row: %w", err)
		}
		if imgID.Valid {
			chat.ImageID = &imgID.Int64
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat rows: %w", err)
	}
	return chats, nil
}

// CountChats reports the total number of chat rows. Used by tests and the
// health surface; reads are pure.
func (s *SQLiteStore) CountChats() (int64, error) {
	var n int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM chats").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chats: %w", err)
	}
	return n, nil
}

// CountImages reports the total number of image rows.
func (s *SQLiteStore) CountImages() (int64, error) {
	var n int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM images").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count images: %w", err)
	}
	return n, nil
}
