// Package archive tracks the folder of container files addressable by the
// analyze-by-filename endpoint: a recursive scanner plus a small SQLite
// metadata index. Parsed trees are never stored, only lookup metadata.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/kdelaney/msg-analyzer/internal/parser"
)

// ErrOutsideArchive is returned for filenames that resolve outside the
// archive folder.
var ErrOutsideArchive = errors.New("filename escapes the archive folder")

const schema = `
CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    file_path TEXT UNIQUE NOT NULL,
    subject TEXT,
    sender TEXT,
    date TEXT,
    attachment_count INTEGER DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'ok',
    indexed_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender);
`

// Entry is one indexed archive file
type Entry struct {
	FilePath        string `json:"file_path"`
	Subject         string `json:"subject"`
	Sender          string `json:"sender"`
	Date            string `json:"date"`
	AttachmentCount int    `json:"attachment_count"`
	Status          string `json:"status"`
	IndexedAt       string `json:"indexed_at"`
}

// Index is the SQLite-backed archive index
type Index struct {
	db   *sql.DB
	root string
	log  zerolog.Logger
}

// Open opens (and initializes) the index database for the given archive root
func Open(dbPath, root string, log zerolog.Logger) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to resolve archive root: %w", err)
	}

	return &Index{db: db, root: absRoot, log: log}, nil
}

// Close closes the index database
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Root returns the absolute archive root path
func (ix *Index) Root() string {
	return ix.root
}

// Resolve maps an archive-relative filename to an absolute path, rejecting
// anything that would escape the archive folder.
func (ix *Index) Resolve(name string) (string, error) {
	if name == "" {
		return "", ErrOutsideArchive
	}
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", ErrOutsideArchive
	}
	return filepath.Join(ix.root, clean), nil
}

// Upsert inserts or refreshes one entry
func (ix *Index) Upsert(e Entry) error {
	_, err := ix.db.Exec(`
		INSERT INTO messages (file_path, subject, sender, date, attachment_count, status, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(file_path) DO UPDATE SET
			subject = excluded.subject,
			sender = excluded.sender,
			date = excluded.date,
			attachment_count = excluded.attachment_count,
			status = excluded.status,
			indexed_at = CURRENT_TIMESTAMP
	`, e.FilePath, e.Subject, e.Sender, e.Date, e.AttachmentCount, e.Status)
	if err != nil {
		return fmt.Errorf("failed to upsert entry: %w", err)
	}
	return nil
}

// List returns up to limit entries, most recently indexed first
func (ix *Index) List(limit int) ([]Entry, error) {
	rows, err := ix.db.Query(`
		SELECT file_path, subject, sender, date, attachment_count, status, indexed_at
		FROM messages ORDER BY indexed_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.FilePath, &e.Subject, &e.Sender, &e.Date,
			&e.AttachmentCount, &e.Status, &e.IndexedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RefreshResult contains statistics about a refresh operation
type RefreshResult struct {
	Found   int `json:"found"`
	Indexed int `json:"indexed"`
	Failed  int `json:"failed"`
}

// Refresh rescans the archive folder and re-indexes every container with a
// bounded worker pool. Files that fail to parse are recorded with a failed
// status rather than aborting the refresh.
func (ix *Index) Refresh(ctx context.Context, walker *parser.Walker, workers int) (*RefreshResult, error) {
	files, err := NewScanner(ix.root).Scan()
	if err != nil {
		return nil, err
	}

	result := &RefreshResult{Found: len(files)}
	var mu sync.Mutex

	g := new(errgroup.Group)
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	start := time.Now()
	for _, relPath := range files {
		relPath := relPath
		g.Go(func() error {
			entry := Entry{FilePath: relPath, Status: "ok"}

			msg, err := walker.ParseFile(ctx, filepath.Join(ix.root, filepath.FromSlash(relPath)))
			if err != nil {
				ix.log.Warn().Str("file", relPath).Err(err).Msg("failed to index container")
				entry.Status = "failed"
			} else {
				entry.Subject = msg.Metadata.Subject
				entry.Sender = msg.Metadata.From
				entry.Date = msg.Metadata.Date
				entry.AttachmentCount = countAttachments(msg)
			}

			mu.Lock()
			defer mu.Unlock()
			if entry.Status == "ok" {
				result.Indexed++
			} else {
				result.Failed++
			}
			return ix.Upsert(entry)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ix.log.Info().Int("found", result.Found).Int("indexed", result.Indexed).
		Int("failed", result.Failed).Dur("took", time.Since(start)).
		Msg("archive refresh complete")
	return result, nil
}

func countAttachments(msg *parser.ParsedMessage) int {
	count := len(msg.NestedMessages)
	for _, docs := range msg.AttachmentsByKind {
		count += len(docs)
	}
	return count
}
