package persist

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spool/internal/shared"
)

// CachedMeta is one remembered extraction result: enough to rebuild a queue
// entry without asking the extractor again.
type CachedMeta struct {
	Locator   string    `json:"locator"`
	Title     string    `json:"title"`
	Duration  *float64  `json:"duration,omitempty"`
	Filename  string    `json:"filename,omitempty"`
	Extractor string    `json:"extractor,omitempty"`
	CachedAt  time.Time `json:"cached_at"`
}

// MetaCache is an opt-in sqlite cache of extraction metadata keyed by
// locator. It only ever stores serializable fields; hits still go through the
// normal entry constructors.
type MetaCache struct {
	db     *sql.DB
	logger *log.Logger
}

const metaCacheSchema = `
CREATE TABLE IF NOT EXISTS extraction_meta (
	locator    TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	duration   REAL,
	filename   TEXT NOT NULL DEFAULT '',
	extractor  TEXT NOT NULL DEFAULT '',
	cached_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_extraction_meta_cached_at ON extraction_meta(cached_at);
`

// OpenMetaCache opens (and if needed initializes) the cache database at path.
func OpenMetaCache(path string, logger *log.Logger) (*MetaCache, error) {
	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, err
	}
	shared.ConfigureDatabase(db, 1, 1)

	if _, err := db.Exec(metaCacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metadata cache: %w", err)
	}

	return &MetaCache{db: db, logger: logger}, nil
}

// Get looks up cached metadata for a locator. A miss returns (nil, nil).
func (c *MetaCache) Get(locator string) (*CachedMeta, error) {
	row := c.db.QueryRow(
		`SELECT locator, title, duration, filename, extractor, cached_at
		 FROM extraction_meta WHERE locator = ?`, locator)

	var m CachedMeta
	var duration sql.NullFloat64
	var cachedAt int64
	err := row.Scan(&m.Locator, &m.Title, &duration, &m.Filename, &m.Extractor, &cachedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query metadata cache: %w", err)
	}

	if duration.Valid {
		m.Duration = &duration.Float64
	}
	m.CachedAt = time.Unix(cachedAt, 0)
	return &m, nil
}

// Put upserts cached metadata for a locator.
func (c *MetaCache) Put(m CachedMeta) error {
	var duration any
	if m.Duration != nil {
		duration = *m.Duration
	}
	cachedAt := m.CachedAt
	if cachedAt.IsZero() {
		cachedAt = time.Now()
	}

	_, err := c.db.Exec(
		`INSERT INTO extraction_meta (locator, title, duration, filename, extractor, cached_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(locator) DO UPDATE SET
		   title = excluded.title,
		   duration = excluded.duration,
		   filename = excluded.filename,
		   extractor = excluded.extractor,
		   cached_at = excluded.cached_at`,
		m.Locator, m.Title, duration, m.Filename, m.Extractor, cachedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to cache metadata: %w", err)
	}

	if c.logger != nil {
		c.logger.Debugf("cached metadata for %s", m.Locator)
	}
	return nil
}

// Prune removes entries cached before the cutoff and reports how many were
// removed.
func (c *MetaCache) Prune(before time.Time) (int64, error) {
	res, err := c.db.Exec(`DELETE FROM extraction_meta WHERE cached_at < ?`, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune metadata cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned rows: %w", err)
	}
	return n, nil
}

// Stats reports the number of cached records and the oldest cache time.
// An empty cache reports a zero time.
func (c *MetaCache) Stats() (count int64, oldest time.Time, err error) {
	row := c.db.QueryRow(`SELECT COUNT(*), COALESCE(MIN(cached_at), 0) FROM extraction_meta`)

	var oldestUnix int64
	if err := row.Scan(&count, &oldestUnix); err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to read cache stats: %w", err)
	}
	if count > 0 {
		oldest = time.Unix(oldestUnix, 0)
	}
	return count, oldest, nil
}

// Close releases the underlying database handle.
func (c *MetaCache) Close() error {
	return c.db.Close()
}
