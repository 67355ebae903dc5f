package signature

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// cachedSignature is the row shape persisted by Cache. Signatures are
// stored as their rendered String() form — the registry cache only needs
// to decide "did the signature sources change since last time", not
// reconstruct live types.Type values, so a string snapshot is sufficient
// and keeps the cache schema independent of the in-memory type
// representation.
type cachedSignature struct {
	gorm.Model
	SourceDigest string `gorm:"index"`
	Owner        string `gorm:"index"`
	Method       string
	Rendered     string
}

// Cache is a durable cross-compile cache over SignatureRegistry entries
// (§5: "Signature registry may be cached between compiles only if
// signature sources are unchanged"). It is backed by a pure-Go sqlite
// driver (no cgo), matching how termfx-morfx wires gorm to
// github.com/glebarez/sqlite.
type Cache struct {
	db *gorm.DB
}

// OpenCache opens (creating if necessary) a registry cache at path.
func OpenCache(path string) (*Cache, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open signature cache: %w", err)
	}
	if err := db.AutoMigrate(&cachedSignature{}); err != nil {
		return nil, fmt.Errorf("migrate signature cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Store persists the registry's method table under sourceDigest, a
// caller-computed hash of every signature source that fed the registry
// (signature files + inline annotations). A subsequent Load with a
// matching digest returns that snapshot; internal/pipeline only traces
// such a hit and still runs inference over the sources.
func (c *Cache) Store(sourceDigest string, entries map[string]string) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("source_digest = ?", sourceDigest).Delete(&cachedSignature{}).Error; err != nil {
			return err
		}
		for ownerMethod, rendered := range entries {
			owner, method := splitOwnerMethod(ownerMethod)
			row := cachedSignature{SourceDigest: sourceDigest, Owner: owner, Method: method, Rendered: rendered}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Load returns the cached rendered-signature snapshot for sourceDigest,
// or ok=false if nothing is cached under it (a cold cache is never an
// error — callers fall back to re-ingesting signature sources).
func (c *Cache) Load(sourceDigest string) (entries map[string]string, ok bool, err error) {
	var rows []cachedSignature
	if err := c.db.Where("source_digest = ?", sourceDigest).Find(&rows).Error; err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	entries = make(map[string]string, len(rows))
	for _, r := range rows {
		entries[r.Owner+"#"+r.Method] = r.Rendered
	}
	return entries, true, nil
}

// Close releases the underlying sqlite connection.
func (c *Cache) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func splitOwnerMethod(s string) (owner, method string) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '#' {
			return s[:i], s[i+1:]
		}
	}
	return "", s
}
