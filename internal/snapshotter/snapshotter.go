// Package snapshotter runs the periodic auto-snapshot policy for locally
// stored documents. Versions it creates are indistinguishable from manual
// ones except for their type; numbering stays the store's responsibility, so
// a manual snapshot landing mid-cycle is safe.
package snapshotter

import (
	"context"
	"log"
	"time"

	"github.com/snapvault/internal/apperr"
	"github.com/snapvault/internal/config"
	"github.com/snapvault/internal/store"
	"github.com/snapvault/internal/version"
)

// Snapshotter periodically checks documents for changes and records versions
type Snapshotter struct {
	store  store.Store
	config config.SnapshotConfig
}

// New creates a new Snapshotter instance
func New(st store.Store, cfg config.SnapshotConfig) *Snapshotter {
	return &Snapshotter{store: st, config: cfg}
}

// Start begins the snapshot loop
func (s *Snapshotter) Start(ctx context.Context) {
	// Run initial pass immediately
	s.run(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Snapshotter stopping...")
			return
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

// run performs a single snapshot cycle
func (s *Snapshotter) run(ctx context.Context) {
	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		log.Printf("Error listing documents: %v", err)
		return
	}

	for _, doc := range docs {
		if err := s.processDocument(ctx, doc); err != nil {
			log.Printf("Error snapshotting document %s: %v", doc.ID, err)
		}
	}
}

// processDocument snapshots one document if its content changed since the
// latest stored version.
func (s *Snapshotter) processDocument(ctx context.Context, doc store.Document) error {
	currentHash := store.HashContent(doc.Content)

	latest, err := s.store.ListVersions(ctx, doc.ID, 1, 0)
	if err != nil {
		return err
	}
	if len(latest) > 0 && latest[0].ContentHash == currentHash {
		// No change
		return nil
	}

	v, err := s.store.CreateVersion(ctx, version.CreateRequest{
		DocumentID: doc.ID,
		Content:    doc.Content,
		Title:      doc.Title,
		Type:       version.TypeAuto,
	})
	if err != nil {
		// Empty documents have nothing worth snapshotting.
		if apperr.Is(err, apperr.Validation) {
			return nil
		}
		return err
	}

	log.Printf("Recorded auto snapshot: %s (version %d)", doc.ID, v.VersionNumber)
	return nil
}

// RunNow triggers an immediate cycle (useful for testing or manual refresh)
func (s *Snapshotter) RunNow(ctx context.Context) {
	s.run(ctx)
}
