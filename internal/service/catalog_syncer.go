package service

import (
	"context"
	"encoding/json"
	"sync"

	"buildpos/internal/cache"
	"buildpos/internal/client"
	"buildpos/internal/dto"
	"buildpos/internal/model"

	"github.com/rs/zerolog/log"
)

// CatalogSyncer keeps a terminal's local products/categories view aligned
// with the other terminals. It is the single owner of the mirror channel on
// the terminal side:
//
//   - after a local catalog commit, the committed snapshot is broadcast;
//   - a received frame is applied only when its versions are at least as new
//     as the local ones, otherwise a fresh store get is issued — the mirror
//     is a hint, the store is the truth;
//   - on every (re)connect a full resync runs, since frames sent while
//     disconnected are gone.
type CatalogSyncer struct {
	store *client.Store
	cache *cache.Cache

	mu                sync.RWMutex
	products          json.RawMessage
	categories        json.RawMessage
	productsVersion   int64
	categoriesVersion int64

	mirror *client.Mirror
}

func NewCatalogSyncer(store *client.Store, c *cache.Cache) *CatalogSyncer {
	s := &CatalogSyncer{
		store:      store,
		cache:      c,
		products:   json.RawMessage("[]"),
		categories: json.RawMessage("[]"),
	}

	// Prime the local view from cache so the terminal renders instantly.
	if entry, ok := c.Read(model.TableProducts); ok {
		s.products, s.productsVersion = entry.Items, entry.Version
	}
	if entry, ok := c.Read(model.TableCategories); ok {
		s.categories, s.categoriesVersion = entry.Items, entry.Version
	}
	return s
}

// Start dials the mirror and runs it until ctx is cancelled or Stop is
// called.
func (s *CatalogSyncer) Start(ctx context.Context) {
	s.mirror = client.NewMirror(s.store, client.MirrorConfig{
		OnFrame:  func(f dto.MirrorFrame) { s.applyFrame(ctx, f) },
		OnResync: func() { s.Resync(ctx) },
	})
	go s.mirror.Run(ctx)
}

// Stop closes the mirror connection.
func (s *CatalogSyncer) Stop() {
	if s.mirror != nil {
		s.mirror.Close()
	}
}

// Snapshot returns the current local catalog view with its versions.
func (s *CatalogSyncer) Snapshot() dto.MirrorFrame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return dto.MirrorFrame{
		Products:          s.products,
		Categories:        s.categories,
		ProductsVersion:   s.productsVersion,
		CategoriesVersion: s.categoriesVersion,
	}
}

// BroadcastProducts records a committed products snapshot and notifies
// peers. The write to the store has already happened — the emit is only a
// notification and may fail without consequence.
func (s *CatalogSyncer) BroadcastProducts(ctx context.Context, items json.RawMessage, version int64) {
	s.mu.Lock()
	s.products, s.productsVersion = items, version
	frame := s.frameLocked()
	s.mu.Unlock()
	s.emit(frame)
}

// BroadcastCategories is the categories counterpart of BroadcastProducts.
func (s *CatalogSyncer) BroadcastCategories(ctx context.Context, items json.RawMessage, version int64) {
	s.mu.Lock()
	s.categories, s.categoriesVersion = items, version
	frame := s.frameLocked()
	s.mu.Unlock()
	s.emit(frame)
}

// Resync re-fetches both catalog tables from the store, replacing whatever
// the mirror delivered meanwhile.
func (s *CatalogSyncer) Resync(ctx context.Context) {
	prodEnv, err := s.store.Get(ctx, model.TableProducts)
	if err != nil {
		log.Warn().Err(err).Msg("catalog resync: products fetch failed")
		return
	}
	catEnv, err := s.store.Get(ctx, model.TableCategories)
	if err != nil {
		log.Warn().Err(err).Msg("catalog resync: categories fetch failed")
		return
	}

	s.mu.Lock()
	s.products, s.productsVersion = prodEnv.Items, prodEnv.Version
	s.categories, s.categoriesVersion = catEnv.Items, catEnv.Version
	s.mu.Unlock()

	s.cache.Write(model.TableProducts, prodEnv.Version, prodEnv.Items)
	s.cache.Write(model.TableCategories, catEnv.Version, catEnv.Items)
}

// applyFrame accepts an incoming snapshot when it is at least as new as the
// local view on both tables; a stale frame triggers a store resync instead
// of a blind overwrite.
func (s *CatalogSyncer) applyFrame(ctx context.Context, f dto.MirrorFrame) {
	s.mu.Lock()
	fresh := f.ProductsVersion >= s.productsVersion && f.CategoriesVersion >= s.categoriesVersion
	if fresh {
		s.products, s.productsVersion = f.Products, f.ProductsVersion
		s.categories, s.categoriesVersion = f.Categories, f.CategoriesVersion
	}
	s.mu.Unlock()

	if !fresh {
		log.Debug().
			Int64("frame_products_version", f.ProductsVersion).
			Msg("stale mirror frame, resyncing from store")
		s.Resync(ctx)
		return
	}

	s.cache.Write(model.TableProducts, f.ProductsVersion, f.Products)
	s.cache.Write(model.TableCategories, f.CategoriesVersion, f.Categories)
}

func (s *CatalogSyncer) frameLocked() dto.MirrorFrame {
	return dto.MirrorFrame{
		Products:          s.products,
		Categories:        s.categories,
		ProductsVersion:   s.productsVersion,
		CategoriesVersion: s.categoriesVersion,
	}
}

func (s *CatalogSyncer) emit(frame dto.MirrorFrame) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.Emit(frame); err != nil {
		log.Warn().Err(err).Msg("mirror emit failed, peers will catch up on resync")
	}
}
