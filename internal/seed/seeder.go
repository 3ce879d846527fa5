package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"storyverse/internal/domain"
	"storyverse/internal/repository"
	"storyverse/internal/storage"
)

const defaultUploadConcurrency = 4

type Options struct {
	// Store is optional; without it content stays inline in the database.
	Store       storage.ContentStore
	Concurrency int
	Logger      logrus.FieldLogger
}

type Result struct {
	Inserted int
	Skipped  int
	Uploaded int
}

type Seeder struct {
	books       repository.BookRepository
	store       storage.ContentStore
	concurrency int
	log         logrus.FieldLogger
}

func NewSeeder(books repository.BookRepository, opts Options) *Seeder {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultUploadConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Seeder{
		books:       books,
		store:       opts.Store,
		concurrency: opts.Concurrency,
		log:         opts.Logger.WithField("component", "seed"),
	}
}

// Run inserts entries that are not in the catalog yet and, with a store
// configured, uploads their content in parallel.
func (s *Seeder) Run(ctx context.Context, entries []Entry) (Result, error) {
	var (
		res     Result
		created []Entry
	)
	for _, e := range entries {
		_, err := s.books.Get(ctx, e.ID)
		if err == nil {
			res.Skipped++
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return res, fmt.Errorf("lookup book %s: %w", e.ID, err)
		}

		if err := s.books.Create(ctx, &domain.Book{
			ID:        e.ID,
			Title:     e.Title,
			Author:    e.Author,
			CoverURL:  e.CoverURL,
			Content:   e.Content,
			Price:     e.Price,
			IsPremium: e.Premium,
		}); err != nil {
			return res, fmt.Errorf("insert book %s: %w", e.ID, err)
		}
		res.Inserted++
		created = append(created, e)
	}

	if s.store == nil || len(created) == 0 {
		return res, nil
	}

	var uploaded atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, e := range created {
		if e.Content == "" {
			continue
		}
		g.Go(func() error {
			key := s.store.Key(e.ID)
			if err := s.store.Put(gctx, key, strings.NewReader(e.Content), ""); err != nil {
				return err
			}
			if err := s.books.SetContentKey(gctx, e.ID, key); err != nil {
				return fmt.Errorf("set content key for %s: %w", e.ID, err)
			}
			uploaded.Add(1)
			s.log.WithFields(logrus.Fields{"book_id": e.ID, "key": key}).Debug("content uploaded")
			return nil
		})
	}
	err := g.Wait()
	res.Uploaded = int(uploaded.Load())
	if err != nil {
		return res, fmt.Errorf("upload content: %w", err)
	}
	return res, nil
}
