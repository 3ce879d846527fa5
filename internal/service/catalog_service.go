package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"storyverse/internal/domain"
	"storyverse/internal/repository"
)

// ContentLinker turns an object storage key into a short-lived URL.
type ContentLinker interface {
	ContentURL(ctx context.Context, key string) (string, error)
}

// BookView is a catalog entry plus the caller's access decision, when known.
type BookView struct {
	Book     domain.Book
	Decision *domain.Decision
}

// Reading is what an entitled reader gets back: either inline content or a
// URL to fetch it from.
type Reading struct {
	Book       domain.Book
	Content    string
	ContentURL string
}

type CatalogService interface {
	List(ctx context.Context) ([]domain.Book, error)
	// Get returns the book, with a decision when userID is non-empty.
	Get(ctx context.Context, bookID, userID string) (*BookView, error)
	Collection(ctx context.Context, userID string) ([]domain.Book, error)
	Read(ctx context.Context, userID, bookID string) (*Reading, error)
	Rate(ctx context.Context, userID, bookID string, rating float64) (*domain.Book, error)
}

type catalogService struct {
	users    repository.UserRepository
	books    repository.BookRepository
	progress repository.ProgressRepository
	linker   ContentLinker
	log      logrus.FieldLogger
}

// NewCatalogService builds the catalog service. linker may be nil when no
// object storage is configured.
func NewCatalogService(
	users repository.UserRepository,
	books repository.BookRepository,
	progress repository.ProgressRepository,
	linker ContentLinker,
	logger logrus.FieldLogger,
) CatalogService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &catalogService{
		users:    users,
		books:    books,
		progress: progress,
		linker:   linker,
		log:      logger.WithField("component", "catalog"),
	}
}

func (s *catalogService) List(ctx context.Context) ([]domain.Book, error) {
	books, err := s.books.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

func (s *catalogService) Get(ctx context.Context, bookID, userID string) (*BookView, error) {
	book, err := s.book(ctx, bookID)
	if err != nil {
		return nil, err
	}
	book.Content = ""
	view := &BookView{Book: *book}
	if userID == "" {
		return view, nil
	}
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	decision := domain.Decide(user, book)
	view.Decision = &decision
	return view, nil
}

func (s *catalogService) Collection(ctx context.Context, userID string) ([]domain.Book, error) {
	if _, err := s.user(ctx, userID); err != nil {
		return nil, err
	}
	books, err := s.books.ListOwnedBy(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list owned books: %w", err)
	}
	return books, nil
}

func (s *catalogService) Read(ctx context.Context, userID, bookID string) (*Reading, error) {
	user, book, err := s.entitled(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}

	out := &Reading{Book: *book, Content: book.Content}
	out.Book.Content = ""
	if book.ContentKey != "" && s.linker != nil {
		url, err := s.linker.ContentURL(ctx, book.ContentKey)
		if err != nil {
			return nil, fmt.Errorf("content url: %w", err)
		}
		out.ContentURL = url
	}

	s.markProgress(ctx, user.ID, book.ID, domain.ReadingStatusReading)
	return out, nil
}

func (s *catalogService) Rate(ctx context.Context, userID, bookID string, rating float64) (*domain.Book, error) {
	if math.IsNaN(rating) || rating < domain.MinRating || rating > domain.MaxRating {
		return nil, fmt.Errorf("%w: rating must be between %d and %d", ErrInvalidInput, domain.MinRating, domain.MaxRating)
	}
	user, book, err := s.entitled(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}

	rated, err := s.books.Rate(ctx, book.ID, rating)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("rate book: %w", err)
	}
	rated.Content = ""

	s.markProgress(ctx, user.ID, book.ID, domain.ReadingStatusCompleted)
	return rated, nil
}

func (s *catalogService) entitled(ctx context.Context, userID, bookID string) (*domain.User, *domain.Book, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	book, err := s.book(ctx, bookID)
	if err != nil {
		return nil, nil, err
	}
	if domain.Decide(user, book).Kind != domain.DecisionRead {
		return nil, nil, ErrNotEntitled
	}
	return user, book, nil
}

// markProgress is best effort; a lost progress write never fails the request.
func (s *catalogService) markProgress(ctx context.Context, userID, bookID string, status domain.ReadingStatus) {
	err := s.progress.Upsert(ctx, &domain.Progress{UserID: userID, BookID: bookID, Status: status})
	if err != nil {
		s.log.WithFields(logrus.Fields{"user_id": userID, "book_id": bookID}).WithError(err).Warn("record progress")
	}
}

func (s *catalogService) user(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *catalogService) book(ctx context.Context, id string) (*domain.Book, error) {
	book, err := s.books.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("load book: %w", err)
	}
	return book, nil
}
