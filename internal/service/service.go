package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"cafepos/internal/cache"
	"cafepos/internal/printer"
	"cafepos/internal/receipt"
	"cafepos/internal/store"
)

// ValidationError reports rejected input before any side effect.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return store.ErrInvalid }

func invalid(field string, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

type Options struct {
	Cache     cache.ReportCache
	Printer   printer.Printer
	PageWidth int
	Location  *time.Location
	Now       func() time.Time
}

type Service struct {
	repo      store.Repository
	cache     cache.ReportCache
	printer   printer.Printer
	pageWidth int
	loc       *time.Location
	now       func() time.Time
	validate  *validator.Validate
	logger    zerolog.Logger

	// writeMu keeps at most one write transaction in flight.
	writeMu sync.Mutex
}

func New(repo store.Repository, opts Options) *Service {
	if opts.Cache == nil {
		opts.Cache = cache.NoopReportCache{}
	}
	if opts.Printer == nil {
		opts.Printer = printer.NullPrinter{}
	}
	if opts.PageWidth <= 0 {
		opts.PageWidth = receipt.DefaultPageWidth
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		repo:      repo,
		cache:     opts.Cache,
		printer:   opts.Printer,
		pageWidth: opts.PageWidth,
		loc:       opts.Location,
		now:       opts.Now,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    log.With().Str("component", "service").Logger(),
	}
}

func (s *Service) Repository() store.Repository { return s.repo }

func (s *Service) Location() *time.Location { return s.loc }

func (s *Service) PageWidth() int { return s.pageWidth }

// Commit applies uow atomically and then drops cached reports.
func (s *Service) Commit(ctx context.Context, uow *store.UnitOfWork) error {
	if uow.Len() == 0 {
		return nil
	}

	s.writeMu.Lock()
	err := s.repo.Commit(ctx, uow)
	s.writeMu.Unlock()
	if err != nil {
		return err
	}

	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("report cache invalidation failed")
	}
	return nil
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// check runs struct validation and converts failures into a ValidationError.
func (s *Service) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields[jsonName(fe.Field())] = describe(fe)
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return fmt.Sprintf("failed %s", fe.Tag())
	}
}

// jsonName turns a Go field name such as StockQty into stock_qty.
func jsonName(field string) string {
	var b strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
