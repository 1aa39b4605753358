// Package services holds the reference backend's business rules: input
// validation, persistence through a storage.Repository and change events
// announced after every successful mutation.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"expenses/internal/amqp"
	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/storage"
)

// ErrInvalid wraps every input validation failure.
var ErrInvalid = errors.New("invalid input")

// Publisher announces change events. Publishing is best effort.
type Publisher interface {
	Publish(ctx context.Context, ev *amqp.ChangeEvent) error
}

// ExpenseService orchestrates expense and category operations across the
// repository and the event publisher.
type ExpenseService struct {
	repo      storage.Repository
	publisher Publisher
	logger    *log.Logger
}

// NewExpenseService wires repo and an optional publisher (nil disables events).
func NewExpenseService(repo storage.Repository, publisher Publisher, logger *log.Logger) *ExpenseService {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExpenseService{
		repo:      repo,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentService),
	}
}

// Seed creates the default categories when the store has none.
func (s *ExpenseService) Seed(ctx context.Context, names ...string) error {
	n, err := storage.Seed(ctx, s.repo, names...)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "Seeded default categories", log.FieldCount, n)
	}
	return nil
}

func (s *ExpenseService) Categories(ctx context.Context) ([]core.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *ExpenseService) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	created, err := s.repo.CreateCategory(ctx, c.Name)
	if err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}

	s.logger.InfoContext(ctx, "Category created",
		log.NewFields().WithOperation(log.OpCreate).WithCategory(created.ID, created.Name).ToSlice()...)
	s.publish(ctx, amqp.NewCategoryEvent(amqp.ActionCreated, created))
	return created, nil
}

// DeleteCategory removes the category; its expenses become uncategorized.
func (s *ExpenseService) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.logger.InfoContext(ctx, "Category deleted",
		log.NewFields().WithOperation(log.OpDelete).WithCategory(id, "").ToSlice()...)
	s.publish(ctx, amqp.NewCategoryEvent(amqp.ActionDeleted, core.Category{ID: id}))
	return nil
}

func (s *ExpenseService) Expenses(ctx context.Context) ([]core.Expense, error) {
	return s.repo.ListExpenses(ctx)
}

func (s *ExpenseService) ExpensesByCategory(ctx context.Context, categoryID int64) ([]core.Expense, error) {
	return s.repo.ListExpensesByCategory(ctx, categoryID)
}

func (s *ExpenseService) Expense(ctx context.Context, id int64) (core.Expense, error) {
	return s.repo.GetExpense(ctx, id)
}

// CreateExpense stores e. A category reference to an unknown id is kept
// as given.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.Description = strings.TrimSpace(e.Description)
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	created, err := s.repo.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.logExpense(ctx, "Expense created", log.OpCreate, created)
	s.publish(ctx, amqp.NewExpenseEvent(amqp.ActionCreated, created))
	return created, nil
}

// UpdateExpense replaces every field of expense id.
func (s *ExpenseService) UpdateExpense(ctx context.Context, id int64, e core.Expense) (core.Expense, error) {
	e.ID = id
	e.Description = strings.TrimSpace(e.Description)
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	updated, err := s.repo.UpdateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	s.logExpense(ctx, "Expense updated", log.OpUpdate, updated)
	s.publish(ctx, amqp.NewExpenseEvent(amqp.ActionUpdated, updated))
	return updated, nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, id int64) error {
	if err := s.repo.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.logger.InfoContext(ctx, "Expense deleted", log.FieldOperation, log.OpDelete, log.FieldExpenseID, id)
	s.publish(ctx, amqp.NewExpenseEvent(amqp.ActionDeleted, core.Expense{ID: id}))
	return nil
}

func (s *ExpenseService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *ExpenseService) logExpense(ctx context.Context, msg, op string, e core.Expense) {
	fields := log.NewFields().WithOperation(op).WithExpense(e.ID, e.Description, e.Amount.String())
	if id, ok := e.CategoryID(); ok {
		fields = fields.WithCategory(id, e.Category.Name)
	}
	s.logger.InfoContext(ctx, msg, fields.ToSlice()...)
}

// publish never fails the caller: the mutation is already stored.
func (s *ExpenseService) publish(ctx context.Context, ev *amqp.ChangeEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish change event",
			log.FieldError, err,
			log.FieldEventID, ev.ID,
			log.FieldEntity, ev.Entity,
			log.FieldAction, ev.Action)
	}
}

// Close closes the repository.
func (s *ExpenseService) Close() error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.Close(); err != nil {
		return fmt.Errorf("close repository: %w", err)
	}
	return nil
}
