package tasks

import (
	"context"
	"sync"

	"github.com/lherron/tasklens/internal/domain"
)

// Resolver resolves a bearer token to an identity. session.Resolver
// implements it.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*domain.Identity, error)
}

// Board combines task listing with session resolution.
type Board struct {
	service  *Service
	resolver Resolver
}

// NewBoard returns a Board.
func NewBoard(service *Service, resolver Resolver) *Board {
	return &Board{service: service, resolver: resolver}
}

// Result is what a page renders.
type Result struct {
	Tasks    []domain.TaskRecord
	Identity *domain.Identity
}

// Internal lists every task without scoping.
func (b *Board) Internal(ctx context.Context) (*Result, error) {
	all, err := b.service.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Tasks: all, Identity: domain.Anonymous()}, nil
}

// Scoped lists tasks and resolves token concurrently, then keeps the tasks
// visible to the resolved identity. When both fail the session failure
// is returned.
func (b *Board) Scoped(ctx context.Context, token string) (*Result, error) {
	var (
		wg       sync.WaitGroup
		all      []domain.TaskRecord
		identity *domain.Identity
		listErr  error
		sessErr  error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		all, listErr = b.service.ListTasks(ctx)
	}()
	go func() {
		defer wg.Done()
		identity, sessErr = b.resolver.Resolve(ctx, token)
	}()
	wg.Wait()

	if sessErr != nil {
		return nil, sessErr
	}
	if listErr != nil {
		return nil, listErr
	}
	return &Result{Tasks: View(all, identity), Identity: identity}, nil
}
