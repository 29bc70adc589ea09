package diagnostictest

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type diagnosticTestRepoMemory struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*DiagnosticTest
	order []uuid.UUID
}

// NewDiagnosticTestRepoMemory returns a process-local repository. Records are
// lost on exit; storage order is insertion order.
func NewDiagnosticTestRepoMemory() DiagnosticTestRepository {
	return &diagnosticTestRepoMemory{items: make(map[uuid.UUID]*DiagnosticTest)}
}

func (r *diagnosticTestRepoMemory) Create(_ context.Context, d *DiagnosticTest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[d.ID] = d.clone()
	r.order = append(r.order, d.ID)
	return nil
}

func (r *diagnosticTestRepoMemory) GetByID(_ context.Context, id uuid.UUID) (*DiagnosticTest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d.clone(), nil
}

func (r *diagnosticTestRepoMemory) List(_ context.Context, opts ListOptions) ([]*DiagnosticTest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]*DiagnosticTest, 0, len(r.order))
	for _, id := range r.order {
		items = append(items, r.items[id].clone())
	}
	if opts.OrderByTestDateDesc {
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].TestDate.After(items[j].TestDate)
		})
	}
	return items, nil
}

func (r *diagnosticTestRepoMemory) Update(_ context.Context, id uuid.UUID, c *Candidate) (*DiagnosticTest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := existing.clone()
	next.PatientName = c.PatientName
	next.TestType = c.TestType
	next.Result = c.Result
	next.Notes = nil
	if c.Notes != nil {
		n := *c.Notes
		next.Notes = &n
	}
	if c.TestDate != nil {
		next.TestDate = c.TestDate.UTC()
	}
	r.items[id] = next
	return next.clone(), nil
}

func (r *diagnosticTestRepoMemory) Delete(_ context.Context, id uuid.UUID) (*DiagnosticTest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(r.items, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return existing, nil
}

func (r *diagnosticTestRepoMemory) Ping(context.Context) error { return nil }
