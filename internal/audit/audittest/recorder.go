// Package audittest provides an in-memory audit.Service for package tests.
package audittest

import (
	"context"
	"sync"

	"github.com/smallbiznis/kinesio/internal/audit/domain"
)

type Recorder struct {
	mu      sync.Mutex
	entries []domain.Entry
}

func (r *Recorder) Record(_ context.Context, entry domain.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *Recorder) List(context.Context, domain.ListRequest) (domain.ListResponse, error) {
	return domain.ListResponse{}, nil
}

func (r *Recorder) Entries() []domain.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Entry(nil), r.entries...)
}

// Last returns the most recent entry, or the zero Entry.
func (r *Recorder) Last() domain.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return domain.Entry{}
	}
	return r.entries[len(r.entries)-1]
}
