package crawl

import (
	"context"
	"fmt"

	"github.com/lysyi3m/mp-comb/app/source"
)

// PlanningError means the total item count could not be determined, so no
// page can be requested. It aborts the whole crawl.
type PlanningError struct {
	TotalDeclared int
	Err           error
}

func (e *PlanningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to determine total count: %v", e.Err)
	}
	return fmt.Sprintf("remote declared no items (total count %d)", e.TotalDeclared)
}

func (e *PlanningError) Unwrap() error {
	return e.Err
}

type Plan struct {
	Offsets       []int
	TotalDeclared int
	PageSize      int
}

// PlanOffsets asks src for its declared total and derives one offset per page.
// The declared total may be wrong in either direction; pages past the real end
// come back empty and are handled by the orchestrator's empty streak.
func PlanOffsets(ctx context.Context, src source.Source, pageSize int) (*Plan, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", pageSize)
	}

	total, err := src.TotalCount(ctx)
	if err != nil {
		return nil, &PlanningError{Err: err}
	}
	if total <= 0 {
		return nil, &PlanningError{TotalDeclared: total}
	}

	pages := (total + pageSize - 1) / pageSize
	offsets := make([]int, pages)
	for i := range offsets {
		offsets[i] = i * pageSize
	}

	return &Plan{Offsets: offsets, TotalDeclared: total, PageSize: pageSize}, nil
}
