// internal/services/board_service.go
package services

import (
	"context"
	"sync"

	"github.com/javajoker/tink-backend/internal/workflow"
)

// BoardService groups an actor's applications into board columns. Column
// sort modes are kept per user in memory and reset on restart.
type BoardService struct {
	apps *ApplicationService

	mu    sync.Mutex
	sorts map[int64]*workflow.SortState
}

func NewBoardService(apps *ApplicationService) *BoardService {
	return &BoardService{
		apps:  apps,
		sorts: make(map[int64]*workflow.SortState),
	}
}

func (s *BoardService) SortState(userID int64) *workflow.SortState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.sorts[userID]
	if !ok {
		state = workflow.NewSortState()
		s.sorts[userID] = state
	}
	return state
}

// ToggleSort advances the column's sort mode for one user.
func (s *BoardService) ToggleSort(userID int64, column string) workflow.SortMode {
	return s.SortState(userID).Toggle(column)
}

func (s *BoardService) Board(ctx context.Context, actor Actor) ([]workflow.ColumnGroup, error) {
	records, err := s.apps.All(ctx, actor)
	if err != nil {
		return nil, err
	}

	apps := make([]workflow.Application, 0, len(records))
	for i := range records {
		apps = append(apps, records[i].ToWorkflow())
	}
	return workflow.GroupByColumn(apps, s.SortState(actor.UserID)), nil
}
