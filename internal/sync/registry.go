package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prodhub/prodhub/internal/entity"
	"github.com/prodhub/prodhub/internal/store"
)

// entityOps binds an entity type to its remote endpoint and local
// merge accessor. The engine dispatches through this table instead of
// switching on type names, so adding an entity type is one more row here.
type entityOps struct {
	// segment is the collection path under /api/.
	segment string

	// merge decodes one pulled record and applies it to the local store
	// under the recency policy. Reports whether the local row changed.
	merge func(ctx context.Context, raw json.RawMessage) (bool, error)
}

// buildRegistry wires every entity type to the store's typed accessors.
func buildRegistry(st *store.Store) map[entity.Type]entityOps {
	return map[entity.Type]entityOps{
		entity.TypeTask: {
			segment: entity.TypeTask.PathSegment(),
			merge: func(ctx context.Context, raw json.RawMessage) (bool, error) {
				var t entity.Task
				if err := json.Unmarshal(raw, &t); err != nil {
					return false, fmt.Errorf("failed to decode pulled task: %w", err)
				}
				return st.MergeRemoteTask(ctx, &t)
			},
		},
		entity.TypeExpense: {
			segment: entity.TypeExpense.PathSegment(),
			merge: func(ctx context.Context, raw json.RawMessage) (bool, error) {
				var e entity.Expense
				if err := json.Unmarshal(raw, &e); err != nil {
					return false, fmt.Errorf("failed to decode pulled expense: %w", err)
				}
				return st.MergeRemoteExpense(ctx, &e)
			},
		},
		entity.TypeNote: {
			segment: entity.TypeNote.PathSegment(),
			merge: func(ctx context.Context, raw json.RawMessage) (bool, error) {
				var n entity.Note
				if err := json.Unmarshal(raw, &n); err != nil {
					return false, fmt.Errorf("failed to decode pulled note: %w", err)
				}
				return st.MergeRemoteNote(ctx, &n)
			},
		},
		entity.TypeProject: {
			segment: entity.TypeProject.PathSegment(),
			merge: func(ctx context.Context, raw json.RawMessage) (bool, error) {
				var p entity.Project
				if err := json.Unmarshal(raw, &p); err != nil {
					return false, fmt.Errorf("failed to decode pulled project: %w", err)
				}
				return st.MergeRemoteProject(ctx, &p)
			},
		},
		entity.TypeCategory: {
			segment: entity.TypeCategory.PathSegment(),
			merge: func(ctx context.Context, raw json.RawMessage) (bool, error) {
				var c entity.Category
				if err := json.Unmarshal(raw, &c); err != nil {
					return false, fmt.Errorf("failed to decode pulled category: %w", err)
				}
				return st.MergeRemoteCategory(ctx, &c)
			},
		},
	}
}
