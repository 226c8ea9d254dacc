package overlay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/cexll/checklist-gate/internal/uistate"
)

// State is the per PR presentation state.
type State struct {
	Collapsed bool `json:"collapsed"`
	Hidden    bool `json:"hidden"`
}

// Key is the store key for a pull request.
func Key(owner, repo string, number int) string {
	return fmt.Sprintf("overlay:%s/%s#%d", owner, repo, number)
}

// LoadState reads the state for key. Missing or unreadable values yield the
// zero State.
func LoadState(ctx context.Context, store uistate.Store, key string) (State, error) {
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return State{}, fmt.Errorf("load overlay state: %w", err)
	}
	if !ok {
		return State{}, nil
	}
	var st State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		log.Printf("[Overlay] Discarding unreadable state for %s: %v", key, err)
		return State{}, nil
	}
	return st, nil
}

func SaveState(ctx context.Context, store uistate.Store, key string, st State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode overlay state: %w", err)
	}
	if err := store.Set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("save overlay state: %w", err)
	}
	return nil
}

// Toggle flips visibility of the summary and returns the new state.
func Toggle(ctx context.Context, store uistate.Store, key string) (State, error) {
	return update(ctx, store, key, func(st *State) { st.Hidden = !st.Hidden })
}

// ToggleCollapse flips the collapsed flag and returns the new state.
func ToggleCollapse(ctx context.Context, store uistate.Store, key string) (State, error) {
	return update(ctx, store, key, func(st *State) { st.Collapsed = !st.Collapsed })
}

func update(ctx context.Context, store uistate.Store, key string, fn func(*State)) (State, error) {
	st, err := LoadState(ctx, store, key)
	if err != nil {
		return State{}, err
	}
	fn(&st)
	if err := SaveState(ctx, store, key, st); err != nil {
		return State{}, err
	}
	return st, nil
}
