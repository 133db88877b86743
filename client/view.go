package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cppla/calories/models"
)

var (
	// ErrInvalidInput is returned by Submit when CanSubmit is false.
	ErrInvalidInput = errors.New("food name and positive calories are required")
	// ErrSubmitInFlight is returned by Submit while another submit runs.
	ErrSubmitInFlight = errors.New("a submission is already in flight")
)

// State is a snapshot of what the client shows. A nil Entries or Summary
// means that part failed to load.
type State struct {
	Entries []models.FoodEntry
	Summary *models.DailyCalorieSummary
	Loading bool
}

// View owns the client state and the operations that change it.
type View struct {
	api API
	log *zap.Logger

	mu    sync.Mutex
	state State
}

// NewView creates an empty View backed by api.
func NewView(api API, log *zap.Logger) *View {
	if log == nil {
		log = zap.NewNop()
	}
	return &View{api: api, log: log}
}

// Snapshot returns a copy of the current state.
func (v *View) Snapshot() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.state
	if s.Entries != nil {
		s.Entries = append([]models.FoodEntry(nil), s.Entries...)
	}
	if s.Summary != nil {
		summary := *s.Summary
		s.Summary = &summary
	}
	return s
}

// Load fetches the entry list and today's summary concurrently. Each
// failure is logged and leaves that part unset; neither blocks the other.
func (v *View) Load(ctx context.Context) {
	var (
		g       errgroup.Group
		entries []models.FoodEntry
		summary *models.DailyCalorieSummary
	)
	// a plain Group: one failed load must not cancel the other
	g.Go(func() error {
		list, err := v.api.GetFoodEntries(ctx)
		if err != nil {
			v.log.Error("error fetching food entries", zap.Error(err))
			return nil
		}
		entries = list
		return nil
	})
	g.Go(func() error {
		s, err := v.api.GetDailyCalories(ctx, "")
		if err != nil {
			v.log.Error("error fetching daily calories", zap.Error(err))
			return nil
		}
		summary = &s
		return nil
	})
	_ = g.Wait()

	v.mu.Lock()
	v.state.Entries = entries
	v.state.Summary = summary
	v.mu.Unlock()
}

// CanSubmit reports whether the form input may be sent.
func CanSubmit(foodName string, calories int) bool {
	return strings.TrimSpace(foodName) != "" && calories > 0
}

// Submit creates an entry, prepends it to the list and adds its calories to
// the held total. On failure the state is left as it was.
func (v *View) Submit(ctx context.Context, foodName string, calories int) (models.FoodEntry, error) {
	if !CanSubmit(foodName, calories) {
		return models.FoodEntry{}, ErrInvalidInput
	}
	v.mu.Lock()
	if v.state.Loading {
		v.mu.Unlock()
		return models.FoodEntry{}, ErrSubmitInFlight
	}
	v.state.Loading = true
	v.mu.Unlock()

	entry, err := v.api.CreateFoodEntry(ctx, foodName, calories, uuid.NewString())

	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.Loading = false
	if err != nil {
		v.log.Error("error adding food entry", zap.Error(err))
		return models.FoodEntry{}, err
	}
	v.state.Entries = append([]models.FoodEntry{entry}, v.state.Entries...)
	if v.state.Summary != nil {
		// the summary may be for a day other than the entry's; accepted
		v.state.Summary.TotalCalories += int64(calories)
	}
	return entry, nil
}

// Render writes s as plain text. It reads nothing but s.
func Render(w io.Writer, s State) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if s.Summary != nil {
		fmt.Fprintf(tw, "Total calories for %s: %d\n", s.Summary.Date, s.Summary.TotalCalories)
	} else {
		fmt.Fprintln(tw, "Total calories: unavailable")
	}
	if s.Loading {
		fmt.Fprintln(tw, "Adding...")
	}
	fmt.Fprintln(tw)
	switch {
	case s.Entries == nil:
		fmt.Fprintln(tw, "Food entries: unavailable")
	case len(s.Entries) == 0:
		fmt.Fprintln(tw, "No food entries yet.")
	default:
		fmt.Fprintln(tw, "LOGGED AT\tFOOD\tCALORIES")
		for _, e := range s.Entries {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", e.LoggedAt.UTC().Format("2006-01-02 15:04"), e.FoodName, e.Calories)
		}
	}
	return tw.Flush()
}
