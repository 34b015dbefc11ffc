package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"nara.app/nara-gateway/internal/store"
)

// EmailView selects a subset of the inbox for the dashboard.
type EmailView string

const (
	ViewAll       EmailView = "all"
	ViewUnread    EmailView = "unread"
	ViewImportant EmailView = "important"
	ViewToday     EmailView = "today"
	ViewUpcoming  EmailView = "upcoming"
	ViewCompleted EmailView = "completed"

	completedLimit = 10
)

// ParseEmailView validates a view name; empty means all.
func ParseEmailView(s string) (EmailView, error) {
	switch v := EmailView(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return ViewAll, nil
	case ViewAll, ViewUnread, ViewImportant, ViewToday, ViewUpcoming, ViewCompleted:
		return v, nil
	}
	return "", InvalidRequest(fmt.Sprintf("unknown email view %q", s))
}

// DashboardService serves the read-only dashboard data.
type DashboardService struct {
	store store.Store
	loc   *time.Location
	now   func() time.Time
}

func NewDashboardService(s store.Store, loc *time.Location) *DashboardService {
	if loc == nil {
		loc = time.UTC
	}
	return &DashboardService{store: s, loc: loc, now: time.Now}
}

func (s *DashboardService) ListContracts(ctx context.Context) ([]store.ContractSummary, error) {
	contracts, err := s.store.ListContractSummaries(ctx)
	if err != nil {
		return nil, Internal("list contract summaries", err)
	}
	if contracts == nil {
		contracts = []store.ContractSummary{}
	}
	return contracts, nil
}

func (s *DashboardService) GetContract(ctx context.Context, id string) (*store.ContractSummary, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, InvalidRequest("contract id is required")
	}
	contract, err := s.store.GetContractSummary(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NotFound("contract not found")
		}
		return nil, Internal("get contract summary", err)
	}
	return contract, nil
}

// ListEmails returns the emails of one view, newest first. The completed
// view is ordered by last update and capped.
func (s *DashboardService) ListEmails(ctx context.Context, view EmailView) ([]store.Email, error) {
	emails, err := s.store.ListEmails(ctx)
	if err != nil {
		return nil, Internal("list emails", err)
	}

	today := dayOf(s.now(), s.loc)
	out := []store.Email{}
	for _, e := range emails {
		if s.inView(e, view, today) {
			out = append(out, e)
		}
	}

	if view == ViewCompleted {
		sortByTimeDesc(out, func(e store.Email) int64 { return unixMilli(e.UpdatedAt) })
		if len(out) > completedLimit {
			out = out[:completedLimit]
		}
	}
	return out, nil
}

// CategorizeEmails groups every email into a dashboard category.
func (s *DashboardService) CategorizeEmails(ctx context.Context) ([]EmailCategory, error) {
	emails, err := s.store.ListEmails(ctx)
	if err != nil {
		return nil, Internal("list emails", err)
	}
	categories := categorize(emails)
	if categories == nil {
		categories = []EmailCategory{}
	}
	return categories, nil
}

// Ping checks the store is reachable.
func (s *DashboardService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *DashboardService) inView(e store.Email, view EmailView, today time.Time) bool {
	switch view {
	case ViewUnread:
		return !e.IsRead
	case ViewImportant:
		return e.IsImportant || e.IsStarred
	case ViewToday:
		return e.ReceivedAt != nil && dayOf(*e.ReceivedAt, s.loc).Equal(today)
	case ViewUpcoming:
		return e.ReceivedAt != nil && dayOf(*e.ReceivedAt, s.loc).After(today)
	case ViewCompleted:
		return e.IsRead
	}
	return true
}

// dayOf truncates t to midnight in loc.
func dayOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func unixMilli(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixMilli()
}

func sortByTimeDesc(emails []store.Email, key func(store.Email) int64) {
	sort.SliceStable(emails, func(a, b int) bool { return key(emails[a]) > key(emails[b]) })
}
