package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/gatic-backend/pkg/db/models"
	"github.com/angelmondragon/gatic-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gatic-backend/pkg/errors"
	pkgpagination "github.com/angelmondragon/gatic-backend/pkg/pagination"
)

type activityRepository interface {
	WithTx(tx *gorm.DB) *Repository
	Insert(ctx context.Context, entry *models.ActivityEntry) error
	List(ctx context.Context, opts listQuery) ([]models.ActivityEntry, error)
}

// Entry is one line to append to the activity log.
type Entry struct {
	Type        enums.ActivityType
	Description string
	Details     any
	Actor       string
	OccurredAt  time.Time
}

// Service appends to and reads the recent activity feed.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, entry Entry) error
	List(ctx context.Context, params ListParams) (*ListResult, error)
}

type service struct {
	repo activityRepository
	now  func() time.Time
}

func NewService(repo activityRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("activity repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// Record appends entry inside tx so it commits with the change it describes.
func (s *service) Record(ctx context.Context, tx *gorm.DB, entry Entry) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "activity must be recorded inside a transaction")
	}
	if !entry.Type.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown activity type %q", entry.Type)
	}
	if strings.TrimSpace(entry.Description) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "activity description is required")
	}
	actor := strings.TrimSpace(entry.Actor)
	if actor == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "activity actor is required")
	}

	row := &models.ActivityEntry{
		Type:        entry.Type,
		Description: entry.Description,
		Actor:       actor,
		OccurredAt:  entry.OccurredAt,
	}
	if row.OccurredAt.IsZero() {
		row.OccurredAt = s.now().UTC()
	}
	if entry.Details != nil {
		details, err := json.Marshal(entry.Details)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode activity details")
		}
		row.Details = details
	}

	if err := s.repo.WithTx(tx).Insert(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert activity entry")
	}
	return nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.Type != nil && !params.Type.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown tipo %q", *params.Type)
	}

	query := listQuery{
		activityType: params.Type,
		actor:        strings.TrimSpace(params.Actor),
		limit:        pkgpagination.LimitWithBuffer(params.Limit),
	}
	if params.Cursor != "" {
		cursor, err := pkgpagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list activity")
	}

	rows, next := pkgpagination.Page(rows, params.Limit, func(m models.ActivityEntry) pkgpagination.Cursor {
		return pkgpagination.Cursor{CreatedAt: m.OccurredAt, ID: m.ID}
	})
	items := make([]ListItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, toListItem(row))
	}
	return &ListResult{Items: items, Cursor: next}, nil
}
