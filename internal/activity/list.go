package activity

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/gatic-backend/pkg/db/models"
	"github.com/angelmondragon/gatic-backend/pkg/enums"
	pkgpagination "github.com/angelmondragon/gatic-backend/pkg/pagination"
)

type ListParams struct {
	Type  *enums.ActivityType
	Actor string
	pkgpagination.Params
}

type ListResult struct {
	Items  []ListItem `json:"items"`
	Cursor string     `json:"cursor"`
}

type ListItem struct {
	ID          int64              `json:"id"`
	Type        enums.ActivityType `json:"tipo"`
	Description string             `json:"descripcion"`
	OccurredAt  time.Time          `json:"fecha"`
	Details     json.RawMessage    `json:"detalles,omitempty"`
	Actor       string             `json:"actor"`
}

type listQuery struct {
	activityType *enums.ActivityType
	actor        string
	limit        int
	cursor       *pkgpagination.Cursor
}

func toListItem(m models.ActivityEntry) ListItem {
	return ListItem{
		ID:          m.ID,
		Type:        m.Type,
		Description: m.Description,
		OccurredAt:  m.OccurredAt,
		Details:     m.Details,
		Actor:       m.Actor,
	}
}
