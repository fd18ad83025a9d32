package checkpoint

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/bizplan-backend/internal/domain/drafting"
	"github.com/yungbote/bizplan-backend/internal/platform/logger"
)

// GormStore keeps one draft_thread_checkpoint row per thread, replaced by
// an upsert on Save.
type GormStore struct {
	db  *gorm.DB
	log *logger.Logger
	now func() time.Time
}

func NewGormStore(db *gorm.DB, log *logger.Logger) *GormStore {
	if log == nil {
		log = logger.Nop()
	}
	return &GormStore{db: db, log: log.With("repo", "ThreadCheckpointRepo"), now: time.Now}
}

func (s *GormStore) Load(ctx context.Context, threadID string) (*drafting.State, error) {
	id, err := validThreadID(threadID)
	if err != nil {
		return nil, err
	}
	var row drafting.ThreadCheckpoint
	err = s.db.WithContext(ctx).Where("thread_id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decode(row.State)
}

func (s *GormStore) Save(ctx context.Context, threadID string, st *drafting.State) error {
	id, err := validThreadID(threadID)
	if err != nil {
		return err
	}
	raw, err := encode(st, s.now())
	if err != nil {
		return err
	}
	row := &drafting.ThreadCheckpoint{
		ThreadID:   id,
		UserID:     st.UserID,
		ProjectIdx: st.ProjectIdx,
		Target:     st.TargetChapter,
		State:      datatypes.JSON(raw),
		UpdatedAt:  st.UpdatedAt,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "thread_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "project_idx", "target_chapter", "state", "updated_at"}),
	}).Create(row).Error
}

func (s *GormStore) List(ctx context.Context) ([]drafting.ThreadSummary, error) {
	var rows []drafting.ThreadCheckpoint
	if err := s.db.WithContext(ctx).
		Select("thread_id", "user_id", "project_idx", "target_chapter", "updated_at").
		Order("updated_at DESC, thread_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]drafting.ThreadSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, drafting.ThreadSummary{
			ThreadID:      r.ThreadID,
			UserID:        r.UserID,
			ProjectIdx:    r.ProjectIdx,
			TargetChapter: r.Target,
			UpdatedAt:     r.UpdatedAt,
		})
	}
	return out, nil
}
