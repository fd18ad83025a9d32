package drafting

import (
	"time"

	"gorm.io/datatypes"
)

// ThreadCheckpoint is the durable row holding one thread's serialized State.
type ThreadCheckpoint struct {
	ThreadID   string         `gorm:"column:thread_id;type:text;primaryKey" json:"thread_id"`
	UserID     string         `gorm:"column:user_id;type:text;index" json:"user_id"`
	ProjectIdx int64          `gorm:"column:project_idx;index" json:"project_idx"`
	Target     string         `gorm:"column:target_chapter;type:text" json:"target_chapter"`
	State      datatypes.JSON `gorm:"column:state;type:jsonb;not null" json:"state"`
	UpdatedAt  time.Time      `gorm:"not null;index" json:"updated_at"`
}

func (ThreadCheckpoint) TableName() string { return "draft_thread_checkpoint" }

// ThreadSummary is one entry of the checkpoint listing.
type ThreadSummary struct {
	ThreadID      string    `json:"thread_id"`
	UserID        string    `json:"user_id"`
	ProjectIdx    int64     `json:"project_idx"`
	TargetChapter string    `json:"target_chapter"`
	UpdatedAt     time.Time `json:"updated_at"`
}
