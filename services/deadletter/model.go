package deadletter

import (
	"time"

	"gorm.io/datatypes"
)

// FailedJob is the durable record of a job the queue gave up on.
type FailedJob struct {
	ID        string         `gorm:"column:id;primaryKey;type:varchar(32)"`
	Queue     string         `gorm:"column:queue;index;type:varchar(50);not null"`
	TaskID    string         `gorm:"column:task_id;index;type:varchar(64)"`
	TaskType  string         `gorm:"column:task_type;type:varchar(50);not null"`
	Payload   datatypes.JSON `gorm:"column:payload"`
	ErrorMsg  string         `gorm:"column:error_msg;type:text"`
	Retried   int            `gorm:"column:retried"`
	MaxRetry  int            `gorm:"column:max_retry"`
	FailedAt  time.Time      `gorm:"column:failed_at;not null"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
}
