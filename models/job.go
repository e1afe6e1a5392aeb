package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/drewmudry/manimgen-api/internal/failure"
)

type JobStatus string

const (
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// ErrJobNotFound is returned by FindJob for unknown ids.
var ErrJobNotFound = errors.New("job not found")

// Job is one asynchronous generate-and-render request.
type Job struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Prompt    string    `gorm:"type:text;not null" json:"prompt"`
	Status    JobStatus `gorm:"size:20;not null;index;default:'processing'" json:"status"`
	VideoPath *string   `json:"video_path"`
	Error     *string   `gorm:"type:text" json:"error"`
	ErrorCode *string   `gorm:"size:40" json:"error_code,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}

// AutoMigrate creates or updates every table the service owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Job{})
}

// NewJob stores a job in the processing state.
func NewJob(db *gorm.DB, prompt string) (*Job, error) {
	job := &Job{
		ID:     uuid.NewString(),
		Prompt: prompt,
		Status: JobProcessing,
	}
	if err := db.Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

// FindJob loads a job by id.
func FindJob(db *gorm.DB, id string) (*Job, error) {
	var job Job
	err := db.First(&job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// MarkCompleted records the rendered video. A late success replaces an
// earlier stale-job failure.
func (j *Job) MarkCompleted(db *gorm.DB, videoPath string) error {
	j.Status = JobCompleted
	j.VideoPath = &videoPath
	j.Error = nil
	j.ErrorCode = nil
	return db.Model(j).Select("status", "video_path", "error", "error_code").Updates(j).Error
}

// MarkFailed records err on a job that is still processing. A completed job
// is left untouched.
func (j *Job) MarkFailed(db *gorm.DB, err error) error {
	msg := failure.MessageOf(err)
	code := string(failure.CodeOf(err))

	res := db.Model(&Job{}).
		Where("id = ? AND status = ?", j.ID, JobProcessing).
		Updates(map[string]any{
			"status":     JobFailed,
			"error":      msg,
			"error_code": code,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		j.Status = JobFailed
		j.Error = &msg
		j.ErrorCode = &code
	}
	return nil
}

// StaleJobs returns jobs still processing that were created before olderThan ago.
func StaleJobs(db *gorm.DB, olderThan time.Duration) ([]Job, error) {
	var jobs []Job
	err := db.Where("status = ? AND created_at < ?", JobProcessing, time.Now().Add(-olderThan)).
		Order("created_at").
		Find(&jobs).Error
	return jobs, err
}
