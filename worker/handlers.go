package worker

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/drewmudry/manimgen-api/models"
	"github.com/drewmudry/manimgen-api/tasks"
)

// HandleSceneRender processes tasks from QueueSceneRender: it generates and
// renders the job's prompt, then records the outcome on the job.
func (p *Processor) HandleSceneRender(ctx context.Context, payload string) error {
	var task tasks.SceneRenderPayload
	if err := tasks.Unmarshal(payload, &task); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	job, err := models.FindJob(p.DB, task.JobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", task.JobID, err)
	}
	if job.Status != models.JobProcessing {
		log.WithField("job_id", job.ID).Warnf("Skipping job in status %s", job.Status)
		return nil
	}

	entry := log.WithField("job_id", job.ID)
	entry.Info("Rendering job")

	prompt := task.Prompt
	if prompt == "" {
		prompt = job.Prompt
	}

	result, err := p.Renderer.Generate(ctx, prompt)
	if err != nil {
		if markErr := job.MarkFailed(p.DB, err); markErr != nil {
			entry.Errorf("Could not record failure: %v", markErr)
		}
		return err
	}

	if err := job.MarkCompleted(p.DB, result.ArtifactPath); err != nil {
		return fmt.Errorf("record completion: %w", err)
	}
	entry.WithFields(log.Fields{"path": result.ArtifactPath, "elapsed": result.Elapsed}).Info("Job completed")
	return nil
}
