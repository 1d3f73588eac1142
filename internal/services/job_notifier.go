package services

import (
	"github.com/google/uuid"

	"github.com/sportlens/sportlens-backend/internal/sse"
	"github.com/sportlens/sportlens-backend/internal/types"
)

// JobNotifier is the side channel through which job lifecycle changes reach
// live subscribers. Every persisted mutation is mirrored here.
type JobNotifier interface {
	JobCreated(job *types.Job)
	JobUpdated(jobID uuid.UUID, updates map[string]any)
	AnalysisChunk(jobID uuid.UUID, chunk string, done bool)
}

type jobNotifier struct {
	hub *sse.Hub
}

func NewJobNotifier(hub *sse.Hub) JobNotifier {
	return &jobNotifier{hub: hub}
}

func (n *jobNotifier) JobCreated(job *types.Job) {
	n.hub.Broadcast(sse.Event{
		Type: sse.EventJobCreated,
		Data: map[string]any{
			"jobId":  job.ID,
			"type":   job.JobType,
			"status": job.Status,
		},
	})
}

func (n *jobNotifier) JobUpdated(jobID uuid.UUID, updates map[string]any) {
	data := map[string]any{"jobId": jobID}
	for k, v := range updates {
		data[k] = v
	}
	n.hub.Broadcast(sse.Event{
		Type: sse.EventJobUpdated,
		Data: data,
	})
}

func (n *jobNotifier) AnalysisChunk(jobID uuid.UUID, chunk string, done bool) {
	n.hub.Broadcast(sse.Event{
		Type: sse.EventAnalysisChunk,
		Data: map[string]any{
			"chunk": chunk,
			"done":  done,
			"jobId": jobID,
		},
	})
}
