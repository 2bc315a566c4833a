package workflow

import "scenecast/internal/queue"

// ConfigureStages registers the concrete stage handlers the workflow will run.
// Stages left nil are skipped; items parked at their start status wait until
// a manager with that stage configured picks them up.
func (m *Manager) ConfigureStages(set StageSet) {
	candidates := []pipelineStage{
		{name: "scripting", handler: set.Scripter, startStatus: queue.StatusPending, processingStatus: queue.StatusScripting, doneStatus: queue.StatusScripted},
		{name: "narration", handler: set.Narrator, startStatus: queue.StatusScripted, processingStatus: queue.StatusNarrating, doneStatus: queue.StatusNarrated},
		{name: "footage", handler: set.Footage, startStatus: queue.StatusNarrated, processingStatus: queue.StatusSourcing, doneStatus: queue.StatusSourced},
		{name: "render", handler: set.Renderer, startStatus: queue.StatusSourced, processingStatus: queue.StatusRendering, doneStatus: queue.StatusCompleted},
	}
	stages := make([]pipelineStage, 0, len(candidates))
	for _, stg := range candidates {
		if stg.handler != nil {
			stages = append(stages, stg)
		}
	}

	m.mu.Lock()
	m.pipeline = newPipeline(stages)
	m.mu.Unlock()
}
