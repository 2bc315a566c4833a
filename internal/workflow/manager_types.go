package workflow

import (
	"scenecast/internal/queue"
	"scenecast/internal/stage"
)

// StageSet bundles the concrete workflow handlers the manager orchestrates.
type StageSet struct {
	Scripter stage.Handler
	Narrator stage.Handler
	Footage  stage.Handler
	Renderer stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
}

type pipeline struct {
	stages             []pipelineStage
	statusOrder        []queue.Status
	stageByStart       map[queue.Status]pipelineStage
	processingStatuses []queue.Status
}

func newPipeline(stages []pipelineStage) *pipeline {
	p := &pipeline{
		stages:       stages,
		stageByStart: make(map[queue.Status]pipelineStage, len(stages)),
		statusOrder:  make([]queue.Status, 0, len(stages)),
	}
	for _, stg := range stages {
		p.stageByStart[stg.startStatus] = stg
		p.statusOrder = append(p.statusOrder, stg.startStatus)
		p.processingStatuses = append(p.processingStatuses, stg.processingStatus)
	}
	return p
}

func (p *pipeline) stageForStatus(status queue.Status) (pipelineStage, bool) {
	if p == nil {
		return pipelineStage{}, false
	}
	stg, ok := p.stageByStart[status]
	return stg, ok
}
