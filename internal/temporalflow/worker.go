package temporalflow

import (
	"fmt"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/antigravity-dev/marketing-orchestrator/internal/director"
	"github.com/antigravity-dev/marketing-orchestrator/internal/pipeline"
)

// TaskQueue is the Temporal task queue this module's workflows/activities
// run on.
const TaskQueue = "marketing-orchestrator"

// StartWorker connects to Temporal and runs a worker hosting the pipeline
// and goal workflows until interrupted. hostPort is typically
// "127.0.0.1:7233" for a local Temporal dev server.
func StartWorker(hostPort string, eng *pipeline.Engine, dir *director.Director) error {
	c, err := client.Dial(client.Options{HostPort: hostPort})
	if err != nil {
		return fmt.Errorf("temporalflow: dial temporal: %w", err)
	}
	defer c.Close()

	w := worker.New(c, TaskQueue, worker.Options{})

	acts := &Activities{Engine: eng, Director: dir}

	w.RegisterWorkflow(PipelineWorkflow)
	w.RegisterWorkflow(GoalWorkflow)
	w.RegisterActivity(acts.AdvancePipelineActivity)
	w.RegisterActivity(acts.AdvanceGoalActivity)

	return w.Run(worker.InterruptCh())
}
