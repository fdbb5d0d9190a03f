package session

import (
	"golang.org/x/sync/errgroup"

	"github.com/Carmen-Shannon/oxy-rgtc/engine/renderer/pipeline"
)

// PipelineSource compiles a fresh, unregistered pipeline from its shader files and checks
// rebuilt pipelines against the bind groups it already created.
// The compressor and the display both satisfy it.
type PipelineSource interface {
	BuildPipeline() (pipeline.Pipeline, error)
	CheckPipeline(p pipeline.Pipeline) error
}

// PipelineRegistry creates GPU pipelines and swaps them into the active set, releasing the
// ones they replace. The renderer satisfies it.
type PipelineRegistry interface {
	ReloadPipelines(pipelines ...pipeline.Pipeline) error
}

// rendererPrograms is the ProgramBuilder backed by a renderer.
type rendererPrograms struct {
	registry PipelineRegistry
	sources  []PipelineSource
}

var _ ProgramBuilder = &rendererPrograms{}

// NewRendererPrograms returns a ProgramBuilder that compiles every source's pipeline
// concurrently, checks each against its source's live bind groups, and hands the set to the
// registry only when all of them passed.
//
// Parameters:
//   - registry: the pipeline registry, usually the renderer
//   - sources: the pipeline sources to rebuild on reload
//
// Returns:
//   - ProgramBuilder: the program builder
func NewRendererPrograms(registry PipelineRegistry, sources ...PipelineSource) ProgramBuilder {
	return &rendererPrograms{registry: registry, sources: sources}
}

func (r *rendererPrograms) ReloadPrograms() (int, error) {
	built := make([]pipeline.Pipeline, len(r.sources))
	var g errgroup.Group
	for i, src := range r.sources {
		g.Go(func() error {
			p, err := src.BuildPipeline()
			if err != nil {
				return err
			}
			if err := src.CheckPipeline(p); err != nil {
				return err
			}
			built[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	if err := r.registry.ReloadPipelines(built...); err != nil {
		return 0, err
	}
	return len(built), nil
}
