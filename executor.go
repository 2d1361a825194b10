package mrchain

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	pb "gopkg.in/cheggaaa/pb.v1"
)

// Executor walks a pipeline chain from root to tip, submitting one engine job
// per stage in dependency order. Execution is synchronous: each job blocks
// until completion before the next stage is submitted, and the first failure
// aborts the remainder of the walk.
type Executor struct {
	engine   Engine
	progress bool
	output   *IODescriptor
}

// Option allows configuration of an Executor.
type Option func(e *Executor)

// WithProgress renders a progress bar over the chain's stages.
func WithProgress() Option {
	return func(e *Executor) {
		e.progress = true
	}
}

// WithOutput overrides the final output location of any pipeline the Executor
// runs.
func WithOutput(out IODescriptor) Option {
	return func(e *Executor) {
		e.output = &out
	}
}

// NewExecutor creates an Executor submitting to the given engine.
func NewExecutor(engine Engine, options ...Option) *Executor {
	loadConfig()
	e := &Executor{engine: engine}
	for _, f := range options {
		f(e)
	}
	if viper.GetBool("verbose") {
		log.SetLevel(log.DebugLevel)
	}
	return e
}

// Execute materializes the pipeline: every stage in the chain is submitted as
// one engine job, in the order the stages were appended. Each stage reads its
// predecessor's declared inputs (or the predecessor's scratch output when none
// are declared) and writes to its own output. The first failure aborts the
// walk and is returned; stages past the failing one are never submitted.
func (e *Executor) Execute(ctx context.Context, p Pipeline) error {
	tip := p.chainTip()
	if tip == nil {
		return nil
	}
	if e.output != nil {
		tip = tip.clone()
		tip.output = *e.output
		tip.outputSet = true
	}

	var bar *pb.ProgressBar
	if stages := tip.stageCount(); e.progress && stages > 0 {
		bar = pb.New(stages).Prefix("Stages").Start()
		defer bar.Finish()
	}

	return e.executeNode(ctx, tip, bar)
}

func (e *Executor) executeNode(ctx context.Context, n *node, bar *pb.ProgressBar) error {
	if n.prev != nil {
		if err := e.executeNode(ctx, n.prev, bar); err != nil {
			return err
		}
	}

	// Nodes without a stage are pure annotations; the recursion above has
	// already run everything they depend on.
	if n.stage == nil {
		return nil
	}
	if n.prev == nil {
		return errors.Wrap(ErrNoPredecessor, n.stage.String())
	}

	conf, err := n.resolveConfig()
	if err != nil {
		return errors.Wrap(err, n.stage.String())
	}
	for _, m := range n.prev.confMods {
		m(conf)
	}

	job, err := e.engine.CreateJob(n.stage, conf)
	if err != nil {
		return errors.Wrapf(err, "creating job for %s", n.stage)
	}
	for _, m := range n.prev.jobMods {
		if err := m(job); err != nil {
			return errors.Wrapf(err, "applying job modifier for %s", n.stage)
		}
	}

	locations, format := n.prev.jobInputs()
	job.SetInputs(locations, format)
	job.SetOutput(n.output.Location, n.output.Format)

	log.Debugf("Submitting %s: inputs=%v output=%s", n.stage, locations, n.output.Location)
	if err := job.Submit(ctx); err != nil {
		return errors.Wrapf(err, "%s failed", n.stage)
	}

	if bar != nil {
		bar.Increment()
	}
	return nil
}

var (
	outFlag     = pflag.String("out", "", "Override the pipeline's final output location")
	verboseFlag = pflag.BoolP("verbose", "v", false, "Enable debug logging")
)

// Main runs the pipeline as a program entry point, wiring command-line flags
// into the Executor.
func (e *Executor) Main(p Pipeline) {
	pflag.Parse()

	if *verboseFlag {
		log.SetLevel(log.DebugLevel)
	}
	if *outFlag != "" {
		out := TextFile(*outFlag)
		e.output = &out
	}
	e.progress = true

	start := time.Now()
	if err := e.Execute(context.Background(), p); err != nil {
		log.Errorf("Pipeline failed: %s", err)
		os.Exit(1)
	}
	fmt.Printf("Pipeline Execution Time: %s\n", time.Since(start))
}
