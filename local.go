package mrchain

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	humanize "github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/adamretter/mrchain/internal/pkg/chainfs"
)

// LocalEngine is an in-process execution engine. It runs each submitted job
// against a local or S3 file system, splitting inputs into byte-range splits
// for the map phase and shuffling reduce input by key hash. It is intended
// for development, testing, and single-machine workloads.
type LocalEngine struct {
	splitSize       int64
	mapBinSize      int64
	maxConcurrency  int64
	defaultReducers int
}

// NewLocalEngine creates a LocalEngine configured from the mrchain settings
// file and environment.
func NewLocalEngine() *LocalEngine {
	loadConfig()
	e := &LocalEngine{
		splitSize:       viper.GetInt64("split_size"),
		mapBinSize:      viper.GetInt64("map_bin_size"),
		maxConcurrency:  viper.GetInt64("max_concurrency"),
		defaultReducers: viper.GetInt("num_reducers"),
	}
	if e.splitSize > e.mapBinSize {
		log.Warn("Configured split size is larger than map bin size")
		e.splitSize = e.mapBinSize
	}
	if e.defaultReducers < 1 {
		log.Warnf("Invalid num_reducers %d; using 1", e.defaultReducers)
		e.defaultReducers = 1
	}
	return e
}

// CreateJob builds an unsubmitted local job for the given stage.
func (e *LocalEngine) CreateJob(stage *StageSpec, conf *Config) (Job, error) {
	if stage == nil {
		return nil, errors.New("cannot create a job without a stage")
	}
	return &localJob{
		id:       uuid.New(),
		engine:   e,
		stage:    stage,
		conf:     conf,
		reducers: e.defaultReducers,
	}, nil
}

type localJob struct {
	id     uuid.UUID
	engine *LocalEngine
	stage  *StageSpec
	conf   *Config

	inputs    []string
	inFormat  Format
	output    string
	outFormat Format
	reducers  int
	submitted bool
}

func (j *localJob) SetInputs(locations []string, format Format) {
	j.inputs = locations
	j.inFormat = format
}

func (j *localJob) SetOutput(location string, format Format) {
	j.output = location
	j.outFormat = format
}

func (j *localJob) SetConf(key, value string) {
	j.conf.Set(key, value)
}

func (j *localJob) SetReducers(n int) {
	if n > 0 {
		j.reducers = n
	}
}

// Submit runs the job to completion. The map phase runs input bins
// concurrently, bounded by the engine's max_concurrency setting; the reduce
// phase streams intermediate records into one goroutine per key, the usual
// channel-shuffle arrangement.
func (j *localJob) Submit(ctx context.Context) error {
	if j.submitted {
		return errors.Errorf("job %s submitted twice", j.id)
	}
	j.submitted = true

	if len(j.inputs) == 0 {
		return errors.Wrapf(ErrNoInputs, "job %s", j.id)
	}
	if j.output == "" {
		return errors.Wrapf(ErrNoOutput, "job %s", j.id)
	}

	fs := chainfs.InferFilesystem(j.inputs[0])
	log.Infof("Job %s (%s): %v -> %s", j.id, j.stage, j.inputs, j.output)

	switch j.stage.Kind {
	case MapKind:
		return j.runMapPhase(ctx, fs)
	case ReduceKind:
		return j.runReducePhase(ctx, fs)
	}
	return errors.Errorf("job %s: unknown stage kind %d", j.id, j.stage.Kind)
}

// inputFiles lists the concrete files behind the job's input locations.
// A location may be a file, a directory, or a glob.
func (j *localJob) inputFiles(fs chainfs.FileSystem) ([]chainfs.FileInfo, error) {
	files := make([]chainfs.FileInfo, 0)
	for _, location := range j.inputs {
		listed, err := fs.ListFiles(location)
		if err != nil {
			return nil, errors.Wrapf(err, "listing input location %s", location)
		}
		if len(listed) == 0 {
			log.Warnf("Job %s: input location %s matched no files", j.id, location)
		}
		files = append(files, listed...)
	}
	return files, nil
}

func (j *localJob) inputSplits(fs chainfs.FileSystem) ([]inputSplit, error) {
	files, err := j.inputFiles(fs)
	if err != nil {
		return nil, err
	}

	splits := make([]inputSplit, 0)
	for _, fInfo := range files {
		if j.inFormat == FormatText {
			splits = append(splits, splitInputFile(fInfo, j.engine.splitSize)...)
		} else if fInfo.Size > 0 {
			// Record files cannot be split mid-record; read them whole.
			splits = append(splits, inputSplit{
				Filename:  fInfo.Name,
				EndOffset: fInfo.Size - 1,
			})
		}
	}
	return splits, nil
}

func (j *localJob) runMapPhase(ctx context.Context, fs chainfs.FileSystem) error {
	splits, err := j.inputSplits(fs)
	if err != nil {
		return err
	}
	if len(splits) == 0 {
		log.Warnf("Job %s: no input splits", j.id)
		return nil
	}

	bins := packInputSplits(splits, j.engine.mapBinSize)
	log.Debugf("Job %s: %d input split(s) packed into %d bin(s)", j.id, len(splits), len(bins))

	sem := semaphore.NewWeighted(j.engine.maxConcurrency)
	grp, gctx := errgroup.WithContext(ctx)
	for binID, bin := range bins {
		binID, bin := binID, bin
		if err := sem.Acquire(gctx, 1); err != nil {
			grp.Wait()
			return err
		}
		grp.Go(func() error {
			defer sem.Release(1)
			// Acquire only consults the context when it blocks, so an
			// already-canceled context would otherwise run every bin.
			if err := gctx.Err(); err != nil {
				return err
			}
			return j.runMapper(uint(binID), bin, fs)
		})
	}
	if err := grp.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (j *localJob) runMapper(mapperID uint, splits []inputSplit, fs chainfs.FileSystem) error {
	emitter := newMapperEmitter(uint(j.reducers), mapperID, j.output, j.outFormat, fs)

	for _, split := range splits {
		if err := j.processMapperSplit(split, &emitter, fs); err != nil {
			emitter.close()
			return err
		}
	}

	if err := emitter.close(); err != nil {
		return err
	}
	log.Debugf("Job %s: mapper %d emitted %s", j.id, mapperID, humanize.Bytes(uint64(emitter.bytesWritten())))
	return nil
}

func (j *localJob) processMapperSplit(split inputSplit, emitter Emitter, fs chainfs.FileSystem) error {
	inputSource, err := fs.OpenReader(split.Filename, split.StartOffset)
	if err != nil {
		return err
	}
	defer inputSource.Close()

	if j.inFormat == FormatRecord {
		return forEachRecord(inputSource, FormatRecord, func(kv keyValue) error {
			j.stage.Map.Map(kv.Key, kv.Value, emitter)
			return nil
		})
	}

	scanner := bufio.NewScanner(inputSource)
	var bytesRead int64
	scanner.Split(countingSplitFunc(bufio.ScanLines, &bytesRead))
	for scanner.Scan() {
		kv := splitInputRecord(scanner.Text())
		j.stage.Map.Map(kv.Key, kv.Value, emitter)

		// Stop reading once the end of the split is passed
		if split.Size() > 0 && bytesRead > split.Size() {
			break
		}
	}
	return scanner.Err()
}

func (j *localJob) runReducePhase(ctx context.Context, fs chainfs.FileSystem) error {
	files, err := j.inputFiles(fs)
	if err != nil {
		return err
	}

	emitters := make(map[uint]*reducerEmitter)
	keyChannels := make(map[string]chan string)
	var waitGroup sync.WaitGroup

	// drain closes all key channels, waits for the per-key reducers, and
	// closes the output writers. It must run on every exit path.
	drain := func() error {
		for _, keyChan := range keyChannels {
			close(keyChan)
		}
		waitGroup.Wait()

		var closeErr error
		var written int64
		for _, emitter := range emitters {
			written += emitter.bytesWritten()
			if err := emitter.close(); err != nil && closeErr == nil {
				closeErr = err
			}
		}
		if closeErr == nil {
			log.Debugf("Job %s: reducers emitted %s", j.id, humanize.Bytes(uint64(written)))
		}
		return closeErr
	}

	emitterFor := func(bin uint) (*reducerEmitter, error) {
		if emitter, exists := emitters[bin]; exists {
			return emitter, nil
		}
		writer, err := fs.OpenWriter(fs.Join(j.output, fmt.Sprintf("output-part-%d", bin)))
		if err != nil {
			return nil, err
		}
		emitter := newReducerEmitter(writer, j.outFormat)
		emitters[bin] = emitter
		return emitter, nil
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			drain()
			return err
		}

		reader, err := fs.OpenReader(file.Name, 0)
		if err != nil {
			drain()
			return err
		}
		log.Debugf("Job %s: reducing on intermediate file: %s", j.id, file.Name)

		err = forEachRecord(reader, j.inFormat, func(kv keyValue) error {
			keyChan, exists := keyChannels[kv.Key]
			if !exists {
				bin := hashPartition(kv.Key, uint(j.reducers))
				emitter, err := emitterFor(bin)
				if err != nil {
					return err
				}

				keyChan = make(chan string)
				keyIter := newValueIterator(keyChan)
				keyChannels[kv.Key] = keyChan

				waitGroup.Add(1)
				go func(key string) {
					defer waitGroup.Done()
					j.stage.Reduce.Reduce(key, keyIter, emitter)
				}(kv.Key)
			}

			keyChan <- kv.Value
			return nil
		})
		reader.Close()
		if err != nil {
			drain()
			return err
		}
	}

	return drain()
}

// forEachRecord decodes key/value records from r in the given format and
// passes each to fn.
func forEachRecord(r io.Reader, format Format, fn func(kv keyValue) error) error {
	if format == FormatText {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if err := fn(splitInputRecord(scanner.Text())); err != nil {
				return err
			}
		}
		return scanner.Err()
	}

	decoder := json.NewDecoder(r)
	for decoder.More() {
		var kv keyValue
		if err := decoder.Decode(&kv); err != nil {
			return err
		}
		if err := fn(kv); err != nil {
			return err
		}
	}
	return nil
}
