package mrchain

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/adamretter/mrchain/internal/pkg/chainfs"
)

// Emitter enables mappers and reducers to yield key-value pairs.
type Emitter interface {
	Emit(key, value string) error
	close() error
	bytesWritten() int64
}

func encodeKeyValue(kv keyValue, format Format) ([]byte, error) {
	if format == FormatText {
		return []byte(fmt.Sprintf("%s\t%s\n", kv.Key, kv.Value)), nil
	}
	data, err := json.Marshal(kv)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// reducerEmitter is a threadsafe emitter.
type reducerEmitter struct {
	writer       io.WriteCloser
	format       Format
	mut          *sync.Mutex
	writtenBytes int64
}

// newReducerEmitter initializes and returns a new reducerEmitter
func newReducerEmitter(writer io.WriteCloser, format Format) *reducerEmitter {
	return &reducerEmitter{
		writer: writer,
		format: format,
		mut:    &sync.Mutex{},
	}
}

// Emit yields a key-value pair to the framework.
func (e *reducerEmitter) Emit(key, value string) error {
	data, err := encodeKeyValue(keyValue{Key: key, Value: value}, e.format)
	if err != nil {
		return err
	}

	e.mut.Lock()
	defer e.mut.Unlock()

	n, err := e.writer.Write(data)
	e.writtenBytes += int64(n)
	return err
}

// close terminates the reducerEmitter. close must not be called more than once
func (e *reducerEmitter) close() error {
	return e.writer.Close()
}

func (e *reducerEmitter) bytesWritten() int64 {
	return e.writtenBytes
}

// PartitionFunc maps a key to one of numBins intermediate shuffle bins.
type PartitionFunc func(key string, numBins uint) uint

// mapperEmitter is an emitter that partitions keys written to it.
// mapperEmitter maintains a map of writers. In record format, keys are
// partitioned into one of numBins intermediate "shuffle" bins, each written
// as a separate file. In text format all pairs go to a single per-mapper
// part file.
type mapperEmitter struct {
	numBins       uint                    // number of intermediate shuffle bins
	writers       map[uint]io.WriteCloser // maps a partition number to an open writer
	fs            chainfs.FileSystem      // filesystem to use when opening writers
	mapperID      uint                    // numeric identifier of the mapper using this emitter
	outDir        string                  // folder to save map output to
	format        Format                  // output serialization format
	partitionFunc PartitionFunc           // PartitionFunc to use when partitioning map output keys into intermediate bins
	writtenBytes  int64                   // counter for number of bytes written from emitted key/val pairs
}

// Initializes a new mapperEmitter
func newMapperEmitter(numBins uint, mapperID uint, outDir string, format Format, fs chainfs.FileSystem) mapperEmitter {
	return mapperEmitter{
		numBins:       numBins,
		writers:       make(map[uint]io.WriteCloser, numBins),
		fs:            fs,
		mapperID:      mapperID,
		outDir:        outDir,
		format:        format,
		partitionFunc: hashPartition,
	}
}

// hashPartition partitions a key to one of numBins shuffle bins
func hashPartition(key string, numBins uint) uint {
	h := fnv.New64()
	h.Write([]byte(key))
	return uint(h.Sum64() % uint64(numBins))
}

func (me *mapperEmitter) binPath(bin uint) string {
	if me.format == FormatText {
		return me.fs.Join(me.outDir, fmt.Sprintf("part-%d.out", me.mapperID))
	}
	return me.fs.Join(me.outDir, fmt.Sprintf("map-bin%d-%d.out", bin, me.mapperID))
}

// Emit yields a key-value pair to the framework.
func (me *mapperEmitter) Emit(key, value string) error {
	bin := uint(0)
	if me.format != FormatText {
		bin = me.partitionFunc(key, me.numBins)
	}

	// Open writer for the bin, if necessary
	writer, exists := me.writers[bin]
	if !exists {
		var err error
		writer, err = me.fs.OpenWriter(me.binPath(bin))
		if err != nil {
			return err
		}
		me.writers[bin] = writer
	}

	data, err := encodeKeyValue(keyValue{Key: key, Value: value}, me.format)
	if err != nil {
		return err
	}

	n, err := writer.Write(data)
	me.writtenBytes += int64(n)
	return err
}

// close terminates the mapperEmitter. Must not be called more than once
func (me *mapperEmitter) close() error {
	errs := make([]string, 0)
	for _, writer := range me.writers {
		err := writer.Close()
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "\n"))
	}

	return nil
}

func (me *mapperEmitter) bytesWritten() int64 {
	return me.writtenBytes
}
