package mrchain

import (
	"bufio"

	humanize "github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"github.com/adamretter/mrchain/internal/pkg/chainfs"
)

// inputSplit describes a contiguous byte range of one input file. Both
// offsets are inclusive, so a split from 10 to 14 covers 5 bytes.
type inputSplit struct {
	Filename    string
	StartOffset int64
	EndOffset   int64
}

// Size returns the number of bytes the split spans.
func (i inputSplit) Size() int64 {
	return i.EndOffset - i.StartOffset + 1
}

// splitInputFile cuts a file into splits of at most maxSplitSize bytes. The
// last split covers whatever remains.
func splitInputFile(file chainfs.FileInfo, maxSplitSize int64) []inputSplit {
	splits := make([]inputSplit, 0, file.Size/maxSplitSize+1)
	for start := int64(0); start < file.Size; start += maxSplitSize {
		splits = append(splits, inputSplit{
			Filename:    file.Name,
			StartOffset: start,
			EndOffset:   min(start+maxSplitSize-1, file.Size-1),
		})
	}
	return splits
}

// packInputSplits groups splits into bins whose combined size stays within
// maxBinSize, using Next-Fit packing: a split that does not fit the current
// bin starts a new one. A split larger than maxBinSize occupies a bin alone.
func packInputSplits(splits []inputSplit, maxBinSize int64) [][]inputSplit {
	if len(splits) == 0 {
		return [][]inputSplit{}
	}

	bins := [][]inputSplit{nil}
	binSize := int64(0)
	totalSize := int64(0)
	for _, split := range splits {
		last := len(bins) - 1
		if len(bins[last]) > 0 && binSize+split.Size() > maxBinSize {
			bins = append(bins, nil)
			last++
			binSize = 0
		}
		bins[last] = append(bins[last], split)
		binSize += split.Size()
		totalSize += split.Size()
	}

	log.Debugf("Average input bin size: %s", humanize.Bytes(uint64(totalSize/int64(len(bins)))))
	return bins
}

// countingSplitFunc wraps a bufio.SplitFunc, adding every advanced byte count
// to *bytesRead so a caller can tell when a scanner has passed the end of its
// split.
func countingSplitFunc(split bufio.SplitFunc, bytesRead *int64) bufio.SplitFunc {
	return func(data []byte, atEOF bool) (advance int, token []byte, err error) {
		adv, tok, err := split(data, atEOF)
		*bytesRead += int64(adv)
		return adv, tok, err
	}
}
