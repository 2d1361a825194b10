package mrchain

import (
	"fmt"
	"math/rand"
	"path"

	"github.com/spf13/viper"
)

// Format identifies the serialization format of a data location. The legal
// values are whatever the execution engine supports; LocalEngine understands
// the two formats below.
type Format string

const (
	// FormatText is line-oriented text. Lines are parsed as key TAB value
	// where possible, and written back the same way.
	FormatText Format = "text"

	// FormatRecord is a sequence of JSON-encoded key/value records, used by
	// default for intermediate data between stages.
	FormatRecord Format = "record"
)

// IODescriptor names a data location and the format used to read or write it.
// Descriptors are immutable values.
type IODescriptor struct {
	Location string
	Format   Format
}

// TextFile describes a line-oriented text location.
func TextFile(location string) IODescriptor {
	return IODescriptor{Location: location, Format: FormatText}
}

// RecordFile describes a JSON record-sequence location.
func RecordFile(location string) IODescriptor {
	return IODescriptor{Location: location, Format: FormatRecord}
}

// ScratchFile synthesizes a private scratch location for anonymous
// intermediate data between unconnected stages. The prefix is taken from the
// "scratch_location" setting (default "tmp").
func ScratchFile() IODescriptor {
	loadConfig()
	return IODescriptor{
		Location: path.Join(viper.GetString("scratch_location"), fmt.Sprintf("tmp-%d", rand.Int63())),
		Format:   FormatRecord,
	}
}
