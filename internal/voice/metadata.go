// Package voice manages a speaker's reference recordings: the metadata
// sidecar that lists them, loading them into memory, the conditioning cache
// and change detection on the samples directory.
package voice

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// File layout inside a voice directory.
const (
	MetadataFileName = "metadata.json"
	SamplesDirName   = "samples"
	SampleExtension  = ".wav"

	defaultLanguage   = "es"
	defaultSampleRate = 22050
	filePermissions   = 0o600
)

const (
	errFmtInvalidMetadata = "%w: %s: %v"
	errFmtReadMetadata    = "failed to read metadata %s: %w"
	errFmtWriteMetadata   = "failed to write metadata %s: %w"
	errFmtListSamples     = "failed to list samples in %s: %w"
)

var (
	// ErrInvalidMetadata is returned when metadata.json fails schema validation.
	ErrInvalidMetadata = errors.New("invalid voice metadata")
	// ErrSamplesDirMissing is returned when the samples directory does not exist.
	ErrSamplesDirMissing = errors.New("samples directory not found")
)

const metadataSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["samples"],
  "properties": {
    "language": {"type": "string"},
    "sampling_rate": {"type": "integer", "minimum": 1},
    "samples": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["file"],
        "properties": {
          "file": {"type": "string", "minLength": 1},
          "language": {"type": "string"},
          "use_phonemes": {"type": "boolean"}
        }
      }
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString("metadata.schema.json", metadataSchema)

// SampleEntry describes one reference recording, relative to the voice directory.
type SampleEntry struct {
	File        string `json:"file"`
	Language    string `json:"language"`
	UsePhonemes bool   `json:"use_phonemes"`
}

// Metadata is the metadata.json sidecar of a voice directory.
type Metadata struct {
	Language     string        `json:"language,omitempty"`
	SamplingRate int           `json:"sampling_rate,omitempty"`
	Samples      []SampleEntry `json:"samples"`
	// Extra holds top-level keys this package does not know. They are
	// written back unchanged.
	Extra map[string]json.RawMessage `json:"-"`
}

// metadataFields has the fields of Metadata without its JSON methods.
type metadataFields Metadata

var knownMetadataKeys = []string{"language", "sampling_rate", "samples"}

// MarshalJSON writes the known fields merged with Extra. Samples is never null.
func (m *Metadata) MarshalJSON() ([]byte, error) {
	fields := metadataFields(*m)
	if fields.Samples == nil {
		fields.Samples = []SampleEntry{}
	}

	known, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}

	if len(m.Extra) == 0 {
		return known, nil
	}

	merged := make(map[string]json.RawMessage, len(m.Extra)+len(knownMetadataKeys))
	for key, value := range m.Extra {
		merged[key] = value
	}

	var knownValues map[string]json.RawMessage

	err = json.Unmarshal(known, &knownValues)
	if err != nil {
		return nil, err
	}

	for key, value := range knownValues {
		merged[key] = value
	}

	return json.Marshal(merged)
}

// UnmarshalJSON decodes the known fields and keeps every other key in Extra.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var fields metadataFields

	err := json.Unmarshal(data, &fields)
	if err != nil {
		return err
	}

	var all map[string]json.RawMessage

	err = json.Unmarshal(data, &all)
	if err != nil {
		return err
	}

	for _, key := range knownMetadataKeys {
		delete(all, key)
	}

	*m = Metadata(fields)
	m.Extra = nil

	if len(all) > 0 {
		m.Extra = all
	}

	return nil
}

// SampleDiff is the difference between the metadata and the samples on disk.
type SampleDiff struct {
	Added   []string
	Removed []string
}

// Changed reports whether the sample sets differ.
func (d SampleDiff) Changed() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0
}

// NewMetadata builds metadata listing the given sample file names.
func NewMetadata(sampleNames []string) *Metadata {
	m := &Metadata{Language: defaultLanguage, SamplingRate: defaultSampleRate}
	m.SetSamples(sampleNames)

	return m
}

// SetSamples replaces the sample list with entries for the given file names,
// sorted by name.
func (m *Metadata) SetSamples(sampleNames []string) {
	names := append([]string(nil), sampleNames...)
	sort.Strings(names)

	m.Samples = make([]SampleEntry, 0, len(names))
	for _, name := range names {
		m.Samples = append(m.Samples, SampleEntry{
			File:        path.Join(SamplesDirName, name),
			Language:    defaultLanguage,
			UsePhonemes: true,
		})
	}
}

// SampleNames returns the base names of the listed samples.
func (m *Metadata) SampleNames() []string {
	names := make([]string, 0, len(m.Samples))
	for _, s := range m.Samples {
		names = append(names, path.Base(filepath.ToSlash(s.File)))
	}

	return names
}

// Diff compares the listed samples with the names found on disk.
func (m *Metadata) Diff(onDisk []string) SampleDiff {
	listed := make(map[string]struct{}, len(m.Samples))
	for _, name := range m.SampleNames() {
		listed[name] = struct{}{}
	}

	actual := make(map[string]struct{}, len(onDisk))
	for _, name := range onDisk {
		actual[name] = struct{}{}
	}

	var diff SampleDiff

	for name := range actual {
		if _, ok := listed[name]; !ok {
			diff.Added = append(diff.Added, name)
		}
	}

	for name := range listed {
		if _, ok := actual[name]; !ok {
			diff.Removed = append(diff.Removed, name)
		}
	}

	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)

	return diff
}

// Marshal encodes metadata with two-space indentation.
func (m *Metadata) Marshal() ([]byte, error) {
	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	err := encoder.Encode(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}

	return buf.Bytes(), nil
}

// ParseMetadata validates data against the metadata schema and decodes it.
func ParseMetadata(data []byte) (*Metadata, error) {
	var raw any

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return nil, fmt.Errorf(errFmtInvalidMetadata, ErrInvalidMetadata, "malformed JSON", err)
	}

	validateErr := compiledSchema.Validate(raw)
	if validateErr != nil {
		return nil, fmt.Errorf(errFmtInvalidMetadata, ErrInvalidMetadata, "schema", validateErr)
	}

	var m Metadata

	err = json.Unmarshal(data, &m)
	if err != nil {
		return nil, fmt.Errorf(errFmtInvalidMetadata, ErrInvalidMetadata, "decode", err)
	}

	return &m, nil
}

// LoadMetadata reads and validates metadata.json from a voice directory.
func LoadMetadata(voiceDir string) (*Metadata, error) {
	metadataPath := filepath.Join(voiceDir, MetadataFileName)

	data, err := os.ReadFile(metadataPath)
	if err != nil {
		return nil, fmt.Errorf(errFmtReadMetadata, metadataPath, err)
	}

	return ParseMetadata(data)
}

// SaveMetadata writes metadata.json into a voice directory.
func SaveMetadata(voiceDir string, m *Metadata) error {
	metadataPath := filepath.Join(voiceDir, MetadataFileName)

	data, err := m.Marshal()
	if err != nil {
		return err
	}

	writeErr := os.WriteFile(metadataPath, data, filePermissions)
	if writeErr != nil {
		return fmt.Errorf(errFmtWriteMetadata, metadataPath, writeErr)
	}

	return nil
}

// ListSamples returns the names of the .wav files in <voiceDir>/samples, sorted.
func ListSamples(voiceDir string) ([]string, error) {
	samplesDir := filepath.Join(voiceDir, SamplesDirName)

	entries, err := os.ReadDir(samplesDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSamplesDirMissing, samplesDir)
		}

		return nil, fmt.Errorf(errFmtListSamples, samplesDir, err)
	}

	var names []string

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), SampleExtension) {
			continue
		}

		names = append(names, entry.Name())
	}

	sort.Strings(names)

	return names, nil
}

// LoadOrCreateMetadata loads metadata.json, creating it from the samples
// directory when it does not exist yet.
func LoadOrCreateMetadata(voiceDir string) (*Metadata, bool, error) {
	metadataPath := filepath.Join(voiceDir, MetadataFileName)

	_, statErr := os.Stat(metadataPath)
	if statErr == nil {
		m, err := LoadMetadata(voiceDir)

		return m, false, err
	}

	if !errors.Is(statErr, os.ErrNotExist) {
		return nil, false, fmt.Errorf(errFmtReadMetadata, metadataPath, statErr)
	}

	names, listErr := ListSamples(voiceDir)
	if listErr != nil {
		return nil, false, listErr
	}

	m := NewMetadata(names)

	saveErr := SaveMetadata(voiceDir, m)
	if saveErr != nil {
		return nil, false, saveErr
	}

	return m, true, nil
}

// SyncMetadata compares the metadata with the samples on disk. When they
// differ the sample list is rebuilt from disk and saved.
func SyncMetadata(voiceDir string, m *Metadata) (SampleDiff, error) {
	names, err := ListSamples(voiceDir)
	if err != nil {
		return SampleDiff{}, err
	}

	diff := m.Diff(names)
	if !diff.Changed() {
		return diff, nil
	}

	m.SetSamples(names)

	return diff, SaveMetadata(voiceDir, m)
}
