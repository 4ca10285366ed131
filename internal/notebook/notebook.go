// Package notebook builds the hosted-runtime notebook that walks a user through
// cloning a voice on a GPU machine.
package notebook

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Cell types.
const (
	CellMarkdown = "markdown"
	CellCode     = "code"
)

const (
	formatMajor = 4
	formatMinor = 0

	filePermissions = 0o644
	dirPermissions  = 0o755
)

const (
	errFmtDuplicateID = "%w: %q"
	errFmtEmptyID     = "%w (cell %d)"
	errFmtEncode      = "failed to encode notebook: %w"
	errFmtWrite       = "failed to write notebook %s: %w"
)

var (
	// ErrDuplicateCellID is returned when two cells share an id.
	ErrDuplicateCellID = errors.New("duplicate cell id")
	// ErrEmptyCellID is returned for a cell without an id.
	ErrEmptyCellID = errors.New("empty cell id")
)

// Notebook is an nbformat 4 document.
type Notebook struct {
	NBFormat      int      `json:"nbformat"`
	NBFormatMinor int      `json:"nbformat_minor"`
	Metadata      Metadata `json:"metadata"`
	Cells         []Cell   `json:"cells"`
}

// Metadata is the notebook-level metadata read by the hosted runtime.
type Metadata struct {
	Colab        ColabMetadata `json:"colab"`
	KernelSpec   KernelSpec    `json:"kernelspec"`
	LanguageInfo LanguageInfo  `json:"language_info"`
	Accelerator  string        `json:"accelerator,omitempty"`
}

// ColabMetadata holds the hosted runtime's display settings.
type ColabMetadata struct {
	Name              string   `json:"name"`
	Provenance        []string `json:"provenance"`
	CollapsedSections []string `json:"collapsed_sections"`
	TOCVisible        bool     `json:"toc_visible"`
}

// KernelSpec names the kernel that runs the code cells.
type KernelSpec struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// LanguageInfo names the kernel language.
type LanguageInfo struct {
	Name string `json:"name"`
}

// CellMetadata identifies a cell.
type CellMetadata struct {
	ID string `json:"id"`
}

// Cell is one markdown or code cell. Code cells always carry a null
// execution count and an output list; markdown cells carry neither.
type Cell struct {
	Type     string
	Metadata CellMetadata
	Source   []string
}

type markdownCell struct {
	Type     string       `json:"cell_type"`
	Metadata CellMetadata `json:"metadata"`
	Source   []string     `json:"source"`
}

type codeCell struct {
	Type           string       `json:"cell_type"`
	Metadata       CellMetadata `json:"metadata"`
	Source         []string     `json:"source"`
	ExecutionCount *int         `json:"execution_count"`
	Outputs        []any        `json:"outputs"`
}

// MarshalJSON writes the nbformat shape for the cell type.
func (c Cell) MarshalJSON() ([]byte, error) {
	source := c.Source
	if source == nil {
		source = []string{}
	}

	if c.Type == CellCode {
		return json.Marshal(codeCell{
			Type:           c.Type,
			Metadata:       c.Metadata,
			Source:         source,
			ExecutionCount: nil,
			Outputs:        []any{},
		})
	}

	return json.Marshal(markdownCell{Type: c.Type, Metadata: c.Metadata, Source: source})
}

// UnmarshalJSON reads either cell shape.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var raw markdownCell

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return fmt.Errorf("failed to decode cell: %w", err)
	}

	c.Type = raw.Type
	c.Metadata = raw.Metadata
	c.Source = raw.Source

	return nil
}

// Text joins the cell source back into one string.
func (c Cell) Text() string {
	return strings.Join(c.Source, "")
}

// Builder appends cells in order and remembers the first error.
type Builder struct {
	cells []Cell
	ids   map[string]struct{}
	err   error
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{ids: make(map[string]struct{})}
}

// Markdown appends a markdown cell.
func (b *Builder) Markdown(id string, lines ...string) *Builder {
	return b.add(CellMarkdown, id, lines)
}

// Code appends a code cell.
func (b *Builder) Code(id string, lines ...string) *Builder {
	return b.add(CellCode, id, lines)
}

func (b *Builder) add(cellType, id string, lines []string) *Builder {
	if b.err != nil {
		return b
	}

	if id == "" {
		b.err = fmt.Errorf(errFmtEmptyID, ErrEmptyCellID, len(b.cells))

		return b
	}

	if _, exists := b.ids[id]; exists {
		b.err = fmt.Errorf(errFmtDuplicateID, ErrDuplicateCellID, id)

		return b
	}

	b.ids[id] = struct{}{}
	b.cells = append(b.cells, Cell{Type: cellType, Metadata: CellMetadata{ID: id}, Source: sourceLines(lines)})

	return b
}

// Build returns the notebook, or the first error hit while adding cells.
func (b *Builder) Build(meta Metadata) (*Notebook, error) {
	if b.err != nil {
		return nil, b.err
	}

	cells := make([]Cell, len(b.cells))
	copy(cells, b.cells)

	return &Notebook{NBFormat: formatMajor, NBFormatMinor: formatMinor, Metadata: meta, Cells: cells}, nil
}

// sourceLines terminates every line but the last with a newline.
func sourceLines(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		if i < len(lines)-1 {
			line += "\n"
		}

		out[i] = line
	}

	return out
}

// Cell returns the cell with the given id.
func (n *Notebook) Cell(id string) (Cell, bool) {
	for _, c := range n.Cells {
		if c.Metadata.ID == id {
			return c, true
		}
	}

	return Cell{}, false
}

// Encode writes the notebook as two-space indented JSON without HTML escaping.
func (n *Notebook) Encode(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	err := encoder.Encode(n)
	if err != nil {
		return fmt.Errorf(errFmtEncode, err)
	}

	return nil
}

// Write saves the notebook to path, creating the parent directory.
func (n *Notebook) Write(path string) error {
	dir := filepath.Dir(path)

	err := os.MkdirAll(dir, dirPermissions)
	if err != nil {
		return fmt.Errorf(errFmtWrite, path, err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermissions)
	if err != nil {
		return fmt.Errorf(errFmtWrite, path, err)
	}

	encodeErr := n.Encode(file)
	closeErr := file.Close()

	if encodeErr != nil {
		return encodeErr
	}

	if closeErr != nil {
		return fmt.Errorf(errFmtWrite, path, closeErr)
	}

	return nil
}

// Read loads a notebook from path.
func Read(path string) (*Notebook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read notebook %s: %w", path, err)
	}

	var nb Notebook

	err = json.Unmarshal(data, &nb)
	if err != nil {
		return nil, fmt.Errorf("failed to decode notebook %s: %w", path, err)
	}

	return &nb, nil
}
