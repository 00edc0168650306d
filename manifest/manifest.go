// Package manifest defines the typed manifest tree consumed by the
// planner, descriptor builder, and submission engine. Manifests arrive
// already schema-defaulted (schema validation is an external
// collaborator's job — see the "Out of scope" note on manifest schema
// validation); this package only needs to describe the shape.
package manifest

// Manifest is the declarative submission unit: metadata identifying the
// work, and a spec describing what each task runs and how inputs are
// discovered.
type Manifest struct {
	Metadata Metadata `yaml:"metadata" json:"metadata"`
	Spec     Spec     `yaml:"spec" json:"spec"`
}

// Metadata carries the optional caller-supplied WorkId.
type Metadata struct {
	WorkID string `yaml:"workId,omitempty" json:"workId,omitempty"`
}

// Spec describes the task template and, optionally, how to expand it into
// a batch via IO.
type Spec struct {
	// TaskType is the destination queue name.
	TaskType string `yaml:"taskType" json:"taskType"`
	// Executable is the program the worker invokes.
	Executable string `yaml:"executable" json:"executable"`
	// Args is the argument vector, subject to {in}/{inN} templating.
	Args []string `yaml:"args,omitempty" json:"args,omitempty"`
	// WorkDir/InputDir/OutputDir are paths the worker materializes.
	WorkDir   string `yaml:"work_dir,omitempty" json:"work_dir,omitempty"`
	InputDir  string `yaml:"input_dir,omitempty" json:"input_dir,omitempty"`
	OutputDir string `yaml:"output_dir,omitempty" json:"output_dir,omitempty"`
	// IO describes input discovery, output destination, and batching. Nil
	// means single-task mode with no object-store inputs.
	IO *IO `yaml:"io,omitempty" json:"io,omitempty"`
}

// IO groups input discovery, output destination, and batching config.
type IO struct {
	Inputs []Input `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Output *Output `yaml:"output,omitempty" json:"output,omitempty"`
	Batch  *Batch  `yaml:"batch,omitempty" json:"batch,omitempty"`
}

// Input describes one object-store input location.
type Input struct {
	Type      string   `yaml:"type" json:"type"`
	URL       string   `yaml:"url" json:"url"`
	Recursive *bool    `yaml:"recursive,omitempty" json:"recursive,omitempty"`
	Include   []string `yaml:"include,omitempty" json:"include,omitempty"`
	Exclude   []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
	MaxFiles  int      `yaml:"maxFiles,omitempty" json:"maxFiles,omitempty"`
}

// Output describes the object-store destination for results.
type Output struct {
	Type      string `yaml:"type" json:"type"`
	URL       string `yaml:"url" json:"url"`
	Overwrite bool   `yaml:"overwrite,omitempty" json:"overwrite,omitempty"`
	Layout    string `yaml:"layout,omitempty" json:"layout,omitempty"`
}

// Grouping selects how the batch planner partitions a listing into tasks.
type Grouping string

const (
	GroupingObject Grouping = "object"
	GroupingPrefix Grouping = "prefix"
)

// Batch configures whether and how the manifest expands into many tasks.
type Batch struct {
	Enabled     bool     `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Grouping    Grouping `yaml:"grouping,omitempty" json:"grouping,omitempty"`
	PrefixDepth int      `yaml:"prefixDepth,omitempty" json:"prefixDepth,omitempty"`
	MaxPerTask  int      `yaml:"maxPerTask,omitempty" json:"maxPerTask,omitempty"`
}

// BatchEnabled reports whether batch expansion is requested. A nil Batch or a
// Batch with Enabled=false both mean single-task mode.
func (s *Spec) BatchEnabled() bool {
	return s.IO != nil && s.IO.Batch != nil && s.IO.Batch.Enabled
}

// GroupingOrDefault returns the configured grouping, defaulting to "object".
func (b *Batch) GroupingOrDefault() Grouping {
	if b.Grouping == "" {
		return GroupingObject
	}
	return b.Grouping
}

// PrefixDepthOrDefault returns the configured prefix depth, defaulting to 1.
func (b *Batch) PrefixDepthOrDefault() int {
	if b.PrefixDepth <= 0 {
		return 1
	}
	return b.PrefixDepth
}

// MaxPerTaskOrDefault returns the configured pack size, defaulting to 1,
// clamped to a minimum of 1.
func (b *Batch) MaxPerTaskOrDefault() int {
	if b.MaxPerTask < 1 {
		return 1
	}
	return b.MaxPerTask
}

// RecursiveOrDefault returns the input's recursive flag, defaulting to true
// (matches the planner's "recursive = base.recursive !== false" rule).
func (i *Input) RecursiveOrDefault() bool {
	return i.Recursive == nil || *i.Recursive
}
