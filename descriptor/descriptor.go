// Package descriptor assembles the JSON payload a worker reads to execute a
// task (spec component C5). Building a descriptor is a pure function of a
// manifest spec, a plan item, and a minted task id — no I/O happens here.
package descriptor

import (
	"github.com/scicore-run/forge/manifest"
	"github.com/scicore-run/forge/planner"
)

// IO mirrors the manifest's io block as persisted on the descriptor, with
// inputs replaced by the plan item's concrete input refs.
type IO struct {
	Inputs []planner.InputRef `json:"inputs,omitempty"`
	Output *manifest.Output   `json:"output,omitempty"`
	Batch  *manifest.Batch    `json:"batch,omitempty"`
}

// TaskDescriptor is the JSON payload stored at the "<TaskId>_msg" key for a
// worker to read and execute.
type TaskDescriptor struct {
	Executable string               `json:"executable"`
	Name       string               `json:"name"`
	Args       []string             `json:"args"`
	WorkDir    string               `json:"work_dir,omitempty"`
	InputDir   string               `json:"input_dir,omitempty"`
	OutputDir  string               `json:"output_dir,omitempty"`
	Inputs     []planner.InputRef   `json:"inputs"`
	Outputs    []planner.LocalInput `json:"outputs"`
	TaskID     string               `json:"taskId"`
	TaskType   string               `json:"taskType"`
	IO         IO                   `json:"io"`
}

// Build assembles a TaskDescriptor from a manifest's spec, one plan item,
// and a previously-minted task id. Args come from the plan item when it set
// any (the object-grouping mode templates per-pack args); otherwise the
// spec's own args are used unchanged.
func Build(spec manifest.Spec, item planner.PlanItem, taskID string) TaskDescriptor {
	args := item.Args
	if args == nil {
		args = spec.Args
	}

	d := TaskDescriptor{
		Executable: spec.Executable,
		Name:       spec.Executable,
		Args:       args,
		WorkDir:    spec.WorkDir,
		InputDir:   spec.InputDir,
		OutputDir:  spec.OutputDir,
		Inputs:     item.Inputs,
		Outputs:    item.LocalInputs,
		TaskID:     taskID,
		TaskType:   spec.TaskType,
		IO: IO{
			Inputs: item.Inputs,
		},
	}

	if spec.IO != nil {
		d.IO.Output = spec.IO.Output
		d.IO.Batch = spec.IO.Batch
	}

	return d
}
