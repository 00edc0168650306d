package descriptor

import (
	"reflect"
	"testing"

	"github.com/scicore-run/forge/manifest"
	"github.com/scicore-run/forge/planner"
)

func TestBuild_UsesPlanItemArgsWhenSet(t *testing.T) {
	spec := manifest.Spec{
		TaskType:   "q1",
		Executable: "run.sh",
		Args:       []string{"--default"},
	}
	item := planner.PlanItem{
		Args:   []string{"--input", "a.jpg"},
		Inputs: []planner.InputRef{{Bucket: "b", Key: "a.jpg"}},
	}

	got := Build(spec, item, "wf:w1:task:1-aaaaaaaa")

	if !reflect.DeepEqual(got.Args, item.Args) {
		t.Errorf("Args = %v, want plan item args %v", got.Args, item.Args)
	}
	if got.TaskID != "wf:w1:task:1-aaaaaaaa" || got.TaskType != "q1" || got.Executable != "run.sh" {
		t.Errorf("unexpected descriptor: %+v", got)
	}
	if !reflect.DeepEqual(got.Inputs, item.Inputs) {
		t.Errorf("Inputs = %v, want %v", got.Inputs, item.Inputs)
	}
}

func TestBuild_FallsBackToSpecArgsForSingleMode(t *testing.T) {
	spec := manifest.Spec{
		TaskType:   "q1",
		Executable: "run.sh",
		Args:       []string{"--default"},
	}
	item := planner.PlanItem{Source: planner.Source{Single: true}}

	got := Build(spec, item, "wf:w1:task:1-aaaaaaaa")

	if !reflect.DeepEqual(got.Args, spec.Args) {
		t.Errorf("Args = %v, want spec args %v", got.Args, spec.Args)
	}
}

func TestBuild_CopiesOutputAndBatchFromSpec(t *testing.T) {
	out := &manifest.Output{Type: "s3", URL: "s3://bucket/out/"}
	batch := &manifest.Batch{Enabled: true, Grouping: manifest.GroupingObject, MaxPerTask: 2}
	spec := manifest.Spec{
		TaskType: "q1",
		IO:       &manifest.IO{Output: out, Batch: batch},
	}

	got := Build(spec, planner.PlanItem{}, "wf:w1:task:1-aaaaaaaa")

	if got.IO.Output != out || got.IO.Batch != batch {
		t.Errorf("IO = %+v, want Output=%v Batch=%v", got.IO, out, batch)
	}
}
