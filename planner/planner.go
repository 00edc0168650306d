// Package planner expands a manifest into a lazy sequence of plan items
// (spec component C4). Objects are streamed from the object store rather
// than materialized up front, so large buckets never exhaust memory.
package planner

import (
	"context"
	"errors"
	"path"

	"github.com/scicore-run/forge/argtemplate"
	"github.com/scicore-run/forge/manifest"
	"github.com/scicore-run/forge/objectstore"
)

// ErrNoInputs is returned when batch expansion is enabled but the manifest
// declares no object-store inputs.
var ErrNoInputs = errors.New("planner: EBATCH_NO_INPUTS: io.inputs must be non-empty when batch is enabled")

// InputRef describes one object-store input a task should materialize.
type InputRef struct {
	Bucket    string
	Prefix    string
	Key       string
	Recursive bool
	Include   []string
	Exclude   []string
}

// LocalInput is a workflow-local input materialized from a packed object.
type LocalInput struct {
	Name          string
	WorkflowInput bool
}

// Source records which planning strategy produced a PlanItem, for
// diagnostics and the testable-property scenarios in spec §8.
type Source struct {
	Single bool
	Prefix string
	Keys   []string
	// SubPrefixes carries any commonPrefixes markers observed from the
	// object-mode listing up to this item (non-recursive mode only). The
	// spec flags these markers as otherwise silently dropped; here they
	// are consumed instead of ignored.
	SubPrefixes []string
}

// PlanItem is one task's worth of inputs, local inputs, and templated args.
type PlanItem struct {
	Inputs      []InputRef
	LocalInputs []LocalInput
	Args        []string
	Source      Source
}

// Lister is the subset of the object-store client the planner needs. It is
// declared here, at the point of use, so tests can supply an in-memory fake.
type Lister interface {
	StreamObjects(ctx context.Context, params objectstore.StreamParams, visit func(objectstore.Object) error, onCommonPrefixes objectstore.OnCommonPrefixes) error
	ListPrefixesAtDepth(ctx context.Context, bucket, basePrefix string, depth int) ([]string, error)
}

// Visit is called once per plan item as it is produced. Returning an error
// stops planning and the error is propagated to the caller.
type Visit func(PlanItem) error

// Plan expands spec into plan items, invoking visit for each one as it is
// produced. spec.IO.Inputs[1:] are ignored if present — the core only
// consults io.inputs[0] (spec §4.4, §9.1).
func Plan(ctx context.Context, lister Lister, spec manifest.Spec, visit Visit) error {
	if !spec.BatchEnabled() {
		return visit(SingleItem(spec))
	}

	if spec.IO == nil || len(spec.IO.Inputs) == 0 {
		return ErrNoInputs
	}

	base := spec.IO.Inputs[0]
	loc, err := objectstore.ParseURL(base.URL)
	if err != nil {
		return err
	}

	batch := spec.IO.Batch
	switch batch.GroupingOrDefault() {
	case manifest.GroupingPrefix:
		return planByPrefix(ctx, lister, loc, base, spec, batch.PrefixDepthOrDefault(), visit)
	default:
		return planByObject(ctx, lister, loc, base, spec, batch.MaxPerTaskOrDefault(), visit)
	}
}

// SingleItem builds the one PlanItem a single-task submission uses,
// without going through Plan's batch dispatch. The submission engine's
// createSingle path calls this directly (spec §4.9: "do not invoke the
// planner").
func SingleItem(spec manifest.Spec) PlanItem {
	var inputs []manifest.Input
	if spec.IO != nil {
		inputs = spec.IO.Inputs
	}
	return PlanItem{
		Inputs:      toInputRefs(inputs),
		LocalInputs: nil,
		Args:        spec.Args,
		Source:      Source{Single: true},
	}
}

func toInputRefs(inputs []manifest.Input) []InputRef {
	if len(inputs) == 0 {
		return nil
	}
	refs := make([]InputRef, len(inputs))
	for i, in := range inputs {
		loc, err := objectstore.ParseURL(in.URL)
		if err != nil {
			// Single-task mode passes inputs through untouched; a bad URL
			// surfaces later when the input is actually dereferenced, not
			// here (this path never invokes the object store).
			continue
		}
		refs[i] = InputRef{
			Bucket:    loc.Bucket,
			Prefix:    loc.Prefix,
			Key:       loc.Key,
			Recursive: in.RecursiveOrDefault(),
			Include:   in.Include,
			Exclude:   in.Exclude,
		}
	}
	return refs
}

func planByPrefix(ctx context.Context, lister Lister, loc objectstore.Location, base manifest.Input, spec manifest.Spec, depth int, visit Visit) error {
	children, err := lister.ListPrefixesAtDepth(ctx, loc.Bucket, loc.Prefix, depth)
	if err != nil {
		return err
	}

	for _, p := range children {
		item := PlanItem{
			Inputs: []InputRef{{
				Bucket:    loc.Bucket,
				Prefix:    p,
				Recursive: true,
				Include:   base.Include,
				Exclude:   base.Exclude,
			}},
			Args:   spec.Args,
			Source: Source{Prefix: p},
		}
		if err := visit(item); err != nil {
			return err
		}
	}
	return nil
}

func planByObject(ctx context.Context, lister Lister, loc objectstore.Location, base manifest.Input, spec manifest.Spec, maxPerTask int, visit Visit) error {
	params := objectstore.StreamParams{
		Bucket:    loc.Bucket,
		Prefix:    loc.Prefix,
		Key:       loc.Key,
		Recursive: base.RecursiveOrDefault(),
		Include:   base.Include,
		Exclude:   base.Exclude,
		MaxFiles:  base.MaxFiles,
	}

	var pack []objectstore.Object
	var subPrefixesSeen []string
	var visitErr error

	flush := func() error {
		if len(pack) == 0 {
			return nil
		}
		basenames := make([]string, len(pack))
		keys := make([]string, len(pack))
		localInputs := make([]LocalInput, len(pack))
		inputRefs := make([]InputRef, len(pack))
		for i, obj := range pack {
			base := path.Base(obj.Key)
			basenames[i] = base
			keys[i] = obj.Key
			localInputs[i] = LocalInput{Name: base, WorkflowInput: true}
			inputRefs[i] = InputRef{Bucket: obj.Bucket, Key: obj.Key}
		}

		item := PlanItem{
			Inputs:      inputRefs,
			LocalInputs: localInputs,
			Args:        argtemplate.Substitute(spec.Args, basenames),
			Source: Source{
				Keys:        keys,
				SubPrefixes: append([]string(nil), subPrefixesSeen...),
			},
		}
		pack = pack[:0]
		return visit(item)
	}

	onCommonPrefixes := func(prefixes []string) error {
		subPrefixesSeen = append(subPrefixesSeen, prefixes...)
		return nil
	}

	err := lister.StreamObjects(ctx, params, func(o objectstore.Object) error {
		pack = append(pack, o)
		if len(pack) == maxPerTask {
			if err := flush(); err != nil {
				visitErr = err
				return err
			}
		}
		return nil
	}, onCommonPrefixes)
	if err != nil {
		if visitErr != nil {
			return visitErr
		}
		return err
	}

	return flush()
}
