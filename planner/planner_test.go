package planner

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/scicore-run/forge/manifest"
	"github.com/scicore-run/forge/objectstore"
)

// fakeLister is an in-memory stand-in for objectstore.Client, built directly
// against the Lister interface so planner logic can be exercised without any
// network dependency.
type fakeLister struct {
	objects       []objectstore.Object
	commonPrefixes []string
	prefixLevels   map[string][]string // basePrefix -> immediate children at requested depth
}

func (f *fakeLister) StreamObjects(ctx context.Context, params objectstore.StreamParams, visit func(objectstore.Object) error, onCommonPrefixes objectstore.OnCommonPrefixes) error {
	if len(f.commonPrefixes) > 0 && onCommonPrefixes != nil {
		if err := onCommonPrefixes(f.commonPrefixes); err != nil {
			return err
		}
	}
	count := 0
	for _, o := range f.objects {
		if params.MaxFiles > 0 && count >= params.MaxFiles {
			break
		}
		if err := visit(o); err != nil {
			return err
		}
		count++
	}
	return nil
}

func (f *fakeLister) ListPrefixesAtDepth(ctx context.Context, bucket, basePrefix string, depth int) ([]string, error) {
	return f.prefixLevels[basePrefix], nil
}

func TestPlan_SingleMode(t *testing.T) {
	spec := manifest.Spec{Args: []string{"--x"}}
	var items []PlanItem
	err := Plan(context.Background(), &fakeLister{}, spec, func(pi PlanItem) error {
		items = append(items, pi)
		return nil
	})
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	if len(items) != 1 || !items[0].Source.Single {
		t.Fatalf("expected one single-mode item, got %+v", items)
	}
}

func TestPlan_BatchEnabled_NoInputs(t *testing.T) {
	enabled := true
	spec := manifest.Spec{IO: &manifest.IO{Batch: &manifest.Batch{Enabled: enabled}}}
	err := Plan(context.Background(), &fakeLister{}, spec, func(pi PlanItem) error { return nil })
	if !errors.Is(err, ErrNoInputs) {
		t.Fatalf("Plan() error = %v, want ErrNoInputs", err)
	}
}

func TestPlan_GroupByPrefix(t *testing.T) {
	enabled := true
	spec := manifest.Spec{
		IO: &manifest.IO{
			Inputs: []manifest.Input{{URL: "s3://bucket/data/"}},
			Batch:  &manifest.Batch{Enabled: enabled, Grouping: manifest.GroupingPrefix, PrefixDepth: 1},
		},
	}
	lister := &fakeLister{prefixLevels: map[string][]string{
		"data/": {"data/a/", "data/b/"},
	}}

	var items []PlanItem
	err := Plan(context.Background(), lister, spec, func(pi PlanItem) error {
		items = append(items, pi)
		return nil
	})
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Inputs[0].Prefix != "data/a/" || !items[0].Inputs[0].Recursive {
		t.Errorf("unexpected first item: %+v", items[0])
	}
}

func TestPlan_GroupByObject_PacksAndTemplatesArgs(t *testing.T) {
	enabled := true
	spec := manifest.Spec{
		Args: []string{"--input", "{in}"},
		IO: &manifest.IO{
			Inputs: []manifest.Input{{URL: "s3://bucket/data/"}},
			Batch:  &manifest.Batch{Enabled: enabled, Grouping: manifest.GroupingObject, MaxPerTask: 2},
		},
	}
	lister := &fakeLister{
		objects: []objectstore.Object{
			{Bucket: "bucket", Key: "data/a.jpg"},
			{Bucket: "bucket", Key: "data/b.jpg"},
			{Bucket: "bucket", Key: "data/c.jpg"},
		},
		commonPrefixes: []string{"data/sub/"},
	}

	var items []PlanItem
	err := Plan(context.Background(), lister, spec, func(pi PlanItem) error {
		items = append(items, pi)
		return nil
	})
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 packed items (2+1), got %d", len(items))
	}
	if len(items[0].LocalInputs) != 2 || len(items[1].LocalInputs) != 1 {
		t.Fatalf("unexpected pack sizes: %+v", items)
	}
	// {in} with exactly one basename substitutes, otherwise stays literal.
	wantFirst := []string{"--input", "{in}"}
	if !reflect.DeepEqual(items[0].Args, wantFirst) {
		t.Errorf("first pack args = %v, want %v (multi-basename leaves {in} literal)", items[0].Args, wantFirst)
	}
	wantSecond := []string{"--input", "c.jpg"}
	if !reflect.DeepEqual(items[1].Args, wantSecond) {
		t.Errorf("second pack args = %v, want %v", items[1].Args, wantSecond)
	}
	if len(items[0].Source.SubPrefixes) != 1 || items[0].Source.SubPrefixes[0] != "data/sub/" {
		t.Errorf("expected first pack to consume the commonPrefixes marker, got %+v", items[0].Source)
	}
}

func TestPlan_VisitErrorStopsPlanning(t *testing.T) {
	enabled := true
	spec := manifest.Spec{
		IO: &manifest.IO{
			Inputs: []manifest.Input{{URL: "s3://bucket/data/"}},
			Batch:  &manifest.Batch{Enabled: enabled, Grouping: manifest.GroupingObject, MaxPerTask: 1},
		},
	}
	lister := &fakeLister{objects: []objectstore.Object{
		{Bucket: "bucket", Key: "data/a.jpg"},
		{Bucket: "bucket", Key: "data/b.jpg"},
	}}

	boom := errors.New("boom")
	count := 0
	err := Plan(context.Background(), lister, spec, func(pi PlanItem) error {
		count++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Plan() error = %v, want boom", err)
	}
	if count != 1 {
		t.Fatalf("expected planning to stop after first visit error, got %d calls", count)
	}
}
