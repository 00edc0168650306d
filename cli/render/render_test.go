package render

import (
	"bytes"
	"strings"
	"testing"
)

type sample struct {
	TaskID string `json:"taskId"`
	Code   int    `json:"code"`
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatJSON, &buf)
	if err := r.Render(sample{TaskID: "t-1", Code: 0}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), `"taskId": "t-1"`) {
		t.Errorf("output = %q, want taskId field", buf.String())
	}
}

func TestRender_Table(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, &buf)
	if err := r.Render(sample{TaskID: "t-1", Code: 2}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "taskId") || !strings.Contains(out, "t-1") {
		t.Errorf("output = %q, want taskId/t-1", out)
	}
}

func TestRender_SliceTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, &buf)
	if err := r.Render([]sample{}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "(no results)") {
		t.Errorf("output = %q, want empty-slice marker", buf.String())
	}
}

func TestParseFormat_RejectsUnknown(t *testing.T) {
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
