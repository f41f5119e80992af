package progress

import (
	"bytes"
	"testing"
)

func TestCIReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewCIReporter(&buf, "Ingesting documents")
	r.Start(2)
	r.Update(1, "a.txt: indexed")
	r.Update(2, "b.pdf: skipped")
	r.Finish("2 processed")

	want := "Ingesting documents: 2 file(s)\n[1/2] a.txt: indexed\n[2/2] b.pdf: skipped\n2 processed\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestCIReporterDefaultSummary(t *testing.T) {
	var buf bytes.Buffer
	r := NewCIReporter(&buf, "Ingesting documents")
	r.Start(0)
	r.Finish("")
	if got := buf.String(); got != "Ingesting documents: 0 file(s)\nIngesting documents: done\n" {
		t.Errorf("output = %q", got)
	}
}

func TestNewReporterInCI(t *testing.T) {
	t.Setenv("CI", "true")
	if _, ok := NewReporter("x").(*CIReporter); !ok {
		t.Error("expected CIReporter when CI is set")
	}
}
