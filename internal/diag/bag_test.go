package diag

import (
	"testing"

	"pyscope/internal/source"
)

func d(file string, start uint32, sev Severity, code Code) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Message:  "msg",
		Primary:  source.Span{File: file, Start: start, End: start + 1},
	}
}

func TestBagLimit(t *testing.T) {
	bag := NewBag(2)
	if !bag.Add(d("a.py", 0, SevError, SynUnexpectedToken)) {
		t.Fatalf("first add rejected")
	}
	if !bag.Add(d("a.py", 1, SevError, SynUnexpectedToken)) {
		t.Fatalf("second add rejected")
	}
	if bag.Add(d("a.py", 2, SevError, SynUnexpectedToken)) {
		t.Fatalf("add beyond the limit accepted")
	}
	if bag.Len() != 2 {
		t.Fatalf("len = %d, want 2", bag.Len())
	}
}

func TestBagSortIsDeterministic(t *testing.T) {
	bag := NewBag(10)
	bag.Add(d("b.py", 5, SevWarning, SemUnusedVariable))
	bag.Add(d("a.py", 9, SevError, SynUnexpectedToken))
	bag.Add(d("a.py", 2, SevInfo, SemInfo))
	bag.Add(d("a.py", 2, SevError, SemNotCallable))
	bag.Sort()

	items := bag.Items()
	if items[0].Primary.File != "a.py" || items[0].Primary.Start != 2 {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
	// same position: the error outranks the info
	if items[0].Severity != SevError {
		t.Fatalf("severity ordering lost: %+v", items[0])
	}
	if items[3].Primary.File != "b.py" {
		t.Fatalf("file ordering lost: %+v", items[3])
	}
}

func TestBagMergeGrowsCapacity(t *testing.T) {
	a := NewBag(1)
	a.Add(d("a.py", 0, SevError, SynUnexpectedToken))
	b := NewBag(1)
	b.Add(d("b.py", 0, SevWarning, SemUnusedVariable))

	a.Merge(b)
	if a.Len() != 2 {
		t.Fatalf("merge lost items: %d", a.Len())
	}
	if !a.HasErrors() {
		t.Fatalf("merged bag lost its error")
	}
}
