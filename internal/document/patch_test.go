package document_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"resumeStudio/internal/document"
)

func TestPatch_KeysMatchWireNames(t *testing.T) {
	var p document.Patch
	if !p.Empty() || len(p.Keys()) != 0 {
		t.Fatalf("zero patch should be empty, got %v", p.Keys())
	}

	body := `{"experience":[],"title":"CV","sectionPaddings":{}}`
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatal(err)
	}
	want := []string{"title", "experience", "sectionPaddings"}
	if got := p.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if p.Empty() {
		t.Fatal("patch with fields reported empty")
	}
}
