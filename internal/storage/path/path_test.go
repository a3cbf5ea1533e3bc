package path

import "testing"

func TestParseDocument(t *testing.T) {
	p, err := Parse("/path/to/document")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.String() != "path/to/document" {
		t.Fatalf("got %q", p.String())
	}
	if !p.IsDocument() || p.IsFolder() {
		t.Fatalf("expected document path")
	}
}

func TestParseFolder(t *testing.T) {
	p, err := Parse("/path/to/folder/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.IsFolder() || p.IsDocument() {
		t.Fatalf("expected folder path")
	}
}

func TestParseEmpty(t *testing.T) {
	for _, input := range []string{"", " "} {
		p, err := Parse(input)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !p.IsRoot() {
			t.Fatalf("expected root for %q", input)
		}
	}
}

func TestParseRejectsEmptySegment(t *testing.T) {
	_, err := Parse("/path/to//document")
	var wrong *WrongPartNameError
	if err == nil {
		t.Fatal("expected error")
	}
	if !assertAs(err, &wrong) {
		t.Fatalf("expected WrongPartNameError, got %T", err)
	}
	if wrong.Cause != IsEmpty {
		t.Fatalf("expected IsEmpty, got %v", wrong.Cause)
	}
	if wrong.Until.String() != "path/to/" {
		t.Fatalf("expected prefix path/to/, got %q", wrong.Until.String())
	}
}

func TestParseRejectsSinglePoint(t *testing.T) {
	_, err := Parse("/path/to/./document")
	var wrong *WrongPartNameError
	if !assertAs(err, &wrong) || wrong.Cause != IsSinglePoint {
		t.Fatalf("expected IsSinglePoint, got %v", err)
	}
}

func TestParseRejectsDoublePoint(t *testing.T) {
	_, err := Parse("/path/to/../document")
	var wrong *WrongPartNameError
	if !assertAs(err, &wrong) || wrong.Cause != IsDoublePoint {
		t.Fatalf("expected IsDoublePoint, got %v", err)
	}
}

func TestParseRejectsItemData(t *testing.T) {
	_, err := Parse("folder/name.itemdata.toml")
	var wrong *WrongPartNameError
	if !assertAs(err, &wrong) || wrong.Cause != ContainsItemData {
		t.Fatalf("expected ContainsItemData, got %v", err)
	}
}

func assertAs(err error, target **WrongPartNameError) bool {
	if w, ok := err.(*WrongPartNameError); ok {
		*target = w
		return true
	}
	return false
}

func TestIsDirectChild(t *testing.T) {
	child := MustParse("public/path/to/document")
	parent := MustParse("public/path/to/")
	if !child.IsDirectChild(parent) {
		t.Fatal("expected direct child")
	}
	if child.IsDirectChild(MustParse("public/path/")) {
		t.Fatal("expected not direct child (too far)")
	}
	if child.IsDirectChild(MustParse("no/common/")) {
		t.Fatal("expected not direct child (no common prefix)")
	}
}

func TestParentChain(t *testing.T) {
	p := MustParse("public/path/to/")
	parent, ok := p.Parent()
	if !ok || parent.String() != "public/path/" {
		t.Fatalf("got %q, %v", parent.String(), ok)
	}

	depthOne := MustParse("public/")
	parent, ok = depthOne.Parent()
	if !ok || !parent.IsRoot() {
		t.Fatalf("expected root parent for depth-1 path, got %q, %v", parent.String(), ok)
	}

	_, ok = Root.Parent()
	if ok {
		t.Fatal("expected root to have no parent")
	}
}

func TestStartsWith(t *testing.T) {
	p := MustParse("public/path/to/document")
	if !p.StartsWith(MustParse("public/")) {
		t.Fatal("expected prefix match")
	}
	if !p.StartsWith(p) {
		t.Fatal("expected full self match")
	}
}

func TestAsDatafile(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ".folder.itemdata.toml"},
		{"folder/", "folder/.folder.itemdata.toml"},
		{"folder/subfolder/", "folder/subfolder/.folder.itemdata.toml"},
		{"file.json", "file.json.itemdata.toml"},
		{"folder/file.json", "folder/file.json.itemdata.toml"},
	}
	for _, c := range cases {
		got := MustParse(c.in).AsDatafile(".itemdata.toml").String()
		if got != c.want {
			t.Errorf("AsDatafile(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
