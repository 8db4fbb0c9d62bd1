package extract

import (
	"testing"

	"calltree/internal/engine/scanner"
)

func scanFor(t *testing.T, src, lang string) ([]scanner.Line, Spec) {
	t.Helper()
	spec, ok := SpecFor(lang)
	if !ok {
		t.Fatalf("no spec for %s", lang)
	}
	return scanner.Scan(src, spec.Syntax), spec
}

func TestExtract_PythonSimple(t *testing.T) {
	src := "def greet(name):\n    print(name)\n\ndef add(x, y):\n    return x + y\n"
	lines, spec := scanFor(t, src, "python")

	fns := Extract(lines, spec)
	if len(fns) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(fns))
	}
	if fns[0].Name != "greet" || fns[0].StartLine != 1 {
		t.Errorf("greet: got %q at line %d", fns[0].Name, fns[0].StartLine)
	}
	if fns[0].Params != "name" {
		t.Errorf("greet params: %q", fns[0].Params)
	}
	if fns[1].Name != "add" || fns[1].StartLine != 4 {
		t.Errorf("add: got %q at line %d", fns[1].Name, fns[1].StartLine)
	}
	if fns[0].EndLine != 2 {
		t.Errorf("greet body should end at line 2, got %d", fns[0].EndLine)
	}
}

func TestExtract_MultiLineHeader(t *testing.T) {
	src := "def greet(name):\n    pass\n\ndef add(\n    x,\n    y,\n):\n    return x + y\n"
	lines, spec := scanFor(t, src, "python")

	fns := Extract(lines, spec)
	if len(fns) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(fns))
	}
	add := fns[1]
	if add.StartLine != 4 {
		t.Errorf("add should start at line 4, got %d", add.StartLine)
	}
	if add.Params != "x, y," {
		t.Errorf("expected collapsed params %q, got %q", "x, y,", add.Params)
	}
	if add.HeaderEnd != 7 {
		t.Errorf("header should end at line 7, got %d", add.HeaderEnd)
	}
	if add.EndLine != 8 {
		t.Errorf("body should end at line 8, got %d", add.EndLine)
	}
}

func TestExtract_KeywordInStringOrComment(t *testing.T) {
	src := "def real():\n    s = \"def fake(x):\"\n    # def commented(y):\n    return s\n"
	lines, spec := scanFor(t, src, "python")

	fns := Extract(lines, spec)
	if len(fns) != 1 {
		t.Fatalf("expected 1 function, got %d", len(fns))
	}
	if fns[0].Name != "real" {
		t.Errorf("expected real, got %q", fns[0].Name)
	}
}

func TestExtract_DecoratorNotPartOfHeader(t *testing.T) {
	src := "@wraps(fn)\ndef wrapped(a):\n    pass\n"
	lines, spec := scanFor(t, src, "python")

	fns := Extract(lines, spec)
	if len(fns) != 1 {
		t.Fatalf("expected 1 function, got %d", len(fns))
	}
	if fns[0].StartLine != 2 {
		t.Errorf("line number must point at the keyword line, got %d", fns[0].StartLine)
	}
}

func TestExtract_UnterminatedHeader(t *testing.T) {
	src := "def ok():\n    pass\n\ndef broken(a,\n    b,\n"
	lines, spec := scanFor(t, src, "python")

	fns := Extract(lines, spec)
	if len(fns) != 2 {
		t.Fatalf("expected 2 functions (one malformed), got %d", len(fns))
	}
	if !fns[1].Malformed {
		t.Error("expected broken to be flagged malformed")
	}
	if fns[0].Malformed {
		t.Error("well-formed definition must not be flagged")
	}
}

func TestExtract_RustBraceBodies(t *testing.T) {
	src := "fn outer() {\n    inner();\n}\n\nfn inner() {\n    if true {\n        return;\n    }\n}\n"
	lines, spec := scanFor(t, src, "rust")

	fns := Extract(lines, spec)
	if len(fns) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(fns))
	}
	if fns[0].EndLine != 3 {
		t.Errorf("outer body should end at line 3, got %d", fns[0].EndLine)
	}
	if fns[1].EndLine != 9 {
		t.Errorf("inner body should end at line 9, got %d", fns[1].EndLine)
	}
}

func TestExtract_RustGenerics(t *testing.T) {
	src := "fn convert<T: Into<String>>(value: T) -> String {\n    value.into()\n}\n"
	lines, spec := scanFor(t, src, "rust")

	fns := Extract(lines, spec)
	if len(fns) != 1 {
		t.Fatalf("expected 1 function, got %d", len(fns))
	}
	if fns[0].Name != "convert" {
		t.Errorf("expected convert, got %q", fns[0].Name)
	}
	if fns[0].Params != "value: T" {
		t.Errorf("unexpected params %q", fns[0].Params)
	}
}

func TestExtract_GoMethodReceiver(t *testing.T) {
	src := "func (s *Server) Handle(req Request) error {\n    return nil\n}\n"
	lines, spec := scanFor(t, src, "go")

	fns := Extract(lines, spec)
	if len(fns) != 1 {
		t.Fatalf("expected 1 function, got %d", len(fns))
	}
	if fns[0].Name != "Handle" {
		t.Errorf("expected Handle, got %q", fns[0].Name)
	}
	if fns[0].Params != "req Request" {
		t.Errorf("unexpected params %q", fns[0].Params)
	}
}

func TestExtract_DeclarationWithoutBody(t *testing.T) {
	src := "fn sig(a: u8);\nfn real() {\n    sig(1);\n}\n"
	lines, spec := scanFor(t, src, "rust")

	fns := Extract(lines, spec)
	if len(fns) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(fns))
	}
	if fns[0].EndLine != fns[0].HeaderEnd {
		t.Errorf("declaration body should be empty, end=%d header=%d",
			fns[0].EndLine, fns[0].HeaderEnd)
	}
}

func TestExtract_EmptyFile(t *testing.T) {
	lines, spec := scanFor(t, "", "python")
	if fns := Extract(lines, spec); len(fns) != 0 {
		t.Errorf("expected no functions, got %d", len(fns))
	}
}

func TestDetectLanguage(t *testing.T) {
	cases := map[string]string{
		"script.py": "python",
		"lib.rs":    "rust",
		"main.go":   "go",
	}
	for path, want := range cases {
		got, ok := DetectLanguage(path)
		if !ok || got != want {
			t.Errorf("DetectLanguage(%s) = %q, %v; want %q", path, got, ok, want)
		}
	}
	if _, ok := DetectLanguage("notes.txt"); ok {
		t.Error("expected unknown extension to be unsupported")
	}
}
