package lex

import "testing"

func TestLexerBasic(t *testing.T) {
	src := `struct P { var f: Int } in fact(6) -> Int { if n > 1 ? n * fact(n - 1) ! 1 }`
	l := New("t.mvs", src)
	toks := l.All()
	if toks[len(toks)-1].Kind != EOF {
		t.Fatalf("expected trailing EOF token")
	}
	if toks[0].Kind != KwStruct {
		t.Fatalf("expected struct keyword, got %v", toks[0].Kind)
	}
}

func TestLexerFloatVsInt(t *testing.T) {
	l := New("t.mvs", "2.0 16 3.5e2")
	toks := l.All()
	if toks[0].Kind != FloatLit || toks[0].Text != "2.0" {
		t.Fatalf("expected float 2.0, got %v %q", toks[0].Kind, toks[0].Text)
	}
	if toks[1].Kind != IntLit || toks[1].Text != "16" {
		t.Fatalf("expected int 16, got %v %q", toks[1].Kind, toks[1].Text)
	}
	if toks[2].Kind != FloatLit || toks[2].Text != "3.5e2" {
		t.Fatalf("expected float 3.5e2, got %v %q", toks[2].Kind, toks[2].Text)
	}
}

func TestLexerComment(t *testing.T) {
	l := New("t.mvs", "1 // a comment\n2")
	toks := l.All()
	if len(toks) != 3 || toks[0].Text != "1" || toks[1].Text != "2" {
		t.Fatalf("comment not skipped: %+v", toks)
	}
}

func TestLexerUnderscoreWildcard(t *testing.T) {
	l := New("t.mvs", "_ = sw(&num, &num) in p")
	toks := l.All()
	if toks[0].Kind != Underscore {
		t.Fatalf("expected underscore, got %v", toks[0].Kind)
	}
}
