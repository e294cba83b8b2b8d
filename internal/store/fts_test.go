package store

import "testing"

func TestBuildFTSQueryDropsStopwordsAndShortTokens(t *testing.T) {
	got := BuildFTSQuery("fix the bug in parser")
	if got != "fix OR bug OR parser" {
		t.Errorf("unexpected query: %q", got)
	}
}

func TestBuildFTSQueryTrimsPunctuation(t *testing.T) {
	got := BuildFTSQuery(`"handler," (retry)`)
	if got != "handler OR retry" {
		t.Errorf("unexpected query: %q", got)
	}
}

func TestBuildFTSQueryKeepsIdentifiers(t *testing.T) {
	got := BuildFTSQuery("call parse_config from main")
	if got != "call OR parse_config OR main" {
		t.Errorf("unexpected query: %q", got)
	}
}

func TestBuildFTSQueryAllStopwords(t *testing.T) {
	if got := BuildFTSQuery("the a an of to"); got != "" {
		t.Errorf("expected empty query, got %q", got)
	}
}
