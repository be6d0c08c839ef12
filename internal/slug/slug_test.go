package slug

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestGenerateFormat(t *testing.T) {
	s, err := Generate("OpenAI Releases GPT-5 With New Capabilities", map[string]struct{}{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(s, "openai-releases-gpt-5-") {
		t.Errorf("expected word part from first 4 words, got %q", s)
	}
	parts := strings.Split(s, "-")
	hash := parts[len(parts)-1]
	if len(hash) != 8 {
		t.Errorf("expected 8-char hash suffix, got %q", hash)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a, err := Generate("Anthropic announces new model", map[string]struct{}{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := Generate("Anthropic announces new model", map[string]struct{}{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if a != b {
		t.Errorf("same title produced different slugs: %q vs %q", a, b)
	}
}

func TestGenerateNormalizesPunctuation(t *testing.T) {
	s, err := Generate("  Hello, World!  (Again) ", map[string]struct{}{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(s, "hello-world-again-") {
		t.Errorf("expected punctuation stripped, got %q", s)
	}
}

func TestGenerateHashUsesOriginalTitle(t *testing.T) {
	// Same normalized word part, different raw titles: hashes must differ.
	a, _ := Generate("Hello World", map[string]struct{}{})
	b, _ := Generate("Hello, World", map[string]struct{}{})
	if a == b {
		t.Errorf("titles differing only in punctuation should produce different slugs, both %q", a)
	}
}

func TestGenerateCollisionProbing(t *testing.T) {
	title := "Breaking AI News Today"
	existing := map[string]struct{}{}

	base, err := Generate(title, existing)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	existing[base] = struct{}{}

	for i := 1; i <= 9; i++ {
		s, err := Generate(title, existing)
		if err != nil {
			t.Fatalf("probe %d: %v", i, err)
		}
		want := fmt.Sprintf("%s_%d", base, i)
		if s != want {
			t.Errorf("probe %d: expected %q, got %q", i, want, s)
		}
		existing[s] = struct{}{}
	}

	if _, err := Generate(title, existing); !errors.Is(err, ErrCollisionExhausted) {
		t.Errorf("expected ErrCollisionExhausted after 10 variants, got %v", err)
	}
}

func TestIsSuffixed(t *testing.T) {
	if IsSuffixed("abc-12345678") {
		t.Error("base slug should not be suffixed")
	}
	if !IsSuffixed("abc-12345678_3") {
		t.Error("expected _3 variant to be suffixed")
	}
	if IsSuffixed("abc_0") {
		t.Error("_0 is not a valid collision suffix")
	}
}

func TestClusterIDOrderIndependent(t *testing.T) {
	a := ClusterID("Big Story", []string{"slug-a", "slug-b", "slug-c"})
	b := ClusterID("Big Story", []string{"slug-c", "slug-a", "slug-b"})
	if a != b {
		t.Errorf("member order changed cluster id: %q vs %q", a, b)
	}
}

func TestClusterIDFormat(t *testing.T) {
	id := ClusterID("Big Story", []string{"slug-a"})
	if !strings.HasPrefix(id, "news-") {
		t.Errorf("expected news- prefix, got %q", id)
	}
	if len(id) != len("news-")+12 {
		t.Errorf("expected 12 hex chars after prefix, got %q", id)
	}
}

func TestClusterIDSensitiveToMembers(t *testing.T) {
	a := ClusterID("Big Story", []string{"slug-a"})
	b := ClusterID("Big Story", []string{"slug-b"})
	if a == b {
		t.Error("different members should produce different cluster ids")
	}
}

func TestContentHashIgnoresCaseAndEmpty(t *testing.T) {
	a := ContentHash("Title", "https://example.com", "")
	b := ContentHash("  title  ", "HTTPS://EXAMPLE.COM")
	if a != b {
		t.Errorf("hash should normalize case/whitespace and drop empty fields")
	}
	if ContentHash("x") == ContentHash("y") {
		t.Error("different inputs should hash differently")
	}
}

func TestNormalizeURL(t *testing.T) {
	cases := map[string]string{
		"https://www.example.com/page/":                 "example.com/page",
		"http://example.com/article?utm_source=feed#x":  "example.com/article",
		"HTTPS://Example.com/A/B/":                      "example.com/a/b",
		"example.com/plain":                             "example.com/plain",
	}
	for in, want := range cases {
		if got := NormalizeURL(in); got != want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", in, got, want)
		}
	}
}
