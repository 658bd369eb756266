package index

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestParseSynonyms_Normalizes(t *testing.T) {
	data := []byte(`
name: ingredient-synonyms
rules:
  - "ペクチン, pectin ,ＰＥＣＴＩＮ"
  - "sugar, sucrose, sugar"
  - "lonely"
  - ""
`)
	m, err := ParseSynonyms(data)
	if err != nil {
		t.Fatalf("ParseSynonyms() ошибка: %v", err)
	}
	if m.Name != "ingredient-synonyms" {
		t.Errorf("Name = %q", m.Name)
	}
	want := []string{"ペクチン, pectin, PECTIN", "sugar, sucrose"}
	if !reflect.DeepEqual(m.Rules, want) {
		t.Errorf("Rules = %q, ожидалось %q", m.Rules, want)
	}
}

func TestParseSynonyms_RequiresName(t *testing.T) {
	if _, err := ParseSynonyms([]byte("rules: [\"a, b\"]")); err == nil {
		t.Fatal("ожидалась ошибка без name")
	}
}

func TestParseSynonyms_RequiresRules(t *testing.T) {
	if _, err := ParseSynonyms([]byte("name: x\nrules: [\"single\"]")); err == nil {
		t.Fatal("ожидалась ошибка без правил")
	}
}

func TestLoadSynonyms_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synonyms.yaml")
	if err := os.WriteFile(path, []byte("name: s\nrules:\n  - \"a, b\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	m, err := LoadSynonyms(path)
	if err != nil {
		t.Fatalf("LoadSynonyms() ошибка: %v", err)
	}
	if len(m.Rules) != 1 || m.Rules[0] != "a, b" {
		t.Errorf("Rules = %q", m.Rules)
	}
}

func TestDisabled_ReturnsNotConfigured(t *testing.T) {
	var c Client = Disabled{}
	if c.Enabled() {
		t.Error("Disabled.Enabled() = true")
	}
	if _, err := c.Search(t.Context(), nil); err != ErrNotConfigured {
		t.Errorf("Search() = %v, ожидался ErrNotConfigured", err)
	}
	if err := c.Delete(t.Context(), "x"); err != ErrNotConfigured {
		t.Errorf("Delete() = %v, ожидался ErrNotConfigured", err)
	}
}
