package index

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// SynonymMap описывает набор синонимов в формате Solr. Каждое правило
// содержит эквивалентные термины через запятую.
type SynonymMap struct {
	Name  string   `yaml:"name"`
	Rules []string `yaml:"rules"`
}

// LoadSynonyms читает YAML-файл набора синонимов и нормализует правила.
func LoadSynonyms(path string) (*SynonymMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла синонимов: %w", err)
	}
	return ParseSynonyms(data)
}

// ParseSynonyms разбирает YAML набора синонимов.
// Термины приводятся к NFKC (полноширинные символы → обычные),
// пустые термины и правила из одного термина отбрасываются.
func ParseSynonyms(data []byte) (*SynonymMap, error) {
	var m SynonymMap
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("ошибка разбора YAML синонимов: %w", err)
	}
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return nil, fmt.Errorf("не задано имя набора синонимов (name)")
	}

	rules := make([]string, 0, len(m.Rules))
	for _, rule := range m.Rules {
		terms := SplitSynonymRule(rule)
		if len(terms) < 2 {
			continue
		}
		rules = append(rules, strings.Join(terms, ", "))
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("набор синонимов %q не содержит правил", m.Name)
	}
	m.Rules = rules
	return &m, nil
}

// SplitSynonymRule разбивает правило на нормализованные термины
// без дубликатов, сохраняя порядок.
func SplitSynonymRule(rule string) []string {
	parts := strings.Split(norm.NFKC.String(rule), ",")
	seen := make(map[string]bool, len(parts))
	terms := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.Join(strings.Fields(p), " ")
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		terms = append(terms, t)
	}
	return terms
}
