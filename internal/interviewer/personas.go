// Package interviewer drives the simulated interviewer: persona prompts,
// per-turn responses and the end-of-session evaluation.
package interviewer

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPersona is used for unknown company keys
const DefaultPersona = "generic"

// Persona shapes the interviewer's tone for a target company
type Persona struct {
	Company     string `yaml:"company" json:"company"`
	Description string `yaml:"description" json:"description"`
}

// Personas maps company keys to personas
type Personas map[string]Persona

// DefaultPersonas returns the built-in persona table
func DefaultPersonas() Personas {
	return Personas{
		"amazon": {
			Company: "Amazon",
			Description: "You are a Principal Engineer at Amazon. You deeply value Amazon's Leadership Principles, " +
				"especially Customer Obsession, Ownership, and Bias for Action. " +
				"You ask behavioral questions using STAR format. You probe for specifics. " +
				"You are direct but respectful.",
		},
		"google": {
			Company: "Google",
			Description: "You are a Senior Engineer at Google. You value structured thinking, intellectual curiosity, " +
				"and collaborative problem-solving. You appreciate candidates who think out loud. " +
				"You're warm and encouraging but expect depth.",
		},
		"startup": {
			Company: "a fast-growing startup",
			Description: "You are a CTO at a Series A startup. You care about hustle, adaptability, and ownership. " +
				"You're casual and direct, no corporate fluff. You appreciate honesty about failures.",
		},
		"infosys": {
			Company: "Infosys",
			Description: "You are an HR Manager at Infosys conducting a campus placement interview. " +
				"You follow a structured format. You are professional, formal, and thorough.",
		},
		DefaultPersona: {
			Company: "our company",
			Description: "You are an experienced HR professional and hiring manager. " +
				"You conduct balanced interviews covering behavioral, situational, and culture-fit questions. " +
				"You are professional, encouraging, and thorough.",
		},
	}
}

// Get looks up a persona case-insensitively, falling back to generic
func (p Personas) Get(key string) Persona {
	if persona, ok := p[strings.ToLower(key)]; ok {
		return persona
	}
	return p[DefaultPersona]
}

// Has reports whether key names a configured persona
func (p Personas) Has(key string) bool {
	_, ok := p[strings.ToLower(key)]
	return ok
}

// Keys returns the configured company keys, sorted
func (p Personas) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadPersonas returns the defaults merged with overrides from a YAML file.
// An empty path returns the defaults. Each entry must set both fields.
func LoadPersonas(path string) (Personas, error) {
	personas := DefaultPersonas()
	if path == "" {
		return personas, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read personas file: %w", err)
	}

	var overrides map[string]Persona
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse personas file: %w", err)
	}
	for key, persona := range overrides {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" || persona.Company == "" || persona.Description == "" {
			return nil, fmt.Errorf("persona %q must define company and description", key)
		}
		personas[key] = persona
	}
	return personas, nil
}
