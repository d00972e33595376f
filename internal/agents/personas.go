package agents

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/eduplanner-backend/internal/domain/collab"
)

//go:embed personas.yaml
var defaultPersonas []byte

const fallbackTask = "Awaiting new prompt."

type Persona struct {
	Name              collab.AgentName `yaml:"name"`
	DefaultTask       string           `yaml:"default_task"`
	SystemInstruction string           `yaml:"system_instruction"`
}

type personaFile struct {
	Agents []Persona `yaml:"agents"`
}

type Personas struct {
	byName map[collab.AgentName]Persona
}

// LoadPersonas reads the persona document at path, or the embedded default when path is empty.
func LoadPersonas(path string) (*Personas, error) {
	raw := defaultPersonas
	if path = strings.TrimSpace(path); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read personas %s: %w", path, err)
		}
		raw = b
	}
	return ParsePersonas(raw)
}

func ParsePersonas(raw []byte) (*Personas, error) {
	var pf personaFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return nil, fmt.Errorf("parse personas: %w", err)
	}
	p := &Personas{byName: make(map[collab.AgentName]Persona, len(pf.Agents))}
	for _, a := range pf.Agents {
		if !a.Name.Valid() {
			return nil, fmt.Errorf("parse personas: unknown agent %q", a.Name)
		}
		a.SystemInstruction = strings.TrimSpace(a.SystemInstruction)
		p.byName[a.Name] = a
	}
	for _, name := range collab.AllAgents {
		if _, ok := p.byName[name]; !ok {
			return nil, fmt.Errorf("parse personas: missing agent %s", name)
		}
	}
	return p, nil
}

// MustDefaultPersonas is for tests and tools that cannot recover from a broken embed.
func MustDefaultPersonas() *Personas {
	p, err := ParsePersonas(defaultPersonas)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Personas) SystemInstruction(name collab.AgentName) string {
	return p.byName[name].SystemInstruction
}

func (p *Personas) DefaultTask(name collab.AgentName) string {
	if t := p.byName[name].DefaultTask; t != "" {
		return t
	}
	return fallbackTask
}

// Board returns every agent idle with its default task.
func (p *Personas) Board() []collab.Agent {
	out := make([]collab.Agent, 0, len(collab.AllAgents))
	for _, name := range collab.AllAgents {
		out = append(out, collab.Agent{Name: name, Status: collab.AgentIdle, Task: p.DefaultTask(name)})
	}
	return out
}
