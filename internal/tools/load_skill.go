package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/opencea/cea/internal/skillsdir"
)

var loadSkillSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"name": {"type": "string"},
		"relativePath": {"type": "string"}
	},
	"required": ["name"]
}`)

type loadSkillInput struct {
	Name         string `json:"name"`
	RelativePath string `json:"relativePath"`
}

// RegisterLoadSkill wires the load_skill tool (§4.5/§4.13) onto resolver.
func RegisterLoadSkill(r *Registry, resolver *skillsdir.Resolver) {
	r.Register(Definition{
		Name:        "load_skill",
		Description: "Load a skill document by name, optionally a file bundled inside that skill's directory via relativePath.",
		InputSchema: loadSkillSchema,
	}, func(ctx context.Context, input json.RawMessage) (string, error) {
		var in loadSkillInput
		if err := json.Unmarshal(input, &in); err != nil {
			return "", fmt.Errorf("load_skill: %w", err)
		}

		content, err := resolver.Load(in.Name, in.RelativePath)
		if err != nil {
			return "", fmt.Errorf("load_skill: %w", err)
		}
		return content, nil
	})
}
