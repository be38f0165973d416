package infra

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// SolutionIDParameter is the template parameter that receives the solution ID.
const SolutionIDParameter = "SolutionId"

// Template is a CloudFormation template body plus the names of the
// parameters and outputs it declares.
type Template struct {
	Body       string
	Parameters []string
	Outputs    []string
}

// LoadTemplate reads a YAML template from disk and parses it.
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	return ParseTemplate(data)
}

// ParseTemplate checks that data is a YAML mapping with a Resources section
// and a SolutionId parameter. Intrinsic short forms (!Sub, !Ref) are accepted
// since the template is only inspected as a node tree.
func ParseTemplate(data []byte) (*Template, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("template must be a YAML mapping")
	}
	root := doc.Content[0]

	if mappingValue(root, "Resources") == nil {
		return nil, fmt.Errorf("template declares no Resources")
	}

	tmpl := &Template{
		Body:       string(data),
		Parameters: mappingKeys(mappingValue(root, "Parameters")),
		Outputs:    mappingKeys(mappingValue(root, "Outputs")),
	}
	if !slices.Contains(tmpl.Parameters, SolutionIDParameter) {
		return nil, fmt.Errorf("template does not declare the %s parameter", SolutionIDParameter)
	}
	return tmpl, nil
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func mappingKeys(m *yaml.Node) []string {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	keys := make([]string, 0, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		keys = append(keys, m.Content[i].Value)
	}
	return keys
}
