package spec

import (
	"fmt"
	"sort"
	"strings"

	"beluga/pkg/merge"
)

// nanoCPUFactor converts fractional cores to the swarm nanocpu unit.
const nanoCPUFactor = 1e10

// Name templates for the deterministic service name. The three-part form
// is used only when the session has a named server.
const (
	nameTemplate      = "{prefix}-{username}"
	namedNameTemplate = "{prefix}-{username}-{servername}"
)

// Builder derives a ServiceSpec from the session identity, the admin-wide
// default config and the selected profile. Pure: it never talks to Docker.
type Builder struct {
	Prefix     string
	Username   string
	ServerName string

	Command []string
	Args    []string
	Env     map[string]string

	CPULimit     float64
	CPUGuarantee float64
	MemLimit     interface{}
	MemGuarantee interface{}

	DefaultConfig map[string]interface{}
	Profile       *Profile
}

// Namespace returns the template substitution fields for this session.
func (b *Builder) Namespace() map[string]string {
	profile := ""
	if b.Profile != nil {
		profile = b.Profile.Name
	}
	return map[string]string{
		"prefix":     b.Prefix,
		"username":   b.Username,
		"servername": b.ServerName,
		"profile":    profile,
	}
}

// ServiceName derives the deterministic service name for this session.
func (b *Builder) ServiceName() (string, error) {
	template := nameTemplate
	if b.ServerName != "" {
		template = namedNameTemplate
	}
	return FormatString(template, b.Namespace())
}

// Build layers the minimal base config, the admin defaults and the selected
// profile into one config map, injects the identity labels and resolves the
// mount templates. The map feeds Decode for the typed spec.
func (b *Builder) Build() (map[string]interface{}, error) {
	name, err := b.ServiceName()
	if err != nil {
		return nil, fmt.Errorf("service adı türetilemedi: %w", err)
	}

	config := map[string]interface{}{
		"name": name,
		"env":  b.envList(),
	}
	if len(b.Command) > 0 {
		config["command"] = toValueList(b.Command)
	}
	if len(b.Args) > 0 {
		config["args"] = toValueList(b.Args)
	}
	if resources := b.resources(); len(resources) > 0 {
		config["resources"] = resources
	}

	if len(b.DefaultConfig) > 0 {
		config, err = merge.Merge(config, b.DefaultConfig)
		if err != nil {
			return nil, fmt.Errorf("default config birleştirilemedi: %w", err)
		}
	}

	profileName := ""
	if b.Profile != nil {
		profileName = b.Profile.Name
		if len(b.Profile.Config) > 0 {
			config, err = merge.Merge(config, b.Profile.Config)
			if err != nil {
				return nil, fmt.Errorf("profil config birleştirilemedi (%s): %w", profileName, err)
			}
		}
	}

	config["labels"] = b.mergeLabels(config["labels"], profileName)

	if rawMounts, ok := config["mounts"].([]interface{}); ok {
		mounts := make([]interface{}, len(rawMounts))
		for i, raw := range rawMounts {
			formatted, err := b.formatMount(raw)
			if err != nil {
				return nil, err
			}
			mounts[i] = formatted
		}
		config["mounts"] = mounts
	}

	return config, nil
}

// BuildSpec runs Build and decodes the result into the typed spec.
func (b *Builder) BuildSpec() (*ServiceSpec, error) {
	config, err := b.Build()
	if err != nil {
		return nil, err
	}
	return Decode(config)
}

// envList serializes the env mapping as sorted "K=V" strings so identical
// inputs always yield an identical spec.
func (b *Builder) envList() []interface{} {
	keys := make([]string, 0, len(b.Env))
	for key := range b.Env {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	env := make([]interface{}, 0, len(keys))
	for _, key := range keys {
		env = append(env, fmt.Sprintf("%s=%s", key, b.Env[key]))
	}
	return env
}

func (b *Builder) resources() map[string]interface{} {
	resources := map[string]interface{}{}
	if b.CPULimit > 0 {
		resources["cpu_limit"] = b.CPULimit * nanoCPUFactor
	}
	if b.MemLimit != nil {
		resources["mem_limit"] = normalizeMemory(b.MemLimit)
	}
	if b.CPUGuarantee > 0 {
		resources["cpu_reservation"] = b.CPUGuarantee * nanoCPUFactor
	}
	if b.MemGuarantee != nil {
		resources["mem_reservation"] = normalizeMemory(b.MemGuarantee)
	}
	return resources
}

// mergeLabels lays the computed identity labels over whatever labels the
// config layers contributed. On collision the computed label wins.
func (b *Builder) mergeLabels(existing interface{}, profileName string) map[string]interface{} {
	labels := map[string]interface{}{}
	switch typed := existing.(type) {
	case map[string]interface{}:
		for key, val := range typed {
			labels[key] = val
		}
	case map[string]string:
		for key, val := range typed {
			labels[key] = val
		}
	}
	labels[LabelUser] = b.Username
	labels[LabelServer] = b.ServerName
	labels[LabelProfile] = profileName
	return labels
}

// formatMount applies template substitution to a single mount entry.
// String mounts are substituted whole, structured mounts get target and
// source substituted independently. The entry is copied, never mutated.
func (b *Builder) formatMount(raw interface{}) (interface{}, error) {
	ns := b.Namespace()
	switch typed := raw.(type) {
	case string:
		formatted, err := FormatString(typed, ns)
		if err != nil {
			return nil, fmt.Errorf("mount çözümlenemedi: %w", err)
		}
		return formatted, nil
	case map[string]interface{}:
		mount := make(map[string]interface{}, len(typed))
		for key, val := range typed {
			mount[key] = val
		}
		for _, field := range []string{"target", "source"} {
			if value, ok := mount[field].(string); ok {
				formatted, err := FormatString(value, ns)
				if err != nil {
					return nil, fmt.Errorf("mount %s çözümlenemedi: %w", field, err)
				}
				mount[field] = formatted
			}
		}
		return mount, nil
	default:
		return raw, nil
	}
}

func normalizeMemory(value interface{}) interface{} {
	if text, ok := value.(string); ok {
		return strings.ToLower(text)
	}
	return value
}

func toValueList(items []string) []interface{} {
	list := make([]interface{}, len(items))
	for i, item := range items {
		list[i] = item
	}
	return list
}
