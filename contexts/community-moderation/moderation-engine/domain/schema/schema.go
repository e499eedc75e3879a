// Package schema declares the editable fields of every record type and checks
// suggestion payloads against them.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"ceto/contexts/community-moderation/moderation-engine/domain/entities"
	domainerrors "ceto/contexts/community-moderation/moderation-engine/domain/errors"

	"gopkg.in/yaml.v3"
)

//go:embed records.yaml
var defaultDocument []byte

type Kind string

const (
	KindString  Kind = "string"
	KindText    Kind = "text"
	KindNumber  Kind = "number"
	KindInteger Kind = "integer"
	KindDate    Kind = "date"
	KindURL     Kind = "url"
	KindRef     Kind = "ref"
)

const dateLayout = "2006-01-02"

type Field struct {
	Kind      Kind     `yaml:"kind"`
	Required  bool     `yaml:"required"`
	Immutable bool     `yaml:"immutable"`
	MaxLength int      `yaml:"max_length"`
	Min       *float64 `yaml:"min"`
	Max       *float64 `yaml:"max"`
	Ref       string   `yaml:"ref"`
}

type Target struct {
	Identity []string         `yaml:"identity"`
	Fields   map[string]Field `yaml:"fields"`
}

type Registry struct {
	Targets map[entities.TargetType]Target `yaml:"targets"`
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
	defaultErr      error
)

// Default returns the registry built from the embedded document.
func Default() (*Registry, error) {
	defaultOnce.Do(func() {
		defaultRegistry, defaultErr = Parse(defaultDocument)
	})
	return defaultRegistry, defaultErr
}

func MustDefault() *Registry {
	registry, err := Default()
	if err != nil {
		panic(err)
	}
	return registry
}

func Parse(document []byte) (*Registry, error) {
	var registry Registry
	if err := yaml.Unmarshal(document, &registry); err != nil {
		return nil, fmt.Errorf("decode record schema: %w", err)
	}
	if len(registry.Targets) == 0 {
		return nil, fmt.Errorf("record schema declares no targets")
	}
	for targetType, target := range registry.Targets {
		if _, ok := entities.ParseTargetType(string(targetType)); !ok {
			return nil, fmt.Errorf("record schema: unknown target %q", targetType)
		}
		for name, field := range target.Fields {
			switch field.Kind {
			case KindString, KindText, KindNumber, KindInteger, KindDate, KindURL:
			case KindRef:
				if _, ok := entities.ParseTargetType(field.Ref); !ok {
					return nil, fmt.Errorf("record schema: %s.%s references unknown target %q", targetType, name, field.Ref)
				}
			default:
				return nil, fmt.Errorf("record schema: %s.%s has unknown kind %q", targetType, name, field.Kind)
			}
		}
		for _, key := range target.Identity {
			if _, ok := target.Fields[key]; !ok {
				return nil, fmt.Errorf("record schema: %s identity uses undeclared field %q", targetType, key)
			}
		}
	}
	return &registry, nil
}

func (r *Registry) Target(targetType entities.TargetType) (Target, bool) {
	if r == nil {
		return Target{}, false
	}
	target, ok := r.Targets[targetType]
	return target, ok
}

// Validate checks a payload for the given operation and returns a normalized
// copy: strings trimmed, numbers widened to float64.
func (r *Registry) Validate(
	targetType entities.TargetType,
	operation entities.Operation,
	payload map[string]any,
) (map[string]any, error) {
	target, ok := r.Target(targetType)
	if !ok {
		return nil, domainerrors.Field("target_type", "is not a known record type")
	}

	switch operation {
	case entities.OperationDelete:
		if len(payload) > 0 {
			return nil, domainerrors.Field("payload", "must be empty for delete")
		}
		return map[string]any{}, nil
	case entities.OperationUpdate:
		if len(payload) == 0 {
			return nil, domainerrors.Field("payload", "must change at least one field")
		}
	case entities.OperationCreate:
	default:
		return nil, domainerrors.Field("operation", "must be create, update or delete")
	}

	names := make([]string, 0, len(payload))
	for name := range payload {
		names = append(names, name)
	}
	sort.Strings(names)

	normalized := make(map[string]any, len(payload))
	for _, name := range names {
		field, ok := target.Fields[name]
		if !ok {
			return nil, domainerrors.Field(name, "is not editable")
		}
		value := payload[name]
		if value == nil {
			if operation == entities.OperationCreate || field.Required {
				return nil, domainerrors.Field(name, "cannot be cleared")
			}
			normalized[name] = nil
			continue
		}
		if operation == entities.OperationUpdate && field.Immutable {
			return nil, domainerrors.Field(name, "cannot be changed after creation")
		}
		clean, err := field.normalize(name, value)
		if err != nil {
			return nil, err
		}
		normalized[name] = clean
	}

	if operation == entities.OperationCreate {
		required := make([]string, 0)
		for name, field := range target.Fields {
			if field.Required {
				required = append(required, name)
			}
		}
		sort.Strings(required)
		for _, name := range required {
			if _, ok := normalized[name]; !ok {
				return nil, domainerrors.Field(name, "is required")
			}
		}
	}
	return normalized, nil
}

// IdentityKey builds the case and whitespace insensitive key used to detect
// duplicate creates. Types without an identity never conflict.
func (r *Registry) IdentityKey(targetType entities.TargetType, fields map[string]any) (string, bool) {
	target, ok := r.Target(targetType)
	if !ok || len(target.Identity) == 0 {
		return "", false
	}
	parts := make([]string, 0, len(target.Identity))
	for _, name := range target.Identity {
		raw, _ := fields[name].(string)
		parts = append(parts, strings.Join(strings.Fields(strings.ToLower(raw)), " "))
	}
	return strings.Join(parts, "|"), true
}

// References lists ref fields of a target type keyed by field name.
func (r *Registry) References(targetType entities.TargetType) map[string]entities.TargetType {
	target, ok := r.Target(targetType)
	if !ok {
		return nil
	}
	refs := make(map[string]entities.TargetType)
	for name, field := range target.Fields {
		if field.Kind == KindRef {
			refs[name] = entities.TargetType(field.Ref)
		}
	}
	return refs
}

func (f Field) normalize(name string, value any) (any, error) {
	switch f.Kind {
	case KindString, KindText, KindRef:
		text, ok := value.(string)
		if !ok {
			return nil, domainerrors.Field(name, "must be a string")
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, domainerrors.Field(name, "must not be blank")
		}
		if f.MaxLength > 0 && len([]rune(text)) > f.MaxLength {
			return nil, domainerrors.Field(name, fmt.Sprintf("must be at most %d characters", f.MaxLength))
		}
		return text, nil
	case KindURL:
		text, ok := value.(string)
		if !ok {
			return nil, domainerrors.Field(name, "must be a string")
		}
		text = strings.TrimSpace(text)
		parsed, err := url.Parse(text)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return nil, domainerrors.Field(name, "must be an absolute http(s) url")
		}
		if f.MaxLength > 0 && len(text) > f.MaxLength {
			return nil, domainerrors.Field(name, fmt.Sprintf("must be at most %d characters", f.MaxLength))
		}
		return text, nil
	case KindDate:
		text, ok := value.(string)
		if !ok {
			return nil, domainerrors.Field(name, "must be a YYYY-MM-DD string")
		}
		text = strings.TrimSpace(text)
		if _, err := time.Parse(dateLayout, text); err != nil {
			return nil, domainerrors.Field(name, "must be a YYYY-MM-DD string")
		}
		return text, nil
	case KindNumber, KindInteger:
		number, ok := toFloat(value)
		if !ok || math.IsNaN(number) || math.IsInf(number, 0) {
			return nil, domainerrors.Field(name, "must be a number")
		}
		if f.Kind == KindInteger && number != math.Trunc(number) {
			return nil, domainerrors.Field(name, "must be a whole number")
		}
		if f.Min != nil && number < *f.Min {
			return nil, domainerrors.Field(name, fmt.Sprintf("must be >= %v", *f.Min))
		}
		if f.Max != nil && number > *f.Max {
			return nil, domainerrors.Field(name, fmt.Sprintf("must be <= %v", *f.Max))
		}
		return number, nil
	}
	return nil, domainerrors.Field(name, "has an unsupported kind")
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
