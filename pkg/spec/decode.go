package spec

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Decode turns a merged config map into the typed ServiceSpec.
func Decode(config map[string]interface{}) (*ServiceSpec, error) {
	var out ServiceSpec
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mountStringHook,
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("spec decoder oluşturulamadı: %w", err)
	}
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("service spec çözümlenemedi: %w", err)
	}
	return &out, nil
}

// mountStringHook decodes the "source:target[:ro]" mount shorthand.
func mountStringHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(Mount{}) {
		return data, nil
	}
	return parseMountString(data.(string))
}

func parseMountString(value string) (Mount, error) {
	parts := strings.Split(value, ":")
	switch len(parts) {
	case 1:
		return Mount{Target: parts[0]}, nil
	case 2:
		return Mount{Source: parts[0], Target: parts[1]}, nil
	case 3:
		switch parts[2] {
		case "ro":
			return Mount{Source: parts[0], Target: parts[1], ReadOnly: true}, nil
		case "rw":
			return Mount{Source: parts[0], Target: parts[1]}, nil
		}
	}
	return Mount{}, fmt.Errorf("geçersiz mount tanımı: %q", value)
}
