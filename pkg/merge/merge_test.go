package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeScalars(t *testing.T) {
	tests := []struct {
		name     string
		base     map[string]interface{}
		override map[string]interface{}
		want     map[string]interface{}
	}{
		{
			name:     "new key introduced",
			base:     map[string]interface{}{"image": "base:latest"},
			override: map[string]interface{}{"workdir": "/srv"},
			want:     map[string]interface{}{"image": "base:latest", "workdir": "/srv"},
		},
		{
			name:     "scalar replaced",
			base:     map[string]interface{}{"image": "base:latest", "user": "root"},
			override: map[string]interface{}{"image": "profile:1.0"},
			want:     map[string]interface{}{"image": "profile:1.0", "user": "root"},
		},
		{
			name:     "empty override keeps base",
			base:     map[string]interface{}{"image": "base:latest"},
			override: map[string]interface{}{},
			want:     map[string]interface{}{"image": "base:latest"},
		},
		{
			name: "nested maps merged recursively",
			base: map[string]interface{}{
				"resources": map[string]interface{}{"cpu_limit": 1.0, "mem_limit": "1g"},
			},
			override: map[string]interface{}{
				"resources": map[string]interface{}{"cpu_limit": 2.0},
			},
			want: map[string]interface{}{
				"resources": map[string]interface{}{"cpu_limit": 2.0, "mem_limit": "1g"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Merge(tt.base, tt.override)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMergeListConcatenation(t *testing.T) {
	base := map[string]interface{}{
		"mounts": []interface{}{"a:/a", "b:/b"},
	}
	override := map[string]interface{}{
		"mounts": []interface{}{"c:/c"},
	}

	got, err := Merge(base, override)
	require.NoError(t, err)

	// Override items precede base items, both keeping their order.
	assert.Equal(t, []interface{}{"c:/c", "a:/a", "b:/b"}, got["mounts"])
}

func TestMergeListWithoutBaseKey(t *testing.T) {
	got, err := Merge(
		map[string]interface{}{"image": "base:latest"},
		map[string]interface{}{"networks": []interface{}{"overlay"}},
	)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"overlay"}, got["networks"])
}

func TestMergeTypeMismatch(t *testing.T) {
	_, err := Merge(
		map[string]interface{}{"env": "not-a-list"},
		map[string]interface{}{"env": []interface{}{"A=1"}},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTypeMismatch)
	assert.Contains(t, err.Error(), "env")
}

func TestMergeTypeMismatchNestedPath(t *testing.T) {
	_, err := Merge(
		map[string]interface{}{
			"dns_config": map[string]interface{}{"nameservers": "8.8.8.8"},
		},
		map[string]interface{}{
			"dns_config": map[string]interface{}{"nameservers": []interface{}{"1.1.1.1"}},
		},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTypeMismatch)
	assert.Contains(t, err.Error(), "dns_config.nameservers")
}

func TestMergeIdempotentForScalars(t *testing.T) {
	x := map[string]interface{}{
		"image":   "base:latest",
		"workdir": "/srv",
		"resources": map[string]interface{}{
			"cpu_limit": 1.5,
		},
	}

	got, err := Merge(x, x)
	require.NoError(t, err)
	assert.Equal(t, x, got)
}

func TestMergeLayering(t *testing.T) {
	defaults := map[string]interface{}{
		"image":  "base:latest",
		"mounts": []interface{}{"shared:/shared"},
	}
	profile := map[string]interface{}{
		"image":  "gpu:1.0",
		"mounts": []interface{}{"datasets:/data"},
	}
	session := map[string]interface{}{
		"mounts": []interface{}{"home:/home"},
	}

	step, err := Merge(defaults, profile)
	require.NoError(t, err)
	got, err := Merge(step, session)
	require.NoError(t, err)

	assert.Equal(t, "gpu:1.0", got["image"])
	assert.Equal(t,
		[]interface{}{"home:/home", "datasets:/data", "shared:/shared"},
		got["mounts"])
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	base := map[string]interface{}{
		"labels": map[string]interface{}{"a": "1"},
		"env":    []interface{}{"A=1"},
	}
	override := map[string]interface{}{
		"labels": map[string]interface{}{"b": "2"},
		"env":    []interface{}{"B=2"},
	}

	_, err := Merge(base, override)
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{"a": "1"}, base["labels"])
	assert.Equal(t, []interface{}{"A=1"}, base["env"])
	assert.Equal(t, []interface{}{"B=2"}, override["env"])
}
