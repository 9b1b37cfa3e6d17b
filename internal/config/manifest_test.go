package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/vgconfig/internal/device"
)

func TestManifestRoundTrip(t *testing.T) {
	args := []string{
		"--backbone", "resnet50conv5",
		"--aggregation", "gem",
		"--fc_output_dim", "2048",
		"--off_the_shelf", "radenovic_sfm",
		"--scheduler", "ReduceLROnPlateau",
		"--resize", "320", "240",
		"--recall_values", "1", "5",
		"--hue", "0.1",
		"--trunc_te", "0",
		"--grl",
	}
	cfg, err := Load(args, dataEnv())
	require.NoError(t, err)

	data, err := Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(data), "backbone: resnet50conv5")
	assert.Contains(t, string(data), "resize: [320, 240]")
	assert.Contains(t, string(data), "datasets_folder: /data")
	assert.NotContains(t, string(data), "pca_dim")

	restored, err := Decode(data, nil)
	require.NoError(t, err)
	assert.Equal(t, cfg, restored)
}

func TestManifestKeysMatchFlags(t *testing.T) {
	data, err := Marshal(Defaults())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, yaml.Unmarshal(data, &raw))

	app := newApplication(&Config{})
	flags := map[string]bool{}
	for _, flag := range app.Model().Flags {
		flags[flag.Name] = true
	}
	for key := range raw {
		assert.True(t, flags[key], "manifest key %q has no flag", key)
	}
}

func TestDecode(t *testing.T) {
	t.Run("empty document uses defaults", func(t *testing.T) {
		cfg, err := Decode(nil, dataEnv())
		require.NoError(t, err)
		want := Defaults()
		want.DatasetsFolder = "/data"
		assert.Equal(t, want, cfg)
	})

	t.Run("partial document", func(t *testing.T) {
		doc := strings.Join([]string{
			"criterion: sare_joint",
			"dataset_name: msls",
			"mining: msls_weighted",
			"pca_dim: 512",
			"pca_dataset_folder: msls/train",
			"select_resolutions: [1, 0.5]",
		}, "\n")
		cfg, err := Decode([]byte(doc), dataEnv(), WithDeviceCounter(device.Fixed(1)))
		require.NoError(t, err)
		assert.Equal(t, CriterionSAREJoint, cfg.Criterion)
		assert.Equal(t, MiningMSLSWeighted, cfg.Mining)
		require.NotNil(t, cfg.PCADim)
		assert.Equal(t, 512, *cfg.PCADim)
		assert.Equal(t, []float64{1, 0.5}, cfg.SelectResolutions)
		assert.Equal(t, 4, cfg.TrainBatchSize)
	})

	tests := []struct {
		name string
		doc  string
		kind error
	}{
		{name: "malformed", doc: "train_batch_size: [", kind: ErrInvalidValue},
		{name: "unknown key", doc: "learning_rate: 0.1", kind: ErrInvalidValue},
		{name: "wrong type", doc: "train_batch_size: four", kind: ErrInvalidValue},
		{name: "resize arity", doc: "resize: [1, 2, 3]", kind: ErrInvalidValue},
		{name: "bad choice", doc: "criterion: contrastive", kind: ErrInvalidEnumValue},
		{name: "empty required choice", doc: "backbone: ''", kind: ErrInvalidEnumValue},
		{name: "trunc_te out of range", doc: "trunc_te: 20", kind: ErrInvalidEnumValue},
		{name: "crn without resume", doc: "aggregation: crn", kind: ErrCRNRequiresResume},
		{name: "not divisible", doc: "queries_per_epoch: 1500", kind: ErrQueriesNotDivisible},
		{name: "empty recall values", doc: "recall_values: []", kind: ErrInvalidValue},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.doc), dataEnv())
			requireKind(t, err, tc.kind)
		})
	}

	t.Run("environment fallback", func(t *testing.T) {
		_, err := Decode([]byte("seed: 1"), MapEnv(nil))
		requireKind(t, err, ErrMissingRequiredValue)
	})
}
