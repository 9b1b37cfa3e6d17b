package config

import "strings"

// DatasetsFolderEnv is consulted when --datasets_folder is not given.
const DatasetsFolderEnv = "DATASETS_FOLDER"

const defaultSaveDir = "/content/drive/MyDrive/logs/"

// Config is the resolved run configuration. Loaders return it by value and
// never touch it afterwards; consumers treat it as read-only.
//
// Optional numbers are nil when unset. Optional strings and choices are empty
// when unset.
type Config struct {
	// Training
	TrainBatchSize   int       `yaml:"train_batch_size"`
	InferBatchSize   int       `yaml:"infer_batch_size"`
	Criterion        Criterion `yaml:"criterion"`
	Margin           float64   `yaml:"margin"`
	EpochsNum        int       `yaml:"epochs_num"`
	Patience         int       `yaml:"patience"`
	LR               float64   `yaml:"lr"`
	LRCRNLayer       float64   `yaml:"lr_crn_layer"`
	LRCRNNet         float64   `yaml:"lr_crn_net"`
	WD               float64   `yaml:"wd"`
	Optim            Optimizer `yaml:"optim"`
	Scheduler        Scheduler `yaml:"scheduler,omitempty"`
	Factor           float64   `yaml:"factor"`
	Threshold        float64   `yaml:"threshold"`
	TMax             int       `yaml:"Tmax"`
	CacheRefreshRate int       `yaml:"cache_refresh_rate" validate:"ne=0"`
	QueriesPerEpoch  int       `yaml:"queries_per_epoch"`
	NegsNumPerQuery  int       `yaml:"negs_num_per_query"`
	NegSamplesNum    int       `yaml:"neg_samples_num"`
	Mining           Mining    `yaml:"mining"`

	// Model
	Backbone          Backbone    `yaml:"backbone"`
	L2                L2Mode      `yaml:"l2"`
	Aggregation       Aggregation `yaml:"aggregation"`
	NetVLADClusters   int         `yaml:"netvlad_clusters"`
	PCADim            *int        `yaml:"pca_dim,omitempty"`
	NumNonLocal       int         `yaml:"num_non_local"`
	NonLocal          bool        `yaml:"non_local"`
	ChannelBottleneck int         `yaml:"channel_bottleneck"`
	FCOutputDim       *int        `yaml:"fc_output_dim,omitempty"`
	Pretrain          Pretrain    `yaml:"pretrain"`
	OffTheShelf       OffTheShelf `yaml:"off_the_shelf"`
	TruncTE           *int        `yaml:"trunc_te,omitempty"`
	FreezeTE          *int        `yaml:"freeze_te,omitempty"`

	// Initialization
	Seed   int    `yaml:"seed"`
	Resume string `yaml:"resume,omitempty"`

	// Runtime
	Device                      Device     `yaml:"device"`
	NumWorkers                  int        `yaml:"num_workers"`
	Resize                      [2]int     `yaml:"resize,flow"`
	TestMethod                  TestMethod `yaml:"test_method"`
	MajorityWeight              float64    `yaml:"majority_weight"`
	EfficientRAMTesting         bool       `yaml:"efficient_ram_testing"`
	ValPositiveDistThreshold    int        `yaml:"val_positive_dist_threshold"`
	TrainPositivesDistThreshold int        `yaml:"train_positives_dist_threshold"`
	RecallValues                []int      `yaml:"recall_values,flow" validate:"min=1"`

	// Data augmentation
	NightBrightness   *float64 `yaml:"night_brightness,omitempty"`
	NightHue          *float64 `yaml:"night_hue,omitempty"`
	NightContrast     *float64 `yaml:"night_contrast,omitempty"`
	NightSaturation   *float64 `yaml:"night_saturation,omitempty"`
	Brightness        *float64 `yaml:"brightness,omitempty"`
	Contrast          *float64 `yaml:"contrast,omitempty"`
	Saturation        *float64 `yaml:"saturation,omitempty"`
	Hue               *float64 `yaml:"hue,omitempty"`
	RandPerspective   *float64 `yaml:"rand_perspective,omitempty"`
	HorizontalFlip    bool     `yaml:"horizontal_flip"`
	RandomResizedCrop *float64 `yaml:"random_resized_crop,omitempty"`
	RandomRotation    *float64 `yaml:"random_rotation,omitempty"`

	// Multi-scale inference
	MultiScale        bool             `yaml:"multi_scale"`
	SelectResolutions []float64        `yaml:"select_resolutions,flow" validate:"min=1"`
	MultiScaleMethod  MultiScaleMethod `yaml:"multi_scale_method,omitempty"`

	// Domain adaptation
	GRL           bool    `yaml:"grl"`
	GRLBatchSize  int     `yaml:"grl_batch_size"`
	GRLLossWeight float64 `yaml:"grl_loss_weight"`
	GRLDatasets   string  `yaml:"grl_datasets"`

	// Paths
	DatasetsFolder   string `yaml:"datasets_folder"`
	DatasetName      string `yaml:"dataset_name"`
	PCADatasetFolder string `yaml:"pca_dataset_folder,omitempty"`
	SaveDir          string `yaml:"save_dir"`
}

// Defaults returns the configuration used for every option not given explicitly.
// DatasetsFolder is left empty; it has no default.
func Defaults() Config {
	return Config{
		TrainBatchSize:   4,
		InferBatchSize:   16,
		Criterion:        CriterionTriplet,
		Margin:           0.1,
		EpochsNum:        1000,
		Patience:         3,
		LR:               0.00001,
		LRCRNLayer:       5e-3,
		LRCRNNet:         5e-4,
		WD:               1e-3,
		Optim:            OptimizerAdam,
		Factor:           0.1,
		Threshold:        0.01,
		TMax:             25,
		CacheRefreshRate: 1000,
		QueriesPerEpoch:  5000,
		NegsNumPerQuery:  10,
		NegSamplesNum:    1000,
		Mining:           MiningPartial,

		Backbone:          BackboneResNet18Conv4,
		L2:                L2BeforePool,
		Aggregation:       AggregationNetVLAD,
		NetVLADClusters:   64,
		NumNonLocal:       1,
		ChannelBottleneck: 128,
		Pretrain:          PretrainImageNet,
		OffTheShelf:       OffTheShelfImageNet,

		Device:                      DeviceCUDA,
		NumWorkers:                  8,
		Resize:                      [2]int{480, 640},
		TestMethod:                  TestMethodHardResize,
		MajorityWeight:              0.01,
		ValPositiveDistThreshold:    25,
		TrainPositivesDistThreshold: 10,
		RecallValues:                []int{1, 5, 10, 20},

		SelectResolutions: []float64{1, 2, 5, 10},

		GRLBatchSize:  8,
		GRLLossWeight: 0.1,
		GRLDatasets:   "train/queries+target",

		DatasetName: "pitts30k",
		SaveDir:     defaultSaveDir,
	}
}

// GRLDatasetPaths splits GRLDatasets on "+" and drops empty segments.
func (c Config) GRLDatasetPaths() []string {
	parts := strings.Split(c.GRLDatasets, "+")
	paths := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		paths = append(paths, part)
	}
	return paths
}
