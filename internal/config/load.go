package config

import (
	"errors"
	"io"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/vgconfig/internal/device"
)

// LookupEnvFunc has the signature of os.LookupEnv.
type LookupEnvFunc func(key string) (string, bool)

// MapEnv serves environment lookups from m.
func MapEnv(m map[string]string) LookupEnvFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

// Option configures Load, Decode and Validate.
type Option func(*options)

type options struct {
	devices device.Counter
	logger  *zap.Logger
	usage   io.Writer
}

// WithDeviceCounter sets how visible devices are counted for the SARE check.
// By default CUDA_VISIBLE_DEVICES is read through the lookup passed to Load.
func WithDeviceCounter(counter device.Counter) Option {
	return func(o *options) {
		o.devices = counter
	}
}

// WithLogger enables debug logging of how values were resolved.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithUsageWriter sets where --help output is written. It is discarded by default.
func WithUsageWriter(w io.Writer) Option {
	return func(o *options) {
		o.usage = w
	}
}

func newOptions(lookupEnv LookupEnvFunc, opts []Option) options {
	o := options{
		logger: zap.NewNop(),
		usage:  io.Discard,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.devices == nil {
		o.devices = device.EnvCounter{Lookup: lookupEnv}
	}
	return o
}

// Load parses args (without the program name) into a Config. Options that are
// not given keep their defaults; datasets_folder falls back to the
// DATASETS_FOLDER variable read through lookupEnv. A flag given twice keeps its
// last value, and values are taken literally, so "@name" never reads a file.
// The returned error is an *Error, or ErrHelpRequested when --help was given.
func Load(args []string, lookupEnv LookupEnvFunc, opts ...Option) (Config, error) {
	o := newOptions(lookupEnv, opts)

	cfg := Defaults()
	app := newApplication(&cfg)
	app.UsageWriter(o.usage).ErrorWriter(o.usage).Terminate(nil)

	var help bool
	app.HelpFlag.IsSetByUser(&help)

	normalized, err := normalizeArgs(args, flagShapes(app))
	if err != nil {
		return Config{}, err
	}
	if _, err := app.Parse(normalized); err != nil {
		var cfgErr *Error
		if errors.As(err, &cfgErr) {
			return Config{}, cfgErr
		}
		return Config{}, &Error{Kind: ErrInvalidValue, Msg: err.Error()}
	}
	if help {
		return Config{}, ErrHelpRequested
	}

	if err := resolve(&cfg, lookupEnv, o); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// resolve applies the environment fallback and validates the result.
func resolve(cfg *Config, lookupEnv LookupEnvFunc, o options) error {
	// CRN is checked first so that it is reported whatever else is wrong.
	if err := checkCRNResume(cfg); err != nil {
		return err
	}
	if err := resolveDatasetsFolder(cfg, lookupEnv, o.logger); err != nil {
		return err
	}
	return validate(cfg, o)
}

func resolveDatasetsFolder(cfg *Config, lookupEnv LookupEnvFunc, logger *zap.Logger) error {
	if cfg.DatasetsFolder != "" {
		return nil
	}
	if lookupEnv != nil {
		if v, ok := lookupEnv(DatasetsFolderEnv); ok && v != "" {
			cfg.DatasetsFolder = v
			logger.Debug("datasets folder resolved from environment",
				zap.String("env", DatasetsFolderEnv),
				zap.String("datasets_folder", v),
			)
			return nil
		}
	}
	return missingValue("datasets_folder", DatasetsFolderEnv)
}

// newApplication declares one flag per Config field, bound directly to cfg.
func newApplication(cfg *Config) *kingpin.Application {
	app := kingpin.New("vgconfig", "Visual place recognition training and evaluation configuration.")
	f := flagSet{app: app}

	// Training parameters
	f.value("train_batch_size", "Number of triplets (query, pos, negs) in a batch. Each triplet consists of 12 images",
		&scalarValue[int]{option: "train_batch_size", target: &cfg.TrainBatchSize})
	f.value("infer_batch_size", "Batch size for inference (caching and testing)",
		&scalarValue[int]{option: "infer_batch_size", target: &cfg.InferBatchSize})
	f.value("criterion", "Loss to be used",
		&choiceValue[Criterion]{option: "criterion", target: &cfg.Criterion, allowed: criteria})
	f.value("margin", "Margin for the triplet loss",
		&scalarValue[float64]{option: "margin", target: &cfg.Margin})
	f.value("epochs_num", "Number of epochs to train for",
		&scalarValue[int]{option: "epochs_num", target: &cfg.EpochsNum})
	f.value("patience", "Epochs without improvement before stopping",
		&scalarValue[int]{option: "patience", target: &cfg.Patience})
	f.value("lr", "Learning rate",
		&scalarValue[float64]{option: "lr", target: &cfg.LR})
	f.value("lr_crn_layer", "Learning rate for the CRN layer",
		&scalarValue[float64]{option: "lr_crn_layer", target: &cfg.LRCRNLayer})
	f.value("lr_crn_net", "Learning rate to finetune pretrained network when using CRN",
		&scalarValue[float64]{option: "lr_crn_net", target: &cfg.LRCRNNet})
	f.value("wd", "Weight decay of the optimizer",
		&scalarValue[float64]{option: "wd", target: &cfg.WD})
	f.value("optim", "Optimizer",
		&choiceValue[Optimizer]{option: "optim", target: &cfg.Optim, allowed: optimizers})
	f.value("scheduler", "Learning rate scheduler",
		&choiceValue[Scheduler]{option: "scheduler", target: &cfg.Scheduler, allowed: schedulers})
	f.value("factor", "Factor of the scheduler",
		&scalarValue[float64]{option: "factor", target: &cfg.Factor})
	f.value("threshold", "Threshold of ReduceLROnPlateau",
		&scalarValue[float64]{option: "threshold", target: &cfg.Threshold})
	f.value("Tmax", "T_max of CosineAnnealingLR",
		&scalarValue[int]{option: "Tmax", target: &cfg.TMax})
	f.value("cache_refresh_rate", "How often to refresh cache, in number of queries",
		&scalarValue[int]{option: "cache_refresh_rate", target: &cfg.CacheRefreshRate})
	f.value("queries_per_epoch", "How many queries to consider for one epoch. Must be multiple of cache_refresh_rate",
		&scalarValue[int]{option: "queries_per_epoch", target: &cfg.QueriesPerEpoch})
	f.value("negs_num_per_query", "How many negatives to consider per each query in the loss",
		&scalarValue[int]{option: "negs_num_per_query", target: &cfg.NegsNumPerQuery})
	f.value("neg_samples_num", "How many negatives to use to compute the hardest ones",
		&scalarValue[int]{option: "neg_samples_num", target: &cfg.NegSamplesNum})
	f.value("mining", "Hard negative mining strategy",
		&choiceValue[Mining]{option: "mining", target: &cfg.Mining, allowed: miningModes})

	// Model parameters
	f.value("backbone", "Feature extraction network",
		&choiceValue[Backbone]{option: "backbone", target: &cfg.Backbone, allowed: backbones})
	f.value("l2", "When (and if) to apply the l2 norm with shallow aggregation layers",
		&choiceValue[L2Mode]{option: "l2", target: &cfg.L2, allowed: l2Modes})
	f.value("aggregation", "Aggregation layer",
		&choiceValue[Aggregation]{option: "aggregation", target: &cfg.Aggregation, allowed: aggregations})
	f.value("netvlad_clusters", "Number of clusters for NetVLAD layer",
		&scalarValue[int]{option: "netvlad_clusters", target: &cfg.NetVLADClusters})
	f.value("pca_dim", "PCA dimension (number of principal components). If unset, PCA is not used",
		&optionalValue[int]{option: "pca_dim", target: &cfg.PCADim})
	f.value("num_non_local", "Number of non-local blocks",
		&scalarValue[int]{option: "num_non_local", target: &cfg.NumNonLocal})
	f.bool("non_local", "Use non-local blocks", &cfg.NonLocal)
	f.value("channel_bottleneck", "Channel bottleneck for non-local blocks",
		&scalarValue[int]{option: "channel_bottleneck", target: &cfg.ChannelBottleneck})
	f.value("fc_output_dim", "Output dimension of fully connected layer. If unset, no fully connected layer is used",
		&optionalValue[int]{option: "fc_output_dim", target: &cfg.FCOutputDim})
	f.value("pretrain", "Pretrained weights for the starting network",
		&choiceValue[Pretrain]{option: "pretrain", target: &cfg.Pretrain, allowed: pretrains})
	f.value("off_the_shelf", "Off-the-shelf networks from popular GitHub repos. Only with ResNet-50/101 + GeM + FC 2048",
		&choiceValue[OffTheShelf]{option: "off_the_shelf", target: &cfg.OffTheShelf, allowed: offTheShelfSources})
	f.value("trunc_te", "Truncate the transformer encoder after this many blocks (0-13)",
		&intChoiceValue{option: "trunc_te", target: &cfg.TruncTE, lo: truncTEMin, hi: truncTEMax})
	f.value("freeze_te", "Freeze the transformer encoder up to this block (-1-13)",
		&intChoiceValue{option: "freeze_te", target: &cfg.FreezeTE, lo: freezeTEMin, hi: freezeTEMax})

	// Initialization parameters
	f.value("seed", "Random seed",
		&scalarValue[int]{option: "seed", target: &cfg.Seed})
	f.string("resume", "Path to load checkpoint from, for resuming training or testing", &cfg.Resume)

	// Other parameters
	f.value("device", "Compute device",
		&choiceValue[Device]{option: "device", target: &cfg.Device, allowed: devices})
	f.value("num_workers", "num_workers for all dataloaders",
		&scalarValue[int]{option: "num_workers", target: &cfg.NumWorkers})
	f.value("resize", "Resizing shape for images (HxW)",
		&pairValue{option: "resize", target: &cfg.Resize})
	f.value("test_method", "Pre/post-processing methods and prediction refinement",
		&choiceValue[TestMethod]{option: "test_method", target: &cfg.TestMethod, allowed: testMethods})
	f.value("majority_weight", "Only for majority voting, scale factor, the higher it is the more importance is given to agreement",
		&scalarValue[float64]{option: "majority_weight", target: &cfg.MajorityWeight})
	f.bool("efficient_ram_testing", "Keep test time descriptors on disk to save memory", &cfg.EfficientRAMTesting)
	f.value("val_positive_dist_threshold", "Distance in meters under which a database image is a positive at validation",
		&scalarValue[int]{option: "val_positive_dist_threshold", target: &cfg.ValPositiveDistThreshold})
	f.value("train_positives_dist_threshold", "Distance in meters under which a database image is a positive at training",
		&scalarValue[int]{option: "train_positives_dist_threshold", target: &cfg.TrainPositivesDistThreshold})
	f.value("recall_values", "Recalls to be computed, such as R@5. Usage: --recall_values 1 5 10",
		&listValue[int]{option: "recall_values", target: &cfg.RecallValues})

	// Data augmentation parameters
	f.value("night_brightness", "Brightness jitter for night images",
		&optionalValue[float64]{option: "night_brightness", target: &cfg.NightBrightness})
	f.value("night_hue", "Hue jitter for night images",
		&optionalValue[float64]{option: "night_hue", target: &cfg.NightHue})
	f.value("night_contrast", "Contrast jitter for night images",
		&optionalValue[float64]{option: "night_contrast", target: &cfg.NightContrast})
	f.value("night_saturation", "Saturation jitter for night images",
		&optionalValue[float64]{option: "night_saturation", target: &cfg.NightSaturation})
	f.value("brightness", "Brightness jitter",
		&optionalValue[float64]{option: "brightness", target: &cfg.Brightness})
	f.value("contrast", "Contrast jitter",
		&optionalValue[float64]{option: "contrast", target: &cfg.Contrast})
	f.value("saturation", "Saturation jitter",
		&optionalValue[float64]{option: "saturation", target: &cfg.Saturation})
	f.value("hue", "Hue jitter",
		&optionalValue[float64]{option: "hue", target: &cfg.Hue})
	f.value("rand_perspective", "Random perspective distortion scale",
		&optionalValue[float64]{option: "rand_perspective", target: &cfg.RandPerspective})
	f.bool("horizontal_flip", "Random horizontal flip", &cfg.HorizontalFlip)
	f.value("random_resized_crop", "Random resized crop scale",
		&optionalValue[float64]{option: "random_resized_crop", target: &cfg.RandomResizedCrop})
	f.value("random_rotation", "Random rotation in degrees",
		&optionalValue[float64]{option: "random_rotation", target: &cfg.RandomRotation})

	// Multi scale parameters
	f.bool("multi_scale", "Use multi scale", &cfg.MultiScale)
	f.value("select_resolutions", "Usage: --select_resolutions 1 2 4 6",
		&listValue[float64]{option: "select_resolutions", target: &cfg.SelectResolutions})
	f.value("multi_scale_method", "Usage: --multi_scale_method=avg",
		&choiceValue[MultiScaleMethod]{option: "multi_scale_method", target: &cfg.MultiScaleMethod, allowed: multiScaleMethods})

	// Domain adaptation parameters
	f.bool("grl", "Use Gradient Reversal Layer (GRL)", &cfg.GRL)
	f.value("grl_batch_size", "Batch size for GRL",
		&scalarValue[int]{option: "grl_batch_size", target: &cfg.GRLBatchSize})
	f.value("grl_loss_weight", "Weight for GRL loss",
		&scalarValue[float64]{option: "grl_loss_weight", target: &cfg.GRLLossWeight})
	f.string("grl_datasets", "Paths for GRL datasets, linked by +", &cfg.GRLDatasets)

	// Paths parameters
	f.string("datasets_folder", "Path with all datasets (falls back to $"+DatasetsFolderEnv+")", &cfg.DatasetsFolder)
	f.string("dataset_name", "Relative path of the dataset", &cfg.DatasetName)
	f.string("pca_dataset_folder", "Path with images to be used to compute PCA (ie: pitts30k/images/train)", &cfg.PCADatasetFolder)
	f.string("save_dir", "Folder name of the current run", &cfg.SaveDir)

	return app
}

// flagSet declares flags and appends the current (default) value to the help text.
type flagSet struct {
	app *kingpin.Application
}

func (f flagSet) value(name, help string, v kingpin.Value) {
	f.app.Flag(name, withDefault(help, v.String())).SetValue(v)
}

func (f flagSet) bool(name, help string, target *bool) {
	f.app.Flag(name, help).BoolVar(target)
}

func (f flagSet) string(name, help string, target *string) {
	f.app.Flag(name, withDefault(help, *target)).StringVar(target)
}

func withDefault(help, def string) string {
	if def == "" {
		return help
	}
	return help + " (default: " + def + ")"
}
