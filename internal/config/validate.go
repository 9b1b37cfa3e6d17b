package config

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var fieldValidator = newFieldValidator()

// newFieldValidator reports fields by their flag name.
func newFieldValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks a Config built without Load, such as one assembled in code.
// It runs the choice checks and every check Load runs, except that
// DatasetsFolder must already be set.
func Validate(cfg Config, opts ...Option) error {
	o := newOptions(nil, opts)
	if err := checkChoices(&cfg); err != nil {
		return err
	}
	if err := checkCRNResume(&cfg); err != nil {
		return err
	}
	if cfg.DatasetsFolder == "" {
		return missingValue("datasets_folder", DatasetsFolderEnv)
	}
	return validate(&cfg, o)
}

// validate runs the field checks followed by the remaining cross-field rules,
// stopping at the first failure. Callers check CRN/resume beforehand.
func validate(cfg *Config, o options) error {
	if err := checkFields(cfg); err != nil {
		return err
	}
	if err := checkQueriesDivisible(cfg); err != nil {
		return err
	}
	if err := checkSAREDevices(cfg, o); err != nil {
		return err
	}
	if err := checkMiningDataset(cfg); err != nil {
		return err
	}
	if err := checkOffTheShelf(cfg); err != nil {
		return err
	}
	return checkPCADataset(cfg)
}

// checkChoices makes sure every choice field holds a member of its set.
// Load enforces this while parsing; records from YAML or code are checked here.
func checkChoices(cfg *Config) error {
	checks := []error{
		checkChoice("criterion", cfg.Criterion, criteria, false),
		checkChoice("optim", cfg.Optim, optimizers, false),
		checkChoice("scheduler", cfg.Scheduler, schedulers, true),
		checkChoice("mining", cfg.Mining, miningModes, false),
		checkChoice("backbone", cfg.Backbone, backbones, false),
		checkChoice("l2", cfg.L2, l2Modes, false),
		checkChoice("aggregation", cfg.Aggregation, aggregations, false),
		checkChoice("pretrain", cfg.Pretrain, pretrains, false),
		checkChoice("off_the_shelf", cfg.OffTheShelf, offTheShelfSources, false),
		checkIntChoice("trunc_te", cfg.TruncTE, truncTEMin, truncTEMax),
		checkIntChoice("freeze_te", cfg.FreezeTE, freezeTEMin, freezeTEMax),
		checkChoice("device", cfg.Device, devices, false),
		checkChoice("test_method", cfg.TestMethod, testMethods, false),
		checkChoice("multi_scale_method", cfg.MultiScaleMethod, multiScaleMethods, true),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}

func checkFields(cfg *Config) error {
	err := fieldValidator.Struct(cfg)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validate fields: %w", err)
	}
	return fieldError(fieldErrs[0])
}

func fieldError(fe validator.FieldError) *Error {
	option, _, _ := strings.Cut(fe.Field(), "[")
	var rule string
	switch fe.Tag() {
	case "ne":
		rule = "must not be " + fe.Param()
	case "min":
		rule = "needs at least " + fe.Param() + " value"
	default:
		rule = "fails the " + fe.Tag() + " check"
	}
	return invalidValue(option, "%s, got %v", rule, fe.Value())
}

func checkCRNResume(cfg *Config) error {
	if cfg.Aggregation != AggregationCRN || cfg.Resume != "" {
		return nil
	}
	return violation(ErrCRNRequiresResume, []string{"aggregation", "resume"},
		"CRN must be resumed from a trained NetVLAD checkpoint, but you set aggregation=crn without --resume")
}

func checkQueriesDivisible(cfg *Config) error {
	if cfg.QueriesPerEpoch%cfg.CacheRefreshRate == 0 {
		return nil
	}
	return violation(ErrQueriesNotDivisible, []string{"queries_per_epoch", "cache_refresh_rate"},
		"ensure that queries_per_epoch is divisible by cache_refresh_rate, because %d is not divisible by %d",
		cfg.QueriesPerEpoch, cfg.CacheRefreshRate)
}

func checkSAREDevices(cfg *Config, o options) error {
	if !cfg.Criterion.IsSARE() {
		return nil
	}
	count, err := o.devices.DeviceCount()
	if err != nil {
		return &Error{
			Kind:    ErrConstraintViolation,
			Rule:    ErrSAREMultiDevice,
			Options: []string{"criterion"},
			Msg:     fmt.Sprintf("cannot count devices for %s loss: %v", cfg.Criterion, err),
			Err:     err,
		}
	}
	o.logger.Debug("counted visible devices", zap.Int("devices", count))
	if count < 2 {
		return nil
	}
	return violation(ErrSAREMultiDevice, []string{"criterion"},
		"SARE losses are not implemented for multiple GPUs, but you're using %d GPUs and %s loss",
		count, cfg.Criterion)
}

func checkMiningDataset(cfg *Config) error {
	if cfg.Mining != MiningMSLSWeighted || cfg.DatasetName == "msls" {
		return nil
	}
	return violation(ErrMiningDatasetMismatch, []string{"mining", "dataset_name"},
		"msls_weighted mining can only be applied to msls dataset, but you're using it on %s", cfg.DatasetName)
}

func checkOffTheShelf(cfg *Config) error {
	if !cfg.OffTheShelf.IsExternal() {
		return nil
	}
	if slices.Contains(offTheShelfBackbones, cfg.Backbone) &&
		cfg.Aggregation == AggregationGeM &&
		cfg.FCOutputDim != nil && *cfg.FCOutputDim == offTheShelfFCOutputDim {
		return nil
	}
	fcDim := "unset"
	if cfg.FCOutputDim != nil {
		fcDim = strconv.Itoa(*cfg.FCOutputDim)
	}
	return violation(ErrOffTheShelfArchitecture, []string{"off_the_shelf", "backbone", "aggregation", "fc_output_dim"},
		"off-the-shelf models (%s) are trained only with ResNet-50/101 + GeM + FC 2048, but got backbone=%s aggregation=%s fc_output_dim=%s",
		cfg.OffTheShelf, cfg.Backbone, cfg.Aggregation, fcDim)
}

func checkPCADataset(cfg *Config) error {
	if cfg.PCADim == nil || cfg.PCADatasetFolder != "" {
		return nil
	}
	return violation(ErrPCADatasetRequired, []string{"pca_dim", "pca_dataset_folder"},
		"please specify --pca_dataset_folder when using pca (pca_dim=%d)", *cfg.PCADim)
}
