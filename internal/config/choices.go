package config

import (
	"slices"
	"strconv"
)

// Criterion is the training loss.
type Criterion string

const (
	CriterionTriplet   Criterion = "triplet"
	CriterionSAREInd   Criterion = "sare_ind"
	CriterionSAREJoint Criterion = "sare_joint"
)

// IsSARE reports whether the loss is one of the SARE variants.
func (c Criterion) IsSARE() bool {
	return c == CriterionSAREInd || c == CriterionSAREJoint
}

// Optimizer selects the optimizer used for training.
type Optimizer string

const (
	OptimizerAdam  Optimizer = "adam"
	OptimizerSGD   Optimizer = "sgd"
	OptimizerAdamW Optimizer = "adamw"
	OptimizerASGD  Optimizer = "asgd"
)

// Scheduler selects the learning rate scheduler. The zero value means no scheduler.
type Scheduler string

const (
	SchedulerNone              Scheduler = ""
	SchedulerReduceLROnPlateau Scheduler = "ReduceLROnPlateau"
	SchedulerCosineAnnealingLR Scheduler = "CosineAnnealingLR"
)

// Mining is the hard negative mining strategy.
type Mining string

const (
	MiningPartial      Mining = "partial"
	MiningFull         Mining = "full"
	MiningRandom       Mining = "random"
	MiningMSLSWeighted Mining = "msls_weighted"
)

// Backbone is the feature extraction network.
type Backbone string

const (
	BackboneAlexNet        Backbone = "alexnet"
	BackboneVGG16          Backbone = "vgg16"
	BackboneResNet18Conv4  Backbone = "resnet18conv4"
	BackboneResNet18Conv5  Backbone = "resnet18conv5"
	BackboneResNet50Conv4  Backbone = "resnet50conv4"
	BackboneResNet50Conv5  Backbone = "resnet50conv5"
	BackboneResNet101Conv4 Backbone = "resnet101conv4"
	BackboneResNet101Conv5 Backbone = "resnet101conv5"
	BackboneCCT384         Backbone = "cct384"
	BackboneViT            Backbone = "vit"
)

// L2Mode controls when the l2 norm is applied with shallow aggregation layers.
type L2Mode string

const (
	L2BeforePool L2Mode = "before_pool"
	L2AfterPool  L2Mode = "after_pool"
	L2None       L2Mode = "none"
)

// Aggregation combines local features into a single descriptor.
type Aggregation string

const (
	AggregationNetVLAD Aggregation = "netvlad"
	AggregationGeM     Aggregation = "gem"
	AggregationSPoC    Aggregation = "spoc"
	AggregationMAC     Aggregation = "mac"
	AggregationRMAC    Aggregation = "rmac"
	AggregationCRN     Aggregation = "crn"
	AggregationRRM     Aggregation = "rrm"
	AggregationCLS     Aggregation = "cls"
	AggregationSeqPool Aggregation = "seqpool"
	AggregationNone    Aggregation = "none"
)

// Pretrain selects the weights the backbone starts from.
type Pretrain string

const (
	PretrainImageNet Pretrain = "imagenet"
	PretrainGLDv2    Pretrain = "gldv2"
	PretrainPlaces   Pretrain = "places"
)

// OffTheShelf selects a pretrained model published by an external project.
type OffTheShelf string

const (
	OffTheShelfImageNet       OffTheShelf = "imagenet"
	OffTheShelfRadenovicSfM   OffTheShelf = "radenovic_sfm"
	OffTheShelfRadenovicGLDv1 OffTheShelf = "radenovic_gldv1"
	OffTheShelfNaver          OffTheShelf = "naver"
)

// IsExternal reports whether the weights come from an off-the-shelf project
// rather than the default ImageNet initialisation.
func (o OffTheShelf) IsExternal() bool {
	return o == OffTheShelfRadenovicSfM || o == OffTheShelfRadenovicGLDv1 || o == OffTheShelfNaver
}

// Device is the compute device.
type Device string

const (
	DeviceCUDA Device = "cuda"
	DeviceCPU  Device = "cpu"
)

// TestMethod covers pre/post-processing and prediction refinement at test time.
type TestMethod string

const (
	TestMethodHardResize  TestMethod = "hard_resize"
	TestMethodSingleQuery TestMethod = "single_query"
	TestMethodCentralCrop TestMethod = "central_crop"
	TestMethodFiveCrops   TestMethod = "five_crops"
	TestMethodNearestCrop TestMethod = "nearest_crop"
	TestMethodMajVoting   TestMethod = "maj_voting"
)

// MultiScaleMethod combines descriptors extracted at several resolutions.
// The zero value means unset.
type MultiScaleMethod string

const (
	MultiScaleNone MultiScaleMethod = ""
	MultiScaleAvg  MultiScaleMethod = "avg"
	MultiScaleSum  MultiScaleMethod = "sum"
	MultiScaleMax  MultiScaleMethod = "max"
	MultiScaleMin  MultiScaleMethod = "min"
)

var (
	criteria    = []Criterion{CriterionTriplet, CriterionSAREInd, CriterionSAREJoint}
	optimizers  = []Optimizer{OptimizerAdam, OptimizerSGD, OptimizerAdamW, OptimizerASGD}
	schedulers  = []Scheduler{SchedulerReduceLROnPlateau, SchedulerCosineAnnealingLR}
	miningModes = []Mining{MiningPartial, MiningFull, MiningRandom, MiningMSLSWeighted}
	l2Modes     = []L2Mode{L2BeforePool, L2AfterPool, L2None}
	pretrains   = []Pretrain{PretrainImageNet, PretrainGLDv2, PretrainPlaces}
	devices     = []Device{DeviceCUDA, DeviceCPU}

	backbones = []Backbone{
		BackboneAlexNet, BackboneVGG16,
		BackboneResNet18Conv4, BackboneResNet18Conv5,
		BackboneResNet50Conv4, BackboneResNet50Conv5,
		BackboneResNet101Conv4, BackboneResNet101Conv5,
		BackboneCCT384, BackboneViT,
	}
	aggregations = []Aggregation{
		AggregationNetVLAD, AggregationGeM, AggregationSPoC, AggregationMAC, AggregationRMAC,
		AggregationCRN, AggregationRRM, AggregationCLS, AggregationSeqPool, AggregationNone,
	}
	testMethods = []TestMethod{
		TestMethodHardResize, TestMethodSingleQuery, TestMethodCentralCrop,
		TestMethodFiveCrops, TestMethodNearestCrop, TestMethodMajVoting,
	}

	offTheShelfSources = []OffTheShelf{OffTheShelfImageNet, OffTheShelfRadenovicSfM, OffTheShelfRadenovicGLDv1, OffTheShelfNaver}
	multiScaleMethods  = []MultiScaleMethod{MultiScaleAvg, MultiScaleSum, MultiScaleMax, MultiScaleMin}

	// offTheShelfBackbones are the only backbones the external weights were trained with.
	offTheShelfBackbones = []Backbone{BackboneResNet50Conv5, BackboneResNet101Conv5}
)

const (
	offTheShelfFCOutputDim = 2048

	truncTEMin, truncTEMax   = 0, 13
	freezeTEMin, freezeTEMax = -1, 13
)

// parseChoice returns raw as a T when it belongs to allowed.
func parseChoice[T ~string](option, raw string, allowed []T) (T, error) {
	if slices.Contains(allowed, T(raw)) {
		return T(raw), nil
	}
	return "", invalidChoice(option, raw, choiceNames(allowed))
}

// checkChoice accepts the zero value when optional is true.
func checkChoice[T ~string](option string, value T, allowed []T, optional bool) error {
	if optional && value == "" {
		return nil
	}
	_, err := parseChoice(option, string(value), allowed)
	return err
}

func choiceNames[T ~string](allowed []T) []string {
	names := make([]string, len(allowed))
	for i, v := range allowed {
		names[i] = string(v)
	}
	return names
}

func intRangeNames(lo, hi int) []string {
	names := make([]string, 0, hi-lo+1)
	for v := lo; v <= hi; v++ {
		names = append(names, strconv.Itoa(v))
	}
	return names
}

// checkIntChoice accepts nil; otherwise the value must lie within [lo, hi].
func checkIntChoice(option string, value *int, lo, hi int) error {
	if value == nil || (*value >= lo && *value <= hi) {
		return nil
	}
	return invalidChoice(option, strconv.Itoa(*value), intRangeNames(lo, hi))
}
