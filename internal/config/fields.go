package config

import "go.uber.org/zap/zapcore"

// MarshalLogObject logs the options that identify a run. The full record is
// available through Marshal.
func (c Config) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("dataset_name", c.DatasetName)
	enc.AddString("datasets_folder", c.DatasetsFolder)
	enc.AddString("backbone", string(c.Backbone))
	enc.AddString("aggregation", string(c.Aggregation))
	enc.AddString("criterion", string(c.Criterion))
	enc.AddString("mining", string(c.Mining))
	enc.AddString("optim", string(c.Optim))
	enc.AddFloat64("lr", c.LR)
	enc.AddInt("train_batch_size", c.TrainBatchSize)
	enc.AddInt("queries_per_epoch", c.QueriesPerEpoch)
	enc.AddInt("cache_refresh_rate", c.CacheRefreshRate)
	enc.AddString("device", string(c.Device))
	if c.Scheduler != SchedulerNone {
		enc.AddString("scheduler", string(c.Scheduler))
	}
	if c.FCOutputDim != nil {
		enc.AddInt("fc_output_dim", *c.FCOutputDim)
	}
	if c.PCADim != nil {
		enc.AddInt("pca_dim", *c.PCADim)
	}
	if c.Resume != "" {
		enc.AddString("resume", c.Resume)
	}
	if c.GRL {
		if err := enc.AddArray("grl_datasets", zapcore.ArrayMarshalerFunc(func(arr zapcore.ArrayEncoder) error {
			for _, p := range c.GRLDatasetPaths() {
				arr.AppendString(p)
			}
			return nil
		})); err != nil {
			return err
		}
	}
	enc.AddString("save_dir", c.SaveDir)
	return nil
}
