package main

import (
	"flag"

	"github.com/shlpu/TSAT/lib/settings"
)

type override func(dst *settings.RPMSettings, src *settings.RPMSettings)

// settingsFlags registers one flag per setting on fs, bound to fields of
// the returned struct. applyFlags copies only the flags given on the command
// line, so they win over the settings file and the environment.
func settingsFlags(fs *flag.FlagSet) (*settings.RPMSettings, map[string]override) {
	s := &settings.RPMSettings{}
	overrides := make(map[string]override)

	stringFlag := func(p *string, name string, usage string, apply override) {
		fs.StringVar(p, name, "", usage)
		overrides[name] = apply
	}
	intFlag := func(p *int, name string, usage string, apply override) {
		fs.IntVar(p, name, 0, usage)
		overrides[name] = apply
	}
	floatFlag := func(p *float64, name string, usage string, apply override) {
		fs.Float64Var(p, name, 0, usage)
		overrides[name] = apply
	}

	stringFlag(&s.Algorithm, "algorithm", "Grammar inference algorithm: sequitur or repair",
		func(d, o *settings.RPMSettings) { d.Algorithm = o.Algorithm })
	stringFlag(&s.Strategy, "strategy", "Numerosity reduction: NONE, EXACT or MINDIST",
		func(d, o *settings.RPMSettings) { d.Strategy = o.Strategy })
	intFlag(&s.Iterations, "iterations", "Number of DIRECT iterations",
		func(d, o *settings.RPMSettings) { d.Iterations = o.Iterations })
	intFlag(&s.EarlyStop, "earlyStop", "Stop after this many iterations without improvement, 0 never stops early",
		func(d, o *settings.RPMSettings) { d.EarlyStop = o.EarlyStop })
	fs.BoolVar(&s.Parallel, "parallel", false, "Evaluate the samples of a rectangle concurrently")
	overrides["parallel"] = func(d, o *settings.RPMSettings) { d.Parallel = o.Parallel }
	intFlag(&s.Folds, "folds", "Cross validation folds",
		func(d, o *settings.RPMSettings) { d.Folds = o.Folds })
	floatFlag(&s.RepeatedFrequency, "repeatedFrequency", "Share of a class's series a rule has to repeat in",
		func(d, o *settings.RPMSettings) { d.RepeatedFrequency = o.RepeatedFrequency })
	intFlag(&s.MaxPatterns, "maxPatterns", "Repeated patterns kept per class and parameter point",
		func(d, o *settings.RPMSettings) { d.MaxPatterns = o.MaxPatterns })
	floatFlag(&s.OverlapFraction, "overlapFraction", "Occurrences starting within this share of the window count as one",
		func(d, o *settings.RPMSettings) { d.OverlapFraction = o.OverlapFraction })
	stringFlag(&s.FrequencyMode, "frequencyMode", "raw counts occurrences, distinct counts source series",
		func(d, o *settings.RPMSettings) { d.FrequencyMode = o.FrequencyMode })
	floatFlag(&s.NormalizationThreshold, "normalizationThreshold", "Windows with a smaller standard deviation are flat",
		func(d, o *settings.RPMSettings) { d.NormalizationThreshold = o.NormalizationThreshold })
	intFlag(&s.WindowMin, "windowMin", "Smallest window searched, 0 derives it from the series length",
		func(d, o *settings.RPMSettings) { d.WindowMin = o.WindowMin })
	intFlag(&s.WindowMax, "windowMax", "Largest window searched, 0 derives it from the series length",
		func(d, o *settings.RPMSettings) { d.WindowMax = o.WindowMax })
	intFlag(&s.PAAMin, "paaMin", "Smallest PAA size searched",
		func(d, o *settings.RPMSettings) { d.PAAMin = o.PAAMin })
	intFlag(&s.PAAMax, "paaMax", "Largest PAA size searched",
		func(d, o *settings.RPMSettings) { d.PAAMax = o.PAAMax })
	intFlag(&s.AlphabetMin, "alphabetMin", "Smallest alphabet searched",
		func(d, o *settings.RPMSettings) { d.AlphabetMin = o.AlphabetMin })
	intFlag(&s.AlphabetMax, "alphabetMax", "Largest alphabet searched",
		func(d, o *settings.RPMSettings) { d.AlphabetMax = o.AlphabetMax })
	stringFlag(&s.DistanceMeasure, "distance", "Distance of the test transform: euclidean or dtw",
		func(d, o *settings.RPMSettings) { d.DistanceMeasure = o.DistanceMeasure })
	intFlag(&s.DTWWindow, "dtwWindow", "DTW band as a percentage of the pattern length",
		func(d, o *settings.RPMSettings) { d.DTWWindow = o.DTWWindow })
	stringFlag(&s.Classifier, "classifier", "Classifier: forest (seeded) or golearn",
		func(d, o *settings.RPMSettings) { d.Classifier = o.Classifier })
	intFlag(&s.Trees, "trees", "Trees in the random forest",
		func(d, o *settings.RPMSettings) { d.Trees = o.Trees })
	fs.Int64Var(&s.Seed, "seed", 0, "Seed for cross validation and the forest")
	overrides["seed"] = func(d, o *settings.RPMSettings) { d.Seed = o.Seed }
	fs.Int64Var(&s.MaxRowsPerRowGroup, "parquetMaxRowsPerRowGroup", 0, "Number of rows per row group in Parquet. Small numbers reduce memory usage but cost more disk space; large numbers cost more memory but improve compression.")
	overrides["parquetMaxRowsPerRowGroup"] = func(d, o *settings.RPMSettings) { d.MaxRowsPerRowGroup = o.MaxRowsPerRowGroup }
	stringFlag(&s.StorePath, "store", "The model store file",
		func(d, o *settings.RPMSettings) { d.StorePath = o.StorePath })
	stringFlag(&s.KafkaURL, "kafkaURL", "The URL for the kafka broker. Progress events are published there if set.",
		func(d, o *settings.RPMSettings) { d.KafkaURL = o.KafkaURL })
	stringFlag(&s.KafkaTopic, "kafkaTopic", "The kafka topic for progress events",
		func(d, o *settings.RPMSettings) { d.KafkaTopic = o.KafkaTopic })
	return s, overrides
}

func applyFlags(fs *flag.FlagSet, dst settings.RPMSettings, src *settings.RPMSettings, overrides map[string]override) settings.RPMSettings {
	fs.Visit(func(f *flag.Flag) {
		if apply, ok := overrides[f.Name]; ok {
			apply(&dst, src)
		}
	})
	return dst
}

// loadSettings layers defaults, the settings file, TSAT_* variables and the
// flags given on the command line, in that order.
func loadSettings(fs *flag.FlagSet, configFile string, src *settings.RPMSettings, overrides map[string]override) (settings.RPMSettings, error) {
	s := settings.RPMSettings{}
	var err error
	if configFile != "" {
		if s, err = settings.LoadFile(configFile, s); err != nil {
			return s, err
		}
	}
	if s, err = settings.FromEnv(s); err != nil {
		return s, err
	}
	return applyFlags(fs, s, src, overrides).ComputeSettingsFields(), nil
}
