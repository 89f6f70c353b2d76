// Package config loads config.yaml (plus TRAFFIC_* environment overrides) into viper and turns the
// raw keys into the typed settings each component takes.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chenBenjamin97/traffic-analyzer/pkg/analyzer"
	"github.com/chenBenjamin97/traffic-analyzer/pkg/colors"
	"github.com/chenBenjamin97/traffic-analyzer/pkg/log"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const EnvPrefix = "TRAFFIC"

const (
	DetectorScript = "script"
	DetectorHTTP   = "http"
)

//DetectorSettings selects and configures the object detector
type DetectorSettings struct {
	Mode    string        `validate:"oneof=script http"`
	Python  string        `validate:"required_if=Mode script"`
	Script  string        `validate:"required_if=Mode script"`
	URL     string        `validate:"required_if=Mode http"`
	Timeout time.Duration `validate:"gt=0"`
}

var validate = validator.New()

//Load reads config.yaml from dir into the global viper instance. A missing file is not an error,
//defaults and environment variables still apply.
func Load(dir string) error {
	if dir == "" {
		dir = "."
	}

	viper.AddConfigPath(dir)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("Load: Could not read config file, got '%w'", err)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("directory.root", "./data")
	viper.SetDefault("directory.source", "./data/source")
	viper.SetDefault("directory.ready", "./data/ready")
	viper.SetDefault("directory.temp", "./data/temp")
	viper.SetDefault("directory.reports", "./data/reports")

	viper.SetDefault("http.port", "8080")
	viper.SetDefault("video.prod_format", "mp4")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.file", "")

	viper.SetDefault("detector.mode", DetectorScript)
	viper.SetDefault("detector.python", "python3")
	viper.SetDefault("detector.script", "./detector/detect.py")
	viper.SetDefault("detector.url", "")
	viper.SetDefault("detector.timeout", 30*time.Second)

	def := analyzer.DefaultConfig()
	viper.SetDefault("analysis.confidence_threshold", def.ConfidenceThreshold)
	viper.SetDefault("analysis.vehicle_class", def.VehicleClassID)
	viper.SetDefault("analysis.pedestrian_class", def.PedestrianClassID)
	viper.SetDefault("analysis.clusters", def.ClusterCount)
	viper.SetDefault("analysis.seed", def.ClusterSeed)
	viper.SetDefault("analysis.attempts", def.ClusterAttempts)
	viper.SetDefault("analysis.max_iterations", def.MaxIterations)
	viper.SetDefault("analysis.max_region_side", def.MaxRegionSide)
}

//Analyzer builds the analyzer configuration. Rules and style fall back to the reference table and
//colors when the file does not set them; style keys that are set override the matching defaults only.
func Analyzer() (analyzer.Config, error) {
	cfg := analyzer.Config{
		ConfidenceThreshold: viper.GetFloat64("analysis.confidence_threshold"),
		VehicleClassID:      viper.GetInt("analysis.vehicle_class"),
		PedestrianClassID:   viper.GetInt("analysis.pedestrian_class"),
		ClusterCount:        viper.GetInt("analysis.clusters"),
		ClusterSeed:         viper.GetInt64("analysis.seed"),
		ClusterAttempts:     viper.GetInt("analysis.attempts"),
		MaxIterations:       viper.GetInt("analysis.max_iterations"),
		MaxRegionSide:       viper.GetInt("analysis.max_region_side"),
		Rules:               colors.DefaultRules(),
		Style:               analyzer.DefaultStyle(),
	}

	if viper.IsSet("analysis.rules") {
		var rules []colors.Rule
		if err := viper.UnmarshalKey("analysis.rules", &rules); err != nil {
			return cfg, fmt.Errorf("Analyzer: Could not parse analysis.rules, got '%w'", err)
		}
		cfg.Rules = rules
	}

	if viper.IsSet("analysis.style") {
		if err := viper.UnmarshalKey("analysis.style", &cfg.Style); err != nil {
			return cfg, fmt.Errorf("Analyzer: Could not parse analysis.style, got '%w'", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("Analyzer: %w", err)
	}

	return cfg, nil
}

//Detector returns the validated detector settings
func Detector() (DetectorSettings, error) {
	s := DetectorSettings{
		Mode:    viper.GetString("detector.mode"),
		Python:  viper.GetString("detector.python"),
		Script:  viper.GetString("detector.script"),
		URL:     viper.GetString("detector.url"),
		Timeout: viper.GetDuration("detector.timeout"),
	}

	if err := validate.Struct(s); err != nil {
		return s, fmt.Errorf("Detector: Invalid detector settings, got '%w'", err)
	}

	return s, nil
}

//Log returns the logger options
func Log() log.Options {
	return log.Options{
		Level: viper.GetString("log.level"),
		File:  viper.GetString("log.file"),
	}
}

//Directories returns every configured data directory, root first
func Directories() []string {
	dirs := []string{viper.GetString("directory.root")}
	for _, key := range []string{"source", "ready", "temp", "reports"} {
		dirs = append(dirs, viper.GetString("directory."+key))
	}
	return dirs
}
