package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/chenBenjamin97/traffic-analyzer/pkg/analyzer"
	"github.com/chenBenjamin97/traffic-analyzer/pkg/api"
	"github.com/chenBenjamin97/traffic-analyzer/pkg/config"
	"github.com/chenBenjamin97/traffic-analyzer/pkg/detection"
	"github.com/chenBenjamin97/traffic-analyzer/pkg/detector"
	"github.com/chenBenjamin97/traffic-analyzer/pkg/frame"
	"github.com/chenBenjamin97/traffic-analyzer/pkg/log"
	"github.com/chenBenjamin97/traffic-analyzer/pkg/metrics"
	"github.com/chenBenjamin97/traffic-analyzer/pkg/report"
	"github.com/chenBenjamin97/traffic-analyzer/pkg/utils"
	"github.com/chenBenjamin97/traffic-analyzer/pkg/video"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

func main() {
	configDir := flag.String("config", ".", "directory holding config.yaml")
	imagePath := flag.String("image", "", "analyze a single image, print the report and exit")
	detectionsPath := flag.String("detections", "", "JSON file with the image's detections, skips the detector")
	outPath := flag.String("out", "", "write the annotated image here (with -image)")
	flag.Parse()

	if err := config.Load(*configDir); err != nil {
		log.Fatal(log.Fields{"error": err}, "Error: Could not read config file")
	}

	logger := log.NewLogger(config.Log())

	cfg, err := config.Analyzer()
	if err != nil {
		log.Fatal(log.Fields{"error": err}, "Error: Invalid analysis configuration")
	}

	m := metrics.New()
	a, err := analyzer.New(cfg, analyzer.WithLogger(logger), analyzer.WithRecorder(m))
	if err != nil {
		log.Fatal(log.Fields{"error": err}, "Error: Could not create analyzer")
	}

	settings, err := config.Detector()
	if err != nil {
		log.Fatal(log.Fields{"error": err}, "Error: Missing critical configurations")
	}

	d := newDetector(settings, logger)

	if *imagePath != "" {
		if err := analyzeImage(a, d, *imagePath, *detectionsPath, *outPath); err != nil {
			log.Fatal(log.Fields{"image": *imagePath, "error": err}, "Error: Analysis failed")
		}
		return
	}

	//create missing directories from config file
	if err := utils.EnsureDirs(config.Directories()...); err != nil {
		log.Fatal(log.Fields{"error": err}, "Error: Could not create data directories")
	}

	if settings.Mode != config.DetectorScript {
		log.Warn(log.Fields{"mode": settings.Mode}, "Video tagging needs the script detector, uploads will not be tagged")
	}

	var tagger api.Tagger
	if script, ok := d.(*detector.Script); ok {
		t := video.NewTagger(a, script, m, video.Dirs{
			Source:  viper.GetString("directory.source"),
			Ready:   viper.GetString("directory.ready"),
			Temp:    viper.GetString("directory.temp"),
			Reports: viper.GetString("directory.reports"),
		}, viper.GetString("video.prod_format"), logger)

		tagger = api.TaggerFunc(func(ctx context.Context, srcVideoName string) error {
			_, err := t.Tag(ctx, srcVideoName)
			return err
		})
	}

	server := api.NewServer(a, d, tagger, m, api.Options{
		SourceDir:  viper.GetString("directory.source"),
		ReadyDir:   viper.GetString("directory.ready"),
		ReportsDir: viper.GetString("directory.reports"),
		ProdFormat: viper.GetString("video.prod_format"),
	}, logger)

	log.Info(log.Fields{"port": viper.GetString("http.port"), "detector": settings.Mode}, "Starting server")

	r := server.SetRouter()
	if err := r.Run(":" + viper.GetString("http.port")); err != nil {
		log.Fatal(log.Fields{"error": err}, "Error: Server stopped")
	}
}

func newDetector(s config.DetectorSettings, logger logrus.FieldLogger) detector.Detector {
	if s.Mode == config.DetectorHTTP {
		return detector.NewHTTP(s.URL, s.Timeout)
	}
	return detector.NewScript(s.Python, s.Script, logger)
}

//analyzeImage is the one shot mode: analyze one image file, print the results report and optionally
//save the annotated copy
func analyzeImage(a *analyzer.Analyzer, d detector.Detector, imagePath, detectionsPath, outPath string) error {
	if !utils.HasExtension(imagePath, utils.SupportedImageExtensions) {
		return fmt.Errorf("unsupported image format '%s'", path.Ext(imagePath))
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return err
	}

	f, _, err := frame.Decode(data)
	if err != nil {
		return err
	}
	if err := utils.ValidImageSize(f.Width, f.Height); err != nil {
		return err
	}

	var dets []detection.Detection
	if detectionsPath != "" {
		raw, err := os.ReadFile(detectionsPath)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &dets); err != nil {
			return fmt.Errorf("parsing '%s': %w", detectionsPath, err)
		}
	} else if dets, err = d.Detect(context.Background(), data); err != nil {
		return err
	}

	result := a.Analyze(f, dets)
	fmt.Print(report.Text(report.FromResult(result)))

	if outPath != "" {
		if err := video.AnnotateImage(f, result.Geometry, outPath); err != nil {
			return err
		}
		log.Info(log.Fields{"out": outPath}, "Saved annotated image")
	}

	return nil
}
