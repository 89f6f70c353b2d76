package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/chenBenjamin97/traffic-analyzer/pkg/analyzer"
	"github.com/chenBenjamin97/traffic-analyzer/pkg/detection"
	"github.com/chenBenjamin97/traffic-analyzer/pkg/detector"
	"github.com/chenBenjamin97/traffic-analyzer/pkg/frame"
	"github.com/chenBenjamin97/traffic-analyzer/pkg/metrics"
	"github.com/chenBenjamin97/traffic-analyzer/pkg/report"
	"github.com/chenBenjamin97/traffic-analyzer/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const healthTimeout = 5 * time.Second

//Tagger tags an uploaded video in the background
type Tagger interface {
	Tag(ctx context.Context, srcVideoName string) error
}

//TaggerFunc adapts a function to Tagger
type TaggerFunc func(ctx context.Context, srcVideoName string) error

func (f TaggerFunc) Tag(ctx context.Context, srcVideoName string) error {
	return f(ctx, srcVideoName)
}

//Options are the directories and formats the handlers work with
type Options struct {
	SourceDir  string
	ReadyDir   string
	ReportsDir string
	ProdFormat string
}

//Server holds everything the handlers need
type Server struct {
	analyzer *analyzer.Analyzer
	detector detector.Detector
	tagger   Tagger
	metrics  *metrics.Metrics
	opts     Options
	log      logrus.FieldLogger
}

func NewServer(a *analyzer.Analyzer, d detector.Detector, tagger Tagger, m *metrics.Metrics, opts Options, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{analyzer: a, detector: d, tagger: tagger, metrics: m, opts: opts, log: logger}
}

//analyzeResponse is the body of a successful /api/Analyze call
type analyzeResponse struct {
	ID     string                       `json:"id"`
	Format string                       `json:"format"`
	Width  int                          `json:"width"`
	Height int                          `json:"height"`
	Result analyzer.FrameAnalysisResult `json:"result"`
	Report string                       `json:"report"`
}

func (s *Server) SetRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/health", s.health)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	apiRoutes := r.Group("/api")

	apiRoutes.POST("/Analyze", s.analyze)
	apiRoutes.POST("/Upload", s.upload)
	apiRoutes.GET("/Report", s.report)

	apiRoutes.GET("/ReadyVideosNames", func(ctx *gin.Context) {
		if names, err := utils.ListDir(s.opts.ReadyDir); err != nil {
			ctx.Status(http.StatusInternalServerError)
		} else {
			ctx.JSON(http.StatusOK, names)
		}
	})

	apiRoutes.GET("/UserUploadsVideosNames", func(ctx *gin.Context) {
		if names, err := utils.ListDir(s.opts.SourceDir); err != nil {
			ctx.Status(http.StatusInternalServerError)
		} else {
			ctx.JSON(http.StatusOK, names)
		}
	})

	apiRoutes.GET("/Play", s.play)

	return r
}

func (s *Server) health(ctx *gin.Context) {
	if s.detector == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "no detector configured"})
		return
	}

	c, cancel := context.WithTimeout(ctx.Request.Context(), healthTimeout)
	defer cancel()

	if err := s.detector.Health(c); err != nil {
		s.log.Warnf("api/health: %v", err)
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

//analyze takes a multipart "image" file. Detections come from the optional "detections" form field
//(JSON array) or, when it is absent, from the configured detector.
func (s *Server) analyze(ctx *gin.Context) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, utils.MaxUploadBytes)

	file, fHeader, err := ctx.Request.FormFile("image")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "missing 'image' file"})
		return
	}
	defer file.Close()

	if !utils.HasExtension(fHeader.Filename, utils.SupportedImageExtensions) {
		ctx.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "unsupported image format"})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.log.Errorf("api/Analyze: Could not read request's body, got '%v'", err)
		ctx.Status(http.StatusInternalServerError)
		return
	}

	f, format, err := frame.Decode(data)
	if err != nil {
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	if err := utils.ValidImageSize(f.Width, f.Height); err != nil {
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	var dets []detection.Detection
	if raw := ctx.Request.FormValue("detections"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &dets); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "malformed 'detections' field"})
			return
		}
	} else {
		if s.detector == nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "no detector configured"})
			return
		}

		if dets, err = s.detector.Detect(ctx.Request.Context(), data); err != nil {
			if s.metrics != nil {
				s.metrics.DetectorErrors.WithLabelValues("analyze").Inc()
			}
			s.log.Errorf("api/Analyze: Detector failed, got '%v'", err)
			ctx.JSON(http.StatusBadGateway, gin.H{"error": "detector failed"})
			return
		}
	}

	result := s.analyzer.Analyze(f, dets)
	id := uuid.NewString()

	s.log.WithFields(logrus.Fields{
		"id":       id,
		"file":     fHeader.Filename,
		"vehicles": result.TotalVehicles,
		"people":   result.TotalPedestrians,
	}).Info("api/Analyze: Analyzed image")

	ctx.JSON(http.StatusOK, analyzeResponse{
		ID:     id,
		Format: format,
		Width:  f.Width,
		Height: f.Height,
		Result: result,
		Report: report.Text(report.FromResult(result)),
	})
}

func (s *Server) upload(ctx *gin.Context) {
	file, fHeader, err := ctx.Request.FormFile("video")
	if err != nil {
		ctx.Status(http.StatusBadRequest)
		return
	}
	defer file.Close()

	name := path.Base(fHeader.Filename)
	if !utils.HasExtension(name, utils.SupportedVideoExtensions) {
		ctx.Status(http.StatusUnsupportedMediaType)
		return
	}

	if existNames, err := utils.ListDir(s.opts.SourceDir); err != nil {
		ctx.Status(http.StatusInternalServerError)
		return
	} else if utils.InSlice(name, existNames) {
		ctx.Status(http.StatusNotAcceptable)
		return
	}

	s.log.Infof("api/Upload: Recived new file: name - '%s', size - %v Bytes", name, fHeader.Size)

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		s.log.Errorf("api/Upload: Could not read request's body, got '%v'", err)
		ctx.Status(http.StatusInternalServerError)
		return
	}

	srcFilePath := path.Join(s.opts.SourceDir, name)
	if err = os.WriteFile(srcFilePath, fileBytes, 0444); err != nil {
		s.log.Errorf("api/Upload: Could not write '%s' file, got '%v'", srcFilePath, err)
		ctx.Status(http.StatusInternalServerError)
		return
	}

	id := uuid.NewString()
	if s.tagger != nil {
		go func() {
			if err := s.tagger.Tag(context.Background(), name); err != nil {
				s.log.WithField("id", id).Errorf("api/Upload: Tagging '%s' failed, got '%v'", name, err)
			}
		}()
	}

	ctx.JSON(http.StatusAccepted, gin.H{"id": id, "name": name})
}

func (s *Server) play(ctx *gin.Context) {
	videoName := ctx.Request.URL.Query().Get("name")
	if videoName == "" {
		ctx.Status(http.StatusNotAcceptable) //missing url parameter
		return
	}

	analyzed := ctx.Request.URL.Query().Get("analyzed")
	if analyzed != "true" && analyzed != "false" {
		ctx.Status(http.StatusNotAcceptable) //missing url parameter
		return
	}

	dir := s.opts.SourceDir
	if analyzed == "true" {
		dir = s.opts.ReadyDir
	}
	videoPath := path.Join(dir, path.Base(videoName)+"."+s.opts.ProdFormat)

	if _, err := os.Stat(videoPath); err != nil {
		if os.IsNotExist(err) {
			ctx.Status(http.StatusNotFound)
		} else {
			ctx.Status(http.StatusInternalServerError)
		}
		return
	}

	ctx.Header("Content-Type", "video/"+s.opts.ProdFormat)
	http.ServeFile(ctx.Writer, ctx.Request, videoPath)
}

func (s *Server) report(ctx *gin.Context) {
	videoName := ctx.Request.URL.Query().Get("name")
	if videoName == "" {
		ctx.Status(http.StatusNotAcceptable) //missing url parameter
		return
	}

	summary, err := report.ReadJSON(report.Path(s.opts.ReportsDir, path.Base(videoName)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			ctx.Status(http.StatusNotFound)
			return
		}
		s.log.Errorf("api/Report: %v", err)
		ctx.Status(http.StatusInternalServerError)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"summary": summary, "report": report.Text(summary)})
}
