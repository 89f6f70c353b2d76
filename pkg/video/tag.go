package video

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/chenBenjamin97/traffic-analyzer/pkg/analyzer"
	"github.com/chenBenjamin97/traffic-analyzer/pkg/detection"
	"github.com/chenBenjamin97/traffic-analyzer/pkg/metrics"
	"github.com/chenBenjamin97/traffic-analyzer/pkg/report"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

//Tagger analyzes uploaded videos frame by frame and writes the annotated copy, a JSON report and a
//color chart. It is safe to run Tag for several videos at once.
type Tagger struct {
	analyzer *analyzer.Analyzer
	tracker  Tracker
	metrics  *metrics.Metrics
	dirs     Dirs
	format   string
	log      logrus.FieldLogger
}

func NewTagger(a *analyzer.Analyzer, tracker Tracker, m *metrics.Metrics, dirs Dirs, format string, logger logrus.FieldLogger) *Tagger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Tagger{analyzer: a, tracker: tracker, metrics: m, dirs: dirs, format: format, log: logger}
}

//Tag reads a video from the source directory, runs the detector on it in the background and, for every frame
//it reports, analyzes and plots that frame. The tagged video (XVID (== MPEG-4 codec) format, '.avi' extension)
//is converted by ffmpeg into the production format and saved in the ready directory.
//srcVideoName should include file's extension ('.mp4', etc.)
func (t *Tagger) Tag(ctx context.Context, srcVideoName string) (Result, error) {
	art := artifactsFor(t.dirs, srcVideoName, t.format)
	logger := t.log.WithField("video", srcVideoName)

	if t.metrics != nil {
		t.metrics.VideosInProgress.Inc()
		defer t.metrics.VideosInProgress.Dec()
	}

	cap, err := gocv.VideoCaptureFile(art.Source)
	if err != nil {
		return Result{}, fmt.Errorf("Tag: Error, got '%w'", err)
	}
	defer cap.Close()

	videoWriter, err := gocv.VideoWriterFile(art.Temp, "XVID", cap.Get(gocv.VideoCaptureFPS), int(cap.Get(gocv.VideoCaptureFrameWidth)), int(cap.Get(gocv.VideoCaptureFrameHeight)), true)
	if err != nil {
		return Result{}, fmt.Errorf("Tag: Error, got '%w'", err)
	}
	defer os.Remove(art.Temp) //remove '.avi' temp file at the end of this function

	trackCtx, cancelTrack := context.WithCancel(ctx)
	defer cancelTrack()

	detectionsC := make(chan []detection.Detection)
	trackErrC := make(chan error, 1)
	go func() {
		trackErrC <- t.tracker.Track(trackCtx, art.Source, detectionsC)
	}()

	frameMat := gocv.NewMat()
	defer frameMat.Close()

	acc := report.NewAccumulator()
	framesCounter := 0

mainLoop:
	for {
		select {
		case dets, ok := <-detectionsC:
			if !ok { //sender closed chan
				break mainLoop
			}

			if !cap.Read(&frameMat) || frameMat.Empty() { //detector reported more frames than the video has
				logger.Warnf("Tag: No frame #%d in video, stopping", framesCounter+1)
				cancelTrack()
				for range detectionsC { //drain until the tracker closes the chan
				}
				break mainLoop
			}
			framesCounter++

			t.tagFrame(&frameMat, dets, acc, videoWriter, logger.WithField("frame", framesCounter))

		case <-ctx.Done():
			videoWriter.Close()
			return Result{}, fmt.Errorf("Tag: %w", ctx.Err())
		}
	}

	if err := videoWriter.Close(); err != nil {
		logger.Warnf("Tag: Error closing video writer, got '%v'", err)
	}

	if err := <-trackErrC; err != nil && !errors.Is(err, context.Canceled) {
		if t.metrics != nil {
			t.metrics.DetectorErrors.WithLabelValues("track").Inc()
		}
		logger.Errorf("Tag: Detector failed after %d frames, got '%v'", framesCounter, err)
		if framesCounter == 0 {
			return Result{}, fmt.Errorf("Tag: %w", err)
		}
	}

	//Convert to from 'avi' to the production format. example: ffmpeg -y -i video.avi video.mp4
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y", "-loglevel", "error", "-i", art.Temp, art.Ready)
	if out, err := cmd.CombinedOutput(); err != nil {
		return Result{}, fmt.Errorf("Tag: Error from ffmpeg, got '%w' (%s)", err, out)
	}

	summary := acc.Summary()
	if err := report.WriteJSON(art.Report, summary); err != nil {
		logger.Errorf("Tag: %v", err)
	}
	if err := report.SaveHistogramChart(art.Chart, summary); err != nil {
		logger.Errorf("Tag: %v", err)
	}

	if t.metrics != nil {
		t.metrics.VideosTagged.Inc()
	}

	logger.WithFields(logrus.Fields{
		"frames":   summary.Frames,
		"vehicles": summary.TotalVehicles,
		"blue":     summary.BlueVehicles,
		"people":   summary.TotalPedestrians,
	}).Info("Tag: Finished")

	return Result{Artifacts: art, Summary: summary}, nil
}

//frameWriter is the part of *gocv.VideoWriter tagFrame needs
type frameWriter interface {
	Write(img gocv.Mat) error
}

//tagFrame analyzes one frame, draws its geometry on mat and writes it. A frame that cannot be analyzed
//is written as is, so the tagged video keeps every frame of the source.
func (t *Tagger) tagFrame(mat *gocv.Mat, dets []detection.Detection, acc *report.Accumulator, w frameWriter, logger logrus.FieldLogger) {
	if f, err := MatToFrame(*mat); err != nil {
		logger.Warnf("tagFrame: Error, got '%v'", err)
	} else {
		result := t.analyzer.Analyze(f, dets)
		acc.Add(result)
		Render(mat, result.Geometry)
	}

	if err := w.Write(*mat); err != nil {
		logger.Warnf("tagFrame: Could not write frame, got '%v'", err)
	}
}
