package detector

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/chenBenjamin97/traffic-analyzer/pkg/detection"
	"github.com/sirupsen/logrus"
)

//scriptBox is one object line printed by the detection script
type scriptBox struct {
	Class      int
	Confidence float64
	Xmin       float64
	Ymin       float64
	Xmax       float64
	Ymax       float64
}

func (b scriptBox) detection() detection.Detection {
	return detection.Detection{
		ClassID:    b.Class,
		Confidence: b.Confidence,
		Box:        toBox(b.Xmin, b.Ymin, b.Xmax, b.Ymax),
	}
}

//Script runs a YOLO python script. The script prints one JSON object per detected object; in video
//mode every frame starts with a "Frame #: N" line and the run ends with "EOF".
type Script struct {
	python string
	path   string
	log    logrus.FieldLogger
}

func NewScript(python, path string, logger logrus.FieldLogger) *Script {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Script{python: python, path: path, log: logger}
}

//Detect writes imageData to a temp file and runs the script on it
func (s *Script) Detect(ctx context.Context, imageData []byte) ([]detection.Detection, error) {
	tmp, err := os.CreateTemp("", "detect-*.img")
	if err != nil {
		return nil, fmt.Errorf("Detect: Could not create temp file, got '%w'", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(imageData); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("Detect: Could not write temp file, got '%w'", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("Detect: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.python, s.path, "--image", tmp.Name())
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("Detect: Error executing python's code, got '%w' (%s)", err, strings.TrimSpace(stderr.String()))
	}

	return s.parseDetections(&stdout), nil
}

//Health runs the script's self check, which imports the model and exits non zero on failure
func (s *Script) Health(ctx context.Context) error {
	out, err := exec.CommandContext(ctx, s.python, s.path, "--check").CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %v (%s)", ErrUnhealthy, err, strings.TrimSpace(string(out)))
	}
	return nil
}

//Track runs the script on a whole video and sends the detections of every frame through out.
//Because this function is the only one writing to out, it closes it before returning.
func (s *Script) Track(ctx context.Context, videoPath string, out chan<- []detection.Detection) error {
	defer close(out)

	cmd := exec.CommandContext(ctx, s.python, s.path, "--video", videoPath)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("Track: Error, got '%w'", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("Track: Error, got '%w'", err)
	}

	scanErr := s.scanFrames(ctx, stdout, out)
	if scanErr != nil {
		//the rest of its output is never read
		cmd.Process.Kill()
	}
	io.Copy(io.Discard, stdout) //Wait closes the pipe, so it must be drained first

	if err := cmd.Wait(); err != nil && scanErr == nil {
		return fmt.Errorf("Track: Error waiting python's process, got '%w'", err)
	}

	return scanErr
}

//parseDetections reads every object line, skipping log prints and malformed lines
func (s *Script) parseDetections(r io.Reader) []detection.Detection {
	dets := make([]detection.Detection, 0)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if det, ok := s.parseLine(scanner.Bytes()); ok {
			dets = append(dets, det)
		}
	}

	if err := scanner.Err(); err != nil {
		s.log.Warnf("parseDetections: Error, got '%v'", err)
	}

	return dets
}

func (s *Script) parseLine(line []byte) (detection.Detection, bool) {
	if !bytes.Contains(line, []byte("{\"Class\":")) {
		return detection.Detection{}, false
	}

	box := scriptBox{}
	if err := json.Unmarshal(line, &box); err != nil {
		s.log.Warnf("parseLine: Error, got '%v'", err)
		return detection.Detection{}, false
	}

	return box.detection(), true
}

//scanFrames groups object lines into frames and sends each finished frame. Lines before the first
//frame marker are ignored.
func (s *Script) scanFrames(ctx context.Context, r io.Reader, out chan<- []detection.Detection) error {
	var current []detection.Detection
	started := false

	send := func() error {
		select {
		case out <- current:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "Frame #:"):
			if started {
				if err := send(); err != nil {
					return err
				}
			}
			started = true
			current = make([]detection.Detection, 0)

		case line == "EOF":
			if started {
				return send()
			}
			return nil

		case strings.Contains(line, "FPS: "): //log print
			continue

		case started:
			if det, ok := s.parseLine(scanner.Bytes()); ok {
				current = append(current, det)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanFrames: Error, got '%w'", err)
	}

	//stream ended without EOF, flush what was read
	if started {
		return send()
	}

	return nil
}
