package video

import (
	"context"
	"path"
	"strings"

	"github.com/chenBenjamin97/traffic-analyzer/pkg/detection"
	"github.com/chenBenjamin97/traffic-analyzer/pkg/report"
)

//Dirs are the directories a tagging run reads from and writes to
type Dirs struct {
	Source  string //uploaded videos
	Ready   string //tagged videos, in the production format
	Temp    string //intermediate '.avi' files
	Reports string //per video JSON report and color chart
}

//Tracker streams per-frame detections of a whole video, one slice per frame in frame order.
//Track closes out when it returns.
type Tracker interface {
	Track(ctx context.Context, videoPath string, out chan<- []detection.Detection) error
}

//Artifacts are the paths produced for one source video
type Artifacts struct {
	Source string
	Temp   string
	Ready  string
	Report string
	Chart  string
}

//artifactsFor derives every output path from the uploaded file name ('name.ext')
func artifactsFor(dirs Dirs, srcVideoName, format string) Artifacts {
	base := baseName(srcVideoName)
	return Artifacts{
		Source: path.Join(dirs.Source, srcVideoName),
		Temp:   path.Join(dirs.Temp, base+".avi"),
		Ready:  path.Join(dirs.Ready, base+"."+format),
		Report: report.Path(dirs.Reports, base),
		Chart:  path.Join(dirs.Reports, base+".png"),
	}
}

func baseName(name string) string {
	name = path.Base(name)
	return strings.TrimSuffix(name, path.Ext(name))
}

//Result is what a finished tagging run returns
type Result struct {
	Artifacts Artifacts
	Summary   report.Summary
}
