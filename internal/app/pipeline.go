package app

import (
	"context"
	"image"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/abhinaya/internal/plugin"
	"github.com/ayusman/abhinaya/internal/pose"
	"github.com/ayusman/abhinaya/internal/render"
	"github.com/ayusman/abhinaya/internal/session"
	"github.com/ayusman/abhinaya/internal/store"
	"github.com/ayusman/abhinaya/internal/tracker"
)

// FrameResult is everything produced for one video frame.
type FrameResult struct {
	session.Result
	Mirrored bool           `json:"mirrored"`
	Tracking tracker.Update `json:"tracking"`
	Scene    render.Scene   `json:"scene"`
}

// runPipeline reads frames at the gate's rate until stop is closed.
//
// While idle only motion is measured; pose estimation starts once the
// activity gate opens and stops again after a quiet period.
func (a *App) runPipeline(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.gate.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}
			if a.step() {
				fps := a.gate.FPS()
				a.camera.SetFPS(fps)
				ticker.Reset(a.gate.Interval())
				a.logger.WithField("fps", fps).Info("Frame rate changed")
			}
		}
	}
}

// step processes one camera frame and reports whether the frame rate
// should change.
func (a *App) step() bool {
	started := time.Now()

	frame, err := a.camera.ReadFrame()
	if err != nil {
		a.logger.Debugf("Error reading frame: %v", err)
		return false
	}
	defer frame.Close()

	active, changed := a.gate.Observe(frame, started)
	if !active {
		a.frames.setJPEG(a.encode(frame))
		return changed
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.config.FrameBudget*5)
	res, err := a.provider.Detect(ctx, frame)
	cancel()
	if err != nil {
		a.logger.Warnf("Landmark detection failed: %v", err)
		res = pose.Result{}
	}
	if res.Timestamp == 0 {
		res.Timestamp = started.UnixMilli()
	}
	if res.Detected {
		if _, c := a.gate.Signal(true, started); c {
			changed = true
		}
	}

	a.ProcessResult(res, frame)

	if elapsed := time.Since(started); elapsed > a.config.FrameBudget {
		a.logger.WithFields(logrus.Fields{
			"elapsed": elapsed,
			"budget":  a.config.FrameBudget,
		}).Warn("Frame exceeded processing budget")
	}
	return changed
}

// ProcessResult runs one provider result through tracking, the session
// and the sinks. img, when given, receives the overlay and becomes the
// latest streamed frame.
func (a *App) ProcessResult(res pose.Result, img *gocv.Mat) FrameResult {
	update := a.tracker.Update(res.Frames())
	person := pick(res, update)

	sess := a.Session()
	result := sess.Process(person, res.Timestamp)

	var scene render.Scene
	if person != nil && result.Detected {
		scene = render.Build(*person, a.config.Render)
	}

	fr := FrameResult{
		Result:   result,
		Mirrored: sess.Mirrored(),
		Tracking: update,
		Scene:    scene,
	}

	if img != nil && !img.Empty() {
		a.annotate(img, fr)
		a.frames.setJPEG(a.encode(img))
	}
	a.record(sess.ID(), result)
	a.frames.publish(fr)
	return fr
}

// pick chooses the person to analyze: the locked target, otherwise the
// only person in view, otherwise nobody.
func pick(res pose.Result, u tracker.Update) *pose.Person {
	index := -1
	switch {
	case u.Mode == tracker.ModeTracking && u.Target != nil:
		index = u.Target.Index
	case u.Mode == tracker.ModeSelection && len(u.Candidates) == 1:
		index = u.Candidates[0].Index
	}
	if index < 0 || index >= len(res.Persons) {
		return nil
	}
	return &res.Persons[index]
}

func (a *App) annotate(img *gocv.Mat, fr FrameResult) {
	render.Paint(img, fr.Scene)

	if fr.Tracking.Mode == tracker.ModeSelection && len(fr.Tracking.Candidates) > 1 {
		boxes := make([]image.Rectangle, len(fr.Tracking.Candidates))
		for i, c := range fr.Tracking.Candidates {
			b := c.BoundingBox
			boxes[i] = render.Rect(img, b.MinX, b.MinY, b.MaxX, b.MaxY)
		}
		render.PaintBoxes(img, boxes, -1)
	}

	if fr.Mirrored {
		gocv.Flip(*img, img, 1)
	}
}

func (a *App) encode(img *gocv.Mat) []byte {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *img)
	if err != nil {
		a.logger.Debugf("JPEG encode failed: %v", err)
		return nil
	}
	defer buf.Close()

	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)
	return out
}

// record stores newly activated movements and hands them to plugins.
func (a *App) record(sessionID string, result session.Result) {
	for _, m := range result.Activated {
		log := a.logger.WithFields(logrus.Fields{
			"session":  sessionID,
			"analyzer": m.AnalyzerID,
		})
		log.Infof("Movement: %s", m.Descriptor)

		if st := a.config.Store; st != nil {
			err := st.Events().Create(&store.Event{
				SessionID:    sessionID,
				AnalyzerID:   m.AnalyzerID,
				BodyPart:     m.BodyPart,
				MovementType: m.MovementType,
				Direction:    m.Direction,
				Descriptor:   m.Descriptor,
				Confidence:   m.Confidence,
				Magnitude:    m.Magnitude,
				TimestampMs:  m.Timestamp,
			})
			if err != nil {
				log.Warnf("Failed to store movement event: %v", err)
			}
		}

		if a.config.Plugins != nil {
			a.config.Plugins.Dispatch(sessionID, plugin.Movement{
				AnalyzerID:   m.AnalyzerID,
				BodyPart:     m.BodyPart,
				MovementType: m.MovementType,
				Direction:    m.Direction,
				Descriptor:   m.Descriptor,
				Confidence:   m.Confidence,
				Timestamp:    m.Timestamp,
			})
		}
	}
}
