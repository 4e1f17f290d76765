package pose

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// MediaPipeProvider implements Provider using a Python MediaPipe subprocess.
// Only one frame is in flight at a time.
type MediaPipeProvider struct {
	config     Config
	scriptPath string
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stdout     *bufio.Reader
	mu         sync.Mutex
	started    bool
	idleTimer  *time.Timer
}

// NewMediaPipeProvider creates a new MediaPipe landmark provider.
// The Python process is started lazily on first detection.
func NewMediaPipeProvider(config Config) (*MediaPipeProvider, error) {
	scriptPath := config.ScriptPath
	if scriptPath == "" {
		scriptPath = findPoseScript()
	}
	if scriptPath == "" {
		return nil, fmt.Errorf("pose_service.py not found")
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultConfig().IdleTimeout
	}

	return &MediaPipeProvider{
		config:     config,
		scriptPath: scriptPath,
	}, nil
}

// Detect sends a frame to the service and returns the detected persons.
func (d *MediaPipeProvider) Detect(ctx context.Context, frame *gocv.Mat) (Result, error) {
	if frame == nil || frame.Empty() {
		return Result{}, nil
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return Result{}, err
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return Result{}, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	// Length prefix (4 bytes big-endian) followed by the JPEG payload
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := d.stdin.Write(length); err != nil {
		return Result{}, fmt.Errorf("write length: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		return Result{}, fmt.Errorf("write data: %w", err)
	}

	line, err := d.stdout.ReadString('\n')
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}

	var response jsonResponse
	if err := json.Unmarshal([]byte(line), &response); err != nil {
		return Result{}, fmt.Errorf("parse response: %w", err)
	}

	d.resetIdleTimer()

	return response.toResult(time.Now().UnixMilli()), nil
}

// Close shuts down the Python process.
func (d *MediaPipeProvider) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeProvider) ensureStarted() error {
	if d.started {
		return nil
	}

	pythonPath := findVenvPython()
	if pythonPath == "" {
		pythonPath = "python3"
	}

	args := []string{
		d.scriptPath,
		"--max-persons", strconv.Itoa(d.config.MaxPersons),
		"--min-detection-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', 2, 64),
		"--min-tracking-confidence", strconv.FormatFloat(d.config.MinTrackingConf, 'f', 2, 64),
	}
	if d.config.WithHands {
		args = append(args, "--hands")
	}
	if d.config.WithFace {
		args = append(args, "--face")
	}

	d.cmd = exec.Command(pythonPath, args...)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start pose service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true

	return nil
}

func (d *MediaPipeProvider) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

func (d *MediaPipeProvider) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(d.config.IdleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

func findPoseScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/pose_service.py",
		"../scripts/pose_service.py",
		filepath.Join(execDir, "scripts/pose_service.py"),
		filepath.Join(os.Getenv("HOME"), ".abhinaya/scripts/pose_service.py"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		"../../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".abhinaya/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// jsonResponse is the line-delimited JSON emitted by the Python service.
type jsonResponse struct {
	Persons []jsonPerson `json:"persons"`
}

type jsonPerson struct {
	Keypoints []jsonPoint `json:"keypoints"`
	Face      []jsonPoint `json:"face,omitempty"`
	LeftHand  []jsonPoint `json:"left_hand,omitempty"`
	RightHand []jsonPoint `json:"right_hand,omitempty"`
}

type jsonPoint struct {
	Name       string   `json:"name,omitempty"`
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Z          *float64 `json:"z,omitempty"`
	Visibility *float64 `json:"visibility,omitempty"`
}

// toLandmark converts a service point. MediaPipe reports smaller z as
// nearer the camera, so the sign is flipped to make larger z nearer.
func (p jsonPoint) toLandmark(fallbackName string) Landmark {
	name := p.Name
	if name == "" {
		name = fallbackName
	}
	z := math.NaN()
	if p.Z != nil {
		z = -*p.Z
	}
	visibility := 1.0
	if p.Visibility != nil {
		visibility = *p.Visibility
	}
	return Landmark{
		Name:        name,
		X:           p.X,
		Y:           p.Y,
		Z:           z,
		ZNormalized: 0.5,
		Visibility:  visibility,
	}
}

func convertPoints(points []jsonPoint, prefix string) []Landmark {
	if len(points) == 0 {
		return nil
	}
	out := make([]Landmark, len(points))
	for i, p := range points {
		out[i] = p.toLandmark(prefix + strconv.Itoa(i))
	}
	return out
}

func (r jsonResponse) toResult(timestamp int64) Result {
	result := Result{Timestamp: timestamp}
	for _, p := range r.Persons {
		keypoints := make([]Landmark, len(p.Keypoints))
		for i, kp := range p.Keypoints {
			fallback := ""
			if i < NumBodyLandmarks {
				fallback = BodyLandmarkNames[i]
			}
			keypoints[i] = kp.toLandmark(fallback)
		}
		result.Persons = append(result.Persons, Person{
			Keypoints: NewFrame(keypoints, timestamp),
			Face:      convertPoints(p.Face, "face_"),
			LeftHand:  convertPoints(p.LeftHand, "left_hand_"),
			RightHand: convertPoints(p.RightHand, "right_hand_"),
		})
	}
	result.Detected = len(result.Persons) > 0
	return result
}
