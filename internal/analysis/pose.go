package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/edgecoach/engine/internal/httpx"
	"github.com/edgecoach/engine/internal/metrics"
)

// PoseResult is a posture verdict for one set of joint coordinates.
type PoseResult struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// PoseClassifier scores flat joint-coordinate maps ("nose_x", "nose_y",
// "left_shoulder_x", ...). When a model sidecar is configured it is asked
// first; the local heuristic covers sidecar failures so batch jobs never
// stall on a missing model server.
type PoseClassifier struct {
	url    string
	client *http.Client
}

// NewPoseClassifier creates a classifier. An empty url disables the
// sidecar and every call uses the heuristic.
func NewPoseClassifier(url string, poolSize int) *PoseClassifier {
	c := &PoseClassifier{url: url}
	if url != "" {
		c.client = httpx.NewPooledClient(poolSize, 15*time.Second)
	}
	return c
}

// Classify returns a good/bad posture verdict for the joints.
func (c *PoseClassifier) Classify(ctx context.Context, joints map[string]float64) *PoseResult {
	if c.client != nil {
		if res, err := c.classifyRemote(ctx, joints); err == nil {
			return res
		}
	}
	return ClassifyHeuristic(joints)
}

func (c *PoseClassifier) classifyRemote(ctx context.Context, joints map[string]float64) (*PoseResult, error) {
	start := time.Now()

	body, err := json.Marshal(map[string]any{"joints": joints})
	if err != nil {
		return nil, fmt.Errorf("marshal classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url+"/classify", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.Errors.WithLabelValues("pose", "http").Inc()
		return nil, fmt.Errorf("classify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		metrics.Errors.WithLabelValues("pose", "status").Inc()
		return nil, fmt.Errorf("classify status %d: %s", resp.StatusCode, respBody)
	}

	var result PoseResult
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode classify response: %w", err)
	}

	metrics.StageDuration.WithLabelValues("pose").Observe(time.Since(start).Seconds())
	return &result, nil
}

// goodPoseThreshold is the dispersion score above which posture reads as open.
const goodPoseThreshold = 0.35

// ClassifyHeuristic scores posture from limb dispersion alone. Coordinates
// are split by the _x/_y key convention in sorted key order, so results are
// deterministic for a given joint map. Cramped or heavily skewed poses
// produce low dispersion and read as bad.
func ClassifyHeuristic(joints map[string]float64) *PoseResult {
	keys := make([]string, 0, len(joints))
	for k := range joints {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var xs, ys []float64
	for i, k := range keys {
		if i%2 == 0 {
			xs = append(xs, joints[k])
		} else {
			ys = append(ys, joints[k])
		}
	}
	if len(xs) == 0 || len(ys) == 0 {
		return &PoseResult{Label: "bad", Score: 0}
	}

	var magSum float64
	for _, x := range xs {
		magSum += math.Abs(x)
	}
	for _, y := range ys {
		magSum += math.Abs(y)
	}
	meanMag := magSum / float64(len(xs)+len(ys))

	score := 0.0
	if meanMag != 0 {
		dispersion := (stddev(xs) + stddev(ys)) / 2 / meanMag
		score = max(0, min(1, dispersion*2))
	}

	label := "bad"
	if score >= goodPoseThreshold {
		label = "good"
	}
	return &PoseResult{Label: label, Score: score}
}

func stddev(vals []float64) float64 {
	mean := 0.0
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))

	var sq float64
	for _, v := range vals {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq / float64(len(vals)))
}
