// Package feature turns landmark observations into per-frame body-language
// metrics: blink state from an eye-aspect-ratio, hand and head displacement
// between consecutive frames, and the composite nervousness score.
package feature

import (
	"math"

	"github.com/edgecoach/engine/internal/landmark"
)

// Face-mesh indices of the six landmarks per eye used for the EAR
// computation: [outer corner, upper 1, upper 2, inner corner, lower 2,
// lower 1].
var (
	leftEyeIdx  = [6]int{362, 385, 387, 263, 373, 380}
	rightEyeIdx = [6]int{33, 160, 158, 133, 153, 144}
)

// openEAR is the EAR reported when eye landmarks are unusable
// (normal open eyes measure about 0.3).
const openEAR = 0.3

// faceNoseIdx is the face-mesh nose tip, the head-movement fallback
// reference when no pose is detected.
const faceNoseIdx = 1

// BlinkStats summarizes eye state over the session window.
type BlinkStats struct {
	AvgEAR    float64 `json:"avg_ear"`
	BlinkRate float64 `json:"blink_rate"`
}

// RawMetrics carries window-level movement aggregates exposed alongside
// the per-frame values.
type RawMetrics struct {
	AvgHandMovement float64 `json:"avg_hand_movement"`
	AvgHeadMovement float64 `json:"avg_head_movement"`
}

// Metrics is the scored record for one frame. BlinkRate and
// NervousnessScore are filled in by the session window on append, since
// they depend on the rolling history; everything else is a pure function
// of the current and previous observation. Never mutated once appended.
type Metrics struct {
	FrameNumber      uint64     `json:"frame_number"`
	Timestamp        float64    `json:"timestamp"`
	NervousnessScore float64    `json:"nervousness_score"`
	BlinkDetected    bool       `json:"blink_detected"`
	BlinkStats       BlinkStats `json:"blink_stats"`
	HandMovement     float64    `json:"hand_movement"`
	HeadMovement     float64    `json:"head_movement"`
	HandsDetected    int        `json:"hands_detected"`
	FaceDetected     int        `json:"face_detected"`
	RawMetrics       RawMetrics `json:"raw_metrics"`
}

// Extractor computes Metrics from consecutive observations.
type Extractor struct {
	cfg ScoringConfig
}

// NewExtractor creates an extractor with the given scoring constants.
func NewExtractor(cfg ScoringConfig) *Extractor {
	return &Extractor{cfg: cfg}
}

// Extract scores the current observation against the previous one. A nil
// previous observation (first frame of a session) yields zero movement
// but valid blink state and detection counts.
func (e *Extractor) Extract(prev *landmark.Observation, cur landmark.Observation) Metrics {
	m := Metrics{
		FrameNumber:   cur.FrameNumber,
		Timestamp:     cur.Timestamp,
		HandsDetected: cur.HandsDetected,
	}
	if cur.FaceDetected {
		m.FaceDetected = 1
		m.BlinkDetected, m.BlinkStats.AvgEAR = e.detectBlink(cur.FaceJoints)
	}

	if prev != nil {
		m.HandMovement = handMovement(prev, cur)
		m.HeadMovement = headMovement(prev, cur)
	}
	return m
}

// detectBlink computes the mean EAR of both eyes and compares it to the
// blink threshold.
func (e *Extractor) detectBlink(face []landmark.Landmark) (bool, float64) {
	left := eyeAspectRatio(face, leftEyeIdx)
	right := eyeAspectRatio(face, rightEyeIdx)
	avg := (left + right) / 2
	return avg < e.cfg.EARThreshold, avg
}

// eyeAspectRatio is (‖p1−p5‖ + ‖p2−p4‖) / (2·‖p0−p3‖): vertical eye
// openness over horizontal eye width. Falls back to the open-eye value
// when the mesh is too short for the eye indices or degenerate.
func eyeAspectRatio(face []landmark.Landmark, idx [6]int) float64 {
	for _, i := range idx {
		if i >= len(face) {
			return openEAR
		}
	}
	v1 := dist(face[idx[1]], face[idx[5]])
	v2 := dist(face[idx[2]], face[idx[4]])
	h := dist(face[idx[0]], face[idx[3]])
	if h == 0 {
		return openEAR
	}
	return (v1 + v2) / (2 * h)
}

// handMovement is the mean centroid displacement of hands present in both
// frames, matched by detector index.
func handMovement(prev *landmark.Observation, cur landmark.Observation) float64 {
	n := len(cur.HandJoints)
	if len(prev.HandJoints) < n {
		n = len(prev.HandJoints)
	}
	if n == 0 {
		return 0
	}

	var total float64
	for i := 0; i < n; i++ {
		total += dist(centroid(cur.HandJoints[i]), centroid(prev.HandJoints[i]))
	}
	return total / float64(n)
}

// headMovement is the displacement of the nose reference point, preferring
// the pose landmark and falling back to the face mesh.
func headMovement(prev *landmark.Observation, cur landmark.Observation) float64 {
	if prev.PoseDetected && cur.PoseDetected &&
		len(prev.PoseJoints) > 0 && len(cur.PoseJoints) > 0 {
		return dist(cur.PoseJoints[0], prev.PoseJoints[0])
	}
	if prev.FaceDetected && cur.FaceDetected &&
		len(prev.FaceJoints) > faceNoseIdx && len(cur.FaceJoints) > faceNoseIdx {
		return dist(cur.FaceJoints[faceNoseIdx], prev.FaceJoints[faceNoseIdx])
	}
	return 0
}

func centroid(joints []landmark.Landmark) landmark.Landmark {
	var cx, cy float64
	for _, j := range joints {
		cx += j.X
		cy += j.Y
	}
	n := float64(len(joints))
	return landmark.Landmark{X: cx / n, Y: cy / n}
}

func dist(a, b landmark.Landmark) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
