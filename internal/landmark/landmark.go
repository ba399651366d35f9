package landmark

// Landmark is one keypoint from the detector, with coordinates normalized
// to frame size (x, y in [0,1]; z is depth relative to the reference point
// and may be zero when the detector does not report it).
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z,omitempty"`
}

// Detections is the raw detector payload for one frame. Any category may
// be absent: a nil slice means the detector found nothing in that category.
type Detections struct {
	PoseLandmarks []Landmark   `json:"pose_landmarks"`
	FaceLandmarks []Landmark   `json:"face_landmarks"`
	HandLandmarks [][]Landmark `json:"hand_landmarks"`
}

// Observation is the normalized per-frame view the metric extractor
// consumes. Absent categories carry explicit "not detected" state so
// downstream code never assumes presence. Immutable after creation.
type Observation struct {
	FrameNumber uint64
	Timestamp   float64 // capture time, seconds

	PoseJoints []Landmark   // nil when no pose detected
	HandJoints [][]Landmark // zero, one, or two hands
	FaceJoints []Landmark   // nil when no face detected

	PoseDetected  bool
	HandsDetected int
	FaceDetected  bool
}

// MaxHands is the detector's hand-tracking limit.
const MaxHands = 2

// Normalize converts a raw detector payload into an Observation. A missing
// category is recorded as not-detected, never as a frame failure.
func Normalize(d *Detections, frameNumber uint64, timestamp float64) Observation {
	obs := Observation{
		FrameNumber: frameNumber,
		Timestamp:   timestamp,
	}
	if d == nil {
		return obs
	}

	if len(d.PoseLandmarks) > 0 {
		obs.PoseJoints = d.PoseLandmarks
		obs.PoseDetected = true
	}
	if len(d.FaceLandmarks) > 0 {
		obs.FaceJoints = d.FaceLandmarks
		obs.FaceDetected = true
	}
	for _, hand := range d.HandLandmarks {
		if len(hand) == 0 {
			continue
		}
		obs.HandJoints = append(obs.HandJoints, hand)
		if len(obs.HandJoints) == MaxHands {
			break
		}
	}
	obs.HandsDetected = len(obs.HandJoints)

	return obs
}
