package pose

// Preset body poses for tests and demos. Coordinates are image-normalized
// with y growing downward; the subject faces the camera so anatomical left
// landmarks sit at larger x.

const fixtureVisibility = 0.95

func standingPoints() map[string]Point3D {
	return map[string]Point3D{
		Nose:           {X: 0.50, Y: 0.20, Z: 0.10},
		LeftEyeInner:   {X: 0.51, Y: 0.18, Z: 0.08},
		LeftEye:        {X: 0.52, Y: 0.18, Z: 0.08},
		LeftEyeOuter:   {X: 0.53, Y: 0.18, Z: 0.07},
		RightEyeInner:  {X: 0.49, Y: 0.18, Z: 0.08},
		RightEye:       {X: 0.48, Y: 0.18, Z: 0.08},
		RightEyeOuter:  {X: 0.47, Y: 0.18, Z: 0.07},
		LeftEar:        {X: 0.54, Y: 0.19, Z: 0.02},
		RightEar:       {X: 0.46, Y: 0.19, Z: 0.02},
		MouthLeft:      {X: 0.515, Y: 0.23, Z: 0.09},
		MouthRight:     {X: 0.485, Y: 0.23, Z: 0.09},
		LeftShoulder:   {X: 0.58, Y: 0.30, Z: 0.00},
		RightShoulder:  {X: 0.42, Y: 0.30, Z: 0.00},
		LeftElbow:      {X: 0.60, Y: 0.42, Z: 0.01},
		RightElbow:     {X: 0.40, Y: 0.42, Z: 0.01},
		LeftWrist:      {X: 0.62, Y: 0.55, Z: 0.03},
		RightWrist:     {X: 0.38, Y: 0.55, Z: 0.03},
		LeftPinky:      {X: 0.625, Y: 0.58, Z: 0.04},
		RightPinky:     {X: 0.375, Y: 0.58, Z: 0.04},
		LeftIndex:      {X: 0.62, Y: 0.585, Z: 0.04},
		RightIndex:     {X: 0.38, Y: 0.585, Z: 0.04},
		LeftThumb:      {X: 0.615, Y: 0.57, Z: 0.04},
		RightThumb:     {X: 0.385, Y: 0.57, Z: 0.04},
		LeftHip:        {X: 0.55, Y: 0.55, Z: -0.02},
		RightHip:       {X: 0.45, Y: 0.55, Z: -0.02},
		LeftKnee:       {X: 0.555, Y: 0.70, Z: -0.01},
		RightKnee:      {X: 0.445, Y: 0.70, Z: -0.01},
		LeftAnkle:      {X: 0.56, Y: 0.85, Z: -0.02},
		RightAnkle:     {X: 0.44, Y: 0.85, Z: -0.02},
		LeftHeel:       {X: 0.56, Y: 0.87, Z: -0.04},
		RightHeel:      {X: 0.44, Y: 0.87, Z: -0.04},
		LeftFootIndex:  {X: 0.57, Y: 0.89, Z: 0.02},
		RightFootIndex: {X: 0.43, Y: 0.89, Z: 0.02},
	}
}

func frameFromPoints(points map[string]Point3D, timestamp int64) *Frame {
	landmarks := make([]Landmark, 0, NumBodyLandmarks)
	for _, name := range BodyLandmarkNames {
		p := points[name]
		landmarks = append(landmarks, Landmark{
			Name:        name,
			X:           p.X,
			Y:           p.Y,
			Z:           p.Z,
			ZNormalized: 0.5,
			Visibility:  fixtureVisibility,
		})
	}
	return NewFrame(landmarks, timestamp)
}

// StandingPose returns a neutral upright pose with arms relaxed at the sides.
func StandingPose(timestamp int64) *Frame {
	return frameFromPoints(standingPoints(), timestamp)
}

// HandsUpPose returns a pose with both wrists raised above the head.
func HandsUpPose(timestamp int64) *Frame {
	p := standingPoints()
	p[LeftElbow] = Point3D{X: 0.60, Y: 0.18, Z: 0.01}
	p[RightElbow] = Point3D{X: 0.40, Y: 0.18, Z: 0.01}
	p[LeftWrist] = Point3D{X: 0.60, Y: 0.08, Z: 0.02}
	p[RightWrist] = Point3D{X: 0.40, Y: 0.08, Z: 0.02}
	moveHand(p, LeftWrist, LeftPinky, LeftIndex, LeftThumb)
	moveHand(p, RightWrist, RightPinky, RightIndex, RightThumb)
	return frameFromPoints(p, timestamp)
}

// ArmsCrossedPose returns a pose with the forearms crossed over the chest.
func ArmsCrossedPose(timestamp int64) *Frame {
	p := standingPoints()
	p[LeftElbow] = Point3D{X: 0.58, Y: 0.44, Z: 0.02}
	p[RightElbow] = Point3D{X: 0.42, Y: 0.44, Z: 0.02}
	p[LeftWrist] = Point3D{X: 0.44, Y: 0.42, Z: 0.05}
	p[RightWrist] = Point3D{X: 0.56, Y: 0.42, Z: 0.05}
	moveHand(p, LeftWrist, LeftPinky, LeftIndex, LeftThumb)
	moveHand(p, RightWrist, RightPinky, RightIndex, RightThumb)
	return frameFromPoints(p, timestamp)
}

// SquatPose returns a pose with hips lowered and knees bent outward.
func SquatPose(timestamp int64) *Frame {
	p := standingPoints()
	for name, pt := range p {
		pt.Y += 0.12
		p[name] = pt
	}
	p[LeftHip] = Point3D{X: 0.56, Y: 0.66, Z: -0.02}
	p[RightHip] = Point3D{X: 0.44, Y: 0.66, Z: -0.02}
	p[LeftKnee] = Point3D{X: 0.64, Y: 0.72, Z: 0.04}
	p[RightKnee] = Point3D{X: 0.36, Y: 0.72, Z: 0.04}
	p[LeftAnkle] = Point3D{X: 0.57, Y: 0.85, Z: -0.02}
	p[RightAnkle] = Point3D{X: 0.43, Y: 0.85, Z: -0.02}
	p[LeftHeel] = Point3D{X: 0.57, Y: 0.87, Z: -0.04}
	p[RightHeel] = Point3D{X: 0.43, Y: 0.87, Z: -0.04}
	p[LeftFootIndex] = Point3D{X: 0.58, Y: 0.89, Z: 0.02}
	p[RightFootIndex] = Point3D{X: 0.42, Y: 0.89, Z: 0.02}
	return frameFromPoints(p, timestamp)
}

// AkimboPose returns a pose with both hands on the hips and elbows out.
func AkimboPose(timestamp int64) *Frame {
	p := standingPoints()
	p[LeftElbow] = Point3D{X: 0.66, Y: 0.44, Z: 0.00}
	p[RightElbow] = Point3D{X: 0.34, Y: 0.44, Z: 0.00}
	p[LeftWrist] = Point3D{X: 0.56, Y: 0.54, Z: 0.01}
	p[RightWrist] = Point3D{X: 0.44, Y: 0.54, Z: 0.01}
	moveHand(p, LeftWrist, LeftPinky, LeftIndex, LeftThumb)
	moveHand(p, RightWrist, RightPinky, RightIndex, RightThumb)
	return frameFromPoints(p, timestamp)
}

// JumpingJackPose returns the open position of a jumping jack: arms spread
// overhead and feet apart.
func JumpingJackPose(timestamp int64) *Frame {
	p := standingPoints()
	p[LeftElbow] = Point3D{X: 0.68, Y: 0.20, Z: 0.01}
	p[RightElbow] = Point3D{X: 0.32, Y: 0.20, Z: 0.01}
	p[LeftWrist] = Point3D{X: 0.75, Y: 0.12, Z: 0.02}
	p[RightWrist] = Point3D{X: 0.25, Y: 0.12, Z: 0.02}
	p[LeftKnee] = Point3D{X: 0.60, Y: 0.70, Z: -0.01}
	p[RightKnee] = Point3D{X: 0.40, Y: 0.70, Z: -0.01}
	p[LeftAnkle] = Point3D{X: 0.65, Y: 0.85, Z: -0.02}
	p[RightAnkle] = Point3D{X: 0.35, Y: 0.85, Z: -0.02}
	p[LeftHeel] = Point3D{X: 0.65, Y: 0.87, Z: -0.04}
	p[RightHeel] = Point3D{X: 0.35, Y: 0.87, Z: -0.04}
	p[LeftFootIndex] = Point3D{X: 0.66, Y: 0.89, Z: 0.02}
	p[RightFootIndex] = Point3D{X: 0.34, Y: 0.89, Z: 0.02}
	moveHand(p, LeftWrist, LeftPinky, LeftIndex, LeftThumb)
	moveHand(p, RightWrist, RightPinky, RightIndex, RightThumb)
	return frameFromPoints(p, timestamp)
}

// VictoryPose returns a pose with straight arms raised in a V.
func VictoryPose(timestamp int64) *Frame {
	p := standingPoints()
	p[LeftElbow] = Point3D{X: 0.64, Y: 0.16, Z: 0.01}
	p[RightElbow] = Point3D{X: 0.36, Y: 0.16, Z: 0.01}
	p[LeftWrist] = Point3D{X: 0.70, Y: 0.06, Z: 0.02}
	p[RightWrist] = Point3D{X: 0.30, Y: 0.06, Z: 0.02}
	moveHand(p, LeftWrist, LeftPinky, LeftIndex, LeftThumb)
	moveHand(p, RightWrist, RightPinky, RightIndex, RightThumb)
	return frameFromPoints(p, timestamp)
}

// moveHand places the finger landmarks just below the given wrist.
func moveHand(p map[string]Point3D, wrist string, fingers ...string) {
	w := p[wrist]
	for i, name := range fingers {
		p[name] = Point3D{X: w.X, Y: w.Y - 0.02 - 0.005*float64(i), Z: w.Z + 0.01}
	}
}

// Translate returns a copy of f with every landmark shifted by the offsets.
func Translate(f *Frame, dx, dy, dz float64, timestamp int64) *Frame {
	out := f.Clone()
	for i := range out.Landmarks {
		out.Landmarks[i].X += dx
		out.Landmarks[i].Y += dy
		out.Landmarks[i].Z += dz
	}
	out.Timestamp = timestamp
	return out
}

// WithLandmark returns a copy of f with the named landmarks moved by the offsets.
func WithLandmark(f *Frame, dx, dy, dz float64, names ...string) *Frame {
	out := f.Clone()
	for i := range out.Landmarks {
		for _, name := range names {
			if out.Landmarks[i].Name == name {
				out.Landmarks[i].X += dx
				out.Landmarks[i].Y += dy
				out.Landmarks[i].Z += dz
			}
		}
	}
	return out
}

// WithVisibility returns a copy of f with the named landmarks set to visibility v.
func WithVisibility(f *Frame, v float64, names ...string) *Frame {
	out := f.Clone()
	for i := range out.Landmarks {
		for _, name := range names {
			if out.Landmarks[i].Name == name {
				out.Landmarks[i].Visibility = v
			}
		}
	}
	return out
}
