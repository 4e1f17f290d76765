package render

import "github.com/ayusman/abhinaya/internal/pose"

// BodyEdges connects body landmarks into a skeleton.
var BodyEdges = [][2]string{
	// face
	{pose.Nose, pose.LeftEyeInner}, {pose.LeftEyeInner, pose.LeftEye}, {pose.LeftEye, pose.LeftEyeOuter}, {pose.LeftEyeOuter, pose.LeftEar},
	{pose.Nose, pose.RightEyeInner}, {pose.RightEyeInner, pose.RightEye}, {pose.RightEye, pose.RightEyeOuter}, {pose.RightEyeOuter, pose.RightEar},
	{pose.MouthLeft, pose.MouthRight},

	// torso
	{pose.LeftShoulder, pose.RightShoulder},
	{pose.LeftShoulder, pose.LeftHip}, {pose.RightShoulder, pose.RightHip},
	{pose.LeftHip, pose.RightHip},

	// arms
	{pose.LeftShoulder, pose.LeftElbow}, {pose.LeftElbow, pose.LeftWrist},
	{pose.LeftWrist, pose.LeftPinky}, {pose.LeftWrist, pose.LeftIndex}, {pose.LeftWrist, pose.LeftThumb}, {pose.LeftPinky, pose.LeftIndex},
	{pose.RightShoulder, pose.RightElbow}, {pose.RightElbow, pose.RightWrist},
	{pose.RightWrist, pose.RightPinky}, {pose.RightWrist, pose.RightIndex}, {pose.RightWrist, pose.RightThumb}, {pose.RightPinky, pose.RightIndex},

	// legs
	{pose.LeftHip, pose.LeftKnee}, {pose.LeftKnee, pose.LeftAnkle},
	{pose.LeftAnkle, pose.LeftHeel}, {pose.LeftHeel, pose.LeftFootIndex}, {pose.LeftAnkle, pose.LeftFootIndex},
	{pose.RightHip, pose.RightKnee}, {pose.RightKnee, pose.RightAnkle},
	{pose.RightAnkle, pose.RightHeel}, {pose.RightHeel, pose.RightFootIndex}, {pose.RightAnkle, pose.RightFootIndex},
}

// HandEdges connects the 21 hand landmarks.
var HandEdges = [][2]int{
	{pose.HandWrist, pose.HandThumbCMC}, {pose.HandThumbCMC, pose.HandThumbMCP}, {pose.HandThumbMCP, pose.HandThumbIP}, {pose.HandThumbIP, pose.HandThumbTip},
	{pose.HandWrist, pose.HandIndexMCP}, {pose.HandIndexMCP, pose.HandIndexPIP}, {pose.HandIndexPIP, pose.HandIndexDIP}, {pose.HandIndexDIP, pose.HandIndexTip},
	{pose.HandIndexMCP, pose.HandMiddleMCP}, {pose.HandMiddleMCP, pose.HandMiddlePIP}, {pose.HandMiddlePIP, pose.HandMiddleDIP}, {pose.HandMiddleDIP, pose.HandMiddleTip},
	{pose.HandMiddleMCP, pose.HandRingMCP}, {pose.HandRingMCP, pose.HandRingPIP}, {pose.HandRingPIP, pose.HandRingDIP}, {pose.HandRingDIP, pose.HandRingTip},
	{pose.HandRingMCP, pose.HandPinkyMCP}, {pose.HandWrist, pose.HandPinkyMCP},
	{pose.HandPinkyMCP, pose.HandPinkyPIP}, {pose.HandPinkyPIP, pose.HandPinkyDIP}, {pose.HandPinkyDIP, pose.HandPinkyTip},
}
