package render

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

// Paint draws the scene onto img. Scene coordinates are normalized to the
// image size.
func Paint(img *gocv.Mat, scene Scene) {
	if img == nil || img.Empty() {
		return
	}
	w, h := img.Cols(), img.Rows()

	for _, e := range scene.Edges {
		gocv.Line(img, toPixel(e.A, w, h), toPixel(e.B, w, h), e.Color.RGBA(), thickness(e.Width))
	}
	for _, e := range scene.OverlayEdges {
		gocv.Line(img, toPixel(e.A, w, h), toPixel(e.B, w, h), e.Color.RGBA(), thickness(e.Width))
	}
	for _, kp := range scene.Keypoints {
		gocv.Circle(img, toPixel(kp.At, w, h), thickness(kp.Radius), kp.Color.RGBA(), -1)
	}
	for _, kp := range scene.Overlay {
		gocv.Circle(img, toPixel(kp.At, w, h), thickness(kp.Radius), kp.Color.RGBA(), -1)
	}
}

// PaintBoxes outlines selectable regions, highlighting the selected one.
func PaintBoxes(img *gocv.Mat, boxes []image.Rectangle, selected int) {
	if img == nil || img.Empty() {
		return
	}
	for i, r := range boxes {
		c := Cyan
		if i == selected {
			c = Yellow
		}
		gocv.Rectangle(img, r, c.RGBA(), 2)
	}
}

// Rect converts a normalized box to pixel coordinates for img.
func Rect(img *gocv.Mat, minX, minY, maxX, maxY float64) image.Rectangle {
	w, h := img.Cols(), img.Rows()
	return image.Rectangle{
		Min: toPixel(Point{minX, minY}, w, h),
		Max: toPixel(Point{maxX, maxY}, w, h),
	}
}

func toPixel(p Point, w, h int) image.Point {
	return image.Pt(int(math.Round(p.X*float64(w))), int(math.Round(p.Y*float64(h))))
}

func thickness(v float64) int {
	return int(math.Max(1, math.Round(v)))
}
