// Package img2gray converts user supplied images into grayscale PNGs.
//
// The pipeline has three stages: Decode turns a SourceImage into a
// grayscale.PixelBuffer, grayscale.TransformContext averages the color
// channels in place, and Encode produces an Artifact for preview and
// download. Process runs all three.
package img2gray // import "go.yhsif.com/img2gray"
