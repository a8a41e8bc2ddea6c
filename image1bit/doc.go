// Package image1bit provides a 1-bit monochrome image format for e-paper display controllers.
//
// E-paper controllers such as the one on the Waveshare 2.7" panel take one bit per
// pixel. Pixels are stored row by row, 8 pixels per byte, most significant bit first.
// A set bit is a white pixel and a cleared bit is a black pixel, which matches the
// controller's frame memory so a canvas can be sent without re-encoding.
//
// Memory layout example for a 10-pixel row:
//
//	Pixels: 0 1 2 3 4 5 6 7 | 8 9
//	Values: W B W W W W W B | B W
//	Bytes:  0xBE            | 0x7F
//	        (0xBE = 1011 1110)
//	        (0x7F = 0111 1111, the 6 padding bits stay white)
//
// This package provides:
//
// - Bit: A color type representing a black or white pixel
// - BitModel: A color model for converting standard Go colors to Bit
// - HorizontalMSB: An image.Image implementation matching the controller layout
//
// Example usage:
//
//	// Create a 264x176 canvas, all white
//	img := image1bit.NewHorizontalMSB(image.Rect(0, 0, 264, 176))
//
//	// Set a pixel to black
//	img.SetBit(10, 20, image1bit.Black)
//
//	// Use with standard Go image operations
//	draw.Draw(img, image.Rect(0, 40, 264, 41), image.Black, image.Point{}, draw.Src)
package image1bit
