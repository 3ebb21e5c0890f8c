package main

// @title Object Detection API
// @version 1.0
// @description Detect objects in JPEG/PNG images, render annotated copies and switch between YOLOv8 models.
// @BasePath /
func main() {
	Execute()
}
