package main

import "storyverse/internal/app"

func main() {
	app.Execute()
}
