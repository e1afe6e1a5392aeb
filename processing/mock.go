package processing

import "context"

const mockScene = `from manim import *

class MockScene(Scene):
    def construct(self):
        self.camera.background_color = WHITE
        circle = Circle(color=BLUE)
        square = Square(color=RED)
        self.play(Create(circle), run_time=1)
        self.play(Transform(circle, square), run_time=1)
        self.wait(2)
`

// MockGenerator returns a fixed scene without calling a model.
type MockGenerator struct {
	// Fenced wraps the scene in a markdown fence the way chat models often do.
	Fenced bool
}

func (m MockGenerator) Generate(_ context.Context, _ string) (string, error) {
	if m.Fenced {
		return "```python\n" + mockScene + "```\n", nil
	}
	return mockScene, nil
}
